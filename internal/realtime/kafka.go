package realtime

import (
	"context"
	"errors"
	"fmt"

	"yogaportal/pkg/kafka"
	kafka_config "yogaportal/pkg/kafka/config"
	kafka_middleware "yogaportal/pkg/kafka/middleware"
	"yogaportal/pkg/logger"
)

// KafkaSubscriber reads change feeds from Kafka topics. Each portal instance
// needs its own group id, otherwise instances split the partitions and each
// sees only part of the feed.
type KafkaSubscriber struct {
	cfg     *kafka_config.Config
	log     *logger.Logger
	groupID string
}

func NewKafkaSubscriber(cfg *kafka_config.Config, log *logger.Logger, groupID string) *KafkaSubscriber {
	return &KafkaSubscriber{
		cfg:     cfg,
		log:     log.Component("realtime-kafka"),
		groupID: groupID,
	}
}

func (s *KafkaSubscriber) Subscribe(ctx context.Context, topic string, h Handler) (Subscription, error) {
	consumer, err := kafka.NewConsumer(s.cfg, s.log, topic, s.groupID, s.cfg.DLQTopic, func(ctx context.Context, msg kafka.Message) error {
		return h(ctx, inboundFrom(msg))
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer for %s: %w", topic, err)
	}

	if s.cfg.Instrument {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(s.log))
		consumer.Use(kafka_middleware.MetricsConsumerMiddleware())
	}

	if err := consumer.Ready(ctx); err != nil {
		_ = consumer.Close()
		return nil, err
	}

	sub := &kafkaSubscription{consumer: consumer, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		if err := consumer.Start(context.Background()); err != nil &&
			!errors.Is(err, context.Canceled) && !errors.Is(err, kafka.ErrConsumerClosed) {
			s.log.Error("Subscription stopped", "topic", topic, "error", err)
		}
	}()

	s.log.Info("Subscribed", "topic", topic, "group_id", s.groupID)
	return sub, nil
}

type kafkaSubscription struct {
	consumer *kafka.Consumer
	done     chan struct{}
}

// Close stops the consumer and waits for its loop to exit.
func (s *kafkaSubscription) Close() error {
	err := s.consumer.Close()
	<-s.done
	return err
}

func inboundFrom(msg kafka.Message) Inbound {
	loc := msg.GetLocation()
	if loc == "" {
		loc = payloadLocation(msg.Value)
	}
	return Inbound{
		Topic:    msg.Topic,
		Key:      msg.Key,
		Location: loc,
		Data:     msg.Value,
	}
}
