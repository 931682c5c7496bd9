package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"yogaportal/internal/portal"
	"yogaportal/internal/portal/handler"
	"yogaportal/internal/realtime"
	"yogaportal/pkg/app"
	"yogaportal/pkg/config"
	"yogaportal/pkg/kafka"
	kafka_config "yogaportal/pkg/kafka/config"
	kafka_middleware "yogaportal/pkg/kafka/middleware"
	"yogaportal/pkg/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the portal HTTP service",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load(ServiceName)
	ctx := context.Background()

	cfg.Log.Info("Starting portal service")
	c, err := buildPortal(ctx, cfg)
	if err != nil {
		return err
	}

	server := app.NewApplication(cfg)
	server.OnShutdown(c.close)

	if cfg.RealtimeEnabled {
		stop, err := startRealtime(ctx, cfg, c)
		if err != nil {
			c.close()
			return err
		}
		server.OnShutdown(stop)
	}

	limiter := middleware.NewClientRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow, middleware.RemoteClient, cfg.Log)
	server.OnShutdown(limiter.Stop)

	server.SetApp(
		handler.NewHealthHandler(cfg.Log, c.checks...),
		handler.NewPortalHandler(c.portal, cfg.Log,
			handler.WithLoginLimiter(middleware.RateLimit(limiter)),
			handler.WithStopping(server.Stopping()),
		),
	)
	server.Run()
	return nil
}

// startRealtime connects the bridge to the change-feed topics and returns
// its teardown.
func startRealtime(ctx context.Context, cfg *config.Config, c *components) (func(), error) {
	kcfg, err := kafka_config.Load()
	if err != nil {
		return nil, fmt.Errorf("kafka: %w", err)
	}
	kcfg.LogConfiguration(cfg.Log)

	subscriber := realtime.NewKafkaSubscriber(kcfg, cfg.Log, kcfg.GroupID(cfg.DeviceID))

	var sink realtime.Sink
	var producer *kafka.Producer
	if kcfg.AmbientTopic != "" {
		producer, err = kafka.NewProducer(kcfg, cfg.Log, kcfg.AmbientTopic, "")
		if err != nil {
			return nil, fmt.Errorf("ambient producer: %w", err)
		}
		if kcfg.Instrument {
			producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
			producer.Use(kafka_middleware.MetricsProducerMiddleware())
		}
		sink = producer
	}

	bridge := realtime.New(subscriber, c.bus, c.marketplace, cfg.Log, realtime.Options{
		Topics: realtime.Topics{
			Classes:      kcfg.ClassTopic,
			Bookings:     kcfg.BookingTopic,
			Availability: kcfg.AvailabilityTopic,
			Auth:         kcfg.AuthTopic,
		},
		LivenessInterval: cfg.LivenessInterval,
		Auth:             c.portal,
		Sink:             sink,
		Cache:            c.portal,
		OnStatus: func(s realtime.Status) {
			c.portal.SetRealtimeStatus(string(s))
		},
	})

	if err := bridge.Start(ctx, c.portal.CurrentLocation().Slug); err != nil {
		if producer != nil {
			_ = producer.Close()
		}
		return nil, err
	}

	return func() {
		bridge.Stop()
		if producer != nil {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close ambient producer", "error", err)
			}
		}
	}, nil
}

var (
	_ realtime.AuthHandler = (*portal.Portal)(nil)
	_ realtime.Invalidator = (*portal.Portal)(nil)
)
