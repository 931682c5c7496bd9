package kafka_config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"yogaportal/pkg/logger"
)

// Config is the Kafka side of the realtime bridge: the change-feed topics a
// device reads, how it reads them and the optional ambient topic forwarded
// events are mirrored to.
type Config struct {
	Brokers []string

	ClassTopic        string
	BookingTopic      string
	AvailabilityTopic string
	AuthTopic         string // optional
	ConsumerGroup     string

	StartFrom      string
	MaxWait        time.Duration
	CommitInterval time.Duration
	SessionTimeout time.Duration
	MaxRetries     int
	DLQTopic       string

	AmbientTopic       string
	AmbientRequireAcks int // -1 = all, 0 = none, 1 = leader
	AmbientMaxAttempts int

	// Instrument adds the logging and metrics middleware to every consumer
	// and to the ambient producer.
	Instrument bool
}

// Load reads the Kafka settings from the environment and validates them.
func Load() (*Config, error) {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func FromEnv() *Config {
	var brokers []string
	for _, b := range strings.Split(getEnvStr(EnvBrokers, DefaultBrokers), ",") {
		brokers = append(brokers, strings.TrimSpace(b))
	}

	return &Config{
		Brokers: brokers,

		ClassTopic:        getEnvStr(EnvClassTopic, DefaultClassTopic),
		BookingTopic:      getEnvStr(EnvBookingTopic, DefaultBookingTopic),
		AvailabilityTopic: getEnvStr(EnvAvailabilityTopic, DefaultAvailabilityTopic),
		AuthTopic:         getEnvStr(EnvAuthTopic, DefaultAuthTopic),
		ConsumerGroup:     getEnvStr(EnvConsumerGroup, DefaultConsumerGroup),

		StartFrom:      strings.ToLower(getEnvStr(EnvStartFrom, DefaultStartFrom)),
		MaxWait:        getEnvDuration(EnvMaxWait, DefaultMaxWait),
		CommitInterval: getEnvDuration(EnvCommitInterval, DefaultCommitInterval),
		SessionTimeout: getEnvDuration(EnvSessionTimeout, DefaultSessionTimeout),
		MaxRetries:     getEnvInt(EnvMaxRetries, DefaultMaxRetries),
		DLQTopic:       getEnvStr(EnvDLQTopic, DefaultDLQTopic),

		AmbientTopic:       getEnvStr(EnvAmbientTopic, DefaultAmbientTopic),
		AmbientRequireAcks: getEnvInt(EnvAmbientRequireAcks, DefaultAmbientRequireAcks),
		AmbientMaxAttempts: getEnvInt(EnvAmbientMaxAttempts, DefaultAmbientMaxAttempts),

		Instrument: getEnvBool(EnvInstrument, DefaultInstrument),
	}
}

// GroupID is the consumer group of one device. Devices must not share a
// group, otherwise they split the partitions and each sees part of the feed.
func (cfg *Config) GroupID(deviceID string) string {
	return cfg.ConsumerGroup + "-" + deviceID
}

func (cfg *Config) feedTopics() map[string]string {
	topics := map[string]string{
		"ClassTopic":        cfg.ClassTopic,
		"BookingTopic":      cfg.BookingTopic,
		"AvailabilityTopic": cfg.AvailabilityTopic,
	}
	if cfg.AuthTopic != "" {
		topics["AuthTopic"] = cfg.AuthTopic
	}
	return topics
}

func (cfg *Config) Validate() error {
	var errors []string

	if len(cfg.Brokers) == 0 {
		errors = append(errors, "At least one Kafka broker is required")
	}
	for i, broker := range cfg.Brokers {
		if broker == "" {
			errors = append(errors, fmt.Sprintf("Broker %d cannot be empty", i))
		}
	}

	seen := map[string]string{}
	for _, name := range []string{"ClassTopic", "BookingTopic", "AvailabilityTopic", "AuthTopic"} {
		topic, ok := cfg.feedTopics()[name]
		if !ok {
			continue
		}
		if topic == "" {
			errors = append(errors, fmt.Sprintf("%s cannot be empty", name))
			continue
		}
		if other, dup := seen[topic]; dup {
			errors = append(errors, fmt.Sprintf("%s and %s cannot share topic %s", other, name, topic))
		}
		seen[topic] = name
	}
	if name, loop := seen[cfg.AmbientTopic]; loop {
		errors = append(errors, fmt.Sprintf("AmbientTopic cannot be the %s, forwarded events would loop", name))
	}
	if name, loop := seen[cfg.DLQTopic]; loop {
		errors = append(errors, fmt.Sprintf("DLQTopic cannot be the %s", name))
	}
	if cfg.ConsumerGroup == "" {
		errors = append(errors, "ConsumerGroup cannot be empty")
	}

	if cfg.StartFrom != StartNewest && cfg.StartFrom != StartOldest {
		errors = append(errors, fmt.Sprintf("StartFrom must be 'newest' or 'oldest', got: %s", cfg.StartFrom))
	}
	if cfg.MaxWait <= 0 {
		errors = append(errors, fmt.Sprintf("MaxWait must be positive, got: %s", cfg.MaxWait))
	}
	if cfg.CommitInterval <= 0 {
		errors = append(errors, fmt.Sprintf("CommitInterval must be positive, got: %s", cfg.CommitInterval))
	}
	if cfg.SessionTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("SessionTimeout must be positive, got: %s", cfg.SessionTimeout))
	}
	if cfg.MaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("MaxRetries cannot be negative, got: %d", cfg.MaxRetries))
	}

	if cfg.AmbientTopic != "" {
		if cfg.AmbientRequireAcks < -1 || cfg.AmbientRequireAcks > 1 {
			errors = append(errors, fmt.Sprintf("AmbientRequireAcks must be -1, 0, or 1, got: %d", cfg.AmbientRequireAcks))
		}
		if cfg.AmbientMaxAttempts <= 0 {
			errors = append(errors, fmt.Sprintf("AmbientMaxAttempts must be positive, got: %d", cfg.AmbientMaxAttempts))
		}
	}

	if len(errors) > 0 {
		errMsg := "Kafka configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}
	return nil
}

func (cfg *Config) LogConfiguration(log *logger.Logger) {
	log.Info("Kafka configuration loaded successfully",
		"brokers", cfg.Brokers,
		"class_topic", cfg.ClassTopic,
		"booking_topic", cfg.BookingTopic,
		"availability_topic", cfg.AvailabilityTopic,
		"auth_topic", cfg.AuthTopic,
		"consumer_group", cfg.ConsumerGroup,
		"start_from", cfg.StartFrom,
		"max_retries", cfg.MaxRetries,
		"dlq_topic", cfg.DLQTopic,
		"ambient_topic", cfg.AmbientTopic,
		"instrument", cfg.Instrument,
	)
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
