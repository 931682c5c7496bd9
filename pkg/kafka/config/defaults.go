package kafka_config

import "time"

const (
	StartNewest = "newest"
	StartOldest = "oldest"
)

const (
	DefaultBrokers = "localhost:9092"

	DefaultClassTopic        = "portal.class-updates"
	DefaultBookingTopic      = "portal.booking-updates"
	DefaultAvailabilityTopic = "portal.instructor-availability"
	DefaultAuthTopic         = "portal.auth-events"
	DefaultConsumerGroup     = "yoga-portal"

	// a device only cares about changes from the moment it connects
	DefaultStartFrom      = StartNewest
	DefaultMaxWait        = 500 * time.Millisecond
	DefaultCommitInterval = 1 * time.Second
	DefaultSessionTimeout = 10 * time.Second
	DefaultMaxRetries     = 3
	DefaultDLQTopic       = ""

	DefaultAmbientTopic       = ""
	DefaultAmbientRequireAcks = 1
	DefaultAmbientMaxAttempts = 3

	DefaultInstrument = true
)
