package kafka_config

const (
	EnvBrokers = "KAFKA_BROKERS"

	EnvClassTopic        = "REALTIME_CLASS_TOPIC"
	EnvBookingTopic      = "REALTIME_BOOKING_TOPIC"
	EnvAvailabilityTopic = "REALTIME_AVAILABILITY_TOPIC"
	EnvAuthTopic         = "REALTIME_AUTH_TOPIC"
	EnvConsumerGroup     = "REALTIME_CONSUMER_GROUP"

	EnvStartFrom      = "REALTIME_START_FROM"
	EnvMaxWait        = "REALTIME_MAX_WAIT"
	EnvCommitInterval = "REALTIME_COMMIT_INTERVAL"
	EnvSessionTimeout = "REALTIME_SESSION_TIMEOUT"
	EnvMaxRetries     = "REALTIME_MAX_RETRIES"
	EnvDLQTopic       = "REALTIME_DLQ_TOPIC"

	EnvAmbientTopic       = "REALTIME_AMBIENT_TOPIC"
	EnvAmbientRequireAcks = "REALTIME_AMBIENT_REQUIRE_ACKS"
	EnvAmbientMaxAttempts = "REALTIME_AMBIENT_MAX_ATTEMPTS"

	EnvInstrument = "REALTIME_INSTRUMENT"
)
