package config

const (
	EnvEnvironment = "PORTAL_ENV"

	EnvBackendURL    = "BACKEND_URL"
	EnvAnonKey       = "BACKEND_ANON_KEY"
	EnvFunctionsPath = "BACKEND_FUNCTIONS_PATH"
	EnvAuthPath      = "BACKEND_AUTH_PATH"
	EnvHTTPTimeout   = "BACKEND_HTTP_TIMEOUT"
	EnvBackendWait   = "BACKEND_WAIT"

	EnvCacheTTL           = "CACHE_TTL"
	EnvCacheMaxEntries    = "CACHE_MAX_ENTRIES"
	EnvCacheSweepInterval = "CACHE_SWEEP_INTERVAL"
	EnvCacheSingleFlight  = "CACHE_SINGLE_FLIGHT"

	EnvLocalDevAuth   = "LOCAL_DEV_AUTH"
	EnvSessionSealKey = "SESSION_SEAL_KEY"

	EnvRealtimeEnabled  = "REALTIME_ENABLED"
	EnvLivenessInterval = "REALTIME_LIVENESS_INTERVAL"

	EnvStorageBackend = "STORAGE_BACKEND"
	EnvStoragePath    = "STORAGE_PATH"
	EnvDeviceID       = "DEVICE_ID"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisPrefix   = "REDIS_PREFIX"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvLoginRateLimit  = "LOGIN_RATE_LIMIT"
	EnvLoginRateWindow = "LOGIN_RATE_WINDOW"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
