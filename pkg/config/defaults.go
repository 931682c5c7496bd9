package config

import "time"

const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"

	StorageMemory = "memory"
	StorageFile   = "file"
	StorageMongo  = "mongo"
	StorageRedis  = "redis"
)

const (
	DefaultEnvironment = EnvironmentDevelopment

	DefaultBackendURL    = "http://localhost:54321"
	DefaultFunctionsPath = "/functions/v1/marketplace"
	DefaultAuthPath      = "/auth/v1"
	DefaultHTTPTimeout   = 10 * time.Second
	DefaultBackendWait   = 0

	DefaultCacheTTL           = 5 * time.Minute
	DefaultCacheMaxEntries    = 1000
	DefaultCacheSweepInterval = 1 * time.Minute
	DefaultCacheSingleFlight  = true

	DefaultLocalDevAuth = false

	DefaultRealtimeEnabled  = false
	DefaultLivenessInterval = 30 * time.Second

	DefaultStorageBackend = StorageFile
	DefaultStoragePath    = "./data/device-state.json"
	DefaultDeviceID       = "default"

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "yoga_portal"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisPrefix = "portal"

	DefaultPort = "8080"

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultLoginRateLimit  = 10
	DefaultLoginRateWindow = 1 * time.Minute

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultLogLevel = "info"
)
