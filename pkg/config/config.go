package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"yogaportal/pkg/client"
	"yogaportal/pkg/logger"
)

type Config struct {
	Environment string

	BackendURL    string
	AnonKey       string
	FunctionsPath string
	AuthPath      string
	HTTPTimeout   time.Duration
	BackendWait   time.Duration // 0 skips the startup wait

	CacheTTL           time.Duration
	CacheMaxEntries    int
	CacheSweepInterval time.Duration
	CacheSingleFlight  bool

	LocalDevAuth   bool
	SessionSealKey string

	// topics and consumer settings live in pkg/kafka/config
	RealtimeEnabled  bool
	LivenessInterval time.Duration

	StorageBackend string
	StoragePath    string
	DeviceID       string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisPrefix   string

	Port string

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	LoginRateLimit  int
	LoginRateWindow time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

// Load reads .env (when present) and the process environment. Invalid
// configuration is fatal.
func Load(serviceName string) *Config {
	_ = godotenv.Load()

	cfg := FromEnv(serviceName)
	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv builds a Config from the environment without validating it.
func FromEnv(serviceName string) *Config {
	return &Config{
		Environment: strings.ToLower(getEnvStr(EnvEnvironment, DefaultEnvironment)),

		BackendURL:    strings.TrimRight(getEnvStr(EnvBackendURL, DefaultBackendURL), "/"),
		AnonKey:       getEnvStr(EnvAnonKey, ""),
		FunctionsPath: getEnvStr(EnvFunctionsPath, DefaultFunctionsPath),
		AuthPath:      getEnvStr(EnvAuthPath, DefaultAuthPath),
		HTTPTimeout:   getEnvDuration(EnvHTTPTimeout, DefaultHTTPTimeout),

		CacheTTL:           getEnvDuration(EnvCacheTTL, DefaultCacheTTL),
		CacheMaxEntries:    getEnvNum(EnvCacheMaxEntries, DefaultCacheMaxEntries),
		CacheSweepInterval: getEnvDuration(EnvCacheSweepInterval, DefaultCacheSweepInterval),
		CacheSingleFlight:  getEnvBool(EnvCacheSingleFlight, DefaultCacheSingleFlight),

		LocalDevAuth:   getEnvBool(EnvLocalDevAuth, DefaultLocalDevAuth),
		SessionSealKey: getEnvStr(EnvSessionSealKey, ""),

		RealtimeEnabled:  getEnvBool(EnvRealtimeEnabled, DefaultRealtimeEnabled),
		LivenessInterval: getEnvDuration(EnvLivenessInterval, DefaultLivenessInterval),
		BackendWait:      getEnvDuration(EnvBackendWait, DefaultBackendWait),

		StorageBackend: strings.ToLower(getEnvStr(EnvStorageBackend, DefaultStorageBackend)),
		StoragePath:    getEnvStr(EnvStoragePath, DefaultStoragePath),
		DeviceID:       getEnvStr(EnvDeviceID, DefaultDeviceID),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisPrefix:   getEnvStr(EnvRedisPrefix, DefaultRedisPrefix),

		Port: getEnvStr(EnvPort, DefaultPort),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		LoginRateLimit:  getEnvNum(EnvLoginRateLimit, DefaultLoginRateLimit),
		LoginRateWindow: getEnvDuration(EnvLoginRateWindow, DefaultLoginRateWindow),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}
}

func (cfg *Config) IsProduction() bool {
	return cfg.Environment == EnvironmentProduction
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if cfg.Environment != EnvironmentDevelopment && cfg.Environment != EnvironmentProduction {
		errors = append(errors, fmt.Sprintf("Environment must be 'development' or 'production', got: %s", cfg.Environment))
	}

	if u, err := url.Parse(cfg.BackendURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, fmt.Sprintf("BackendURL must be an absolute http(s) URL, got: %s", cfg.BackendURL))
	}
	if cfg.IsProduction() && cfg.AnonKey == "" {
		errors = append(errors, "AnonKey is required in production")
	}
	if !strings.HasPrefix(cfg.FunctionsPath, "/") {
		errors = append(errors, fmt.Sprintf("FunctionsPath must start with '/', got: %s", cfg.FunctionsPath))
	}
	if !strings.HasPrefix(cfg.AuthPath, "/") {
		errors = append(errors, fmt.Sprintf("AuthPath must start with '/', got: %s", cfg.AuthPath))
	}
	if cfg.HTTPTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("HTTPTimeout must be positive, got: %s", cfg.HTTPTimeout))
	}
	if cfg.BackendWait < 0 {
		errors = append(errors, fmt.Sprintf("BackendWait cannot be negative, got: %s", cfg.BackendWait))
	}

	if cfg.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("CacheTTL must be positive, got: %s", cfg.CacheTTL))
	}
	if cfg.CacheMaxEntries <= 0 {
		errors = append(errors, fmt.Sprintf("CacheMaxEntries must be positive, got: %d", cfg.CacheMaxEntries))
	}
	if cfg.CacheSweepInterval <= 0 {
		errors = append(errors, fmt.Sprintf("CacheSweepInterval must be positive, got: %s", cfg.CacheSweepInterval))
	}

	if cfg.LocalDevAuth && cfg.IsProduction() {
		errors = append(errors, "LocalDevAuth cannot be enabled in production")
	}
	if cfg.SessionSealKey != "" {
		if key, err := base64.StdEncoding.DecodeString(cfg.SessionSealKey); err != nil || (len(key) != 16 && len(key) != 24 && len(key) != 32) {
			errors = append(errors, "SessionSealKey must be a base64 encoded 16, 24 or 32 byte key")
		}
	} else if cfg.IsProduction() {
		errors = append(errors, "SessionSealKey is required in production")
	}

	if cfg.LivenessInterval <= 0 {
		errors = append(errors, fmt.Sprintf("LivenessInterval must be positive, got: %s", cfg.LivenessInterval))
	}
	switch cfg.StorageBackend {
	case StorageMemory:
	case StorageFile:
		if cfg.StoragePath == "" {
			errors = append(errors, "StoragePath cannot be empty for the file storage backend")
		}
	case StorageMongo:
		if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	case StorageRedis:
		if cfg.RedisAddr == "" {
			errors = append(errors, "RedisAddr cannot be empty for the redis storage backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("StorageBackend must be one of [memory, file, mongo, redis], got: %s", cfg.StorageBackend))
	}
	if cfg.DeviceID == "" {
		errors = append(errors, "DeviceID cannot be empty")
	}

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.LoginRateLimit <= 0 {
		errors = append(errors, fmt.Sprintf("LoginRateLimit must be positive, got: %d", cfg.LoginRateLimit))
	}
	if cfg.LoginRateWindow <= 0 {
		errors = append(errors, fmt.Sprintf("LoginRateWindow must be positive, got: %s", cfg.LoginRateWindow))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"environment", cfg.Environment,
		"backend_url", cfg.BackendURL,
		"anon_key_set", cfg.AnonKey != "",
		"functions_path", cfg.FunctionsPath,
		"auth_path", cfg.AuthPath,
		"http_timeout", cfg.HTTPTimeout,
		"backend_wait", cfg.BackendWait,
		"cache_ttl", cfg.CacheTTL,
		"cache_max_entries", cfg.CacheMaxEntries,
		"cache_sweep_interval", cfg.CacheSweepInterval,
		"cache_single_flight", cfg.CacheSingleFlight,
		"local_dev_auth", cfg.LocalDevAuth,
		"session_seal_key_set", cfg.SessionSealKey != "",
		"realtime_enabled", cfg.RealtimeEnabled,
		"liveness_interval", cfg.LivenessInterval,
		"storage_backend", cfg.StorageBackend,
		"device_id", cfg.DeviceID,
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"redis_addr", cfg.RedisAddr,
		"port", cfg.Port,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"login_rate_limit", cfg.LoginRateLimit,
		"login_rate_window", cfg.LoginRateWindow,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
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
