package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	SnowflakeNode     int64
	AutoMigrate       bool
	CreditsConfigFile string
	SeedTenantID      string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis         RedisConfig
	Cache         CacheConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

type CacheConfig struct {
	Backend string
}

type RateLimitConfig struct {
	Enabled                 bool
	DeductTenantRate        float64
	DeductTenantBurst       int
	TopUpIdempotencyTTLSecs int
}

// ObservabilityConfig carries log and telemetry knobs. OTLPEndpoint on Config
// is the fallback collector address.
type ObservabilityConfig struct {
	DeploymentEnv  string
	ServiceVersion string
	LogLevel       string
	LogFormat      string
	OtelEnabled    *bool
	OtelProtocol   string
	SamplingRatio  float64
	SlowQueryMs    int
}

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "commcredit"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", ""),
		SnowflakeNode:     getenvInt64("SNOWFLAKE_NODE", 1),
		AutoMigrate:       getenvBool("AUTO_MIGRATE", false),
		CreditsConfigFile: strings.TrimSpace(getenv("CREDITS_CONFIG_FILE", "")),
		SeedTenantID:      strings.TrimSpace(getenv("SEED_TENANT_ID", "")),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "commcredit"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 10)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 50)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		Cache: CacheConfig{
			Backend: normalizeCacheBackend(getenv("CACHE_BACKEND", CacheBackendMemory)),
		},
		RateLimit: RateLimitConfig{
			Enabled:                 getenvBool("RATE_LIMIT_ENABLED", false),
			DeductTenantRate:        getenvFloat64("RATE_LIMIT_DEDUCT_TENANT_RATE", 200),
			DeductTenantBurst:       int(getenvInt64("RATE_LIMIT_DEDUCT_TENANT_BURST", 400)),
			TopUpIdempotencyTTLSecs: int(getenvInt64("RATE_LIMIT_TOPUP_IDEMPOTENCY_TTL", 600)),
		},
		Observability: ObservabilityConfig{
			DeploymentEnv:  strings.TrimSpace(os.Getenv("DEPLOYMENT_ENV")),
			ServiceVersion: strings.TrimSpace(os.Getenv("SERVICE_VERSION")),
			LogLevel:       strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:      strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			OtelEnabled:    lookupBool("OTEL_ENABLED"),
			OtelProtocol:   otlpProtocol(),
			SamplingRatio:  getenvFloat64("OTEL_SAMPLING_RATIO", 0.1),
			SlowQueryMs:    int(getenvInt64("DATABASE_SLOW_QUERY_MS", 200)),
		},
	}
	if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); endpoint != "" {
		cfg.OTLPEndpoint = endpoint
	}

	return cfg
}

func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

func normalizeCacheBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case CacheBackendRedis:
		return CacheBackendRedis
	case CacheBackendNone, "noop", "off":
		return CacheBackendNone
	default:
		return CacheBackendMemory
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// lookupBool returns nil when key is unset or unparsable.
func lookupBool(key string) *bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	var out bool
	switch value {
	case "1", "true", "yes", "y", "on":
		out = true
	case "0", "false", "no", "n", "off":
		out = false
	default:
		return nil
	}
	return &out
}

// otlpProtocol prefers the traces-specific variable over the shared one.
func otlpProtocol() string {
	if traces := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL")); traces != "" {
		return strings.ToLower(traces)
	}
	return strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")))
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat64(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
