package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/utafrali/reviewfeed/pkg/config"
	"github.com/utafrali/reviewfeed/pkg/database"
	"github.com/utafrali/reviewfeed/pkg/httpclient"
	"github.com/utafrali/reviewfeed/pkg/tracing"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Augmentation providers.
const (
	ProviderGemini   = "gemini"
	ProviderTemplate = "template"
)

// Config holds all configuration for the review service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8000"`

	// Storage
	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"reviews"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"reviews"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"reviews"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Redis
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Augmentation
	AugmentProvider       string `env:"AUGMENT_PROVIDER" envDefault:"template"`
	AugmentTimeoutSeconds int    `env:"AUGMENT_TIMEOUT_SECONDS" envDefault:"20"`
	GeminiAPIKey          string `env:"GEMINI_API_KEY"`
	GeminiBaseURL         string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiModel           string `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`

	// Circuit breaker around the augmentation provider
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Per-IP limit on submissions
	SubmitRateLimitRPS   float64 `env:"SUBMIT_RATE_LIMIT_RPS" envDefault:"2"`
	SubmitRateLimitBurst int     `env:"SUBMIT_RATE_LIMIT_BURST" envDefault:"5"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Reload the stats rollup from the store; 0 disables.
	StatsRefreshSeconds int `env:"STATS_REFRESH_SECONDS" envDefault:"30"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Proxies whose X-Forwarded-For / X-Real-IP are believed. Empty trusts none.
	TrustedProxyCIDRs []string `env:"TRUSTED_PROXY_CIDRS" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load review config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	switch c.StoreBackend {
	case BackendPostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of postgres, redis, memory, got %q", c.StoreBackend)
	}

	switch c.AugmentProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when AUGMENT_PROVIDER=gemini")
		}
		if _, err := url.ParseRequestURI(c.GeminiBaseURL); err != nil {
			return fmt.Errorf("invalid GEMINI_BASE_URL %q: %w", c.GeminiBaseURL, err)
		}
	case ProviderTemplate:
	default:
		return fmt.Errorf("AUGMENT_PROVIDER must be one of gemini, template, got %q", c.AugmentProvider)
	}

	if c.AugmentTimeoutSeconds < 1 {
		return fmt.Errorf("AUGMENT_TIMEOUT_SECONDS must be positive, got %d", c.AugmentTimeoutSeconds)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}
	if c.SubmitRateLimitRPS <= 0 || c.SubmitRateLimitBurst < 1 {
		return fmt.Errorf("submit rate limit must be positive, got rps=%g burst=%d", c.SubmitRateLimitRPS, c.SubmitRateLimitBurst)
	}
	if c.StatsRefreshSeconds < 0 {
		return fmt.Errorf("STATS_REFRESH_SECONDS must not be negative, got %d", c.StatsRefreshSeconds)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// Postgres returns the pool configuration for the Postgres store.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Redis returns the client configuration for the Redis store.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// CircuitBreaker returns the breaker settings for the named upstream.
func (c *Config) CircuitBreaker(name string) httpclient.CircuitBreakerConfig {
	return httpclient.CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  c.CBMaxRequests,
		Interval:     time.Duration(c.CBInterval) * time.Second,
		Timeout:      time.Duration(c.CBTimeout) * time.Second,
		FailureRatio: c.CBFailureRatio,
		MinRequests:  c.CBMinRequests,
	}
}

// Tracing returns the OpenTelemetry settings for serviceName.
func (c *Config) Tracing(serviceName string) tracing.Config {
	cfg := tracing.DefaultConfig(serviceName)
	cfg.Environment = c.Environment
	cfg.OTLPEndpoint = c.OTELEndpoint
	cfg.SampleRate = c.OTELSampleRate
	cfg.Enabled = c.OTELEnabled
	return cfg
}

// AugmentTimeout bounds one augmentation call.
func (c *Config) AugmentTimeout() time.Duration {
	return time.Duration(c.AugmentTimeoutSeconds) * time.Second
}

// StatsRefreshInterval is zero when periodic refresh is disabled.
func (c *Config) StatsRefreshInterval() time.Duration {
	return time.Duration(c.StatsRefreshSeconds) * time.Second
}

// SlowQueryThreshold is zero when slow query logging is disabled.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}
