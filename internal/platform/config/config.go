// Package config loads the service configuration with koanf.
//
// Sources, lowest precedence first: built-in defaults, configs/base.yaml,
// configs/{profile}.yaml, then APP_ environment variables. Environment
// names are matched against the known keys, so APP_STORAGE_DRIVER sets
// storage.driver and APP_LOG_FILE_MAX_SIZE sets log.file.max_size.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default configuration values.
const (
	DefaultServerPort     = 8080
	DefaultMaxRequestSize = 1 << 20

	DefaultClientRetryMaxAttempts     = 3
	DefaultClientRetryMultiplier      = 2.0
	DefaultClientRetryJitterFactor    = 0.25
	DefaultClientCircuitMaxFailures   = 5
	DefaultClientCircuitHalfOpenLimit = 3

	DefaultTransportMaxIdleConns        = 100
	DefaultTransportMaxIdleConnsPerHost = 10

	DefaultLogFileMaxSizeMB  = 100
	DefaultLogFileMaxBackups = 3
	DefaultLogFileMaxAgeDays = 28

	DefaultPostgresMaxConns = 10
	DefaultPostgresMinConns = 1

	DefaultLookupConcurrency = 4
	DefaultExpiryWorkers     = 4

	DefaultLmstfyPort = 7777
)

// Storage and messaging drivers.
const (
	DriverNone     = "none"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverDynamoDB = "dynamodb"
	DriverRedis    = "redis"
	DriverLog      = "log"
	DriverLmstfy   = "lmstfy"
)

// Config is the root configuration structure.
type Config struct {
	App           AppConfig           `koanf:"app"            validate:"required"`
	Server        ServerConfig        `koanf:"server"         validate:"required"`
	Log           LogConfig           `koanf:"log"            validate:"required"`
	Telemetry     TelemetryConfig     `koanf:"telemetry"`
	Auth          AuthConfig          `koanf:"auth"`
	Client        ClientConfig        `koanf:"client"         validate:"required"`
	Storage       StorageConfig       `koanf:"storage"        validate:"required"`
	Idempotency   IdempotencyConfig   `koanf:"idempotency"    validate:"required"`
	Redis         RedisConfig         `koanf:"redis"`
	Events        EventsConfig        `koanf:"events"         validate:"required"`
	Expiry        ExpiryConfig        `koanf:"expiry"         validate:"required"`
	Pricing       PricingConfig       `koanf:"pricing"        validate:"required"`
	Quotes        QuotesConfig        `koanf:"quotes"         validate:"required"`
	Features      map[string]string   `koanf:"-"`
	ReferenceData ReferenceDataConfig `koanf:"reference_data"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig contains HTTP server settings. RequestTimeout bounds every
// API call; it is the only deadline a quotation request sees.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	RequestTimeout  time.Duration `koanf:"request_timeout"  validate:"required,min=100ms"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"        validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"    validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"     validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true,omitempty,url"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// DefaultAdminRole grants the operator endpoints.
const DefaultAdminRole = "pricing-admin"

// AuthConfig names the headers set by the API gateway after it has
// authenticated the caller.
type AuthConfig struct {
	SubjectHeader string `koanf:"subject_header" validate:"required"`
	RolesHeader   string `koanf:"roles_header"   validate:"required"`
	AdminRole     string `koanf:"admin_role"     validate:"required"`
}

// ClientConfig contains HTTP client settings for downstream services.
type ClientConfig struct {
	Timeout        time.Duration        `koanf:"timeout"         validate:"required,min=100ms"`
	Retry          RetryConfig          `koanf:"retry"           validate:"required"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker" validate:"required"`
	Transport      TransportConfig      `koanf:"transport"       validate:"required"`
}

// RetryConfig contains retry settings for HTTP clients.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"required,min=1,max=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"required,min=10ms"`
	MaxInterval     time.Duration `koanf:"max_interval"     validate:"required,min=100ms"`
	Multiplier      float64       `koanf:"multiplier"       validate:"required,min=1.1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor"    validate:"min=0,max=1"`
}

// CircuitBreakerConfig contains circuit breaker settings for HTTP clients.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

// TransportConfig contains HTTP transport pool settings.
type TransportConfig struct {
	MaxIdleConns        int           `koanf:"max_idle_conns"          validate:"required,min=1"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host" validate:"required,min=1"`
	IdleConnTimeout     time.Duration `koanf:"idle_conn_timeout"       validate:"required,min=1s"`
}

// StorageConfig selects where quotes and reference data live.
type StorageConfig struct {
	Driver   string         `koanf:"driver"   validate:"required,oneof=memory postgres dynamodb"`
	Postgres PostgresConfig `koanf:"postgres"`
	DynamoDB DynamoDBConfig `koanf:"dynamodb"`
}

// PostgresConfig configures the pgx pool.
type PostgresConfig struct {
	DSN             string        `koanf:"dsn"                validate:"omitempty,url"`
	MaxConns        int32         `koanf:"max_conns"          validate:"omitempty,min=1"`
	MinConns        int32         `koanf:"min_conns"          validate:"omitempty,min=0"`
	MaxConnIdleTime time.Duration `koanf:"max_conn_idle_time"`
	Migrate         bool          `koanf:"migrate"`
	SeedCatalog     bool          `koanf:"seed_catalog"`
}

// DynamoDBConfig configures the DynamoDB client and table names.
type DynamoDBConfig struct {
	Region           string `koanf:"region"`
	Endpoint         string `koanf:"endpoint"          validate:"omitempty,url"`
	AccessKeyID      string `koanf:"access_key_id"`
	SecretAccessKey  string `koanf:"secret_access_key"`
	QuotesTable      string `koanf:"quotes_table"`
	IdempotencyTable string `koanf:"idempotency_table"`
}

// IdempotencyConfig selects the reservation store and its window.
type IdempotencyConfig struct {
	Driver string        `koanf:"driver" validate:"required,oneof=memory postgres redis dynamodb"`
	TTL    time.Duration `koanf:"ttl"    validate:"required,min=1s"`
}

// RedisConfig is shared by the redis idempotency store and event publisher.
type RedisConfig struct {
	Addr      string `koanf:"addr"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"         validate:"min=0,max=15"`
	KeyPrefix string `koanf:"key_prefix"`
}

// EventsConfig selects the lifecycle event publisher.
type EventsConfig struct {
	Driver  string `koanf:"driver"  validate:"required,oneof=none log redis"`
	Channel string `koanf:"channel" validate:"required_if=Driver redis"`
	Source  string `koanf:"source"  validate:"required"`
}

// ExpiryConfig selects how ISSUED quotes are expired when their validity
// ends. With driver none, quotes expire lazily on read or through the
// admin sweep.
type ExpiryConfig struct {
	Driver  string       `koanf:"driver"  validate:"required,oneof=none lmstfy"`
	Workers int          `koanf:"workers" validate:"min=1,max=64"`
	Lmstfy  LmstfyConfig `koanf:"lmstfy"`
}

// LmstfyConfig configures the delayed job queue.
type LmstfyConfig struct {
	Host           string        `koanf:"host"            validate:"required_if=Enabled true"`
	Port           int           `koanf:"port"            validate:"omitempty,min=1,max=65535"`
	Namespace      string        `koanf:"namespace"`
	Token          string        `koanf:"token"`
	Queue          string        `koanf:"queue"`
	Enabled        bool          `koanf:"worker_enabled"`
	ConsumeTimeout time.Duration `koanf:"consume_timeout"`
	TTR            time.Duration `koanf:"ttr"`
}

// PricingConfig tunes the calculator and its currency conversion.
type PricingConfig struct {
	LookupConcurrency int               `koanf:"lookup_concurrency" validate:"min=1,max=32"`
	ExchangeRates     map[string]string `koanf:"exchange_rates"`
	FXFeed            FXFeedConfig      `koanf:"fx_feed"`
}

// FXFeedConfig points at an external exchange rate service. When enabled
// it is consulted before the static table.
type FXFeedConfig struct {
	Enabled bool   `koanf:"enabled"`
	BaseURL string `koanf:"base_url" validate:"required_if=Enabled true,omitempty,url"`
	Name    string `koanf:"name"     validate:"required_if=Enabled true"`
}

// QuotesConfig tunes the lifecycle manager.
type QuotesConfig struct {
	Validity time.Duration `koanf:"validity" validate:"required,min=1m"`
}

// ReferenceDataConfig points at the rate and accessorial seed file.
type ReferenceDataConfig struct {
	Path string `koanf:"path"`
}

// defaults returns the default configuration values.
func defaults() map[string]any {
	return map[string]any{
		"app.name":        "freight-quote-service",
		"app.version":     "dev",
		"app.environment": "local",

		"server.port":             DefaultServerPort,
		"server.host":             "0.0.0.0",
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.request_timeout":  "10s",
		"server.max_request_size": DefaultMaxRequestSize,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/app.log",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.service_name":  "freight-quote-service",
		"telemetry.sampling_rate": 1.0,

		"auth.subject_header": "X-User-ID",
		"auth.roles_header":   "X-User-Roles",
		"auth.admin_role":     DefaultAdminRole,

		"client.timeout":                           "5s",
		"client.retry.max_attempts":                DefaultClientRetryMaxAttempts,
		"client.retry.initial_interval":            "100ms",
		"client.retry.max_interval":                "2s",
		"client.retry.multiplier":                  DefaultClientRetryMultiplier,
		"client.retry.jitter_factor":               DefaultClientRetryJitterFactor,
		"client.circuit_breaker.max_failures":      DefaultClientCircuitMaxFailures,
		"client.circuit_breaker.timeout":           "30s",
		"client.circuit_breaker.half_open_limit":   DefaultClientCircuitHalfOpenLimit,
		"client.transport.max_idle_conns":          DefaultTransportMaxIdleConns,
		"client.transport.max_idle_conns_per_host": DefaultTransportMaxIdleConnsPerHost,
		"client.transport.idle_conn_timeout":       "90s",

		"storage.driver":                      DriverMemory,
		"storage.postgres.dsn":                "",
		"storage.postgres.max_conns":          DefaultPostgresMaxConns,
		"storage.postgres.min_conns":          DefaultPostgresMinConns,
		"storage.postgres.max_conn_idle_time": "5m",
		"storage.postgres.migrate":            true,
		"storage.postgres.seed_catalog":       false,
		"storage.dynamodb.region":             "us-east-1",
		"storage.dynamodb.endpoint":           "",
		"storage.dynamodb.access_key_id":      "",
		"storage.dynamodb.secret_access_key":  "",
		"storage.dynamodb.quotes_table":       "quotes",
		"storage.dynamodb.idempotency_table":  "quote_idempotency",

		"idempotency.driver": DriverMemory,
		"idempotency.ttl":    "1h",

		"redis.addr":       "localhost:6379",
		"redis.password":   "",
		"redis.db":         0,
		"redis.key_prefix": "quote:idem:",

		"events.driver":  DriverLog,
		"events.channel": "quotations",
		"events.source":  "freight-quote-service",

		"expiry.driver":                 DriverNone,
		"expiry.workers":                DefaultExpiryWorkers,
		"expiry.lmstfy.host":            "localhost",
		"expiry.lmstfy.port":            DefaultLmstfyPort,
		"expiry.lmstfy.namespace":       "freight",
		"expiry.lmstfy.token":           "",
		"expiry.lmstfy.queue":           "quote-expiry",
		"expiry.lmstfy.worker_enabled":  true,
		"expiry.lmstfy.consume_timeout": "10s",
		"expiry.lmstfy.ttr":             "30s",

		"pricing.lookup_concurrency": DefaultLookupConcurrency,
		"pricing.fx_feed.enabled":    false,
		"pricing.fx_feed.base_url":   "",
		"pricing.fx_feed.name":       "fx-feed",

		"quotes.validity": "168h",

		"features.quotes.lazy-expiry":     "true",
		"features.quotes.schedule-expiry": "true",

		"reference_data.path": "configs/reference_data.yaml",
	}
}

// Load loads configuration with the following precedence (highest to lowest):
//  1. Environment variables (APP_ prefix)
//  2. Profile config file (configs/{profile}.yaml)
//  3. Base config file (configs/base.yaml)
//  4. Default values
func Load(profile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if err := loadFileIfExists(k, "configs/base.yaml"); err != nil {
		return nil, fmt.Errorf("loading base config: %w", err)
	}

	if profile != "" {
		if err := loadFileIfExists(k, fmt.Sprintf("configs/%s.yaml", profile)); err != nil {
			return nil, fmt.Errorf("loading profile config %q: %w", profile, err)
		}
	}

	if err := k.Load(env.Provider("APP_", ".", envKeyMapper(k.Keys())), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Flag names contain dots, so they are read flattened.
	features := k.Cut("features").All()
	cfg.Features = make(map[string]string, len(features))

	for name, value := range features {
		cfg.Features[name] = fmt.Sprint(value)
	}

	return &cfg, nil
}

// envKeyMapper maps APP_ variables onto the known keys. Unknown variables
// fall back to replacing every underscore with a dot.
func envKeyMapper(known []string) func(string) string {
	index := make(map[string]string, len(known))
	for _, key := range known {
		flat := strings.NewReplacer(".", "_", "-", "_").Replace(key)
		index[flat] = key
	}

	return func(s string) string {
		name := strings.ToLower(strings.TrimPrefix(s, "APP_"))
		if key, ok := index[name]; ok {
			return key
		}

		return strings.ReplaceAll(name, "_", ".")
	}
}

// loadFileIfExists loads a YAML config file if it exists.
func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
