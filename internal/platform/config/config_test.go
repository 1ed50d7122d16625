package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "freight-quote-service", cfg.App.Name)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, DriverMemory, cfg.Idempotency.Driver)
	assert.Equal(t, time.Hour, cfg.Idempotency.TTL)
	assert.Equal(t, DriverLog, cfg.Events.Driver)
	assert.Equal(t, "quotations", cfg.Events.Channel)
	assert.Equal(t, DriverNone, cfg.Expiry.Driver)
	assert.Equal(t, 7*24*time.Hour, cfg.Quotes.Validity)
	assert.Equal(t, "pricing-admin", cfg.Auth.AdminRole)
	assert.Equal(t, int32(DefaultPostgresMaxConns), cfg.Storage.Postgres.MaxConns)
	assert.Equal(t, 5*time.Minute, cfg.Storage.Postgres.MaxConnIdleTime)
	assert.Equal(t, "quote_idempotency", cfg.Storage.DynamoDB.IdempotencyTable)
	assert.Equal(t, 30*time.Second, cfg.Expiry.Lmstfy.TTR)
}

func TestLoad_DefaultsValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.NoError(t, cfg.Validate())
}

func TestLoad_Features(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "true", cfg.Features["quotes.lazy-expiry"])
	assert.Equal(t, "true", cfg.Features["quotes.schedule-expiry"])
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("APP_STORAGE_DRIVER", "postgres")
	t.Setenv("APP_STORAGE_POSTGRES_DSN", "postgres://localhost:5432/quotes")
	t.Setenv("APP_LOG_FILE_MAX_SIZE", "50")
	t.Setenv("APP_IDEMPOTENCY_TTL", "30m")
	t.Setenv("APP_FEATURES_QUOTES_LAZY_EXPIRY", "false")
	t.Setenv("APP_TELEMETRY_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost:5432/quotes", cfg.Storage.Postgres.DSN)
	assert.Equal(t, 50, cfg.Log.File.MaxSizeMB)
	assert.Equal(t, 30*time.Minute, cfg.Idempotency.TTL)
	assert.Equal(t, "false", cfg.Features["quotes.lazy-expiry"])
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestLoad_ProfileFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "configs"), 0o755))

	base := []byte("quotes:\n  validity: 48h\npricing:\n  exchange_rates:\n    USD_EUR: \"0.85\"\n")
	profile := []byte("events:\n  driver: none\n")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "base.yaml"), base, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "qa.yaml"), profile, 0o600))

	t.Chdir(dir)

	cfg, err := Load("qa")
	require.NoError(t, err)

	assert.Equal(t, 48*time.Hour, cfg.Quotes.Validity)
	assert.Equal(t, "0.85", cfg.Pricing.ExchangeRates["USD_EUR"])
	assert.Equal(t, DriverNone, cfg.Events.Driver)
}

func TestLoad_NonExistentProfile(t *testing.T) {
	cfg, err := Load("nonexistent")
	require.NoError(t, err)

	assert.Equal(t, "freight-quote-service", cfg.App.Name)
}

func TestEnvKeyMapper(t *testing.T) {
	mapKey := envKeyMapper([]string{"log.file.max_size", "features.quotes.lazy-expiry", "server.port"})

	assert.Equal(t, "log.file.max_size", mapKey("APP_LOG_FILE_MAX_SIZE"))
	assert.Equal(t, "features.quotes.lazy-expiry", mapKey("APP_FEATURES_QUOTES_LAZY_EXPIRY"))
	assert.Equal(t, "server.port", mapKey("APP_SERVER_PORT"))
	assert.Equal(t, "some.new.key", mapKey("APP_SOME_NEW_KEY"))
}
