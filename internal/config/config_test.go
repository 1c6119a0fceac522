package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Integration.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Integration.Timeout())
	assert.Equal(t, 500*time.Millisecond, cfg.Integration.SparkSplitTimeout())
	assert.Equal(t, 3, cfg.Integration.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Integration.BackoffBase())
	assert.InDelta(t, 10.0, cfg.Webhook.RatePerSec, 0.001)
	assert.Equal(t, 20, cfg.Webhook.Burst)
	assert.Equal(t, "canai-api", cfg.Webhook.Source)
	assert.Empty(t, cfg.Webhooks)
	assert.NotNil(t, cfg.Webhooks)
	assert.Equal(t, DriverNone, cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
	assert.False(t, cfg.Telemetry.Insecure)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
integration:
  base_url: https://api.canai.so
  max_attempts: 5
webhooks:
  purchase: https://hooks.example.com/purchase
  error: https://hooks.example.com/error
store:
  driver: sqlite
  database_url: file:canai.db
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.canai.so", cfg.Integration.BaseURL)
	assert.Equal(t, 5, cfg.Integration.MaxAttempts)
	assert.Equal(t, "https://hooks.example.com/purchase", cfg.Webhooks["purchase"])
	assert.Equal(t, "https://hooks.example.com/error", cfg.Webhooks["error"])
	assert.NotContains(t, cfg.Webhooks, "session_start")
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 5000, cfg.Integration.TimeoutMs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("CANAI_STORE_DRIVER", "postgres")
	t.Setenv("CANAI_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("CANAI_SERVER_PORT", "3000")
	t.Setenv("CANAI_INTEGRATION_MAX_ATTEMPTS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Integration.MaxAttempts)
}

func TestLoadWebhookFromEnv(t *testing.T) {
	chdirTemp(t)

	t.Setenv("CANAI_WEBHOOKS_SESSION_START", "https://hooks.example.com/session")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example.com/session", cfg.Webhooks["session_start"])
	assert.Len(t, cfg.Webhooks, 1)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("CANAI_INTEGRATION_BASE_URL=https://dotenv.example.com\nCANAI_LOG_LEVEL=error\n"), 0644))
	t.Cleanup(func() {
		os.Unsetenv("CANAI_INTEGRATION_BASE_URL")
	})

	// Real environment wins over .env.
	t.Setenv("CANAI_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://dotenv.example.com", cfg.Integration.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [port"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Integration.TimeoutMs = 5000
	cfg.Integration.SparkSplitTimeoutMs = 500
	cfg.Integration.MaxAttempts = 3
	cfg.Integration.BackoffBaseMs = 1000
	cfg.Webhook.RatePerSec = 10
	cfg.Webhook.Burst = 20
	cfg.Store.Driver = DriverNone
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateServe_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateServe_WebhookRate(t *testing.T) {
	cfg := validDefaults()
	cfg.Webhook.RatePerSec = 0
	cfg.Webhook.Burst = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "webhook.rate_per_sec")
	assert.Contains(t, err.Error(), "webhook.burst")
}

func TestValidateIntegrationBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Integration.MaxAttempts = 0
	err := cfg.Validate("call")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_attempts must be between 1 and 10")

	cfg.Integration.MaxAttempts = 11
	assert.Error(t, cfg.Validate("call"))

	cfg.Integration.MaxAttempts = 1
	cfg.Integration.TimeoutMs = 0
	cfg.Integration.SparkSplitTimeoutMs = -1
	err = cfg.Validate("call")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "integration.timeout_ms")
	assert.Contains(t, err.Error(), "integration.spark_split_timeout_ms")

	cfg.Integration.TimeoutMs = 1
	cfg.Integration.SparkSplitTimeoutMs = 1
	assert.NoError(t, cfg.Validate("call"))

	cfg.Integration.BackoffBaseMs = 0
	err = cfg.Validate("call")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "integration.backoff_base_ms must be > 0")
}

func TestValidateStoreDrivers(t *testing.T) {
	tests := []struct {
		name    string
		store   StoreConfig
		wantErr string
	}{
		{"none", StoreConfig{Driver: DriverNone}, ""},
		{"empty driver", StoreConfig{}, ""},
		{"postgres ok", StoreConfig{Driver: DriverPostgres, DatabaseURL: "postgres://localhost/canai"}, ""},
		{"postgres missing url", StoreConfig{Driver: DriverPostgres}, "store.database_url is required"},
		{"sqlite missing url", StoreConfig{Driver: DriverSQLite}, "store.database_url is required"},
		{"supabase ok", StoreConfig{Driver: DriverSupabase, SupabaseURL: "https://x.supabase.co", SupabaseKey: "k"}, ""},
		{"supabase missing key", StoreConfig{Driver: DriverSupabase, SupabaseURL: "https://x.supabase.co"}, "store.supabase_key is required"},
		{"unknown", StoreConfig{Driver: "mysql"}, "store.driver must be one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			cfg.Store = tt.store
			err := cfg.Validate("serve")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateMigrate(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("migrate")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "migrate requires store.driver postgres or sqlite")

	cfg.Store = StoreConfig{Driver: DriverSQLite, DatabaseURL: "file:canai.db"}
	assert.NoError(t, cfg.Validate("migrate"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
