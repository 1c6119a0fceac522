package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Integration IntegrationConfig `yaml:"integration" mapstructure:"integration"`
	Webhooks    map[string]string `yaml:"webhooks" mapstructure:"webhooks"`
	Webhook     WebhookConfig     `yaml:"webhook" mapstructure:"webhook"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" mapstructure:"telemetry"`
}

// IntegrationConfig configures the outbound AI integration endpoints.
type IntegrationConfig struct {
	BaseURL             string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutMs           int    `yaml:"timeout_ms" mapstructure:"timeout_ms"`
	SparkSplitTimeoutMs int    `yaml:"spark_split_timeout_ms" mapstructure:"spark_split_timeout_ms"`
	MaxAttempts         int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	BackoffBaseMs       int    `yaml:"backoff_base_ms" mapstructure:"backoff_base_ms"`
}

// Timeout returns the default per-attempt timeout.
func (c IntegrationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// SparkSplitTimeout returns the per-attempt timeout for spark-split calls.
func (c IntegrationConfig) SparkSplitTimeout() time.Duration {
	return time.Duration(c.SparkSplitTimeoutMs) * time.Millisecond
}

// BackoffBase returns the first retry delay.
func (c IntegrationConfig) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseMs) * time.Millisecond
}

// WebhookConfig configures outbound webhook delivery.
type WebhookConfig struct {
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst      int     `yaml:"burst" mapstructure:"burst"`
	Source     string  `yaml:"source" mapstructure:"source"`
}

// StoreConfig configures the log record backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SupabaseURL string `yaml:"supabase_url" mapstructure:"supabase_url"`
	SupabaseKey string `yaml:"supabase_key" mapstructure:"supabase_key"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TelemetryConfig configures trace export. An empty endpoint disables it.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" mapstructure:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure" mapstructure:"insecure"`
}

// WebhookEventTypes lists the event keys accepted under "webhooks". Each can
// be set from the environment, e.g. CANAI_WEBHOOKS_SESSION_START.
var WebhookEventTypes = []string{
	"session_start",
	"funnel_step",
	"validation",
	"spark_generated",
	"spark_split",
	"purchase",
	"feedback",
	"error",
}

// Store drivers.
const (
	DriverNone     = "none"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverSupabase = "supabase"
)

// LoadDotEnv loads .env from the working directory if present. Variables
// already set in the process environment win.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return eris.Wrap(err, "config: load .env")
	}
	return nil
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CANAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, event := range WebhookEventTypes {
		if err := v.BindEnv("webhooks." + event); err != nil {
			return nil, eris.Wrapf(err, "config: bind webhook %s", event)
		}
	}

	// Defaults
	v.SetDefault("integration.base_url", "")
	v.SetDefault("integration.timeout_ms", 5000)
	v.SetDefault("integration.spark_split_timeout_ms", 500)
	v.SetDefault("integration.max_attempts", 3)
	v.SetDefault("integration.backoff_base_ms", 1000)
	v.SetDefault("webhook.rate_per_sec", 10)
	v.SetDefault("webhook.burst", 20)
	v.SetDefault("webhook.source", "canai-api")
	v.SetDefault("store.driver", DriverNone)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.insecure", false)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if cfg.Webhooks == nil {
		cfg.Webhooks = map[string]string{}
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes are
// "serve", "call" and "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Integration.TimeoutMs <= 0 {
		errs = append(errs, "integration.timeout_ms must be > 0")
	}
	if c.Integration.SparkSplitTimeoutMs <= 0 {
		errs = append(errs, "integration.spark_split_timeout_ms must be > 0")
	}
	if c.Integration.MaxAttempts < 1 || c.Integration.MaxAttempts > 10 {
		errs = append(errs, "integration.max_attempts must be between 1 and 10")
	}
	if c.Integration.BackoffBaseMs <= 0 {
		errs = append(errs, "integration.backoff_base_ms must be > 0")
	}

	switch c.Store.Driver {
	case DriverNone, "":
	case DriverPostgres, DriverSQLite:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for driver "+c.Store.Driver)
		}
	case DriverSupabase:
		if c.Store.SupabaseURL == "" {
			errs = append(errs, "store.supabase_url is required")
		}
		if c.Store.SupabaseKey == "" {
			errs = append(errs, "store.supabase_key is required")
		}
	default:
		errs = append(errs, "store.driver must be one of none, postgres, sqlite, supabase")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Webhook.RatePerSec <= 0 {
			errs = append(errs, "webhook.rate_per_sec must be > 0")
		}
		if c.Webhook.Burst < 1 {
			errs = append(errs, "webhook.burst must be >= 1")
		}
	case "call":
	case "migrate":
		if c.Store.Driver != DriverPostgres && c.Store.Driver != DriverSQLite {
			errs = append(errs, "migrate requires store.driver postgres or sqlite")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
