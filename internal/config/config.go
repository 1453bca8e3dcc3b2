package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Auth       AuthConfig       `yaml:"auth" mapstructure:"auth"`
	Projection ProjectionConfig `yaml:"projection" mapstructure:"projection"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	Issuer    string `yaml:"issuer" mapstructure:"issuer"`
}

// ProjectionConfig tunes the revenue projection engine.
type ProjectionConfig struct {
	CacheTTL            time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	LookbackDays        int           `yaml:"lookback_days" mapstructure:"lookback_days"`
	MinBenchmarkSamples int           `yaml:"min_benchmark_samples" mapstructure:"min_benchmark_samples"`
	HistoryDepth        int           `yaml:"history_depth" mapstructure:"history_depth"`
	FactBatchSize       int           `yaml:"fact_batch_size" mapstructure:"fact_batch_size"`
	FetchConcurrency    int           `yaml:"fetch_concurrency" mapstructure:"fetch_concurrency"`
}

// MonitoringConfig configures the deal-metric freshness checker.
type MonitoringConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	CheckInterval   time.Duration `yaml:"check_interval" mapstructure:"check_interval"`
	StaleAfter      time.Duration `yaml:"stale_after" mapstructure:"stale_after"`
	MinFactCoverage float64       `yaml:"min_fact_coverage" mapstructure:"min_fact_coverage"`
	MinSamples      int           `yaml:"min_samples" mapstructure:"min_samples"`
	WebhookURL      string        `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DEALBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 20.0)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("projection.cache_ttl", "60s")
	v.SetDefault("projection.lookback_days", 360)
	v.SetDefault("projection.min_benchmark_samples", 5)
	v.SetDefault("projection.history_depth", 3)
	v.SetDefault("projection.fact_batch_size", 1000)
	v.SetDefault("projection.fetch_concurrency", 4)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval", "5m")
	v.SetDefault("monitoring.stale_after", "48h")
	v.SetDefault("monitoring.min_fact_coverage", 0.8)
	v.SetDefault("monitoring.min_samples", 5)
	v.SetDefault("monitoring.webhook_url", "")

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

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. All problems are
// reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RateLimitRPS <= 0 {
			errs = append(errs, "server.rate_limit_rps must be > 0")
		}
		if c.Auth.JWTSecret == "" {
			errs = append(errs, "auth.jwt_secret is required")
		}
		errs = append(errs, c.validateStore()...)
		if c.Monitoring.Enabled {
			errs = append(errs, c.validateMonitoring()...)
		}
	case "monitor":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateMonitoring()...)
	case "project", "migrate", "import":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	p := c.Projection
	if p.LookbackDays < 1 {
		errs = append(errs, "projection.lookback_days must be >= 1")
	}
	if p.MinBenchmarkSamples < 1 {
		errs = append(errs, "projection.min_benchmark_samples must be >= 1")
	}
	if p.HistoryDepth < 1 {
		errs = append(errs, "projection.history_depth must be >= 1")
	}
	if p.FactBatchSize < 1 || p.FactBatchSize > 10000 {
		errs = append(errs, "projection.fact_batch_size must be between 1 and 10000")
	}
	if p.FetchConcurrency < 1 || p.FetchConcurrency > 32 {
		errs = append(errs, "projection.fetch_concurrency must be between 1 and 32")
	}
	if p.CacheTTL <= 0 {
		errs = append(errs, "projection.cache_ttl must be > 0")
	}

	if len(errs) > 0 {
		return eris.New(fmt.Sprintf("config: invalid for %s: %s", mode, strings.Join(errs, "; ")))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "sqlite":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required (sqlite file path)")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be postgres or sqlite", c.Store.Driver))
	}
	return errs
}

func (c *Config) validateMonitoring() []string {
	var errs []string
	m := c.Monitoring
	if m.CheckInterval <= 0 {
		errs = append(errs, "monitoring.check_interval must be > 0")
	}
	if m.StaleAfter <= 0 {
		errs = append(errs, "monitoring.stale_after must be > 0")
	}
	if m.MinFactCoverage < 0 || m.MinFactCoverage > 1 {
		errs = append(errs, "monitoring.min_fact_coverage must be between 0 and 1")
	}
	return errs
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
