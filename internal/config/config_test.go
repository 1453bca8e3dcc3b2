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

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 20.0, cfg.Server.RateLimitRPS, 0.001)
	assert.Equal(t, 40, cfg.Server.RateLimitBurst)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 60*time.Second, cfg.Projection.CacheTTL)
	assert.Equal(t, 360, cfg.Projection.LookbackDays)
	assert.Equal(t, 5, cfg.Projection.MinBenchmarkSamples)
	assert.Equal(t, 3, cfg.Projection.HistoryDepth)
	assert.Equal(t, 1000, cfg.Projection.FactBatchSize)
	assert.Equal(t, 4, cfg.Projection.FetchConcurrency)
	assert.False(t, cfg.Monitoring.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Monitoring.CheckInterval)
	assert.Equal(t, 48*time.Hour, cfg.Monitoring.StaleAfter)
	assert.InDelta(t, 0.8, cfg.Monitoring.MinFactCoverage, 0.001)
	assert.Equal(t, 5, cfg.Monitoring.MinSamples)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
  database_url: dealbook.db
log:
  level: debug
  format: console
server:
  port: 9090
projection:
  cache_ttl: 5m
  history_depth: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "dealbook.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Projection.CacheTTL)
	assert.Equal(t, 5, cfg.Projection.HistoryDepth)
	// Defaults still apply for unset values
	assert.Equal(t, 360, cfg.Projection.LookbackDays)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("DEALBOOK_STORE_DRIVER", "postgres")
	t.Setenv("DEALBOOK_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("DEALBOOK_SERVER_PORT", "3000")
	t.Setenv("DEALBOOK_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("DEALBOOK_PROJECTION_CACHE_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 90*time.Second, cfg.Projection.CacheTTL)
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
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://localhost/dealbook"
	cfg.Server.Port = 8080
	cfg.Server.RateLimitRPS = 20
	cfg.Auth.JWTSecret = "secret"
	cfg.Projection.CacheTTL = time.Minute
	cfg.Projection.LookbackDays = 360
	cfg.Projection.MinBenchmarkSamples = 5
	cfg.Projection.HistoryDepth = 3
	cfg.Projection.FactBatchSize = 1000
	cfg.Projection.FetchConcurrency = 4
	cfg.Monitoring.CheckInterval = 5 * time.Minute
	cfg.Monitoring.StaleAfter = 48 * time.Hour
	cfg.Monitoring.MinFactCoverage = 0.8
	return cfg
}

func TestValidateServe_Valid(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidateServe_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0
	cfg.Auth.JWTSecret = ""
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
	assert.Contains(t, err.Error(), "auth.jwt_secret is required")
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateProject_NoSecretNeeded(t *testing.T) {
	cfg := validDefaults()
	cfg.Auth.JWTSecret = ""
	cfg.Server.Port = 0

	assert.NoError(t, cfg.Validate("project"))
}

func TestValidateUnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("migrate")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must be postgres or sqlite")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateProjectionBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Projection.FactBatchSize = 0
	err := cfg.Validate("project")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "fact_batch_size must be between 1 and 10000")

	cfg.Projection.FactBatchSize = 1000
	cfg.Projection.FetchConcurrency = 33
	err = cfg.Validate("project")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "fetch_concurrency")

	cfg.Projection.FetchConcurrency = 4
	cfg.Projection.CacheTTL = 0
	err = cfg.Validate("project")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cache_ttl")

	cfg.Projection.CacheTTL = time.Minute
	assert.NoError(t, cfg.Validate("project"))
}

func TestValidateServe_MonitoringOnlyWhenEnabled(t *testing.T) {
	cfg := validDefaults()
	cfg.Monitoring.CheckInterval = 0
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Monitoring.Enabled = true
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring.check_interval must be > 0")
}

func TestValidateMonitor_CoverageBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Monitoring.MinFactCoverage = 1.5

	err := cfg.Validate("monitor")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "min_fact_coverage must be between 0 and 1")
}
