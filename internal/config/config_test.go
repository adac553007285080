package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateRequiresEnabledVenue(t *testing.T) {
	cfg := Defaults()
	for i := range cfg.Venues {
		cfg.Venues[i].Enabled = false
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one venue")
}

func TestValidateRequiresCredentialsForLiveVenue(t *testing.T) {
	cfg := Defaults()
	cfg.Venues = append(cfg.Venues, VenueConfig{Name: "binance", Enabled: true})
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key and api_secret")
}

func TestValidatePositionSizeBounds(t *testing.T) {
	cfg := Defaults()
	cfg.Execution.MaxPositionSizePercent = 150
	require.Error(t, cfg.Validate())

	cfg.Execution.MaxPositionSizePercent = 0
	require.Error(t, cfg.Validate())

	cfg.Execution.MaxPositionSizePercent = 100
	require.NoError(t, cfg.Validate())
}

func TestValidateArchiveNeedsPostgres(t *testing.T) {
	cfg := Defaults()
	cfg.Archive.Enabled = true
	cfg.Postgres.Enabled = false
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires postgres")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "trade"
log_level = "debug"

[[venues]]
name = "paper"
enabled = true
symbols = ["BTCUSDT"]
initial_balance = 25000.0

[execution]
dry_run = true
max_position_size_percent = 2.5

[sync]
interval = "45s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "trade", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Execution.DryRun)
	assert.Equal(t, 2.5, cfg.Execution.MaxPositionSizePercent)
	assert.Equal(t, 45*time.Second, cfg.Sync.Interval.Duration)
	// Defaults survive for fields the file does not set.
	assert.Equal(t, 10, cfg.Execution.MaxOpenPositions)

	require.Len(t, cfg.Venues, 1)
	assert.Equal(t, 25000.0, cfg.Venues[0].InitialBalance)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "full"

[[venues]]
name = "binance"
enabled = true
api_key = "from-file"
api_secret = "from-file"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("TRADEDESK_MODE", "sync")
	t.Setenv("TRADEDESK_VENUE_BINANCE_API_KEY", "from-env")
	t.Setenv("TRADEDESK_EXECUTION_MAX_OPEN_POSITIONS", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sync", cfg.Mode)
	assert.Equal(t, "from-env", cfg.Venues[0].APIKey)
	assert.Equal(t, "from-file", cfg.Venues[0].APISecret)
	assert.Equal(t, 3, cfg.Execution.MaxOpenPositions)
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Venues[0].APIKey = "key"
	cfg.Venues[0].APISecret = "secret"
	cfg.Postgres.Password = "pgpass"
	cfg.Notify.WebhookURL = "https://hooks.example.com/x"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Venues[0].APIKey)
	assert.Equal(t, "***", red.Venues[0].APISecret)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Notify.WebhookURL)

	// Original untouched.
	assert.Equal(t, "key", cfg.Venues[0].APIKey)
	assert.Equal(t, "pgpass", cfg.Postgres.Password)
}
