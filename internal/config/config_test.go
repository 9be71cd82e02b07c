package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidateWithWallet(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "0xabc"
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsMissingWalletInScanMode(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet")
}

func TestValidateMonitorModeNeedsNoWallet(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "monitor"
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.LogLevel = "loud"
	cfg.Redis.Addr = ""
	cfg.Engine.OrderMinSize = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "unknown log_level")
	assert.Contains(t, err.Error(), "redis: addr")
	assert.Contains(t, err.Error(), "order_min_size")
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "monitor"

[engine]
scan_interval = "90s"
max_order_cost = 25.0

[notify]
telegram_chat_id = "12345"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("EVENTARB_ENGINE_MAX_ORDER_COST", "50")
	t.Setenv("EVENTARB_REDIS_ADDR", "redis.internal:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, 90*time.Second, cfg.Engine.ScanInterval.Duration)
	assert.Equal(t, "12345", cfg.Notify.TelegramChatID)
	// Env wins over the file.
	assert.Equal(t, 50.0, cfg.Engine.MaxOrderCost)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	// Untouched fields keep their defaults.
	assert.Equal(t, "https://clob.polymarket.com", cfg.Polymarket.ClobHost)
}

func TestDatabaseDSNAliasYieldsToPrimary(t *testing.T) {
	cfg := Defaults()

	t.Setenv("EVENTARB_DATABASE_URL", "postgres://alias")
	applyEnvOverrides(&cfg)
	assert.Equal(t, "postgres://alias", cfg.Database.DSN)

	t.Setenv("EVENTARB_DATABASE_DSN", "postgres://primary")
	applyEnvOverrides(&cfg)
	assert.Equal(t, "postgres://primary", cfg.Database.DSN)
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "0xdeadbeef"
	cfg.Database.Password = "hunter2"
	cfg.Notify.TelegramToken = "tok"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Wallet.PrivateKey)
	assert.Equal(t, "***", red.Database.Password)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	// Empty secrets stay empty and the original is untouched.
	assert.Empty(t, red.S3.SecretKey)
	assert.Equal(t, "hunter2", cfg.Database.Password)
}
