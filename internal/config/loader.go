package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies EVENTARB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known EVENTARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "EVENTARB_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "EVENTARB_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "EVENTARB_WALLET_KEY_PASSWORD")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "EVENTARB_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.GammaHost, "EVENTARB_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.WsHost, "EVENTARB_POLYMARKET_WS_HOST")
	setInt(&cfg.Polymarket.ChainID, "EVENTARB_POLYMARKET_CHAIN_ID")

	// ── Oracle ──
	setStr(&cfg.Oracle.BaseURL, "EVENTARB_ORACLE_BASE_URL")
	setStr(&cfg.Oracle.ApiKey, "EVENTARB_ORACLE_API_KEY")
	setStr(&cfg.Oracle.Model, "EVENTARB_ORACLE_MODEL")

	// ── Database ──
	setStr(&cfg.Database.DSN, "EVENTARB_DATABASE_DSN")
	if os.Getenv("EVENTARB_DATABASE_DSN") == "" {
		setStr(&cfg.Database.DSN, "EVENTARB_DATABASE_URL") // compatibility alias
	}
	setStr(&cfg.Database.Host, "EVENTARB_DATABASE_HOST")
	setInt(&cfg.Database.Port, "EVENTARB_DATABASE_PORT")
	setStr(&cfg.Database.Database, "EVENTARB_DATABASE_NAME")
	setStr(&cfg.Database.User, "EVENTARB_DATABASE_USER")
	setStr(&cfg.Database.Password, "EVENTARB_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "EVENTARB_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "EVENTARB_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "EVENTARB_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "EVENTARB_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "EVENTARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "EVENTARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "EVENTARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "EVENTARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "EVENTARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "EVENTARB_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "EVENTARB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "EVENTARB_S3_REGION")
	setStr(&cfg.S3.Bucket, "EVENTARB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "EVENTARB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "EVENTARB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "EVENTARB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "EVENTARB_S3_FORCE_PATH_STYLE")

	// ── Engine ──
	setDuration(&cfg.Engine.ScanInterval, "EVENTARB_ENGINE_SCAN_INTERVAL")
	setInt(&cfg.Engine.PageSize, "EVENTARB_ENGINE_PAGE_SIZE")
	setInt(&cfg.Engine.MaxEvents, "EVENTARB_ENGINE_MAX_EVENTS")
	setInt(&cfg.Engine.DiscoveryParallelism, "EVENTARB_ENGINE_DISCOVERY_PARALLELISM")
	setDuration(&cfg.Engine.CallTimeout, "EVENTARB_ENGINE_CALL_TIMEOUT")
	setFloat64(&cfg.Engine.OrderMinSize, "EVENTARB_ENGINE_ORDER_MIN_SIZE")
	setFloat64(&cfg.Engine.BaseProfitThreshold, "EVENTARB_ENGINE_BASE_PROFIT_THRESHOLD")
	setFloat64(&cfg.Engine.MinROIPercent, "EVENTARB_ENGINE_MIN_ROI_PERCENT")
	setFloat64(&cfg.Engine.MaxOrderCost, "EVENTARB_ENGINE_MAX_ORDER_COST")
	setFloat64(&cfg.Engine.BaseSpreadBudget, "EVENTARB_ENGINE_BASE_SPREAD_BUDGET")
	setDuration(&cfg.Engine.MemoTTL, "EVENTARB_ENGINE_MEMO_TTL")
	setInt(&cfg.Engine.MemoMaxSize, "EVENTARB_ENGINE_MEMO_MAX_SIZE")
	setStr(&cfg.Engine.ExecutedLedgerPath, "EVENTARB_ENGINE_EXECUTED_LEDGER_PATH")
	setStr(&cfg.Engine.VerdictLedgerPath, "EVENTARB_ENGINE_VERDICT_LEDGER_PATH")
	setDuration(&cfg.Engine.BalanceCacheTTL, "EVENTARB_ENGINE_BALANCE_CACHE_TTL")
	setDuration(&cfg.Engine.OrderbookCacheTTL, "EVENTARB_ENGINE_ORDERBOOK_CACHE_TTL")

	// ── Feed ──
	setDuration(&cfg.Feed.RefreshInterval, "EVENTARB_FEED_REFRESH_INTERVAL")
	setInt(&cfg.Feed.PageSize, "EVENTARB_FEED_PAGE_SIZE")
	setInt(&cfg.Feed.MaxEvents, "EVENTARB_FEED_MAX_EVENTS")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "EVENTARB_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "EVENTARB_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "EVENTARB_ARCHIVE_INTERVAL")

	// ── Notify ──
	setStr(&cfg.Notify.Title, "EVENTARB_NOTIFY_TITLE")
	setStr(&cfg.Notify.TelegramToken, "EVENTARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "EVENTARB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "EVENTARB_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Top-level ──
	setStr(&cfg.Mode, "EVENTARB_MODE")
	setStr(&cfg.LogLevel, "EVENTARB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
