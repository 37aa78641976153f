package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies UPDOWN_* environment variable overrides, and
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

// applyEnvOverrides reads well-known UPDOWN_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "UPDOWN_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.FunderAddress, "UPDOWN_WALLET_FUNDER_ADDRESS")
	setStr(&cfg.Wallet.EncryptedKeyPath, "UPDOWN_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "UPDOWN_WALLET_KEY_PASSWORD")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "UPDOWN_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.GammaHost, "UPDOWN_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.DataHost, "UPDOWN_POLYMARKET_DATA_HOST")
	setStr(&cfg.Polymarket.WsHost, "UPDOWN_POLYMARKET_WS_HOST")
	setInt(&cfg.Polymarket.ChainID, "UPDOWN_POLYMARKET_CHAIN_ID")
	setInt(&cfg.Polymarket.SignatureType, "UPDOWN_POLYMARKET_SIGNATURE_TYPE")

	// ── Trading ──
	setFloat64(&cfg.Trading.OrderSize, "UPDOWN_TRADING_ORDER_SIZE")
	setFloat64(&cfg.Trading.TargetPairCost, "UPDOWN_TRADING_TARGET_PAIR_COST")
	setFloat64(&cfg.Trading.UpBuyThreshold, "UPDOWN_TRADING_UP_BUY_THRESHOLD")
	setFloat64(&cfg.Trading.DownBuyThreshold, "UPDOWN_TRADING_DOWN_BUY_THRESHOLD")
	setFloat64(&cfg.Trading.PriceCeiling, "UPDOWN_TRADING_PRICE_CEILING")
	setFloat64(&cfg.Trading.StoplossMargin, "UPDOWN_TRADING_STOPLOSS_MARGIN")
	setFloat64(&cfg.Trading.BalanceSlack, "UPDOWN_TRADING_BALANCE_SLACK")
	setFloat64(&cfg.Trading.SafetyMargin, "UPDOWN_TRADING_SAFETY_MARGIN")
	setDuration(&cfg.Trading.PollInterval, "UPDOWN_TRADING_POLL_INTERVAL")
	setDuration(&cfg.Trading.StrategyOpenOffset, "UPDOWN_TRADING_STRATEGY_OPEN_OFFSET")
	setInt(&cfg.Trading.MaxTradesPerMarket, "UPDOWN_TRADING_MAX_TRADES_PER_MARKET")
	setDuration(&cfg.Trading.MinTimeRemaining, "UPDOWN_TRADING_MIN_TIME_REMAINING")
	setStr(&cfg.Trading.FallbackSlug, "UPDOWN_TRADING_FALLBACK_SLUG")
	setBool(&cfg.Trading.ExecuteArbitrage, "UPDOWN_TRADING_EXECUTE_ARBITRAGE")
	setBool(&cfg.Trading.DryRun, "UPDOWN_TRADING_DRY_RUN")
	setFloat64(&cfg.Trading.SimStartingBalance, "UPDOWN_TRADING_SIM_STARTING_BALANCE")

	// ── Retry ──
	setInt(&cfg.Retry.QuoteAttempts, "UPDOWN_RETRY_QUOTE_ATTEMPTS")
	setDuration(&cfg.Retry.QuoteBackoff, "UPDOWN_RETRY_QUOTE_BACKOFF")
	setDuration(&cfg.Retry.RotationBackoff, "UPDOWN_RETRY_ROTATION_BACKOFF")

	// ── Feed ──
	setBool(&cfg.Feed.UseWebsocket, "UPDOWN_FEED_USE_WEBSOCKET")
	setDuration(&cfg.Feed.MaxQuoteAge, "UPDOWN_FEED_MAX_QUOTE_AGE")

	// ── Ledger ──
	setStr(&cfg.Ledger.CSVPath, "UPDOWN_LEDGER_CSV_PATH")
	setStr(&cfg.Ledger.ErrorLogPath, "UPDOWN_LEDGER_ERROR_LOG_PATH")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "UPDOWN_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "UPDOWN_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "UPDOWN_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "UPDOWN_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "UPDOWN_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "UPDOWN_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "UPDOWN_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "UPDOWN_POSTGRES_SSLMODE")
	setStr(&cfg.Postgres.SSLMode, "UPDOWN_POSTGRES_SSL_MODE") // compatibility alias
	setInt(&cfg.Postgres.PoolMaxConns, "UPDOWN_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "UPDOWN_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "UPDOWN_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "UPDOWN_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "UPDOWN_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "UPDOWN_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "UPDOWN_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "UPDOWN_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "UPDOWN_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "UPDOWN_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.QuoteTTL, "UPDOWN_REDIS_QUOTE_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "UPDOWN_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "UPDOWN_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "UPDOWN_S3_REGION")
	setStr(&cfg.S3.Bucket, "UPDOWN_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "UPDOWN_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "UPDOWN_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "UPDOWN_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "UPDOWN_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "UPDOWN_S3_FORCE_PATH_STYLE")
	setDuration(&cfg.S3.UploadInterval, "UPDOWN_S3_UPLOAD_INTERVAL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "UPDOWN_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "UPDOWN_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "UPDOWN_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "UPDOWN_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "UPDOWN_LOG_LEVEL")
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

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
