// Package config defines the top-level configuration for the up/down trading
// bot and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by UPDOWN_* environment variables.
type Config struct {
	Wallet     WalletConfig     `toml:"wallet"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Trading    TradingConfig    `toml:"trading"`
	Retry      RetryConfig      `toml:"retry"`
	Feed       FeedConfig       `toml:"feed"`
	Ledger     LedgerConfig     `toml:"ledger"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Notify     NotifyConfig     `toml:"notify"`
	LogLevel   string           `toml:"log_level"`
}

// WalletConfig holds Ethereum wallet credentials.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	FunderAddress    string `toml:"funder_address"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// PolymarketConfig holds Polymarket API endpoints and chain parameters.
type PolymarketConfig struct {
	ClobHost      string `toml:"clob_host"`
	GammaHost     string `toml:"gamma_host"`
	DataHost      string `toml:"data_host"`
	WsHost        string `toml:"ws_host"`
	ChainID       int    `toml:"chain_id"`
	SignatureType int    `toml:"signature_type"`
}

// TradingConfig holds the per-window trading strategy parameters.
type TradingConfig struct {
	// OrderSize is the nominal share count per entry, before minimum-notional
	// normalization.
	OrderSize float64 `toml:"order_size"`
	// TargetPairCost is the maximum combined cost of one UP plus one DOWN
	// share at which a paired entry is still worth taking.
	TargetPairCost float64 `toml:"target_pair_cost"`
	// UpBuyThreshold / DownBuyThreshold are the minimum last-trade prices at
	// which a directional entry fires on the respective side.
	UpBuyThreshold   float64 `toml:"up_buy_threshold"`
	DownBuyThreshold float64 `toml:"down_buy_threshold"`
	// PriceCeiling is the price above which a side is considered already
	// decided and no longer worth entering.
	PriceCeiling float64 `toml:"price_ceiling"`
	// StoplossMargin is the drop from entry price (in price units) that
	// triggers a protective exit.
	StoplossMargin float64 `toml:"stoploss_margin"`
	// BalanceSlack is the extra collateral fraction required on top of the
	// projected cost before an order is placed.
	BalanceSlack float64 `toml:"balance_slack"`
	// SafetyMargin is subtracted from the displayed ask size before checking
	// whether the book can absorb the order.
	SafetyMargin float64 `toml:"safety_margin"`
	// PollInterval is the pause between scan iterations. Zero removes the
	// pause entirely; scanning then runs as fast as venue rate limits allow.
	PollInterval duration `toml:"poll_interval"`
	// StrategyOpenOffset delays entries until this long after window start.
	StrategyOpenOffset duration `toml:"strategy_open_offset"`
	// MaxTradesPerMarket caps entries per window; 0 means unlimited.
	MaxTradesPerMarket int `toml:"max_trades_per_market"`
	// MinTimeRemaining blocks new entries when less than this remains before
	// the entry window closes; 0 disables the guard.
	MinTimeRemaining duration `toml:"min_time_remaining"`
	// FallbackSlug pins the session to a specific market instead of deriving
	// the active window from the clock.
	FallbackSlug string `toml:"fallback_slug"`
	// ExecuteArbitrage submits paired UP+DOWN orders when a sub-dollar pair
	// is found; when false such pairs are only logged.
	ExecuteArbitrage bool `toml:"execute_arbitrage"`
	DryRun           bool `toml:"dry_run"`
	// SimStartingBalance is the paper-trading collateral used in dry-run mode.
	SimStartingBalance float64 `toml:"sim_starting_balance"`
}

// RetryConfig holds transient-failure retry parameters.
type RetryConfig struct {
	QuoteAttempts   int      `toml:"quote_attempts"`
	QuoteBackoff    duration `toml:"quote_backoff"`
	RotationBackoff duration `toml:"rotation_backoff"`
}

// FeedConfig holds quote feed parameters.
type FeedConfig struct {
	// UseWebsocket streams book updates over the CLOB websocket instead of
	// polling the REST endpoints.
	UseWebsocket bool `toml:"use_websocket"`
	// MaxQuoteAge is how stale a streamed snapshot may be before the feed
	// falls back to a REST fetch.
	MaxQuoteAge duration `toml:"max_quote_age"`
}

// LedgerConfig holds local trade-ledger file paths.
type LedgerConfig struct {
	CSVPath      string `toml:"csv_path"`
	ErrorLogPath string `toml:"error_log_path"`
}

// PostgresConfig holds PostgreSQL connection parameters for the optional
// window-result mirror.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the optional quote cache.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	QuoteTTL   duration `toml:"quote_ttl"`
}

// S3Config holds S3-compatible object storage parameters for the optional
// ledger archiver.
type S3Config struct {
	Enabled        bool     `toml:"enabled"`
	Endpoint       string   `toml:"endpoint"`
	Region         string   `toml:"region"`
	Bucket         string   `toml:"bucket"`
	Prefix         string   `toml:"prefix"`
	AccessKey      string   `toml:"access_key"`
	SecretKey      string   `toml:"secret_key"`
	UseSSL         bool     `toml:"use_ssl"`
	ForcePathStyle bool     `toml:"force_path_style"`
	UploadInterval duration `toml:"upload_interval"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			ClobHost:      "https://clob.polymarket.com",
			GammaHost:     "https://gamma-api.polymarket.com",
			DataHost:      "https://data-api.polymarket.com",
			WsHost:        "wss://ws-subscriptions-clob.polymarket.com",
			ChainID:       137,
			SignatureType: 2,
		},
		Trading: TradingConfig{
			OrderSize:          50.0,
			TargetPairCost:     0.99,
			UpBuyThreshold:     0.45,
			DownBuyThreshold:   0.45,
			PriceCeiling:       0.95,
			StoplossMargin:     0.10,
			BalanceSlack:       0.15,
			SafetyMargin:       5.0,
			PollInterval:       duration{1 * time.Second},
			StrategyOpenOffset: duration{0},
			MaxTradesPerMarket: 0,
			MinTimeRemaining:   duration{0},
			ExecuteArbitrage:   false,
			DryRun:             false,
			SimStartingBalance: 1000.0,
		},
		Retry: RetryConfig{
			QuoteAttempts:   3,
			QuoteBackoff:    duration{1 * time.Second},
			RotationBackoff: duration{30 * time.Second},
		},
		Feed: FeedConfig{
			UseWebsocket: false,
			MaxQuoteAge:  duration{5 * time.Second},
		},
		Ledger: LedgerConfig{
			CSVPath:      "result.csv",
			ErrorLogPath: "error.txt",
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
			QuoteTTL:   duration{30 * time.Second},
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "updownbot-data",
			Prefix:         "ledgers",
			UseSSL:         false,
			ForcePathStyle: true,
			UploadInterval: duration{5 * time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"position_opened", "stoploss", "market_closed", "order_error"},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet credentials are required unless the session runs dry.
	if !c.Trading.DryRun {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for live trading")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	// Polymarket endpoints
	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Polymarket.DataHost == "" {
		errs = append(errs, "polymarket: data_host must not be empty")
	}
	if c.Polymarket.ChainID <= 0 {
		errs = append(errs, "polymarket: chain_id must be positive")
	}
	if c.Polymarket.SignatureType != 1 && c.Polymarket.SignatureType != 2 {
		errs = append(errs, fmt.Sprintf("polymarket: signature_type must be 1 (EOA) or 2 (Safe), got %d", c.Polymarket.SignatureType))
	}

	// Trading
	if c.Trading.OrderSize <= 0 {
		errs = append(errs, "trading: order_size must be > 0")
	}
	if c.Trading.TargetPairCost <= 0 || c.Trading.TargetPairCost > 1 {
		errs = append(errs, fmt.Sprintf("trading: target_pair_cost must be in (0, 1], got %g", c.Trading.TargetPairCost))
	}
	if c.Trading.UpBuyThreshold <= 0 || c.Trading.UpBuyThreshold >= 1 {
		errs = append(errs, fmt.Sprintf("trading: up_buy_threshold must be in (0, 1), got %g", c.Trading.UpBuyThreshold))
	}
	if c.Trading.DownBuyThreshold <= 0 || c.Trading.DownBuyThreshold >= 1 {
		errs = append(errs, fmt.Sprintf("trading: down_buy_threshold must be in (0, 1), got %g", c.Trading.DownBuyThreshold))
	}
	if c.Trading.PriceCeiling <= 0 || c.Trading.PriceCeiling > 1 {
		errs = append(errs, fmt.Sprintf("trading: price_ceiling must be in (0, 1], got %g", c.Trading.PriceCeiling))
	}
	if c.Trading.UpBuyThreshold >= c.Trading.PriceCeiling {
		errs = append(errs, "trading: up_buy_threshold must be below price_ceiling")
	}
	if c.Trading.DownBuyThreshold >= c.Trading.PriceCeiling {
		errs = append(errs, "trading: down_buy_threshold must be below price_ceiling")
	}
	if c.Trading.StoplossMargin < 0 {
		errs = append(errs, "trading: stoploss_margin must be >= 0")
	}
	if c.Trading.BalanceSlack < 0 {
		errs = append(errs, "trading: balance_slack must be >= 0")
	}
	if c.Trading.SafetyMargin < 0 {
		errs = append(errs, "trading: safety_margin must be >= 0")
	}
	if c.Trading.PollInterval.Duration < 0 {
		errs = append(errs, "trading: poll_interval must be >= 0")
	}
	if c.Trading.StrategyOpenOffset.Duration < 0 {
		errs = append(errs, "trading: strategy_open_offset must be >= 0")
	}
	if c.Trading.MaxTradesPerMarket < 0 {
		errs = append(errs, "trading: max_trades_per_market must be >= 0")
	}
	if c.Trading.MinTimeRemaining.Duration < 0 {
		errs = append(errs, "trading: min_time_remaining must be >= 0")
	}

	// Retry
	if c.Retry.QuoteAttempts < 1 {
		errs = append(errs, "retry: quote_attempts must be >= 1")
	}
	if c.Retry.QuoteBackoff.Duration < 0 {
		errs = append(errs, "retry: quote_backoff must be >= 0")
	}
	if c.Retry.RotationBackoff.Duration < 0 {
		errs = append(errs, "retry: rotation_backoff must be >= 0")
	}

	// Feed
	if c.Feed.UseWebsocket {
		if c.Polymarket.WsHost == "" {
			errs = append(errs, "feed: polymarket.ws_host must be set when use_websocket is enabled")
		}
		if c.Feed.MaxQuoteAge.Duration <= 0 {
			errs = append(errs, "feed: max_quote_age must be > 0 when use_websocket is enabled")
		}
	}

	// Ledger
	if c.Ledger.CSVPath == "" {
		errs = append(errs, "ledger: csv_path must not be empty")
	}
	if c.Ledger.ErrorLogPath == "" {
		errs = append(errs, "ledger: error_log_path must not be empty")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
