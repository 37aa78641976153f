package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/kaiwenyuan/updownbot/internal/blob/s3"
	"github.com/kaiwenyuan/updownbot/internal/cache/redis"
	"github.com/kaiwenyuan/updownbot/internal/config"
	"github.com/kaiwenyuan/updownbot/internal/crypto"
	"github.com/kaiwenyuan/updownbot/internal/domain"
	"github.com/kaiwenyuan/updownbot/internal/executor"
	"github.com/kaiwenyuan/updownbot/internal/feed"
	"github.com/kaiwenyuan/updownbot/internal/ledger"
	"github.com/kaiwenyuan/updownbot/internal/notify"
	"github.com/kaiwenyuan/updownbot/internal/platform/polymarket"
	"github.com/kaiwenyuan/updownbot/internal/session"
	"github.com/kaiwenyuan/updownbot/internal/store/postgres"
	"github.com/kaiwenyuan/updownbot/internal/strategy"
)

// Dependencies bundles the session and the background workers the app runs
// alongside it. Constructed by Wire; torn down by the returned cleanup
// function.
type Dependencies struct {
	Session     *session.Session
	QuoteStream *feed.QuoteStream // nil when polling REST directly
	Archiver    *s3blob.Archiver  // nil unless S3 archiving is enabled
}

// Wire constructs all concrete dependencies for trading one symbol and
// returns them with a cleanup function to be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, symbol string, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{}

	// --- Signer and venue clients ---
	var signer *crypto.Signer
	if !cfg.Trading.DryRun {
		keyHex, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: load wallet key: %w", err))
		}
		signer, err = crypto.NewSigner(keyHex, cfg.Polymarket.ChainID)
		if err != nil {
			return fail(fmt.Errorf("wire: signer: %w", err))
		}
	}

	clob := polymarket.NewClobClient(
		cfg.Polymarket.ClobHost, signer,
		cfg.Wallet.FunderAddress, cfg.Polymarket.SignatureType,
	)
	if signer != nil {
		if err := clob.DeriveAPIKey(ctx); err != nil {
			return fail(fmt.Errorf("wire: derive api key: %w", err))
		}
	}
	gamma := polymarket.NewGammaClient(cfg.Polymarket.GammaHost)

	// --- Execution backend ---
	var backend domain.ExecutionBackend
	if cfg.Trading.DryRun {
		backend = executor.NewSimulated(logger, cfg.Trading.SimStartingBalance)
		logger.Info("dry run: orders are simulated",
			"starting_balance", cfg.Trading.SimStartingBalance)
	} else {
		positionsUser := cfg.Wallet.FunderAddress
		if positionsUser == "" {
			positionsUser = signer.Address().Hex()
		}
		data := polymarket.NewDataClient(cfg.Polymarket.DataHost, positionsUser)
		backend = executor.NewLive(logger, clob, data)
	}

	// --- Quote source ---
	var quotes domain.QuoteSource = clob
	if cfg.Feed.UseWebsocket {
		stream := feed.NewQuoteStream(
			logger,
			polymarket.NewWSClient(cfg.Polymarket.WsHost),
			clob,
			cfg.Feed.MaxQuoteAge.Duration,
		)
		if err := stream.Start(ctx); err != nil {
			return fail(fmt.Errorf("wire: quote stream: %w", err))
		}
		closers = append(closers, func() { _ = stream.Close() })
		deps.QuoteStream = stream
		quotes = stream
	}

	// --- Record sinks ---
	sinks := []domain.RecordSink{ledger.NewCSVLedger(cfg.Ledger.CSVPath)}
	errLog := ledger.NewErrorLog(cfg.Ledger.ErrorLogPath)

	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}

		results := postgres.NewResultStore(pgClient.Pool())
		sinks = append(sinks, results)

		if total, err := results.TotalPnL(ctx); err == nil {
			logger.Info("window results mirrored to postgres", "lifetime_pnl", total)
		}
	}

	// --- Quote publisher ---
	var publisher domain.QuotePublisher
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		publisher = redis.NewQuoteCache(redisClient, cfg.Redis.QuoteTTL.Duration)
	}

	// --- Ledger archiver ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(
			logger,
			s3blob.NewWriter(s3Client),
			cfg.Ledger.CSVPath,
			cfg.S3.Prefix,
			cfg.S3.UploadInterval.Duration,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	notifier := notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Session ---
	deps.Session = session.New(logger, session.Config{
		Symbol:             symbol,
		FallbackSlug:       cfg.Trading.FallbackSlug,
		PollInterval:       cfg.Trading.PollInterval.Duration,
		StrategyOpenOffset: cfg.Trading.StrategyOpenOffset.Duration,
		StoplossMargin:     cfg.Trading.StoplossMargin,
		BalanceSlack:       cfg.Trading.BalanceSlack,
		MaxTradesPerMarket: cfg.Trading.MaxTradesPerMarket,
		MinTimeRemaining:   cfg.Trading.MinTimeRemaining.Duration,
		RotationBackoff:    cfg.Retry.RotationBackoff.Duration,
		ExecuteArbitrage:   cfg.Trading.ExecuteArbitrage,
		QuoteRetry: session.RetryPolicy{
			Attempts: cfg.Retry.QuoteAttempts,
			Backoff:  cfg.Retry.QuoteBackoff.Duration,
		},
	}, session.Deps{
		Quotes:   quotes,
		Backend:  backend,
		Resolver: gamma,
		Evaluator: &strategy.Evaluator{
			TargetPairCost:   cfg.Trading.TargetPairCost,
			UpBuyThreshold:   cfg.Trading.UpBuyThreshold,
			DownBuyThreshold: cfg.Trading.DownBuyThreshold,
			PriceCeiling:     cfg.Trading.PriceCeiling,
			SafetyMargin:     cfg.Trading.SafetyMargin,
			OrderSize:        cfg.Trading.OrderSize,
		},
		Sinks:     sinks,
		ErrorLog:  errLog,
		Notifier:  notifier,
		Publisher: publisher,
	})

	return deps, cleanup, nil
}
