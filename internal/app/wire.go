package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	s3blob "github.com/alanyoungcy/eventarb/internal/blob/s3"
	"github.com/alanyoungcy/eventarb/internal/cache/redis"
	"github.com/alanyoungcy/eventarb/internal/config"
	"github.com/alanyoungcy/eventarb/internal/crypto"
	"github.com/alanyoungcy/eventarb/internal/domain"
	"github.com/alanyoungcy/eventarb/internal/ledger"
	"github.com/alanyoungcy/eventarb/internal/notify"
	"github.com/alanyoungcy/eventarb/internal/oracle"
	"github.com/alanyoungcy/eventarb/internal/platform/polymarket"
	"github.com/alanyoungcy/eventarb/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	ExecutionStore   domain.ExecutionStore
	OpportunityStore domain.OpportunityStore

	// Caches
	BookCache    domain.OrderbookCache
	BalanceCache domain.BalanceCache

	// Blob storage
	BlobWriter domain.BlobWriter
	Archiver   *s3blob.Archiver

	// Ledgers
	Executed *ledger.SetLedger
	Verdicts *ledger.KVLedger

	// Platform clients
	Gamma *polymarket.GammaClient
	Clob  *polymarket.ClobClient

	// Services
	Oracle   *oracle.Service
	Notifier *notify.Notifier
}

// needsPostgres returns true for modes that require a database connection.
func needsPostgres(mode string) bool {
	switch mode {
	case "scan", "monitor":
		return true
	default:
		return false
	}
}

// needsWallet returns true for modes that place real orders.
func needsWallet(mode string) bool {
	return mode == "scan"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (only for modes that need persistence) ---
	if needsPostgres(mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.PoolMaxConns,
			MinConns: cfg.Database.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Database.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.ExecutionStore = postgres.NewExecutionStore(pool)
		deps.OpportunityStore = postgres.NewOpportunityStore(pool)
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.BookCache = redis.NewOrderbookCache(redisClient, cfg.Engine.OrderbookCacheTTL.Duration)
	deps.BalanceCache = redis.NewBalanceCache(redisClient, cfg.Engine.BalanceCacheTTL.Duration)

	// --- S3 blob storage (only when archival is enabled) ---
	if cfg.Archive.Enabled && needsPostgres(mode) {
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
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewArchiver(
			deps.BlobWriter,
			deps.ExecutionStore,
			deps.OpportunityStore,
			time.Duration(cfg.Archive.RetentionDays)*24*time.Hour,
			logger,
		)
	}

	// --- Ledgers ---
	if needsPostgres(mode) {
		executed, err := openSetLedger(cfg.Engine.ExecutedLedgerPath)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: executed ledger: %w", err)
		}
		closers = append(closers, func() { _ = executed.Close() })
		deps.Executed = executed

		verdicts, err := openKVLedger(cfg.Engine.VerdictLedgerPath)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: verdict ledger: %w", err)
		}
		closers = append(closers, func() { _ = verdicts.Close() })
		deps.Verdicts = verdicts
	}

	// --- Platform clients ---
	deps.Gamma = polymarket.NewGammaClient(cfg.Polymarket.GammaHost, logger)

	var signer *crypto.Signer
	if cfg.Wallet.PrivateKey != "" || cfg.Wallet.EncryptedKeyPath != "" {
		key, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: load wallet key: %w", err)
		}
		signer, err = crypto.NewSigner(key, cfg.Polymarket.ChainID)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: signer: %w", err)
		}
	} else if needsWallet(mode) {
		cleanup()
		return nil, nil, fmt.Errorf("wire: mode %q requires a wallet key", mode)
	}

	deps.Clob = polymarket.NewClobClient(cfg.Polymarket.ClobHost, signer, nil)
	if signer != nil {
		if err := deps.Clob.DeriveAPIKey(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: derive api key: %w", err)
		}
	}

	// --- Oracle ---
	if deps.Verdicts != nil {
		var classifier oracle.Classifier
		if cfg.Oracle.ApiKey != "" {
			classifier = oracle.NewHTTPClassifier(cfg.Oracle.BaseURL, cfg.Oracle.ApiKey, cfg.Oracle.Model)
		}
		deps.Oracle = oracle.NewService(classifier, deps.Verdicts, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(cfg.Notify.Title, senders, logger)

	return deps, cleanup, nil
}

// openSetLedger creates the parent directory before opening the ledger so a
// fresh deployment works without manual setup.
func openSetLedger(path string) (*ledger.SetLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return ledger.OpenSet(path)
}

func openKVLedger(path string) (*ledger.KVLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return ledger.OpenKV(path)
}
