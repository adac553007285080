package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/tradedesk/internal/accounting"
	"github.com/alanyoungcy/tradedesk/internal/archive"
	s3blob "github.com/alanyoungcy/tradedesk/internal/blob/s3"
	"github.com/alanyoungcy/tradedesk/internal/book"
	"github.com/alanyoungcy/tradedesk/internal/cache/redis"
	"github.com/alanyoungcy/tradedesk/internal/config"
	"github.com/alanyoungcy/tradedesk/internal/domain"
	"github.com/alanyoungcy/tradedesk/internal/ledger"
	"github.com/alanyoungcy/tradedesk/internal/notify"
	"github.com/alanyoungcy/tradedesk/internal/sizing"
	"github.com/alanyoungcy/tradedesk/internal/store/postgres"
	"github.com/alanyoungcy/tradedesk/internal/venue"
	"github.com/alanyoungcy/tradedesk/internal/venue/binance"
	"github.com/alanyoungcy/tradedesk/internal/venue/bybit"
	"github.com/alanyoungcy/tradedesk/internal/venue/paper"
)

// Dependencies bundles every component the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Core
	Registry   *venue.Registry
	Book       *book.Book
	Ledger     *ledger.Ledger
	Accounting *accounting.Engine
	Sizer      *sizing.Sizer

	// Durable stores (nil unless Postgres is enabled)
	TradeStore domain.TradeStore
	AuditStore domain.AuditStore

	// Cache and bus (nil unless Redis is enabled)
	PriceCache domain.PriceCache
	SignalBus  domain.SignalBus

	// Cold storage (nil unless archiving is enabled)
	Archiver *archive.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Venue clients ---
	var clients []domain.VenueClient
	for _, vc := range cfg.Venues {
		if !vc.Enabled {
			continue
		}
		switch strings.ToLower(vc.Name) {
		case "binance":
			clients = append(clients, binance.NewClient("", vc.APIKey, vc.APISecret))
		case "bybit":
			clients = append(clients, bybit.NewClient("", vc.APIKey, vc.APISecret))
		case "paper":
			clients = append(clients, paper.New(vc.InitialBalance, "USDT"))
		default:
			cleanup()
			return nil, nil, fmt.Errorf("wire: %w: %s", domain.ErrUnknownVenue, vc.Name)
		}
	}
	deps.Registry = venue.NewRegistry(clients...)

	// --- Core state ---
	deps.Book = book.New(cfg.Execution.MaxOpenPositions, logger)
	deps.Ledger = ledger.New()

	// --- PostgreSQL ---
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
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.TradeStore = postgres.NewTradeStore(pgClient)
		deps.AuditStore = postgres.NewAuditStore(pgClient)
	}

	// --- Redis ---
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
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PriceCache = redis.NewPriceCache(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- Accounting ---
	deps.Accounting = accounting.New(
		deps.Ledger, deps.Book, cfg.Execution.ReconciliationThreshold, logger,
	)
	if deps.TradeStore != nil {
		deps.Accounting.WithStores(deps.TradeStore, deps.AuditStore)
	}
	if deps.SignalBus != nil {
		deps.Accounting.WithBus(deps.SignalBus)
	}

	// --- Sizing ---
	deps.Sizer = sizing.New(
		deps.Registry, deps.PriceCache, cfg.Execution.MaxPositionSizePercent, logger,
	)

	// --- S3 cold storage + archiver ---
	if cfg.Archive.Enabled {
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

		retention := time.Duration(cfg.Archive.RetentionDays) * 24 * time.Hour
		deps.Archiver = archive.New(
			deps.TradeStore, s3blob.NewWriter(s3Client),
			retention, cfg.Archive.Interval.Duration, logger,
		)
		if deps.AuditStore != nil {
			deps.Archiver.WithAudit(deps.AuditStore)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.WebhookURL != "" {
		senders = append(senders, notify.NewWebhookSender(cfg.Notify.WebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
