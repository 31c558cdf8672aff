package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/fixedyield/internal/blob/s3"
	"github.com/alanyoungcy/fixedyield/internal/cache/redis"
	"github.com/alanyoungcy/fixedyield/internal/config"
	"github.com/alanyoungcy/fixedyield/internal/domain"
	"github.com/alanyoungcy/fixedyield/internal/notify"
	"github.com/alanyoungcy/fixedyield/internal/platform/yieldpool"
	"github.com/alanyoungcy/fixedyield/internal/server/handler"
	"github.com/alanyoungcy/fixedyield/internal/store/postgres"
)

// Dependencies bundles the concrete implementations the modes run on. It is
// built by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Ledger is nil in server mode; those replicas follow the bus instead.
	Ledger domain.PositionLedger

	Transactions domain.TransactionStore
	Audit        domain.AuditStore

	Cache       domain.PositionCache
	Bus         domain.SignalBus
	Locks       domain.LockManager
	RateLimiter domain.RateLimiter

	// Archiver is nil unless s3.enabled.
	Archiver *s3blob.SnapshotArchiver

	Notifier *notify.Notifier

	// Checks back GET /api/health.
	Checks map[string]handler.Check
}

// Wire connects to every backing service cfg names and returns the
// dependencies together with a cleanup function that releases them in
// reverse order.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

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

	deps := &Dependencies{Checks: make(map[string]handler.Check)}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Supabase.DSN,
		Host:     cfg.Supabase.Host,
		Port:     cfg.Supabase.Port,
		Database: cfg.Supabase.Database,
		User:     cfg.Supabase.User,
		Password: cfg.Supabase.Password,
		SSLMode:  cfg.Supabase.SSLMode,
		MaxConns: cfg.Supabase.PoolMaxConns,
		MinConns: cfg.Supabase.PoolMinConns,
	})
	if err != nil {
		return fail(fmt.Errorf("wire: postgres: %w", err))
	}
	closers = append(closers, pgClient.Close)

	if cfg.Supabase.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			return fail(fmt.Errorf("wire: postgres migrations: %w", err))
		}
	}
	deps.Transactions = postgres.NewTransactionStore(pgClient.Pool())
	deps.Audit = postgres.NewAuditStore(pgClient.Pool())
	deps.Checks["postgres"] = pgClient.Ping

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
		return fail(fmt.Errorf("wire: redis: %w", err))
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Cache = redis.NewPositionCache(redisClient, cfg.Redis.PositionsTTL.Duration)
	deps.Bus = redis.NewSignalBus(redisClient)
	deps.Locks = redis.NewLockManager(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.Checks["redis"] = redisClient.Ping

	// --- Yield pool contract (refreshing modes only) ---
	if cfg.Refreshes() {
		ledger, err := yieldpool.Dial(ctx, yieldpool.ClientConfig{
			RPCURL:      cfg.Chain.RPCURL,
			PoolAddress: cfg.Chain.PoolAddress,
			CallTimeout: cfg.Chain.CallTimeout.Duration,
		}, logger)
		if err != nil {
			return fail(fmt.Errorf("wire: yield pool: %w", err))
		}
		closers = append(closers, ledger.Close)
		deps.Ledger = ledger
	}

	// --- S3 snapshot archive ---
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
		deps.Archiver = s3blob.NewSnapshotArchiver(s3blob.ArchiverConfig{
			Writer:   s3blob.NewWriter(s3Client),
			Reader:   s3blob.NewReader(s3Client),
			Locks:    deps.Locks,
			Audit:    deps.Audit,
			LockHold: cfg.S3.ArchiveInterval.Duration,
			Logger:   logger,
		})
		deps.Checks["s3"] = s3Client.Health
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
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
