package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/mfakit/migrations"
	"github.com/dmitrymomot/mfakit/pkg/audit"
	"github.com/dmitrymomot/mfakit/pkg/config"
	"github.com/dmitrymomot/mfakit/pkg/httpserver"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/mfa"
	"github.com/dmitrymomot/mfakit/pkg/mfa/pgstore"
	"github.com/dmitrymomot/mfakit/pkg/mfa/redisstore"
	"github.com/dmitrymomot/mfakit/pkg/pg"
	"github.com/dmitrymomot/mfakit/pkg/ratelimiter"
	"github.com/dmitrymomot/mfakit/pkg/redis"
	"github.com/dmitrymomot/mfakit/pkg/secrets"
)

// backend is everything the selected STORE_DRIVER provides.
type backend struct {
	store       mfa.Store
	eligibility mfa.EligibilityChecker
	limitStore  ratelimiter.Store
	checks      map[string]httpserver.Check
	closers     []func()

	// auditWriter persists audit events; nil selects the log writer.
	auditWriter audit.Writer
	flushAudit  func(context.Context) error
}

// close flushes queued audit events before the connections they need go away.
func (b *backend) close(ctx context.Context) error {
	var err error
	if b.flushAudit != nil {
		err = b.flushAudit(ctx)
		b.flushAudit = nil
	}
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
	return err
}

// auditRecorder builds the recorder for the audit trail, buffering writes
// to a database sink so requests never wait on them.
func (b *backend) auditRecorder(s settings, log *slog.Logger, opts ...audit.Option) *audit.Recorder {
	var w audit.Writer = audit.NewLogWriter(log)
	if b.auditWriter != nil {
		async := audit.NewAsyncWriter(b.auditWriter, audit.AsyncOptions{
			BufferSize: s.App.AuditBufferSize,
			BatchSize:  s.App.AuditBatchSize,
			OnError: func(err error, lost []audit.Event) {
				log.Error("failed to persist audit events", logger.Error(err), slog.Int("lost", len(lost)))
			},
		})
		b.flushAudit = async.Close
		w = async
	}
	return audit.NewRecorder(w, opts...)
}

func buildBackend(ctx context.Context, s settings, log *slog.Logger) (*backend, error) {
	b := &backend{checks: make(map[string]httpserver.Check)}

	var err error
	switch s.App.StoreDriver {
	case DriverPostgres:
		err = b.postgres(ctx, s, log)
	case DriverRedis:
		err = b.redis(ctx, log)
	default:
		log.WarnContext(ctx, "using in-memory store, credentials are lost on restart")
		b.memory()
	}
	if err != nil {
		return nil, errors.Join(err, b.close(ctx))
	}
	return b, nil
}

func (b *backend) memory() {
	limits := ratelimiter.NewMemoryStore()
	b.store = mfa.NewMemoryStore()
	b.eligibility = mfa.AllowAll
	b.limitStore = limits
	b.closers = append(b.closers, limits.Close)
}

func sealer() (*secrets.Sealer, error) {
	var cfg secrets.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	return secrets.NewSealerFromConfig(cfg)
}

func (b *backend) postgres(ctx context.Context, s settings, log *slog.Logger) error {
	var cfg pg.Config
	if err := config.Load(&cfg); err != nil {
		return err
	}
	seal, err := sealer()
	if err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, pool.Close)

	if s.App.RunMigrations {
		if err := pg.Migrate(ctx, pool, migrations.FS, cfg, log.With(logger.Component("migrations"))); err != nil {
			return err
		}
	}

	store, err := pgstore.New(pool, seal, pgstore.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create postgres store: %w", err)
	}

	limits := ratelimiter.NewMemoryStore()
	b.closers = append(b.closers, limits.Close)

	b.store = store
	b.eligibility = pgstore.NewEligibility(pool)
	b.limitStore = limits
	b.checks["postgres"] = pg.Healthcheck(pool)
	b.auditWriter = pgstore.NewAuditWriter(pool)
	return nil
}

func (b *backend) redis(ctx context.Context, log *slog.Logger) error {
	var cfg redis.Config
	if err := config.Load(&cfg); err != nil {
		return err
	}
	seal, err := sealer()
	if err != nil {
		return err
	}

	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func() { _ = client.Close() })

	store, err := redisstore.New(client, seal,
		redisstore.WithKeyPrefix(cfg.KeyPrefix),
		redisstore.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("failed to create redis store: %w", err)
	}

	b.store = store
	// no profile table here; account type checks belong to the caller
	b.eligibility = mfa.AllowAll
	b.limitStore = ratelimiter.NewRedisStore(client, cfg.KeyPrefix)
	b.checks["redis"] = redis.Healthcheck(client)
	return nil
}
