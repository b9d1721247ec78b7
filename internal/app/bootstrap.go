package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Diony-dev/Veloce/internal/ledger"
	"github.com/Diony-dev/Veloce/internal/ledger/memory"
	"github.com/Diony-dev/Veloce/internal/ledger/postgres"
	"github.com/Diony-dev/Veloce/internal/platform/cache"
	"github.com/Diony-dev/Veloce/internal/platform/db"
	"github.com/Diony-dev/Veloce/internal/reporting"
)

// ErrQueueDisabled is returned when a job queue is needed but REDIS_ADDR is empty.
var ErrQueueDisabled = errors.New("app: REDIS_ADDR is required for the job queue")

// Runtime holds the wired domain services shared by the binaries.
type Runtime struct {
	Store   ledger.Store
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Cache   *reporting.Cache
	Engine  *reporting.Engine
	Reports *reporting.Service
	Ledger  *ledger.Service

	logger *slog.Logger
}

// Bootstrap opens the ledger store and optional Redis, then wires the report
// and ledger services. Close releases what was opened.
func Bootstrap(ctx context.Context, cfg *Config, logger *slog.Logger, recorder reporting.Recorder) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("app: config required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{logger: logger}

	if cfg.PGDSN == "" {
		logger.Warn("PG_DSN empty, using in-memory ledger store")
		rt.Store = memory.NewStore()
	} else {
		pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns, ApplicationName: "veloce"})
		if err != nil {
			return nil, err
		}
		rt.Pool = pool
		store := postgres.NewStore(pool)
		if cfg.DBAutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				rt.Close()
				return nil, err
			}
		}
		rt.Store = store
	}

	if cfg.RedisAddr != "" {
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Redis = client
	}
	if cfg.CacheEnabled() {
		rt.Cache = reporting.NewCache(rt.Redis, cfg.ReportCacheTTL)
	}

	rt.Engine = reporting.NewEngine(reporting.EngineConfig{
		Reader: rt.Store,
		Defaults: reporting.Defaults{
			Location:         cfg.Location(),
			TaxRate:          cfg.ReportTaxRate,
			TaxPlaces:        cfg.ReportTaxPlaces,
			TopClients:       cfg.ReportTopClients,
			OverdueAfterDays: cfg.InvoiceOverdueAfterDays,
		},
		Logger:   logger,
		Recorder: recorder,
	})
	rt.Reports = reporting.NewService(rt.Engine, rt.Cache, logger)

	ledgerCfg := ledger.ServiceConfig{
		NumberPrefix:    cfg.InvoiceNumberPrefix,
		DefaultLocation: cfg.Location(),
		Logger:          logger,
	}
	if rt.Cache != nil {
		ledgerCfg.Invalidator = rt.Cache
	}
	rt.Ledger = ledger.NewService(rt.Store, ledgerCfg)
	return rt, nil
}

// Close releases the pool and Redis client.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			rt.logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if rt.Pool != nil {
		rt.Pool.Close()
	}
}

// QueueRedis converts REDIS_ADDR into asynq connection options.
func (c *Config) QueueRedis() (asynq.RedisClientOpt, error) {
	if c == nil || c.RedisAddr == "" {
		return asynq.RedisClientOpt{}, ErrQueueDisabled
	}
	opts, err := cache.Options(c.RedisAddr)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("app: queue redis: %w", err)
	}
	return asynq.RedisClientOpt{
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}, nil
}
