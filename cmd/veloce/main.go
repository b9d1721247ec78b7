package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/hibiken/asynq"

	"github.com/Diony-dev/Veloce/internal/app"
	ledgerhttp "github.com/Diony-dev/Veloce/internal/ledger/http"
	"github.com/Diony-dev/Veloce/internal/observability"
	"github.com/Diony-dev/Veloce/internal/reporting/export"
	reporthttp "github.com/Diony-dev/Veloce/internal/reporting/http"
	"github.com/Diony-dev/Veloce/internal/tenant"
	"github.com/Diony-dev/Veloce/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	verifier, err := tenant.NewVerifier(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
	if err != nil {
		logger.Error("init token verifier", slog.Any("error", err))
		os.Exit(1)
	}

	rt, err := app.Bootstrap(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("bootstrap", slog.Any("error", err))
		os.Exit(1)
	}
	defer rt.Close()

	var inspector jobs.QueueInspector
	if opts, err := cfg.QueueRedis(); err == nil {
		in := asynq.NewInspector(opts)
		defer in.Close()
		inspector = in
	}

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		Metrics:       metrics,
		Verifier:      verifier,
		ReportHandler: reporthttp.NewHandler(logger, rt.Reports, export.NewFormatter(cfg.ExportLocale)),
		LedgerHandler: ledgerhttp.NewHandler(logger, rt.Ledger),
		JobHandler:    jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Bool("report_cache", rt.Cache != nil))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
