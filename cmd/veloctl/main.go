package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "time/tzdata"

	"github.com/Diony-dev/Veloce/cmd/veloctl/cli"
	"github.com/Diony-dev/Veloce/internal/app"
	"github.com/Diony-dev/Veloce/internal/reporting/export"
	"github.com/Diony-dev/Veloce/internal/tenant"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	// Keep stdout clean for report output.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	deps := cli.Deps{
		OpenReports: func(ctx context.Context) (cli.ReportSource, func(), error) {
			rt, err := app.Bootstrap(ctx, cfg, logger, nil)
			if err != nil {
				return nil, nil, err
			}
			return rt.Reports, rt.Close, nil
		},
		OpenJobs: func() (*cli.JobsCLI, error) {
			opts, err := cfg.QueueRedis()
			if err != nil {
				return nil, err
			}
			return cli.NewJobsCLI(opts), nil
		},
		Verifier: func() (*tenant.Verifier, error) {
			return tenant.NewVerifier(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
		},
		Formatter: export.NewFormatter(cfg.ExportLocale),
		Timeout:   cfg.AppRequestTimeout,
	}

	if err := cli.NewRootCommand(deps).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "veloctl:", err)
		os.Exit(1)
	}
}
