// Command ingest flattens a raw pitch batch into a Parquet table.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	service "github.com/okian/swingstat/internal/app"
	"github.com/okian/swingstat/internal/config"
	"github.com/okian/swingstat/pkg/logger"
	"github.com/okian/swingstat/pkg/metrics"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Named("ingest")
	metrics.Init(metrics.WithSubsystem("ingest"))

	// Cancel the run on SIGINT/SIGTERM; no partial output is left behind.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, closeLedger := service.FromConfig(ctx, cfg)
	defer func() {
		if err := closeLedger(); err != nil {
			log.Warn(ctx, "failed to close run ledger", logger.Error(err))
		}
	}()

	_, runErr := svc.Ingest(ctx, cfg.InputPath, cfg.ProcessedPath)
	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(cfg.PushgatewayURL, cfg.JobName); err != nil {
			log.Warn(ctx, "failed to push metrics", logger.Error(err))
		}
	}
	if runErr != nil {
		log.Error(ctx, "ingest failed",
			logger.String("input", cfg.InputPath),
			logger.String("kind", service.ErrorKind(runErr)),
			logger.Error(runErr),
		)
		return 1
	}
	return 0
}
