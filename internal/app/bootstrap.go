package service

import (
	"context"

	"github.com/okian/swingstat/internal/adapters/ledger"
	"github.com/okian/swingstat/internal/config"
	"github.com/okian/swingstat/pkg/logger"
)

// FromConfig builds a Service from cfg. The returned closer releases the run
// ledger. A ledger that cannot be opened is logged and replaced by a no-op
// recorder so bookkeeping never blocks a run.
func FromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, func() error) {
	log := logger.Get().Named("pipeline")

	var rec ledger.Recorder = ledger.Nop{}
	if cfg.LedgerPath != "" {
		l, err := ledger.Open(ctx, cfg.LedgerPath)
		if err != nil {
			log.Warn(ctx, "run ledger unavailable; continuing without it",
				logger.String("path", cfg.LedgerPath), logger.Error(err))
		} else {
			rec = l
		}
	}

	base := []Option{
		WithLogger(log),
		WithWorkerCount(cfg.WorkerCount),
		WithChunkSize(cfg.ChunkSize),
		WithWarehouseThreads(cfg.WarehouseThreads),
		WithWarehouseMemoryLimit(cfg.MemoryLimit),
		WithPreviewRows(cfg.PreviewRows),
		WithDropMissingBatter(cfg.DropMissingBatter),
		WithLedger(rec),
	}
	return New(append(base, opts...)...), rec.Close
}
