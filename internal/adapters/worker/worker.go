// Package worker flattens raw pitch batches on a bounded pool of goroutines.
package worker

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/swingstat/internal/domain/model"
	"github.com/okian/swingstat/pkg/logger"
	"github.com/okian/swingstat/pkg/metrics"
)

// Default pool configuration constants.
const (
	defaultChunkSize = 1024
	maxWorkers       = 1024
)

// Transform maps one raw record to one flat row. It must be pure.
type Transform func(model.RawPitch) model.FlatPitchRow

// Pool partitions a batch into contiguous chunks and transforms them concurrently.
// Output order always equals input order.
type Pool struct {
	workers   int
	chunkSize int
	logger    logger.Logger
}

// NewPool creates a pool with configuration options.
func NewPool(opts ...Option) *Pool {
	p := &Pool{
		workers:   runtime.NumCPU(),
		chunkSize: defaultChunkSize,
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.workers > maxWorkers {
		p.workers = maxWorkers
	}
	return p
}

// Workers returns the configured concurrency.
func (p *Pool) Workers() int { return p.workers }

// Run applies fn to every record. len(out) == len(recs) on success.
// A cancelled context aborts the run and no partial output is returned.
func (p *Pool) Run(ctx context.Context, recs []model.RawPitch, fn Transform) ([]model.FlatPitchRow, error) {
	start := time.Now()
	out := make([]model.FlatPitchRow, len(recs))
	if len(recs) == 0 {
		return out, ctx.Err()
	}

	metrics.UpdateWorkerCount(p.workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	chunks := 0
	for lo := 0; lo < len(recs); lo += p.chunkSize {
		hi := min(lo+p.chunkSize, len(recs))
		if err := gctx.Err(); err != nil {
			break
		}
		chunks++
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				out[i] = fn(recs[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.logger.Debug(ctx, "batch transformed",
		logger.Int("records", len(recs)),
		logger.Int("chunks", chunks),
		logger.Int("workers", p.workers),
		logger.Duration("took", time.Since(start)),
	)
	return out, nil
}
