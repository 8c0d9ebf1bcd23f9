package warehouse

import (
	"github.com/okian/swingstat/pkg/logger"
)

// Option applies a configuration option to the Warehouse.
type Option func(*Warehouse)

// WithLogger sets a custom logger for the warehouse.
func WithLogger(l logger.Logger) Option {
	return func(w *Warehouse) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithThreads caps the engine's worker threads. Zero keeps the engine default.
func WithThreads(n int) Option {
	return func(w *Warehouse) {
		if n > 0 {
			w.threads = n
		}
	}
}

// WithMemoryLimit sets the engine memory limit, e.g. "1GB".
func WithMemoryLimit(limit string) Option {
	return func(w *Warehouse) {
		w.memoryLimit = limit
	}
}
