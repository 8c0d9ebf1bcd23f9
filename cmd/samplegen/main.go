// Command samplegen writes a synthetic raw pitch batch for local pipeline runs.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/okian/swingstat/internal/config"
	"github.com/okian/swingstat/internal/samplegen"
	"github.com/okian/swingstat/pkg/logger"
)

// Default generation constants.
const (
	defaultRecords = 1000
	defaultSeed    = 1
	defaultBatters = 50
)

func main() {
	var (
		n       = flag.Int("n", defaultRecords, "Number of raw pitch records to generate")
		seed    = flag.Uint64("seed", defaultSeed, "Random seed; the same seed always yields the same batch")
		batters = flag.Int("batters", defaultBatters, "Size of the batter id pool")
		out     = flag.String("out", config.DefaultInputPath, "Output file")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	ctx := context.Background()
	log := logger.Named("samplegen")

	if *n < 0 {
		log.Error(ctx, "record count must not be negative", logger.Int("n", *n))
		os.Exit(1)
	}

	gen := samplegen.New(samplegen.WithSeed(*seed), samplegen.WithBatters(*batters))
	if err := gen.WriteFile(*out, *n); err != nil {
		log.Error(ctx, "failed to write batch", logger.String("path", *out), logger.Error(err))
		os.Exit(1)
	}
	log.Info(ctx, "batch written",
		logger.String("path", *out),
		logger.Int("records", *n),
		logger.Any("seed", *seed),
	)
}
