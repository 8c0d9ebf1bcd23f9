// Package samplegen builds synthetic raw pitch batches for local runs,
// benchmarks and integration tests.
//
// Every shape the flattener has to absorb shows up with a fixed frequency:
// scalar and nested person references, missing events, out-of-range or
// non-numeric exit velocities, non-string pitch metadata and empty
// bat-tracking samples.
package samplegen

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// Default generator configuration constants.
const (
	defaultSeed          = 1
	defaultBatters       = 50
	defaultFirstBatterID = 600000
	filePermission       = 0o644
)

// Shape weights out of 100.
const (
	pctNoEvents       = 4
	pctEmptyEvents    = 3
	pctNestedPerson   = 40
	pctPersonNoMLBID  = 3
	pctStringPerson   = 5
	pctSwing          = 48
	pctEmptySamples   = 6
	pctHasVelocity    = 55
	pctBadVelocity    = 5
	pctStringVelocity = 3
	pctNumericPitch   = 4
)

// Exit velocity ranges in mph.
const (
	velocityMin      = 40.0
	velocityRange    = 75.0
	badVelocityMin   = 126.0
	badVelocityRange = 200.0
)

var (
	pitchTypes   = []string{"FF", "SI", "FC", "SL", "CU", "CH", "FS", "KC", "ST"}
	pitchResults = []string{"B", "S", "X", "F", "C"}
)

// Generator produces raw pitch records.
type Generator struct {
	seed          uint64
	batters       int
	firstBatterID int
}

// New creates a generator with configuration options.
func New(opts ...Option) *Generator {
	g := &Generator{
		seed:          defaultSeed,
		batters:       defaultBatters,
		firstBatterID: defaultFirstBatterID,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns n records. The same seed always yields the same records.
func (g *Generator) Generate(n int) []map[string]any {
	rng := rand.New(rand.NewPCG(g.seed, g.seed^0x9e3779b97f4a7c15))
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = g.record(rng, i)
	}
	return out
}

// Write encodes n records as one JSON array to w.
func (g *Generator) Write(w io.Writer, n int) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g.Generate(n)); err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush batch: %w", err)
	}
	return nil
}

// WriteFile writes n records to path, creating parent directories.
func (g *Generator) WriteFile(path string, n int) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := g.Write(f, n); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	return nil
}

func (g *Generator) record(rng *rand.Rand, index int) map[string]any {
	rec := map[string]any{
		"pitch_index": index,
	}

	if events, ok := g.events(rng); ok {
		rec["events"] = events
	}

	swing := chance(rng, pctSwing)
	switch {
	case swing:
		samples := make([]any, 1+rng.IntN(4))
		for j := range samples {
			samples[j] = map[string]any{"t": j, "x": round2(rng.Float64()), "z": round2(rng.Float64())}
		}
		rec["samples_bat"] = samples
	case chance(rng, pctEmptySamples):
		rec["samples_bat"] = []any{}
	}

	acts := map[string]any{"pitch": g.pitch(rng)}
	if hit, ok := hit(rng); ok {
		acts["hit"] = hit
	}
	rec["summary_acts"] = acts
	return rec
}

func (g *Generator) events(rng *rand.Rand) ([]any, bool) {
	roll := rng.IntN(100)
	switch {
	case roll < pctNoEvents:
		return nil, false
	case roll < pctNoEvents+pctEmptyEvents:
		return []any{}, true
	}

	id := g.firstBatterID + rng.IntN(g.batters)
	var person any = id
	roll = rng.IntN(100)
	switch {
	case roll < pctPersonNoMLBID:
		person = map[string]any{"name": fmt.Sprintf("batter-%d", id)}
	case roll < pctPersonNoMLBID+pctStringPerson:
		person = fmt.Sprintf("%d", id)
	case roll < pctPersonNoMLBID+pctStringPerson+pctNestedPerson:
		person = map[string]any{"mlbId": id}
	}

	events := []any{map[string]any{"type": "pitch", "personId": person}}
	if chance(rng, 30) {
		// later events never decide the batter
		events = append(events, map[string]any{"type": "pickoff", "personId": g.firstBatterID - 1})
	}
	return events, true
}

func (g *Generator) pitch(rng *rand.Rand) map[string]any {
	p := map[string]any{
		"type":   pitchTypes[rng.IntN(len(pitchTypes))],
		"result": pitchResults[rng.IntN(len(pitchResults))],
	}
	if chance(rng, pctNumericPitch) {
		p["type"] = rng.IntN(10)
	}
	if chance(rng, pctNumericPitch) {
		p["result"] = map[string]any{"code": "X"}
	}
	return p
}

func hit(rng *rand.Rand) (map[string]any, bool) {
	if !chance(rng, pctHasVelocity) {
		return nil, false
	}
	var mph any = round2(velocityMin + rng.Float64()*velocityRange)
	roll := rng.IntN(100)
	switch {
	case roll < pctBadVelocity:
		mph = round2(badVelocityMin + rng.Float64()*badVelocityRange)
	case roll < pctBadVelocity+pctBadVelocity:
		mph = -round2(1 + rng.Float64()*10)
	case roll < pctBadVelocity+pctBadVelocity+pctStringVelocity:
		mph = fmt.Sprintf("%.1f", velocityMin)
	}
	return map[string]any{"speed": map[string]any{"mph": mph}}, true
}

func chance(rng *rand.Rand, pct int) bool {
	return rng.IntN(100) < pct
}

func round2(v float64) float64 {
	return float64(int64(v*100)) / 100
}
