// Package source loads raw pitch batches from JSON.
//
// A batch is a single top-level JSON array whose elements are all objects.
// Anything else is rejected as a whole; there is no per-record recovery at
// this layer and no retry.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/zeebo/xxh3"

	"github.com/okian/swingstat/internal/domain/model"
)

// Batch is a fully loaded raw input file.
type Batch struct {
	Path    string
	Records []model.RawPitch
	// Digest is the hex xxh3-64 hash of the raw bytes.
	Digest string
	Bytes  int64
}

// LoadFile reads and decodes the batch at path.
func LoadFile(ctx context.Context, path string) (Batch, error) {
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Batch{}, fmt.Errorf("%w: %s: %w", ErrReadInput, path, err)
	}
	recs, err := decode(ctx, data)
	if err != nil {
		return Batch{}, fmt.Errorf("%s: %w", path, err)
	}
	return Batch{
		Path:    path,
		Records: recs,
		Digest:  Digest(data),
		Bytes:   int64(len(data)),
	}, nil
}

// Load reads r to the end and decodes it as a batch.
func Load(ctx context.Context, r io.Reader) ([]model.RawPitch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadInput, err)
	}
	return decode(ctx, data)
}

// Digest returns the hex xxh3-64 hash of data.
func Digest(data []byte) string {
	return strconv.FormatUint(xxh3.Hash(data), 16)
}

// decode keeps every number as its JSON text. A value outside float64 range
// is valid JSON and must reach the flattener, which treats it as absent.
func decode(ctx context.Context, data []byte) ([]model.RawPitch, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root any
	err := dec.Decode(&root)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrMalformedInput)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}

	var trailing any
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after top-level array", ErrMalformedInput)
	}

	arr, ok := root.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: top-level value is %T, want array", ErrMalformedInput, root)
	}

	out := make([]model.RawPitch, len(arr))
	for i, elem := range arr {
		obj, ok := elem.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %T, want object", ErrMalformedInput, i, elem)
		}
		out[i] = obj
	}
	return out, nil
}
