package source

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrMalformedInput = errors.New("malformed input")
	ErrReadInput      = errors.New("read input failed")
)
