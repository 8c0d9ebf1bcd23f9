package warehouse

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrOpen           = errors.New("warehouse open failed")
	ErrWrite          = errors.New("pitch table write failed")
	ErrRead           = errors.New("pitch table read failed")
	ErrSchemaMismatch = errors.New("pitch table schema mismatch")
	ErrQuery          = errors.New("summary query failed")
)
