package ledger

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrOpen   = errors.New("ledger open failed")
	ErrRecord = errors.New("ledger record failed")
	ErrQuery  = errors.New("ledger query failed")
	ErrClosed = errors.New("ledger closed")
)
