package types

import "errors"

// Sentinel error kinds the core surfaces. Callers compare
// with errors.Is; every package wraps these with fmt.Errorf("...: %w", ...)
// rather than constructing new ad-hoc error strings for the same condition.
var (
	// Schema errors.
	ErrDatabaseExists = errors.New("database exists")
	ErrDatabaseNotFound = errors.New("database not found")
	ErrTableExists      = errors.New("table exists")
	ErrTableNotFound    = errors.New("table not found")
	ErrColumnNotFound   = errors.New("column not found")
	ErrIndexExists      = errors.New("index exists")
	ErrIndexNotFound    = errors.New("index not found")

	// Data errors.
	ErrRecordNotFound     = errors.New("record not found")
	ErrIndexEntryNotFound = errors.New("index entry not found")
	ErrTypeMismatch       = errors.New("comparison type mismatch")
	ErrPageFull           = errors.New("heap page full")

	// Concurrency errors. Either one means the requesting transaction has
	// to be aborted; the lock manager wraps one of these two as the cause
	// and leaves the transaction's phase and held locks unchanged.
	ErrDeadlockPrevention = errors.New("transaction abort: deadlock prevention")
	ErrLockOnShrinking    = errors.New("transaction abort: lock requested in shrinking phase")

	// Resource errors. fetch_page/new_page report this instead of a null
	// handle — the idiomatic Go shape for "no evictable frame".
	ErrNoEvictableFrame = errors.New("buffer pool: no evictable frame")
)
