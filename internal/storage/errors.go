package storage

import "errors"

// Storage errors shared by all engines.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when appending a record whose id already exists.
	// Trade records and snapshots are append-only.
	ErrDuplicateKey = errors.New("duplicate key: append-only record already exists")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrReadOnly is returned when a write is attempted through a read-only transaction.
	ErrReadOnly = errors.New("read-only transaction")
)
