package walletdb

import (
	"errors"
)

// Database errors.
var (
	ErrDbTypeRegistered = errors.New("database type already registered")
	ErrDbUnknownType    = errors.New("unknown database type")
	ErrDbDoesNotExist   = errors.New("database does not exist")
	ErrDbNotOpen        = errors.New("database not open")

	// ErrDbLocked is returned when another process holds the database
	// file past the open timeout.
	ErrDbLocked = errors.New("database is in use by another process")

	ErrInvalid = errors.New("invalid database")

	// ErrDryRunRollBack lets an Update callback discard its writes.
	ErrDryRunRollBack = errors.New("dry run only; should roll back")
)

// Transaction errors.
var (
	ErrTxClosed      = errors.New("tx closed")
	ErrTxNotWritable = errors.New("tx not writable")
)

// Bucket and value errors.
var (
	ErrBucketNotFound     = errors.New("bucket not found")
	ErrBucketNameRequired = errors.New("bucket name required")
	ErrKeyRequired        = errors.New("key required")
	ErrKeyTooLarge        = errors.New("key too large")
	ErrValueTooLarge      = errors.New("value too large")

	// ErrIncompatibleValue is returned when a key names a bucket where a
	// value is expected, or the reverse.
	ErrIncompatibleValue = errors.New("incompatible value")
)
