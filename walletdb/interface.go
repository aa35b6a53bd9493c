// Package walletdb is the storage abstraction under the keystore database.
// A database is a tree of named buckets holding key/value pairs, read and
// written inside transactions. Backends register themselves by type name
// and are selected with Create and Open.
package walletdb

import (
	"io"
	"time"
)

// Options tune how a backend opens its file.
type Options struct {
	// NoFreelistSync skips syncing the free page list on commit. Opening
	// is slower, committing is faster.
	NoFreelistSync bool

	// Timeout bounds the wait for the file lock held by another process.
	// Zero waits forever.
	Timeout time.Duration
}

// Driver creates and opens databases of one backend type.
type Driver struct {
	DBType string
	Create func(path string, opts *Options) (DB, error)
	Open   func(path string, opts *Options) (DB, error)
}

// DB is an open database.
type DB interface {
	BeginReadTx() (ReadTx, error)
	BeginReadWriteTx() (ReadWriteTx, error)

	// Copy writes a consistent snapshot of the whole database to w.
	Copy(w io.Writer) error

	Close() error
}

type ReadTx interface {
	// ReadBucket returns nil when no top level bucket named key exists.
	ReadBucket(key []byte) ReadBucket
	Rollback() error
}

type ReadWriteTx interface {
	ReadTx

	ReadWriteBucket(key []byte) ReadWriteBucket

	// CreateTopLevelBucket returns the bucket named key, creating it when
	// missing.
	CreateTopLevelBucket(key []byte) (ReadWriteBucket, error)

	Commit() error
}

// ReadBucket is a bucket seen through a read transaction. Slices it
// returns are only valid until the transaction ends.
type ReadBucket interface {
	NestedReadBucket(key []byte) ReadBucket
	ForEach(func(k, v []byte) error) error
	Get(key []byte) []byte
	ReadCursor() ReadCursor
}

type ReadWriteBucket interface {
	ReadBucket

	NestedReadWriteBucket(key []byte) ReadWriteBucket
	CreateBucketIfNotExists(key []byte) (ReadWriteBucket, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	NextSequence() (uint64, error)
}

// ReadCursor walks a bucket in key order.
type ReadCursor interface {
	First() (key, value []byte)
	Next() (key, value []byte)
	Seek(seek []byte) (key, value []byte)
}

var drivers = make(map[string]*Driver)

// RegisterDriver makes a backend available to Create and Open.
func RegisterDriver(driver Driver) error {
	if _, exists := drivers[driver.DBType]; exists {
		return ErrDbTypeRegistered
	}

	drivers[driver.DBType] = &driver
	return nil
}

// Create creates, or opens when it already exists, the database at path.
func Create(dbType, path string, opts *Options) (DB, error) {
	drv, exists := drivers[dbType]
	if !exists {
		return nil, ErrDbUnknownType
	}
	if opts == nil {
		opts = &Options{}
	}

	return drv.Create(path, opts)
}

// Open opens the database at path. It fails with ErrDbDoesNotExist when
// there is none.
func Open(dbType, path string, opts *Options) (DB, error) {
	drv, exists := drivers[dbType]
	if !exists {
		return nil, ErrDbUnknownType
	}
	if opts == nil {
		opts = &Options{}
	}

	return drv.Open(path, opts)
}

// View runs f in a read transaction that is always rolled back.
func View(db DB, f func(tx ReadTx) error) error {
	tx, err := db.BeginReadTx()
	if err != nil {
		return err
	}

	err = f(tx)
	rollbackErr := tx.Rollback()
	if err != nil {
		return err
	}
	return rollbackErr
}

// Update runs f in a read-write transaction, committed only when f
// succeeds.
func Update(db DB, f func(tx ReadWriteTx) error) error {
	tx, err := db.BeginReadWriteTx()
	if err != nil {
		return err
	}

	if err := f(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
