package bdb

import (
	"github.com/czh0526/tokencore/walletdb"
	"go.etcd.io/bbolt"
)

type bucket bbolt.Bucket

func (b *bucket) NestedReadBucket(key []byte) walletdb.ReadBucket {
	return b.NestedReadWriteBucket(key)
}

func (b *bucket) ForEach(f func(k []byte, v []byte) error) error {
	return convertErr((*bbolt.Bucket)(b).ForEach(f))
}

// Get returns nil for a missing key. The returned slice is only valid for
// the life of the transaction.
func (b *bucket) Get(key []byte) []byte {
	return (*bbolt.Bucket)(b).Get(key)
}

func (b *bucket) ReadCursor() walletdb.ReadCursor {
	return (*cursor)((*bbolt.Bucket)(b).Cursor())
}

func (b *bucket) NestedReadWriteBucket(key []byte) walletdb.ReadWriteBucket {
	boltBucket := (*bbolt.Bucket)(b).Bucket(key)
	if boltBucket == nil {
		return nil
	}
	return (*bucket)(boltBucket)
}

func (b *bucket) CreateBucketIfNotExists(key []byte) (walletdb.ReadWriteBucket, error) {
	boltBucket, err := (*bbolt.Bucket)(b).CreateBucketIfNotExists(key)
	if err != nil {
		return nil, convertErr(err)
	}
	return (*bucket)(boltBucket), nil
}

func (b *bucket) Put(key, value []byte) error {
	return convertErr((*bbolt.Bucket)(b).Put(key, value))
}

func (b *bucket) Delete(key []byte) error {
	return convertErr((*bbolt.Bucket)(b).Delete(key))
}

func (b *bucket) NextSequence() (uint64, error) {
	return (*bbolt.Bucket)(b).NextSequence()
}

var _ walletdb.ReadWriteBucket = (*bucket)(nil)

// cursor is only valid for the life of its transaction.
type cursor bbolt.Cursor

func (c *cursor) First() (key, value []byte) {
	return (*bbolt.Cursor)(c).First()
}

func (c *cursor) Next() (key, value []byte) {
	return (*bbolt.Cursor)(c).Next()
}

func (c *cursor) Seek(seek []byte) (key, value []byte) {
	return (*bbolt.Cursor)(c).Seek(seek)
}

var _ walletdb.ReadCursor = (*cursor)(nil)
