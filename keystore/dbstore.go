package keystore

import (
	"github.com/czh0526/tokencore/walletdb"
	"github.com/czh0526/tokencore/walletdb/migration"
)

var (
	// mainBucketName is the top level bucket of the keystore namespace.
	mainBucketName = []byte("keystore")

	// keystoresBucketName maps keystore id to its JSON form.
	keystoresBucketName = []byte("keystores")
)

// Backend persists the JSON form of keystores by id.
type Backend interface {
	PutKeystore(id string, data []byte) error
	DeleteKeystore(id string) error
	ForEachKeystore(fn func(id string, data []byte) error) error
}

// versions lists the layouts of the keystore namespace.
var versions = []migration.Version{
	{
		Number: 1,
		Migration: func(ns walletdb.ReadWriteBucket) error {
			_, err := ns.CreateBucketIfNotExists(keystoresBucketName)
			return err
		},
	},
}

// DBStore is a Backend on a walletdb database.
type DBStore struct {
	db walletdb.DB
}

// NewDBStore creates or upgrades the keystore namespace of db.
func NewDBStore(db walletdb.DB) (*DBStore, error) {
	err := walletdb.Update(db, func(tx walletdb.ReadWriteTx) error {
		ns, err := tx.CreateTopLevelBucket(mainBucketName)
		if err != nil {
			return err
		}
		return migration.Upgrade(ns, versions)
	})
	if err != nil {
		return nil, managerError(ErrDatabase, "failed to create keystore namespace", err)
	}

	return &DBStore{db: db}, nil
}

func keystoresBucket(tx walletdb.ReadWriteTx) (walletdb.ReadWriteBucket, error) {
	ns := tx.ReadWriteBucket(mainBucketName)
	if ns == nil {
		return nil, managerError(ErrDatabase, "keystore namespace not found", nil)
	}
	bucket := ns.NestedReadWriteBucket(keystoresBucketName)
	if bucket == nil {
		return nil, managerError(ErrDatabase, "keystores bucket not found", nil)
	}
	return bucket, nil
}

func (s *DBStore) PutKeystore(id string, data []byte) error {
	err := walletdb.Update(s.db, func(tx walletdb.ReadWriteTx) error {
		bucket, err := keystoresBucket(tx)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(id), data)
	})
	return maybeConvertDbError(err)
}

func (s *DBStore) DeleteKeystore(id string) error {
	err := walletdb.Update(s.db, func(tx walletdb.ReadWriteTx) error {
		bucket, err := keystoresBucket(tx)
		if err != nil {
			return err
		}
		return bucket.Delete([]byte(id))
	})
	return maybeConvertDbError(err)
}

// ForEachKeystore calls fn with a copy of every stored keystore.
func (s *DBStore) ForEachKeystore(fn func(id string, data []byte) error) error {
	err := walletdb.View(s.db, func(tx walletdb.ReadTx) error {
		ns := tx.ReadBucket(mainBucketName)
		if ns == nil {
			return managerError(ErrDatabase, "keystore namespace not found", nil)
		}
		bucket := ns.NestedReadBucket(keystoresBucketName)
		if bucket == nil {
			return managerError(ErrDatabase, "keystores bucket not found", nil)
		}

		return bucket.ForEach(func(k, v []byte) error {
			data := append([]byte(nil), v...)
			return fn(string(k), data)
		})
	})
	return maybeConvertDbError(err)
}

func maybeConvertDbError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := Code(err); ok {
		return err
	}
	return managerError(ErrDatabase, "", err)
}
