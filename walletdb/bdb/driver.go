// Package bdb is the bbolt backend of walletdb. Importing it registers the
// "bdb" database type.
package bdb

import (
	"fmt"
	"github.com/czh0526/tokencore/walletdb"
)

const (
	dbType = "bdb"
)

func openDBDriver(path string, opts *walletdb.Options) (walletdb.DB, error) {
	return openDB(path, opts, false)
}

func createDBDriver(path string, opts *walletdb.Options) (walletdb.DB, error) {
	return openDB(path, opts, true)
}

func init() {
	driver := walletdb.Driver{
		DBType: dbType,
		Create: createDBDriver,
		Open:   openDBDriver,
	}

	if err := walletdb.RegisterDriver(driver); err != nil {
		panic(fmt.Sprintf("Failed to register database driver '%s': %v", dbType, err))
	}
}
