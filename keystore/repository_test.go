package keystore

import (
	"errors"
	"fmt"
	"github.com/czh0526/tokencore/address"
	"github.com/czh0526/tokencore/coin"
	"github.com/czh0526/tokencore/keycrypt"
	"github.com/czh0526/tokencore/walletdb"
	_ "github.com/czh0526/tokencore/walletdb/bdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

var testDBOptions = &walletdb.Options{NoFreelistSync: true, Timeout: time.Second}

func newTestKeystore(t *testing.T, password string) *Keystore {
	t.Helper()

	ks, err := FromMnemonic(testMnemonic, []byte(password), NewMeta(),
		&keycrypt.FastParameters)
	require.NoError(t, err)
	return ks
}

func TestWithUnlocked(t *testing.T) {
	ks := newTestKeystore(t, testPassword)

	err := WithUnlocked(ks, []byte("wrong"), func(*Keystore) error {
		t.Fatal("ran with a wrong password")
		return nil
	})
	checkManagerError(t, err, ErrWrongPassphrase)

	errBoom := errors.New("boom")
	err = WithUnlocked(ks, []byte(testPassword), func(ks *Keystore) error {
		assert.False(t, ks.IsLocked())
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.True(t, ks.IsLocked())

	assert.Panics(t, func() {
		_ = WithUnlocked(ks, []byte(testPassword), func(*Keystore) error {
			panic("boom")
		})
	})
	assert.True(t, ks.IsLocked())
}

func TestRepository(t *testing.T) {
	repo := NewRepository(nil)
	ks := newTestKeystore(t, testPassword)

	require.NoError(t, repo.Insert(ks))
	checkManagerError(t, repo.Insert(ks), ErrAlreadyExists)

	got, err := repo.Get(ks.ID())
	require.NoError(t, err)
	assert.Same(t, ks, got)

	_, err = repo.Get("missing")
	checkManagerError(t, err, ErrNotExist)

	found, ok := repo.FindByKeyHash("512115eca3ae86646aeb06861d551e403b543509")
	require.True(t, ok)
	assert.Same(t, ks, found)

	info := mustInfo(t, coin.Litecoin, "TESTNET", "NONE")
	err = repo.Do(ks.ID(), []byte(testPassword), func(ks *Keystore) error {
		_, err := ks.DeriveCoin(info, address.BtcForkScheme{}, nil)
		return err
	})
	require.NoError(t, err)
	assert.True(t, ks.IsLocked())
	assert.Len(t, ks.Accounts(), 1)

	err = repo.Do(ks.ID(), []byte("wrong"), func(*Keystore) error { return nil })
	checkManagerError(t, err, ErrWrongPassphrase)

	checkManagerError(t, repo.Remove(ks.ID(), []byte("wrong")), ErrWrongPassphrase)
	require.NoError(t, repo.Remove(ks.ID(), []byte(testPassword)))
	assert.Empty(t, repo.List())
}

func TestRepositoryConcurrentDo(t *testing.T) {
	repo := NewRepository(nil)

	var ids []string
	for i := 0; i < 3; i++ {
		ks := newTestKeystore(t, fmt.Sprintf("password-%d", i))
		require.NoError(t, repo.Insert(ks))
		ids = append(ids, ks.ID())
	}

	info := mustInfo(t, coin.Bitcoin, "MAINNET", "NONE")

	const rounds = 4
	var wg sync.WaitGroup
	errs := make(chan error, len(ids)*rounds)
	for i, id := range ids {
		for r := 0; r < rounds; r++ {
			wg.Add(1)
			go func(id, password string) {
				defer wg.Done()
				errs <- repo.Do(id, []byte(password), func(ks *Keystore) error {
					_, err := ks.DeriveCoin(info, address.BtcForkScheme{}, nil)
					return err
				})
			}(id, fmt.Sprintf("password-%d", i))
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	for _, ks := range repo.List() {
		assert.True(t, ks.IsLocked())
		assert.Len(t, ks.Accounts(), rounds)
	}
}

func TestRepositoryPersistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "wallet.db")
	db, err := walletdb.Create("bdb", dbPath, testDBOptions)
	require.NoError(t, err)

	store, err := NewDBStore(db)
	require.NoError(t, err)

	repo := NewRepository(store)
	ks := newTestKeystore(t, testPassword)
	require.NoError(t, repo.Insert(ks))

	pk, err := Unmarshal([]byte(pkKeystoreJSON))
	require.NoError(t, err)
	require.NoError(t, repo.Insert(pk))

	info := mustInfo(t, coin.BitcoinCash, "MAINNET", "NONE")
	err = repo.Do(ks.ID(), []byte(testPassword), func(ks *Keystore) error {
		_, err := ks.DeriveCoin(info, address.CashAddrScheme{}, nil)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = walletdb.Open("bdb", dbPath, testDBOptions)
	require.NoError(t, err)
	defer db.Close()

	// Reopening an upgraded namespace is a no-op.
	store, err = NewDBStore(db)
	require.NoError(t, err)

	reloaded := NewRepository(store)
	require.NoError(t, reloaded.Load())
	require.Len(t, reloaded.List(), 2)

	got, err := reloaded.Get(ks.ID())
	require.NoError(t, err)
	assert.True(t, got.IsLocked())
	assert.Equal(t, ks.KeyHash(), got.KeyHash())

	acct, ok := got.Account(coin.BitcoinCash)
	require.True(t, ok)
	assert.Equal(t, bchAddress, acct.Address)

	err = reloaded.Do(got.ID(), []byte(testPassword), func(ks *Keystore) error {
		mnemonic, err := ks.Export()
		assert.Equal(t, testMnemonic, mnemonic)
		return err
	})
	require.NoError(t, err)

	require.NoError(t, reloaded.Remove(pk.ID(), []byte(pkPassword)))

	final := NewRepository(store)
	require.NoError(t, final.Load())
	require.Len(t, final.List(), 1)
}

// memBackend keeps keystores in a map and fails puts while failPut is set.
type memBackend struct {
	data    map[string][]byte
	failPut bool
}

func (b *memBackend) PutKeystore(id string, data []byte) error {
	if b.failPut {
		return errors.New("disk full")
	}
	b.data[id] = data
	return nil
}

func (b *memBackend) DeleteKeystore(id string) error {
	delete(b.data, id)
	return nil
}

func (b *memBackend) ForEachKeystore(fn func(id string, data []byte) error) error {
	for id, data := range b.data {
		if err := fn(id, data); err != nil {
			return err
		}
	}
	return nil
}

func TestRepositoryDoRollsBack(t *testing.T) {
	backend := &memBackend{data: make(map[string][]byte)}
	repo := NewRepository(backend)
	ks := newTestKeystore(t, testPassword)
	require.NoError(t, repo.Insert(ks))

	info := mustInfo(t, coin.Litecoin, "TESTNET", "NONE")
	derive := func(ks *Keystore) error {
		_, err := ks.DeriveCoin(info, address.BtcForkScheme{}, nil)
		return err
	}

	// A step failing after a successful derivation drops the account.
	errBoom := errors.New("boom")
	err := repo.Do(ks.ID(), []byte(testPassword), func(ks *Keystore) error {
		if err := derive(ks); err != nil {
			return err
		}
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, ks.Accounts())

	assert.Panics(t, func() {
		_ = repo.Do(ks.ID(), []byte(testPassword), func(ks *Keystore) error {
			_ = derive(ks)
			panic("boom")
		})
	})
	assert.Empty(t, ks.Accounts())

	// A failed save leaves memory as it was on disk.
	backend.failPut = true
	err = repo.Do(ks.ID(), []byte(testPassword), derive)
	checkManagerError(t, err, ErrDatabase)
	assert.Empty(t, ks.Accounts())

	backend.failPut = false
	require.NoError(t, repo.Do(ks.ID(), []byte(testPassword), derive))
	require.Len(t, ks.Accounts(), 1)

	reloaded := NewRepository(backend)
	require.NoError(t, reloaded.Load())
	got, err := reloaded.Get(ks.ID())
	require.NoError(t, err)
	assert.Len(t, got.Accounts(), 1)
}
