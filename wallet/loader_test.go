package wallet

import (
	"github.com/czh0526/tokencore/coin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"testing"
	"time"
)

func TestLoader(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "testnet")
	loader := NewLoader(dir, true, time.Second, testConfig())

	_, err := loader.OpenExistingWallet()
	assert.ErrorIs(t, err, ErrNotExist)
	assert.ErrorIs(t, loader.UnloadWallet(), ErrNotLoaded)

	var loaded *Wallet
	loader.RunAfterLoad(func(w *Wallet) { loaded = w })

	w, err := loader.CreateNewWallet()
	require.NoError(t, err)
	assert.Same(t, w, loaded)

	_, err = loader.CreateNewWallet()
	assert.ErrorIs(t, err, ErrLoaded)

	got, ok := loader.LoadedWallet()
	require.True(t, ok)
	assert.Same(t, w, got)

	ks, err := w.ImportMnemonic(testMnemonic, []byte(testPassword), WalletMeta{})
	require.NoError(t, err)
	_, err = w.DeriveAccounts(ks.ID(), []byte(testPassword), []DeriveRequest{ltcTestnet})
	require.NoError(t, err)

	require.NoError(t, loader.UnloadWallet())
	_, ok = loader.LoadedWallet()
	assert.False(t, ok)

	_, err = loader.CreateNewWallet()
	assert.ErrorIs(t, err, ErrExists)

	w, err = loader.OpenExistingWallet()
	require.NoError(t, err)
	defer loader.UnloadWallet()

	// Callbacks added after the load run at once.
	ran := false
	loader.RunAfterLoad(func(*Wallet) { ran = true })
	assert.True(t, ran)

	require.Len(t, w.List(), 1)
	reopened, err := w.Keystore(ks.ID())
	require.NoError(t, err)
	acct, ok := reopened.Account(coin.Litecoin)
	require.True(t, ok)
	assert.Equal(t, ltcAddress, acct.Address)

	signed, err := w.SignTx(ltcRequest(ks.ID()))
	require.NoError(t, err)
	assert.Equal(t, ltcTxHash, signed.TxHash)
}

func TestLoaderBackup(t *testing.T) {
	loader := NewLoader(t.TempDir(), true, time.Second, testConfig())

	backupDir := t.TempDir()
	backupPath := filepath.Join(backupDir, WalletDBName)
	assert.ErrorIs(t, loader.Backup(backupPath), ErrNotLoaded)

	w, err := loader.CreateNewWallet()
	require.NoError(t, err)
	ks, err := w.ImportMnemonic(testMnemonic, []byte(testPassword), WalletMeta{})
	require.NoError(t, err)

	require.NoError(t, loader.Backup(backupPath))
	assert.Error(t, loader.Backup(backupPath), "overwrote a backup")
	require.NoError(t, loader.UnloadWallet())

	restored := NewLoader(backupDir, true, time.Second, testConfig())
	w, err = restored.OpenExistingWallet()
	require.NoError(t, err)
	defer restored.UnloadWallet()

	got, err := w.Keystore(ks.ID())
	require.NoError(t, err)
	assert.Equal(t, ks.KeyHash(), got.KeyHash())
}

func TestCheckCreateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, checkCreateDir(dir))
	require.NoError(t, checkCreateDir(dir))

	exists, err := fileExists(dir)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = fileExists(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.False(t, exists)
}
