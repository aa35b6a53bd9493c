package main

import (
	"bytes"
	"encoding/json"
	"github.com/czh0526/tokencore/internal/prompt"
	"github.com/czh0526/tokencore/keycrypt"
	"github.com/czh0526/tokencore/keystore"
	"github.com/czh0526/tokencore/txauthor"
	"github.com/czh0526/tokencore/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const (
	testMnemonic = "inject kidney empty canal shadow pact comfort wife crush horse wife sketch"
	testPassword = "imtoken1"
)

func newTestWallet(t *testing.T) *wallet.Wallet {
	t.Helper()

	w, err := wallet.New(keystore.NewRepository(nil),
		wallet.Config{KDF: &keycrypt.FastParameters})
	require.NoError(t, err)
	return w
}

func testIO(input string) (*actionIO, *bytes.Buffer) {
	var out bytes.Buffer
	return &actionIO{
		prompt: prompt.NewWithReader(strings.NewReader(input), &out),
		out:    &out,
	}, &out
}

func TestParseDeriveList(t *testing.T) {
	reqs, err := parseDeriveList("litecoin, BITCOIN:p2wpkh,", "TESTNET")
	require.NoError(t, err)
	assert.Equal(t, []wallet.DeriveRequest{
		{Chain: "LITECOIN", Network: "TESTNET"},
		{Chain: "BITCOIN", Network: "TESTNET", SegWit: "P2WPKH"},
	}, reqs)

	for _, bad := range []string{"", ",", "BITCOIN:P2WPKH:X"} {
		_, err := parseDeriveList(bad, "MAINNET")
		assert.Error(t, err, bad)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config)
		valid  bool
	}{
		{"list", func(c *config) { c.List = true }, true},
		{"no action", func(*config) {}, false},
		{"two actions", func(c *config) { c.List, c.Create = true, true }, false},
		{"derive without id", func(c *config) { c.Derive = "BITCOIN" }, false},
		{"derive", func(c *config) { c.Derive, c.ID = "BITCOIN", "x" }, true},
		{"bad level", func(c *config) { c.List, c.DebugLevel = true, "loud" }, false},
		{"subsystem level", func(c *config) { c.List, c.DebugLevel = true, "KSTR=debug,TXAU=trace" }, true},
		{"bad subsystem", func(c *config) { c.List, c.DebugLevel = true, "NOPE=debug" }, false},
		{"zero rounds", func(c *config) { c.List, c.KDFRounds = true, 0 }, false},
		{"backup", func(c *config) { c.Backup = "wallet.bak" }, true},
		{"backup and list", func(c *config) { c.Backup, c.List = "wallet.bak", true }, false},
	}

	for _, test := range tests {
		cfg := defaultConfig()
		test.modify(&cfg)
		err := validateConfig(&cfg)
		if test.valid {
			assert.NoError(t, err, test.name)
		} else {
			assert.Error(t, err, test.name)
		}
	}
	setLogLevels(defaultLogLevel)
}

func TestNetworkDir(t *testing.T) {
	cfg := defaultConfig()
	cfg.AppDataDir = "/data"
	assert.Equal(t, filepath.Join("/data", "mainnet"), cfg.networkDir())

	cfg.TestNet3 = true
	assert.Equal(t, filepath.Join("/data", "testnet"), cfg.networkDir())
	assert.Equal(t, "TESTNET", cfg.network())
}

func TestRunActions(t *testing.T) {
	w := newTestWallet(t)
	cfg := defaultConfig()
	cfg.TestNet3 = true

	// Import: mnemonic, password twice and an empty hint.
	a, out := testIO(testMnemonic + "\n" + testPassword + "\n" +
		testPassword + "\n\n")
	cfg.Import = true
	require.NoError(t, runAction(w, &cfg, a))
	cfg.Import = false
	require.Len(t, w.List(), 1)
	id := w.List()[0].ID()
	assert.Contains(t, out.String(), id)

	a, out = testIO(testPassword + "\n")
	cfg.ID, cfg.Derive = id, "LITECOIN"
	require.NoError(t, runAction(w, &cfg, a))
	cfg.Derive = ""

	var accounts []*keystore.Account
	require.NoError(t, json.Unmarshal(accountsJSON(out.String()), &accounts))
	require.Len(t, accounts, 1)
	assert.Equal(t, "mkeNU5nVnozJiaACDELLCsVUc8Wxoh1rQN", accounts[0].Address)

	req := wallet.SignTxRequest{
		Chain:  "LITECOIN",
		SegWit: "NONE",
		To:     "mmuf77YiGckWgfvd32viaj7EKfrUN1FdAz",
		Amount: 100000,
		Fee:    5902,
		Unspents: []txauthor.Utxo{{
			TxHash:      "57c935201d6abf4b32151f9d96bfb51b058824a601011c3432e751b0a6d4a101",
			Amount:      1000000,
			Address:     "mkeNU5nVnozJiaACDELLCsVUc8Wxoh1rQN",
			DerivedPath: "0/0",
		}},
	}
	b, err := json.Marshal(&req)
	require.NoError(t, err)
	reqFile := filepath.Join(t.TempDir(), "tx.json")
	require.NoError(t, os.WriteFile(reqFile, b, 0600))

	a, out = testIO(testPassword + "\n")
	cfg.SignTx = reqFile
	require.NoError(t, runAction(w, &cfg, a))
	cfg.SignTx = ""
	assert.Contains(t, out.String(),
		"f90dd185c2a14fa29b9644f4087eecf64fd87d5c60f8e36f790054a4b55450e1")

	a, out = testIO("")
	cfg.List = true
	require.NoError(t, runAction(w, &cfg, a))
	cfg.List = false
	assert.Contains(t, out.String(), "mkeNU5nVnozJiaACDELLCsVUc8Wxoh1rQN")
	assert.NotContains(t, out.String(), testMnemonic)

	a, out = testIO(testPassword + "\n")
	cfg.Export = true
	require.NoError(t, runAction(w, &cfg, a))
	cfg.Export = false
	assert.Contains(t, out.String(), testMnemonic)

	// Declining the confirmation keeps the keystore.
	a, _ = testIO("n\n")
	cfg.Remove = true
	require.NoError(t, runAction(w, &cfg, a))
	require.Len(t, w.List(), 1)

	a, _ = testIO("y\nwrong\n")
	err = runAction(w, &cfg, a)
	assert.True(t, strings.HasPrefix(describeError(err), "password_incorrect"))

	a, _ = testIO("y\n" + testPassword + "\n")
	require.NoError(t, runAction(w, &cfg, a))
	assert.Empty(t, w.List())
}

// accountsJSON cuts the JSON array printed after the password prompt.
func accountsJSON(out string) []byte {
	return []byte(out[strings.Index(out, "["):])
}

func TestCreateAction(t *testing.T) {
	w := newTestWallet(t)
	cfg := defaultConfig()
	cfg.Create, cfg.Name = true, "main"

	a, out := testIO("pw\npw\nhint\n")
	require.NoError(t, runAction(w, &cfg, a))

	require.Len(t, w.List(), 1)
	ks := w.List()[0]
	assert.Equal(t, "main", ks.Meta().Name)
	assert.Equal(t, "hint", ks.Meta().PasswordHint)

	mnemonic, err := w.ExportMnemonic(ks.ID(), []byte("pw"))
	require.NoError(t, err)
	assert.Contains(t, out.String(), mnemonic)
}

func TestDescribeError(t *testing.T) {
	_, err := newTestWallet(t).Export("missing", []byte("pw"))
	assert.True(t, strings.HasPrefix(describeError(err), "keystore_not_found"))

	assert.True(t, strings.HasPrefix(
		describeError(txauthor.ErrInsufficientFunds), "insufficient_funds"))
	assert.True(t, strings.HasPrefix(
		describeError(txauthor.ErrInvalidAmount), "invalid_amount"))
}

func TestWalletConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.KDFRounds = 2048
	wc := cfg.walletConfig()
	assert.Equal(t, keycrypt.KDFPBKDF2, cfg.KDF)
	assert.EqualValues(t, 2048, wc.KDF.C)
	assert.Equal(t, wallet.DefaultXPubKey, wc.XPubKey)

	cfg.KDF = keycrypt.KDFScrypt
	wc = cfg.walletConfig()
	assert.Equal(t, keycrypt.KDFScrypt, wc.KDF.KDF)
	assert.EqualValues(t, 1<<18, wc.KDF.N)

	// The defaults are never modified.
	assert.EqualValues(t, 10240, keycrypt.DefaultParameters.C)
}

func TestBackupWallet(t *testing.T) {
	cfg := defaultConfig()
	cfg.Backup = filepath.Join(t.TempDir(), "wallet.bak")

	loader := wallet.NewLoader(t.TempDir(), true, time.Second,
		wallet.Config{KDF: &keycrypt.FastParameters})
	_, err := loader.CreateNewWallet()
	require.NoError(t, err)
	defer loader.UnloadWallet()

	var out bytes.Buffer
	require.NoError(t, backupWallet(loader, &cfg, &out))
	assert.Contains(t, out.String(), cfg.Backup)

	info, err := os.Stat(cfg.Backup)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}
