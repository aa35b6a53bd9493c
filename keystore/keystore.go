// Package keystore keeps a password protected secret, either a BIP39
// mnemonic or a single private key, and derives chain accounts and signing
// keys from it.
package keystore

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/czh0526/tokencore/address"
	"github.com/czh0526/tokencore/coin"
	"github.com/czh0526/tokencore/internal/zero"
	"github.com/czh0526/tokencore/key"
	"github.com/czh0526/tokencore/keycrypt"
	"github.com/czh0526/tokencore/seed"
	"github.com/google/uuid"
	"sync"
	"time"
)

const (
	// HDVersion marks a keystore whose secret is a mnemonic.
	HDVersion = 11000

	// PrivateKeyVersion marks a keystore whose secret is one raw key.
	PrivateKeyVersion = 11001

	keyHashSize = 20

	defaultName = "Unknown"
)

// Source records how the secret entered the wallet.
type Source string

const (
	SourceWIF               Source = "WIF"
	SourcePrivate           Source = "PRIVATE"
	SourceKeystore          Source = "KEYSTORE"
	SourceMnemonic          Source = "MNEMONIC"
	SourceNewIdentity       Source = "NEW_IDENTITY"
	SourceRecoveredIdentity Source = "RECOVERED_IDENTITY"
)

type Meta struct {
	Name         string `json:"name"`
	PasswordHint string `json:"passwordHint"`
	Timestamp    int64  `json:"timestamp"`
	Source       Source `json:"source"`
}

// NewMeta returns the metadata of a wallet created now from a mnemonic.
func NewMeta() Meta {
	return Meta{
		Name:      defaultName,
		Timestamp: time.Now().Unix(),
		Source:    SourceMnemonic,
	}
}

// Store is the persisted form of a keystore.
type Store struct {
	ID             string           `json:"id"`
	Version        int              `json:"version"`
	KeyHash        string           `json:"keyHash"`
	Crypto         *keycrypt.Crypto `json:"crypto"`
	ActiveAccounts []*Account       `json:"activeAccounts"`
	Meta           Meta             `json:"imTokenMeta"`
}

// Keystore is a Store plus the secret it protects while unlocked.
type Keystore struct {
	mtx sync.RWMutex

	store Store

	// Set while unlocked. HD keystores hold mnemonic and seed, private key
	// keystores hold privKey.
	mnemonic string
	seed     []byte
	privKey  []byte

	// acctKeys caches account level nodes by address for path lookups.
	acctKeys map[string]key.DeterministicPrivateKey

	locked bool

	// dirty is set when the persisted form changed since the last save.
	dirty bool
}

// keyHash identifies a secret without revealing it.
func keyHash(secret []byte) string {
	return hex.EncodeToString(chainhash.DoubleHashB(secret)[:keyHashSize])
}

// NewHDKeystore creates a keystore around a fresh mnemonic.
func NewHDKeystore(password []byte, meta Meta,
	params *keycrypt.Parameters) (*Keystore, error) {

	mnemonic, err := seed.NewMnemonic()
	if err != nil {
		return nil, managerError(ErrCrypto, "failed to generate mnemonic", err)
	}
	return FromMnemonic(mnemonic, password, meta, params)
}

// FromMnemonic creates a locked HD keystore protecting mnemonic.
func FromMnemonic(mnemonic string, password []byte, meta Meta,
	params *keycrypt.Parameters) (*Keystore, error) {

	mnemonic = seed.NormalizeMnemonic(mnemonic)
	s, err := seed.SeedFromMnemonic(mnemonic)
	if err != nil {
		return nil, managerError(ErrInvalidMnemonic, "", err)
	}
	hash := keyHash(s)
	zero.Bytes(s)

	crypto, err := keycrypt.New(password, []byte(mnemonic), params)
	if err != nil {
		return nil, managerError(ErrCrypto, "failed to encrypt mnemonic", err)
	}

	return newKeystore(HDVersion, hash, crypto, meta), nil
}

// FromPrivateKey creates a locked keystore protecting the hex encoded
// secp256k1 key privHex.
func FromPrivateKey(privHex string, password []byte, meta Meta,
	params *keycrypt.Parameters) (*Keystore, error) {

	priv, err := hex.DecodeString(privHex)
	if err != nil {
		return nil, managerError(ErrInvalidPrivateKey, "", err)
	}
	defer zero.Bytes(priv)

	if _, err := key.NewSecp256k1PrivateKey(priv); err != nil {
		return nil, managerError(ErrInvalidPrivateKey, "", err)
	}

	crypto, err := keycrypt.New(password, priv, params)
	if err != nil {
		return nil, managerError(ErrCrypto, "failed to encrypt private key", err)
	}

	return newKeystore(PrivateKeyVersion, keyHash(priv), crypto, meta), nil
}

func newKeystore(version int, hash string, crypto *keycrypt.Crypto,
	meta Meta) *Keystore {

	return &Keystore{
		store: Store{
			ID:             uuid.NewString(),
			Version:        version,
			KeyHash:        hash,
			Crypto:         crypto,
			ActiveAccounts: []*Account{},
			Meta:           meta,
		},
		locked: true,
	}
}

// Unmarshal restores a locked keystore from its JSON form.
func Unmarshal(b []byte) (*Keystore, error) {
	var store Store
	if err := json.Unmarshal(b, &store); err != nil {
		return nil, managerError(ErrCrypto, "malformed keystore", err)
	}
	if store.Version != HDVersion && store.Version != PrivateKeyVersion {
		str := fmt.Sprintf("unsupported keystore version %d", store.Version)
		return nil, managerError(ErrInvalidVersion, str, nil)
	}
	if store.Crypto == nil {
		return nil, managerError(ErrCrypto, "keystore has no crypto section", nil)
	}
	if store.ActiveAccounts == nil {
		store.ActiveAccounts = []*Account{}
	}

	return &Keystore{store: store, locked: true}, nil
}

// Marshal returns the JSON form of the keystore. The secret only appears
// encrypted.
func (k *Keystore) Marshal() ([]byte, error) {
	k.mtx.RLock()
	defer k.mtx.RUnlock()

	return json.Marshal(&k.store)
}

// takeDirty reports and clears the unsaved state.
func (k *Keystore) takeDirty() bool {
	k.mtx.Lock()
	defer k.mtx.Unlock()

	dirty := k.dirty
	k.dirty = false
	return dirty
}

// accountsSnapshot returns the current account list. Accounts are never
// mutated in place, so sharing the pointers is safe.
func (k *Keystore) accountsSnapshot() []*Account {
	k.mtx.RLock()
	defer k.mtx.RUnlock()

	return append([]*Account{}, k.store.ActiveAccounts...)
}

// restoreAccounts puts back a list taken by accountsSnapshot and forgets
// any unsaved change.
func (k *Keystore) restoreAccounts(accts []*Account) {
	k.mtx.Lock()
	defer k.mtx.Unlock()

	k.store.ActiveAccounts = accts
	k.dirty = false
}

func (k *Keystore) ID() string {
	return k.store.ID
}

func (k *Keystore) KeyHash() string {
	return k.store.KeyHash
}

func (k *Keystore) Meta() Meta {
	k.mtx.RLock()
	defer k.mtx.RUnlock()

	return k.store.Meta
}

// Determinable reports whether the keystore holds a mnemonic and so can
// derive accounts at arbitrary paths.
func (k *Keystore) Determinable() bool {
	return k.store.Version == HDVersion
}

func (k *Keystore) IsLocked() bool {
	k.mtx.RLock()
	defer k.mtx.RUnlock()

	return k.isLocked()
}

func (k *Keystore) isLocked() bool {
	return k.locked
}

// VerifyPassword reports whether password opens the keystore. It does not
// change the lock state.
func (k *Keystore) VerifyPassword(password []byte) bool {
	return k.store.Crypto.VerifyPassword(password)
}

// Unlock decrypts the secret and keeps it until Lock. The derived key of
// password is cached for the same period.
func (k *Keystore) Unlock(password []byte) error {
	k.mtx.Lock()
	defer k.mtx.Unlock()

	k.lock()

	// Caching first verifies the mac and spares Decrypt a second KDF run.
	if err := k.store.Crypto.CacheDerivedKey(password); err != nil {
		if errors.Is(err, keycrypt.ErrInvalidPassword) {
			return managerError(ErrWrongPassphrase, "", nil)
		}
		return managerError(ErrCrypto, "failed to derive keystore key", err)
	}

	plaintext, err := k.store.Crypto.Decrypt(password)
	if err != nil {
		k.lock()
		return managerError(ErrCrypto, "failed to decrypt keystore", err)
	}
	defer zero.Bytes(plaintext)

	if k.Determinable() {
		mnemonic := string(plaintext)
		s, err := seed.SeedFromMnemonic(mnemonic)
		if err != nil {
			k.lock()
			return managerError(ErrInvalidMnemonic, "", err)
		}
		k.mnemonic = mnemonic
		k.seed = s
		k.acctKeys = make(map[string]key.DeterministicPrivateKey)
	} else {
		k.privKey = append([]byte(nil), plaintext...)
	}

	k.locked = false
	log.Debugf("Unlocked keystore %s", k.store.ID)
	return nil
}

// Lock drops the secret and every key derived from it.
func (k *Keystore) Lock() {
	k.mtx.Lock()
	defer k.mtx.Unlock()

	k.lock()
}

func (k *Keystore) lock() {
	zero.Bytes(k.seed)
	zero.Bytes(k.privKey)
	k.seed = nil
	k.privKey = nil
	k.mnemonic = ""
	k.acctKeys = nil
	k.store.Crypto.ClearCache()

	k.locked = true
}

// Export returns the secret: the mnemonic of an HD keystore or the hex
// private key otherwise.
func (k *Keystore) Export() (string, error) {
	k.mtx.RLock()
	defer k.mtx.RUnlock()

	if k.isLocked() {
		return "", managerError(ErrLocked, "", nil)
	}
	if k.Determinable() {
		return k.mnemonic, nil
	}
	return hex.EncodeToString(k.privKey), nil
}

// DeriveCoin adds the account of info to the keystore. addrScheme formats
// the address and extraScheme, when not nil, fills Account.Extra.
func (k *Keystore) DeriveCoin(info coin.Info, addrScheme address.Scheme,
	extraScheme address.ExtraScheme) (*Account, error) {

	k.mtx.Lock()
	defer k.mtx.Unlock()

	if k.isLocked() {
		return nil, managerError(ErrLocked, "", nil)
	}
	if extraScheme == nil {
		extraScheme = address.NoExtra{}
	}

	var (
		acct *Account
		err  error
	)
	if k.Determinable() {
		acct, err = k.deriveHDAccount(info, addrScheme)
	} else {
		acct, err = k.derivePrivateKeyAccount(info, addrScheme)
	}
	if err != nil {
		return nil, err
	}

	acct.Extra, err = extraScheme.Extra(acct.ExtPubKey, info)
	if err != nil {
		return nil, maybeConvertKeyError(err, "failed to compute account extra")
	}

	if !k.Determinable() {
		for _, a := range k.store.ActiveAccounts {
			if a.Address == acct.Address && a.Coin == acct.Coin {
				return a.clone(), nil
			}
		}
	}
	k.store.ActiveAccounts = append(k.store.ActiveAccounts, acct)
	k.dirty = true

	log.Infof("Derived %s account for keystore %s", info.Coin, k.store.ID)
	return acct.clone(), nil
}

func (k *Keystore) root(curve key.CurveType) (key.DeterministicPrivateKey, error) {
	if curve == key.CurveSr25519 {
		return key.NewSr25519MasterFromMnemonic(k.mnemonic)
	}
	return key.NewDeterministicPrivateKey(curve, k.seed)
}

func (k *Keystore) deriveHDAccount(info coin.Info,
	addrScheme address.Scheme) (*Account, error) {

	root, err := k.root(info.Curve)
	if err != nil {
		return nil, maybeConvertKeyError(err, "failed to create root key")
	}

	child, err := root.Derive(info.DerivationPath)
	if err != nil {
		return nil, maybeConvertKeyError(err, "failed to derive "+info.DerivationPath)
	}

	addr, err := addrScheme.FromPublicKey(child.PrivateKey().PublicKey(), info)
	if err != nil {
		return nil, maybeConvertKeyError(err, "failed to encode address")
	}

	var extPubKey string
	if info.Curve == key.CurveSecp256k1 {
		extPubKey, err = accountExtPubKey(root, info.DerivationPath)
		if err != nil {
			return nil, err
		}
	}

	return &Account{
		Address:        addr,
		DerivationPath: info.DerivationPath,
		Curve:          info.Curve,
		Coin:           info.Coin,
		Network:        info.Network,
		SegWit:         info.SegWit,
		ExtPubKey:      extPubKey,
	}, nil
}

// accountExtPubKey returns the compact hex form of the public node at the
// account level of path.
func accountExtPubKey(root key.DeterministicPrivateKey, path string) (string, error) {
	acctPath, err := key.AccountPath(path)
	if err != nil {
		return "", maybeConvertKeyError(err, "failed to find account path")
	}
	acct, err := root.Derive(acctPath)
	if err != nil {
		return "", maybeConvertKeyError(err, "failed to derive "+acctPath)
	}
	dpub, err := acct.DeterministicPublicKey()
	if err != nil {
		return "", managerError(ErrKeyChain, "failed to neuter account key", err)
	}

	xpub, ok := dpub.(*key.Secp256k1DeterministicPublicKey)
	if !ok {
		return "", managerError(ErrUnsupportedCurve, "", nil)
	}
	ek := xpub.ExtendedKey()
	return ek.CompactHex(), nil
}

func (k *Keystore) derivePrivateKeyAccount(info coin.Info,
	addrScheme address.Scheme) (*Account, error) {

	priv, err := key.PrivateKeyFromBytes(info.Curve, k.privKey)
	if err != nil {
		return nil, maybeConvertKeyError(err, "failed to load private key")
	}

	addr, err := addrScheme.FromPublicKey(priv.PublicKey(), info)
	if err != nil {
		return nil, maybeConvertKeyError(err, "failed to encode address")
	}

	return &Account{
		Address: addr,
		Curve:   info.Curve,
		Coin:    info.Coin,
		Network: info.Network,
		SegWit:  info.SegWit,
	}, nil
}

// Accounts returns a copy of every derived account in derivation order.
func (k *Keystore) Accounts() []*Account {
	k.mtx.RLock()
	defer k.mtx.RUnlock()

	accts := make([]*Account, 0, len(k.store.ActiveAccounts))
	for _, a := range k.store.ActiveAccounts {
		accts = append(accts, a.clone())
	}
	return accts
}

// Account returns the first account of coinSymbol.
func (k *Keystore) Account(coinSymbol string) (*Account, bool) {
	k.mtx.RLock()
	defer k.mtx.RUnlock()

	for _, a := range k.store.ActiveAccounts {
		if a.Coin == coinSymbol {
			return a.clone(), true
		}
	}
	return nil, false
}

func (k *Keystore) AccountByAddress(coinSymbol, addr string) (*Account, bool) {
	k.mtx.RLock()
	defer k.mtx.RUnlock()

	a := k.account(coinSymbol, addr)
	if a == nil {
		return nil, false
	}
	return a.clone(), true
}

func (k *Keystore) account(coinSymbol, addr string) *Account {
	for _, a := range k.store.ActiveAccounts {
		if a.Coin == coinSymbol && a.Address == addr {
			return a
		}
	}
	return nil
}

// FindPrivateKey returns the key of the account at addr. Private key
// keystores match on the address alone.
func (k *Keystore) FindPrivateKey(coinSymbol, addr string) (key.PrivateKey, error) {
	k.mtx.RLock()
	defer k.mtx.RUnlock()

	if k.isLocked() {
		return nil, managerError(ErrLocked, "", nil)
	}

	if !k.Determinable() {
		return k.findImportedKey(addr)
	}

	acct := k.account(coinSymbol, addr)
	if acct == nil {
		return nil, accountNotFound(coinSymbol, addr)
	}
	root, err := k.root(acct.Curve)
	if err != nil {
		return nil, maybeConvertKeyError(err, "failed to create root key")
	}
	child, err := root.Derive(acct.DerivationPath)
	if err != nil {
		return nil, maybeConvertKeyError(err, "failed to derive "+acct.DerivationPath)
	}
	return child.PrivateKey(), nil
}

func (k *Keystore) findImportedKey(addr string) (key.PrivateKey, error) {
	for _, a := range k.store.ActiveAccounts {
		if a.Address != addr {
			continue
		}
		priv, err := key.PrivateKeyFromBytes(a.Curve, k.privKey)
		if err != nil {
			return nil, maybeConvertKeyError(err, "failed to load private key")
		}
		return priv, nil
	}
	return nil, accountNotFound("", addr)
}

// FindPrivateKeyByPath derives relPath below the account level node of the
// account at addr. Private key keystores ignore relPath.
func (k *Keystore) FindPrivateKeyByPath(coinSymbol, addr,
	relPath string) (key.PrivateKey, error) {

	k.mtx.Lock()
	defer k.mtx.Unlock()

	return k.findPrivateKeyByPath(coinSymbol, addr, relPath)
}

func (k *Keystore) findPrivateKeyByPath(coinSymbol, addr,
	relPath string) (key.PrivateKey, error) {

	if k.isLocked() {
		return nil, managerError(ErrLocked, "", nil)
	}

	if !k.Determinable() {
		return k.findImportedKey(addr)
	}

	acctKey, ok := k.acctKeys[addr]
	if !ok {
		acct := k.account(coinSymbol, addr)
		if acct == nil {
			return nil, accountNotFound(coinSymbol, addr)
		}

		acctPath, err := key.AccountPath(acct.DerivationPath)
		if err != nil {
			return nil, maybeConvertKeyError(err, "failed to find account path")
		}
		root, err := k.root(acct.Curve)
		if err != nil {
			return nil, maybeConvertKeyError(err, "failed to create root key")
		}
		acctKey, err = root.Derive(acctPath)
		if err != nil {
			return nil, maybeConvertKeyError(err, "failed to derive "+acctPath)
		}
		k.acctKeys[addr] = acctKey
	}

	child, err := acctKey.Derive(relPath)
	if err != nil {
		return nil, maybeConvertKeyError(err, "failed to derive "+relPath)
	}
	return child.PrivateKey(), nil
}

// KeyAtPaths returns one key per relative path, in order, below the
// account level node of the first account of coinSymbol.
func (k *Keystore) KeyAtPaths(coinSymbol string,
	relPaths []string) ([]key.PrivateKey, error) {

	k.mtx.Lock()
	defer k.mtx.Unlock()

	if k.isLocked() {
		return nil, managerError(ErrLocked, "", nil)
	}

	var acct *Account
	for _, a := range k.store.ActiveAccounts {
		if a.Coin == coinSymbol {
			acct = a
			break
		}
	}
	if acct == nil {
		return nil, accountNotFound(coinSymbol, "")
	}

	keys := make([]key.PrivateKey, 0, len(relPaths))
	for _, path := range relPaths {
		priv, err := k.findPrivateKeyByPath(coinSymbol, acct.Address, path)
		if err != nil {
			return nil, err
		}
		keys = append(keys, priv)
	}
	return keys, nil
}

// FindDeterministicPublicKey rebuilds the account level public node of the
// account at addr. It works on a locked keystore.
func (k *Keystore) FindDeterministicPublicKey(coinSymbol,
	addr string) (key.DeterministicPublicKey, error) {

	k.mtx.RLock()
	defer k.mtx.RUnlock()

	if !k.Determinable() {
		return nil, managerError(ErrNotDeterministic, "", nil)
	}

	acct := k.account(coinSymbol, addr)
	if acct == nil {
		return nil, accountNotFound(coinSymbol, addr)
	}
	if acct.Curve != key.CurveSecp256k1 || acct.ExtPubKey == "" {
		str := fmt.Sprintf("no extended public key for %s", acct.Curve)
		return nil, managerError(ErrUnsupportedCurve, str, nil)
	}

	xpub, err := key.ParseSecp256k1DeterministicPublicKey(acct.ExtPubKey)
	if err != nil {
		return nil, managerError(ErrKeyChain, "failed to parse extended public key", err)
	}
	return xpub, nil
}

func accountNotFound(coinSymbol, addr string) error {
	str := fmt.Sprintf("no %s account", coinSymbol)
	if addr != "" {
		str = fmt.Sprintf("no %s account at %s", coinSymbol, addr)
	}
	return managerError(ErrAccountNotFound, str, nil)
}

// maybeConvertKeyError maps the errors of the key, coin and address
// packages to keystore error codes.
func maybeConvertKeyError(err error, desc string) error {
	if _, ok := Code(err); ok {
		return err
	}

	var code ErrorCode
	switch {
	case errors.Is(err, key.ErrUnsupportedCurve),
		errors.Is(err, address.ErrUnsupportedKey),
		errors.Is(err, key.ErrNotSupported):

		code = ErrUnsupportedCurve

	case errors.Is(err, key.ErrCannotDeriveFromHardenedKey):
		code = ErrCannotDeriveFromHardenedKey

	case errors.Is(err, key.ErrInvalidChildNumberFormat),
		errors.Is(err, key.ErrInvalidChildNumber),
		errors.Is(err, key.ErrPathTooShort):

		code = ErrInvalidPath

	case errors.Is(err, coin.ErrUnsupportedChain):
		code = ErrUnsupportedChain

	case errors.Is(err, address.ErrInvalidAddress),
		errors.Is(err, address.ErrInvalidCashAddr):

		code = ErrInvalidAddress

	case errors.Is(err, seed.ErrInvalidMnemonic):
		code = ErrInvalidMnemonic

	case errors.Is(err, key.ErrInvalidPrivateKey):
		code = ErrInvalidPrivateKey

	default:
		code = ErrKeyChain
	}
	return managerError(code, desc, err)
}
