// Package wallet ties the keystores of one database to chain accounts and
// transaction signing.
package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/czh0526/tokencore/address"
	"github.com/czh0526/tokencore/coin"
	"github.com/czh0526/tokencore/internal/zero"
	"github.com/czh0526/tokencore/key"
	"github.com/czh0526/tokencore/keycrypt"
	"github.com/czh0526/tokencore/keystore"
	"github.com/czh0526/tokencore/txauthor"
	"strings"
)

const (
	// DefaultXPubKey and DefaultXPubIV encrypt the account xpubs stored in
	// account extras.
	DefaultXPubKey = "B888D25EC8C12BD5043777B1AC49F872"
	DefaultXPubIV  = "9C0C30889CBCC5E01AB5B2BB88715799"
)

// Config carries the tunables of a Wallet. Zero values pick the defaults.
type Config struct {
	// KDF protects newly created keystores.
	KDF *keycrypt.Parameters

	XPubKey string
	XPubIV  string
}

// Wallet is the set of keystores of one database.
type Wallet struct {
	repo       *keystore.Repository
	kdf        *keycrypt.Parameters
	xpubCipher *address.XPubCipher
}

// New wraps repo. The loader is the usual way to get a Wallet, New serves
// memory-only repositories.
func New(repo *keystore.Repository, cfg Config) (*Wallet, error) {
	if cfg.KDF == nil {
		cfg.KDF = &keycrypt.DefaultParameters
	}
	if cfg.XPubKey == "" {
		cfg.XPubKey = DefaultXPubKey
	}
	if cfg.XPubIV == "" {
		cfg.XPubIV = DefaultXPubIV
	}

	xpubCipher, err := address.NewXPubCipher(cfg.XPubKey, cfg.XPubIV)
	if err != nil {
		return nil, err
	}

	return &Wallet{
		repo:       repo,
		kdf:        cfg.KDF,
		xpubCipher: xpubCipher,
	}, nil
}

// WalletMeta names a new keystore.
type WalletMeta struct {
	Name         string
	PasswordHint string
}

func (m WalletMeta) meta(source keystore.Source) keystore.Meta {
	meta := keystore.NewMeta()
	if m.Name != "" {
		meta.Name = m.Name
	}
	meta.PasswordHint = m.PasswordHint
	meta.Source = source
	return meta
}

// DeriveRequest names one account to derive. Curve may be empty when the
// chain has a single one.
type DeriveRequest struct {
	Chain   string        `json:"chainType"`
	Network string        `json:"network"`
	SegWit  string        `json:"segWit"`
	Curve   key.CurveType `json:"curve,omitempty"`
}

// SignTxRequest pays Amount to To from the account of Chain in keystore
// ID.
type SignTxRequest struct {
	ID                 string          `json:"id"`
	Password           string          `json:"password"`
	Chain              string          `json:"chainType"`
	Network            string          `json:"network"`
	SegWit             string          `json:"segWit"`
	To                 string          `json:"to"`
	Amount             int64           `json:"amount"`
	Fee                int64           `json:"fee"`
	Unspents           []txauthor.Utxo `json:"unspents"`
	ChangeAddressIndex uint32          `json:"changeAddressIndex"`
	ChangeAddress      string          `json:"changeAddress,omitempty"`
}

func (r *SignTxRequest) input() *txauthor.TxInput {
	return &txauthor.TxInput{
		To:                 r.To,
		Amount:             r.Amount,
		Unspents:           r.Unspents,
		Fee:                r.Fee,
		ChangeAddressIndex: r.ChangeAddressIndex,
		ChangeAddress:      r.ChangeAddress,
		Network:            r.Network,
		SegWit:             r.SegWit,
	}
}

// List returns every keystore, locked.
func (w *Wallet) List() []*keystore.Keystore {
	return w.repo.List()
}

func (w *Wallet) Keystore(id string) (*keystore.Keystore, error) {
	return w.repo.Get(id)
}

// CreateHD creates a keystore around a new mnemonic.
func (w *Wallet) CreateHD(password []byte, m WalletMeta) (*keystore.Keystore, error) {
	ks, err := keystore.NewHDKeystore(password,
		m.meta(keystore.SourceNewIdentity), w.kdf)
	if err != nil {
		return nil, err
	}
	if err := w.repo.Insert(ks); err != nil {
		return nil, err
	}

	log.Infof("Created keystore %s", ks.ID())
	return ks, nil
}

// ImportMnemonic stores mnemonic unless a keystore of the same seed already
// exists.
func (w *Wallet) ImportMnemonic(mnemonic string, password []byte,
	m WalletMeta) (*keystore.Keystore, error) {

	ks, err := keystore.FromMnemonic(mnemonic, password,
		m.meta(keystore.SourceMnemonic), w.kdf)
	if err != nil {
		return nil, err
	}
	if err := w.checkDuplicate(ks); err != nil {
		return nil, err
	}
	if err := w.repo.Insert(ks); err != nil {
		return nil, err
	}

	log.Infof("Imported mnemonic keystore %s", ks.ID())
	return ks, nil
}

// ImportPrivateKey stores a secp256k1 key given as WIF or hex.
func (w *Wallet) ImportPrivateKey(privKey string, password []byte,
	m WalletMeta) (*keystore.Keystore, error) {

	privHex, source := privKey, keystore.SourcePrivate
	if wif, err := btcutil.DecodeWIF(privKey); err == nil {
		raw := wif.PrivKey.Serialize()
		privHex, source = hex.EncodeToString(raw), keystore.SourceWIF
		zero.Bytes(raw)
	}

	ks, err := keystore.FromPrivateKey(strings.TrimPrefix(privHex, "0x"),
		password, m.meta(source), w.kdf)
	if err != nil {
		return nil, err
	}
	if err := w.checkDuplicate(ks); err != nil {
		return nil, err
	}
	if err := w.repo.Insert(ks); err != nil {
		return nil, err
	}

	log.Infof("Imported %s keystore %s", source, ks.ID())
	return ks, nil
}

func (w *Wallet) checkDuplicate(ks *keystore.Keystore) error {
	if existing, ok := w.repo.FindByKeyHash(ks.KeyHash()); ok {
		str := fmt.Sprintf("secret already stored in keystore %s",
			existing.ID())
		return keystore.ManagerError{
			ErrorCode:   keystore.ErrAlreadyExists,
			Description: str,
		}
	}
	return nil
}

// extraScheme records the encrypted xpub and first receive address of
// secp256k1 accounts.
func (w *Wallet) extraScheme(info coin.Info,
	scheme address.Scheme) address.ExtraScheme {

	if info.Curve != key.CurveSecp256k1 {
		return address.NoExtra{}
	}
	return address.XPubExtra{Cipher: w.xpubCipher, Scheme: scheme}
}

// DeriveAccounts derives one account per request in keystore id.
func (w *Wallet) DeriveAccounts(id string, password []byte,
	reqs []DeriveRequest) ([]*keystore.Account, error) {

	infos := make([]coin.Info, 0, len(reqs))
	for _, req := range reqs {
		info, err := coin.FromParam(req.Chain, req.Network, req.SegWit,
			req.Curve)
		if err != nil {
			return nil, keystore.ManagerError{
				ErrorCode:   keystore.ErrUnsupportedChain,
				Description: "unsupported chain",
				Err:         err,
			}
		}
		infos = append(infos, info)
	}

	accounts := make([]*keystore.Account, 0, len(infos))
	err := w.repo.Do(id, password, func(ks *keystore.Keystore) error {
		for _, info := range infos {
			scheme, err := address.SchemeFor(info)
			if err != nil {
				return keystore.ManagerError{
					ErrorCode:   keystore.ErrUnsupportedChain,
					Description: "no address scheme",
					Err:         err,
				}
			}

			acct, err := ks.DeriveCoin(info, scheme,
				w.extraScheme(info, scheme))
			if err != nil {
				return err
			}
			accounts = append(accounts, acct)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// Export returns the mnemonic of an HD keystore or the hex private key of
// an imported one.
func (w *Wallet) Export(id string, password []byte) (string, error) {
	var secret string
	err := w.repo.Do(id, password, func(ks *keystore.Keystore) error {
		var err error
		secret, err = ks.Export()
		return err
	})
	return secret, err
}

// ExportMnemonic is Export restricted to HD keystores.
func (w *Wallet) ExportMnemonic(id string, password []byte) (string, error) {
	ks, err := w.repo.Get(id)
	if err != nil {
		return "", err
	}
	if !ks.Determinable() {
		return "", keystore.ManagerError{
			ErrorCode:   keystore.ErrNotDeterministic,
			Description: "keystore holds a private key, not a mnemonic",
		}
	}
	return w.Export(id, password)
}

// Remove deletes keystore id after checking password.
func (w *Wallet) Remove(id string, password []byte) error {
	if err := w.repo.Remove(id, password); err != nil {
		return err
	}
	log.Infof("Removed keystore %s", id)
	return nil
}

// SignTx signs a payment with the keys of the request's keystore. Without
// a change address, change goes to the account's own address for imported
// keys and to 0/ChangeAddressIndex for HD keystores.
func (w *Wallet) SignTx(req *SignTxRequest) (*txauthor.SignedTx, error) {
	info, err := coin.FromParam(req.Chain, req.Network, req.SegWit,
		key.CurveSecp256k1)
	if err != nil {
		return nil, keystore.ManagerError{
			ErrorCode:   keystore.ErrUnsupportedChain,
			Description: "unsupported chain",
			Err:         err,
		}
	}
	signer, err := txauthor.SignerFor(info)
	if err != nil {
		return nil, keystore.ManagerError{
			ErrorCode:   keystore.ErrUnsupportedChain,
			Description: "unsupported chain",
			Err:         err,
		}
	}

	input := req.input()

	var signed *txauthor.SignedTx
	err = w.repo.Do(req.ID, []byte(req.Password), func(ks *keystore.Keystore) error {
		acct, ok := ks.Account(info.Coin)
		if !ok {
			return keystore.ManagerError{
				ErrorCode:   keystore.ErrAccountNotFound,
				Description: fmt.Sprintf("no %s account", info.Coin),
			}
		}

		var (
			xpub key.DeterministicPublicKey
			err  error
		)
		switch {
		case input.ChangeAddress != "":
		case ks.Determinable():
			xpub, err = ks.FindDeterministicPublicKey(info.Coin, acct.Address)
			if err != nil {
				return err
			}
		default:
			input.ChangeAddress = acct.Address
		}

		signed, err = signer.SignTx(ks, info.Coin, xpub, input)
		return err
	})
	if err != nil {
		return nil, convertSignError(err)
	}

	log.Infof("Signed %s transaction %s", info.Coin, signed.TxHash)
	return signed, nil
}

// convertSignError gives signing failures a keystore error code.
func convertSignError(err error) error {
	if _, ok := keystore.Code(err); ok {
		return err
	}

	code := keystore.ErrorCode(-1)
	switch {
	case errors.Is(err, txauthor.ErrInvalidPath):
		code = keystore.ErrInvalidPath
	case errors.Is(err, address.ErrInvalidAddress):
		code = keystore.ErrInvalidAddress
	}
	if code < 0 {
		return err
	}
	return keystore.ManagerError{
		ErrorCode:   code,
		Description: "failed to sign transaction",
		Err:         err,
	}
}

// lockAll locks every keystore. Keystores are only unlocked inside
// repository operations, this covers a shutdown racing one of them.
func (w *Wallet) lockAll() {
	for _, ks := range w.repo.List() {
		ks.Lock()
	}
}
