package txauthor

import (
	"errors"
	"fmt"
	"github.com/czh0526/tokencore/key"
	"math"
	"strings"
)

// DustThreshold is the smallest output value, in satoshis, the signer
// creates. Change of exactly DustThreshold is still paid out, as the
// Bitcoin Cash signer does; only smaller change is left to the fee.
const DustThreshold = 546

var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrAmountLessThanMinimum = errors.New("amount less than minimum")
	ErrEmptyInputs           = errors.New("no unspent outputs to spend")
	ErrInvalidPath           = errors.New("invalid derivation path")
	ErrMissingChangeAddress  = errors.New("change needs an address or an account public key")
	ErrKeyCount              = errors.New("one key per unspent output is required")

	// ErrInvalidAmount is returned for a negative fee or unspent amount
	// and for sums that do not fit an int64.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Utxo is an output of an earlier transaction owned by the signing
// account. DerivedPath is relative to the account, for example "0/3".
type Utxo struct {
	TxHash       string `json:"txHash"`
	Vout         uint32 `json:"vout"`
	Amount       int64  `json:"amount"`
	Address      string `json:"address"`
	ScriptPubKey string `json:"scriptPubKey,omitempty"`
	DerivedPath  string `json:"derivedPath"`
}

// TxInput describes a payment of Amount to To. Change goes to
// ChangeAddress when set, otherwise to the account's external address at
// ChangeAddressIndex.
type TxInput struct {
	To                 string `json:"to"`
	Amount             int64  `json:"amount"`
	Unspents           []Utxo `json:"unspents"`
	Fee                int64  `json:"fee"`
	ChangeAddressIndex uint32 `json:"changeAddressIndex"`
	ChangeAddress      string `json:"changeAddress,omitempty"`
	Network            string `json:"network"`
	SegWit             string `json:"segWit,omitempty"`
}

type SignedTx struct {
	Signature string `json:"signature"`
	TxHash    string `json:"txHash"`
}

// KeySource hands out the keys at account relative paths of a coin's
// account.
type KeySource interface {
	KeyAtPaths(coinSymbol string, relPaths []string) ([]key.PrivateKey, error)
}

func (in *TxInput) total() (int64, error) {
	var total int64
	for _, u := range in.Unspents {
		if u.Amount < 0 || total > math.MaxInt64-u.Amount {
			return 0, fmt.Errorf("unspent %s:%d amount %d: %w", u.TxHash,
				u.Vout, u.Amount, ErrInvalidAmount)
		}
		total += u.Amount
	}
	return total, nil
}

// change returns the amount left after paying Amount and Fee.
func (in *TxInput) change() (int64, error) {
	if len(in.Unspents) == 0 {
		return 0, ErrEmptyInputs
	}
	if in.Amount < DustThreshold {
		return 0, fmt.Errorf("%d: %w", in.Amount, ErrAmountLessThanMinimum)
	}

	if in.Fee < 0 || in.Fee > math.MaxInt64-in.Amount {
		return 0, fmt.Errorf("fee %d: %w", in.Fee, ErrInvalidAmount)
	}

	total, err := in.total()
	if err != nil {
		return 0, err
	}
	if total < in.Amount+in.Fee {
		return 0, fmt.Errorf("%d < %d + %d: %w", total, in.Amount, in.Fee,
			ErrInsufficientFunds)
	}
	return total - in.Amount - in.Fee, nil
}

// relPaths returns the derived path of every unspent output in order.
func (in *TxInput) relPaths() ([]string, error) {
	paths := make([]string, 0, len(in.Unspents))
	for _, u := range in.Unspents {
		if err := checkRelativePath(u.DerivedPath); err != nil {
			return nil, err
		}
		paths = append(paths, u.DerivedPath)
	}
	return paths, nil
}

// checkRelativePath accepts exactly "chain/index" with normal indexes.
func checkRelativePath(path string) error {
	if len(strings.Split(path, "/")) != 2 {
		return fmt.Errorf("%q: %w", path, ErrInvalidPath)
	}

	p, err := key.ParseDerivationPath(path)
	if err != nil || len(p) != 2 {
		return fmt.Errorf("%q: %w", path, ErrInvalidPath)
	}
	for _, c := range p {
		if c.IsHardened() {
			return fmt.Errorf("%q: %w", path, ErrInvalidPath)
		}
	}
	return nil
}
