// Package address converts public keys into chain addresses and addresses
// into locking scripts.
package address

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/czh0526/tokencore/coin"
	"github.com/czh0526/tokencore/key"
)

var (
	ErrInvalidAddress  = errors.New("invalid address")
	ErrUnsupportedKey  = errors.New("public key does not fit the address scheme")
	ErrInvalidCashAddr = errors.New("invalid cashaddr")
)

// AddressType is the output style an address pays to.
type AddressType uint8

const (
	PubKeyHash AddressType = iota
	ScriptHash
	NestedWitnessPubKey
	WitnessPubKey
)

// Scheme formats the public key of an account as an address of info's
// chain.
type Scheme interface {
	FromPublicKey(pub key.PublicKey, info coin.Info) (string, error)
	IsValid(address string, info coin.Info) bool
}

// ExtraScheme computes chain specific metadata stored next to an account.
// extPubKey is the compact hex form of the account level public key, empty
// for keystores that cannot derive.
type ExtraScheme interface {
	Extra(extPubKey string, info coin.Info) (json.RawMessage, error)
}

// NoExtra stores nothing.
type NoExtra struct{}

func (NoExtra) Extra(string, coin.Info) (json.RawMessage, error) {
	return nil, nil
}

// SchemeFor returns the address scheme of a registered coin.
func SchemeFor(info coin.Info) (Scheme, error) {
	switch info.Coin {
	case coin.Bitcoin, coin.Litecoin:
		return BtcForkScheme{}, nil
	case coin.BitcoinCash:
		return CashAddrScheme{}, nil
	case coin.Polkadot, coin.Kusama:
		return SubstrateScheme{}, nil
	}
	return nil, fmt.Errorf("no address scheme for %s: %w", info.Coin,
		coin.ErrUnsupportedChain)
}
