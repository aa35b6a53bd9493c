// Package coin is the registry of chains a keystore can derive accounts for.
package coin

import (
	"errors"
	"fmt"
	"github.com/czh0526/tokencore/key"
	"strings"
	"sync"
)

const (
	Bitcoin     = "BITCOIN"
	BitcoinCash = "BITCOINCASH"
	Litecoin    = "LITECOIN"
	Tron        = "TRON"
	Nervos      = "NERVOS"
	Polkadot    = "POLKADOT"
	Kusama      = "KUSAMA"
	Filecoin    = "FILECOIN"
)

var ErrUnsupportedChain = errors.New("unsupported_chain")

// Info describes how an account of a coin is derived. Network and SegWit are
// empty for chains that have no such notion.
type Info struct {
	Coin           string
	DerivationPath string
	Curve          key.CurveType
	Network        string
	SegWit         string
}

func (i Info) String() string {
	return fmt.Sprintf("%s(%s %s %s)", i.Coin, i.Network, i.SegWit, i.Curve)
}

var (
	mtx   sync.RWMutex
	infos = []Info{
		{Bitcoin, "m/44'/0'/0'/0/0", key.CurveSecp256k1, "MAINNET", "NONE"},
		{Bitcoin, "m/44'/1'/0'/0/0", key.CurveSecp256k1, "TESTNET", "NONE"},
		{Bitcoin, "m/49'/0'/0'/0/0", key.CurveSecp256k1, "MAINNET", "P2WPKH"},
		{Bitcoin, "m/49'/1'/0'/0/0", key.CurveSecp256k1, "TESTNET", "P2WPKH"},
		{BitcoinCash, "m/44'/145'/0'/0/0", key.CurveSecp256k1, "MAINNET", "NONE"},
		{BitcoinCash, "m/44'/1'/0'/0/0", key.CurveSecp256k1, "TESTNET", "NONE"},
		{Litecoin, "m/44'/2'/0'/0/0", key.CurveSecp256k1, "MAINNET", "NONE"},
		{Litecoin, "m/44'/1'/0'/0/0", key.CurveSecp256k1, "TESTNET", "NONE"},
		{Litecoin, "m/49'/2'/0'/0/0", key.CurveSecp256k1, "MAINNET", "P2WPKH"},
		{Litecoin, "m/49'/1'/0'/0/0", key.CurveSecp256k1, "TESTNET", "P2WPKH"},
		{Tron, "m/44'/195'/0'/0/0", key.CurveSecp256k1, "", ""},
		{Nervos, "m/44'/309'/0'/0/0", key.CurveSecp256k1, "MAINNET", ""},
		{Nervos, "m/44'/309'/0'/0/0", key.CurveSecp256k1, "TESTNET", ""},
		{Polkadot, "//polkadot//imToken/0", key.CurveSr25519, "", ""},
		{Kusama, "//kusama//imToken/0", key.CurveSr25519, "", ""},
		{Filecoin, "m/44'/461'/0'/0/0", key.CurveSecp256k1, "MAINNET", ""},
		{Filecoin, "m/44'/461'/0'/0/0", key.CurveSecp256k1, "TESTNET", ""},
		{Filecoin, "m/2334/461/0/0", key.CurveBLS, "MAINNET", ""},
		{Filecoin, "m/2334/461/0/0", key.CurveBLS, "TESTNET", ""},
	}
)

// FromParam looks a coin up. Empty network, segWit and curve match any
// value and the last registered match wins.
func FromParam(chain, network, segWit string, curve key.CurveType) (Info, error) {
	mtx.RLock()
	defer mtx.RUnlock()

	var (
		found Info
		ok    bool
	)
	for _, info := range infos {
		if info.Coin != chain {
			continue
		}
		if network != "" && info.Network != network {
			continue
		}
		if segWit != "" && info.SegWit != segWit {
			continue
		}
		if curve != "" && info.Curve != curve {
			continue
		}
		found, ok = info, true
	}
	if !ok {
		return Info{}, fmt.Errorf("%s: %w", strings.TrimSpace(
			strings.Join([]string{chain, network, segWit, string(curve)}, " ")),
			ErrUnsupportedChain)
	}
	return found, nil
}

// Register adds info to the registry. A later registration shadows an
// earlier one with the same parameters.
func Register(info Info) {
	mtx.Lock()
	defer mtx.Unlock()

	infos = append(infos, info)
}

// All returns a snapshot of the registry.
func All() []Info {
	mtx.RLock()
	defer mtx.RUnlock()

	return append([]Info(nil), infos...)
}
