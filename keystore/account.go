package keystore

import (
	"encoding/json"
	"github.com/czh0526/tokencore/coin"
	"github.com/czh0526/tokencore/key"
)

// Account is a chain address derived from a keystore. Accounts are never
// modified after DeriveCoin returns them.
type Account struct {
	Address        string          `json:"address"`
	DerivationPath string          `json:"derivationPath"`
	Curve          key.CurveType   `json:"curve"`
	Coin           string          `json:"coin"`
	Network        string          `json:"network"`
	SegWit         string          `json:"segWit"`
	ExtPubKey      string          `json:"extPubKey"`
	Extra          json.RawMessage `json:"extra,omitempty"`
}

// CoinInfo returns the registry parameters the account was derived with.
func (a *Account) CoinInfo() coin.Info {
	return coin.Info{
		Coin:           a.Coin,
		DerivationPath: a.DerivationPath,
		Curve:          a.Curve,
		Network:        a.Network,
		SegWit:         a.SegWit,
	}
}

func (a *Account) clone() *Account {
	c := *a
	if a.Extra != nil {
		c.Extra = append(json.RawMessage(nil), a.Extra...)
	}
	return &c
}
