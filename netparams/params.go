package netparams

import (
	"errors"
	"fmt"
	"github.com/btcsuite/btcd/chaincfg"
	"strings"
)

const (
	Mainnet = "MAINNET"
	Testnet = "TESTNET"

	// SegWit modes of a BTC-fork account.
	SegWitNone   = "NONE"
	SegWitP2WPKH = "P2WPKH"
	SegWitNative = "SEGWIT"

	CoinBitcoin     = "BITCOIN"
	CoinBitcoinCash = "BITCOINCASH"
	CoinLitecoin    = "LITECOIN"
)

var ErrUnsupportedNetwork = errors.New("unsupported chain")

// Params couples chaincfg parameters with the coin and address style they
// are used for. CashAddrPrefix is set for Bitcoin Cash only.
type Params struct {
	*chaincfg.Params
	Coin           string
	Network        string
	SegWit         string
	CashAddrPrefix string
}

// IsSegWit reports whether addresses of p are witness based.
func (p *Params) IsSegWit() bool {
	return p.SegWit == SegWitP2WPKH || p.SegWit == SegWitNative
}

var MainNetParams = Params{
	Params:  &chaincfg.MainNetParams,
	Coin:    CoinBitcoin,
	Network: Mainnet,
	SegWit:  SegWitNone,
}

var TestNetParams = Params{
	Params:  &chaincfg.TestNet3Params,
	Coin:    CoinBitcoin,
	Network: Testnet,
	SegWit:  SegWitNone,
}

type prefixes struct {
	pubKeyHash byte
	scriptHash byte
	privateKey byte
	hdPublic   [4]byte
	hdPrivate  [4]byte
	hrp        string
}

var (
	xpubVersion = [4]byte{0x04, 0x88, 0xb2, 0x1e}
	xprvVersion = [4]byte{0x04, 0x88, 0xad, 0xe4}
	tpubVersion = [4]byte{0x04, 0x35, 0x87, 0xcf}
	tprvVersion = [4]byte{0x04, 0x35, 0x83, 0x94}

	bitcoinMain = prefixes{0x00, 0x05, 0x80, xpubVersion, xprvVersion, "bc"}
	bitcoinTest = prefixes{0x6f, 0xc4, 0xef, tpubVersion, tprvVersion, "tb"}

	litecoinMain = prefixes{0x30, 0x32, 0xb0, xpubVersion, xprvVersion, "ltc"}
	litecoinTest = prefixes{0x6f, 0x3a, 0xef, tpubVersion, tprvVersion, "tltc"}
)

// fork copies base and overrides everything that makes an address or an
// extended key recognizable.
func fork(base *chaincfg.Params, coin, network, segWit string,
	pfx prefixes, cashAddrPrefix string) *Params {

	p := *base
	p.Name = strings.ToLower(coin + "-" + network)
	p.PubKeyHashAddrID = pfx.pubKeyHash
	p.ScriptHashAddrID = pfx.scriptHash
	p.PrivateKeyID = pfx.privateKey
	p.HDPublicKeyID = pfx.hdPublic
	p.HDPrivateKeyID = pfx.hdPrivate
	p.Bech32HRPSegwit = pfx.hrp

	return &Params{
		Params:         &p,
		Coin:           coin,
		Network:        network,
		SegWit:         segWit,
		CashAddrPrefix: cashAddrPrefix,
	}
}

var networks = []*Params{
	fork(&chaincfg.MainNetParams, CoinLitecoin, Mainnet, SegWitNone, litecoinMain, ""),
	fork(&chaincfg.MainNetParams, CoinLitecoin, Mainnet, SegWitP2WPKH, litecoinMain, ""),
	fork(&chaincfg.MainNetParams, CoinLitecoin, Mainnet, SegWitNative, litecoinMain, ""),
	fork(&chaincfg.TestNet3Params, CoinLitecoin, Testnet, SegWitNone, litecoinTest, ""),
	fork(&chaincfg.TestNet3Params, CoinLitecoin, Testnet, SegWitP2WPKH, litecoinTest, ""),

	fork(&chaincfg.MainNetParams, CoinBitcoin, Mainnet, SegWitNone, bitcoinMain, ""),
	fork(&chaincfg.MainNetParams, CoinBitcoin, Mainnet, SegWitP2WPKH, bitcoinMain, ""),
	fork(&chaincfg.MainNetParams, CoinBitcoin, Mainnet, SegWitNative, bitcoinMain, ""),
	fork(&chaincfg.TestNet3Params, CoinBitcoin, Testnet, SegWitNone, bitcoinTest, ""),
	fork(&chaincfg.TestNet3Params, CoinBitcoin, Testnet, SegWitP2WPKH, bitcoinTest, ""),

	fork(&chaincfg.MainNetParams, CoinBitcoinCash, Mainnet, SegWitNone, bitcoinMain, "bitcoincash"),
	fork(&chaincfg.TestNet3Params, CoinBitcoinCash, Testnet, SegWitNone, bitcoinTest, "bchtest"),
}

// ParamsFromCoin finds the network of a BTC-fork coin. Matching ignores
// case and an empty segWit means SegWitNone.
func ParamsFromCoin(coin, network, segWit string) (*Params, error) {
	coin = strings.ToUpper(coin)
	network = strings.ToUpper(network)
	segWit = strings.ToUpper(segWit)
	if segWit == "" {
		segWit = SegWitNone
	}

	var found *Params
	for _, p := range networks {
		if p.Coin == coin && p.Network == network && p.SegWit == segWit {
			found = p
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%s %s %s: %w", coin, network, segWit,
			ErrUnsupportedNetwork)
	}
	return found, nil
}

// Networks lists every known BTC-fork network.
func Networks() []*Params {
	return append([]*Params(nil), networks...)
}
