package address

import (
	"fmt"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/txscript"
	"github.com/czh0526/tokencore/coin"
	"github.com/czh0526/tokencore/key"
	"github.com/czh0526/tokencore/netparams"
	"strings"
)

const hash160Size = 20

// TypeOf maps the segwit mode of a network to the address type its
// accounts use.
func TypeOf(params *netparams.Params) AddressType {
	switch params.SegWit {
	case netparams.SegWitP2WPKH:
		return NestedWitnessPubKey
	case netparams.SegWitNative:
		return WitnessPubKey
	}
	return PubKeyHash
}

// NewAddress builds the address of a compressed secp256k1 public key.
func NewAddress(pubKey []byte, addrType AddressType,
	params *netparams.Params) (btcutil.Address, error) {

	pubKeyHash := btcutil.Hash160(pubKey)

	switch addrType {
	case PubKeyHash:
		return btcutil.NewAddressPubKeyHash(pubKeyHash, params.Params)

	case NestedWitnessPubKey:
		witAddr, err := btcutil.NewAddressWitnessPubKeyHash(
			pubKeyHash, params.Params)
		if err != nil {
			return nil, err
		}

		witnessProgram, err := txscript.PayToAddrScript(witAddr)
		if err != nil {
			return nil, err
		}

		return btcutil.NewAddressScriptHash(witnessProgram, params.Params)

	case WitnessPubKey:
		return btcutil.NewAddressWitnessPubKeyHash(pubKeyHash, params.Params)
	}
	return nil, fmt.Errorf("unknown address type %d", addrType)
}

// Decode parses addr against params. Base58, bech32 and, for networks with
// a cashaddr prefix, cashaddr forms are accepted.
func Decode(addr string, params *netparams.Params) (btcutil.Address, error) {
	if params.CashAddrPrefix != "" {
		if a, err := decodeCashAddr(addr, params); err == nil {
			return a, nil
		}
	}

	hrp := params.Bech32HRPSegwit
	if hrp != "" && strings.HasPrefix(strings.ToLower(addr), hrp+"1") {
		return decodeSegWit(addr, params)
	}

	decoded, netID, err := base58.CheckDecode(addr)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", addr, err, ErrInvalidAddress)
	}
	if len(decoded) != hash160Size {
		return nil, fmt.Errorf("%s: %w", addr, ErrInvalidAddress)
	}

	switch netID {
	case params.PubKeyHashAddrID:
		return btcutil.NewAddressPubKeyHash(decoded, params.Params)
	case params.ScriptHashAddrID:
		return btcutil.NewAddressScriptHashFromHash(decoded, params.Params)
	}
	return nil, fmt.Errorf("%s is not a %s address: %w", addr, params.Name,
		ErrInvalidAddress)
}

func decodeSegWit(addr string, params *netparams.Params) (btcutil.Address, error) {
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", addr, err, ErrInvalidAddress)
	}
	if hrp != params.Bech32HRPSegwit || len(data) < 1 || data[0] != 0 {
		return nil, fmt.Errorf("%s: %w", addr, ErrInvalidAddress)
	}

	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", addr, err, ErrInvalidAddress)
	}

	switch len(program) {
	case 20:
		return btcutil.NewAddressWitnessPubKeyHash(program, params.Params)
	case 32:
		return btcutil.NewAddressWitnessScriptHash(program, params.Params)
	}
	return nil, fmt.Errorf("%s: %w", addr, ErrInvalidAddress)
}

// ScriptPubKey returns the locking script paying to addr.
func ScriptPubKey(addr string, params *netparams.Params) ([]byte, error) {
	a, err := Decode(addr, params)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(a)
}

// BtcForkScheme formats Bitcoin and Litecoin addresses. The segwit mode of
// the coin picks between P2PKH, P2SH-P2WPKH and bech32 P2WPKH.
type BtcForkScheme struct{}

func (BtcForkScheme) FromPublicKey(pub key.PublicKey, info coin.Info) (string, error) {
	if pub.Curve() != key.CurveSecp256k1 {
		return "", ErrUnsupportedKey
	}

	params, err := netparams.ParamsFromCoin(info.Coin, info.Network, info.SegWit)
	if err != nil {
		return "", err
	}

	addr, err := NewAddress(pub.Compressed(), TypeOf(params), params)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

func (BtcForkScheme) IsValid(address string, info coin.Info) bool {
	params, err := netparams.ParamsFromCoin(info.Coin, info.Network, info.SegWit)
	if err != nil {
		return false
	}
	_, err = Decode(address, params)
	return err == nil
}
