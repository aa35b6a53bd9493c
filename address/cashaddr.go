package address

import (
	"fmt"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/czh0526/tokencore/coin"
	"github.com/czh0526/tokencore/key"
	"github.com/czh0526/tokencore/netparams"
	"strings"
)

const (
	cashAddrCharset  = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
	cashAddrChecksum = 8

	// Version bytes for 160 bit hashes.
	cashAddrP2PKH byte = 0x00
	cashAddrP2SH  byte = 0x08
)

var cashAddrGenerators = [5]uint64{
	0x98f2bc8e61, 0x79b76d99e2, 0xf33e5fb3c4, 0xae2eabe2a8, 0x1e4f43e470,
}

func cashAddrPolymod(values []byte) uint64 {
	c := uint64(1)
	for _, d := range values {
		c0 := c >> 35
		c = ((c & 0x07ffffffff) << 5) ^ uint64(d)
		for i, g := range cashAddrGenerators {
			if (c0>>uint(i))&1 == 1 {
				c ^= g
			}
		}
	}
	return c ^ 1
}

func cashAddrPrefixData(prefix string) []byte {
	data := make([]byte, 0, len(prefix)+1)
	for i := 0; i < len(prefix); i++ {
		data = append(data, prefix[i]&0x1f)
	}
	return append(data, 0)
}

// encodeCashAddr returns the cashaddr of hash without the prefix.
func encodeCashAddr(prefix string, version byte, hash []byte) (string, error) {
	payload, err := bech32.ConvertBits(append([]byte{version}, hash...), 8, 5, true)
	if err != nil {
		return "", err
	}

	values := append(cashAddrPrefixData(prefix), payload...)
	values = append(values, make([]byte, cashAddrChecksum)...)
	mod := cashAddrPolymod(values)

	var sb strings.Builder
	for _, d := range payload {
		sb.WriteByte(cashAddrCharset[d])
	}
	for i := 0; i < cashAddrChecksum; i++ {
		sb.WriteByte(cashAddrCharset[(mod>>uint(5*(7-i)))&0x1f])
	}
	return sb.String(), nil
}

// decodeCashAddrHash parses a cashaddr with or without its prefix.
func decodeCashAddrHash(prefix, addr string) (byte, []byte, error) {
	lower := strings.ToLower(addr)
	if lower != addr && strings.ToUpper(addr) != addr {
		return 0, nil, ErrInvalidCashAddr
	}
	if i := strings.IndexByte(lower, ':'); i >= 0 {
		if lower[:i] != prefix {
			return 0, nil, ErrInvalidCashAddr
		}
		lower = lower[i+1:]
	}
	if len(lower) <= cashAddrChecksum {
		return 0, nil, ErrInvalidCashAddr
	}

	values := make([]byte, len(lower))
	for i := 0; i < len(lower); i++ {
		d := strings.IndexByte(cashAddrCharset, lower[i])
		if d < 0 {
			return 0, nil, ErrInvalidCashAddr
		}
		values[i] = byte(d)
	}
	if cashAddrPolymod(append(cashAddrPrefixData(prefix), values...)) != 0 {
		return 0, nil, ErrInvalidCashAddr
	}

	data, err := bech32.ConvertBits(values[:len(values)-cashAddrChecksum], 5, 8, false)
	if err != nil || len(data) != hash160Size+1 {
		return 0, nil, ErrInvalidCashAddr
	}
	return data[0], data[1:], nil
}

func decodeCashAddr(addr string, params *netparams.Params) (btcutil.Address, error) {
	version, hash, err := decodeCashAddrHash(params.CashAddrPrefix, addr)
	if err != nil {
		return nil, err
	}

	switch version {
	case cashAddrP2PKH:
		return btcutil.NewAddressPubKeyHash(hash, params.Params)
	case cashAddrP2SH:
		return btcutil.NewAddressScriptHashFromHash(hash, params.Params)
	}
	return nil, ErrInvalidCashAddr
}

// CashAddr formats a P2PKH or P2SH address of params as cashaddr.
func CashAddr(addr btcutil.Address, params *netparams.Params) (string, error) {
	switch a := addr.(type) {
	case *btcutil.AddressPubKeyHash:
		return encodeCashAddr(params.CashAddrPrefix, cashAddrP2PKH, a.Hash160()[:])
	case *btcutil.AddressScriptHash:
		return encodeCashAddr(params.CashAddrPrefix, cashAddrP2SH, a.Hash160()[:])
	}
	return "", fmt.Errorf("%T has no cashaddr form: %w", addr, ErrInvalidAddress)
}

// LegacyToCashAddr converts a base58 address to cashaddr.
func LegacyToCashAddr(legacy string, params *netparams.Params) (string, error) {
	decoded, netID, err := base58.CheckDecode(legacy)
	if err != nil || len(decoded) != hash160Size {
		return "", fmt.Errorf("%s: %w", legacy, ErrInvalidAddress)
	}

	switch netID {
	case params.PubKeyHashAddrID:
		return encodeCashAddr(params.CashAddrPrefix, cashAddrP2PKH, decoded)
	case params.ScriptHashAddrID:
		return encodeCashAddr(params.CashAddrPrefix, cashAddrP2SH, decoded)
	}
	return "", fmt.Errorf("%s: %w", legacy, ErrInvalidAddress)
}

// CashAddrToLegacy converts a cashaddr to its base58 form.
func CashAddrToLegacy(cashAddr string, params *netparams.Params) (string, error) {
	addr, err := decodeCashAddr(cashAddr, params)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

// CashAddrScheme formats Bitcoin Cash P2PKH addresses as prefixless
// cashaddr.
type CashAddrScheme struct{}

func (CashAddrScheme) FromPublicKey(pub key.PublicKey, info coin.Info) (string, error) {
	if pub.Curve() != key.CurveSecp256k1 {
		return "", ErrUnsupportedKey
	}

	params, err := netparams.ParamsFromCoin(info.Coin, info.Network, info.SegWit)
	if err != nil {
		return "", err
	}
	return encodeCashAddr(params.CashAddrPrefix, cashAddrP2PKH,
		btcutil.Hash160(pub.Compressed()))
}

func (CashAddrScheme) IsValid(address string, info coin.Info) bool {
	params, err := netparams.ParamsFromCoin(info.Coin, info.Network, info.SegWit)
	if err != nil {
		return false
	}
	_, err = Decode(address, params)
	return err == nil
}
