package address

import (
	"bytes"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/czh0526/tokencore/coin"
	"github.com/czh0526/tokencore/key"
	"golang.org/x/crypto/blake2b"
)

const (
	ss58ChecksumLen = 2
	ss58AccountLen  = 32
)

var ss58Prefix = []byte("SS58PRE")

// ss58Formats are the account formats of the supported relay chains.
var ss58Formats = map[string]byte{
	coin.Polkadot: 0,
	coin.Kusama:   2,
}

func ss58Checksum(data []byte) []byte {
	h := blake2b.Sum512(append(append([]byte{}, ss58Prefix...), data...))
	return h[:ss58ChecksumLen]
}

// SubstrateScheme formats sr25519 public keys as SS58 addresses.
type SubstrateScheme struct{}

func (SubstrateScheme) FromPublicKey(pub key.PublicKey, info coin.Info) (string, error) {
	if pub.Curve() != key.CurveSr25519 {
		return "", ErrUnsupportedKey
	}
	format, ok := ss58Formats[info.Coin]
	if !ok {
		return "", coin.ErrUnsupportedChain
	}

	data := append([]byte{format}, pub.Bytes()...)
	return base58.Encode(append(data, ss58Checksum(data)...)), nil
}

func (SubstrateScheme) IsValid(address string, info coin.Info) bool {
	format, ok := ss58Formats[info.Coin]
	if !ok {
		return false
	}

	raw := base58.Decode(address)
	if len(raw) != 1+ss58AccountLen+ss58ChecksumLen || raw[0] != format {
		return false
	}
	data := raw[:len(raw)-ss58ChecksumLen]
	return bytes.Equal(ss58Checksum(data), raw[len(raw)-ss58ChecksumLen:])
}
