package key

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"github.com/btcsuite/btcd/btcutil/base58"
)

const (
	// ExtendedKeyLen is the BIP32 serialization length without checksum.
	ExtendedKeyLen = 78

	// CompactExtendedKeyLen drops the 4 version bytes.
	CompactExtendedKeyLen = 74
)

var (
	XPubVersion = [4]byte{0x04, 0x88, 0xb2, 0x1e}
	XPrvVersion = [4]byte{0x04, 0x88, 0xad, 0xe4}
	TPubVersion = [4]byte{0x04, 0x35, 0x87, 0xcf}
	TPrvVersion = [4]byte{0x04, 0x35, 0x83, 0x94}

	ErrInvalidExtendedKey = errors.New("invalid extended key")
)

// ExtendedKey is the wire form of a BIP32 node. Key holds either
// 0x00 || private key or a compressed public key.
type ExtendedKey struct {
	Version     [4]byte
	Depth       uint8
	ParentFP    [4]byte
	ChildNumber uint32
	ChainCode   [32]byte
	Key         [33]byte
}

func (k *ExtendedKey) IsPrivate() bool {
	return k.Key[0] == 0x00
}

func (k *ExtendedKey) compact() []byte {
	b := make([]byte, CompactExtendedKeyLen)
	b[0] = k.Depth
	copy(b[1:5], k.ParentFP[:])
	binary.BigEndian.PutUint32(b[5:9], k.ChildNumber)
	copy(b[9:41], k.ChainCode[:])
	copy(b[41:74], k.Key[:])
	return b
}

// Bytes is the 78-byte layout under an arbitrary version.
func (k *ExtendedKey) Bytes(version [4]byte) []byte {
	return append(version[:], k.compact()...)
}

// Serialize base58check encodes the 78-byte layout under version.
func (k *ExtendedKey) Serialize(version [4]byte) string {
	b := k.Bytes(version)
	return base58.CheckEncode(b[1:], b[0])
}

func (k *ExtendedKey) String() string {
	return k.Serialize(k.Version)
}

// CompactHex hex encodes the 74-byte layout.
func (k *ExtendedKey) CompactHex() string {
	return hex.EncodeToString(k.compact())
}

func ParseExtendedKey(s string) (ExtendedKey, error) {
	payload, ver, err := base58.CheckDecode(s)
	if err != nil {
		return ExtendedKey{}, fmt.Errorf("%v: %w", err, ErrInvalidExtendedKey)
	}
	b := append([]byte{ver}, payload...)
	if len(b) != ExtendedKeyLen {
		return ExtendedKey{}, ErrInvalidExtendedKey
	}

	k, err := extendedKeyFromCompact(b[4:])
	if err != nil {
		return ExtendedKey{}, err
	}
	copy(k.Version[:], b[:4])
	return k, nil
}

func ParseCompactHex(s string) (ExtendedKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != CompactExtendedKeyLen {
		return ExtendedKey{}, ErrInvalidExtendedKey
	}
	return extendedKeyFromCompact(b)
}

func extendedKeyFromCompact(b []byte) (ExtendedKey, error) {
	var k ExtendedKey
	k.Depth = b[0]
	copy(k.ParentFP[:], b[1:5])
	k.ChildNumber = binary.BigEndian.Uint32(b[5:9])
	copy(k.ChainCode[:], b[9:41])
	copy(k.Key[:], b[41:74])

	switch k.Key[0] {
	case 0x00, 0x02, 0x03:
	default:
		return ExtendedKey{}, ErrInvalidExtendedKey
	}
	return k, nil
}
