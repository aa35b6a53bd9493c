package key

import (
	"errors"
	"fmt"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

type Secp256k1PrivateKey struct {
	key *btcec.PrivateKey
}

func NewSecp256k1PrivateKey(b []byte) (*Secp256k1PrivateKey, error) {
	if len(b) != btcec.PrivKeyBytesLen {
		return nil, ErrInvalidPrivateKey
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	if priv.Key.IsZero() {
		return nil, ErrInvalidPrivateKey
	}
	return &Secp256k1PrivateKey{key: priv}, nil
}

// WrapSecp256k1PrivateKey adopts an already parsed key, for example one
// decoded from WIF.
func WrapSecp256k1PrivateKey(priv *btcec.PrivateKey) *Secp256k1PrivateKey {
	return &Secp256k1PrivateKey{key: priv}
}

// Sign returns a low-S DER signature with an RFC6979 nonce.
func (k *Secp256k1PrivateKey) Sign(digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, ErrInvalidDigest
	}
	return ecdsa.Sign(k.key, digest).Serialize(), nil
}

func (k *Secp256k1PrivateKey) SignRecoverable(digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, ErrInvalidDigest
	}

	// Compact form is header || r || s with header 27 + recid + 4.
	compact, err := ecdsa.SignCompact(k.key, digest, true)
	if err != nil {
		return nil, err
	}
	sig := make([]byte, 65)
	copy(sig, compact[1:])
	sig[64] = compact[0] - 27 - 4
	return sig, nil
}

func (k *Secp256k1PrivateKey) PublicKey() PublicKey {
	return &Secp256k1PublicKey{key: k.key.PubKey()}
}

func (k *Secp256k1PrivateKey) Bytes() []byte {
	return k.key.Serialize()
}

func (k *Secp256k1PrivateKey) Curve() CurveType {
	return CurveSecp256k1
}

func (k *Secp256k1PrivateKey) BTCEC() *btcec.PrivateKey {
	return k.key
}

type Secp256k1PublicKey struct {
	key *btcec.PublicKey
}

// NewSecp256k1PublicKey parses a compressed or uncompressed SEC1 key.
func NewSecp256k1PublicKey(b []byte) (*Secp256k1PublicKey, error) {
	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidPublicKey)
	}
	return &Secp256k1PublicKey{key: pub}, nil
}

func (k *Secp256k1PublicKey) Bytes() []byte {
	return k.key.SerializeCompressed()
}

func (k *Secp256k1PublicKey) Compressed() []byte {
	return k.key.SerializeCompressed()
}

func (k *Secp256k1PublicKey) Uncompressed() []byte {
	return k.key.SerializeUncompressed()
}

func (k *Secp256k1PublicKey) Curve() CurveType {
	return CurveSecp256k1
}

func (k *Secp256k1PublicKey) BTCEC() *btcec.PublicKey {
	return k.key
}

// Secp256k1DeterministicPrivateKey is a BIP32 private node.
type Secp256k1DeterministicPrivateKey struct {
	ext *hdkeychain.ExtendedKey
}

func NewSecp256k1Master(seed []byte) (*Secp256k1DeterministicPrivateKey, error) {
	root, err := NewRootKey(seed)
	if err != nil {
		return nil, err
	}
	return &Secp256k1DeterministicPrivateKey{ext: root}, nil
}

// NewSecp256k1DeterministicPrivateKey rebuilds a private node from its wire
// form.
func NewSecp256k1DeterministicPrivateKey(ek ExtendedKey) (*Secp256k1DeterministicPrivateKey, error) {
	if !ek.IsPrivate() {
		return nil, ErrInvalidExtendedKey
	}
	if _, err := NewSecp256k1PrivateKey(ek.Key[1:]); err != nil {
		return nil, err
	}
	return &Secp256k1DeterministicPrivateKey{ext: fromExtendedKey(&ek)}, nil
}

func (k *Secp256k1DeterministicPrivateKey) Derive(path string) (DeterministicPrivateKey, error) {
	p, err := ParseDerivationPath(path)
	if err != nil {
		return nil, err
	}

	child := k.ext
	for _, c := range p {
		child, err = child.Derive(uint32(c))
		if err != nil {
			return nil, err
		}
	}
	return &Secp256k1DeterministicPrivateKey{ext: child}, nil
}

func (k *Secp256k1DeterministicPrivateKey) PrivateKey() PrivateKey {
	priv, _ := k.ext.ECPrivKey()
	return &Secp256k1PrivateKey{key: priv}
}

func (k *Secp256k1DeterministicPrivateKey) DeterministicPublicKey() (DeterministicPublicKey, error) {
	pub, err := k.ext.Neuter()
	if err != nil {
		return nil, err
	}
	return &Secp256k1DeterministicPublicKey{ext: pub}, nil
}

func (k *Secp256k1DeterministicPrivateKey) ExtendedKey() ExtendedKey {
	return toExtendedKey(k.ext, XPrvVersion)
}

func (k *Secp256k1DeterministicPrivateKey) String() string {
	ek := k.ExtendedKey()
	return ek.String()
}

// Secp256k1DeterministicPublicKey is a BIP32 public node.
type Secp256k1DeterministicPublicKey struct {
	ext *hdkeychain.ExtendedKey
}

func NewSecp256k1DeterministicPublicKey(ek ExtendedKey) (*Secp256k1DeterministicPublicKey, error) {
	if ek.IsPrivate() {
		return nil, ErrInvalidExtendedKey
	}
	if _, err := btcec.ParsePubKey(ek.Key[:]); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidExtendedKey)
	}
	return &Secp256k1DeterministicPublicKey{ext: fromExtendedKey(&ek)}, nil
}

// ParseSecp256k1DeterministicPublicKey accepts either the base58 form or the
// compact hex form of an extended public key.
func ParseSecp256k1DeterministicPublicKey(s string) (*Secp256k1DeterministicPublicKey, error) {
	ek, err := ParseCompactHex(s)
	if err != nil {
		ek, err = ParseExtendedKey(s)
		if err != nil {
			return nil, err
		}
	}
	return NewSecp256k1DeterministicPublicKey(ek)
}

func (k *Secp256k1DeterministicPublicKey) Derive(path string) (DeterministicPublicKey, error) {
	p, err := ParseDerivationPath(path)
	if err != nil {
		return nil, err
	}

	child := k.ext
	for _, c := range p {
		if c.IsHardened() {
			return nil, ErrCannotDeriveFromHardenedKey
		}
		child, err = child.Derive(uint32(c))
		if errors.Is(err, hdkeychain.ErrDeriveHardFromPublic) {
			return nil, ErrCannotDeriveFromHardenedKey
		}
		if err != nil {
			return nil, err
		}
	}
	return &Secp256k1DeterministicPublicKey{ext: child}, nil
}

func (k *Secp256k1DeterministicPublicKey) PublicKey() PublicKey {
	pub, _ := k.ext.ECPubKey()
	return &Secp256k1PublicKey{key: pub}
}

func (k *Secp256k1DeterministicPublicKey) ExtendedKey() ExtendedKey {
	return toExtendedKey(k.ext, XPubVersion)
}

// String is the mainnet xpub encoding.
func (k *Secp256k1DeterministicPublicKey) String() string {
	ek := k.ExtendedKey()
	return ek.String()
}
