package key

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
)

var ed25519SeedModifier = []byte("ed25519 seed")

type Ed25519PrivateKey struct {
	key ed25519.PrivateKey
}

// NewEd25519PrivateKey accepts a 32-byte seed or a 64-byte expanded key.
func NewEd25519PrivateKey(b []byte) (*Ed25519PrivateKey, error) {
	switch len(b) {
	case ed25519.SeedSize:
		return &Ed25519PrivateKey{key: ed25519.NewKeyFromSeed(b)}, nil
	case ed25519.PrivateKeySize:
		return &Ed25519PrivateKey{key: ed25519.NewKeyFromSeed(b[:32])}, nil
	}
	return nil, ErrInvalidPrivateKey
}

func (k *Ed25519PrivateKey) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(k.key, msg), nil
}

func (k *Ed25519PrivateKey) SignRecoverable([]byte) ([]byte, error) {
	return nil, ErrNotSupported
}

func (k *Ed25519PrivateKey) PublicKey() PublicKey {
	return &Ed25519PublicKey{key: k.key.Public().(ed25519.PublicKey)}
}

// Bytes returns the 32-byte seed form.
func (k *Ed25519PrivateKey) Bytes() []byte {
	return append([]byte(nil), k.key.Seed()...)
}

func (k *Ed25519PrivateKey) Curve() CurveType {
	return CurveEd25519
}

type Ed25519PublicKey struct {
	key ed25519.PublicKey
}

func NewEd25519PublicKey(b []byte) (*Ed25519PublicKey, error) {
	if len(b) != ed25519.PublicKeySize {
		return nil, ErrInvalidPublicKey
	}
	return &Ed25519PublicKey{key: append(ed25519.PublicKey(nil), b...)}, nil
}

func (k *Ed25519PublicKey) Bytes() []byte {
	return append([]byte(nil), k.key...)
}

func (k *Ed25519PublicKey) Compressed() []byte {
	return k.Bytes()
}

func (k *Ed25519PublicKey) Uncompressed() []byte {
	return k.Bytes()
}

func (k *Ed25519PublicKey) Curve() CurveType {
	return CurveEd25519
}

func (k *Ed25519PublicKey) Verify(msg, sig []byte) bool {
	return ed25519.Verify(k.key, msg, sig)
}

// Ed25519DeterministicPrivateKey is a SLIP-10 node. Every child is hardened,
// normal indices are promoted.
type Ed25519DeterministicPrivateKey struct {
	key       [32]byte
	chainCode [32]byte
	depth     uint8
	childNum  uint32
}

func NewEd25519Master(seed []byte) (*Ed25519DeterministicPrivateKey, error) {
	mac := hmac.New(sha512.New, ed25519SeedModifier)
	mac.Write(seed)
	i := mac.Sum(nil)

	k := &Ed25519DeterministicPrivateKey{}
	copy(k.key[:], i[:32])
	copy(k.chainCode[:], i[32:])
	return k, nil
}

func (k *Ed25519DeterministicPrivateKey) child(index uint32) *Ed25519DeterministicPrivateKey {
	index |= HardenedKeyStart

	var data [37]byte
	copy(data[1:33], k.key[:])
	binary.BigEndian.PutUint32(data[33:], index)

	mac := hmac.New(sha512.New, k.chainCode[:])
	mac.Write(data[:])
	i := mac.Sum(nil)

	c := &Ed25519DeterministicPrivateKey{
		depth:    k.depth + 1,
		childNum: index,
	}
	copy(c.key[:], i[:32])
	copy(c.chainCode[:], i[32:])
	return c
}

func (k *Ed25519DeterministicPrivateKey) Derive(path string) (DeterministicPrivateKey, error) {
	p, err := ParseDerivationPath(path)
	if err != nil {
		return nil, err
	}

	child := k
	for _, c := range p {
		child = child.child(uint32(c))
	}
	return child, nil
}

func (k *Ed25519DeterministicPrivateKey) PrivateKey() PrivateKey {
	return &Ed25519PrivateKey{key: ed25519.NewKeyFromSeed(k.key[:])}
}

func (k *Ed25519DeterministicPrivateKey) ChainCode() []byte {
	return append([]byte(nil), k.chainCode[:]...)
}

func (k *Ed25519DeterministicPrivateKey) DeterministicPublicKey() (DeterministicPublicKey, error) {
	pub := k.PrivateKey().PublicKey().(*Ed25519PublicKey)
	return &Ed25519DeterministicPublicKey{pub: pub, chainCode: k.chainCode}, nil
}

// Ed25519DeterministicPublicKey cannot derive: SLIP-10 ed25519 has no
// public child derivation.
type Ed25519DeterministicPublicKey struct {
	pub       *Ed25519PublicKey
	chainCode [32]byte
}

func (k *Ed25519DeterministicPublicKey) Derive(path string) (DeterministicPublicKey, error) {
	p, err := ParseDerivationPath(path)
	if err != nil {
		return nil, err
	}
	if len(p) == 0 {
		return k, nil
	}
	return nil, ErrCannotDeriveFromHardenedKey
}

func (k *Ed25519DeterministicPublicKey) PublicKey() PublicKey {
	return k.pub
}

func (k *Ed25519DeterministicPublicKey) String() string {
	return hex.EncodeToString(k.pub.key)
}
