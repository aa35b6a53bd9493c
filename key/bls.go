package key

import (
	"crypto/sha256"
	"errors"
	"fmt"
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"golang.org/x/crypto/hkdf"
	"io"
	"math/big"
	"strings"
)

const (
	BLSPrivateKeyLen = 32
	BLSPublicKeyLen  = bls12381.SizeOfG1AffineCompressed
	BLSSignatureLen  = bls12381.SizeOfG2AffineCompressed

	blsMinSeedLen   = 16
	lamportChunks   = 255
	lamportChunkLen = sha256.Size
)

var (
	ErrSeedTooShort = errors.New("seed must be greater than or equal to 16 bytes")

	blsKeygenSalt = []byte("BLS-SIG-KEYGEN-SALT-")
	blsSignDST    = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_")

	// 2^256 - 1
	blsFlipMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

type BLSPrivateKey struct {
	sk *big.Int
}

// NewBLSPrivateKey reads a 32-byte little endian scalar.
func NewBLSPrivateKey(b []byte) (*BLSPrivateKey, error) {
	if len(b) != BLSPrivateKeyLen {
		return nil, ErrInvalidPrivateKey
	}
	sk := new(big.Int).SetBytes(reverse(b))
	if sk.Sign() == 0 || sk.Cmp(fr.Modulus()) >= 0 {
		return nil, ErrInvalidPrivateKey
	}
	return &BLSPrivateKey{sk: sk}, nil
}

// Sign hashes msg to G2 and returns the compressed signature.
func (k *BLSPrivateKey) Sign(msg []byte) ([]byte, error) {
	h, err := bls12381.HashToG2(msg, blsSignDST)
	if err != nil {
		return nil, err
	}
	var sig bls12381.G2Affine
	sig.ScalarMultiplication(&h, k.sk)
	b := sig.Bytes()
	return b[:], nil
}

func (k *BLSPrivateKey) SignRecoverable([]byte) ([]byte, error) {
	return nil, ErrNotSupported
}

func (k *BLSPrivateKey) PublicKey() PublicKey {
	var pk bls12381.G1Affine
	pk.ScalarMultiplicationBase(k.sk)
	return &BLSPublicKey{point: pk}
}

// Bytes returns the scalar as 32 little endian bytes.
func (k *BLSPrivateKey) Bytes() []byte {
	b := make([]byte, BLSPrivateKeyLen)
	k.sk.FillBytes(b)
	return reverse(b)
}

func (k *BLSPrivateKey) Curve() CurveType {
	return CurveBLS
}

type BLSPublicKey struct {
	point bls12381.G1Affine
}

func NewBLSPublicKey(b []byte) (*BLSPublicKey, error) {
	if len(b) != BLSPublicKeyLen {
		return nil, ErrInvalidPublicKey
	}
	pk := &BLSPublicKey{}
	if _, err := pk.point.SetBytes(b); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidPublicKey)
	}
	if pk.point.IsInfinity() {
		return nil, ErrInvalidPublicKey
	}
	return pk, nil
}

func (k *BLSPublicKey) Bytes() []byte {
	b := k.point.Bytes()
	return b[:]
}

func (k *BLSPublicKey) Compressed() []byte {
	return k.Bytes()
}

func (k *BLSPublicKey) Uncompressed() []byte {
	b := k.point.RawBytes()
	return b[:]
}

func (k *BLSPublicKey) Curve() CurveType {
	return CurveBLS
}

// Verify checks e(pk, H(msg)) == e(g1, sig).
func (k *BLSPublicKey) Verify(msg, sig []byte) bool {
	if len(sig) != BLSSignatureLen {
		return false
	}
	var s bls12381.G2Affine
	if _, err := s.SetBytes(sig); err != nil {
		return false
	}
	h, err := bls12381.HashToG2(msg, blsSignDST)
	if err != nil {
		return false
	}

	_, _, g1, _ := bls12381.Generators()
	var negG1 bls12381.G1Affine
	negG1.Neg(&g1)

	ok, err := bls12381.PairingCheck(
		[]bls12381.G1Affine{k.point, negG1},
		[]bls12381.G2Affine{h, s},
	)
	return err == nil && ok
}

// BLSDeterministicPrivateKey is an EIP-2333 node.
type BLSDeterministicPrivateKey struct {
	sk *big.Int
}

func NewBLSMaster(seed []byte) (*BLSDeterministicPrivateKey, error) {
	if len(seed) < blsMinSeedLen {
		return nil, ErrSeedTooShort
	}
	sk, err := hkdfModR(seed)
	if err != nil {
		return nil, err
	}
	return &BLSDeterministicPrivateKey{sk: sk}, nil
}

// Derive walks a path of decimal indices such as "m/12381/3600/0/0". There is
// no hardened marker; every index is a hardened EIP-2333 step.
func (k *BLSDeterministicPrivateKey) Derive(path string) (DeterministicPrivateKey, error) {
	parts := strings.Split(path, "/")
	if parts[0] == "m" {
		parts = parts[1:]
	}

	sk := new(big.Int).Set(k.sk)
	for _, p := range parts {
		index, ok := new(big.Int).SetString(p, 10)
		if !ok || index.Sign() < 0 {
			return nil, ErrInvalidChildNumberFormat
		}
		child, err := deriveBLSChild(sk, index)
		if err != nil {
			return nil, err
		}
		sk = child
	}
	return &BLSDeterministicPrivateKey{sk: sk}, nil
}

func (k *BLSDeterministicPrivateKey) PrivateKey() PrivateKey {
	return &BLSPrivateKey{sk: new(big.Int).Set(k.sk)}
}

func (k *BLSDeterministicPrivateKey) DeterministicPublicKey() (DeterministicPublicKey, error) {
	return nil, ErrNotSupported
}

// hkdfModR is HKDF-SHA256 over ikm || 0x00 with L = 48, reduced mod r.
func hkdfModR(ikm []byte) (*big.Int, error) {
	okm := make([]byte, 48)
	secret := append(append([]byte(nil), ikm...), 0x00)
	r := hkdf.New(sha256.New, secret, blsKeygenSalt, []byte{0x00, 0x30})
	if _, err := io.ReadFull(r, okm); err != nil {
		return nil, err
	}
	sk := new(big.Int).SetBytes(okm)
	return sk.Mod(sk, fr.Modulus()), nil
}

func deriveBLSChild(parent, index *big.Int) (*big.Int, error) {
	lamportPK, err := parentToLamportPK(parent, index)
	if err != nil {
		return nil, err
	}
	return hkdfModR(lamportPK)
}

func parentToLamportPK(parent, index *big.Int) ([]byte, error) {
	salt := minimalBytes(index)

	lamport0, err := ikmToLamportSK(minimalBytes(parent), salt)
	if err != nil {
		return nil, err
	}
	flipped := new(big.Int).Xor(parent, blsFlipMask)
	lamport1, err := ikmToLamportSK(minimalBytes(flipped), salt)
	if err != nil {
		return nil, err
	}

	h := sha256.New()
	for _, okm := range [][]byte{lamport0, lamport1} {
		for i := 0; i < lamportChunks; i++ {
			chunk := sha256.Sum256(okm[i*lamportChunkLen : (i+1)*lamportChunkLen])
			h.Write(chunk[:])
		}
	}
	return h.Sum(nil), nil
}

func ikmToLamportSK(ikm, salt []byte) ([]byte, error) {
	okm := make([]byte, lamportChunks*lamportChunkLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, nil), okm); err != nil {
		return nil, err
	}
	return okm, nil
}

// minimalBytes is the big endian encoding without leading zeros, zero
// encoding as a single 0x00.
func minimalBytes(n *big.Int) []byte {
	if n.Sign() == 0 {
		return []byte{0x00}
	}
	return n.Bytes()
}

func reverse(b []byte) []byte {
	r := make([]byte, len(b))
	for i := range b {
		r[len(b)-1-i] = b[i]
	}
	return r
}
