package key

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"github.com/ChainSafe/go-schnorrkel"
	"golang.org/x/crypto/blake2b"
	"regexp"
	"strconv"
)

var (
	sr25519SigningContext = []byte("substrate")

	junctionRegexp = regexp.MustCompile(`/(/?[^/]+)`)
)

// Sr25519PrivateKey keeps the nonce next to the secret scalar since the
// schnorrkel type does not expose it.
type Sr25519PrivateKey struct {
	secret *schnorrkel.SecretKey
	nonce  [32]byte
}

// expandMiniSecret expands ed25519 style, the nonce being the upper half of
// sha512(mini).
func expandMiniSecret(mini [schnorrkel.MiniSecretKeySize]byte) (*Sr25519PrivateKey, error) {
	msk, err := schnorrkel.NewMiniSecretKeyFromRaw(mini)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidPrivateKey)
	}
	h := sha512.Sum512(mini[:])

	k := &Sr25519PrivateKey{secret: msk.ExpandEd25519()}
	copy(k.nonce[:], h[32:])
	return k, nil
}

// NewSr25519PrivateKey accepts a 32-byte mini secret or a 64-byte
// key || nonce secret.
func NewSr25519PrivateKey(b []byte) (*Sr25519PrivateKey, error) {
	switch len(b) {
	case schnorrkel.MiniSecretKeySize:
		var raw [schnorrkel.MiniSecretKeySize]byte
		copy(raw[:], b)
		return expandMiniSecret(raw)

	case 64:
		var k, nonce [32]byte
		copy(k[:], b[:32])
		copy(nonce[:], b[32:])
		return &Sr25519PrivateKey{secret: schnorrkel.NewSecretKey(k, nonce), nonce: nonce}, nil
	}
	return nil, ErrInvalidPrivateKey
}

// Sign signs msg under the substrate signing context.
func (k *Sr25519PrivateKey) Sign(msg []byte) ([]byte, error) {
	t := schnorrkel.NewSigningContext(sr25519SigningContext, msg)
	sig, err := k.secret.Sign(t)
	if err != nil {
		return nil, err
	}
	b := sig.Encode()
	return b[:], nil
}

func (k *Sr25519PrivateKey) SignRecoverable([]byte) ([]byte, error) {
	return nil, ErrNotSupported
}

func (k *Sr25519PrivateKey) PublicKey() PublicKey {
	pub, _ := k.secret.Public()
	return &Sr25519PublicKey{key: pub}
}

// Bytes returns key || nonce.
func (k *Sr25519PrivateKey) Bytes() []byte {
	b := k.secret.Encode()
	return append(b[:], k.nonce[:]...)
}

func (k *Sr25519PrivateKey) Curve() CurveType {
	return CurveSr25519
}

type Sr25519PublicKey struct {
	key *schnorrkel.PublicKey
}

func NewSr25519PublicKey(b []byte) (*Sr25519PublicKey, error) {
	if len(b) != schnorrkel.PublicKeySize {
		return nil, ErrInvalidPublicKey
	}
	var raw [schnorrkel.PublicKeySize]byte
	copy(raw[:], b)
	pub, err := schnorrkel.NewPublicKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidPublicKey)
	}
	return &Sr25519PublicKey{key: pub}, nil
}

func (k *Sr25519PublicKey) Bytes() []byte {
	b := k.key.Encode()
	return b[:]
}

func (k *Sr25519PublicKey) Compressed() []byte {
	return k.Bytes()
}

func (k *Sr25519PublicKey) Uncompressed() []byte {
	return k.Bytes()
}

func (k *Sr25519PublicKey) Curve() CurveType {
	return CurveSr25519
}

func (k *Sr25519PublicKey) Verify(msg, sig []byte) bool {
	if len(sig) != schnorrkel.SignatureSize {
		return false
	}
	var raw [schnorrkel.SignatureSize]byte
	copy(raw[:], sig)

	s := &schnorrkel.Signature{}
	if err := s.Decode(raw); err != nil {
		return false
	}
	ok, err := k.key.Verify(s, schnorrkel.NewSigningContext(sr25519SigningContext, msg))
	return err == nil && ok
}

// junction is one substrate path step. "//x" is hard, "/x" is soft.
type junction struct {
	chainCode [32]byte
	hard      bool
}

// parseJunctions splits "//polkadot//imToken/0" into junctions. Numeric
// codes are u64 little endian, anything else is a SCALE string; codes longer
// than 32 bytes are blake2b-256 hashed.
func parseJunctions(path string) ([]junction, error) {
	matches := junctionRegexp.FindAllStringSubmatch(path, -1)

	consumed := 0
	junctions := make([]junction, 0, len(matches))
	for _, m := range matches {
		consumed += len(m[0])

		code := m[1]
		j := junction{}
		if code[0] == '/' {
			j.hard = true
			code = code[1:]
		}

		var encoded []byte
		if n, err := strconv.ParseUint(code, 10, 64); err == nil {
			encoded = make([]byte, 8)
			binary.LittleEndian.PutUint64(encoded, n)
		} else {
			encoded = append(scaleCompactLen(len(code)), code...)
		}

		if len(encoded) > 32 {
			j.chainCode = blake2b.Sum256(encoded)
		} else {
			copy(j.chainCode[:], encoded)
		}
		junctions = append(junctions, j)
	}

	if consumed != len(path) {
		return nil, ErrInvalidChildNumberFormat
	}
	return junctions, nil
}

func scaleCompactLen(n int) []byte {
	switch {
	case n < 1<<6:
		return []byte{byte(n << 2)}
	case n < 1<<14:
		v := uint16(n<<2 | 0x01)
		return []byte{byte(v), byte(v >> 8)}
	default:
		v := uint32(n<<2 | 0x02)
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, v)
		return b
	}
}

type Sr25519DeterministicPrivateKey struct {
	key *Sr25519PrivateKey
}

// NewSr25519Master uses the first 32 bytes of seed as the mini secret.
func NewSr25519Master(seed []byte) (*Sr25519DeterministicPrivateKey, error) {
	if len(seed) < schnorrkel.MiniSecretKeySize {
		return nil, ErrInvalidPrivateKey
	}
	priv, err := NewSr25519PrivateKey(seed[:schnorrkel.MiniSecretKeySize])
	if err != nil {
		return nil, err
	}
	return &Sr25519DeterministicPrivateKey{key: priv}, nil
}

// NewSr25519MasterFromMnemonic derives the root with the substrate flavour of
// BIP39, which stretches the entropy rather than the phrase.
func NewSr25519MasterFromMnemonic(phrase string) (*Sr25519DeterministicPrivateKey, error) {
	msk, err := schnorrkel.MiniSecretKeyFromMnemonic(phrase, "")
	if err != nil {
		return nil, err
	}
	priv, err := expandMiniSecret(msk.Encode())
	if err != nil {
		return nil, err
	}
	return &Sr25519DeterministicPrivateKey{key: priv}, nil
}

func (k *Sr25519DeterministicPrivateKey) Derive(path string) (DeterministicPrivateKey, error) {
	junctions, err := parseJunctions(path)
	if err != nil {
		return nil, err
	}

	cur := k.key
	for _, j := range junctions {
		if j.hard {
			mini, _, err := cur.secret.HardDeriveMiniSecretKey([]byte{}, j.chainCode)
			if err != nil {
				return nil, err
			}
			if cur, err = expandMiniSecret(mini.Encode()); err != nil {
				return nil, err
			}
			continue
		}

		ek, err := schnorrkel.DeriveKeySimple(cur.secret, []byte{}, j.chainCode)
		if err != nil {
			return nil, err
		}
		secret, err := ek.Secret()
		if err != nil {
			return nil, err
		}

		// Soft derivation draws a fresh nonce; keep our own copy of it.
		next := &Sr25519PrivateKey{}
		if _, err := rand.Read(next.nonce[:]); err != nil {
			return nil, err
		}
		next.secret = schnorrkel.NewSecretKey(secret.Encode(), next.nonce)
		cur = next
	}
	return &Sr25519DeterministicPrivateKey{key: cur}, nil
}

func (k *Sr25519DeterministicPrivateKey) PrivateKey() PrivateKey {
	return k.key
}

func (k *Sr25519DeterministicPrivateKey) DeterministicPublicKey() (DeterministicPublicKey, error) {
	pub, err := k.key.secret.Public()
	if err != nil {
		return nil, err
	}
	return &Sr25519DeterministicPublicKey{key: pub}, nil
}

type Sr25519DeterministicPublicKey struct {
	key *schnorrkel.PublicKey
}

func (k *Sr25519DeterministicPublicKey) Derive(path string) (DeterministicPublicKey, error) {
	junctions, err := parseJunctions(path)
	if err != nil {
		return nil, err
	}

	pub := k.key
	for _, j := range junctions {
		if j.hard {
			return nil, ErrCannotDeriveFromHardenedKey
		}
		ek, err := schnorrkel.DeriveKeySimple(pub, []byte{}, j.chainCode)
		if err != nil {
			return nil, err
		}
		if pub, err = ek.Public(); err != nil {
			return nil, err
		}
	}
	return &Sr25519DeterministicPublicKey{key: pub}, nil
}

func (k *Sr25519DeterministicPublicKey) PublicKey() PublicKey {
	return &Sr25519PublicKey{key: k.key}
}

func (k *Sr25519DeterministicPublicKey) String() string {
	b := k.key.Encode()
	return hex.EncodeToString(b[:])
}
