package keycrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"github.com/czh0526/tokencore/internal/zero"
	"github.com/lightninglabs/neutrino/cache/lru"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/crypto/sha3"
	"io"
	"sync"
)

const (
	// KeySize is the length of the derived key. The first half keys the
	// cipher, the second half keys the mac.
	KeySize = 32

	SaltSize = 32
	IVSize   = aes.BlockSize

	CipherAES128CTR = "aes-128-ctr"
	KDFPBKDF2       = "pbkdf2"
	KDFScrypt       = "scrypt"
	PRFHmacSHA256   = "hmac-sha256"

	derivedKeyCacheSize = 4

	// Upper bounds on parameters read from a keystore, checked before the
	// KDF runs so a crafted file cannot exhaust memory or CPU.
	maxDKLen          = 64
	maxPBKDF2Rounds   = 1 << 22
	maxScryptMemory   = 1 << 30 // 128 * n * r bytes
	maxScryptParallel = 16
)

var (
	prng = rand.Reader
)

var (
	ErrInvalidPassword   = errors.New("invalid password")
	ErrMalformed         = errors.New("malformed data")
	ErrUnsupportedKDF    = errors.New("unsupported kdf")
	ErrUnsupportedCipher = errors.New("unsupported cipher")
)

// Parameters are the tunable knobs of the password KDF. An empty KDF
// selects pbkdf2, which reads C and PRF. scrypt reads N, R and P.
type Parameters struct {
	KDF   string
	C     uint32
	DKLen uint32
	PRF   string
	N     uint32
	R     uint32
	P     uint32
}

var (
	DefaultParameters = Parameters{
		C:     10240,
		DKLen: KeySize,
		PRF:   PRFHmacSHA256,
	}

	// FastParameters keeps tests quick. Never use it for real secrets.
	FastParameters = Parameters{
		C:     16,
		DKLen: KeySize,
		PRF:   PRFHmacSHA256,
	}

	// ScryptParameters match the strength of common scrypt keystores.
	ScryptParameters = Parameters{
		KDF:   KDFScrypt,
		DKLen: KeySize,
		N:     1 << 18,
		R:     8,
		P:     1,
	}
)

type CipherParams struct {
	IV string `json:"iv"`
}

// KDFParams holds the parameters of either KDF, the others stay empty.
type KDFParams struct {
	C     uint32 `json:"c,omitempty"`
	PRF   string `json:"prf,omitempty"`
	N     uint32 `json:"n,omitempty"`
	R     uint32 `json:"r,omitempty"`
	P     uint32 `json:"p,omitempty"`
	DKLen uint32 `json:"dklen"`
	Salt  string `json:"salt"`
}

// Crypto is a password protected secret. The mac binds the second half of
// the derived key to the ciphertext and is always checked before any
// plaintext is produced.
//
// A Crypto must not be copied after first use.
type Crypto struct {
	Cipher       string       `json:"cipher"`
	CipherParams CipherParams `json:"cipherparams"`
	CipherText   string       `json:"ciphertext"`
	KDF          string       `json:"kdf"`
	KDFParams    KDFParams    `json:"kdfparams"`
	MAC          string       `json:"mac"`

	mtx   sync.Mutex
	cache *lru.Cache[[sha256.Size]byte, *cachedKey]
}

// EncPair is a secondary ciphertext under the key of its owning Crypto with
// its own nonce.
type EncPair struct {
	EncStr string `json:"encStr"`
	Nonce  string `json:"nonce"`
}

type cachedKey struct {
	key [KeySize]byte
}

func (c *cachedKey) Size() (uint64, error) {
	return 1, nil
}

// New encrypts plaintext under password. A nil params selects
// DefaultParameters.
func New(password, plaintext []byte, params *Parameters) (*Crypto, error) {
	if params == nil {
		params = &DefaultParameters
	}
	if params.DKLen < KeySize {
		return nil, fmt.Errorf("dklen %d too short: %w", params.DKLen, ErrMalformed)
	}

	var salt [SaltSize]byte
	if _, err := io.ReadFull(prng, salt[:]); err != nil {
		return nil, err
	}
	var iv [IVSize]byte
	if _, err := io.ReadFull(prng, iv[:]); err != nil {
		return nil, err
	}

	c := &Crypto{
		Cipher:       CipherAES128CTR,
		CipherParams: CipherParams{IV: hex.EncodeToString(iv[:])},
		KDF:          KDFPBKDF2,
		KDFParams: KDFParams{
			DKLen: params.DKLen,
			Salt:  hex.EncodeToString(salt[:]),
		},
	}
	switch params.KDF {
	case "", KDFPBKDF2:
		c.KDFParams.C = params.C
		c.KDFParams.PRF = params.PRF
	case KDFScrypt:
		c.KDF = KDFScrypt
		c.KDFParams.N = params.N
		c.KDFParams.R = params.R
		c.KDFParams.P = params.P
	default:
		return nil, ErrUnsupportedKDF
	}

	dk, err := c.GenerateDerivedKey(password)
	if err != nil {
		return nil, err
	}
	defer zero.Bytes(dk)

	ct, err := xorKeyStream(dk[:16], iv[:], plaintext)
	if err != nil {
		return nil, err
	}
	c.CipherText = hex.EncodeToString(ct)
	c.MAC = hex.EncodeToString(computeMAC(dk, ct))

	return c, nil
}

// GenerateDerivedKey runs the KDF over password with the stored salt and
// parameters.
func (c *Crypto) GenerateDerivedKey(password []byte) ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	salt, err := hex.DecodeString(c.KDFParams.Salt)
	if err != nil {
		return nil, fmt.Errorf("salt: %w", ErrMalformed)
	}

	p := &c.KDFParams
	if c.KDF == KDFScrypt {
		dk, err := scrypt.Key(password, salt, int(p.N), int(p.R), int(p.P),
			int(p.DKLen))
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, ErrMalformed)
		}
		return dk[:KeySize], nil
	}

	dk := pbkdf2.Key(password, salt, int(p.C), int(p.DKLen), sha256.New)
	return dk[:KeySize], nil
}

func (c *Crypto) validate() error {
	if c.Cipher != CipherAES128CTR {
		return ErrUnsupportedCipher
	}

	p := &c.KDFParams
	switch c.KDF {
	case KDFPBKDF2:
		if p.PRF != PRFHmacSHA256 {
			return ErrUnsupportedKDF
		}
		if p.C == 0 || p.C > maxPBKDF2Rounds {
			return ErrMalformed
		}
	case KDFScrypt:
		if p.N <= 1 || p.N&(p.N-1) != 0 || p.R == 0 || p.P == 0 {
			return ErrMalformed
		}
		if 128*uint64(p.N)*uint64(p.R) > maxScryptMemory ||
			p.P > maxScryptParallel {

			return ErrMalformed
		}
	default:
		return ErrUnsupportedKDF
	}

	if p.DKLen < KeySize || p.DKLen > maxDKLen || len(p.Salt) == 0 {
		return ErrMalformed
	}
	return nil
}

// derivedKey returns a fresh copy of the derived key, served from the cache
// when the password was cached earlier. The caller owns the copy.
func (c *Crypto) derivedKey(password []byte) ([]byte, error) {
	c.mtx.Lock()
	cache := c.cache
	c.mtx.Unlock()

	if cache != nil {
		ck, err := cache.Get(sha256.Sum256(password))
		if err == nil {
			log.Tracef("Derived key served from cache")
			dk := make([]byte, KeySize)
			copy(dk, ck.key[:])
			return dk, nil
		}
	}

	return c.GenerateDerivedKey(password)
}

// verifiedKey derives the key and checks it against the stored mac.
func (c *Crypto) verifiedKey(password []byte) ([]byte, []byte, error) {
	dk, err := c.derivedKey(password)
	if err != nil {
		return nil, nil, err
	}

	ct, err := hex.DecodeString(c.CipherText)
	if err != nil {
		zero.Bytes(dk)
		return nil, nil, fmt.Errorf("ciphertext: %w", ErrMalformed)
	}
	mac, err := hex.DecodeString(c.MAC)
	if err != nil {
		zero.Bytes(dk)
		return nil, nil, fmt.Errorf("mac: %w", ErrMalformed)
	}

	if subtle.ConstantTimeCompare(computeMAC(dk, ct), mac) != 1 {
		zero.Bytes(dk)
		return nil, nil, ErrInvalidPassword
	}

	return dk, ct, nil
}

// Decrypt returns the plaintext. No byte of the ciphertext is deciphered
// unless the mac matches.
func (c *Crypto) Decrypt(password []byte) ([]byte, error) {
	dk, ct, err := c.verifiedKey(password)
	if err != nil {
		return nil, err
	}
	defer zero.Bytes(dk)

	iv, err := hex.DecodeString(c.CipherParams.IV)
	if err != nil || len(iv) != IVSize {
		return nil, fmt.Errorf("iv: %w", ErrMalformed)
	}

	return xorKeyStream(dk[:16], iv, ct)
}

// VerifyPassword reports whether password opens the container.
func (c *Crypto) VerifyPassword(password []byte) bool {
	dk, _, err := c.verifiedKey(password)
	if err != nil {
		return false
	}
	zero.Bytes(dk)
	return true
}

// DeriveEncPair encrypts plaintext with the container key and a fresh nonce.
func (c *Crypto) DeriveEncPair(password, plaintext []byte) (*EncPair, error) {
	dk, _, err := c.verifiedKey(password)
	if err != nil {
		return nil, err
	}
	defer zero.Bytes(dk)

	var iv [IVSize]byte
	if _, err := io.ReadFull(prng, iv[:]); err != nil {
		return nil, err
	}

	ct, err := xorKeyStream(dk[:16], iv[:], plaintext)
	if err != nil {
		return nil, err
	}

	return &EncPair{
		EncStr: hex.EncodeToString(ct),
		Nonce:  hex.EncodeToString(iv[:]),
	}, nil
}

func (c *Crypto) DecryptEncPair(password []byte, pair *EncPair) ([]byte, error) {
	if pair == nil {
		return nil, ErrMalformed
	}

	dk, _, err := c.verifiedKey(password)
	if err != nil {
		return nil, err
	}
	defer zero.Bytes(dk)

	ct, err := hex.DecodeString(pair.EncStr)
	if err != nil {
		return nil, fmt.Errorf("enc pair: %w", ErrMalformed)
	}
	iv, err := hex.DecodeString(pair.Nonce)
	if err != nil || len(iv) != IVSize {
		return nil, fmt.Errorf("enc pair nonce: %w", ErrMalformed)
	}

	return xorKeyStream(dk[:16], iv, ct)
}

// CacheDerivedKey verifies password and keeps its derived key so later
// calls with the same password skip the KDF. The cache lives until
// ClearCache.
func (c *Crypto) CacheDerivedKey(password []byte) error {
	dk, _, err := c.verifiedKey(password)
	if err != nil {
		return err
	}
	defer zero.Bytes(dk)

	ck := &cachedKey{}
	copy(ck.key[:], dk)

	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.cache == nil {
		c.cache = lru.NewCache[[sha256.Size]byte, *cachedKey](
			derivedKeyCacheSize,
		)
	}
	_, err = c.cache.Put(sha256.Sum256(password), ck)
	return err
}

// ClearCache wipes every cached derived key.
func (c *Crypto) ClearCache() {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.cache == nil {
		return
	}

	c.cache.Range(func(_ [sha256.Size]byte, ck *cachedKey) bool {
		zero.Bytea32(&ck.key)
		return true
	})
	c.cache = nil
}

// CachedKeys returns the number of derived keys currently held.
func (c *Crypto) CachedKeys() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

func computeMAC(dk, ct []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(dk[16:KeySize])
	h.Write(ct)
	return h.Sum(nil)
}

func xorKeyStream(key, iv, in []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(in))
	cipher.NewCTR(block, iv).XORKeyStream(out, in)
	return out, nil
}
