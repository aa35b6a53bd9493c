package address

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/czh0526/tokencore/coin"
	"github.com/czh0526/tokencore/key"
	"strconv"
)

// ExternalAddressIndex is the receive index reported next to a new account.
const ExternalAddressIndex = 1

var ErrInvalidXPubCipher = errors.New("invalid xpub cipher parameters")

// XPubCipher hides account extended public keys from casual inspection
// with a key shared between wallet and backend. It is not a secrecy
// boundary.
type XPubCipher struct {
	block cipher.Block
	iv    []byte
}

func NewXPubCipher(keyHex, ivHex string) (*XPubCipher, error) {
	k, err := hex.DecodeString(keyHex)
	if err != nil || len(k) != 16 {
		return nil, fmt.Errorf("key: %w", ErrInvalidXPubCipher)
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("iv: %w", ErrInvalidXPubCipher)
	}

	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, err
	}
	return &XPubCipher{block: block, iv: iv}, nil
}

// Encrypt is AES-128-CBC with PKCS7 padding, base64 encoded.
func (c *XPubCipher) Encrypt(plaintext string) string {
	pad := aes.BlockSize - len(plaintext)%aes.BlockSize
	buf := append([]byte(plaintext), bytes.Repeat([]byte{byte(pad)}, pad)...)

	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(buf, buf)
	return base64.StdEncoding.EncodeToString(buf)
}

func (c *XPubCipher) Decrypt(encoded string) (string, error) {
	buf, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	if len(buf) == 0 || len(buf)%aes.BlockSize != 0 {
		return "", ErrInvalidXPubCipher
	}

	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(buf, buf)

	pad := int(buf[len(buf)-1])
	if pad == 0 || pad > aes.BlockSize {
		return "", ErrInvalidXPubCipher
	}
	for _, b := range buf[len(buf)-pad:] {
		if int(b) != pad {
			return "", ErrInvalidXPubCipher
		}
	}
	return string(buf[:len(buf)-pad]), nil
}

// EncXPub serializes the compact account key as xpub on mainnet and tpub
// elsewhere, then encrypts it.
func (c *XPubCipher) EncXPub(extPubKey, network string) (string, error) {
	ek, err := key.ParseCompactHex(extPubKey)
	if err != nil {
		return "", err
	}

	version := key.TPubVersion
	if network == "MAINNET" {
		version = key.XPubVersion
	}
	return c.Encrypt(ek.Serialize(version)), nil
}

type ExternalAddress struct {
	Address     string `json:"address"`
	DerivedPath string `json:"derivedPath"`
	Type        string `json:"type"`
}

// ExternalAddressAt derives the receive address 0/index of an account.
func ExternalAddressAt(extPubKey string, index uint32, info coin.Info,
	scheme Scheme) (*ExternalAddress, error) {

	xpub, err := key.ParseSecp256k1DeterministicPublicKey(extPubKey)
	if err != nil {
		return nil, err
	}

	path := "0/" + strconv.FormatUint(uint64(index), 10)
	child, err := xpub.Derive(path)
	if err != nil {
		return nil, err
	}

	addr, err := scheme.FromPublicKey(child.PublicKey(), info)
	if err != nil {
		return nil, err
	}
	return &ExternalAddress{
		Address:     addr,
		DerivedPath: path,
		Type:        "EXTERNAL",
	}, nil
}

// XPubExtra records the encrypted account xpub and, when Scheme is set,
// the first external receive address.
type XPubExtra struct {
	Cipher *XPubCipher
	Scheme Scheme
}

type xpubExtra struct {
	EncXPub         string           `json:"encXPub"`
	ExternalAddress *ExternalAddress `json:"externalAddress,omitempty"`
}

func (e XPubExtra) Extra(extPubKey string, info coin.Info) (json.RawMessage, error) {
	if extPubKey == "" {
		return nil, nil
	}

	enc, err := e.Cipher.EncXPub(extPubKey, info.Network)
	if err != nil {
		return nil, err
	}

	extra := xpubExtra{EncXPub: enc}
	if e.Scheme != nil {
		extra.ExternalAddress, err = ExternalAddressAt(
			extPubKey, ExternalAddressIndex, info, e.Scheme)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(extra)
}
