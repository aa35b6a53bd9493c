/*
   Copyright (C) BABEC. All rights reserved.
   Copyright (C) THL A29 Limited, a Tencent company. All rights reserved.

   SPDX-License-Identifier: Apache-2.0
*/

package key

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/czh0526/tokencore/seed"
)

// CurveType selects the key family of a coin.
type CurveType string

const (
	CurveSecp256k1 CurveType = "SECP256k1"
	CurveEd25519   CurveType = "ED25519"
	CurveSr25519   CurveType = "SR25519"
	CurveBLS       CurveType = "BLS"
)

var (
	ErrUnsupportedCurve            = errors.New("unsupported curve")
	ErrInvalidChildNumberFormat    = errors.New("invalid child number format")
	ErrInvalidChildNumber          = errors.New("invalid child number")
	ErrCannotDeriveFromHardenedKey = errors.New("cannot derive from hardened key")
	ErrPathTooShort                = errors.New("path is too short")
	ErrInvalidPrivateKey           = errors.New("invalid private key")
	ErrInvalidPublicKey            = errors.New("invalid public key")
	ErrInvalidDigest               = errors.New("invalid message digest")
	ErrNotSupported                = errors.New("operation not supported by curve")
)

func (c CurveType) String() string {
	return string(c)
}

// ParseCurveType accepts the persisted spelling of a curve.
func ParseCurveType(s string) (CurveType, error) {
	switch CurveType(s) {
	case CurveSecp256k1, CurveEd25519, CurveSr25519, CurveBLS:
		return CurveType(s), nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnsupportedCurve)
}

func (c *CurveType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	ct, err := ParseCurveType(s)
	if err != nil {
		return err
	}
	*c = ct
	return nil
}

type PrivateKey interface {
	// Sign signs a message digest. secp256k1 keys return DER.
	Sign(digest []byte) ([]byte, error)

	// SignRecoverable returns r || s || recovery id where the curve allows
	// public key recovery.
	SignRecoverable(digest []byte) ([]byte, error)

	PublicKey() PublicKey
	Bytes() []byte
	Curve() CurveType
}

type PublicKey interface {
	Bytes() []byte
	Compressed() []byte
	Uncompressed() []byte
	Curve() CurveType
}

type DeterministicPrivateKey interface {
	Derive(path string) (DeterministicPrivateKey, error)
	PrivateKey() PrivateKey
	DeterministicPublicKey() (DeterministicPublicKey, error)
}

type DeterministicPublicKey interface {
	// Derive walks normal children only. A hardened index fails with
	// ErrCannotDeriveFromHardenedKey.
	Derive(path string) (DeterministicPublicKey, error)
	PublicKey() PublicKey
	String() string
}

// NewDeterministicPrivateKey builds the master key of curve from seed.
func NewDeterministicPrivateKey(curve CurveType, seed []byte) (DeterministicPrivateKey, error) {
	switch curve {
	case CurveSecp256k1:
		return NewSecp256k1Master(seed)
	case CurveEd25519:
		return NewEd25519Master(seed)
	case CurveSr25519:
		return NewSr25519Master(seed)
	case CurveBLS:
		return NewBLSMaster(seed)
	}
	return nil, fmt.Errorf("%s: %w", curve, ErrUnsupportedCurve)
}

// DeterministicPrivateKeyFromMnemonic builds the master key of curve from
// a BIP39 phrase. sr25519 roots use the substrate seed derivation, every
// other curve uses the BIP39 seed with an empty passphrase.
func DeterministicPrivateKeyFromMnemonic(curve CurveType, phrase string) (DeterministicPrivateKey, error) {
	if curve == CurveSr25519 {
		return NewSr25519MasterFromMnemonic(phrase)
	}

	s, err := seed.SeedFromMnemonic(phrase)
	if err != nil {
		return nil, err
	}
	return NewDeterministicPrivateKey(curve, s)
}

func PrivateKeyFromBytes(curve CurveType, b []byte) (PrivateKey, error) {
	switch curve {
	case CurveSecp256k1:
		return NewSecp256k1PrivateKey(b)
	case CurveEd25519:
		return NewEd25519PrivateKey(b)
	case CurveSr25519:
		return NewSr25519PrivateKey(b)
	case CurveBLS:
		return NewBLSPrivateKey(b)
	}
	return nil, fmt.Errorf("%s: %w", curve, ErrUnsupportedCurve)
}

func PublicKeyFromBytes(curve CurveType, b []byte) (PublicKey, error) {
	switch curve {
	case CurveSecp256k1:
		return NewSecp256k1PublicKey(b)
	case CurveEd25519:
		return NewEd25519PublicKey(b)
	case CurveSr25519:
		return NewSr25519PublicKey(b)
	case CurveBLS:
		return NewBLSPublicKey(b)
	}
	return nil, fmt.Errorf("%s: %w", curve, ErrUnsupportedCurve)
}
