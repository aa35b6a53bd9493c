/*
   Copyright (C) BABEC. All rights reserved.
   Copyright (C) THL A29 Limited, a Tencent company. All rights reserved.

   SPDX-License-Identifier: Apache-2.0
*/

package seed

import (
	"errors"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/tyler-smith/go-bip39"
	"strings"
)

// MnemonicEntropyBits yields a 12 word phrase.
const MnemonicEntropyBits = 128

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// NewSeed returns a random BIP32 seed of the recommended length.
func NewSeed() ([]byte, error) {
	return hdkeychain.GenerateSeed(hdkeychain.RecommendedSeedLen)
}

// NewMnemonic returns a fresh 12 word English phrase.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// NormalizeMnemonic collapses runs of whitespace to single spaces.
func NormalizeMnemonic(phrase string) string {
	return strings.Join(strings.Fields(phrase), " ")
}

// ValidateMnemonic checks the word list membership and the checksum.
func ValidateMnemonic(phrase string) error {
	if _, err := bip39.EntropyFromMnemonic(NormalizeMnemonic(phrase)); err != nil {
		return ErrInvalidMnemonic
	}
	return nil
}

// SeedFromMnemonic returns the 64-byte BIP39 seed under an empty passphrase.
func SeedFromMnemonic(phrase string) ([]byte, error) {
	if err := ValidateMnemonic(phrase); err != nil {
		return nil, err
	}
	return bip39.NewSeed(NormalizeMnemonic(phrase), ""), nil
}
