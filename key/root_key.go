/*
   Copyright (C) BABEC. All rights reserved.
   Copyright (C) THL A29 Limited, a Tencent company. All rights reserved.

   SPDX-License-Identifier: Apache-2.0
*/

package key

import (
	"encoding/binary"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// NewRootKey returns the BIP32 master node of seed. Version bytes are always
// the bitcoin mainnet ones, callers pick their own when serializing.
func NewRootKey(seed []byte) (*hdkeychain.ExtendedKey, error) {
	return hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
}

// toExtendedKey copies an hdkeychain node into its wire form.
func toExtendedKey(k *hdkeychain.ExtendedKey, version [4]byte) ExtendedKey {
	ek := ExtendedKey{
		Version:     version,
		Depth:       k.Depth(),
		ChildNumber: k.ChildIndex(),
	}
	binary.BigEndian.PutUint32(ek.ParentFP[:], k.ParentFingerprint())
	copy(ek.ChainCode[:], k.ChainCode())

	if k.IsPrivate() {
		priv, _ := k.ECPrivKey()
		b := priv.Serialize()
		copy(ek.Key[1:], b)
		return ek
	}

	pub, _ := k.ECPubKey()
	copy(ek.Key[:], pub.SerializeCompressed())
	return ek
}

// fromExtendedKey rebuilds an hdkeychain node from its wire form.
func fromExtendedKey(ek *ExtendedKey) *hdkeychain.ExtendedKey {
	if ek.IsPrivate() {
		return hdkeychain.NewExtendedKey(
			XPrvVersion[:], append([]byte(nil), ek.Key[1:]...),
			append([]byte(nil), ek.ChainCode[:]...),
			append([]byte(nil), ek.ParentFP[:]...),
			ek.Depth, ek.ChildNumber, true,
		)
	}
	return hdkeychain.NewExtendedKey(
		XPubVersion[:], append([]byte(nil), ek.Key[:]...),
		append([]byte(nil), ek.ChainCode[:]...),
		append([]byte(nil), ek.ParentFP[:]...),
		ek.Depth, ek.ChildNumber, false,
	)
}
