// Package txauthor builds and signs spending transactions for Bitcoin and
// its forks.
package txauthor

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/czh0526/tokencore/address"
	"github.com/czh0526/tokencore/coin"
	"github.com/czh0526/tokencore/key"
	"github.com/czh0526/tokencore/netparams"
)

// SigHashMode selects the signature hash algorithm of a chain.
type SigHashMode uint8

const (
	// SigHashLegacy is the original pre-segwit algorithm.
	SigHashLegacy SigHashMode = iota

	// SigHashWitnessV0 is BIP143.
	SigHashWitnessV0

	// SigHashForkID is BIP143 with the fork id bit set in the hash type,
	// used by Bitcoin Cash for every input.
	SigHashForkID
)

// SigHashForkIDAll is SIGHASH_ALL | SIGHASH_FORKID.
const SigHashForkIDAll txscript.SigHashType = txscript.SigHashAll | 0x40

func (m SigHashMode) String() string {
	switch m {
	case SigHashLegacy:
		return "legacy"
	case SigHashWitnessV0:
		return "witness_v0"
	case SigHashForkID:
		return "fork_id"
	}
	return fmt.Sprintf("SigHashMode(%d)", m)
}

func (m SigHashMode) hashType() txscript.SigHashType {
	if m == SigHashForkID {
		return SigHashForkIDAll
	}
	return txscript.SigHashAll
}

func (m SigHashMode) txVersion() int32 {
	if m == SigHashWitnessV0 {
		return 2
	}
	return 1
}

// Signer signs transactions of one network.
type Signer struct {
	Params *netparams.Params
	Mode   SigHashMode
}

// SignerFor picks the network and the signature hash algorithm of a
// registered BTC-fork coin.
func SignerFor(info coin.Info) (*Signer, error) {
	params, err := netparams.ParamsFromCoin(info.Coin, info.Network, info.SegWit)
	if err != nil {
		return nil, err
	}

	mode := SigHashLegacy
	switch {
	case params.Coin == netparams.CoinBitcoinCash:
		mode = SigHashForkID
	case params.IsSegWit():
		mode = SigHashWitnessV0
	}
	return &Signer{Params: params, Mode: mode}, nil
}

// SignTx fetches one key per unspent output from src and signs input.
// xpub is the account level public key used to derive the change address,
// it may be nil when input names a ChangeAddress.
func (s *Signer) SignTx(src KeySource, coinSymbol string,
	xpub key.DeterministicPublicKey, input *TxInput) (*SignedTx, error) {

	paths, err := input.relPaths()
	if err != nil {
		return nil, err
	}
	keys, err := src.KeyAtPaths(coinSymbol, paths)
	if err != nil {
		return nil, err
	}
	return s.Sign(input, keys, xpub)
}

// Sign signs every unspent output of input with the key at the same
// position of keys.
func (s *Signer) Sign(input *TxInput, keys []key.PrivateKey,
	xpub key.DeterministicPublicKey) (*SignedTx, error) {

	change, err := input.change()
	if err != nil {
		return nil, err
	}
	if len(keys) != len(input.Unspents) {
		return nil, fmt.Errorf("%d keys for %d inputs: %w", len(keys),
			len(input.Unspents), ErrKeyCount)
	}

	tx := wire.NewMsgTx(s.Mode.txVersion())

	toScript, err := address.ScriptPubKey(input.To, s.Params)
	if err != nil {
		return nil, err
	}
	tx.AddTxOut(wire.NewTxOut(input.Amount, toScript))

	if change >= DustThreshold {
		changeScript, err := s.changeScript(input, xpub)
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(change, changeScript))
	}

	prevScripts := make([][]byte, len(input.Unspents))
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, u := range input.Unspents {
		hash, err := chainhash.NewHashFromStr(u.TxHash)
		if err != nil {
			return nil, fmt.Errorf("unspent %d: %w", i, err)
		}
		prevScripts[i], err = s.prevScript(&u)
		if err != nil {
			return nil, err
		}

		outPoint := wire.NewOutPoint(hash, u.Vout)
		tx.AddTxIn(wire.NewTxIn(outPoint, nil, nil))
		fetcher.AddPrevOut(*outPoint, wire.NewTxOut(u.Amount, prevScripts[i]))
	}

	// The midstate only serves BIP143 style digests and is shared by every
	// input.
	var sigHashes *txscript.TxSigHashes
	if s.Mode != SigHashLegacy {
		sigHashes = txscript.NewTxSigHashes(tx, fetcher)
	}

	for i, priv := range keys {
		if err := s.signInput(tx, i, priv, prevScripts[i],
			input.Unspents[i].Amount, sigHashes); err != nil {

			return nil, fmt.Errorf("input %d: %w", i, err)
		}
	}

	var buf bytes.Buffer
	buf.Grow(tx.SerializeSize())
	if err := tx.Serialize(&buf); err != nil {
		return nil, err
	}

	txHash := tx.TxHash()
	log.Debugf("Signed %s tx %v with %d inputs and %d outputs", s.Mode,
		txHash, len(tx.TxIn), len(tx.TxOut))

	return &SignedTx{
		Signature: hex.EncodeToString(buf.Bytes()),
		TxHash:    txHash.String(),
	}, nil
}

func (s *Signer) signInput(tx *wire.MsgTx, idx int, priv key.PrivateKey,
	prevScript []byte, amount int64, sigHashes *txscript.TxSigHashes) error {

	if priv.Curve() != key.CurveSecp256k1 {
		return key.ErrUnsupportedCurve
	}
	pubKey := priv.PublicKey().Compressed()
	hashType := s.Mode.hashType()

	var (
		digest []byte
		err    error
	)
	switch s.Mode {
	case SigHashLegacy:
		digest, err = txscript.CalcSignatureHash(prevScript, hashType, tx, idx)
	default:
		var scriptCode []byte
		scriptCode, err = p2pkhScript(pubKey)
		if err != nil {
			return err
		}
		digest, err = txscript.CalcWitnessSigHash(scriptCode, sigHashes,
			hashType, tx, idx, amount)
	}
	if err != nil {
		return err
	}

	sig, err := priv.Sign(digest)
	if err != nil {
		return err
	}
	sig = append(sig, byte(hashType))

	if s.Mode != SigHashWitnessV0 {
		tx.TxIn[idx].SignatureScript, err = txscript.NewScriptBuilder().
			AddData(sig).AddData(pubKey).Script()
		return err
	}

	tx.TxIn[idx].Witness = wire.TxWitness{sig, pubKey}
	if s.Params.SegWit == netparams.SegWitNative {
		return nil
	}

	// P2SH-P2WPKH carries the witness program as its redeem script.
	program, err := txscript.NewScriptBuilder().AddOp(txscript.OP_0).
		AddData(btcutil.Hash160(pubKey)).Script()
	if err != nil {
		return err
	}
	tx.TxIn[idx].SignatureScript, err = txscript.NewScriptBuilder().
		AddData(program).Script()
	return err
}

// prevScript is the locking script of u, taken from the utxo itself when
// given and from its address otherwise.
func (s *Signer) prevScript(u *Utxo) ([]byte, error) {
	if u.ScriptPubKey != "" {
		script, err := hex.DecodeString(u.ScriptPubKey)
		if err != nil {
			return nil, fmt.Errorf("script of %s:%d: %w", u.TxHash, u.Vout, err)
		}
		return script, nil
	}
	return address.ScriptPubKey(u.Address, s.Params)
}

func (s *Signer) changeScript(input *TxInput,
	xpub key.DeterministicPublicKey) ([]byte, error) {

	if input.ChangeAddress != "" {
		return address.ScriptPubKey(input.ChangeAddress, s.Params)
	}
	if xpub == nil {
		return nil, ErrMissingChangeAddress
	}

	child, err := xpub.Derive(fmt.Sprintf("0/%d", input.ChangeAddressIndex))
	if err != nil {
		return nil, err
	}
	addr, err := address.NewAddress(child.PublicKey().Compressed(),
		address.TypeOf(s.Params), s.Params)
	if err != nil {
		return nil, err
	}
	return txscript.PayToAddrScript(addr)
}

func p2pkhScript(pubKey []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(btcutil.Hash160(pubKey)).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}
