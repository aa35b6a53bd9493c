package address

import (
	"encoding/hex"
	"errors"
	"github.com/czh0526/tokencore/coin"
	"github.com/czh0526/tokencore/key"
	"github.com/czh0526/tokencore/netparams"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func mustPubKey(t *testing.T, s string) key.PublicKey {
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	pub, err := key.NewSecp256k1PublicKey(b)
	require.NoError(t, err)
	return pub
}

func TestBtcForkFromPublicKey(t *testing.T) {
	tests := []struct {
		pubKey string
		info   coin.Info
		want   string
	}{
		{
			pubKey: "02506bc1dc099358e5137292f4efdd57e400f29ba5132aa5d12b18dac1c1f6aaba",
			info:   coin.Info{Coin: coin.Litecoin, Network: "MAINNET", SegWit: "P2WPKH"},
			want:   "MR5Hu9zXPX3o9QuYNJGft1VMpRP418QDfW",
		},
		{
			pubKey: "02506bc1dc099358e5137292f4efdd57e400f29ba5132aa5d12b18dac1c1f6aaba",
			info:   coin.Info{Coin: coin.Litecoin, Network: "MAINNET", SegWit: "SEGWIT"},
			want:   "ltc1qum864wd9nwsc0u9ytkctz6wzrw6g7zdn08yddf",
		},
		{
			pubKey: "02506bc1dc099358e5137292f4efdd57e400f29ba5132aa5d12b18dac1c1f6aaba",
			info:   coin.Info{Coin: coin.Bitcoin, Network: "MAINNET", SegWit: "P2WPKH"},
			want:   "3Js9bGaZSQCNLudeGRHL4NExVinc25RbuG",
		},
		{
			pubKey: "02506bc1dc099358e5137292f4efdd57e400f29ba5132aa5d12b18dac1c1f6aaba",
			info:   coin.Info{Coin: coin.Bitcoin, Network: "MAINNET", SegWit: "SEGWIT"},
			want:   "bc1qum864wd9nwsc0u9ytkctz6wzrw6g7zdntm7f4e",
		},
		{
			pubKey: "026b5b6a9d041bc5187e0b34f9e496436c7bff261c6c1b5f3c06b433c61394b868",
			info:   coin.Info{Coin: coin.Bitcoin, Network: "MAINNET", SegWit: "NONE"},
			want:   "12z6UzsA3tjpaeuvA2Zr9jwx19Azz74D6g",
		},
	}

	for _, test := range tests {
		addr, err := BtcForkScheme{}.FromPublicKey(mustPubKey(t, test.pubKey), test.info)
		require.NoError(t, err, test.want)
		assert.Equal(t, test.want, addr)
		assert.True(t, BtcForkScheme{}.IsValid(addr, test.info), test.want)
	}
}

func TestBtcForkRejectsOtherCurves(t *testing.T) {
	pub, err := key.NewEd25519PublicKey(make([]byte, 32))
	require.NoError(t, err)

	info := coin.Info{Coin: coin.Bitcoin, Network: "MAINNET", SegWit: "NONE"}
	_, err = BtcForkScheme{}.FromPublicKey(pub, info)
	assert.True(t, errors.Is(err, ErrUnsupportedKey))
}

func TestScriptPubKey(t *testing.T) {
	ltcTest, err := netparams.ParamsFromCoin("LITECOIN", "TESTNET", "NONE")
	require.NoError(t, err)
	ltcMain, err := netparams.ParamsFromCoin("LITECOIN", "MAINNET", "NONE")
	require.NoError(t, err)

	tests := []struct {
		addr   string
		params *netparams.Params
		want   string
	}{
		{"mszYqVnqKoQx4jcTdJXxwKAissE3Jbrrc1", ltcTest,
			"76a91488d9931ea73d60eaf7e5671efc0552b912911f2a88ac"},
		{"mgBCJAsvzgT2qNNeXsoECg2uPKrUsZ76up", ltcTest,
			"76a914073b7eae2823efa349e3b9155b8a735526463a0f88ac"},
		{"MR5Hu9zXPX3o9QuYNJGft1VMpRP418QDfW", ltcMain,
			"a914bc64b2d79807cd3d72101c3298b89117d32097fb87"},
		{"ltc1qum864wd9nwsc0u9ytkctz6wzrw6g7zdn08yddf", ltcMain,
			"0014e6cfaab9a59ba187f0a45db0b169c21bb48f09b3"},
	}

	for _, test := range tests {
		script, err := ScriptPubKey(test.addr, test.params)
		require.NoError(t, err, test.addr)
		assert.Equal(t, test.want, hex.EncodeToString(script), test.addr)
	}
}

func TestDecodeInvalid(t *testing.T) {
	ltcTest, err := netparams.ParamsFromCoin("LITECOIN", "TESTNET", "NONE")
	require.NoError(t, err)

	tests := []string{
		"address_invalid",
		"",
		"MR5Hu9zXPX3o9QuYNJGft1VMpRP418QDfW",
		"ltc1qum864wd9nwsc0u9ytkctz6wzrw6g7zdn08yddf",
		"mszYqVnqKoQx4jcTdJXxwKAissE3Jbrrc2",
	}
	for _, addr := range tests {
		_, err := Decode(addr, ltcTest)
		assert.True(t, errors.Is(err, ErrInvalidAddress), addr)
	}
}

func TestSchemeFor(t *testing.T) {
	tests := []struct {
		coin string
		want Scheme
	}{
		{coin.Bitcoin, BtcForkScheme{}},
		{coin.Litecoin, BtcForkScheme{}},
		{coin.BitcoinCash, CashAddrScheme{}},
		{coin.Polkadot, SubstrateScheme{}},
		{coin.Kusama, SubstrateScheme{}},
	}
	for _, test := range tests {
		scheme, err := SchemeFor(coin.Info{Coin: test.coin})
		require.NoError(t, err)
		assert.IsType(t, test.want, scheme)
	}

	_, err := SchemeFor(coin.Info{Coin: coin.Tron})
	assert.True(t, errors.Is(err, coin.ErrUnsupportedChain))
}
