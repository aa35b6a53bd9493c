package address

import (
	"github.com/czh0526/tokencore/coin"
	"github.com/czh0526/tokencore/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

const devPhrase = "bottom drive obey lake curtain smoke basket hold race lonely fit walk"

func TestSubstrateFromPublicKey(t *testing.T) {
	root, err := key.DeterministicPrivateKeyFromMnemonic(key.CurveSr25519, devPhrase)
	require.NoError(t, err)
	alice, err := root.Derive("//Alice")
	require.NoError(t, err)
	pub := alice.PrivateKey().PublicKey()

	tests := []struct {
		coin string
		want string
	}{
		{coin.Polkadot, "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"},
		{coin.Kusama, "HNZata7iMYWmk5RvZRTiAsSDhV8366zq2YGb3tLH5Upf74F"},
	}

	for _, test := range tests {
		info := coin.Info{Coin: test.coin}
		addr, err := SubstrateScheme{}.FromPublicKey(pub, info)
		require.NoError(t, err)
		assert.Equal(t, test.want, addr)
		assert.True(t, SubstrateScheme{}.IsValid(addr, info))
	}

	assert.False(t, SubstrateScheme{}.IsValid(
		"15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5",
		coin.Info{Coin: coin.Kusama}))
	assert.False(t, SubstrateScheme{}.IsValid(
		"15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp6",
		coin.Info{Coin: coin.Polkadot}))
}

func TestSubstrateRejectsSecp256k1(t *testing.T) {
	pub := mustPubKey(t, "026b5b6a9d041bc5187e0b34f9e496436c7bff261c6c1b5f3c06b433c61394b868")
	_, err := SubstrateScheme{}.FromPublicKey(pub, coin.Info{Coin: coin.Polkadot})
	assert.ErrorIs(t, err, ErrUnsupportedKey)
}
