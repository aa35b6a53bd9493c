package key

import (
	"encoding/hex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

const devPhrase = "bottom drive obey lake curtain smoke basket hold race lonely fit walk"

func TestSr25519DevPhrase(t *testing.T) {
	root, err := NewSr25519MasterFromMnemonic(devPhrase)
	require.NoError(t, err)

	assert.Equal(t,
		"46ebddef8cd9bb167dc30878d7113b7e168e6f0646beffd77d69d39bad76b47a",
		hex.EncodeToString(root.PrivateKey().PublicKey().Bytes()))

	alice, err := root.Derive("//Alice")
	require.NoError(t, err)
	assert.Equal(t,
		"d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d",
		hex.EncodeToString(alice.PrivateKey().PublicKey().Bytes()))
}

func TestSr25519SoftDerivation(t *testing.T) {
	root, err := NewSr25519MasterFromMnemonic(devPhrase)
	require.NoError(t, err)

	account, err := root.Derive("//polkadot//imToken")
	require.NoError(t, err)

	child, err := account.Derive("/0/1")
	require.NoError(t, err)

	dpk, err := account.DeterministicPublicKey()
	require.NoError(t, err)
	pubChild, err := dpk.Derive("/0/1")
	require.NoError(t, err)

	assert.Equal(t, child.PrivateKey().PublicKey().Bytes(), pubChild.PublicKey().Bytes())

	_, err = dpk.Derive("//0")
	assert.ErrorIs(t, err, ErrCannotDeriveFromHardenedKey)
}

func TestSr25519JunctionErrors(t *testing.T) {
	root, err := NewSr25519MasterFromMnemonic(devPhrase)
	require.NoError(t, err)

	for _, path := range []string{"Alice", "//Alice/", "///Alice"} {
		_, err := root.Derive(path)
		assert.ErrorIs(t, err, ErrInvalidChildNumberFormat, path)
	}
}

func TestJunctionChainCode(t *testing.T) {
	js, err := parseJunctions("//1/Alice")
	require.NoError(t, err)
	require.Len(t, js, 2)

	assert.True(t, js[0].hard)
	assert.Equal(t, byte(1), js[0].chainCode[0])
	assert.Equal(t, make([]byte, 31), js[0].chainCode[1:])

	assert.False(t, js[1].hard)
	assert.Equal(t, []byte{0x14, 'A', 'l', 'i', 'c', 'e', 0}, js[1].chainCode[:7])

	long, err := parseJunctions("//" + string(make([]byte, 40)))
	require.NoError(t, err)
	assert.NotEqual(t, [32]byte{}, long[0].chainCode)
}

func TestSr25519SignVerify(t *testing.T) {
	root, err := NewSr25519MasterFromMnemonic(devPhrase)
	require.NoError(t, err)
	priv := root.PrivateKey()

	msg := []byte("tokencore")
	sig, err := priv.Sign(msg)
	require.NoError(t, err)
	assert.Len(t, sig, 64)

	pub := priv.PublicKey().(*Sr25519PublicKey)
	assert.True(t, pub.Verify(msg, sig))
	assert.False(t, pub.Verify([]byte("other"), sig))

	_, err = priv.SignRecoverable(msg)
	assert.ErrorIs(t, err, ErrNotSupported)

	// key || nonce round trip.
	again, err := NewSr25519PrivateKey(priv.Bytes())
	require.NoError(t, err)
	assert.Equal(t, priv.Bytes(), again.Bytes())
	assert.Equal(t, pub.Bytes(), again.PublicKey().Bytes())

	parsed, err := NewSr25519PublicKey(pub.Bytes())
	require.NoError(t, err)
	assert.True(t, parsed.Verify(msg, sig))
}
