package prompt

import (
	"bytes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"strings"
	"testing"
)

const testMnemonic = "inject kidney empty canal shadow pact comfort wife crush horse wife sketch"

func TestPassword(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		confirm bool
		want    string
		wantErr error
	}{
		{"plain", "secret\n", false, "secret", nil},
		{"empty allowed", "\n", false, "", nil},
		{"confirmed", "secret\nsecret\n", true, "secret", nil},
		{"empty retried", "\nsecret\nsecret\n", true, "secret", nil},
		{"mismatch", "secret\nother\n", true, "", ErrPasswordMismatch},
		{"eof", "", false, "", io.EOF},
	}

	for _, test := range tests {
		p := NewWithReader(strings.NewReader(test.input), io.Discard)
		got, err := p.Password(test.confirm)
		if test.wantErr != nil {
			assert.ErrorIs(t, err, test.wantErr, test.name)
			continue
		}
		require.NoError(t, err, test.name)
		assert.Equal(t, test.want, string(got), test.name)
	}
}

func TestMnemonic(t *testing.T) {
	var out bytes.Buffer
	input := "inject kidney\n  " + strings.ReplaceAll(testMnemonic, " ", "   ") + "  \n"

	p := NewWithReader(strings.NewReader(input), &out)
	got, err := p.Mnemonic()
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, got)
	assert.Contains(t, out.String(), "Invalid mnemonic")
}

func TestBool(t *testing.T) {
	tests := []struct {
		input      string
		defaultYes bool
		want       bool
	}{
		{"\n", false, false},
		{"\n", true, true},
		{"y\n", false, true},
		{"YES\n", false, true},
		{"maybe\nno\n", true, false},
	}

	for _, test := range tests {
		p := NewWithReader(strings.NewReader(test.input), io.Discard)
		got, err := p.Bool("Continue?", test.defaultYes)
		require.NoError(t, err, test.input)
		assert.Equal(t, test.want, got, test.input)
	}
}

func TestPrivateKeyAndLine(t *testing.T) {
	p := NewWithReader(strings.NewReader("\nabcd\nname"), io.Discard)

	priv, err := p.PrivateKey()
	require.NoError(t, err)
	assert.Equal(t, "abcd", priv)

	// The last line may lack a newline.
	line, err := p.Line("Name: ")
	require.NoError(t, err)
	assert.Equal(t, "name", line)
}
