package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *SearchableCipher {
	t.Helper()
	c, err := NewSearchableCipher([]byte("0123456789abcdef0123456789abcdef"), []byte("fedcba9876543210"))
	require.NoError(t, err)
	return c
}

func TestNewSearchableCipher_KeyValidation(t *testing.T) {
	tests := []struct {
		name    string
		key     []byte
		iv      []byte
		wantErr bool
	}{
		{"aes128", []byte("0123456789abcdef"), []byte("0123456789abcdef"), false},
		{"aes256", []byte("0123456789abcdef0123456789abcdef"), []byte("0123456789abcdef"), false},
		{"short key", []byte("tooshort"), []byte("0123456789abcdef"), true},
		{"short iv", []byte("0123456789abcdef"), []byte("short"), true},
		{"empty", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSearchableCipher(tt.key, tt.iv)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSearchableCipher_Roundtrip(t *testing.T) {
	c := newTestCipher(t)

	for _, s := range []string{
		"alice",
		"Secret123",
		"a",
		strings.Repeat("x", 16), // exactly one block
		strings.Repeat("y", 100),
		"ünïcødé &?%",
	} {
		ct, err := c.Encrypt(s)
		require.NoError(t, err)
		require.NotEqual(t, s, ct)

		pt, err := c.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, s, pt)
	}
}

func TestSearchableCipher_EmptyStringIdentity(t *testing.T) {
	c := newTestCipher(t)

	ct, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", ct)

	pt, err := c.Decrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", pt)
}

// Equal plaintexts must yield equal ciphertexts; equality lookups on
// encrypted columns depend on it.
func TestSearchableCipher_Deterministic(t *testing.T) {
	c := newTestCipher(t)

	ct1, err := c.Encrypt("alice")
	require.NoError(t, err)
	ct2, err := c.Encrypt("alice")
	require.NoError(t, err)
	assert.Equal(t, ct1, ct2)

	other, err := c.Encrypt("bob")
	require.NoError(t, err)
	assert.NotEqual(t, ct1, other)
}

func TestSearchableCipher_DifferentKeysDiffer(t *testing.T) {
	c1 := newTestCipher(t)
	c2, err := NewSearchableCipher([]byte("abcdef0123456789abcdef0123456789"), []byte("fedcba9876543210"))
	require.NoError(t, err)

	ct1, err := c1.Encrypt("alice")
	require.NoError(t, err)
	ct2, err := c2.Encrypt("alice")
	require.NoError(t, err)
	assert.NotEqual(t, ct1, ct2)
}

func TestSearchableCipher_DecryptGarbage(t *testing.T) {
	c := newTestCipher(t)

	for _, s := range []string{
		"not base64 !!!",
		"YWJj", // valid base64, not block-aligned
	} {
		_, err := c.Decrypt(s)
		assert.ErrorIs(t, err, ErrInvalidCiphertext, "input %q", s)
	}
}
