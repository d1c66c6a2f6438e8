package crypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	codec := NewCodec("test-secret")

	for _, plaintext := range []string{"a", "hello", "k2j9x0mf3qwel", "exactly-16-bytes", "a much longer plaintext spanning several aes blocks"} {
		t.Run(plaintext, func(t *testing.T) {
			encrypted, err := codec.Encrypt(plaintext)
			require.NoError(t, err)

			decrypted, err := codec.Decrypt(encrypted)
			require.NoError(t, err)
			assert.Equal(t, plaintext, decrypted)
		})
	}
}

func TestCodecFreshIVPerCall(t *testing.T) {
	codec := NewCodec("test-secret")

	first, err := codec.Encrypt("same plaintext")
	require.NoError(t, err)
	second, err := codec.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCodecDecryptMalformedInput(t *testing.T) {
	codec := NewCodec("test-secret")

	valid, err := codec.Encrypt("k2j9x0mf3qwel")
	require.NoError(t, err)

	cases := []struct {
		name  string
		input string
	}{
		{"not base64url", "!!not-base64!!"},
		{"empty", ""},
		{"shorter than iv plus one block", "YWJjZGVm"},
		{"truncated ciphertext", valid[:len(valid)-4]},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := codec.Decrypt(tc.input)
			assert.ErrorIs(t, err, ErrDecryption)
		})
	}
}

func TestCodecDecryptWrongKey(t *testing.T) {
	encrypted, err := NewCodec("key-one").Encrypt("k2j9x0mf3qwel")
	require.NoError(t, err)

	decrypted, err := NewCodec("key-two").Decrypt(encrypted)
	if err == nil {
		// CBC without a MAC cannot always detect a wrong key; when padding
		// happens to validate the plaintext must still be garbage.
		assert.NotEqual(t, "k2j9x0mf3qwel", decrypted)
		return
	}
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.True(t, IsValidCode(code), "generated code %q must match the memo pattern", code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 90, "codes should be effectively unique")
}

func TestIsValidCode(t *testing.T) {
	assert.True(t, IsValidCode("abc12"))
	assert.True(t, IsValidCode("k2j9x0mf3qwel"))
	assert.False(t, IsValidCode("abcd"))
	assert.False(t, IsValidCode("UPPERCASE123"))
	assert.False(t, IsValidCode("waytoolongtobeavalidcode"))
	assert.False(t, IsValidCode("has space"))
	assert.False(t, IsValidCode(""))
}
