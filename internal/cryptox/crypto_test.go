package cryptox

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	secret := []byte("secret-password")
	salt := []byte("fixed-salt")

	key1 := DeriveKey(secret, salt)
	key2 := DeriveKey(secret, salt)

	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same result for same inputs, got different")
	}

	expectedHex := "34f7a1c64df63ab1ad5b5ee06e64db5713b35f81839823304db63e8e5e6a6a39"
	if hex.EncodeToString(key1) != expectedHex {
		t.Errorf("expected %s, got %s", expectedHex, hex.EncodeToString(key1))
	}
}

func TestDeriveKey_DifferentSalts(t *testing.T) {
	secret := []byte("secret-password")

	key1 := DeriveKey(secret, []byte("salt-1"))
	key2 := DeriveKey(secret, []byte("salt-2"))

	if bytes.Equal(key1, key2) {
		t.Errorf("expected different results for different salts, got same")
	}
}

func TestSealOpen(t *testing.T) {
	secret := []byte("hw-1")
	plaintext := []byte("identity-token")

	sealed, err := Seal(plaintext, secret)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "identity-token")

	again, err := Seal(plaintext, secret)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again)

	got, err := Open(sealed, secret)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestOpen_WrongSecret(t *testing.T) {
	sealed, err := Seal([]byte("identity-token"), []byte("hw-1"))
	require.NoError(t, err)

	_, err = Open(sealed, []byte("hw-2"))
	assert.Error(t, err)
}

func TestOpen_Tampered(t *testing.T) {
	sealed, err := Seal([]byte("identity-token"), []byte("hw-1"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = Open(sealed, []byte("hw-1"))
	assert.Error(t, err)
}

func TestOpen_Malformed(t *testing.T) {
	_, err := Open([]byte("short"), []byte("x"))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Open(make([]byte, SaltSize+4), []byte("x"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRandomBytes(t *testing.T) {
	a, err := RandomBytes(32)
	require.NoError(t, err)
	b, err := RandomBytes(32)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
