// Package cryptox seals small secrets with AES-GCM under argon2id-derived keys.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/argon2"
)

// SaltSize is the length of the random salt Seal prepends to its output.
const SaltSize = 16

var ErrMalformed = errors.New("sealed data is malformed")

// DeriveKey stretches secret into a 32-byte AES-256 key.
func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}

func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Seal encrypts plaintext with a key derived from secret and a fresh salt.
// The result is salt || nonce || ciphertext.
func Seal(plaintext, secret []byte) ([]byte, error) {
	salt, err := RandomBytes(SaltSize)
	if err != nil {
		return nil, err
	}

	aead, err := newAEAD(DeriveKey(secret, salt))
	if err != nil {
		return nil, err
	}

	nonce, err := RandomBytes(aead.NonceSize())
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(salt)+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// Open reverses Seal. A wrong secret fails authentication.
func Open(sealed, secret []byte) ([]byte, error) {
	if len(sealed) < SaltSize {
		return nil, ErrMalformed
	}
	salt, rest := sealed[:SaltSize], sealed[SaltSize:]

	aead, err := newAEAD(DeriveKey(secret, salt))
	if err != nil {
		return nil, err
	}
	if len(rest) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrMalformed
	}

	nonce, ciphertext := rest[:aead.NonceSize()], rest[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
