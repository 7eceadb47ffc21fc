// Package cryptox implements the deterministic field-level cipher used to
// protect identifying account and media data at rest.
//
// The cipher is AES-CBC with a fixed key and a fixed IV, so equal plaintexts
// always produce equal ciphertexts. That is a deliberate trade: it leaks
// repetition patterns, but it keeps encrypted columns equality-searchable
// (looking up an account by username means encrypting the query term and
// matching the ciphertext). Do not "harden" this with random IVs or an AEAD
// mode without also replacing every equality lookup that depends on it.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrInvalidCiphertext is returned when input to Decrypt is not a valid
	// base64-encoded, block-aligned, PKCS#7-padded ciphertext.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

// SearchableCipher encrypts and decrypts opaque strings deterministically.
// Key and IV are supplied once at startup and never change for the process
// lifetime; key rotation is out of scope.
type SearchableCipher struct {
	key []byte
	iv  []byte
}

// NewSearchableCipher validates the key and IV and returns a cipher.
// The key must be 16, 24, or 32 bytes (AES-128/192/256) and the IV must be
// exactly one AES block (16 bytes).
func NewSearchableCipher(key, iv []byte) (*SearchableCipher, error) {
	if _, err := aes.NewCipher(key); err != nil {
		return nil, fmt.Errorf("invalid cipher key: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("invalid cipher iv: expected %d bytes, got %d", aes.BlockSize, len(iv))
	}
	return &SearchableCipher{key: key, iv: iv}, nil
}

// Encrypt returns the base64-encoded AES-CBC encryption of plaintext.
// The empty string maps to the empty string without invoking the cipher.
func (c *SearchableCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, c.iv).CryptBlocks(out, padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. The empty string maps to the empty string.
func (c *SearchableCipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", ErrInvalidCiphertext
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, c.iv).CryptBlocks(out, raw)

	unpadded, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidCiphertext
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrInvalidCiphertext
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidCiphertext
		}
	}
	return data[:len(data)-n], nil
}
