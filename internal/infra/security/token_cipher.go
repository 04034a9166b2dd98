// File: internal/infra/security/token_cipher.go
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// TokenCipher protects instance and partner tokens at rest.
type TokenCipher interface {
	Seal(plaintext string) (string, error)
	Open(stored string) (string, error)
}

// sealedPrefix marks values written by AESCipher. Stored values without it
// are returned as-is, so rows written before a key was configured still load.
const sealedPrefix = "enc:v1:"

var (
	_ TokenCipher = (*AESCipher)(nil)
	_ TokenCipher = PlainCipher{}
)

// AESCipher uses AES-GCM with a random nonce per value.
type AESCipher struct {
	gcm cipher.AEAD
}

// NewTokenCipher returns PlainCipher for an empty key. Otherwise the key
// must be 16, 24, or 32 bytes (AES-128/192/256).
func NewTokenCipher(key string) (TokenCipher, error) {
	if key == "" {
		return PlainCipher{}, nil
	}
	return NewAESCipher(key)
}

func NewAESCipher(key string) (*AESCipher, error) {
	k := []byte(key)
	n := len(k)
	if n != 16 && n != 24 && n != 32 {
		return nil, fmt.Errorf("encryption key must be 16, 24, or 32 bytes; got %d", n)
	}
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &AESCipher{gcm: gcm}, nil
}

// Seal returns "enc:v1:" + base64(nonce || ciphertext). Empty stays empty.
func (e *AESCipher) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}
	ct := e.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(ct), nil
}

func (e *AESCipher) Open(stored string) (string, error) {
	b64, ok := strings.CutPrefix(stored, sealedPrefix)
	if !ok {
		return stored, nil
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}
	ns := e.gcm.NonceSize()
	if len(data) < ns {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, ct := data[:ns], data[ns:]
	pt, err := e.gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("gcm open: %w", err)
	}
	return string(pt), nil
}

// PlainCipher stores tokens unchanged. It refuses to open sealed values.
type PlainCipher struct{}

func (PlainCipher) Seal(plaintext string) (string, error) { return plaintext, nil }

func (PlainCipher) Open(stored string) (string, error) {
	if strings.HasPrefix(stored, sealedPrefix) {
		return "", fmt.Errorf("value is encrypted but no encryption key is configured")
	}
	return stored, nil
}
