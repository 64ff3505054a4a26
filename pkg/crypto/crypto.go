// Package crypto implements the symmetric encryption used for provider
// tokens and access credentials (spec.md §4.M). The construction is pinned
// by the spec (AES-CFB, IV = SHA-256(key)[:16]), so this intentionally uses
// the standard library rather than a third-party wrapper: any wrapper would
// only obscure the exact construction the spec requires.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/analytiqhub/docrouter/pkg/apperr"
)

// Cipher encrypts/decrypts strings with a process-wide secret.
type Cipher struct {
	key []byte // 32 bytes
	iv  []byte // 16 bytes
}

// New derives a Cipher from a process-wide secret. The secret is padded with
// zero bytes or truncated to exactly 32 bytes; the IV is the first 16 bytes
// of SHA-256(key).
func New(secret string) *Cipher {
	key := make([]byte, 32)
	copy(key, []byte(secret))

	sum := sha256.Sum256(key)
	iv := make([]byte, 16)
	copy(iv, sum[:16])

	return &Cipher{key: key, iv: iv}
}

// Encrypt returns the URL-safe base64 ciphertext for s.
func (c *Cipher) Encrypt(s string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("building aes cipher: %w", err)
	}

	plaintext := []byte(s)
	ciphertext := make([]byte, len(plaintext))
	stream := cipher.NewCFBEncrypter(block, c.iv)
	stream.XORKeyStream(ciphertext, plaintext)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. Malformed input surfaces as apperr.ErrDecryptionFailed.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrDecryptionFailed, err)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrDecryptionFailed, err)
	}

	plaintext := make([]byte, len(ciphertext))
	stream := cipher.NewCFBDecrypter(block, c.iv)
	stream.XORKeyStream(plaintext, ciphertext)

	return string(plaintext), nil
}
