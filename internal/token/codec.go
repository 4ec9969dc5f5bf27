// Package token implements the shared credential envelope codec.
//
// Envelope format: `iv:authTag:ciphertext`, each field hex-encoded. The
// cipher is AES-256-GCM with a 12-byte nonce and a 16-byte tag; the key is
// SHA-256 of a configured shared secret, so independent systems derive the
// same key from the same secret without a matching slow-KDF implementation.
package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	nonceSize = 12
	tagSize   = 16
)

// Codec encrypts and decrypts credential envelopes.
type Codec struct {
	key [sha256.Size]byte
}

// NewCodec derives the AES key from the shared secret.
func NewCodec(secret string) *Codec {
	return &Codec{key: sha256.Sum256([]byte(secret))}
}

// Decrypt opens an envelope and returns the plaintext token. It fails soft:
// on a malformed envelope, a non-hex field, or an authentication failure the
// input is returned unchanged, so a not-yet-encrypted legacy token stays
// usable. This function never returns an error.
func (c *Codec) Decrypt(envelope string) string {
	if !strings.Contains(envelope, ":") {
		return envelope
	}

	parts := strings.Split(envelope, ":")
	if len(parts) != 3 {
		return envelope
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return envelope
	}
	authTag, err := hex.DecodeString(parts[1])
	if err != nil {
		return envelope
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return envelope
	}

	aead, err := c.aead()
	if err != nil {
		return envelope
	}
	if len(iv) != aead.NonceSize() {
		return envelope
	}

	// The envelope splits ciphertext and tag; GCM Open expects them
	// concatenated.
	sealed := make([]byte, 0, len(ciphertext)+len(authTag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, authTag...)

	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return envelope
	}
	return string(plaintext)
}

// Encrypt seals a plaintext token into the shared envelope format. Used when
// a provider rotates credentials mid-sync and the new token must be stored
// in the same format the companion system produces.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	aead, err := c.aead()
	if err != nil {
		return "", err
	}

	iv := make([]byte, nonceSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	if len(sealed) < tagSize {
		return "", fmt.Errorf("sealed payload shorter than tag: %d", len(sealed))
	}
	ciphertext := sealed[:len(sealed)-tagSize]
	authTag := sealed[len(sealed)-tagSize:]

	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(iv),
		hex.EncodeToString(authTag),
		hex.EncodeToString(ciphertext),
	), nil
}

func (c *Codec) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
