// Package cipher derives the vault's symmetric key from the operator master
// secret and performs AES-256-GCM encryption of credential strings.
package cipher

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
)

const (
	// KeySize is the derived AES-256 key length in bytes.
	KeySize = 32

	// NonceSize is the GCM nonce length prepended to every payload.
	NonceSize = 12

	minSecretLength = 8
)

var hexPattern = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// DeriveKey turns a master secret into a 32-byte key. An even-length hex
// secret is hex-decoded; anything else is used as its UTF-8 bytes. The
// decoded bytes are repeated cyclically (or truncated) to KeySize.
func DeriveKey(secret string) ([]byte, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("secret must be at least %d characters: %w", minSecretLength, model.ErrInvalidKeyMaterial)
	}

	decoded := decodeKeyMaterial(secret)
	if len(decoded) == 0 {
		return nil, model.ErrEmptyKeyMaterial
	}

	key := make([]byte, KeySize)
	for i := range key {
		key[i] = decoded[i%len(decoded)]
	}
	return key, nil
}

func decodeKeyMaterial(secret string) []byte {
	if len(secret)%2 == 0 && hexPattern.MatchString(secret) {
		if b, err := hex.DecodeString(secret); err == nil {
			return b
		}
	}
	return []byte(secret)
}

// Encrypt seals plaintext with AES-256-GCM under key using a fresh random
// nonce and returns base64(nonce || ciphertext || tag).
func Encrypt(plaintext string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends to nonce, producing nonce || ciphertext || tag.
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a payload produced by Encrypt. Malformed input, a wrong key,
// or tampered bytes all yield model.ErrDecryptionFailed.
func Decrypt(blob string, key []byte) (string, error) {
	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", model.ErrDecryptionFailed)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	if len(data) < NonceSize+gcm.Overhead() {
		return "", fmt.Errorf("ciphertext too short: %w", model.ErrDecryptionFailed)
	}

	nonce, sealed := data[:NonceSize], data[NonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("gcm open: %w", model.ErrDecryptionFailed)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (gocipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d: %w", KeySize, len(key), model.ErrInvalidKeyMaterial)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := gocipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
