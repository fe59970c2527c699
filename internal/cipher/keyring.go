package cipher

import (
	"crypto/sha256"
	"sync"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
)

// Keyring memoizes derived keys by the SHA-256 of the secret they came from,
// so a rotated master secret derives a new key rather than reusing a stale one.
// Cached keys are never mutated and may be read concurrently.
type Keyring struct {
	mu   sync.RWMutex
	keys map[[sha256.Size]byte][]byte
}

// NewKeyring creates an empty Keyring.
func NewKeyring() *Keyring {
	return &Keyring{keys: make(map[[sha256.Size]byte][]byte)}
}

// Key returns the derived key for secret, deriving and caching it on first use.
func (k *Keyring) Key(secret string) ([]byte, error) {
	if secret == "" {
		return nil, model.ErrConfigurationMissing
	}

	id := sha256.Sum256([]byte(secret))

	k.mu.RLock()
	key, ok := k.keys[id]
	k.mu.RUnlock()
	if ok {
		return key, nil
	}

	key, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if existing, ok := k.keys[id]; ok {
		return existing, nil
	}
	k.keys[id] = key
	return key, nil
}

// Encrypt derives (or reuses) the key for secret and encrypts plaintext.
func (k *Keyring) Encrypt(secret, plaintext string) (string, error) {
	key, err := k.Key(secret)
	if err != nil {
		return "", err
	}
	return Encrypt(plaintext, key)
}

// Decrypt derives (or reuses) the key for secret and decrypts blob.
func (k *Keyring) Decrypt(secret, blob string) (string, error) {
	key, err := k.Key(secret)
	if err != nil {
		return "", err
	}
	return Decrypt(blob, key)
}
