// Package credential stores and resolves the API keys and other secrets
// tool executors need, backed by pkg/crypto's envelope encryption so
// plaintext secrets never sit in memory or storage longer than a single
// resolution.
package credential

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/flowforge/engine/pkg/crypto"
)

// ErrNotFound is returned when no credential is stored under the given name.
var ErrNotFound = errors.New("credential: not found")

// Resolver decrypts and returns the named credential's plaintext value.
// Adapters accept one of these rather than a raw API key so the secret is
// decrypted just before use and never retained across calls.
type Resolver func(ctx context.Context, name string) (string, error)

// Store holds envelope-encrypted secrets in memory, keyed by name, and
// exposes a Resolve method satisfying Resolver. Production deployments
// would back Put/Resolve with a database row instead of the in-memory
// map; the encryption boundary is identical either way.
type Store struct {
	encryptor *crypto.Encryptor

	mu      sync.RWMutex
	secrets map[string]*crypto.EncryptedData
}

// NewStore creates a Store that encrypts and decrypts with encryptor.
func NewStore(encryptor *crypto.Encryptor) *Store {
	return &Store{
		encryptor: encryptor,
		secrets:   make(map[string]*crypto.EncryptedData),
	}
}

// Put encrypts plaintext and stores it under name, replacing any existing
// value.
func (s *Store) Put(name, plaintext string) error {
	encrypted, err := s.encryptor.Encrypt([]byte(plaintext))
	if err != nil {
		return fmt.Errorf("credential: encrypting %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[name] = encrypted
	return nil
}

// Resolve decrypts and returns the credential stored under name. It
// satisfies the Resolver function type.
func (s *Store) Resolve(_ context.Context, name string) (string, error) {
	s.mu.RLock()
	encrypted, ok := s.secrets[name]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("credential: %q: %w", name, ErrNotFound)
	}

	plaintext, err := s.encryptor.Decrypt(encrypted)
	if err != nil {
		return "", fmt.Errorf("credential: decrypting %q: %w", name, err)
	}
	return string(plaintext), nil
}
