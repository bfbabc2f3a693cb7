// Package crypto provides envelope encryption for tool credentials:
// secrets at rest are sealed with a per-secret data key, which is itself
// sealed with a process-wide master key. Compromising one stored secret
// never exposes the key material protecting the others.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
)

// KeySize is the AES-256 key length in bytes, for both the master key
// and the per-secret data keys.
const KeySize = 32

// devMasterKeyHex is the fallback when ENCRYPTION_KEY is unset, so local
// development works without provisioning a key. Never rely on it in
// production.
const devMasterKeyHex = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

var (
	// ErrInvalidKey is returned for a master key that is not 32 bytes.
	ErrInvalidKey = errors.New("crypto: encryption key must be 32 bytes (64 hex characters)")

	// ErrDecryptionFailed is returned when a ciphertext fails
	// authentication, which covers both corruption and a wrong key.
	ErrDecryptionFailed = errors.New("crypto: decryption failed")
)

// Encryptor seals and opens envelope-encrypted payloads under one master
// key.
type Encryptor struct {
	masterKey []byte
}

// EncryptedData is one sealed payload: the data ciphertext, the data key
// sealed under the master key, and the nonce for each layer.
type EncryptedData struct {
	Ciphertext   []byte `json:"ciphertext"`
	EncryptedDEK []byte `json:"encrypted_dek"`
	DataNonce    []byte `json:"data_nonce"`
	DEKNonce     []byte `json:"dek_nonce"`
}

// NewEncryptor reads the hex-encoded master key from ENCRYPTION_KEY,
// falling back to the development default when unset.
func NewEncryptor() (*Encryptor, error) {
	keyHex := os.Getenv("ENCRYPTION_KEY")
	if keyHex == "" {
		keyHex = devMasterKeyHex
	}

	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto: decode encryption key: %w", err)
	}
	return NewEncryptorWithKey(key)
}

// NewEncryptorWithKey builds an Encryptor from raw key bytes, used by
// tests and hosts that manage key material themselves.
func NewEncryptorWithKey(key []byte) (*Encryptor, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	return &Encryptor{masterKey: key}, nil
}

// Encrypt seals data: a fresh data key encrypts the payload, the master
// key encrypts the data key, and the data key is wiped before returning.
func (e *Encryptor) Encrypt(data []byte) (*EncryptedData, error) {
	dek := make([]byte, KeySize)
	if _, err := rand.Read(dek); err != nil {
		return nil, fmt.Errorf("crypto: generate data key: %w", err)
	}
	defer wipe(dek)

	ciphertext, dataNonce, err := seal(dek, data)
	if err != nil {
		return nil, err
	}

	encryptedDEK, dekNonce, err := seal(e.masterKey, dek)
	if err != nil {
		return nil, err
	}

	return &EncryptedData{
		Ciphertext:   ciphertext,
		EncryptedDEK: encryptedDEK,
		DataNonce:    dataNonce,
		DEKNonce:     dekNonce,
	}, nil
}

// Decrypt opens a sealed payload: the master key recovers the data key,
// the data key recovers the plaintext.
func (e *Encryptor) Decrypt(ed *EncryptedData) ([]byte, error) {
	dek, err := open(e.masterKey, ed.EncryptedDEK, ed.DEKNonce)
	if err != nil {
		return nil, err
	}
	defer wipe(dek)

	return open(dek, ed.Ciphertext, ed.DataNonce)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: create GCM: %w", err)
	}
	return gcm, nil
}

func seal(key, plaintext []byte) (ciphertext, nonce []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("crypto: generate nonce: %w", err)
	}

	return gcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

func open(key, ciphertext, nonce []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
