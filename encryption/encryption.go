// Package encryption seals preference documents at rest with AES-256-GCM.
// The key is validated once, when the Manager is built, so misconfiguration fails at startup.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	// KeyLength is the AES-256 key size in bytes.
	KeyLength = 32
	// EnvKeyName is the environment variable holding the encryption key.
	EnvKeyName = "CARPREFS_ENCRYPTION_KEY"
)

var (
	// ErrInvalidKeyLength is returned when the key is shorter than KeyLength.
	ErrInvalidKeyLength = errors.New("encryption key must be at least 32 bytes for AES-256")
	// ErrKeyNotFound is returned when EnvKeyName is unset.
	ErrKeyNotFound = errors.New("encryption key not found in environment variable " + EnvKeyName)
	// ErrEncryptionFailed is returned when sealing fails.
	ErrEncryptionFailed = errors.New("encryption operation failed")
	// ErrDecryptionFailed is returned when opening fails, including authentication failures.
	ErrDecryptionFailed = errors.New("decryption operation failed")
	// ErrInvalidCiphertext is returned when the ciphertext is shorter than a nonce.
	ErrInvalidCiphertext = errors.New("invalid ciphertext: too short or malformed")
)

// Manager seals and opens payloads. It is safe for concurrent use.
type Manager struct {
	aead  cipher.AEAD
	nonce io.Reader
}

// NewManager builds a Manager from the key in EnvKeyName.
func NewManager() (*Manager, error) {
	keyStr := os.Getenv(EnvKeyName)
	if keyStr == "" {
		return nil, ErrKeyNotFound
	}
	return NewManagerWithKey([]byte(keyStr))
}

// NewManagerWithKey builds a Manager from key. Only the first KeyLength bytes are used.
func NewManagerWithKey(key []byte) (*Manager, error) {
	if len(key) < KeyLength {
		return nil, fmt.Errorf("%w: got %d bytes, need at least %d", ErrInvalidKeyLength, len(key), KeyLength)
	}

	block, err := aes.NewCipher(key[:KeyLength])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create cipher: %v", ErrEncryptionFailed, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create GCM: %v", ErrEncryptionFailed, err)
	}

	return &Manager{aead: aead, nonce: rand.Reader}, nil
}

// Seal encrypts plaintext and returns nonce||ciphertext.
func (m *Manager) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, m.aead.NonceSize())
	if _, err := io.ReadFull(m.nonce, nonce); err != nil {
		return nil, fmt.Errorf("%w: failed to generate nonce: %v", ErrEncryptionFailed, err)
	}
	return m.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func (m *Manager) Open(sealed []byte) ([]byte, error) {
	nonceSize := m.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrInvalidCiphertext
	}
	plaintext, err := m.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// Encrypt seals plaintext and base64-encodes the result. The empty string stays empty.
func (m *Manager) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	sealed, err := m.Seal([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (m *Manager) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64: %v", ErrDecryptionFailed, err)
	}
	plaintext, err := m.Open(sealed)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// ValidateKey checks EnvKeyName without building a Manager.
func ValidateKey() error {
	keyStr := os.Getenv(EnvKeyName)
	if keyStr == "" {
		return ErrKeyNotFound
	}
	if len(keyStr) < KeyLength {
		return fmt.Errorf("%w: got %d bytes, need at least %d", ErrInvalidKeyLength, len(keyStr), KeyLength)
	}
	return nil
}
