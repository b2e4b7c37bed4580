package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	KeySize = 32 // AES-256

	hkdfInfo = "mfakit-totp-secret-v1"
)

// Config holds the master key used to seal TOTP secrets at rest.
type Config struct {
	EncryptionKey string `env:"MFA_ENCRYPTION_KEY"` // standard base64 of 32 random bytes
}

// KeyFromConfig decodes the configured master key.
func KeyFromConfig(cfg Config) ([]byte, error) {
	raw := strings.TrimSpace(cfg.EncryptionKey)
	if raw == "" {
		return nil, ErrMissingKey
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.Join(ErrInvalidKey, err)
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// GenerateKey returns a fresh random master key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// GenerateEncodedKey returns a fresh master key in the MFA_ENCRYPTION_KEY format.
func GenerateEncodedKey() (string, error) {
	key, err := GenerateKey()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// deriveKey binds the data key to userID so a sealed value copied onto
// another account fails to open.
func deriveKey(masterKey []byte, userID string) ([]byte, error) {
	r := hkdf.New(sha256.New, masterKey, []byte(userID), []byte(hkdfInfo))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	return key, nil
}

func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
