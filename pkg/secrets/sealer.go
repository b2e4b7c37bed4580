package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"slices"
)

// Sealer encrypts per-user values with AES-256-GCM. Each user gets a key
// derived from the master key with HKDF, and the user id is bound as
// additional data.
type Sealer struct {
	masterKey []byte
	random    io.Reader
}

// NewSealer copies masterKey, which must be KeySize bytes.
func NewSealer(masterKey []byte) (*Sealer, error) {
	if len(masterKey) != KeySize {
		return nil, ErrInvalidKey
	}
	return &Sealer{masterKey: slices.Clone(masterKey), random: rand.Reader}, nil
}

// NewSealerFromConfig builds a sealer from MFA_ENCRYPTION_KEY.
func NewSealerFromConfig(cfg Config) (*Sealer, error) {
	key, err := KeyFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	defer clearBytes(key)
	return NewSealer(key)
}

// Seal encrypts plaintext for userID and returns base64(nonce || ciphertext).
func (s *Sealer) Seal(userID, plaintext string) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}
	aead, err := s.aead(userID)
	if err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(s.random, nonce); err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), []byte(userID))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. It fails for a different userID or a tampered value.
func (s *Sealer) Open(userID, sealed string) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", errors.Join(ErrInvalidCiphertext, err)
	}

	aead, err := s.aead(userID)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}

	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrInvalidCiphertext
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(userID))
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

func (s *Sealer) aead(userID string) (cipher.AEAD, error) {
	key, err := deriveKey(s.masterKey, userID)
	if err != nil {
		return nil, err
	}
	defer clearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
