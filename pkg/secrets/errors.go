package secrets

import "errors"

var (
	ErrInvalidKey          = errors.New("invalid encryption key: must be 32 bytes")
	ErrMissingKey          = errors.New("encryption key is not configured")
	ErrEmptyUserID         = errors.New("user id is required for sealing")
	ErrEncryptionFailed    = errors.New("encryption failed")
	ErrDecryptionFailed    = errors.New("decryption failed")
	ErrInvalidCiphertext   = errors.New("invalid ciphertext format")
	ErrKeyDerivationFailed = errors.New("key derivation failed")
)
