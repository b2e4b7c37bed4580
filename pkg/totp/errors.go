package totp

import "errors"

var (
	ErrFailedToGenerateSecretKey = errors.New("failed to generate TOTP secret key")
	ErrFailedToGenerateTOTP      = errors.New("failed to generate TOTP")
	ErrMissingSecret             = errors.New("missing secret")
	ErrInvalidSecret             = errors.New("invalid secret")
	ErrInvalidOTP                = errors.New("invalid OTP format")
)
