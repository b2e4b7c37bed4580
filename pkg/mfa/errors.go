package mfa

import "errors"

// Enrollment and verification errors. Inspect with errors.Is.
var (
	ErrIneligibleAccount    = errors.New("account type cannot use multi-factor authentication")
	ErrAlreadyEnabled       = errors.New("multi-factor authentication is already enabled")
	ErrMFANotEnabled        = errors.New("multi-factor authentication is not enabled")
	ErrEnrollmentNotStarted = errors.New("multi-factor enrollment has not been started")
	ErrInvalidCode          = errors.New("invalid code")
	ErrInvalidBackupCode    = errors.New("invalid backup code")
	ErrTooManyAttempts      = errors.New("too many attempts")
)

// Storage errors.
var (
	ErrRecordNotFound = errors.New("mfa record not found")
	ErrInvalidRecord  = errors.New("mfa record violates invariants")
	ErrEmptyUserID    = errors.New("user id is required")
)

// ErrVerificationFailed is the single failure VerifyForLogin reports for a
// wrong code. It matches both ErrInvalidCode and ErrInvalidBackupCode so the
// caller cannot tell which path rejected the input.
var ErrVerificationFailed error = verificationError{}

type verificationError struct{}

func (verificationError) Error() string { return "invalid code" }

func (verificationError) Is(target error) bool {
	return target == ErrInvalidCode || target == ErrInvalidBackupCode
}

// IsRejection reports whether err is a domain outcome caused by the caller's
// input or the account's state rather than an infrastructure failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrIneligibleAccount,
		ErrAlreadyEnabled,
		ErrMFANotEnabled,
		ErrEnrollmentNotStarted,
		ErrInvalidCode,
		ErrInvalidBackupCode,
		ErrTooManyAttempts,
		ErrEmptyUserID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
