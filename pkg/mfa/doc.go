// Package mfa implements authenticator-app multi-factor authentication for
// user accounts: enrollment, login verification, backup codes and disabling.
//
// A record moves through three states:
//
//	disabled --BeginEnrollment--> pending_confirmation --ConfirmEnrollment--> enabled
//	    ^                                                                         |
//	    +-------------------------------- Disable <------------------------------+
//
// The transitions are declared with pkg/statemachine and evaluated against
// the persisted record inside Store.UpdateRecord, so every mutation is a
// single atomic read-modify-write. A backup code can therefore be consumed at
// most once even when two logins race with the same code.
//
// Usage:
//
//	manager := mfa.NewManager(store, eligibility,
//	    mfa.WithLogger(log),
//	    mfa.WithIssuer("PointBridge"),
//	)
//
//	enrollment, err := manager.BeginEnrollment(ctx, userID) // show enrollment.URI as a QR code
//	backupCodes, err := manager.ConfirmEnrollment(ctx, userID, "123456")
//	ok, err := manager.VerifyForLogin(ctx, userID, submitted)
//
// VerifyForLogin tries the TOTP code first and then the backup codes. A
// wrong code returns ErrVerificationFailed, which matches both
// ErrInvalidCode and ErrInvalidBackupCode.
//
// Stores: MemoryStore here, pgstore for PostgreSQL and redisstore for Redis.
// Their shared contract tests live in storetest.
package mfa
