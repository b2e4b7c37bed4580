// Package totp implements the RFC 6238 Time-based One-Time Password algorithm
// used for authenticator-app based multi-factor authentication.
//
// Parameters are fixed to the defaults every mainstream authenticator app
// understands: HMAC-SHA1, 30-second steps and 6-digit codes. Secrets are 160
// random bits encoded with the package base32 codec (32 characters, no padding).
//
// # Generating and verifying
//
//	secret, _ := totp.GenerateSecretKey(nil) // crypto/rand
//
//	code, _ := totp.GenerateCode(secret, time.Now())
//
//	ok, err := totp.Verify(secret, code, time.Now(), totp.DefaultSkew)
//
// Verify accepts the step containing the supplied time plus skew steps on each
// side. With DefaultSkew (1) a code is valid for its own 30-second step and the
// neighbouring ones, a 90-second acceptance window in total; a code from two
// steps away is rejected. All candidates are derived and compared in constant
// time regardless of where a match occurs.
//
// Time is always passed in explicitly so callers can inject a clock; the
// GenerateTOTP and ValidateTOTP helpers use time.Now for convenience.
//
// # Enrollment URI
//
// GetTOTPURI renders the otpauth URI encoded into enrollment QR codes:
//
//	uri, _ := totp.GetTOTPURI(totp.TOTPParams{
//	    Secret:      secret,
//	    AccountName: "alice@example.com",
//	    Issuer:      "PointBridge",
//	})
//	// otpauth://totp/PointBridge:alice%40example.com?secret=...&issuer=PointBridge&algorithm=SHA1&digits=6&period=30
//
// # Error Handling
//
// Secrets are decoded leniently: case, spaces, dashes and padding are ignored,
// so "jbsw-y3dp-ehpk-3pxp" and "JBSWY3DPEHPK3PXP" are the same key and
// NormalizeSecret maps both to the latter. A secret with no base32 characters
// yields ErrInvalidSecret, an empty one ErrMissingSecret. Codes that are
// not exactly six digits yield ErrInvalidOTP. A well-formed but wrong code is
// not an error: Verify returns false, nil.
//
// # See Also
//
//   - RFC 4226 – HMAC-Based One-Time Password (HOTP) Algorithm
//   - RFC 6238 – Time-Based One-Time Password (TOTP) Algorithm
package totp
