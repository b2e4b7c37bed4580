// Package secrets seals TOTP secrets before they are written to a database.
//
// A single 32-byte master key (MFA_ENCRYPTION_KEY, base64) is stretched with
// HKDF-SHA256 into one AES-256-GCM key per user id. The user id is also
// authenticated as additional data, so a sealed secret only opens for the
// account it was sealed for.
//
//	sealer, err := secrets.NewSealerFromConfig(cfg)
//	sealed, err := sealer.Seal(userID, totpSecret)
//	secret, err := sealer.Open(userID, sealed)
//
// Generate a key with GenerateEncodedKey or the mfakey command.
package secrets
