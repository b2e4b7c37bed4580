// Package qrcode renders QR codes for authenticator-app enrollment.
//
// It wraps github.com/skip2/go-qrcode and returns either raw PNG bytes or a
// data URL that the enrollment screen embeds directly:
//
//	dataURL, err := qrcode.GenerateBase64Image("otpauth://totp/Acme:alice?secret=...", 256)
//
// Errors are package-level sentinels (ErrEmptyContent, ErrFailedToGenerate);
// compare them with errors.Is.
package qrcode
