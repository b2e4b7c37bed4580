package totp

import (
	"strconv"
	"strings"
)

// TOTPParams contains the parameters for TOTP URI generation
type TOTPParams struct {
	Secret      string // Base32-encoded TOTP secret key (required)
	AccountName string // User identifier like email
	Issuer      string // Service name displayed in authenticator apps
	Algorithm   string // HMAC algorithm (optional, defaults to SHA1)
	Digits      int    // Number of digits in generated codes (optional, defaults to 6)
	Period      int    // Code validity period in seconds (optional, defaults to 30)
}

// Validate ensures the secret decodes to a key the same way Verify decodes it.
// Empty account names and issuers are accepted; authenticator apps render them as blanks.
func (p TOTPParams) Validate() error {
	_, err := decodeSecret(p.Secret)
	return err
}

// GetDefaults returns a copy with RFC 6238 standard defaults applied to zero-valued fields
func (p TOTPParams) GetDefaults() TOTPParams {
	if p.Algorithm == "" {
		p.Algorithm = DefaultAlgorithm
	}
	if p.Digits == 0 {
		p.Digits = DefaultDigits
	}
	if p.Period == 0 {
		p.Period = DefaultPeriod
	}
	return p
}

// GetTOTPURI creates the otpauth URI consumed by authenticator apps:
//
//	otpauth://totp/<issuer>:<label>?secret=<base32>&issuer=<issuer>&algorithm=SHA1&digits=6&period=30
//
// Parameter order is fixed. The secret is written in its normalized form.
// Issuer and label are percent-encoded exactly as encodeURIComponent does:
// everything except A-Z a-z 0-9 and - _ . ! ~ * ' ( ) is escaped.
func GetTOTPURI(params TOTPParams) (string, error) {
	secret, err := NormalizeSecret(params.Secret)
	if err != nil {
		return "", err
	}
	params.Secret = secret
	params = params.GetDefaults()

	issuer := escape(params.Issuer)

	var sb strings.Builder
	sb.WriteString("otpauth://totp/")
	sb.WriteString(issuer)
	sb.WriteByte(':')
	sb.WriteString(escape(params.AccountName))
	sb.WriteString("?secret=")
	sb.WriteString(escape(params.Secret))
	sb.WriteString("&issuer=")
	sb.WriteString(issuer)
	sb.WriteString("&algorithm=")
	sb.WriteString(escape(params.Algorithm))
	sb.WriteString("&digits=")
	sb.WriteString(strconv.Itoa(params.Digits))
	sb.WriteString("&period=")
	sb.WriteString(strconv.Itoa(params.Period))

	return sb.String(), nil
}

// escape percent-encodes UTF-8 bytes outside the encodeURIComponent safe set.
func escape(s string) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if uriSafe(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0f])
	}
	return sb.String()
}

func uriSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
