package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrymomot/mfakit/pkg/base32"
)

const (
	DefaultDigits    = 6      // Standard 6-digit TOTP codes
	DefaultPeriod    = 30     // 30-second validity window (RFC 6238 standard)
	DefaultAlgorithm = "SHA1" // HMAC-SHA1 algorithm (RFC 6238 standard)
	DefaultSkew      = 1      // Steps accepted on each side of the current one: ±30s, 90s total

	// SecretSize is the number of random bytes behind every generated secret (160 bits).
	SecretSize = 20
)

var (
	// ValidateSecretKeyRegex matches the canonical form produced by GenerateSecretKey
	// and NormalizeSecret: uppercase A-Z, digits 2-7, optional padding
	ValidateSecretKeyRegex = regexp.MustCompile("^[A-Z2-7]+=*$")

	otpRegex = regexp.MustCompile(fmt.Sprintf(`^\d{%d}$`, DefaultDigits))
)

// GenerateSecretKey draws SecretSize bytes from r and returns them base32 encoded.
// A nil reader falls back to crypto/rand.
func GenerateSecretKey(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	secret := make([]byte, SecretSize)
	if _, err := io.ReadFull(r, secret); err != nil {
		return "", errors.Join(ErrFailedToGenerateSecretKey, err)
	}
	return base32.Encode(secret), nil
}

// Counter returns the RFC 6238 time step containing t.
func Counter(t time.Time) int64 {
	return t.UnixMilli() / 1000 / DefaultPeriod
}

// GenerateHOTP implements RFC 4226 HMAC-based One-Time Password algorithm.
// The algorithm converts a counter value into a numeric code using HMAC-SHA1.
func GenerateHOTP(key []byte, counter int64, digits int) int {
	var counterBytes [8]byte
	binary.BigEndian.PutUint64(counterBytes[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	mac.Write(counterBytes[:])
	hash := mac.Sum(nil)

	// Dynamic truncation: low nibble of the last byte picks the offset
	offset := hash[len(hash)-1] & 0x0f
	code := (int(hash[offset]&0x7f) << 24) |
		(int(hash[offset+1]) << 16) |
		(int(hash[offset+2]) << 8) |
		int(hash[offset+3])

	return code % int(math.Pow10(digits))
}

// GenerateCode derives the 6-digit code for the 30-second window containing t.
func GenerateCode(secret string, t time.Time) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", errors.Join(ErrFailedToGenerateTOTP, err)
	}
	return formatCode(GenerateHOTP(key, Counter(t), DefaultDigits)), nil
}

// GenerateTOTP generates a code for the current 30-second window.
func GenerateTOTP(secret string) (string, error) {
	return GenerateCode(secret, time.Now())
}

// Verify reports whether code matches any step within skew steps of t.
// Every candidate is derived and compared in constant time; the loop never
// exits early, so timing does not reveal which step (if any) matched.
func Verify(secret, code string, t time.Time, skew uint) (bool, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return false, err
	}

	code = strings.TrimSpace(code)
	if !otpRegex.MatchString(code) {
		return false, ErrInvalidOTP
	}

	counter := Counter(t)
	window := int64(skew)
	matched := 0
	for i := -window; i <= window; i++ {
		candidate := formatCode(GenerateHOTP(key, counter+i, DefaultDigits))
		matched |= subtle.ConstantTimeCompare([]byte(candidate), []byte(code))
	}

	return matched == 1, nil
}

// ValidateTOTP validates a code against the current time with DefaultSkew.
func ValidateTOTP(secret, otp string) (bool, error) {
	return Verify(secret, otp, time.Now(), DefaultSkew)
}

// NormalizeSecret returns the canonical form of a secret: upper case, no
// separators or padding. Spaced, dashed and lower case renderings of one key
// normalize to the same string.
func NormalizeSecret(secret string) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	return base32.Encode(key), nil
}

// decodeSecret strips formatting through the lenient codec. Only input that
// carries no key bits at all is rejected.
func decodeSecret(secret string) ([]byte, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	key := base32.Decode(secret)
	if len(key) == 0 {
		return nil, ErrInvalidSecret
	}
	return key, nil
}

func formatCode(code int) string {
	return fmt.Sprintf("%0*d", DefaultDigits, code)
}
