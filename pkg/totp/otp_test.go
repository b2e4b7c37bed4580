package totp_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	pquernaotp "github.com/pquerna/otp"
	pquernatotp "github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/pkg/base32"
	"github.com/dmitrymomot/mfakit/pkg/totp"
)

// rfcSecret is the ASCII seed "12345678901234567890" from RFC 6238 Appendix B.
var rfcSecret = base32.Encode([]byte("12345678901234567890"))

func TestGenerateSecretKey(t *testing.T) {
	t.Parallel()

	t.Run("crypto random", func(t *testing.T) {
		t.Parallel()
		secret, err := totp.GenerateSecretKey(nil)
		require.NoError(t, err)
		assert.Len(t, secret, 32)
		assert.Regexp(t, totp.ValidateSecretKeyRegex, secret)
		assert.Len(t, base32.Decode(secret), totp.SecretSize)

		other, err := totp.GenerateSecretKey(nil)
		require.NoError(t, err)
		assert.NotEqual(t, secret, other)
	})

	t.Run("deterministic reader", func(t *testing.T) {
		t.Parallel()
		seed := bytes.Repeat([]byte{0xAB}, totp.SecretSize)
		secret, err := totp.GenerateSecretKey(bytes.NewReader(seed))
		require.NoError(t, err)
		assert.Equal(t, base32.Encode(seed), secret)
	})

	t.Run("short reader fails", func(t *testing.T) {
		t.Parallel()
		_, err := totp.GenerateSecretKey(bytes.NewReader([]byte{1, 2, 3}))
		assert.ErrorIs(t, err, totp.ErrFailedToGenerateSecretKey)
	})
}

func TestGenerateCodeRFC6238Vectors(t *testing.T) {
	t.Parallel()

	// Appendix B SHA1 values, truncated to the last six digits.
	tests := []struct {
		unix int64
		want string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
		{20000000000, "353130"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			got, err := totp.GenerateCode(rfcSecret, time.Unix(tt.unix, 0))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, totp.DefaultDigits)
		})
	}
}

func TestGenerateCodeDeterminism(t *testing.T) {
	t.Parallel()

	secret, err := totp.GenerateSecretKey(nil)
	require.NoError(t, err)

	stepStart := time.Unix(1_700_000_010, 0) // 1700000010 is divisible by 30
	first, err := totp.GenerateCode(secret, stepStart)
	require.NoError(t, err)

	sameStep, err := totp.GenerateCode(secret, stepStart.Add(29*time.Second+999*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, first, sameStep)

	again, err := totp.GenerateCode(secret, stepStart)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Regexp(t, `^\d{6}$`, first)
}

func TestGenerateCodeMatchesPquerna(t *testing.T) {
	t.Parallel()

	now := time.Now()
	for range 20 {
		secret, err := totp.GenerateSecretKey(nil)
		require.NoError(t, err)

		ours, err := totp.GenerateCode(secret, now)
		require.NoError(t, err)
		theirs, err := pquernatotp.GenerateCode(secret, now)
		require.NoError(t, err)
		assert.Equal(t, theirs, ours)
	}
}

func TestVerifyAcceptsPquernaKeys(t *testing.T) {
	t.Parallel()

	key, err := pquernatotp.Generate(pquernatotp.GenerateOpts{
		Issuer:      "PointBridge",
		AccountName: "alice@example.com",
		Algorithm:   pquernaotp.AlgorithmSHA1,
		Digits:      pquernaotp.DigitsSix,
	})
	require.NoError(t, err)

	now := time.Now()
	code, err := pquernatotp.GenerateCode(key.Secret(), now)
	require.NoError(t, err)

	ok, err := totp.Verify(key.Secret(), code, now, totp.DefaultSkew)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyWindowBoundary(t *testing.T) {
	t.Parallel()

	at := time.Unix(1_700_000_010, 0).Add(15 * time.Second)
	code, err := totp.GenerateCode(rfcSecret, at)
	require.NoError(t, err)

	tests := []struct {
		name   string
		offset int
		want   bool
	}{
		{name: "two steps earlier", offset: -2, want: false},
		{name: "one step earlier", offset: -1, want: true},
		{name: "same step", offset: 0, want: true},
		{name: "one step later", offset: 1, want: true},
		{name: "two steps later", offset: 2, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			checkAt := at.Add(time.Duration(tt.offset*totp.DefaultPeriod) * time.Second)
			ok, err := totp.Verify(rfcSecret, code, checkAt, totp.DefaultSkew)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestVerifyZeroSkew(t *testing.T) {
	t.Parallel()

	at := time.Unix(1_700_000_010, 0)
	code, err := totp.GenerateCode(rfcSecret, at)
	require.NoError(t, err)

	ok, err := totp.Verify(rfcSecret, code, at, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = totp.Verify(rfcSecret, code, at.Add(30*time.Second), 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyInputValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		secret  string
		code    string
		wantErr error
	}{
		{name: "empty secret", secret: "", code: "123456", wantErr: totp.ErrMissingSecret},
		{name: "secret without base32 characters", secret: "0189-!@#$", code: "123456", wantErr: totp.ErrInvalidSecret},
		{name: "whitespace secret", secret: "   ", code: "123456", wantErr: totp.ErrMissingSecret},
		{name: "short code", secret: rfcSecret, code: "12345", wantErr: totp.ErrInvalidOTP},
		{name: "long code", secret: rfcSecret, code: "1234567", wantErr: totp.ErrInvalidOTP},
		{name: "non digit code", secret: rfcSecret, code: "12345a", wantErr: totp.ErrInvalidOTP},
		{name: "backup code shape", secret: rfcSecret, code: "ABCDE-FGHJK", wantErr: totp.ErrInvalidOTP},
		{name: "empty code", secret: rfcSecret, code: "", wantErr: totp.ErrInvalidOTP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ok, err := totp.Verify(tt.secret, tt.code, time.Now(), totp.DefaultSkew)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, ok)
		})
	}
}

func TestFormattedSecrets(t *testing.T) {
	t.Parallel()

	const canonical = "JBSWY3DPEHPK3PXP"
	at := time.Unix(1_700_000_010, 0)
	want, err := totp.GenerateCode(canonical, at)
	require.NoError(t, err)

	for _, secret := range []string{
		"JBSW Y3DP EHPK 3PXP",
		"jbsw-y3dp-ehpk-3pxp",
		" jbswy3dpehpk3pxp ",
		"JBSWY3DPEHPK3PXP====",
	} {
		t.Run(secret, func(t *testing.T) {
			t.Parallel()

			got, err := totp.GenerateCode(secret, at)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			ok, err := totp.Verify(secret, want, at, totp.DefaultSkew)
			require.NoError(t, err)
			assert.True(t, ok)

			normalized, err := totp.NormalizeSecret(secret)
			require.NoError(t, err)
			assert.Equal(t, canonical, normalized)
		})
	}
}

func TestValidateTOTP(t *testing.T) {
	t.Parallel()

	secret, err := totp.GenerateSecretKey(nil)
	require.NoError(t, err)

	current, err := totp.GenerateTOTP(secret)
	require.NoError(t, err)

	ok, err := totp.ValidateTOTP(secret, current)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = totp.ValidateTOTP(strings.ToLower(secret), current)
	require.NoError(t, err)
	assert.True(t, ok, "secrets are case-insensitive")
}

func TestGenerateHOTP(t *testing.T) {
	t.Parallel()

	// RFC 4226 Appendix D
	want := []int{755224, 287082, 359152, 969429, 338314, 254676, 287922, 162583, 399871, 520489}
	key := []byte("12345678901234567890")
	for counter, code := range want {
		assert.Equal(t, code, totp.GenerateHOTP(key, int64(counter), 6), "counter %d", counter)
	}
}

