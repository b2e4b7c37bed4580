package base32_test

import (
	"crypto/rand"
	stdbase32 "encoding/base32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/pkg/base32"
)

func TestEncode(t *testing.T) {
	t.Parallel()

	// RFC 4648 section 10 vectors without padding.
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"f", "MY"},
		{"fo", "MZXQ"},
		{"foo", "MZXW6"},
		{"foob", "MZXW6YQ"},
		{"fooba", "MZXW6YTB"},
		{"foobar", "MZXW6YTBOI"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got := base32.Encode([]byte(tt.in))
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "=")
		})
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "canonical", in: "MZXW6YTBOI", want: "foobar"},
		{name: "lower case", in: "mzxw6ytboi", want: "foobar"},
		{name: "formatted", in: "mzxw 6ytb-oi", want: "foobar"},
		{name: "padding ignored", in: "MZXW6YQ=", want: "foob"},
		{name: "incomplete trailing bits dropped", in: "MZXW6YTBO", want: "fooba"},
		{name: "only foreign characters", in: "!@#$ 0189", want: ""},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, []byte(tt.want), base32.Decode(tt.in))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	for n := range 64 {
		buf := make([]byte, n)
		_, err := rand.Read(buf)
		require.NoError(t, err)

		encoded := base32.Encode(buf)
		assert.Len(t, encoded, base32.EncodedLen(n))
		assert.Regexp(t, `^[A-Z2-7]*$`, encoded)
		assert.Equal(t, buf, base32.Decode(encoded), "length %d", n)
	}
}

func TestEncodeMatchesStandardLibrary(t *testing.T) {
	t.Parallel()

	std := stdbase32.StdEncoding.WithPadding(stdbase32.NoPadding)
	for n := 1; n <= 40; n++ {
		buf := make([]byte, n)
		_, err := rand.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, std.EncodeToString(buf), base32.Encode(buf))
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	assert.True(t, base32.Valid("JBSWY3DPEHPK3PXP"))
	assert.True(t, base32.Valid("jbswy3dpehpk3pxp"))
	assert.True(t, base32.Valid("MZXW6YQ="))
	assert.False(t, base32.Valid(""))
	assert.False(t, base32.Valid("===="))
	assert.False(t, base32.Valid("JBSWY3DP-EHPK3PXP"))
	assert.False(t, base32.Valid("ABC018"))
}
