// Package base32 implements the unpadded RFC 4648 base32 alphabet used by
// authenticator apps to exchange TOTP secrets.
//
// Unlike encoding/base32, Decode is lenient: it is case-insensitive, skips any
// character outside the alphabet (spaces, dashes, padding) and silently drops
// trailing bits that do not form a full byte. Secrets copied by hand from an
// enrollment screen therefore decode the same way they were displayed.
package base32

import "strings"

// Alphabet is the RFC 4648 base32 alphabet.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

var decodeMap = func() [256]int8 {
	var m [256]int8
	for i := range m {
		m[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		m[Alphabet[i]] = int8(i)
		// lower-case letters map onto the same values
		if c := Alphabet[i]; c >= 'A' && c <= 'Z' {
			m[c+('a'-'A')] = int8(i)
		}
	}
	return m
}()

// EncodedLen returns the length of the unpadded encoding of n bytes.
func EncodedLen(n int) int {
	return (n*8 + 4) / 5
}

// Encode maps every 5 bits of src to one alphabet character.
// A final partial group is left-shifted and zero filled; no '=' is emitted.
func Encode(src []byte) string {
	if len(src) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(EncodedLen(len(src)))

	var buffer uint32
	bits := 0
	for _, b := range src {
		buffer = buffer<<8 | uint32(b)
		bits += 8
		for bits >= 5 {
			sb.WriteByte(Alphabet[(buffer>>(bits-5))&0x1f])
			bits -= 5
		}
		// keep only the bits not yet emitted
		buffer &= 1<<bits - 1
	}
	if bits > 0 {
		sb.WriteByte(Alphabet[(buffer<<(5-bits))&0x1f])
	}

	return sb.String()
}

// Decode reconstructs bytes from s. Characters outside the alphabet are
// ignored and incomplete trailing bits are discarded, so Decode never fails.
func Decode(s string) []byte {
	out := make([]byte, 0, len(s)*5/8)

	var buffer uint32
	bits := 0
	for i := 0; i < len(s); i++ {
		v := decodeMap[s[i]]
		if v < 0 {
			continue
		}
		buffer = buffer<<5 | uint32(v)
		bits += 5
		if bits >= 8 {
			out = append(out, byte(buffer>>(bits-8)))
			bits -= 8
			buffer &= 1<<bits - 1
		}
	}

	return out
}

// Valid reports whether s is a non-empty strict base32 string: alphabet
// characters (any case) optionally followed by '=' padding.
func Valid(s string) bool {
	s = strings.TrimRight(s, "=")
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if decodeMap[s[i]] < 0 {
			return false
		}
	}
	return true
}
