// Package backupcode creates, hashes and consumes single-use recovery codes
// that let a user sign in when their authenticator device is unavailable.
//
// Codes are 10 characters drawn from a 32-symbol alphabet without the easily
// confused 0/O and 1/I pairs (50 bits each) and are displayed as XXXXX-XXXXX.
// Only SHA-256 hashes of the normalized code are persisted.
package backupcode

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"time"
)

const (
	// DefaultCount is the number of codes issued on every enable or regenerate.
	DefaultCount = 8

	// Length is the number of significant characters in a code.
	Length = 10

	// Alphabet holds the symbols codes are drawn from. 32 symbols keep the
	// byte-to-symbol mapping unbiased.
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var (
	ErrInvalidCount     = errors.New("invalid backup code count, must be greater than 0")
	ErrFailedToGenerate = errors.New("failed to generate backup code")
)

// Code is the persisted form of a backup code.
type Code struct {
	Hash   string     `json:"hash"`
	Used   bool       `json:"used"`
	UsedAt *time.Time `json:"used_at,omitempty"`
}

// Generate draws count codes from r (crypto/rand when nil).
// The plaintext slice is meant to be shown to the user once; codes holds the
// matching hashes for persistence, in the same order.
func Generate(r io.Reader, count int) ([]string, []Code, error) {
	if count < 1 {
		return nil, nil, ErrInvalidCount
	}
	if r == nil {
		r = rand.Reader
	}

	plain := make([]string, count)
	codes := make([]Code, count)
	buf := make([]byte, Length)
	for i := range count {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, nil, errors.Join(ErrFailedToGenerate, err)
		}
		raw := make([]byte, Length)
		for j, b := range buf {
			raw[j] = Alphabet[b&0x1f]
		}
		plain[i] = Format(string(raw))
		codes[i] = Code{Hash: Hash(plain[i])}
	}

	return plain, codes, nil
}

// Normalize upper-cases the code and drops separators and whitespace so that
// "abcde-fghjk", "ABCDE FGHJK" and "ABCDEFGHJK" are the same code.
func Normalize(code string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == ' ' || r == '\t':
			return -1
		case r >= 'a' && r <= 'z':
			return r - ('a' - 'A')
		}
		return r
	}, strings.TrimSpace(code))
}

// Format renders a code in its display form XXXXX-XXXXX.
// Inputs that do not normalize to Length characters are returned normalized.
func Format(code string) string {
	code = Normalize(code)
	if len(code) != Length {
		return code
	}
	return code[:Length/2] + "-" + code[Length/2:]
}

// Hash creates a SHA-256 hash of the normalized code for storage.
func Hash(code string) string {
	sum := sha256.Sum256([]byte(Normalize(code)))
	return hex.EncodeToString(sum[:])
}

// Verify performs a constant-time comparison of code against a stored hash.
func Verify(code, hashedCode string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(code)), []byte(hashedCode)) == 1
}

// Consume marks the first unused entry matching submitted as used at the given time.
// Every entry is compared so the scan takes the same time wherever the match sits.
// On success a modified copy is returned; otherwise codes is returned unchanged with false.
func Consume(codes []Code, submitted string, at time.Time) ([]Code, bool) {
	hash := []byte(Hash(submitted))

	match := -1
	for i, c := range codes {
		eq := subtle.ConstantTimeCompare(hash, []byte(c.Hash)) == 1
		if eq && !c.Used && match < 0 {
			match = i
		}
	}
	if match < 0 {
		return codes, false
	}

	updated := make([]Code, len(codes))
	copy(updated, codes)
	usedAt := at
	updated[match].Used = true
	updated[match].UsedAt = &usedAt

	return updated, true
}

// Remaining returns the number of unused codes.
func Remaining(codes []Code) int {
	n := 0
	for _, c := range codes {
		if !c.Used {
			n++
		}
	}
	return n
}
