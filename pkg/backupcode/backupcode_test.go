package backupcode_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/pkg/backupcode"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		count   int
		wantErr bool
	}{
		{name: "Generate default count", count: backupcode.DefaultCount},
		{name: "Generate 1 code", count: 1},
		{name: "Generate 0 codes", count: 0, wantErr: true},
		{name: "Generate negative codes", count: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			plain, codes, err := backupcode.Generate(nil, tt.count)
			if tt.wantErr {
				assert.ErrorIs(t, err, backupcode.ErrInvalidCount)
				assert.Nil(t, plain)
				assert.Nil(t, codes)
				return
			}

			require.NoError(t, err)
			require.Len(t, plain, tt.count)
			require.Len(t, codes, tt.count)

			seen := make(map[string]bool)
			for i, code := range plain {
				assert.Regexp(t, `^[A-HJ-NP-Z2-9]{5}-[A-HJ-NP-Z2-9]{5}$`, code)
				assert.False(t, seen[code], "duplicate code")
				seen[code] = true

				assert.Equal(t, backupcode.Hash(code), codes[i].Hash)
				assert.NotContains(t, codes[i].Hash, code, "plaintext must not be stored")
				assert.False(t, codes[i].Used)
			}
		})
	}
}

func TestGenerateDeterministicReader(t *testing.T) {
	t.Parallel()

	seed := bytes.Repeat([]byte{0, 1, 2, 3, 4, 31, 32, 33, 255, 64}, 2)
	plain, _, err := backupcode.Generate(bytes.NewReader(seed), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"ABCDE-9AB9A", "ABCDE-9AB9A"}, plain)

	_, _, err = backupcode.Generate(bytes.NewReader(seed[:5]), 1)
	assert.ErrorIs(t, err, backupcode.ErrFailedToGenerate)
}

func TestNormalizeAndFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ABCDEFGHJK", backupcode.Normalize(" abcde-fghjk "))
	assert.Equal(t, "ABCDEFGHJK", backupcode.Normalize("ABCDE FGHJK"))
	assert.Equal(t, "ABCDE-FGHJK", backupcode.Format("abcdefghjk"))
	assert.Equal(t, "ABC", backupcode.Format("a-b-c"))
}

func TestHashAndVerify(t *testing.T) {
	t.Parallel()

	hash := backupcode.Hash("ABCDE-FGHJK")
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, backupcode.Hash("abcdefghjk"), "hash is computed over the normalized form")

	assert.True(t, backupcode.Verify("abcde fghjk", hash))
	assert.False(t, backupcode.Verify("ABCDE-FGHJM", hash))
	assert.False(t, backupcode.Verify("", hash))
}

func TestConsume(t *testing.T) {
	t.Parallel()

	plain, codes, err := backupcode.Generate(nil, backupcode.DefaultCount)
	require.NoError(t, err)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("marks exactly one entry used", func(t *testing.T) {
		t.Parallel()
		updated, ok := backupcode.Consume(codes, plain[3], at)
		require.True(t, ok)
		assert.Equal(t, backupcode.DefaultCount-1, backupcode.Remaining(updated))
		assert.True(t, updated[3].Used)
		require.NotNil(t, updated[3].UsedAt)
		assert.Equal(t, at, *updated[3].UsedAt)

		// input slice is not mutated
		assert.Equal(t, backupcode.DefaultCount, backupcode.Remaining(codes))
	})

	t.Run("second use fails", func(t *testing.T) {
		t.Parallel()
		updated, ok := backupcode.Consume(codes, plain[0], at)
		require.True(t, ok)

		again, ok := backupcode.Consume(updated, plain[0], at)
		assert.False(t, ok)
		assert.Equal(t, updated, again)
	})

	t.Run("accepts display variations", func(t *testing.T) {
		t.Parallel()
		_, ok := backupcode.Consume(codes, strings.ToLower(strings.ReplaceAll(plain[5], "-", "")), at)
		assert.True(t, ok)
	})

	t.Run("unknown code", func(t *testing.T) {
		t.Parallel()
		updated, ok := backupcode.Consume(codes, "ZZZZZ-ZZZZZ", at)
		assert.False(t, ok)
		assert.Equal(t, codes, updated)
	})

	t.Run("empty set", func(t *testing.T) {
		t.Parallel()
		_, ok := backupcode.Consume(nil, plain[0], at)
		assert.False(t, ok)
	})
}
