// Package storetest holds the behaviour every mfa.Store implementation must
// satisfy. Store packages run it from their own tests:
//
//	storetest.Run(t, func(t *testing.T) mfa.Store { return newStore(t) })
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/pkg/backupcode"
	"github.com/dmitrymomot/mfakit/pkg/mfa"
)

// Factory returns an empty store. Each call may share a backend as long as
// user ids from uuid.NewString never collide.
type Factory func(t *testing.T) mfa.Store

// Run executes the store contract tests.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("missing record", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetRecord(context.Background(), uuid.NewString())
		assert.ErrorIs(t, err, mfa.ErrRecordNotFound)
	})

	t.Run("update creates record", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		userID := uuid.NewString()

		var seen *mfa.Record
		saved, err := store.UpdateRecord(ctx, userID, func(rec *mfa.Record) error {
			seen = rec.Clone()
			rec.TOTPSecret = "JBSWY3DPEHPK3PXP"
			rec.UpdatedAt = time.Now()
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, userID, seen.UserID)
		assert.Empty(t, seen.TOTPSecret)
		assert.Equal(t, "JBSWY3DPEHPK3PXP", saved.TOTPSecret)

		got, err := store.GetRecord(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, mfa.StatePendingConfirmation, got.State())
		assert.Equal(t, "JBSWY3DPEHPK3PXP", got.TOTPSecret)
	})

	t.Run("round trips enabled record", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		userID := uuid.NewString()
		_, codes, err := backupcode.Generate(nil, backupcode.DefaultCount)
		require.NoError(t, err)
		completed := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
		used := completed.Add(time.Hour)
		codes[2].Used = true
		codes[2].UsedAt = &used

		_, err = store.UpdateRecord(ctx, userID, func(rec *mfa.Record) error {
			rec.TOTPSecret = "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"
			rec.Enabled = true
			rec.BackupCodes = codes
			rec.SetupCompletedAt = &completed
			rec.UpdatedAt = completed
			return nil
		})
		require.NoError(t, err)

		got, err := store.GetRecord(ctx, userID)
		require.NoError(t, err)
		assert.True(t, got.Enabled)
		assert.Equal(t, "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP", got.TOTPSecret)
		require.NotNil(t, got.SetupCompletedAt)
		assert.True(t, completed.Equal(*got.SetupCompletedAt))
		require.Len(t, got.BackupCodes, len(codes))
		assert.Equal(t, backupcode.DefaultCount-1, backupcode.Remaining(got.BackupCodes))

		hashes := make(map[string]bool)
		for _, c := range got.BackupCodes {
			hashes[c.Hash] = c.Used
			if c.Used {
				require.NotNil(t, c.UsedAt)
				assert.True(t, used.Equal(*c.UsedAt))
			}
		}
		for _, c := range codes {
			used, ok := hashes[c.Hash]
			assert.True(t, ok)
			assert.Equal(t, c.Used, used)
		}
	})

	t.Run("mutator error writes nothing", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		userID := uuid.NewString()
		boom := errors.New("boom")

		_, err := store.UpdateRecord(ctx, userID, func(rec *mfa.Record) error {
			rec.TOTPSecret = "JBSWY3DPEHPK3PXP"
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = store.GetRecord(ctx, userID)
		assert.ErrorIs(t, err, mfa.ErrRecordNotFound)
	})

	t.Run("disabled record keeps no secret", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		userID := uuid.NewString()

		_, err := store.UpdateRecord(ctx, userID, func(rec *mfa.Record) error {
			rec.TOTPSecret = "JBSWY3DPEHPK3PXP"
			return nil
		})
		require.NoError(t, err)
		_, err = store.UpdateRecord(ctx, userID, func(rec *mfa.Record) error {
			rec.TOTPSecret = ""
			rec.BackupCodes = nil
			return nil
		})
		require.NoError(t, err)

		got, err := store.GetRecord(ctx, userID)
		if errors.Is(err, mfa.ErrRecordNotFound) {
			return
		}
		require.NoError(t, err)
		assert.Equal(t, mfa.StateDisabled, got.State())
		assert.Empty(t, got.TOTPSecret)
		assert.Empty(t, got.BackupCodes)
	})

	t.Run("concurrent updates are serialized", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		userID := uuid.NewString()
		const workers = 16

		_, err := store.UpdateRecord(ctx, userID, func(rec *mfa.Record) error {
			rec.TOTPSecret = "JBSWY3DPEHPK3PXP"
			return nil
		})
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.UpdateRecord(ctx, userID, func(rec *mfa.Record) error {
					rec.BackupCodes = append(rec.BackupCodes, backupcode.Code{Hash: backupcode.Hash(fmt.Sprintf("code-%d", i))})
					return nil
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := store.GetRecord(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, got.BackupCodes, workers, "lost update")
	})

	t.Run("returned records are copies", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		userID := uuid.NewString()

		saved, err := store.UpdateRecord(ctx, userID, func(rec *mfa.Record) error {
			rec.TOTPSecret = "JBSWY3DPEHPK3PXP"
			rec.BackupCodes = []backupcode.Code{{Hash: backupcode.Hash("A")}}
			return nil
		})
		require.NoError(t, err)
		saved.BackupCodes[0].Used = true

		got, err := store.GetRecord(ctx, userID)
		require.NoError(t, err)
		got.TOTPSecret = "MUTATED"

		again, err := store.GetRecord(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "JBSWY3DPEHPK3PXP", again.TOTPSecret)
		assert.False(t, again.BackupCodes[0].Used)
	})
}
