// Package pgstore persists MFA records in PostgreSQL.
//
// Each user has one mfa_credentials row holding the sealed TOTP secret and
// one mfa_backup_codes row per issued backup code. UpdateRecord runs inside a
// transaction that holds a row lock on the credential row for the whole
// read-modify-write, so concurrent logins cannot consume the same backup code
// twice.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/mfakit/pkg/backupcode"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/mfa"
	"github.com/dmitrymomot/mfakit/pkg/pg"
	"github.com/dmitrymomot/mfakit/pkg/secrets"
)

var ErrNilSealer = errors.New("pgstore: sealer is required")

const (
	ensureCredentialSQL = `INSERT INTO mfa_credentials (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`

	selectCredentialSQL = `SELECT totp_secret, enabled, setup_completed_at, updated_at
		FROM mfa_credentials WHERE user_id = $1`

	selectBackupCodesSQL = `SELECT code_hash, used, used_at
		FROM mfa_backup_codes WHERE user_id = $1 ORDER BY position`

	updateCredentialSQL = `UPDATE mfa_credentials
		SET totp_secret = $2, enabled = $3, setup_completed_at = $4, updated_at = $5
		WHERE user_id = $1`

	deleteBackupCodesSQL = `DELETE FROM mfa_backup_codes WHERE user_id = $1`

	deleteCredentialSQL = `DELETE FROM mfa_credentials WHERE user_id = $1`
)

var backupCodeColumns = []string{"id", "user_id", "position", "code_hash", "used", "used_at"}

// Store implements mfa.Store on a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	sealer *secrets.Sealer
	logger *slog.Logger
}

// Option configures the store.
type Option func(*Store)

// WithLogger sets the logger used for decryption failures. The store adds
// its own component attribute.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a store. TOTP secrets are sealed with sealer before they are written.
func New(pool *pgxpool.Pool, sealer *secrets.Sealer, opts ...Option) (*Store, error) {
	if sealer == nil {
		return nil, ErrNilSealer
	}
	s := &Store{pool: pool, sealer: sealer, logger: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("pgstore"))
	return s, nil
}

// GetRecord reads the record from a consistent read-only snapshot.
func (s *Store) GetRecord(ctx context.Context, userID string) (*mfa.Record, error) {
	if userID == "" {
		return nil, mfa.ErrEmptyUserID
	}

	var rec *mfa.Record
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		var err error
		rec, err = s.load(ctx, tx, userID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateRecord locks the credential row, applies fn and writes the result in
// the same transaction. A placeholder row inserted for a new user is rolled
// back together with everything else when fn fails.
func (s *Store) UpdateRecord(ctx context.Context, userID string, fn func(*mfa.Record) error) (*mfa.Record, error) {
	if userID == "" {
		return nil, mfa.ErrEmptyUserID
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, ensureCredentialSQL, userID); err != nil {
		return nil, fmt.Errorf("failed to ensure credential row: %w", err)
	}

	rec, err := s.load(ctx, tx, userID, true)
	if err != nil {
		return nil, err
	}

	if err := fn(rec); err != nil {
		return nil, err
	}
	rec.UserID = userID
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}

	if err := s.save(ctx, tx, rec); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit mfa record: %w", err)
	}
	return rec, nil
}

// Delete removes the user's credential row and, by cascade, the backup codes.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, deleteCredentialSQL, userID); err != nil {
		return fmt.Errorf("failed to delete mfa record: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, tx pgx.Tx, userID string, forUpdate bool) (*mfa.Record, error) {
	query := selectCredentialSQL
	if forUpdate {
		query += " FOR UPDATE"
	}

	rec := &mfa.Record{UserID: userID}
	var sealed string
	err := tx.QueryRow(ctx, query, userID).Scan(&sealed, &rec.Enabled, &rec.SetupCompletedAt, &rec.UpdatedAt)
	if pg.IsNotFoundError(err) {
		return nil, mfa.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load mfa credential: %w", err)
	}

	if sealed != "" {
		if rec.TOTPSecret, err = s.sealer.Open(userID, sealed); err != nil {
			s.logger.ErrorContext(ctx, "failed to open sealed totp secret", logger.UserID(userID), logger.Error(err))
			return nil, err
		}
	}

	rows, err := tx.Query(ctx, selectBackupCodesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup codes: %w", err)
	}
	codes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (backupcode.Code, error) {
		var c backupcode.Code
		err := row.Scan(&c.Hash, &c.Used, &c.UsedAt)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan backup codes: %w", err)
	}
	if len(codes) > 0 {
		rec.BackupCodes = codes
	}

	return rec, nil
}

func (s *Store) save(ctx context.Context, tx pgx.Tx, rec *mfa.Record) error {
	var sealed string
	if rec.TOTPSecret != "" {
		var err error
		if sealed, err = s.sealer.Seal(rec.UserID, rec.TOTPSecret); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, updateCredentialSQL, rec.UserID, sealed, rec.Enabled, rec.SetupCompletedAt, rec.UpdatedAt); err != nil {
		if pg.IsCheckViolationError(err) {
			return errors.Join(mfa.ErrInvalidRecord, err)
		}
		return fmt.Errorf("failed to update mfa credential: %w", err)
	}

	if _, err := tx.Exec(ctx, deleteBackupCodesSQL, rec.UserID); err != nil {
		return fmt.Errorf("failed to clear backup codes: %w", err)
	}
	if len(rec.BackupCodes) == 0 {
		return nil
	}

	rows := make([][]any, len(rec.BackupCodes))
	for i, c := range rec.BackupCodes {
		rows[i] = []any{uuid.New(), rec.UserID, i, c.Hash, c.Used, c.UsedAt}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"mfa_backup_codes"}, backupCodeColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to write backup codes: %w", err)
	}
	return nil
}
