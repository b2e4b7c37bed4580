// Package redisstore persists MFA records in Redis.
//
// A record is one JSON document under "<prefix>:record:<userID>" with the TOTP
// secret sealed. UpdateRecord is an optimistic transaction: the key is
// WATCHed, the mutator runs on the decoded record and the result is written
// with MULTI/EXEC. A concurrent write to the same key aborts EXEC and the
// whole read-modify-write is retried with backoff.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/dmitrymomot/mfakit/pkg/backupcode"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/mfa"
	"github.com/dmitrymomot/mfakit/pkg/redis"
	"github.com/dmitrymomot/mfakit/pkg/secrets"
)

var (
	ErrNilSealer         = errors.New("redisstore: sealer is required")
	ErrTooManyConflicts  = errors.New("redisstore: record kept changing during update")
	ErrCorruptedDocument = errors.New("redisstore: stored record cannot be decoded")
)

const (
	DefaultKeyPrefix  = "mfa"
	DefaultMaxRetries = 10
)

// document is the stored JSON shape.
type document struct {
	Secret           string            `json:"secret,omitempty"`
	Enabled          bool              `json:"enabled"`
	BackupCodes      []backupcode.Code `json:"backup_codes,omitempty"`
	SetupCompletedAt *time.Time        `json:"setup_completed_at,omitempty"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Store implements mfa.Store on a go-redis client.
type Store struct {
	client     goredis.UniversalClient
	sealer     *secrets.Sealer
	logger     *slog.Logger
	prefix     string
	maxRetries uint64
	backoff    time.Duration
}

type Option func(*Store)

// WithKeyPrefix namespaces keys, "mfa" by default.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithMaxRetries bounds how often a conflicting UpdateRecord is retried.
func WithMaxRetries(n uint64) Option {
	return func(s *Store) { s.maxRetries = n }
}

// WithRetryBackoff sets the base of the exponential backoff between retries.
func WithRetryBackoff(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.backoff = d
		}
	}
}

// WithLogger sets the store logger. The store adds its own component attribute.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a store. TOTP secrets are sealed with sealer before they are written.
func New(client goredis.UniversalClient, sealer *secrets.Sealer, opts ...Option) (*Store, error) {
	if sealer == nil {
		return nil, ErrNilSealer
	}
	s := &Store{
		client:     client,
		sealer:     sealer,
		logger:     logger.Discard(),
		prefix:     DefaultKeyPrefix,
		maxRetries: DefaultMaxRetries,
		backoff:    5 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("redisstore"))
	return s, nil
}

func (s *Store) key(userID string) string {
	return redis.Key(s.prefix, "record", userID)
}

func (s *Store) GetRecord(ctx context.Context, userID string) (*mfa.Record, error) {
	if userID == "" {
		return nil, mfa.ErrEmptyUserID
	}
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, mfa.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mfa record: %w", err)
	}
	return s.decode(ctx, userID, raw)
}

func (s *Store) UpdateRecord(ctx context.Context, userID string, fn func(*mfa.Record) error) (*mfa.Record, error) {
	if userID == "" {
		return nil, mfa.ErrEmptyUserID
	}
	key := s.key(userID)

	var saved *mfa.Record
	attempt := func(tx *goredis.Tx) error {
		rec := &mfa.Record{UserID: userID}
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, goredis.Nil):
		case err != nil:
			return fmt.Errorf("failed to read mfa record: %w", err)
		default:
			if rec, err = s.decode(ctx, userID, raw); err != nil {
				return err
			}
		}

		if err := fn(rec); err != nil {
			return err
		}
		rec.UserID = userID

		data, err := s.encode(rec)
		if err != nil {
			return err
		}
		if _, err := tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, key, data, 0)
			return nil
		}); err != nil {
			return err
		}
		saved = rec
		return nil
	}

	backoff := retry.NewExponential(s.backoff)
	backoff = retry.WithCappedDuration(250*time.Millisecond, backoff)
	backoff = retry.WithJitterPercent(25, backoff)
	backoff = retry.WithMaxRetries(s.maxRetries, backoff)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.client.Watch(ctx, attempt, key)
		if errors.Is(err, goredis.TxFailedErr) {
			s.logger.DebugContext(ctx, "mfa record changed during update, retrying", logger.UserID(userID))
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, goredis.TxFailedErr) {
		return nil, errors.Join(ErrTooManyConflicts, err)
	}
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Delete removes the user's record.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete mfa record: %w", err)
	}
	return nil
}

func (s *Store) encode(rec *mfa.Record) ([]byte, error) {
	doc := document{
		Enabled:          rec.Enabled,
		BackupCodes:      rec.BackupCodes,
		SetupCompletedAt: rec.SetupCompletedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
	if rec.TOTPSecret != "" {
		sealed, err := s.sealer.Seal(rec.UserID, rec.TOTPSecret)
		if err != nil {
			return nil, err
		}
		doc.Secret = sealed
	}
	return json.Marshal(doc)
}

func (s *Store) decode(ctx context.Context, userID string, raw []byte) (*mfa.Record, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Join(ErrCorruptedDocument, err)
	}

	rec := &mfa.Record{
		UserID:           userID,
		Enabled:          doc.Enabled,
		BackupCodes:      doc.BackupCodes,
		SetupCompletedAt: doc.SetupCompletedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
	if doc.Secret != "" {
		secret, err := s.sealer.Open(userID, doc.Secret)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to open sealed totp secret", logger.UserID(userID), logger.Error(err))
			return nil, err
		}
		rec.TOTPSecret = secret
	}
	return rec, nil
}
