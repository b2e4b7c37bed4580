package mfa

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dmitrymomot/mfakit/pkg/backupcode"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/qrcode"
	"github.com/dmitrymomot/mfakit/pkg/statemachine"
	"github.com/dmitrymomot/mfakit/pkg/totp"
)

// Manager defines the MFA enrollment and verification operations.
type Manager interface {
	BeginEnrollment(ctx context.Context, userID string) (*Enrollment, error)
	ConfirmEnrollment(ctx context.Context, userID, code string) ([]string, error)
	VerifyForLogin(ctx context.Context, userID, code string) (bool, error)
	Disable(ctx context.Context, userID string) error
	RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error)
	Status(ctx context.Context, userID string) (*Status, error)
}

// LabelFunc resolves the account label shown in authenticator apps, usually an email.
type LabelFunc func(ctx context.Context, userID string) (string, error)

type manager struct {
	store       Store
	eligibility EligibilityChecker
	clock       Clock
	random      io.Reader
	logger      *slog.Logger
	machine     statemachine.StateMachine

	issuer          string
	label           LabelFunc
	skew            uint
	backupCodeCount int
	qrCodeSize      int
}

// Option configures a manager during construction.
type Option func(*manager)

// WithLogger configures the logger. Secrets and codes are never logged.
func WithLogger(l *slog.Logger) Option {
	return func(s *manager) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock injects the time source used for code derivation and timestamps.
func WithClock(c Clock) Option {
	return func(s *manager) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRandom injects the secure random source used for secrets and backup codes.
func WithRandom(r io.Reader) Option {
	return func(s *manager) {
		if r != nil {
			s.random = r
		}
	}
}

// WithIssuer sets the issuer rendered into enrollment URIs.
func WithIssuer(issuer string) Option {
	return func(s *manager) { s.issuer = issuer }
}

// WithAccountLabel sets how the account label for enrollment URIs is resolved.
// The default uses the user id.
func WithAccountLabel(fn LabelFunc) Option {
	return func(s *manager) {
		if fn != nil {
			s.label = fn
		}
	}
}

// WithSkew sets how many 30-second steps on each side of the current one are accepted.
func WithSkew(steps uint) Option {
	return func(s *manager) { s.skew = steps }
}

// WithBackupCodeCount sets the number of backup codes per cycle.
// Panics outside 8..10 so a misconfigured service does not start.
func WithBackupCodeCount(n int) Option {
	if n < 8 || n > 10 {
		panic(fmt.Sprintf("WithBackupCodeCount: count must be between 8 and 10, got %d", n))
	}
	return func(s *manager) { s.backupCodeCount = n }
}

// WithQRCodeSize enables QR rendering of the enrollment URI at the given pixel size.
// Zero or negative disables it.
func WithQRCodeSize(size int) Option {
	return func(s *manager) { s.qrCodeSize = size }
}

// NewManager creates an MFA manager backed by store. Eligibility decides which
// accounts may enroll; pass AllowAll when every account qualifies.
func NewManager(store Store, eligibility EligibilityChecker, opts ...Option) Manager {
	s := &manager{
		store:           store,
		eligibility:     eligibility,
		clock:           SystemClock,
		random:          rand.Reader,
		logger:          logger.Discard(),
		issuer:          "PointBridge",
		skew:            totp.DefaultSkew,
		backupCodeCount: backupcode.DefaultCount,
		label: func(_ context.Context, userID string) (string, error) {
			return userID, nil
		},
	}

	for _, opt := range opts {
		opt(s)
	}
	s.machine = s.buildMachine()

	return s
}

// BeginEnrollment generates a new secret for userID and stores it as pending.
// Calling it again before confirmation replaces the pending secret.
func (s *manager) BeginEnrollment(ctx context.Context, userID string) (*Enrollment, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	eligible, err := s.eligibility.IsEligibleForMFA(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check mfa eligibility: %w", err)
	}
	if !eligible {
		s.logger.WarnContext(ctx, "mfa enrollment rejected for ineligible account",
			logger.UserID(userID), logger.Event(string(EventBegin)))
		return nil, ErrIneligibleAccount
	}

	label, err := s.label(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account label: %w", err)
	}

	tr := &transition{}
	if _, err := s.store.UpdateRecord(ctx, userID, func(rec *Record) error {
		tr.record = rec
		return s.fire(ctx, EventBegin, tr)
	}); err != nil {
		return nil, err
	}

	uri, err := totp.GetTOTPURI(totp.TOTPParams{
		Secret:      tr.secret,
		AccountName: label,
		Issuer:      s.issuer,
	})
	if err != nil {
		return nil, err
	}

	enrollment := &Enrollment{Secret: tr.secret, URI: uri}
	if s.qrCodeSize > 0 {
		if enrollment.QRCode, err = qrcode.GenerateBase64Image(uri, s.qrCodeSize); err != nil {
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "mfa enrollment started",
		logger.UserID(userID), logger.Event(string(EventBegin)), logger.MFAState(StatePendingConfirmation))

	return enrollment, nil
}

// ConfirmEnrollment enables MFA when code matches the pending secret and
// returns the freshly issued plaintext backup codes. They are not retrievable later.
func (s *manager) ConfirmEnrollment(ctx context.Context, userID, code string) ([]string, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	tr := &transition{code: code}
	if _, err := s.store.UpdateRecord(ctx, userID, func(rec *Record) error {
		tr.record = rec
		return s.fire(ctx, EventConfirm, tr)
	}); err != nil {
		s.logger.WarnContext(ctx, "mfa enrollment confirmation failed",
			logger.UserID(userID), logger.Event(string(EventConfirm)), logger.Error(err))
		return nil, err
	}

	s.logger.InfoContext(ctx, "mfa enabled",
		logger.UserID(userID), logger.Event(string(EventConfirm)), logger.MFAState(StateEnabled))

	return tr.backupCodes, nil
}

// VerifyForLogin checks a TOTP code first and falls back to consuming a
// backup code. Any mismatch yields (false, ErrVerificationFailed) whichever
// path rejected it.
func (s *manager) VerifyForLogin(ctx context.Context, userID, code string) (bool, error) {
	if userID == "" {
		return false, ErrEmptyUserID
	}

	rec, err := s.store.GetRecord(ctx, userID)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return false, err
	}
	if rec.State() != StateEnabled {
		return false, ErrMFANotEnabled
	}

	ok, err := s.verifyTOTP(rec.TOTPSecret, code)
	if err != nil {
		return false, err
	}
	if ok {
		s.logger.InfoContext(ctx, "mfa verification succeeded", logger.UserID(userID), logger.Event(string(EventAuthenticate)))
		return true, nil
	}

	tr := &transition{code: code}
	_, err = s.store.UpdateRecord(ctx, userID, func(rec *Record) error {
		tr.record = rec
		return s.fire(ctx, EventAuthenticate, tr)
	})
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "mfa verification succeeded", logger.UserID(userID), logger.Event(string(EventAuthenticate)))
		return true, nil
	case errors.Is(err, ErrInvalidBackupCode):
		s.logger.WarnContext(ctx, "mfa verification failed", logger.UserID(userID), logger.Event(string(EventAuthenticate)))
		return false, ErrVerificationFailed
	default:
		return false, err
	}
}

// Disable clears the secret and backup codes. Disabling a disabled account is a no-op.
func (s *manager) Disable(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}

	rec, err := s.store.GetRecord(ctx, userID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if rec.State() == StateDisabled {
		return nil
	}

	if _, err := s.store.UpdateRecord(ctx, userID, func(rec *Record) error {
		return s.fire(ctx, EventDisable, &transition{record: rec})
	}); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "mfa disabled",
		logger.UserID(userID), logger.Event(string(EventDisable)), logger.MFAState(StateDisabled))
	return nil
}

// RegenerateBackupCodes replaces the whole backup code set; the secret is untouched.
func (s *manager) RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	tr := &transition{}
	if _, err := s.store.UpdateRecord(ctx, userID, func(rec *Record) error {
		tr.record = rec
		return s.fire(ctx, EventRegenerate, tr)
	}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "mfa backup codes regenerated",
		logger.UserID(userID), logger.Event(string(EventRegenerate)))
	return tr.backupCodes, nil
}

// Status reports the user's MFA state and remaining backup codes.
func (s *manager) Status(ctx context.Context, userID string) (*Status, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	rec, err := s.store.GetRecord(ctx, userID)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}

	eligible, err := s.eligibility.IsEligibleForMFA(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check mfa eligibility: %w", err)
	}

	status := &Status{State: rec.State(), Eligible: eligible}
	if rec != nil {
		status.Enabled = rec.Enabled
		status.BackupCodesRemaining = backupcode.Remaining(rec.BackupCodes)
		status.SetupCompletedAt = rec.SetupCompletedAt
	}
	return status, nil
}

func (s *manager) newSecret() (string, error) {
	return totp.GenerateSecretKey(s.random)
}

func (s *manager) newBackupCodes() ([]string, []backupcode.Code, error) {
	return backupcode.Generate(s.random, s.backupCodeCount)
}

// verifyTOTP treats input that is not shaped like a TOTP code as a mismatch
// so backup codes can be tried next.
func (s *manager) verifyTOTP(secret, code string) (bool, error) {
	ok, err := totp.Verify(secret, code, s.clock.Now(), s.skew)
	if errors.Is(err, totp.ErrInvalidOTP) {
		return false, nil
	}
	return ok, err
}
