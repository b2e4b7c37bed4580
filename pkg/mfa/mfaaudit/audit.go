// Package mfaaudit records an audit event for every state changing MFA
// operation and every login verification.
//
// Audit write failures are logged and never fail the wrapped operation.
package mfaaudit

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/mfakit/pkg/audit"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/mfa"
)

// Audit actions.
const (
	ActionEnrollmentStarted = "mfa.enrollment_started"
	ActionEnabled           = "mfa.enabled"
	ActionVerify            = "mfa.verify"
	ActionDisabled          = "mfa.disabled"
	ActionCodesRegenerated  = "mfa.backup_codes_regenerated"
)

type audited struct {
	mfa.Manager
	recorder *audit.Recorder
	logger   *slog.Logger
}

// Instrument wraps next. Status is read-only and passes through unaudited.
func Instrument(next mfa.Manager, recorder *audit.Recorder, log *slog.Logger) mfa.Manager {
	if log == nil {
		log = logger.Discard()
	}
	return &audited{Manager: next, recorder: recorder, logger: log}
}

func (a *audited) record(ctx context.Context, userID, action string, err error, opts ...audit.EventOption) {
	if userID == "" {
		return
	}
	switch {
	case err == nil:
	case mfa.IsRejection(err):
		opts = append(opts, audit.WithError(audit.ResultFailure, err))
	default:
		opts = append(opts, audit.WithError(audit.ResultError, err))
	}
	if recErr := a.recorder.Record(ctx, userID, action, opts...); recErr != nil {
		a.logger.ErrorContext(ctx, "failed to record audit event",
			logger.UserID(userID), slog.String("action", action), logger.Error(recErr))
	}
}

func (a *audited) BeginEnrollment(ctx context.Context, userID string) (*mfa.Enrollment, error) {
	e, err := a.Manager.BeginEnrollment(ctx, userID)
	a.record(ctx, userID, ActionEnrollmentStarted, err)
	return e, err
}

func (a *audited) ConfirmEnrollment(ctx context.Context, userID, code string) ([]string, error) {
	codes, err := a.Manager.ConfirmEnrollment(ctx, userID, code)
	a.record(ctx, userID, ActionEnabled, err, audit.WithMetadata("backup_codes_issued", len(codes)))
	return codes, err
}

func (a *audited) VerifyForLogin(ctx context.Context, userID, code string) (bool, error) {
	ok, err := a.Manager.VerifyForLogin(ctx, userID, code)
	a.record(ctx, userID, ActionVerify, err)
	return ok, err
}

func (a *audited) Disable(ctx context.Context, userID string) error {
	err := a.Manager.Disable(ctx, userID)
	a.record(ctx, userID, ActionDisabled, err)
	return err
}

func (a *audited) RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error) {
	codes, err := a.Manager.RegenerateBackupCodes(ctx, userID)
	a.record(ctx, userID, ActionCodesRegenerated, err, audit.WithMetadata("backup_codes_issued", len(codes)))
	return codes, err
}
