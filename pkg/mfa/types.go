package mfa

import (
	"errors"
	"slices"
	"time"

	"github.com/dmitrymomot/mfakit/pkg/backupcode"
	"github.com/dmitrymomot/mfakit/pkg/statemachine"
)

// Enrollment states.
const (
	StateDisabled            = statemachine.StringState("disabled")
	StatePendingConfirmation = statemachine.StringState("pending_confirmation")
	StateEnabled             = statemachine.StringState("enabled")
)

// Record is the per-user MFA credential record.
type Record struct {
	UserID           string
	TOTPSecret       string // base32, set while pending or enabled
	Enabled          bool
	BackupCodes      []backupcode.Code
	SetupCompletedAt *time.Time // stamped on every disabled -> enabled transition
	UpdatedAt        time.Time
}

// State derives the enrollment state from the record fields.
func (r *Record) State() statemachine.StringState {
	switch {
	case r == nil:
		return StateDisabled
	case r.Enabled:
		return StateEnabled
	case r.TOTPSecret != "":
		return StatePendingConfirmation
	default:
		return StateDisabled
	}
}

// Validate checks the record invariants.
func (r *Record) Validate() error {
	if r.UserID == "" {
		return errors.Join(ErrInvalidRecord, ErrEmptyUserID)
	}
	if r.Enabled {
		if r.TOTPSecret == "" {
			return errors.Join(ErrInvalidRecord, errors.New("enabled record without secret"))
		}
		if len(r.BackupCodes) == 0 {
			return errors.Join(ErrInvalidRecord, errors.New("enabled record without backup codes"))
		}
		if r.SetupCompletedAt == nil {
			return errors.Join(ErrInvalidRecord, errors.New("enabled record without setup timestamp"))
		}
	}
	if !r.Enabled && r.TOTPSecret == "" && len(r.BackupCodes) > 0 {
		return errors.Join(ErrInvalidRecord, errors.New("backup codes without secret"))
	}
	return nil
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.BackupCodes = slices.Clone(r.BackupCodes)
	for i := range c.BackupCodes {
		if at := c.BackupCodes[i].UsedAt; at != nil {
			t := *at
			c.BackupCodes[i].UsedAt = &t
		}
	}
	if r.SetupCompletedAt != nil {
		t := *r.SetupCompletedAt
		c.SetupCompletedAt = &t
	}
	return &c
}

// Enrollment is returned by BeginEnrollment for display to the user.
type Enrollment struct {
	Secret string // base32 secret for manual entry
	URI    string // otpauth URI
	QRCode string // data:image/png;base64 URL of URI, empty when QR rendering is off
}

// Status summarises a user's MFA configuration without exposing secrets.
type Status struct {
	State                statemachine.StringState
	Enabled              bool
	Eligible             bool
	BackupCodesRemaining int
	SetupCompletedAt     *time.Time
}
