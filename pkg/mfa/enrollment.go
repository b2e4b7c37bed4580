package mfa

import (
	"context"
	"errors"

	"github.com/dmitrymomot/mfakit/pkg/backupcode"
	"github.com/dmitrymomot/mfakit/pkg/statemachine"
)

// Events driving the enrollment state machine.
const (
	EventBegin        = statemachine.StringEvent("begin")
	EventConfirm      = statemachine.StringEvent("confirm")
	EventDisable      = statemachine.StringEvent("disable")
	EventRegenerate   = statemachine.StringEvent("regenerate")
	EventAuthenticate = statemachine.StringEvent("authenticate")
)

// transition carries the record being mutated plus per-operation inputs
// through guards and actions.
type transition struct {
	record *Record
	code   string

	// filled in by actions
	secret      string
	backupCodes []string
}

func (s *manager) buildMachine() statemachine.StateMachine {
	return statemachine.MustNew(
		statemachine.WithTransitions([]statemachine.TransitionDef{
			{From: StateDisabled, To: StatePendingConfirmation, Event: EventBegin, Actions: []statemachine.Action{s.assignSecret}},
			{From: StatePendingConfirmation, To: StatePendingConfirmation, Event: EventBegin, Actions: []statemachine.Action{s.assignSecret}},

			{From: StatePendingConfirmation, To: StateEnabled, Event: EventConfirm, Actions: []statemachine.Action{s.checkTOTP, s.enable, s.issueBackupCodes}},

			{From: StateEnabled, To: StateEnabled, Event: EventRegenerate, Actions: []statemachine.Action{s.issueBackupCodes}},
			{From: StateEnabled, To: StateEnabled, Event: EventAuthenticate, Actions: []statemachine.Action{s.consumeBackupCode}},

			{From: StateEnabled, To: StateDisabled, Event: EventDisable, Actions: []statemachine.Action{s.clear}},
			{From: StatePendingConfirmation, To: StateDisabled, Event: EventDisable, Actions: []statemachine.Action{s.clear}},
			{From: StateDisabled, To: StateDisabled, Event: EventDisable, Actions: []statemachine.Action{s.clear}},
		}),
	)
}

// fire runs event against the record inside a store mutator and maps missing
// transitions onto the public error taxonomy.
func (s *manager) fire(ctx context.Context, event statemachine.StringEvent, tr *transition) error {
	from := tr.record.State()
	if _, err := s.machine.Fire(ctx, from, event, tr); err != nil {
		if statemachine.IsNoTransitionAvailableError(err) {
			return transitionError(from, event)
		}
		return unwrapAction(err)
	}
	tr.record.UpdatedAt = s.clock.Now()
	return tr.record.Validate()
}

func transitionError(from statemachine.StringState, event statemachine.StringEvent) error {
	switch event {
	case EventBegin:
		return ErrAlreadyEnabled
	case EventConfirm:
		if from == StateEnabled {
			return ErrAlreadyEnabled
		}
		return ErrEnrollmentNotStarted
	default:
		return ErrMFANotEnabled
	}
}

// unwrapAction strips the state machine's "action failed" wrapper so callers
// see the action's own error.
func unwrapAction(err error) error {
	if inner := errors.Unwrap(err); inner != nil {
		return inner
	}
	return err
}

func (s *manager) assignSecret(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	tr := data.(*transition)
	secret, err := s.newSecret()
	if err != nil {
		return err
	}
	tr.record.TOTPSecret = secret
	tr.record.Enabled = false
	tr.record.BackupCodes = nil
	tr.record.SetupCompletedAt = nil
	tr.secret = secret
	return nil
}

func (s *manager) checkTOTP(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	tr := data.(*transition)
	ok, err := s.verifyTOTP(tr.record.TOTPSecret, tr.code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}
	return nil
}

func (s *manager) enable(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	tr := data.(*transition)
	now := s.clock.Now()
	tr.record.Enabled = true
	tr.record.SetupCompletedAt = &now
	return nil
}

func (s *manager) issueBackupCodes(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	tr := data.(*transition)
	plain, codes, err := s.newBackupCodes()
	if err != nil {
		return err
	}
	tr.record.BackupCodes = codes
	tr.backupCodes = plain
	return nil
}

func (s *manager) consumeBackupCode(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	tr := data.(*transition)
	updated, ok := backupcode.Consume(tr.record.BackupCodes, tr.code, s.clock.Now())
	if !ok {
		return ErrInvalidBackupCode
	}
	tr.record.BackupCodes = updated
	return nil
}

func (s *manager) clear(_ context.Context, _, _ statemachine.State, _ statemachine.Event, data any) error {
	tr := data.(*transition)
	tr.record.TOTPSecret = ""
	tr.record.Enabled = false
	tr.record.BackupCodes = nil
	tr.record.SetupCompletedAt = nil
	return nil
}
