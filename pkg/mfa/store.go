package mfa

import (
	"context"
	"time"
)

// Store persists MFA records.
//
// UpdateRecord must run fn as a single atomic read-modify-write for userID:
// no other UpdateRecord for the same user may observe the record between the
// read and the write. When no record exists fn receives a fresh record with
// only UserID set. If fn returns an error nothing is written and the error is
// returned unchanged. Stores with optimistic transactions may call fn more
// than once; only the changes of the final call are written.
type Store interface {
	GetRecord(ctx context.Context, userID string) (*Record, error)
	UpdateRecord(ctx context.Context, userID string, fn func(*Record) error) (*Record, error)
}

// EligibilityChecker reports whether an account may use MFA. Only
// identity/password based accounts are eligible; wallet-only accounts are not.
type EligibilityChecker interface {
	IsEligibleForMFA(ctx context.Context, userID string) (bool, error)
}

// EligibilityFunc adapts a function to EligibilityChecker.
type EligibilityFunc func(ctx context.Context, userID string) (bool, error)

func (f EligibilityFunc) IsEligibleForMFA(ctx context.Context, userID string) (bool, error) {
	return f(ctx, userID)
}

// AllowAll treats every account as eligible.
var AllowAll EligibilityChecker = EligibilityFunc(func(context.Context, string) (bool, error) {
	return true, nil
})

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}
