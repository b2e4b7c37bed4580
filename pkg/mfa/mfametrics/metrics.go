// Package mfametrics instruments an mfa.Manager with Prometheus metrics.
//
//	reg := prometheus.NewRegistry()
//	manager = mfametrics.Instrument(manager, reg)
//
// Two collectors are registered: mfa_operations_total{operation,outcome} and
// mfa_operation_duration_seconds{operation}. Outcomes are coarse ("success",
// "rejected", "error") so user ids never become label values.
package mfametrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrymomot/mfakit/pkg/mfa"
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Operation label values.
const (
	OpBegin      = "begin_enrollment"
	OpConfirm    = "confirm_enrollment"
	OpVerify     = "verify"
	OpDisable    = "disable"
	OpRegenerate = "regenerate_backup_codes"
	OpStatus     = "status"
)

type instrumented struct {
	next       mfa.Manager
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// Instrument wraps next and registers its collectors with reg.
// Registering twice on the same registry panics.
func Instrument(next mfa.Manager, reg prometheus.Registerer) mfa.Manager {
	factory := promauto.With(reg)
	return &instrumented{
		next: next,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mfa_operations_total",
			Help: "The total number of MFA operations by outcome",
		}, []string{"operation", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mfa_operation_duration_seconds",
			Help:    "The MFA operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *instrumented) observe(op string, start time.Time, err error) {
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	m.operations.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case mfa.IsRejection(err):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

func (m *instrumented) BeginEnrollment(ctx context.Context, userID string) (*mfa.Enrollment, error) {
	start := time.Now()
	e, err := m.next.BeginEnrollment(ctx, userID)
	m.observe(OpBegin, start, err)
	return e, err
}

func (m *instrumented) ConfirmEnrollment(ctx context.Context, userID, code string) ([]string, error) {
	start := time.Now()
	codes, err := m.next.ConfirmEnrollment(ctx, userID, code)
	m.observe(OpConfirm, start, err)
	return codes, err
}

func (m *instrumented) VerifyForLogin(ctx context.Context, userID, code string) (bool, error) {
	start := time.Now()
	ok, err := m.next.VerifyForLogin(ctx, userID, code)
	m.observe(OpVerify, start, err)
	return ok, err
}

func (m *instrumented) Disable(ctx context.Context, userID string) error {
	start := time.Now()
	err := m.next.Disable(ctx, userID)
	m.observe(OpDisable, start, err)
	return err
}

func (m *instrumented) RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error) {
	start := time.Now()
	codes, err := m.next.RegenerateBackupCodes(ctx, userID)
	m.observe(OpRegenerate, start, err)
	return codes, err
}

func (m *instrumented) Status(ctx context.Context, userID string) (*mfa.Status, error) {
	start := time.Now()
	st, err := m.next.Status(ctx, userID)
	m.observe(OpStatus, start, err)
	return st, err
}
