package audit

import (
	"context"
	"errors"
	"time"
)

// Result is the outcome of an audited action.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure" // rejected by a domain rule, e.g. a wrong code
	ResultError   Result = "error"   // infrastructure failure
)

// Event is a single audit trail entry. It never carries secrets or codes.
type Event struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Action    string         `json:"action"`
	Result    Result         `json:"result"`
	Error     string         `json:"error,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Validate checks the required fields.
func (e *Event) Validate() error {
	if e.Action == "" {
		return errors.Join(ErrInvalidEvent, errors.New("action is required"))
	}
	if e.UserID == "" {
		return errors.Join(ErrInvalidEvent, errors.New("user id is required"))
	}
	return nil
}

// Writer persists batches of events. A batch is written entirely or not at all.
type Writer interface {
	WriteEvents(ctx context.Context, events []Event) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(ctx context.Context, events []Event) error

func (f WriterFunc) WriteEvents(ctx context.Context, events []Event) error { return f(ctx, events) }
