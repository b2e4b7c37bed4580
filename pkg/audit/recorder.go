package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Recorder stamps events with an id, time and request metadata before
// handing them to a Writer.
type Recorder struct {
	writer    Writer
	now       func() time.Time
	requestID func(context.Context) string
	fromCtx   map[string]func(context.Context) string
}

type Option func(*Recorder)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRequestIDExtractor reads the request id from the context, e.g. requestid.FromContext.
func WithRequestIDExtractor(fn func(context.Context) string) Option {
	return func(r *Recorder) { r.requestID = fn }
}

// WithContextMetadata copies a context value into every event's metadata
// under key. Empty values are skipped.
func WithContextMetadata(key string, fn func(context.Context) string) Option {
	return func(r *Recorder) {
		if r.fromCtx == nil {
			r.fromCtx = make(map[string]func(context.Context) string)
		}
		r.fromCtx[key] = fn
	}
}

func NewRecorder(w Writer, opts ...Option) *Recorder {
	if w == nil {
		panic("audit: writer cannot be nil")
	}
	r := &Recorder{writer: w, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EventOption adjusts an event before it is recorded.
type EventOption func(*Event)

// WithMetadata attaches a key/value pair.
func WithMetadata(key string, value any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}

// WithError marks the event failed or errored and keeps the message.
func WithError(result Result, err error) EventOption {
	return func(e *Event) {
		e.Result = result
		if err != nil {
			e.Error = err.Error()
		}
	}
}

// Record writes a successful action unless opts say otherwise.
func (r *Recorder) Record(ctx context.Context, userID, action string, opts ...EventOption) error {
	e := Event{
		ID:        uuid.NewString(),
		UserID:    userID,
		Action:    action,
		Result:    ResultSuccess,
		CreatedAt: r.now().UTC(),
	}
	if r.requestID != nil {
		e.RequestID = r.requestID(ctx)
	}
	for key, fn := range r.fromCtx {
		if v := fn(ctx); v != "" {
			WithMetadata(key, v)(&e)
		}
	}
	for _, opt := range opts {
		opt(&e)
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if err := r.writer.WriteEvents(ctx, []Event{e}); err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	return nil
}
