package audit

import (
	"context"
	"slices"
	"sync"
)

// MemoryWriter keeps events in memory; for tests and single instance setups.
type MemoryWriter struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{}
}

func (w *MemoryWriter) WriteEvents(ctx context.Context, events []Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, events...)
	return nil
}

// Events returns a copy of everything written so far, oldest first.
func (w *MemoryWriter) Events() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.events)
}

// ForUser returns the events of a single user, oldest first.
func (w *MemoryWriter) ForUser(userID string) []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Event
	for _, e := range w.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}
