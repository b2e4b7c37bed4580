package audit_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/pkg/audit"
)

type countingWriter struct {
	mu      sync.Mutex
	batches [][]audit.Event
}

func (w *countingWriter) WriteEvents(_ context.Context, events []audit.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, append([]audit.Event(nil), events...))
	return nil
}

func (w *countingWriter) total() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, b := range w.batches {
		n += len(b)
	}
	return n
}

func event(i int) audit.Event {
	return audit.Event{ID: fmt.Sprint(i), UserID: "u1", Action: "mfa.verify", Result: audit.ResultSuccess}
}

func TestAsyncWriterBatches(t *testing.T) {
	t.Parallel()

	next := &countingWriter{}
	w := audit.NewAsyncWriter(next, audit.AsyncOptions{BatchSize: 10, BatchTimeout: time.Hour})

	for i := range 25 {
		require.NoError(t, w.WriteEvents(context.Background(), []audit.Event{event(i)}))
	}
	require.NoError(t, w.Close(context.Background()))

	assert.Equal(t, 25, next.total())
	next.mu.Lock()
	defer next.mu.Unlock()
	require.GreaterOrEqual(t, len(next.batches), 3)
	for _, b := range next.batches {
		assert.LessOrEqual(t, len(b), 10)
	}
}

func TestAsyncWriterFlushesOnTimeout(t *testing.T) {
	t.Parallel()

	next := &countingWriter{}
	w := audit.NewAsyncWriter(next, audit.AsyncOptions{BatchSize: 100, BatchTimeout: 10 * time.Millisecond})
	t.Cleanup(func() { _ = w.Close(context.Background()) })

	require.NoError(t, w.WriteEvents(context.Background(), []audit.Event{event(1)}))
	assert.Eventually(t, func() bool { return next.total() == 1 }, time.Second, 5*time.Millisecond)
}

func TestAsyncWriterClosed(t *testing.T) {
	t.Parallel()

	w := audit.NewAsyncWriter(&countingWriter{}, audit.AsyncOptions{})
	require.NoError(t, w.Close(context.Background()))
	require.NoError(t, w.Close(context.Background()))
	assert.ErrorIs(t, w.WriteEvents(context.Background(), []audit.Event{event(1)}), audit.ErrWriterClosed)
}

func TestAsyncWriterBufferFull(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	blocking := audit.WriterFunc(func(context.Context, []audit.Event) error {
		<-release
		return nil
	})
	w := audit.NewAsyncWriter(blocking, audit.AsyncOptions{BufferSize: 2, BatchSize: 1})

	var full bool
	for i := range 10 {
		if errors.Is(w.WriteEvents(context.Background(), []audit.Event{event(i)}), audit.ErrBufferFull) {
			full = true
			break
		}
	}
	assert.True(t, full)

	close(release)
	require.NoError(t, w.Close(context.Background()))
}

func TestAsyncWriterReportsLostEvents(t *testing.T) {
	t.Parallel()

	var lost atomic.Int32
	failing := audit.WriterFunc(func(context.Context, []audit.Event) error { return errors.New("db down") })
	w := audit.NewAsyncWriter(failing, audit.AsyncOptions{
		BatchSize: 5,
		OnError:   func(_ error, events []audit.Event) { lost.Add(int32(len(events))) },
	})

	for i := range 7 {
		require.NoError(t, w.WriteEvents(context.Background(), []audit.Event{event(i)}))
	}
	require.NoError(t, w.Close(context.Background()))
	assert.Equal(t, int32(7), lost.Load())
}
