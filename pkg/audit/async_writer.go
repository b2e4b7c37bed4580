package audit

import (
	"context"
	"sync"
	"time"
)

// AsyncOptions tunes batching. Zero values take the defaults.
type AsyncOptions struct {
	BufferSize   int           // queued events before WriteEvents fails with ErrBufferFull; default 1000
	BatchSize    int           // events per flush; default 100
	BatchTimeout time.Duration // max age of a partial batch; default 100ms
	WriteTimeout time.Duration // per-flush deadline; default 5s
	OnError      func(err error, lost []Event)
}

// AsyncWriter queues events and flushes them to the wrapped Writer in
// batches from a single goroutine, keeping audit I/O off the request path.
type AsyncWriter struct {
	next    Writer
	opts    AsyncOptions
	queue   chan Event
	done    chan struct{}
	stopped chan struct{}

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

func NewAsyncWriter(next Writer, opts AsyncOptions) *AsyncWriter {
	if next == nil {
		panic("audit: writer cannot be nil")
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 100 * time.Millisecond
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.OnError == nil {
		opts.OnError = func(error, []Event) {}
	}

	w := &AsyncWriter{
		next:    next,
		opts:    opts,
		queue:   make(chan Event, opts.BufferSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go w.run()
	return w
}

// WriteEvents enqueues events without waiting for them to be persisted.
func (w *AsyncWriter) WriteEvents(_ context.Context, events []Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWriterClosed
	}
	for _, e := range events {
		select {
		case w.queue <- e:
		default:
			return ErrBufferFull
		}
	}
	return nil
}

func (w *AsyncWriter) run() {
	defer close(w.stopped)

	batch := make([]Event, 0, w.opts.BatchSize)
	ticker := time.NewTicker(w.opts.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), w.opts.WriteTimeout)
		defer cancel()
		if err := w.next.WriteEvents(ctx, batch); err != nil {
			w.opts.OnError(err, append([]Event(nil), batch...))
		}
		batch = batch[:0]
	}

	for {
		select {
		case e := <-w.queue:
			batch = append(batch, e)
			if len(batch) >= w.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-w.done:
			for {
				select {
				case e := <-w.queue:
					batch = append(batch, e)
					if len(batch) >= w.opts.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops accepting events and flushes what is queued. If ctx ends first
// the remaining events may be lost.
func (w *AsyncWriter) Close(ctx context.Context) error {
	w.once.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		close(w.done)
	})
	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
