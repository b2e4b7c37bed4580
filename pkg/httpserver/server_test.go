package httpserver_test

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/pkg/httpserver"
	"github.com/dmitrymomot/mfakit/pkg/logger"
)

func startServer(t *testing.T, ctx context.Context, handler http.Handler, opts ...httpserver.Option) (*httpserver.Server, string, <-chan error) {
	t.Helper()
	addrCh := make(chan net.Addr, 1)
	opts = append([]httpserver.Option{
		httpserver.WithAddr("127.0.0.1:0"),
		httpserver.WithShutdownTimeout(200 * time.Millisecond),
		httpserver.WithStartHook(func(a net.Addr) { addrCh <- a }),
	}, opts...)
	srv := httpserver.New(opts...)

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, handler) }()

	select {
	case a := <-addrCh:
		return srv, "http://" + a.String(), done
	case err := <-done:
		require.FailNow(t, "server did not start", "%v", err)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "server did not start in time")
	}
	return nil, "", nil
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		require.FailNow(t, "run did not finish")
		return nil
	}
}

func TestRunServesUntilContextCancelled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithFormat(logger.FormatJSON))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, base, done := startServer(t, ctx, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), httpserver.WithLogger(log))

	resp, err := http.Get(base)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	require.NoError(t, waitDone(t, done))
	assert.Contains(t, buf.String(), "http server started")
	assert.Contains(t, buf.String(), "http server stopped")
}

func TestManualShutdownIsIdempotent(t *testing.T) {
	t.Parallel()

	srv, _, done := startServer(t, context.Background(), http.NewServeMux())
	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, waitDone(t, done))
}

func TestStartError(t *testing.T) {
	t.Parallel()

	srv := httpserver.New(httpserver.WithAddr(":invalid"))
	err := srv.Run(context.Background(), nil)
	assert.ErrorIs(t, err, httpserver.ErrStart)
}

func TestAlreadyRunning(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	srv, _, done := startServer(t, ctx, http.NewServeMux())

	err := srv.Run(context.Background(), http.NewServeMux())
	assert.ErrorIs(t, err, httpserver.ErrStart)

	cancel()
	require.NoError(t, waitDone(t, done))
}

func TestShutdownHooks(t *testing.T) {
	t.Parallel()

	var order []string
	boom := errors.New("close failed")

	ctx, cancel := context.WithCancel(context.Background())
	_, _, done := startServer(t, ctx, http.NewServeMux(),
		httpserver.WithShutdownHook(func(context.Context) error {
			order = append(order, "pool")
			return nil
		}),
		httpserver.WithShutdownHook(func(hookCtx context.Context) error {
			order = append(order, "redis")
			_, hasDeadline := hookCtx.Deadline()
			assert.True(t, hasDeadline)
			return boom
		}),
	)

	cancel()
	err := waitDone(t, done)
	assert.ErrorIs(t, err, httpserver.ErrShutdown)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"pool", "redis"}, order)
}

func TestWithServerKeepsPresetFields(t *testing.T) {
	t.Parallel()

	hs := &http.Server{ReadTimeout: time.Second}
	srv, _, done := startServer(t, context.Background(), http.NewServeMux(),
		httpserver.WithServer(hs),
		httpserver.WithReadTimeout(5*time.Second),
		httpserver.WithWriteTimeout(2*time.Second),
		httpserver.WithIdleTimeout(3*time.Second),
	)

	assert.Equal(t, time.Second, hs.ReadTimeout)
	assert.Equal(t, 2*time.Second, hs.WriteTimeout)
	assert.Equal(t, 3*time.Second, hs.IdleTimeout)
	assert.Equal(t, "127.0.0.1:0", hs.Addr)
	assert.NotNil(t, hs.Handler)

	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, waitDone(t, done))
}

func TestSignalShutdown(t *testing.T) {
	// Not parallel: SIGTERM is delivered to the whole test process.
	var stopped atomic.Bool
	_, _, done := startServer(t, context.Background(), http.NewServeMux(),
		httpserver.WithShutdownHook(func(context.Context) error {
			stopped.Store(true)
			return nil
		}),
	)

	p, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	require.NoError(t, p.Signal(syscall.SIGTERM))

	require.NoError(t, waitDone(t, done))
	assert.True(t, stopped.Load())
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	hs := &http.Server{}
	addrCh := make(chan net.Addr, 1)
	srv := httpserver.NewFromConfig(httpserver.Config{
		Addr:            "127.0.0.1:0",
		ReadTimeout:     time.Second,
		ShutdownTimeout: 100 * time.Millisecond,
	}, httpserver.WithServer(hs), httpserver.WithStartHook(func(a net.Addr) { addrCh <- a }))

	done := make(chan error, 1)
	go func() { done <- srv.Run(context.Background(), nil) }()
	<-addrCh

	assert.Equal(t, time.Second, hs.ReadTimeout)
	assert.Zero(t, hs.WriteTimeout)
	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, waitDone(t, done))
}

func TestOptionPanics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func()
	}{
		{"addr", func() { httpserver.WithAddr("") }},
		{"read", func() { httpserver.WithReadTimeout(-time.Second) }},
		{"write", func() { httpserver.WithWriteTimeout(0) }},
		{"idle", func() { httpserver.WithIdleTimeout(-time.Second) }},
		{"shutdown", func() { httpserver.WithShutdownTimeout(0) }},
		{"server", func() { httpserver.WithServer(nil) }},
		{"start hook", func() { httpserver.WithStartHook(nil) }},
		{"shutdown hook", func() { httpserver.WithShutdownHook(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Panics(t, tt.fn)
		})
	}

	assert.NotPanics(t, func() { httpserver.WithLogger(nil) })
}
