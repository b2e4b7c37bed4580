package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/mfakit/pkg/logger"
)

// Check probes one dependency, e.g. pg.Healthcheck(pool).
type Check func(ctx context.Context) error

// HealthReport is the JSON body written by HealthHandler.
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
)

// HealthHandler runs every check concurrently with the given timeout and
// answers 200 when all pass, 503 otherwise. With no checks it acts as a
// liveness probe. Check errors are logged, never returned to the client.
func HealthHandler(log *slog.Logger, timeout time.Duration, checks map[string]Check) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	slices.Sort(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		report := HealthReport{Status: StatusOK, Checks: make(map[string]string, len(names))}
		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for _, name := range names {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result := StatusOK
				if err := checks[name](ctx); err != nil {
					log.ErrorContext(ctx, "health check failed", slog.String("check", name), logger.Error(err))
					result = StatusUnavailable
				}
				mu.Lock()
				report.Checks[name] = result
				if result != StatusOK {
					report.Status = StatusUnavailable
				}
				mu.Unlock()
			}()
		}
		wg.Wait()

		code := http.StatusOK
		if report.Status != StatusOK {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(report)
	}
}
