// Package httpapi exposes the MFA manager over a JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/mfakit/pkg/clientip"
	"github.com/dmitrymomot/mfakit/pkg/httpserver"
	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/mfa"
	"github.com/dmitrymomot/mfakit/pkg/ratelimiter"
	"github.com/dmitrymomot/mfakit/pkg/requestid"
)

// Handler serves the MFA endpoints.
type Handler struct {
	manager       mfa.Manager
	logger        *slog.Logger
	limiter       ratelimiter.RateLimiter
	checks        map[string]httpserver.Check
	metrics       http.Handler
	clientIP      *clientip.Resolver
	healthTimeout time.Duration
	maxBodyBytes  int64
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithLimiter throttles code submissions per user. Without it no limit applies.
func WithLimiter(l ratelimiter.RateLimiter) Option {
	return func(h *Handler) { h.limiter = l }
}

// WithHealthCheck adds a named dependency check to GET /health.
func WithHealthCheck(name string, check httpserver.Check) Option {
	return func(h *Handler) {
		if name != "" && check != nil {
			h.checks[name] = check
		}
	}
}

// WithMetricsHandler mounts a scrape endpoint at GET /metrics.
func WithMetricsHandler(m http.Handler) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithConfig applies the environment settings.
func WithConfig(cfg Config) Option {
	return func(h *Handler) {
		if cfg.HealthTimeout > 0 {
			h.healthTimeout = cfg.HealthTimeout
		}
		if cfg.MaxBodyBytes > 0 {
			h.maxBodyBytes = cfg.MaxBodyBytes
		}
		h.clientIP = clientip.New(clientip.WithTrustedProxies(cfg.TrustedProxies...))
	}
}

func New(manager mfa.Manager, opts ...Option) *Handler {
	h := &Handler{
		manager:       manager,
		logger:        logger.Discard(),
		checks:        make(map[string]httpserver.Check),
		healthTimeout: 2 * time.Second,
		maxBodyBytes:  4096,
		clientIP:      clientip.New(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds the route tree:
//
//	GET    /health
//	GET    /metrics
//	GET    /mfa/{userID}
//	DELETE /mfa/{userID}
//	POST   /mfa/{userID}/enrollment
//	POST   /mfa/{userID}/enrollment/confirm
//	POST   /mfa/{userID}/verify
//	POST   /mfa/{userID}/backup-codes
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware, h.clientIP.Middleware, middleware.Recoverer, h.accessLog)

	r.Get("/health", httpserver.HealthHandler(h.logger, h.healthTimeout, h.checks))
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/mfa/{userID}", func(r chi.Router) {
		r.Get("/", h.status)
		r.Delete("/", h.disable)
		r.Post("/enrollment", h.beginEnrollment)
		r.With(h.throttle("confirm")).Post("/enrollment/confirm", h.confirmEnrollment)
		r.With(h.throttle("verify")).Post("/verify", h.verify)
		r.Post("/backup-codes", h.regenerateBackupCodes)
	})

	return r
}

func (h *Handler) throttle(action string) func(http.Handler) http.Handler {
	if h.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return ratelimiter.Middleware(h.limiter, limitKey(action),
		ratelimiter.WithDeniedHandler(func(w http.ResponseWriter, r *http.Request, _ *ratelimiter.Result) {
			h.logger.WarnContext(r.Context(), "mfa attempts throttled",
				logger.UserID(chi.URLParam(r, "userID")), logger.Event(action))
			h.writeError(w, r, mfa.ErrTooManyAttempts)
		}),
		ratelimiter.WithErrorHandler(h.writeError),
	)
}

func limitKey(action string) ratelimiter.KeyFunc {
	return ratelimiter.Composite(ratelimiter.Static(action), func(r *http.Request) string {
		return chi.URLParam(r, "userID")
	})
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.DebugContext(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("route", chi.RouteContext(r.Context()).RoutePattern()),
			slog.Int("status", ww.Status()),
			logger.Duration(time.Since(start)),
		)
	})
}

type codeRequest struct {
	Code string `json:"code"`
}

func (h *Handler) decodeCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req codeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil || req.Code == "" {
		writeHTTPError(w, errBadRequest)
		return "", false
	}
	return req.Code, true
}

type enrollmentResponse struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
	QRCode string `json:"qr_code,omitempty"`
}

type backupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}

type statusResponse struct {
	State                string     `json:"state"`
	Enabled              bool       `json:"enabled"`
	Eligible             bool       `json:"eligible"`
	BackupCodesRemaining int        `json:"backup_codes_remaining"`
	SetupCompletedAt     *time.Time `json:"setup_completed_at,omitempty"`
}

func (h *Handler) beginEnrollment(w http.ResponseWriter, r *http.Request) {
	e, err := h.manager.BeginEnrollment(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, enrollmentResponse{Secret: e.Secret, URI: e.URI, QRCode: e.QRCode})
}

func (h *Handler) confirmEnrollment(w http.ResponseWriter, r *http.Request) {
	code, ok := h.decodeCode(w, r)
	if !ok {
		return
	}
	userID := chi.URLParam(r, "userID")
	codes, err := h.manager.ConfirmEnrollment(r.Context(), userID, code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.resetLimit(r, "confirm")
	writeData(w, http.StatusOK, backupCodesResponse{BackupCodes: codes})
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	code, ok := h.decodeCode(w, r)
	if !ok {
		return
	}
	verified, err := h.manager.VerifyForLogin(r.Context(), chi.URLParam(r, "userID"), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !verified {
		h.writeError(w, r, mfa.ErrVerificationFailed)
		return
	}
	h.resetLimit(r, "verify")
	writeData(w, http.StatusOK, verifyResponse{Verified: true})
}

func (h *Handler) disable(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Disable(r.Context(), chi.URLParam(r, "userID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) regenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.manager.RegenerateBackupCodes(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, backupCodesResponse{BackupCodes: codes})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	st, err := h.manager.Status(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, statusResponse{
		State:                st.State.Name(),
		Enabled:              st.Enabled,
		Eligible:             st.Eligible,
		BackupCodesRemaining: st.BackupCodesRemaining,
		SetupCompletedAt:     st.SetupCompletedAt,
	})
}

// resetLimit clears the attempt budget after a successful code.
func (h *Handler) resetLimit(r *http.Request, action string) {
	if h.limiter == nil {
		return
	}
	if err := h.limiter.Reset(r.Context(), limitKey(action)(r)); err != nil && !errors.Is(err, r.Context().Err()) {
		h.logger.WarnContext(r.Context(), "failed to reset attempt limit", logger.Error(err))
	}
}
