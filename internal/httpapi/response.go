package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/mfakit/pkg/logger"
	"github.com/dmitrymomot/mfakit/pkg/mfa"
)

// JSONResponse is the envelope of every API response.
type JSONResponse struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail is a stable machine readable code plus a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// httpError maps a domain error onto the wire.
type httpError struct {
	status  int
	code    string
	message string
}

var (
	errBadRequest = httpError{http.StatusBadRequest, "bad_request", "malformed request body"}
	errInternal   = httpError{http.StatusInternalServerError, "internal_error", "internal server error"}
	// both TOTP and backup code failures render identically
	errInvalidCode = httpError{http.StatusUnauthorized, "invalid_code", "invalid code"}
)

var errorTable = []struct {
	target error
	resp   httpError
}{
	{mfa.ErrEmptyUserID, httpError{http.StatusBadRequest, "invalid_user", "user id is required"}},
	{mfa.ErrIneligibleAccount, httpError{http.StatusForbidden, "ineligible_account", "this account type cannot use two-factor authentication"}},
	{mfa.ErrAlreadyEnabled, httpError{http.StatusConflict, "already_enabled", "two-factor authentication is already enabled"}},
	{mfa.ErrEnrollmentNotStarted, httpError{http.StatusConflict, "enrollment_not_started", "two-factor enrollment has not been started"}},
	{mfa.ErrMFANotEnabled, httpError{http.StatusConflict, "not_enabled", "two-factor authentication is not enabled"}},
	{mfa.ErrInvalidCode, errInvalidCode},
	{mfa.ErrInvalidBackupCode, errInvalidCode},
	{mfa.ErrTooManyAttempts, httpError{http.StatusTooManyRequests, "too_many_attempts", "too many attempts, try again later"}},
}

func classify(err error) httpError {
	for _, e := range errorTable {
		if errors.Is(err, e.target) {
			return e.resp
		}
	}
	return errInternal
}

func writeJSON(w http.ResponseWriter, status int, body JSONResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, JSONResponse{Data: data})
}

func writeHTTPError(w http.ResponseWriter, e httpError) {
	writeJSON(w, e.status, JSONResponse{Error: &ErrorDetail{Code: e.code, Message: e.message}})
}

// writeError logs unexpected failures and renders err.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := classify(err)
	if resp.status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "mfa request failed",
			slog.String("path", r.URL.Path), logger.Error(err))
	}
	writeHTTPError(w, resp)
}
