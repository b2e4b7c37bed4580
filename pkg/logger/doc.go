// Package logger builds *slog.Logger instances for the MFA service and
// defines the attribute helpers used across packages so field names stay
// consistent ("user_id", "event", "mfa_state", "request_id").
//
// New takes functional options; Config maps APP_ENV, LOG_LEVEL and
// LOG_FORMAT onto them for binaries:
//
//	var cfg logger.Config
//	config.MustLoad(&cfg)
//	opts, err := cfg.Options()
//	log := logger.New(append(opts, logger.WithContextValue("request_id", requestIDKey{}))...)
//
//	log.InfoContext(ctx, "mfa enabled", logger.UserID(id), logger.MFAState(mfa.StateEnabled))
//
// Error, UserID and RequestID return an empty Attr for zero values, which
// slog drops, so callers need no nil checks. Secrets and codes must never be
// passed to a logger.
package logger
