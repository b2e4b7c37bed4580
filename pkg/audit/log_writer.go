package audit

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/mfakit/pkg/logger"
)

// LogWriter emits events as structured log records. It is the audit sink
// when no database is configured.
type LogWriter struct {
	log *slog.Logger
}

func NewLogWriter(l *slog.Logger) *LogWriter {
	if l == nil {
		l = logger.Discard()
	}
	return &LogWriter{log: l}
}

func (w *LogWriter) WriteEvents(ctx context.Context, events []Event) error {
	for _, e := range events {
		attrs := []slog.Attr{
			slog.String("audit_id", e.ID),
			logger.UserID(e.UserID),
			slog.String("action", e.Action),
			slog.String("result", string(e.Result)),
			logger.RequestID(e.RequestID),
			slog.Time("at", e.CreatedAt),
		}
		if e.Error != "" {
			attrs = append(attrs, slog.String("error", e.Error))
		}
		if len(e.Metadata) > 0 {
			attrs = append(attrs, slog.Any("metadata", e.Metadata))
		}
		w.log.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
	}
	return nil
}
