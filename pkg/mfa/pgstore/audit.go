package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/mfakit/pkg/audit"
)

var auditColumns = []string{"id", "user_id", "action", "result", "error", "request_id", "metadata", "created_at"}

const selectAuditSQL = `SELECT id, user_id, action, result, COALESCE(error, ''), COALESCE(request_id, ''), metadata, created_at
	FROM mfa_audit_events WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

// AuditWriter stores audit events in mfa_audit_events with COPY.
type AuditWriter struct {
	pool *pgxpool.Pool
}

func NewAuditWriter(pool *pgxpool.Pool) *AuditWriter {
	return &AuditWriter{pool: pool}
}

func (w *AuditWriter) WriteEvents(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([][]any, len(events))
	for i, e := range events {
		id, err := uuid.Parse(e.ID)
		if err != nil {
			id = uuid.New()
		}
		var meta []byte
		if len(e.Metadata) > 0 {
			if meta, err = json.Marshal(e.Metadata); err != nil {
				return fmt.Errorf("failed to encode audit metadata: %w", err)
			}
		}
		rows[i] = []any{id, e.UserID, e.Action, string(e.Result), nullable(e.Error), nullable(e.RequestID), meta, e.CreatedAt}
	}
	if _, err := w.pool.CopyFrom(ctx, pgx.Identifier{"mfa_audit_events"}, auditColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to write audit events: %w", err)
	}
	return nil
}

// Recent returns up to limit events of userID, newest first.
func (w *AuditWriter) Recent(ctx context.Context, userID string, limit int) ([]audit.Event, error) {
	rows, err := w.pool.Query(ctx, selectAuditSQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (audit.Event, error) {
		var (
			e       audit.Event
			id      uuid.UUID
			result  string
			meta    []byte
			created time.Time
		)
		if err := row.Scan(&id, &e.UserID, &e.Action, &result, &e.Error, &e.RequestID, &meta, &created); err != nil {
			return e, err
		}
		e.ID = id.String()
		e.Result = audit.Result(result)
		e.CreatedAt = created.UTC()
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return e, err
			}
		}
		return e, nil
	})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
