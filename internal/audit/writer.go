package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Writer persists audit records into postgres. It runs inside the worker
// process consuming the audit queue.
type Writer struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewWriter constructs a Writer.
func NewWriter(pool *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{pool: pool, logger: logger}
}

// RecordSecurityEvent inserts a security event row.
func (w *Writer) RecordSecurityEvent(ctx context.Context, ev SecurityEvent) error {
	if w == nil || w.pool == nil {
		return errors.New("audit: writer not initialised")
	}
	if ev.Type == "" || ev.Resource == "" || ev.Action == "" {
		return errors.New("audit: security event requires type/resource/action")
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := w.pool.Exec(ctx, `
		INSERT INTO audit_security_events
			(event_type, severity, principal_id, resource, action, resource_id, reason, ip, user_agent, occurred_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''), NULLIF($9, ''), $10)`,
		ev.Type, string(ev.Severity), ev.PrincipalID, ev.Resource, ev.Action,
		ev.ResourceID, ev.Reason, ev.IP, ev.UserAgent, at)
	return err
}

// RecordMutation inserts a mutation record row.
func (w *Writer) RecordMutation(ctx context.Context, rec MutationRecord) error {
	if w == nil || w.pool == nil {
		return errors.New("audit: writer not initialised")
	}
	if rec.Action == "" || rec.ActorID == "" || rec.TargetID == "" {
		return errors.New("audit: mutation record requires action/actor/target")
	}
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	detail, err := json.Marshal(rec.Detail)
	if err != nil {
		return err
	}
	_, err = w.pool.Exec(ctx, `
		INSERT INTO audit_mutations (action, actor_id, target_id, success, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.Action, rec.ActorID, rec.TargetID, rec.Success, detail, at)
	return err
}

// HandleSecurityEventTask processes TaskSecurityEvent tasks.
func (w *Writer) HandleSecurityEventTask(ctx context.Context, t *asynq.Task) error {
	var ev SecurityEvent
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		w.logger.Error("audit: decode security task", slog.Any("error", err))
		return asynq.SkipRetry
	}
	return w.RecordSecurityEvent(ctx, ev)
}

// HandleMutationRecordTask processes TaskMutationRecord tasks.
func (w *Writer) HandleMutationRecordTask(ctx context.Context, t *asynq.Task) error {
	var rec MutationRecord
	if err := json.Unmarshal(t.Payload(), &rec); err != nil {
		w.logger.Error("audit: decode mutation task", slog.Any("error", err))
		return asynq.SkipRetry
	}
	return w.RecordMutation(ctx, rec)
}
