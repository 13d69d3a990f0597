package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Emitter receives audit records. Emission is best-effort: implementations
// log failures and return, they never block or roll back the operation the
// record describes.
type Emitter interface {
	Security(ctx context.Context, ev SecurityEvent)
	Mutation(ctx context.Context, rec MutationRecord)
}

// AsynqEmitter enqueues audit records for the background worker.
type AsynqEmitter struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewAsynqEmitter constructs an emitter backed by the given asynq client.
func NewAsynqEmitter(client *asynq.Client, logger *slog.Logger) *AsynqEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &AsynqEmitter{client: client, logger: logger}
}

// Security enqueues a security event.
func (e *AsynqEmitter) Security(ctx context.Context, ev SecurityEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	task, err := NewSecurityEventTask(ev)
	if err != nil {
		e.logger.Error("audit: marshal security event", slog.Any("error", err))
		return
	}
	if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue(QueueAudit)); err != nil {
		e.logger.Error("audit: enqueue security event",
			slog.String("principal", ev.PrincipalID),
			slog.Any("error", err))
	}
}

// Mutation enqueues a mutation record.
func (e *AsynqEmitter) Mutation(ctx context.Context, rec MutationRecord) {
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	task, err := NewMutationRecordTask(rec)
	if err != nil {
		e.logger.Error("audit: marshal mutation record", slog.Any("error", err))
		return
	}
	if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue(QueueAudit)); err != nil {
		e.logger.Error("audit: enqueue mutation record",
			slog.String("actor", rec.ActorID),
			slog.Any("error", err))
	}
}

// NopEmitter discards all records. Used by scripts and tests that do not
// care about audit output.
type NopEmitter struct{}

// Security implements Emitter.
func (NopEmitter) Security(context.Context, SecurityEvent) {}

// Mutation implements Emitter.
func (NopEmitter) Mutation(context.Context, MutationRecord) {}
