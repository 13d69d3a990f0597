package audit

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueAudit is the asynq queue carrying audit records.
	QueueAudit = "audit"
	// TaskSecurityEvent is the task type for security event persistence.
	TaskSecurityEvent = "audit:security"
	// TaskMutationRecord is the task type for mutation record persistence.
	TaskMutationRecord = "audit:mutation"
)

// NewSecurityEventTask wraps a security event into an asynq task.
func NewSecurityEventTask(ev SecurityEvent) (*asynq.Task, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSecurityEvent, data), nil
}

// NewMutationRecordTask wraps a mutation record into an asynq task.
func NewMutationRecordTask(rec MutationRecord) (*asynq.Task, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMutationRecord, data), nil
}
