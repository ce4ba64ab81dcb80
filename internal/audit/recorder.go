package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

// TaskTypeRecord is the asynq task type carrying one audit record.
const TaskTypeRecord = "audit:record"

// QueueRecorder hands records to the background worker so a slow or failing
// sink cannot add latency to the guarded action.
type QueueRecorder struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewQueueRecorder constructs a QueueRecorder.
func NewQueueRecorder(client *asynq.Client, logger *slog.Logger) *QueueRecorder {
	return &QueueRecorder{client: client, logger: logger}
}

// Record enqueues the entry. Enqueue failure is logged and swallowed.
func (r *QueueRecorder) Record(ctx context.Context, rec Record) {
	payload, err := json.Marshal(rec)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("audit record dropped", slog.String("action", rec.Action), slog.Any("error", err))
		}
		return
	}
	task := asynq.NewTask(TaskTypeRecord, payload)
	if _, err := r.client.EnqueueContext(ctx, task); err != nil && r.logger != nil {
		r.logger.Error("audit enqueue failed", slog.String("action", rec.Action), slog.Any("error", err))
	}
}

// NopRecorder discards records. Used where audit is configured off.
type NopRecorder struct{}

// Record drops the entry.
func (NopRecorder) Record(ctx context.Context, rec Record) {}

var (
	_ Recorder = (*QueueRecorder)(nil)
	_ Recorder = (*SyncRecorder)(nil)
	_ Recorder = NopRecorder{}
)
