package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-lms/meridian-lms/internal/audit"
)

// QueueDefault is the default queue name for background jobs.
const QueueDefault = "default"

// NewAuditRecordHandler returns the handler that persists queued audit
// records. A malformed payload is dropped rather than retried; a store
// failure is returned so asynq retries with backoff.
func NewAuditRecordHandler(store *audit.Store, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var rec audit.Record
		if err := json.Unmarshal(t.Payload(), &rec); err != nil {
			if logger != nil {
				logger.Error("audit task payload invalid", slog.Any("error", err))
			}
			return asynq.SkipRetry
		}
		if err := store.Insert(ctx, rec); err != nil {
			if logger != nil {
				logger.Warn("audit task insert failed", slog.String("action", rec.Action), slog.Any("error", err))
			}
			return err
		}
		return nil
	}
}
