package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists audit records in the audit_logs table.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Insert appends one record.
func (s *Store) Insert(ctx context.Context, rec Record) error {
	if s == nil || s.pool == nil {
		return errors.New("audit: store not initialised")
	}
	if rec.Action == "" || rec.Entity == "" || rec.EntityID == "" {
		return errors.New("audit: record requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(rec.Meta)
	if err != nil {
		return err
	}
	at := rec.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO audit_logs (actor_id, actor_role, action, entity, entity_id, meta, ip, user_agent, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ActorID, rec.ActorRole, rec.Action, rec.Entity, rec.EntityID, metaJSON, rec.IP, rec.UserAgent, at)
	return err
}

// ListFilters narrows the audit listing.
type ListFilters struct {
	ActorID  string
	Entity   string
	Action   string
	Page     int
	PageSize int
}

// List returns records newest first with simple paging.
func (s *Store) List(ctx context.Context, filters ListFilters) ([]Record, error) {
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}

	rows, err := s.pool.Query(ctx, `
SELECT actor_id, actor_role, action, entity, entity_id, meta, ip, user_agent, occurred_at
FROM audit_logs
WHERE ($1 = '' OR actor_id = $1)
  AND ($2 = '' OR entity = $2)
  AND ($3 = '' OR action = $3)
ORDER BY occurred_at DESC
LIMIT $4 OFFSET $5`,
		filters.ActorID, filters.Entity, filters.Action, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var metaJSON []byte
		if err := rows.Scan(&rec.ActorID, &rec.ActorRole, &rec.Action, &rec.Entity, &rec.EntityID, &metaJSON, &rec.IP, &rec.UserAgent, &rec.At); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &rec.Meta)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SyncRecorder satisfies Recorder by writing straight through to the
// store. Used by deployments without a worker and by tests.
type SyncRecorder struct {
	store  *Store
	logger *slog.Logger
}

// NewSyncRecorder constructs a SyncRecorder.
func NewSyncRecorder(store *Store, logger *slog.Logger) *SyncRecorder {
	return &SyncRecorder{store: store, logger: logger}
}

// Record writes the entry and swallows failures.
func (r *SyncRecorder) Record(ctx context.Context, rec Record) {
	if err := r.store.Insert(ctx, rec); err != nil && r.logger != nil {
		r.logger.Error("audit record dropped", slog.String("action", rec.Action), slog.Any("error", err))
	}
}
