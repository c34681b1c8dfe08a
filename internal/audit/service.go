package audit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gastropos/gastropos/internal/shared"
)

// Entry is one audit trail row as served to the console.
type Entry struct {
	ID       int64          `json:"id"`
	ActorID  int64          `json:"actor_id"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
	At       time.Time      `json:"at"`
}

// Filters narrows a timeline query. Zero values mean no filter.
type Filters struct {
	ActorID int64
	Entity  string
	Action  string
	Since   time.Time
}

// Service reads the audit trail written by shared.AuditLogger.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs an audit read service.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// Timeline returns audit entries newest first, with pagination metadata.
func (s *Service) Timeline(ctx context.Context, f Filters, page, perPage int) ([]Entry, shared.Pagination, error) {
	var total int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM audit_logs
		WHERE ($1 = 0 OR actor_id = $1)
		  AND ($2 = '' OR entity = $2)
		  AND ($3 = '' OR action = $3)
		  AND ($4::timestamptz IS NULL OR occurred_at >= $4)`,
		f.ActorID, f.Entity, f.Action, nullTime(f.Since)).Scan(&total)
	if err != nil {
		return nil, shared.Pagination{}, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, actor_id, action, entity, entity_id, meta, occurred_at
		FROM audit_logs
		WHERE ($1 = 0 OR actor_id = $1)
		  AND ($2 = '' OR entity = $2)
		  AND ($3 = '' OR action = $3)
		  AND ($4::timestamptz IS NULL OR occurred_at >= $4)
		ORDER BY occurred_at DESC, id DESC
		LIMIT $5 OFFSET $6`,
		f.ActorID, f.Entity, f.Action, nullTime(f.Since), perPage, shared.Offset(page, perPage))
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &e.Meta, &e.At); err != nil {
			return nil, shared.Pagination{}, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Pagination{}, err
	}
	return entries, shared.NewPagination(page, perPage, total), nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
