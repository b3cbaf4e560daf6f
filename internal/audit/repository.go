package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads audit_logs.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const timelineSelect = `SELECT id, occurred_at, actor, action, entity, entity_id, meta
FROM audit_logs
WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR occurred_at < $2)
  AND ($3::text IS NULL OR actor = $3)
  AND ($4::text IS NULL OR entity = $4)
  AND ($5::text IS NULL OR action = $5)
ORDER BY occurred_at DESC, id DESC`

// Window implements Repository.
func (s *Store) Window(ctx context.Context, f TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	args := append(filterArgs(f), limit, offset)
	rows, err := s.pool.Query(ctx, timelineSelect+` LIMIT $6 OFFSET $7`, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline: %w", err)
	}
	return scanRows(rows)
}

// All implements Repository.
func (s *Store) All(ctx context.Context, f TimelineFilters) ([]TimelineRow, error) {
	rows, err := s.pool.Query(ctx, timelineSelect, filterArgs(f)...)
	if err != nil {
		return nil, fmt.Errorf("audit: export: %w", err)
	}
	return scanRows(rows)
}

func filterArgs(f TimelineFilters) []any {
	return []any{optionalTime(f.From), optionalTime(f.To), optionalText(f.Actor), optionalText(f.Entity), optionalText(f.Action)}
}

func scanRows(rows pgx.Rows) ([]TimelineRow, error) {
	defer rows.Close()
	var out []TimelineRow
	for rows.Next() {
		var (
			r    TimelineRow
			meta []byte
		)
		if err := rows.Scan(&r.ID, &r.At, &r.Actor, &r.Action, &r.Entity, &r.EntityID, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &r.Meta); err != nil {
				return nil, fmt.Errorf("audit: decode meta of %d: %w", r.ID, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func optionalTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}
