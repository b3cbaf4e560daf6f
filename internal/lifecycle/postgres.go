package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopmanager/shopmanager/internal/platform/db"
	"github.com/shopmanager/shopmanager/internal/shared"
)

const recordColumns = `id, data, visible, hidden_at, hidden_by, deleted, deleted_at, deleted_by, change_history, created_at, updated_at`

const archiveColumns = `id, original_id, data, change_history, deleted_at, deleted_by, archived_at`

// PostgresStore keeps one entity type in its own table as a JSONB document
// with lifecycle columns; archives share the lifecycle_archive table.
type PostgresStore[T Entity] struct {
	pool   *pgxpool.Pool
	entity string
	table  string
}

// NewPostgresStore binds a store to table for the named entity.
func NewPostgresStore[T Entity](pool *pgxpool.Pool, entity, table string) *PostgresStore[T] {
	return &PostgresStore[T]{pool: pool, entity: entity, table: pgx.Identifier{table}.Sanitize()}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord[T Entity](row rowScanner) (Record[T], error) {
	var (
		rec     Record[T]
		data    []byte
		history []byte
	)
	err := row.Scan(&rec.ID, &data, &rec.Visible, &rec.HiddenAt, &rec.HiddenBy, &rec.Deleted, &rec.DeletedAt, &rec.DeletedBy, &history, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record[T]{}, shared.ErrNotFound
		}
		return Record[T]{}, err
	}
	if err := json.Unmarshal(data, &rec.Fields); err != nil {
		return Record[T]{}, fmt.Errorf("lifecycle: decode data: %w", err)
	}
	if err := json.Unmarshal(history, &rec.History); err != nil {
		return Record[T]{}, fmt.Errorf("lifecycle: decode history: %w", err)
	}
	return rec, nil
}

func scanArchive[T Entity](row rowScanner) (ArchiveRecord[T], error) {
	var (
		a       ArchiveRecord[T]
		data    []byte
		history []byte
	)
	err := row.Scan(&a.ID, &a.OriginalID, &data, &history, &a.DeletedAt, &a.DeletedBy, &a.ArchivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ArchiveRecord[T]{}, shared.ErrNotFound
		}
		return ArchiveRecord[T]{}, err
	}
	if err := json.Unmarshal(data, &a.Fields); err != nil {
		return ArchiveRecord[T]{}, fmt.Errorf("lifecycle: decode archive data: %w", err)
	}
	if err := json.Unmarshal(history, &a.History); err != nil {
		return ArchiveRecord[T]{}, fmt.Errorf("lifecycle: decode archive history: %w", err)
	}
	return a, nil
}

func encodeRecord[T Entity](rec Record[T]) (data, history []byte, err error) {
	data, err = json.Marshal(rec.Fields)
	if err != nil {
		return nil, nil, fmt.Errorf("lifecycle: encode data: %w", err)
	}
	h := rec.History
	if h == nil {
		h = []ChangeRecord{}
	}
	history, err = json.Marshal(h)
	if err != nil {
		return nil, nil, fmt.Errorf("lifecycle: encode history: %w", err)
	}
	return data, history, nil
}

func (s *PostgresStore[T]) insertSQL() string {
	return `INSERT INTO ` + s.table + ` (id, business_key, data, visible, hidden_at, hidden_by, deleted, deleted_at, deleted_by, change_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
}

func (s *PostgresStore[T]) Insert(ctx context.Context, rec Record[T]) error {
	data, history, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, s.insertSQL(), rec.ID, rec.Fields.BusinessKey(), data, rec.Visible, rec.HiddenAt, rec.HiddenBy,
		rec.Deleted, rec.DeletedAt, rec.DeletedBy, history, rec.CreatedAt, rec.UpdatedAt)
	if shared.IsUniqueViolation(err) {
		return shared.ErrDuplicateKey
	}
	return err
}

func (s *PostgresStore[T]) Get(ctx context.Context, id uuid.UUID) (Record[T], error) {
	row := s.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM `+s.table+` WHERE id = $1`, id)
	return scanRecord[T](row)
}

func (s *PostgresStore[T]) GetByKey(ctx context.Context, key string) (Record[T], error) {
	row := s.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM `+s.table+` WHERE business_key = $1`, key)
	return scanRecord[T](row)
}

func (s *PostgresStore[T]) FindByField(ctx context.Context, field, value string) (Record[T], error) {
	row := s.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM `+s.table+`
		WHERE NOT deleted AND data->>$1 = $2 ORDER BY created_at ASC LIMIT 1`, field, value)
	return scanRecord[T](row)
}

func stateClause(state StateFilter) string {
	switch state {
	case OnlyActive:
		return "NOT deleted AND visible"
	case OnlyHidden:
		return "NOT deleted AND NOT visible"
	case OnlyDeleted:
		return "deleted"
	default:
		return "TRUE"
	}
}

func (s *PostgresStore[T]) List(ctx context.Context, q Query) ([]Record[T], error) {
	sql := `SELECT ` + recordColumns + ` FROM ` + s.table + ` WHERE ` + stateClause(q.State)
	args := []any{}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		sql += " AND data::text ILIKE $" + strconv.Itoa(len(args))
	}
	sql += " ORDER BY created_at DESC, id"
	sql = appendPaging(sql, &args, q)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record[T]
	for rows.Next() {
		rec, err := scanRecord[T](rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func appendPaging(sql string, args *[]any, q Query) string {
	if q.Limit > 0 {
		*args = append(*args, q.Limit)
		sql += " LIMIT $" + strconv.Itoa(len(*args))
	}
	if q.Offset > 0 {
		*args = append(*args, q.Offset)
		sql += " OFFSET $" + strconv.Itoa(len(*args))
	}
	return sql
}

func (s *PostgresStore[T]) Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc[T]) (Record[T], error) {
	var out Record[T]
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		current, err := scanRecord[T](tx.QueryRow(ctx, `SELECT `+recordColumns+` FROM `+s.table+` WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		before := len(current.History)
		work := cloneRecord(current)
		changed, err := fn(&work)
		if err != nil {
			return err
		}
		if !changed {
			out = current
			return nil
		}
		if len(work.History) < before {
			return fmt.Errorf("lifecycle: history is append-only")
		}
		data, err := json.Marshal(work.Fields)
		if err != nil {
			return fmt.Errorf("lifecycle: encode data: %w", err)
		}
		appended, err := json.Marshal(work.History[before:])
		if err != nil {
			return fmt.Errorf("lifecycle: encode history: %w", err)
		}
		_, err = tx.Exec(ctx, `UPDATE `+s.table+` SET business_key = $2, data = $3, visible = $4, hidden_at = $5, hidden_by = $6,
			deleted = $7, deleted_at = $8, deleted_by = $9, change_history = change_history || $10::jsonb, updated_at = $11
			WHERE id = $1`,
			id, work.Fields.BusinessKey(), data, work.Visible, work.HiddenAt, work.HiddenBy,
			work.Deleted, work.DeletedAt, work.DeletedBy, appended, work.UpdatedAt)
		if err != nil {
			if shared.IsUniqueViolation(err) {
				return shared.ErrDuplicateKey
			}
			return err
		}
		work.ID = id
		out = work
		return nil
	})
	return out, err
}

// Increment is one conditional UPDATE. The row changes only when
// field + delta stays non-negative; the read, check and write never leave
// the database.
func (s *PostgresStore[T]) Increment(ctx context.Context, id uuid.UUID, field string, delta int64, rec ChangeRecord) (Record[T], error) {
	row := s.pool.QueryRow(ctx, `UPDATE `+s.table+` SET
			data = jsonb_set(data, ARRAY[$2::text], to_jsonb(COALESCE((data->>$2::text)::bigint, 0) + $3::bigint)),
			change_history = change_history || jsonb_build_array(jsonb_build_object(
				'field', $2::text,
				'oldValue', COALESCE((data->>$2::text)::bigint, 0),
				'newValue', COALESCE((data->>$2::text)::bigint, 0) + $3::bigint,
				'changedBy', $4::text,
				'changedAt', $5::text,
				'changeType', $6::text)),
			updated_at = $7
		WHERE id = $1 AND NOT deleted AND COALESCE((data->>$2::text)::bigint, 0) + $3::bigint >= 0
		RETURNING `+recordColumns,
		id, field, delta, rec.ChangedBy, rec.ChangedAt.UTC().Format(time.RFC3339Nano), string(rec.ChangeType), rec.ChangedAt)
	out, err := scanRecord[T](row)
	if !errors.Is(err, shared.ErrNotFound) {
		return out, err
	}

	var (
		deleted bool
		current int64
	)
	err = s.pool.QueryRow(ctx, `SELECT deleted, COALESCE((data->>$2::text)::bigint, 0) FROM `+s.table+` WHERE id = $1`, id, field).Scan(&deleted, &current)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Record[T]{}, shared.ErrNotFound
	case err != nil:
		return Record[T]{}, err
	case deleted:
		return Record[T]{}, shared.ErrNotFound
	default:
		return Record[T]{}, fmt.Errorf("%w: available %d, requested %d", shared.ErrInsufficientStock, current, -delta)
	}
}

const insertArchiveSQL = `INSERT INTO lifecycle_archive (id, entity, original_id, business_key, data, change_history, deleted_at, deleted_by, archived_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (entity, original_id) DO NOTHING`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *PostgresStore[T]) putArchive(ctx context.Context, q execer, a ArchiveRecord[T]) error {
	data, err := json.Marshal(a.Fields)
	if err != nil {
		return fmt.Errorf("lifecycle: encode archive data: %w", err)
	}
	history, err := json.Marshal(a.History)
	if err != nil {
		return fmt.Errorf("lifecycle: encode archive history: %w", err)
	}
	_, err = q.Exec(ctx, insertArchiveSQL, a.ID, s.entity, a.OriginalID, a.Fields.BusinessKey(), data, history, a.DeletedAt, a.DeletedBy, a.ArchivedAt)
	return err
}

func (s *PostgresStore[T]) PutArchive(ctx context.Context, a ArchiveRecord[T]) error {
	return s.putArchive(ctx, s.pool, a)
}

func (s *PostgresStore[T]) ArchiveAndRemove(ctx context.Context, id uuid.UUID, fn func(rec *Record[T]) (ArchiveRecord[T], error)) (ArchiveRecord[T], error) {
	var out ArchiveRecord[T]
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		current, err := scanRecord[T](tx.QueryRow(ctx, `SELECT `+recordColumns+` FROM `+s.table+` WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		archive, err := fn(&current)
		if err != nil {
			return err
		}
		if err := s.putArchive(ctx, tx, archive); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrArchivalFailure, err)
		}
		stored, err := scanArchive[T](tx.QueryRow(ctx, `SELECT `+archiveColumns+` FROM lifecycle_archive WHERE entity = $1 AND original_id = $2`, s.entity, id))
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrArchivalFailure, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM `+s.table+` WHERE id = $1`, id); err != nil {
			return err
		}
		out = stored
		return nil
	})
	return out, err
}

func (s *PostgresStore[T]) GetArchive(ctx context.Context, originalID uuid.UUID) (ArchiveRecord[T], error) {
	row := s.pool.QueryRow(ctx, `SELECT `+archiveColumns+` FROM lifecycle_archive WHERE entity = $1 AND original_id = $2`, s.entity, originalID)
	return scanArchive[T](row)
}

func (s *PostgresStore[T]) ListArchives(ctx context.Context, q Query) ([]ArchiveRecord[T], error) {
	sql := `SELECT ` + archiveColumns + ` FROM lifecycle_archive WHERE entity = $1`
	args := []any{s.entity}
	if q.Search != "" {
		args = append(args, "%"+strings.TrimSpace(q.Search)+"%")
		sql += " AND data::text ILIKE $" + strconv.Itoa(len(args))
	}
	sql += " ORDER BY archived_at DESC"
	sql = appendPaging(sql, &args, q)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ArchiveRecord[T]
	for rows.Next() {
		a, err := scanArchive[T](rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore[T]) RestoreArchive(ctx context.Context, originalID uuid.UUID, fn func(a ArchiveRecord[T]) (Record[T], error)) (Record[T], error) {
	var out Record[T]
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		a, err := scanArchive[T](tx.QueryRow(ctx, `SELECT `+archiveColumns+` FROM lifecycle_archive
			WHERE entity = $1 AND original_id = $2 FOR UPDATE`, s.entity, originalID))
		if err != nil {
			return err
		}
		rec, err := fn(a)
		if err != nil {
			return err
		}
		data, history, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, s.insertSQL(), rec.ID, rec.Fields.BusinessKey(), data, rec.Visible, rec.HiddenAt, rec.HiddenBy,
			rec.Deleted, rec.DeletedAt, rec.DeletedBy, history, rec.CreatedAt, rec.UpdatedAt)
		if err != nil {
			if shared.IsUniqueViolation(err) {
				return shared.ErrDuplicateKey
			}
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM lifecycle_archive WHERE entity = $1 AND original_id = $2`, s.entity, originalID); err != nil {
			return err
		}
		out = rec
		return nil
	})
	return out, err
}

func (s *PostgresStore[T]) DeleteArchive(ctx context.Context, originalID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM lifecycle_archive WHERE entity = $1 AND original_id = $2`, s.entity, originalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
