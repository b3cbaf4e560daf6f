package suppliers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopmanager/shopmanager/internal/shared"
)

// GRNStore persists GRNs in PostgreSQL.
type GRNStore struct {
	pool *pgxpool.Pool
}

// NewGRNStore constructs GRNStore.
func NewGRNStore(pool *pgxpool.Pool) *GRNStore {
	return &GRNStore{pool: pool}
}

const grnColumns = `id, grn_number, supplier_id, date, items, total_amount::float8, created_at`

// InsertGRN writes a GRN; a taken grn_number yields shared.ErrDuplicateKey.
func (s *GRNStore) InsertGRN(ctx context.Context, grn GRN) error {
	items, err := json.Marshal(grn.Items)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO grns (id, grn_number, supplier_id, date, items, total_amount, created_at)
VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)`,
		grn.ID, grn.GRNNumber, grn.SupplierID, grn.Date, items, grn.TotalAmount, grn.CreatedAt)
	if err != nil {
		return shared.MapUniqueViolation(err, "grnNumber "+grn.GRNNumber)
	}
	return nil
}

// ListGRNs returns a supplier's GRNs, newest first.
func (s *GRNStore) ListGRNs(ctx context.Context, supplierID uuid.UUID) ([]GRN, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+grnColumns+` FROM grns WHERE supplier_id = $1 ORDER BY date DESC`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GRN
	for rows.Next() {
		grn, err := scanGRN(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, grn)
	}
	return out, rows.Err()
}

// GetGRN loads one GRN scoped to its supplier.
func (s *GRNStore) GetGRN(ctx context.Context, supplierID, id uuid.UUID) (GRN, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+grnColumns+` FROM grns WHERE supplier_id = $1 AND id = $2`, supplierID, id)
	grn, err := scanGRN(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return GRN{}, fmt.Errorf("grn %s: %w", id, shared.ErrNotFound)
	}
	return grn, err
}

// DeleteGRN removes one GRN scoped to its supplier.
func (s *GRNStore) DeleteGRN(ctx context.Context, supplierID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM grns WHERE supplier_id = $1 AND id = $2`, supplierID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("grn %s: %w", id, shared.ErrNotFound)
	}
	return nil
}

func scanGRN(row pgx.Row) (GRN, error) {
	var (
		grn   GRN
		items []byte
	)
	if err := row.Scan(&grn.ID, &grn.GRNNumber, &grn.SupplierID, &grn.Date, &items, &grn.TotalAmount, &grn.CreatedAt); err != nil {
		return GRN{}, err
	}
	if err := json.Unmarshal(items, &grn.Items); err != nil {
		return GRN{}, fmt.Errorf("suppliers: decode grn items: %w", err)
	}
	return grn, nil
}
