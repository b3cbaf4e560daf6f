package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UploadStore persists upload logs in PostgreSQL.
type UploadStore struct {
	pool *pgxpool.Pool
}

// NewUploadStore constructs UploadStore.
func NewUploadStore(pool *pgxpool.Pool) *UploadStore {
	return &UploadStore{pool: pool}
}

// InsertUpload writes one upload log row.
func (s *UploadStore) InsertUpload(ctx context.Context, log UploadLog) error {
	items, err := json.Marshal(log.Products)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO product_uploads (id, filename, uploaded_by, uploaded_at, products)
VALUES ($1, $2, $3, $4, $5::jsonb)`,
		log.ID, log.Filename, log.UploadedBy, log.UploadedAt, items)
	if err != nil {
		return fmt.Errorf("products: insert upload: %w", err)
	}
	return nil
}

// ListUploads pages upload logs, newest first.
func (s *UploadStore) ListUploads(ctx context.Context, limit, offset int) ([]UploadLog, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, filename, uploaded_by, uploaded_at, products
FROM product_uploads
ORDER BY uploaded_at DESC
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UploadLog
	for rows.Next() {
		var (
			log   UploadLog
			items []byte
		)
		if err := rows.Scan(&log.ID, &log.Filename, &log.UploadedBy, &log.UploadedAt, &items); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &log.Products); err != nil {
			return nil, fmt.Errorf("products: decode upload %s: %w", log.ID, err)
		}
		out = append(out, log)
	}
	return out, rows.Err()
}

// ClickStore persists click snapshots in PostgreSQL.
type ClickStore struct {
	pool *pgxpool.Pool
}

// NewClickStore constructs ClickStore.
func NewClickStore(pool *pgxpool.Pool) *ClickStore {
	return &ClickStore{pool: pool}
}

const clickColumns = `id, product_id, item_code, item_name, category, buying_price::float8, selling_price::float8,
stock, supplier_name, clicked_at, clicked_by, status`

func scanClick(row pgx.Row) (ClickedProduct, error) {
	var c ClickedProduct
	err := row.Scan(&c.ID, &c.ProductID, &c.ItemCode, &c.ItemName, &c.Category, &c.BuyingPrice, &c.SellingPrice,
		&c.Stock, &c.SupplierName, &c.ClickedAt, &c.ClickedBy, &c.Status)
	return c, err
}

// InsertClick writes one snapshot.
func (s *ClickStore) InsertClick(ctx context.Context, c ClickedProduct) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO clicked_products (id, product_id, item_code, item_name, category, buying_price, selling_price,
    stock, supplier_name, clicked_at, clicked_by, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.ProductID, c.ItemCode, c.ItemName, c.Category, c.BuyingPrice, c.SellingPrice,
		c.Stock, c.SupplierName, c.ClickedAt, c.ClickedBy, c.Status)
	if err != nil {
		return fmt.Errorf("products: insert click: %w", err)
	}
	return nil
}

// GetClick loads one snapshot.
func (s *ClickStore) GetClick(ctx context.Context, id uuid.UUID) (ClickedProduct, error) {
	c, err := scanClick(s.pool.QueryRow(ctx, `SELECT `+clickColumns+` FROM clicked_products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ClickedProduct{}, clickNotFound(id)
	}
	return c, err
}

// ListClicks returns up to limit snapshots, newest first.
func (s *ClickStore) ListClicks(ctx context.Context, limit int) ([]ClickedProduct, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+clickColumns+` FROM clicked_products ORDER BY clicked_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ClickedProduct{}
	for rows.Next() {
		c, err := scanClick(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteClick removes one snapshot.
func (s *ClickStore) DeleteClick(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM clicked_products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return clickNotFound(id)
	}
	return nil
}
