package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopmanager/shopmanager/internal/shared"
)

// Store persists payments in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const paymentColumns = `id, invoice_number, kind, items, total_amount::float8, discount_applied::float8,
payment_method, cashier_id, cashier_name, customer_name, contact_number, address, date, created_at`

// Insert writes a payment; a reused invoice number yields shared.ErrDuplicateKey.
func (s *Store) Insert(ctx context.Context, p Payment) error {
	items, err := json.Marshal(p.Items)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO payments (id, invoice_number, kind, items, total_amount, discount_applied,
    payment_method, cashier_id, cashier_name, customer_name, contact_number, address, date, created_at)
VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.ID, p.InvoiceNumber, p.Kind, items, p.TotalAmount, p.DiscountApplied,
		p.PaymentMethod, p.CashierID, p.CashierName, p.CustomerName, p.ContactNumber, p.Address, p.Date, p.CreatedAt)
	if err != nil {
		return shared.MapUniqueViolation(err, "invoiceNumber "+p.InvoiceNumber)
	}
	return nil
}

// Get loads one payment.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Payment, error) {
	p, err := scanPayment(s.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, notFound(id)
	}
	return p, err
}

// List returns payments in the filter window, newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]Payment, error) {
	var (
		where []string
		args  []any
	)
	if !f.From.IsZero() {
		args = append(args, f.From)
		where = append(where, fmt.Sprintf("date >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		where = append(where, fmt.Sprintf("date < $%d", len(args)))
	}
	sql := `SELECT ` + paymentColumns + ` FROM payments`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY date DESC, invoice_number DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes a payment and returns the removed row.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) (Payment, error) {
	p, err := scanPayment(s.pool.QueryRow(ctx, `DELETE FROM payments WHERE id = $1 RETURNING `+paymentColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, notFound(id)
	}
	return p, err
}

func scanPayment(row pgx.Row) (Payment, error) {
	var (
		p     Payment
		items []byte
	)
	if err := row.Scan(&p.ID, &p.InvoiceNumber, &p.Kind, &items, &p.TotalAmount, &p.DiscountApplied,
		&p.PaymentMethod, &p.CashierID, &p.CashierName, &p.CustomerName, &p.ContactNumber, &p.Address,
		&p.Date, &p.CreatedAt); err != nil {
		return Payment{}, err
	}
	if err := json.Unmarshal(items, &p.Items); err != nil {
		return Payment{}, fmt.Errorf("payments: decode items: %w", err)
	}
	return p, nil
}
