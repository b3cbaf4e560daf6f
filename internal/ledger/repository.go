package ledger

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

// Store persists the ledgers in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const incomeColumns = `id, date, income_type, amount::float8, description, created_at`

func (s *Store) InsertIncome(ctx context.Context, e ExtraIncome) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO extra_income (id, date, income_type, amount, description, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`, e.ID, e.Date, e.IncomeType, e.Amount, e.Description, e.CreatedAt)
	return err
}

func (s *Store) GetIncome(ctx context.Context, id uuid.UUID) (ExtraIncome, error) {
	e, err := scanIncome(s.pool.QueryRow(ctx, `SELECT `+incomeColumns+` FROM extra_income WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ExtraIncome{}, notFound("extra income", id)
	}
	return e, err
}

func (s *Store) ListIncome(ctx context.Context) ([]ExtraIncome, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+incomeColumns+` FROM extra_income ORDER BY date DESC`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanIncome)
}

func (s *Store) UpdateIncome(ctx context.Context, e ExtraIncome) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE extra_income SET date = $2, income_type = $3, amount = $4, description = $5 WHERE id = $1`,
		e.ID, e.Date, e.IncomeType, e.Amount, e.Description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound("extra income", e.ID)
	}
	return nil
}

func (s *Store) DeleteIncome(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, "extra_income", "extra income", id)
}

const maintenanceColumns = `id, no, date, time, service_type, price::float8, remarks`

func (s *Store) InsertMaintenance(ctx context.Context, m Maintenance) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO maintenance (id, no, date, time, service_type, price, remarks)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, m.ID, m.No, m.Date, m.Time, m.ServiceType, m.Price, m.Remarks)
	return shared.MapUniqueViolation(err, fmt.Sprintf("maintenance no %d", m.No))
}

func (s *Store) GetMaintenance(ctx context.Context, id uuid.UUID) (Maintenance, error) {
	m, err := scanMaintenance(s.pool.QueryRow(ctx, `SELECT `+maintenanceColumns+` FROM maintenance WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Maintenance{}, notFound("maintenance", id)
	}
	return m, err
}

func (s *Store) ListMaintenance(ctx context.Context) ([]Maintenance, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+maintenanceColumns+` FROM maintenance ORDER BY no`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanMaintenance)
}

func (s *Store) UpdateMaintenance(ctx context.Context, m Maintenance) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE maintenance SET service_type = $2, price = $3, remarks = $4 WHERE id = $1`,
		m.ID, m.ServiceType, m.Price, m.Remarks)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound("maintenance", m.ID)
	}
	return nil
}

func (s *Store) DeleteMaintenance(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, "maintenance", "maintenance", id)
}

// InsertEntry adds a name to a catalog; a taken name yields
// shared.ErrDuplicateKey.
func (s *Store) InsertEntry(ctx context.Context, c Catalog, e CatalogEntry) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO `+pgx.Identifier{string(c)}.Sanitize()+` (id, name, created_at) VALUES ($1, $2, $3)`,
		e.ID, e.Name, e.CreatedAt)
	return shared.MapUniqueViolation(err, string(c)+" "+e.Name)
}

func (s *Store) ListEntries(ctx context.Context, c Catalog) ([]CatalogEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, created_at FROM `+pgx.Identifier{string(c)}.Sanitize()+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (CatalogEntry, error) {
		var e CatalogEntry
		err := row.Scan(&e.ID, &e.Name, &e.CreatedAt)
		return e, err
	})
}

func (s *Store) DeleteEntry(ctx context.Context, c Catalog, id uuid.UUID) error {
	return s.delete(ctx, string(c), string(c), id)
}

const customerColumns = `id, nic, customer_name, mobile, address, total_amount::float8, payment_type, items, created_at, updated_at`

func (s *Store) InsertCustomer(ctx context.Context, c Customer) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO customers (id, nic, customer_name, mobile, address, total_amount, payment_type, items, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10)`,
		c.ID, c.NIC, c.CustomerName, c.Mobile, c.Address, c.TotalAmount, c.PaymentType, items, c.CreatedAt, c.UpdatedAt)
	return err
}

func (s *Store) GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error) {
	c, err := scanCustomer(s.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, notFound("customer", id)
	}
	return c, err
}

func (s *Store) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCustomer)
}

func (s *Store) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, "customers", "customer", id)
}

func (s *Store) delete(ctx context.Context, table, what string, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+pgx.Identifier{table}.Sanitize()+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound(what, id)
	}
	return nil
}

func scanIncome(row pgx.Row) (ExtraIncome, error) {
	var e ExtraIncome
	err := row.Scan(&e.ID, &e.Date, &e.IncomeType, &e.Amount, &e.Description, &e.CreatedAt)
	return e, err
}

func scanMaintenance(row pgx.Row) (Maintenance, error) {
	var m Maintenance
	err := row.Scan(&m.ID, &m.No, &m.Date, &m.Time, &m.ServiceType, &m.Price, &m.Remarks)
	return m, err
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var (
		c     Customer
		items []byte
	)
	if err := row.Scan(&c.ID, &c.NIC, &c.CustomerName, &c.Mobile, &c.Address, &c.TotalAmount, &c.PaymentType,
		&items, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Customer{}, err
	}
	if err := json.Unmarshal(items, &c.Items); err != nil {
		return Customer{}, fmt.Errorf("ledger: decode customer items: %w", err)
	}
	return c, nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func notFound(what string, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", what, id, shared.ErrNotFound)
}

var _ Repository = (*Store)(nil)
