package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopmanager/shopmanager/internal/shared"
)

// Store persists cashiers, attendance and salaries in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const cashierColumns = `id, employee_id, cashier_name, phone, nic, email, job_role, remarks, created_at, updated_at`

func (s *Store) InsertCashier(ctx context.Context, c Cashier) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO cashiers (id, employee_id, cashier_name, phone, nic, email, job_role, remarks, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.EmployeeID, c.CashierName, c.Phone, c.NIC, c.Email, c.JobRole, c.Remarks, c.CreatedAt, c.UpdatedAt)
	return cashierConflict(err, c)
}

func (s *Store) GetCashier(ctx context.Context, id uuid.UUID) (Cashier, error) {
	c, err := scanCashier(s.pool.QueryRow(ctx, `SELECT `+cashierColumns+` FROM cashiers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Cashier{}, fmt.Errorf("cashier %s: %w", id, shared.ErrNotFound)
	}
	return c, err
}

func (s *Store) CashierByEmployeeID(ctx context.Context, employeeID string) (Cashier, error) {
	c, err := scanCashier(s.pool.QueryRow(ctx, `SELECT `+cashierColumns+` FROM cashiers WHERE employee_id = $1`, employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Cashier{}, fmt.Errorf("employee %s: %w", employeeID, shared.ErrNotFound)
	}
	return c, err
}

func (s *Store) ListCashiers(ctx context.Context) ([]Cashier, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+cashierColumns+` FROM cashiers ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCashier)
}

func (s *Store) UpdateCashier(ctx context.Context, c Cashier) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE cashiers SET employee_id = $2, cashier_name = $3, phone = $4, nic = $5, email = $6,
    job_role = $7, remarks = $8, updated_at = $9
WHERE id = $1`,
		c.ID, c.EmployeeID, c.CashierName, c.Phone, c.NIC, c.Email, c.JobRole, c.Remarks, c.UpdatedAt)
	if err != nil {
		return cashierConflict(err, c)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cashier %s: %w", c.ID, shared.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteCashier(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, "cashiers", "cashier", id)
}

// cashierConflict names the unique column a cashier write collided on.
func cashierConflict(err error, c Cashier) error {
	var pgErr *pgconn.PgError
	if err == nil || !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "nic"):
		return fmt.Errorf("%w: nic %s", shared.ErrDuplicateKey, c.NIC)
	case strings.Contains(pgErr.ConstraintName, "email"):
		return fmt.Errorf("%w: email %s", shared.ErrDuplicateKey, c.Email)
	default:
		return fmt.Errorf("%w: employeeId %s", shared.ErrDuplicateKey, c.EmployeeID)
	}
}

const attendanceColumns = `id, cashier_id, cashier_name, job_role, month, date::text, in_time, out_time, remarks, created_at, updated_at`

// InsertAttendance writes the first mark of a day. A second row for the same
// cashier and day yields shared.ErrDuplicateKey.
func (s *Store) InsertAttendance(ctx context.Context, a Attendance) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO attendance (id, cashier_id, cashier_name, job_role, month, date, in_time, out_time, remarks, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8, $9, $10, $11)`,
		a.ID, a.CashierID, a.CashierName, a.JobRole, a.Month, a.Date, a.InTime, a.OutTime, a.Remarks, a.CreatedAt, a.UpdatedAt)
	return shared.MapUniqueViolation(err, "attendance "+a.CashierID+" "+a.Date)
}

// MarkOut closes the open record of cashierID on date. It returns
// shared.ErrNotFound when there is no row or the row is already closed.
func (s *Store) MarkOut(ctx context.Context, cashierID, date, outTime, remarks string, at time.Time) (Attendance, error) {
	a, err := scanAttendance(s.pool.QueryRow(ctx, `
UPDATE attendance
SET out_time = $3, remarks = CASE WHEN $4 = '' THEN remarks ELSE $4 END, updated_at = $5
WHERE cashier_id = $1 AND date = $2::date AND out_time IS NULL
RETURNING `+attendanceColumns, cashierID, date, outTime, remarks, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return Attendance{}, fmt.Errorf("open attendance for %s: %w", cashierID, shared.ErrNotFound)
	}
	return a, err
}

func (s *Store) ListAttendance(ctx context.Context) ([]Attendance, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+attendanceColumns+` FROM attendance ORDER BY date DESC, in_time DESC`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAttendance)
}

func (s *Store) UpdateAttendance(ctx context.Context, id uuid.UUID, in AttendanceUpdate, at time.Time) (Attendance, error) {
	a, err := scanAttendance(s.pool.QueryRow(ctx, `
UPDATE attendance
SET out_time = COALESCE($2, out_time), remarks = COALESCE($3, remarks), updated_at = $4
WHERE id = $1
RETURNING `+attendanceColumns, id, in.OutTime, in.Remarks, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return Attendance{}, fmt.Errorf("attendance %s: %w", id, shared.ErrNotFound)
	}
	return a, err
}

func (s *Store) DeleteAttendance(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, "attendance", "attendance", id)
}

const salaryColumns = `id, employee_id, employee_name, advance::float8, remarks, date, created_at, updated_at`

func (s *Store) InsertSalary(ctx context.Context, sal Salary) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO salaries (id, employee_id, employee_name, advance, remarks, date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sal.ID, sal.EmployeeID, sal.EmployeeName, sal.Advance, sal.Remarks, sal.Date, sal.CreatedAt, sal.UpdatedAt)
	return err
}

func (s *Store) GetSalary(ctx context.Context, id uuid.UUID) (Salary, error) {
	sal, err := scanSalary(s.pool.QueryRow(ctx, `SELECT `+salaryColumns+` FROM salaries WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Salary{}, fmt.Errorf("salary %s: %w", id, shared.ErrNotFound)
	}
	return sal, err
}

// ListSalaries returns salaries with from <= date < to, newest first. Zero
// bounds are open.
func (s *Store) ListSalaries(ctx context.Context, from, to time.Time) ([]Salary, error) {
	var (
		where []string
		args  []any
	)
	if !from.IsZero() {
		args = append(args, from)
		where = append(where, fmt.Sprintf("date >= $%d", len(args)))
	}
	if !to.IsZero() {
		args = append(args, to)
		where = append(where, fmt.Sprintf("date < $%d", len(args)))
	}
	sql := `SELECT ` + salaryColumns + ` FROM salaries`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	rows, err := s.pool.Query(ctx, sql+` ORDER BY date DESC`, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSalary)
}

func (s *Store) UpdateSalary(ctx context.Context, sal Salary) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE salaries SET employee_id = $2, employee_name = $3, advance = $4, remarks = $5, date = $6, updated_at = $7
WHERE id = $1`,
		sal.ID, sal.EmployeeID, sal.EmployeeName, sal.Advance, sal.Remarks, sal.Date, sal.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("salary %s: %w", sal.ID, shared.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteSalary(ctx context.Context, id uuid.UUID) error {
	return s.delete(ctx, "salaries", "salary", id)
}

func (s *Store) delete(ctx context.Context, table, what string, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+pgx.Identifier{table}.Sanitize()+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", what, id, shared.ErrNotFound)
	}
	return nil
}

func scanCashier(row pgx.Row) (Cashier, error) {
	var c Cashier
	err := row.Scan(&c.ID, &c.EmployeeID, &c.CashierName, &c.Phone, &c.NIC, &c.Email, &c.JobRole, &c.Remarks,
		&c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanAttendance(row pgx.Row) (Attendance, error) {
	var a Attendance
	err := row.Scan(&a.ID, &a.CashierID, &a.CashierName, &a.JobRole, &a.Month, &a.Date, &a.InTime, &a.OutTime,
		&a.Remarks, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func scanSalary(row pgx.Row) (Salary, error) {
	var sal Salary
	err := row.Scan(&sal.ID, &sal.EmployeeID, &sal.EmployeeName, &sal.Advance, &sal.Remarks, &sal.Date,
		&sal.CreatedAt, &sal.UpdatedAt)
	return sal, err
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

var _ Repository = (*Store)(nil)
