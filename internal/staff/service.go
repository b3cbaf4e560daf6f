package staff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopmanager/shopmanager/internal/platform/validate"
	"github.com/shopmanager/shopmanager/internal/shared"
)

// CashierRepository stores cashier records.
type CashierRepository interface {
	InsertCashier(ctx context.Context, c Cashier) error
	GetCashier(ctx context.Context, id uuid.UUID) (Cashier, error)
	CashierByEmployeeID(ctx context.Context, employeeID string) (Cashier, error)
	ListCashiers(ctx context.Context) ([]Cashier, error)
	UpdateCashier(ctx context.Context, c Cashier) error
	DeleteCashier(ctx context.Context, id uuid.UUID) error
}

// AttendanceRepository stores daily attendance rows.
type AttendanceRepository interface {
	InsertAttendance(ctx context.Context, a Attendance) error
	MarkOut(ctx context.Context, cashierID, date, outTime, remarks string, at time.Time) (Attendance, error)
	ListAttendance(ctx context.Context) ([]Attendance, error)
	UpdateAttendance(ctx context.Context, id uuid.UUID, in AttendanceUpdate, at time.Time) (Attendance, error)
	DeleteAttendance(ctx context.Context, id uuid.UUID) error
}

// SalaryRepository stores salary rows.
type SalaryRepository interface {
	InsertSalary(ctx context.Context, s Salary) error
	GetSalary(ctx context.Context, id uuid.UUID) (Salary, error)
	ListSalaries(ctx context.Context, from, to time.Time) ([]Salary, error)
	UpdateSalary(ctx context.Context, s Salary) error
	DeleteSalary(ctx context.Context, id uuid.UUID) error
}

// Repository is everything the staff service persists.
type Repository interface {
	CashierRepository
	AttendanceRepository
	SalaryRepository
}

// Service implements cashier, attendance and salary rules.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger.With(slog.String("module", "staff")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateCashier registers an employee. NIC, email and employee id must be
// unused.
func (s *Service) CreateCashier(ctx context.Context, in CashierInput) (Cashier, error) {
	in = in.normalized()
	if err := validate.Struct(in); err != nil {
		return Cashier{}, err
	}
	now := s.now()
	c := in.apply(Cashier{ID: uuid.New(), CreatedAt: now})
	c.UpdatedAt = now
	if err := s.repo.InsertCashier(ctx, c); err != nil {
		return Cashier{}, err
	}
	s.logger.Info("cashier created", slog.String("employee_id", c.EmployeeID))
	return c, nil
}

func (s *Service) ListCashiers(ctx context.Context) ([]Cashier, error) {
	return s.repo.ListCashiers(ctx)
}

func (s *Service) GetCashier(ctx context.Context, id uuid.UUID) (Cashier, error) {
	return s.repo.GetCashier(ctx, id)
}

// UpdateCashier replaces every editable field.
func (s *Service) UpdateCashier(ctx context.Context, id uuid.UUID, in CashierInput) (Cashier, error) {
	in = in.normalized()
	if err := validate.Struct(in); err != nil {
		return Cashier{}, err
	}
	cur, err := s.repo.GetCashier(ctx, id)
	if err != nil {
		return Cashier{}, err
	}
	c := in.apply(cur)
	c.UpdatedAt = s.now()
	if err := s.repo.UpdateCashier(ctx, c); err != nil {
		return Cashier{}, err
	}
	return c, nil
}

func (s *Service) DeleteCashier(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteCashier(ctx, id)
}

func (in CashierInput) normalized() CashierInput {
	in.CashierName = strings.TrimSpace(in.CashierName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.NIC = strings.TrimSpace(in.NIC)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.EmployeeID = strings.TrimSpace(in.EmployeeID)
	in.JobRole = strings.TrimSpace(in.JobRole)
	return in
}

func (in CashierInput) apply(c Cashier) Cashier {
	c.CashierName = in.CashierName
	c.Phone = in.Phone
	c.NIC = in.NIC
	c.Email = in.Email
	c.EmployeeID = in.EmployeeID
	c.JobRole = in.JobRole
	c.Remarks = in.Remarks
	return c
}

// MarkAttendance records the first mark of the day as in-time and the second
// as out-time. Any further mark that day is rejected.
func (s *Service) MarkAttendance(ctx context.Context, in MarkInput) (MarkResult, error) {
	in.CashierID = strings.TrimSpace(in.CashierID)
	if err := validate.Struct(in); err != nil {
		return MarkResult{}, err
	}
	now := s.now()
	date := now.Format(time.DateOnly)
	at := strings.TrimSpace(in.ClientTime)
	if at == "" {
		at = now.Format(time.TimeOnly)
	}

	rec, err := s.markOut(ctx, in, date, at, now)
	if err == nil {
		return MarkResult{Event: EventOut, Attendance: rec}, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return MarkResult{}, err
	}

	c, err := s.repo.CashierByEmployeeID(ctx, in.CashierID)
	if err != nil {
		return MarkResult{}, err
	}
	rec = Attendance{
		ID:          uuid.New(),
		CashierID:   c.EmployeeID,
		CashierName: c.CashierName,
		JobRole:     c.JobRole,
		Month:       now.Month().String(),
		Date:        date,
		InTime:      at,
		Remarks:     in.Remarks,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.repo.InsertAttendance(ctx, rec)
	if err == nil {
		return MarkResult{Event: EventIn, Attendance: rec}, nil
	}
	if !errors.Is(err, shared.ErrDuplicateKey) {
		return MarkResult{}, err
	}
	// A row for today exists: either a concurrent first mark won, or the day
	// is already closed.
	rec, err = s.markOut(ctx, in, date, at, now)
	if errors.Is(err, shared.ErrNotFound) {
		return MarkResult{}, shared.NewValidationError("cashierId", "attendance already marked for today")
	}
	if err != nil {
		return MarkResult{}, err
	}
	return MarkResult{Event: EventOut, Attendance: rec}, nil
}

func (s *Service) markOut(ctx context.Context, in MarkInput, date, at string, now time.Time) (Attendance, error) {
	return s.repo.MarkOut(ctx, in.CashierID, date, at, in.Remarks, now)
}

func (s *Service) ListAttendance(ctx context.Context) ([]Attendance, error) {
	return s.repo.ListAttendance(ctx)
}

func (s *Service) UpdateAttendance(ctx context.Context, id uuid.UUID, in AttendanceUpdate) (Attendance, error) {
	if err := validate.Struct(in); err != nil {
		return Attendance{}, err
	}
	return s.repo.UpdateAttendance(ctx, id, in, s.now())
}

func (s *Service) DeleteAttendance(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteAttendance(ctx, id)
}

// CreateSalary records a salary row for an existing employee.
func (s *Service) CreateSalary(ctx context.Context, in SalaryInput) (Salary, error) {
	in.EmployeeID = strings.TrimSpace(in.EmployeeID)
	if err := validate.Struct(in); err != nil {
		return Salary{}, err
	}
	c, err := s.repo.CashierByEmployeeID(ctx, in.EmployeeID)
	if err != nil {
		return Salary{}, err
	}
	now := s.now()
	sal := Salary{
		ID:           uuid.New(),
		EmployeeID:   c.EmployeeID,
		EmployeeName: c.CashierName,
		Advance:      in.Advance,
		Remarks:      in.Remarks,
		Date:         now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Date != nil {
		sal.Date = in.Date.UTC()
	}
	if err := s.repo.InsertSalary(ctx, sal); err != nil {
		return Salary{}, err
	}
	return sal, nil
}

// ListSalaries returns every salary row, newest first.
func (s *Service) ListSalaries(ctx context.Context) ([]Salary, error) {
	return s.repo.ListSalaries(ctx, time.Time{}, time.Time{})
}

func (s *Service) GetSalary(ctx context.Context, id uuid.UUID) (Salary, error) {
	return s.repo.GetSalary(ctx, id)
}

// UpdateSalary replaces a salary row. The employee name follows the
// employee id; a nil date keeps the stored one.
func (s *Service) UpdateSalary(ctx context.Context, id uuid.UUID, in SalaryInput) (Salary, error) {
	in.EmployeeID = strings.TrimSpace(in.EmployeeID)
	if err := validate.Struct(in); err != nil {
		return Salary{}, err
	}
	sal, err := s.repo.GetSalary(ctx, id)
	if err != nil {
		return Salary{}, err
	}
	if in.EmployeeID != sal.EmployeeID {
		c, err := s.repo.CashierByEmployeeID(ctx, in.EmployeeID)
		if err != nil {
			return Salary{}, err
		}
		sal.EmployeeID, sal.EmployeeName = c.EmployeeID, c.CashierName
	}
	sal.Advance = in.Advance
	sal.Remarks = in.Remarks
	if in.Date != nil {
		sal.Date = in.Date.UTC()
	}
	sal.UpdatedAt = s.now()
	if err := s.repo.UpdateSalary(ctx, sal); err != nil {
		return Salary{}, err
	}
	return sal, nil
}

func (s *Service) DeleteSalary(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteSalary(ctx, id)
}

// SalarySummary totals salaries dated within [from, to).
func (s *Service) SalarySummary(ctx context.Context, from, to time.Time) (SalarySummary, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return SalarySummary{}, shared.NewValidationError("to", "must not be before from")
	}
	list, err := s.repo.ListSalaries(ctx, from, to)
	if err != nil {
		return SalarySummary{}, err
	}
	out := SalarySummary{GroupedByDate: map[string]float64{}}
	for _, sal := range list {
		out.TotalCost += sal.Advance
		out.GroupedByDate[sal.Date.UTC().Format(time.DateOnly)] += sal.Advance
	}
	return out, nil
}

// EmployeeName resolves an employee id for form auto-fill.
func (s *Service) EmployeeName(ctx context.Context, employeeID string) (string, error) {
	c, err := s.repo.CashierByEmployeeID(ctx, strings.TrimSpace(employeeID))
	if err != nil {
		return "", fmt.Errorf("staff: %w", err)
	}
	return c.CashierName, nil
}
