package staff

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shopmanager/shopmanager/internal/shared"
)

// Memory is a process-local Repository for tests and test mode.
type Memory struct {
	mu         sync.Mutex
	cashiers   map[uuid.UUID]Cashier
	attendance map[uuid.UUID]Attendance
	salaries   map[uuid.UUID]Salary
}

// NewMemory constructs an empty Memory repository.
func NewMemory() *Memory {
	return &Memory{
		cashiers:   map[uuid.UUID]Cashier{},
		attendance: map[uuid.UUID]Attendance{},
		salaries:   map[uuid.UUID]Salary{},
	}
}

func (m *Memory) InsertCashier(_ context.Context, c Cashier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.cashierTaken(c); err != nil {
		return err
	}
	m.cashiers[c.ID] = c
	return nil
}

func (m *Memory) GetCashier(_ context.Context, id uuid.UUID) (Cashier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cashiers[id]
	if !ok {
		return Cashier{}, fmt.Errorf("cashier %s: %w", id, shared.ErrNotFound)
	}
	return c, nil
}

func (m *Memory) CashierByEmployeeID(_ context.Context, employeeID string) (Cashier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cashiers {
		if c.EmployeeID == employeeID {
			return c, nil
		}
	}
	return Cashier{}, fmt.Errorf("employee %s: %w", employeeID, shared.ErrNotFound)
}

func (m *Memory) ListCashiers(context.Context) ([]Cashier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Cashier, 0, len(m.cashiers))
	for _, c := range m.cashiers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdateCashier(_ context.Context, c Cashier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cashiers[c.ID]; !ok {
		return fmt.Errorf("cashier %s: %w", c.ID, shared.ErrNotFound)
	}
	if err := m.cashierTaken(c); err != nil {
		return err
	}
	m.cashiers[c.ID] = c
	return nil
}

func (m *Memory) DeleteCashier(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cashiers[id]; !ok {
		return fmt.Errorf("cashier %s: %w", id, shared.ErrNotFound)
	}
	delete(m.cashiers, id)
	return nil
}

func (m *Memory) cashierTaken(c Cashier) error {
	for id, other := range m.cashiers {
		if id == c.ID {
			continue
		}
		switch {
		case other.NIC == c.NIC:
			return fmt.Errorf("%w: nic %s", shared.ErrDuplicateKey, c.NIC)
		case other.Email == c.Email:
			return fmt.Errorf("%w: email %s", shared.ErrDuplicateKey, c.Email)
		case other.EmployeeID == c.EmployeeID:
			return fmt.Errorf("%w: employeeId %s", shared.ErrDuplicateKey, c.EmployeeID)
		}
	}
	return nil
}

func (m *Memory) InsertAttendance(_ context.Context, a Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.attendance {
		if other.CashierID == a.CashierID && other.Date == a.Date {
			return fmt.Errorf("%w: attendance %s %s", shared.ErrDuplicateKey, a.CashierID, a.Date)
		}
	}
	m.attendance[a.ID] = a
	return nil
}

func (m *Memory) MarkOut(_ context.Context, cashierID, date, outTime, remarks string, at time.Time) (Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.attendance {
		if a.CashierID != cashierID || a.Date != date || a.OutTime != nil {
			continue
		}
		a.OutTime = &outTime
		if remarks != "" {
			a.Remarks = remarks
		}
		a.UpdatedAt = at
		m.attendance[id] = a
		return a, nil
	}
	return Attendance{}, fmt.Errorf("open attendance for %s: %w", cashierID, shared.ErrNotFound)
}

func (m *Memory) ListAttendance(context.Context) ([]Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Attendance, 0, len(m.attendance))
	for _, a := range m.attendance {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].InTime > out[j].InTime
	})
	return out, nil
}

func (m *Memory) UpdateAttendance(_ context.Context, id uuid.UUID, in AttendanceUpdate, at time.Time) (Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attendance[id]
	if !ok {
		return Attendance{}, fmt.Errorf("attendance %s: %w", id, shared.ErrNotFound)
	}
	if in.OutTime != nil {
		out := *in.OutTime
		a.OutTime = &out
	}
	if in.Remarks != nil {
		a.Remarks = *in.Remarks
	}
	a.UpdatedAt = at
	m.attendance[id] = a
	return a, nil
}

func (m *Memory) DeleteAttendance(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attendance[id]; !ok {
		return fmt.Errorf("attendance %s: %w", id, shared.ErrNotFound)
	}
	delete(m.attendance, id)
	return nil
}

func (m *Memory) InsertSalary(_ context.Context, s Salary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.salaries[s.ID] = s
	return nil
}

func (m *Memory) GetSalary(_ context.Context, id uuid.UUID) (Salary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.salaries[id]
	if !ok {
		return Salary{}, fmt.Errorf("salary %s: %w", id, shared.ErrNotFound)
	}
	return s, nil
}

func (m *Memory) ListSalaries(_ context.Context, from, to time.Time) ([]Salary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Salary
	for _, s := range m.salaries {
		if !from.IsZero() && s.Date.Before(from) {
			continue
		}
		if !to.IsZero() && !s.Date.Before(to) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *Memory) UpdateSalary(_ context.Context, s Salary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.salaries[s.ID]; !ok {
		return fmt.Errorf("salary %s: %w", s.ID, shared.ErrNotFound)
	}
	m.salaries[s.ID] = s
	return nil
}

func (m *Memory) DeleteSalary(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.salaries[id]; !ok {
		return fmt.Errorf("salary %s: %w", id, shared.ErrNotFound)
	}
	delete(m.salaries, id)
	return nil
}

var _ Repository = (*Memory)(nil)
