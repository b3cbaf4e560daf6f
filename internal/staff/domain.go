package staff

import (
	"time"

	"github.com/google/uuid"
)

// Cashier is a shop employee. EmployeeID is the code staff use at the till
// and is what attendance and salary rows reference.
type Cashier struct {
	ID          uuid.UUID `json:"id"`
	EmployeeID  string    `json:"employeeId"`
	CashierName string    `json:"cashierName"`
	Phone       string    `json:"phone"`
	NIC         string    `json:"nic"`
	Email       string    `json:"email"`
	JobRole     string    `json:"jobRole"`
	Remarks     string    `json:"remarks"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CashierInput is the body of cashier create and replace.
type CashierInput struct {
	CashierName string `json:"cashierName" validate:"required"`
	Phone       string `json:"phone" validate:"required"`
	NIC         string `json:"nic" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	EmployeeID  string `json:"employeeId" validate:"required"`
	JobRole     string `json:"jobRole" validate:"required"`
	Remarks     string `json:"remarks"`
}

// Attendance is one cashier's record for one day.
type Attendance struct {
	ID          uuid.UUID `json:"id"`
	CashierID   string    `json:"cashierId"`
	CashierName string    `json:"cashierName"`
	JobRole     string    `json:"jobRole"`
	Month       string    `json:"month"`
	Date        string    `json:"date"`
	InTime      string    `json:"inTime"`
	OutTime     *string   `json:"outTime"`
	Remarks     string    `json:"remarks"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MarkInput is the body of POST /attendance. ClientTime overrides the
// server clock for the recorded time of day.
type MarkInput struct {
	CashierID  string `json:"cashierId" validate:"required"`
	Remarks    string `json:"remarks"`
	ClientTime string `json:"clientTime" validate:"omitempty,max=32"`
}

// AttendanceUpdate corrects a record. Nil fields are left unchanged.
type AttendanceUpdate struct {
	OutTime *string `json:"outTime" validate:"omitempty,max=32"`
	Remarks *string `json:"remarks"`
}

const (
	EventIn  = "in"
	EventOut = "out"
)

// MarkResult reports which half of the day a mark recorded.
type MarkResult struct {
	Event      string     `json:"event"`
	Attendance Attendance `json:"attendance"`
}

// Salary is an advance or payment made to an employee.
type Salary struct {
	ID           uuid.UUID `json:"id"`
	EmployeeID   string    `json:"employeeId"`
	EmployeeName string    `json:"employeeName"`
	Advance      float64   `json:"advance"`
	Remarks      string    `json:"remarks"`
	Date         time.Time `json:"date"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SalaryInput is the body of salary create and replace. EmployeeName is
// always taken from the cashier record.
type SalaryInput struct {
	EmployeeID string     `json:"employeeId" validate:"required"`
	Advance    float64    `json:"advance" validate:"gte=0"`
	Remarks    string     `json:"remarks"`
	Date       *time.Time `json:"date"`
}

// SalarySummary totals salary rows in a window, by UTC day.
type SalarySummary struct {
	TotalCost     float64            `json:"totalCost"`
	GroupedByDate map[string]float64 `json:"groupedByDate"`
}
