package staff

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmanager/shopmanager/internal/rbac"
	"github.com/shopmanager/shopmanager/internal/shared"
)

func newTestService(t *testing.T, now time.Time) (*Service, *Memory) {
	t.Helper()
	repo := NewMemory()
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return now }
	return svc, repo
}

func cashierInput(id, nic, email string) CashierInput {
	return CashierInput{
		CashierName: "Nimal " + id,
		Phone:       "0711111111",
		NIC:         nic,
		Email:       email,
		EmployeeID:  id,
		JobRole:     "Cashier",
	}
}

func TestCashierUniqueness(t *testing.T) {
	svc, _ := newTestService(t, time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	c, err := svc.CreateCashier(ctx, cashierInput("E01", "901234567V", " Nimal@Shop.lk "))
	require.NoError(t, err)
	assert.Equal(t, "nimal@shop.lk", c.Email)

	cases := map[string]CashierInput{
		"nic":        cashierInput("E02", "901234567V", "other@shop.lk"),
		"email":      cashierInput("E02", "991234567V", "nimal@shop.lk"),
		"employeeId": cashierInput("E01", "991234567V", "other@shop.lk"),
	}
	for field, in := range cases {
		t.Run(field, func(t *testing.T) {
			_, err := svc.CreateCashier(ctx, in)
			require.True(t, errors.Is(err, shared.ErrDuplicateKey), "%v", err)
			assert.Contains(t, err.Error(), field)
		})
	}

	_, err = svc.CreateCashier(ctx, CashierInput{CashierName: "x"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "employeeId")
	assert.Contains(t, verr.Fields, "email")

	in := cashierInput("E01", "901234567V", "nimal@shop.lk")
	in.JobRole = "Supervisor"
	updated, err := svc.UpdateCashier(ctx, c.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Supervisor", updated.JobRole)
	assert.Equal(t, c.CreatedAt, updated.CreatedAt)
}

func TestMarkAttendanceInOutThenReject(t *testing.T) {
	now := time.Date(2026, 3, 15, 8, 30, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)
	ctx := context.Background()
	_, err := svc.CreateCashier(ctx, cashierInput("E01", "901234567V", "nimal@shop.lk"))
	require.NoError(t, err)

	in, err := svc.MarkAttendance(ctx, MarkInput{CashierID: "E01"})
	require.NoError(t, err)
	assert.Equal(t, EventIn, in.Event)
	assert.Equal(t, "2026-03-15", in.Attendance.Date)
	assert.Equal(t, "08:30:00", in.Attendance.InTime)
	assert.Equal(t, "March", in.Attendance.Month)
	assert.Equal(t, "Nimal E01", in.Attendance.CashierName)
	assert.Nil(t, in.Attendance.OutTime)

	out, err := svc.MarkAttendance(ctx, MarkInput{CashierID: "E01", Remarks: "left early", ClientTime: "16:05:00"})
	require.NoError(t, err)
	assert.Equal(t, EventOut, out.Event)
	assert.Equal(t, in.Attendance.ID, out.Attendance.ID)
	require.NotNil(t, out.Attendance.OutTime)
	assert.Equal(t, "16:05:00", *out.Attendance.OutTime)
	assert.Equal(t, "left early", out.Attendance.Remarks)

	_, err = svc.MarkAttendance(ctx, MarkInput{CashierID: "E01"})
	assert.True(t, errors.Is(err, shared.ErrValidation))

	list, err := svc.ListAttendance(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.MarkAttendance(ctx, MarkInput{CashierID: "nobody"})
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestMarkAttendanceNextDayOpensNewRecord(t *testing.T) {
	day := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, day)
	ctx := context.Background()
	_, err := svc.CreateCashier(ctx, cashierInput("E01", "901234567V", "nimal@shop.lk"))
	require.NoError(t, err)

	_, err = svc.MarkAttendance(ctx, MarkInput{CashierID: "E01"})
	require.NoError(t, err)
	svc.now = func() time.Time { return day.AddDate(0, 0, 1) }
	res, err := svc.MarkAttendance(ctx, MarkInput{CashierID: "E01"})
	require.NoError(t, err)
	assert.Equal(t, EventIn, res.Event)
	assert.Equal(t, "2026-03-16", res.Attendance.Date)
}

func TestSalarySummaryGroupsByDay(t *testing.T) {
	svc, _ := newTestService(t, time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	_, err := svc.CreateCashier(ctx, cashierInput("E01", "901234567V", "nimal@shop.lk"))
	require.NoError(t, err)

	at := func(day, hour int) *time.Time {
		t := time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC)
		return &t
	}
	for _, in := range []SalaryInput{
		{EmployeeID: "E01", Advance: 1000, Date: at(1, 10)},
		{EmployeeID: "E01", Advance: 500, Date: at(1, 18)},
		{EmployeeID: "E01", Advance: 250, Date: at(3, 9)},
		{EmployeeID: "E01", Advance: 9999, Date: at(10, 9)},
	} {
		sal, err := svc.CreateSalary(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "Nimal E01", sal.EmployeeName)
	}

	sum, err := svc.SalarySummary(ctx, *at(1, 0), *at(4, 0))
	require.NoError(t, err)
	assert.Equal(t, 1750.0, sum.TotalCost)
	assert.Equal(t, map[string]float64{"2026-03-01": 1500, "2026-03-03": 250}, sum.GroupedByDate)

	_, err = svc.SalarySummary(ctx, *at(4, 0), *at(1, 0))
	assert.True(t, errors.Is(err, shared.ErrValidation))

	_, err = svc.CreateSalary(ctx, SalaryInput{EmployeeID: "E99", Advance: 1})
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestUpdateSalaryFollowsEmployee(t *testing.T) {
	svc, _ := newTestService(t, time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	_, err := svc.CreateCashier(ctx, cashierInput("E01", "901234567V", "nimal@shop.lk"))
	require.NoError(t, err)
	_, err = svc.CreateCashier(ctx, cashierInput("E02", "911234567V", "kamal@shop.lk"))
	require.NoError(t, err)

	sal, err := svc.CreateSalary(ctx, SalaryInput{EmployeeID: "E01", Advance: 100})
	require.NoError(t, err)
	updated, err := svc.UpdateSalary(ctx, sal.ID, SalaryInput{EmployeeID: "E02", Advance: 150, Remarks: "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "Nimal E02", updated.EmployeeName)
	assert.Equal(t, 150.0, updated.Advance)
	assert.Equal(t, sal.Date, updated.Date)
}

func withRole(role string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.ContextWithPrincipal(r.Context(), shared.Principal{UserID: "u1", Username: "tester", Role: role})
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newStaffRouter(svc *Service) chi.Router {
	h := NewHandler(nil, svc, rbac.Middleware{})
	r := chi.NewRouter()
	r.Route("/cashiers", h.MountCashiers)
	r.Route("/attendance", h.MountAttendance)
	r.Route("/salaries", h.MountSalaries)
	return r
}

func TestStaffRoutes(t *testing.T) {
	svc, _ := newTestService(t, time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC))
	router := newStaffRouter(svc)
	do := func(role, method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		withRole(role, router).ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec
	}

	body := `{"cashierName":"Nimal","phone":"071","nic":"901234567V","email":"nimal@shop.lk","employeeId":"E01","jobRole":"Cashier"}`
	res := do(rbac.RoleCashier, http.MethodPost, "/cashiers", body)
	assert.Equal(t, http.StatusForbidden, res.Code)
	res = do(rbac.RoleAdmin, http.MethodPost, "/cashiers", body)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	res = do(rbac.RoleAdmin, http.MethodPost, "/cashiers", body)
	assert.Equal(t, http.StatusConflict, res.Code)

	res = do(rbac.RoleCashier, http.MethodPost, "/attendance", `{"cashierId":"E01"}`)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), "In-time marked")
	res = do(rbac.RoleCashier, http.MethodPost, "/attendance", `{"cashierId":"E01","remarks":"ok"}`)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "Out-time recorded")
	res = do(rbac.RoleCashier, http.MethodPost, "/attendance", `{"cashierId":"E01"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = do(rbac.RoleAdmin, http.MethodPost, "/salaries", `{"employeeId":"E01","advance":1200,"date":"2026-03-02T10:00:00Z"}`)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	res = do(rbac.RoleCashier, http.MethodGet, "/salaries", "")
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = do(rbac.RoleAdmin, http.MethodGet, "/salaries/summary?from=2026-03-01&to=2026-03-02", "")
	require.Equal(t, http.StatusOK, res.Code)
	var sum SalarySummary
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &sum))
	assert.Equal(t, 1200.0, sum.TotalCost)

	res = do(rbac.RoleAdmin, http.MethodGet, "/salaries/summary/2026-03-03/2026-03-31", "")
	require.Equal(t, http.StatusOK, res.Code)
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &sum))
	assert.Zero(t, sum.TotalCost)

	res = do(rbac.RoleAdmin, http.MethodGet, "/salaries/summary?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = do(rbac.RoleAdmin, http.MethodGet, "/salaries/employee/E01", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"employeeName":"Nimal"}`, res.Body.String())
}
