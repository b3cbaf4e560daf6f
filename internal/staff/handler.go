package staff

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	lifecyclehttp "github.com/shopmanager/shopmanager/internal/lifecycle/http"
	"github.com/shopmanager/shopmanager/internal/platform/httpx"
	"github.com/shopmanager/shopmanager/internal/rbac"
	"github.com/shopmanager/shopmanager/internal/shared"
)

// Handler exposes cashier, attendance and salary endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountCashiers registers /cashiers. Reads are open to any signed-in user.
func (h *Handler) MountCashiers(r chi.Router) {
	r.Get("/", h.listCashiers)
	r.Get("/{id}", h.getCashier)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(rbac.Managers...))
		r.Post("/", h.createCashier)
		r.Put("/{id}", h.updateCashier)
		r.Delete("/{id}", h.deleteCashier)
	})
}

// MountAttendance registers /attendance. Any signed-in user can mark.
func (h *Handler) MountAttendance(r chi.Router) {
	r.Post("/", h.markAttendance)
	r.Get("/", h.listAttendance)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(rbac.Managers...))
		r.Put("/{id}", h.updateAttendance)
		r.Delete("/{id}", h.deleteAttendance)
	})
}

// MountSalaries registers /salaries for managers.
func (h *Handler) MountSalaries(r chi.Router) {
	r.Use(h.rbac.RequireRole(rbac.Managers...))
	r.Get("/", h.listSalaries)
	r.Post("/", h.createSalary)
	r.Get("/summary", h.salarySummary)
	r.Get("/summary/{from}/{to}", h.salarySummary)
	r.Get("/employee/{employeeId}", h.employeeName)
	r.Get("/{id}", h.getSalary)
	r.Put("/{id}", h.updateSalary)
	r.Delete("/{id}", h.deleteSalary)
}

func (h *Handler) listCashiers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListCashiers(r.Context())
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if list == nil {
		list = []Cashier{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) getCashier(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	c, err := h.service.GetCashier(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) createCashier(w http.ResponseWriter, r *http.Request) {
	var in CashierInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	c, err := h.service.CreateCashier(r.Context(), in)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) updateCashier(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	var in CashierInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	c, err := h.service.UpdateCashier(r.Context(), id, in)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) deleteCashier(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if err := h.service.DeleteCashier(r.Context(), id); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Cashier deleted", nil)
}

func (h *Handler) markAttendance(w http.ResponseWriter, r *http.Request) {
	var in MarkInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	res, err := h.service.MarkAttendance(r.Context(), in)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if res.Event == EventIn {
		httpx.Message(w, http.StatusCreated, "In-time marked", res.Attendance)
		return
	}
	httpx.Message(w, http.StatusOK, "Out-time recorded with remarks", res.Attendance)
}

func (h *Handler) listAttendance(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListAttendance(r.Context())
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if list == nil {
		list = []Attendance{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) updateAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	var in AttendanceUpdate
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	a, err := h.service.UpdateAttendance(r.Context(), id, in)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Attendance updated", a)
}

func (h *Handler) deleteAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if err := h.service.DeleteAttendance(r.Context(), id); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Attendance record deleted", nil)
}

func (h *Handler) listSalaries(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListSalaries(r.Context())
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if list == nil {
		list = []Salary{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) createSalary(w http.ResponseWriter, r *http.Request) {
	var in SalaryInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	sal, err := h.service.CreateSalary(r.Context(), in)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sal)
}

func (h *Handler) getSalary(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	sal, err := h.service.GetSalary(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sal)
}

func (h *Handler) updateSalary(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	var in SalaryInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	sal, err := h.service.UpdateSalary(r.Context(), id, in)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sal)
}

func (h *Handler) deleteSalary(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if err := h.service.DeleteSalary(r.Context(), id); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Salary deleted", nil)
}

// salarySummary accepts the window as ?from=&to= or as path segments.
func (h *Handler) salarySummary(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	if from := chi.URLParam(r, "from"); from != "" {
		values = url.Values{"from": {from}, "to": {chi.URLParam(r, "to")}}
	}
	from, to, err := shared.ParseDateRange(values)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	sum, err := h.service.SalarySummary(r.Context(), from, to)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sum)
}

func (h *Handler) employeeName(w http.ResponseWriter, r *http.Request) {
	name, err := h.service.EmployeeName(r.Context(), chi.URLParam(r, "employeeId"))
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"employeeName": name})
}
