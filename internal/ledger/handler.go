package ledger

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	lifecyclehttp "github.com/shopmanager/shopmanager/internal/lifecycle/http"
	"github.com/shopmanager/shopmanager/internal/platform/httpx"
)

// Handler exposes the ledger endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountExtraIncome registers /extra-income.
func (h *Handler) MountExtraIncome(r chi.Router) {
	r.Get("/", h.listIncome)
	r.Post("/", h.createIncome)
	r.Put("/{id}", h.updateIncome)
	r.Delete("/{id}", h.deleteIncome)
}

// MountMaintenance registers /maintenance.
func (h *Handler) MountMaintenance(r chi.Router) {
	r.Get("/", h.listMaintenance)
	r.Post("/", h.createMaintenance)
	r.Get("/{id}", h.getMaintenance)
	r.Put("/{id}", h.updateMaintenance)
	r.Delete("/{id}", h.deleteMaintenance)
}

// MountCatalog returns a mount function for one device catalog.
func (h *Handler) MountCatalog(c Catalog) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", h.listEntries(c))
		r.Post("/", h.addEntry(c))
		r.Delete("/{id}", h.deleteEntry(c))
	}
}

// MountCustomers registers /customers.
func (h *Handler) MountCustomers(r chi.Router) {
	r.Get("/", h.listCustomers)
	r.Post("/", h.createCustomer)
	r.Get("/{id}", h.getCustomer)
	r.Delete("/{id}", h.deleteCustomer)
}

func (h *Handler) listIncome(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListIncome(r.Context())
	respondList(h, w, r, list, err)
}

func (h *Handler) createIncome(w http.ResponseWriter, r *http.Request) {
	var in ExtraIncomeInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	e, err := h.service.CreateIncome(r.Context(), in)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}

func (h *Handler) updateIncome(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	var in ExtraIncomeInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	e, err := h.service.UpdateIncome(r.Context(), id, in)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) deleteIncome(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if err := h.service.DeleteIncome(r.Context(), id); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Extra income deleted successfully", nil)
}

func (h *Handler) listMaintenance(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListMaintenance(r.Context())
	respondList(h, w, r, list, err)
}

func (h *Handler) createMaintenance(w http.ResponseWriter, r *http.Request) {
	var in MaintenanceInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	m, err := h.service.CreateMaintenance(r.Context(), in)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) getMaintenance(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	m, err := h.service.GetMaintenance(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) updateMaintenance(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	var in MaintenanceInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	m, err := h.service.UpdateMaintenance(r.Context(), id, in)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) deleteMaintenance(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if err := h.service.DeleteMaintenance(r.Context(), id); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Deleted successfully", nil)
}

func (h *Handler) listEntries(c Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := h.service.Entries(r.Context(), c)
		respondList(h, w, r, list, err)
	}
}

func (h *Handler) addEntry(c Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in CatalogInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.Fail(h.logger, w, r, err)
			return
		}
		e, err := h.service.AddEntry(r.Context(), c, in)
		if err != nil {
			httpx.Fail(h.logger, w, r, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, e)
	}
}

func (h *Handler) deleteEntry(c Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := lifecyclehttp.ParseID(r, "id")
		if err != nil {
			httpx.Fail(h.logger, w, r, err)
			return
		}
		if err := h.service.DeleteEntry(r.Context(), c, id); err != nil {
			httpx.Fail(h.logger, w, r, err)
			return
		}
		httpx.Message(w, http.StatusOK, "Deleted successfully", nil)
	}
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListCustomers(r.Context())
	respondList(h, w, r, list, err)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var in CustomerInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	c, err := h.service.CreateCustomer(r.Context(), in)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.Message(w, http.StatusCreated, "Customer details saved successfully!", c)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	c, err := h.service.GetCustomer(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if err := h.service.DeleteCustomer(r.Context(), id); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Customer deleted", nil)
}

// respondList writes list as a JSON array, never null.
func respondList[T any](h *Handler, w http.ResponseWriter, r *http.Request, list []T, err error) {
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if list == nil {
		list = []T{}
	}
	httpx.JSON(w, http.StatusOK, list)
}
