package suppliers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	lifecyclehttp "github.com/shopmanager/shopmanager/internal/lifecycle/http"
	"github.com/shopmanager/shopmanager/internal/platform/httpx"
	"github.com/shopmanager/shopmanager/internal/shared"
)

// Handler serves supplier routes.
type Handler struct {
	svc       *Service
	lifecycle *lifecyclehttp.Handler[Supplier]
	logger    *slog.Logger
}

// NewHandler builds the supplier handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, lifecycle: lifecyclehttp.NewHandler[Supplier](svc, "Supplier", logger), logger: logger}
}

// MountRoutes registers supplier routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	h.lifecycle.MountRoutes(r)
	r.Post("/{id}/items", h.handleAddItem)
	r.Patch("/{id}/items/{index}", h.handleUpdateItem)
	r.Delete("/{id}/items/{index}", h.handleRemoveItem)
	r.Post("/{id}/payments", h.handlePayment)
	r.Get("/{id}/balance", h.handleBalance)
	r.Post("/{id}/grns", h.handleCreateGRN)
	r.Get("/{id}/grns", h.handleListGRNs)
	r.Get("/{id}/grns/{grnId}", h.handleGetGRN)
	r.Delete("/{id}/grns/{grnId}", h.handleDeleteGRN)
}

func parseIndex(r *http.Request) (int, error) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, shared.NewValidationError("itemIndex", "invalid item index")
	}
	return idx, nil
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	var item CartItem
	if err := httpx.DecodeJSON(r, &item); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	rec, err := h.svc.AddItem(r.Context(), id, item, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	idx, err := parseIndex(r)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	var patch ItemPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	rec, err := h.svc.UpdateItem(r.Context(), id, idx, patch, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	idx, err := parseIndex(r)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	rec, err := h.svc.RemoveItem(r.Context(), id, idx, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handlePayment(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	var in PaymentInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	rec, err := h.svc.RecordPayment(r.Context(), id, in, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	bal, err := h.svc.Balance(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bal)
}

func (h *Handler) handleCreateGRN(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	var in GRNInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	grn, err := h.svc.CreateGRN(r.Context(), id, in)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, grn)
}

func (h *Handler) handleListGRNs(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	grns, err := h.svc.ListGRNs(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if grns == nil {
		grns = []GRN{}
	}
	httpx.JSON(w, http.StatusOK, grns)
}

func (h *Handler) handleGetGRN(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	grnID, err := lifecyclehttp.ParseID(r, "grnId")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	grn, err := h.svc.GetGRN(r.Context(), id, grnID)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, grn)
}

func (h *Handler) handleDeleteGRN(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	grnID, err := lifecyclehttp.ParseID(r, "grnId")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if err := h.svc.DeleteGRN(r.Context(), id, grnID); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "GRN deleted successfully", nil)
}
