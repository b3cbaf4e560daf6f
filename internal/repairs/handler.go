package repairs

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopmanager/shopmanager/internal/lifecycle"
	lifecyclehttp "github.com/shopmanager/shopmanager/internal/lifecycle/http"
	"github.com/shopmanager/shopmanager/internal/platform/httpx"
	"github.com/shopmanager/shopmanager/internal/shared"
)

// Handler serves repair job routes.
type Handler struct {
	svc       *Service
	lifecycle *lifecyclehttp.Handler[Job]
	logger    *slog.Logger
}

// NewHandler builds the repair handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, lifecycle: lifecyclehttp.NewHandler[Job](svc, "Repair", logger), logger: logger}
}

// MountRoutes registers repair routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	h.lifecycle.MountRoutes(r)
	r.Patch("/{id}/cart", h.selection(h.svc.SelectProducts))
	r.Patch("/{id}/cart/return", h.selection(h.svc.ReturnProducts))
	r.Patch("/{id}/services", h.handleAddService)
	r.Patch("/{id}/services/{index}/pay", h.handlePayService)
}

type selectionFunc func(ctx context.Context, id uuid.UUID, in SelectionInput, actor string) (lifecycle.Record[Job], error)

func (h *Handler) selection(fn selectionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := lifecyclehttp.ParseID(r, "id")
		if err != nil {
			httpx.Fail(h.logger, w, r, err)
			return
		}
		var in SelectionInput
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.Fail(h.logger, w, r, err)
			return
		}
		rec, err := fn(r.Context(), id, in, shared.ActorFromContext(r.Context()))
		if err != nil {
			httpx.Fail(h.logger, w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, rec)
	}
}

func (h *Handler) handleAddService(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	var in AdditionalServiceInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	rec, err := h.svc.AddService(r.Context(), id, in, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handlePayService(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpx.Fail(h.logger, w, r, shared.NewValidationError("serviceIndex", "must be a number"))
		return
	}
	rec, err := h.svc.PayService(r.Context(), id, idx, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}
