package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopmanager/shopmanager/internal/platform/httpx"
)

// Handler serves the dashboard route.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler builds the dashboard handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// MountRoutes registers dashboard routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleSummary)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Summary(r.Context())
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
