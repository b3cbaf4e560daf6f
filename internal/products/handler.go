package products

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shopmanager/shopmanager/internal/lifecycle"
	lifecyclehttp "github.com/shopmanager/shopmanager/internal/lifecycle/http"
	"github.com/shopmanager/shopmanager/internal/platform/httpx"
	"github.com/shopmanager/shopmanager/internal/shared"
)

// DefaultMaxUpload caps import uploads at 5 MB.
const DefaultMaxUpload int64 = 5 << 20

// Handler serves product routes.
type Handler struct {
	svc       *Service
	lifecycle *lifecyclehttp.Handler[Product]
	logger    *slog.Logger
	maxUpload int64
}

// NewHandler builds the product handler. maxUpload <= 0 uses DefaultMaxUpload.
func NewHandler(svc *Service, logger *slog.Logger, maxUpload int64) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &Handler{
		svc:       svc,
		lifecycle: lifecyclehttp.NewHandler[Product](svc, "Product", logger),
		logger:    logger,
		maxUpload: maxUpload,
	}
}

// MountRoutes registers product routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/code/{itemCode}", h.handleGetByCode)
	r.Patch("/update-stock/{itemCode}", h.handleRestock)
	r.Post("/import", h.handleImport)
	r.Get("/uploads", h.handleListUploads)
	r.Post("/uploads", h.handleRecordUpload)
	r.Patch("/{id}/return", h.handleReturn)
	r.Post("/{id}/stock", h.handleAdjust)
	h.lifecycle.MountRoutes(r)
}

func (h *Handler) handleGetByCode(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetByKey(r.Context(), chi.URLParam(r, "itemCode"))
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleRestock(w http.ResponseWriter, r *http.Request) {
	var in RestockInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	rec, created, err := h.svc.Restock(r.Context(), chi.URLParam(r, "itemCode"), in, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if created {
		httpx.Message(w, http.StatusCreated, "Product created", rec)
		return
	}
	httpx.Message(w, http.StatusOK, "Stock updated successfully", rec)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	var in ReturnInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	rec, err := h.svc.Return(r.Context(), id, in, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Product return processed", rec)
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	var in AdjustInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	rec, err := h.svc.Adjust(r.Context(), id, in, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.Error(w, http.StatusRequestEntityTooLarge, "File too large", err.Error())
			return
		}
		httpx.Fail(h.logger, w, r, shared.Invalidf("expected a multipart upload: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Fail(h.logger, w, r, shared.NewValidationError("file", "no file uploaded"))
		return
	}
	defer file.Close()

	actor := shared.ActorFromContext(r.Context())
	if by := strings.TrimSpace(r.FormValue("uploadedBy")); by != "" && actor == "system" {
		actor = by
	}
	report, err := h.svc.Import(r.Context(), header.Filename, file, actor)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Import completed", report)
}

func (h *Handler) handleListUploads(w http.ResponseWriter, r *http.Request) {
	logs, err := h.svc.ListUploads(r.Context(), shared.ParseListFilters(r.URL.Query()))
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if logs == nil {
		logs = []UploadLog{}
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func (h *Handler) handleRecordUpload(w http.ResponseWriter, r *http.Request) {
	var in UploadLog
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	log, err := h.svc.RecordUpload(r.Context(), in)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.Message(w, http.StatusCreated, "Upload logged", log)
}

// MountClicks registers the clicked-products routes on r.
func (h *Handler) MountClicks(r chi.Router) {
	r.Get("/", h.handleListClicks)
	r.Get("/available", h.handleAvailable)
	r.Post("/click/{id}", h.handleClick)
	r.Delete("/{id}", h.handleUnclick)
}

func (h *Handler) handleListClicks(w http.ResponseWriter, r *http.Request) {
	clicks, err := h.svc.ListClicks(r.Context())
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if clicks == nil {
		clicks = []ClickedProduct{}
	}
	httpx.JSON(w, http.StatusOK, clicks)
}

func (h *Handler) handleAvailable(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.Available(r.Context(), lifecyclehttp.Query(r, lifecycle.OnlyActive))
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, recs)
}

func (h *Handler) handleClick(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	var in ClickInput
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.Fail(h.logger, w, r, err)
			return
		}
	}
	by := strings.TrimSpace(in.ClickedBy)
	if by == "" {
		by = shared.ActorFromContext(r.Context())
	}
	click, err := h.svc.Click(r.Context(), id, by)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Product marked as clicked for Add Product", click)
}

func (h *Handler) handleUnclick(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if err := h.svc.Unclick(r.Context(), id, shared.ActorFromContext(r.Context())); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Clicked product record removed", nil)
}
