// Package audithttp serves the account audit timeline.
package audithttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopmanager/shopmanager/internal/audit"
	"github.com/shopmanager/shopmanager/internal/platform/httpx"
	"github.com/shopmanager/shopmanager/internal/rbac"
	"github.com/shopmanager/shopmanager/internal/shared"
)

const (
	defaultDateRange = 7 * 24 * time.Hour
	maxDateRange     = 90 * 24 * time.Hour
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error)
}

// Handler serves audit timeline requests.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler builds the audit handler.
func NewHandler(logger *slog.Logger, service TimelineService, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, now: time.Now}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-timeline.csv"`)
	if err := audit.WriteCSV(w, rows); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

// parseFilters defaults to the last seven days and caps the range at 90.
func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	q := r.URL.Query()
	from, to, err := shared.ParseDateRange(q)
	if err != nil {
		return audit.TimelineFilters{}, err
	}
	if to.IsZero() {
		to = h.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 1)
	}
	if from.IsZero() {
		from = to.Add(-defaultDateRange)
	}
	if !from.Before(to) {
		return audit.TimelineFilters{}, shared.NewValidationError("from", "must be before to")
	}
	if to.Sub(from) > maxDateRange {
		return audit.TimelineFilters{}, shared.NewValidationError("to", "range may not exceed 90 days")
	}

	page, err := positiveInt(q.Get("page"), "page", 1)
	if err != nil {
		return audit.TimelineFilters{}, err
	}
	pageSize, err := positiveInt(q.Get("pageSize"), "pageSize", 0)
	if err != nil {
		return audit.TimelineFilters{}, err
	}
	return audit.TimelineFilters{
		From:     from,
		To:       to,
		Actor:    strings.TrimSpace(q.Get("actor")),
		Entity:   strings.TrimSpace(q.Get("entity")),
		Action:   strings.TrimSpace(q.Get("action")),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func positiveInt(raw, field string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, shared.NewValidationError(field, "must be a positive integer")
	}
	return n, nil
}
