// Package lifecyclehttp exposes the shared lifecycle routes for any tracked
// entity type.
package lifecyclehttp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopmanager/shopmanager/internal/lifecycle"
	"github.com/shopmanager/shopmanager/internal/platform/httpx"
	"github.com/shopmanager/shopmanager/internal/shared"
)

// Service is the lifecycle contract the handler drives. *lifecycle.Manager
// satisfies it; entity services embed a Manager and override what they need.
type Service[T lifecycle.Entity] interface {
	Create(ctx context.Context, fields T, actor string) (lifecycle.Record[T], error)
	Get(ctx context.Context, id uuid.UUID) (lifecycle.Record[T], error)
	List(ctx context.Context, q lifecycle.Query) ([]lifecycle.Record[T], error)
	ListArchives(ctx context.Context, q lifecycle.Query) ([]lifecycle.ArchiveRecord[T], error)
	History(ctx context.Context, id uuid.UUID) ([]lifecycle.ChangeRecord, error)
	Update(ctx context.Context, id uuid.UUID, deltas map[string]any, actor string) (lifecycle.Record[T], error)
	SoftDelete(ctx context.Context, id uuid.UUID, actor string) (lifecycle.SoftDeleteResult[T], error)
	HardDelete(ctx context.Context, id uuid.UUID, actor string) (lifecycle.ArchiveRecord[T], error)
	Restore(ctx context.Context, id uuid.UUID, actor string) (lifecycle.Record[T], error)
	ToggleVisibility(ctx context.Context, id uuid.UUID, actor string) (lifecycle.Record[T], error)
}

// envelope keys clients echo back on PUT that are not business fields.
var envelopeKeys = []string{
	"id", "_id", "status", "visible", "deleted", "deletedAt", "deletedBy",
	"hiddenAt", "hiddenBy", "changeHistory", "createdAt", "updatedAt", "changedBy", "__v",
}

// Handler serves lifecycle routes for one entity type.
type Handler[T lifecycle.Entity] struct {
	svc    Service[T]
	label  string
	logger *slog.Logger
}

// NewHandler builds a Handler; label names the entity in messages.
func NewHandler[T lifecycle.Entity](svc Service[T], label string, logger *slog.Logger) *Handler[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler[T]{svc: svc, label: label, logger: logger}
}

// MountRoutes registers the lifecycle routes on r.
func (h *Handler[T]) MountRoutes(r chi.Router) {
	r.Get("/", h.list(lifecycle.OnlyActive))
	r.Get("/hidden", h.list(lifecycle.OnlyHidden))
	r.Get("/deleted", h.list(lifecycle.OnlyDeleted))
	r.Get("/archive", h.handleArchive)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Get("/{id}/history", h.handleHistory)
	r.Patch("/{id}", h.handleUpdate)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleHardDelete)
	r.Patch("/{id}/soft-delete", h.handleSoftDelete)
	r.Patch("/{id}/restore", h.handleRestore)
	r.Patch("/{id}/toggle-visibility", h.handleToggle)
}

// ParseID reads the {id} URL parameter.
func ParseID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, shared.NewValidationError(name, "must be a UUID")
	}
	return id, nil
}

// Query builds a lifecycle query from the request's query string.
func Query(r *http.Request, state lifecycle.StateFilter) lifecycle.Query {
	f := shared.ParseListFilters(r.URL.Query())
	return lifecycle.Query{State: state, Search: f.Query, Limit: f.Limit, Offset: f.Offset}
}

// DecodeDeltas reads a JSON object body and drops envelope keys.
func DecodeDeltas(r *http.Request) (map[string]any, error) {
	body := map[string]any{}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		return nil, err
	}
	for _, k := range envelopeKeys {
		delete(body, k)
	}
	return body, nil
}

func (h *Handler[T]) list(state lifecycle.StateFilter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := h.svc.List(r.Context(), Query(r, state))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if recs == nil {
			recs = []lifecycle.Record[T]{}
		}
		httpx.JSON(w, http.StatusOK, recs)
	}
}

func (h *Handler[T]) handleArchive(w http.ResponseWriter, r *http.Request) {
	archives, err := h.svc.ListArchives(r.Context(), Query(r, lifecycle.AnyState))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if archives == nil {
		archives = []lifecycle.ArchiveRecord[T]{}
	}
	httpx.JSON(w, http.StatusOK, archives)
}

func (h *Handler[T]) handleCreate(w http.ResponseWriter, r *http.Request) {
	var fields T
	if err := httpx.DecodeJSON(r, &fields); err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.svc.Create(r.Context(), fields, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler[T]) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler[T]) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	history, err := h.svc.History(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, history)
}

func (h *Handler[T]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	deltas, err := DecodeDeltas(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.svc.Update(r.Context(), id, deltas, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler[T]) handleSoftDelete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.SoftDelete(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !res.Archived {
		httpx.JSON(w, http.StatusOK, softDeleteBody{
			Message: h.label + " deleted, archive could not be written",
			Error:   errString(res.ArchiveErr),
			Data:    res.Record,
		})
		return
	}
	httpx.JSON(w, http.StatusOK, softDeleteBody{Message: h.label + " deleted and archived", Data: res.Record})
}

type softDeleteBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data"`
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (h *Handler[T]) handleHardDelete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	archive, err := h.svc.HardDelete(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, h.label+" permanently deleted and archived", archive)
}

func (h *Handler[T]) handleRestore(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.svc.Restore(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, h.label+" restored", rec)
}

func (h *Handler[T]) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.svc.ToggleVisibility(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	verb := "shown"
	if !rec.Visible {
		verb = "hidden"
	}
	httpx.Message(w, http.StatusOK, h.label+" "+verb, rec)
}

func (h *Handler[T]) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.Fail(h.logger, w, r, err)
}
