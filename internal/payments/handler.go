package payments

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	lifecyclehttp "github.com/shopmanager/shopmanager/internal/lifecycle/http"
	"github.com/shopmanager/shopmanager/internal/platform/httpx"
	"github.com/shopmanager/shopmanager/internal/shared"
)

// Handler serves payment and return routes.
type Handler struct {
	svc    *Service
	logger *slog.Logger
	keys   shared.IdempotencyKeys
}

// NewHandler builds the payment handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// WithIdempotency makes sale and return posts honour the Idempotency-Key
// header: a repeated key is rejected with 409 instead of moving stock twice.
func (h *Handler) WithIdempotency(keys shared.IdempotencyKeys) *Handler {
	h.keys = keys
	return h
}

// claim reserves the request key, if any. The returned release undoes the
// claim after a failed write so the client may retry.
func (h *Handler) claim(r *http.Request, module string) (func(), error) {
	key := r.Header.Get(shared.IdempotencyHeader)
	if h.keys == nil || key == "" {
		return func() {}, nil
	}
	if err := h.keys.Claim(r.Context(), module, key); err != nil {
		return nil, err
	}
	return func() {
		if err := h.keys.Release(context.WithoutCancel(r.Context()), module, key); err != nil {
			h.logger.Warn("idempotency key not released", slog.String("module", module), slog.Any("error", err))
		}
	}, nil
}

// MountRoutes registers payment routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleSell)
	r.Get("/", h.handleList)
	r.Post("/return", h.handleReturn)
	r.Get("/{id}", h.handleGet)
	r.Delete("/{id}", h.handleDelete)
}

// MountReturns registers the standalone return route on r.
func (h *Handler) MountReturns(r chi.Router) {
	r.Post("/", h.handleReturn)
}

func (h *Handler) handleSell(w http.ResponseWriter, r *http.Request) {
	var in SaleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	release, err := h.claim(r, "payments.sale")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	p, err := h.svc.Sell(r.Context(), in, shared.ActorFromContext(r.Context()))
	if err != nil {
		release()
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.Message(w, http.StatusCreated, "Payment recorded", p)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	var in ReturnInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	release, err := h.claim(r, "payments.return")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	p, err := h.svc.Return(r.Context(), in, shared.ActorFromContext(r.Context()))
	if err != nil {
		release()
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.Message(w, http.StatusCreated, "Return processed", p)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	f, err := parseListFilter(r.URL.Query())
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	list, err := h.svc.List(r.Context(), f)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	if list == nil {
		list = []Payment{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := lifecyclehttp.ParseID(r, "id")
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	p, err := h.svc.Delete(r.Context(), id, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.Fail(h.logger, w, r, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Payment deleted", p)
}

func parseListFilter(values url.Values) (ListFilter, error) {
	page := shared.ParseListFilters(values)
	from, to, err := shared.ParseDateRange(values)
	if err != nil {
		return ListFilter{}, err
	}
	return ListFilter{From: from, To: to, Limit: page.Limit, Offset: page.Offset}, nil
}
