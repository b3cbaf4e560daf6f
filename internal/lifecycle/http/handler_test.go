package lifecyclehttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/shopmanager/shopmanager/internal/lifecycle"
	"github.com/shopmanager/shopmanager/internal/shared"
)

type gadget struct {
	SKU   string `json:"sku" validate:"required"`
	Label string `json:"label" validate:"required"`
	Stock int64  `json:"stock" validate:"gte=0"`
}

func (g gadget) BusinessKey() string { return g.SKU }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mgr := lifecycle.NewManager[gadget](lifecycle.Schema{Entity: "gadget", KeyField: "sku", QuantityField: "stock"}, lifecycle.NewMemoryStore[gadget](), nil)
	h := NewHandler[gadget](mgr, "Gadget", nil)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.ContextWithPrincipal(r.Context(), shared.Principal{UserID: "u1", Username: "tester", Role: "admin"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	r.Route("/gadgets", h.MountRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestLifecycleRoutes(t *testing.T) {
	h := newTestRouter(t)

	res := do(t, h, http.MethodPost, "/gadgets/", `{"sku":"G1","label":"Hub","stock":3,"changedBy":"ignored"}`)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	created := decode(t, res)
	id := created["id"].(string)
	require.Equal(t, "Active", created["status"])
	require.Equal(t, "G1", created["sku"])

	res = do(t, h, http.MethodPost, "/gadgets/", `{"sku":"G1","label":"Dup"}`)
	require.Equal(t, http.StatusConflict, res.Code)

	res = do(t, h, http.MethodPut, "/gadgets/"+id, `{"id":"`+id+`","label":"USB Hub","changeHistory":[]}`)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	updated := decode(t, res)
	require.Equal(t, "USB Hub", updated["label"])
	require.Len(t, updated["changeHistory"], 2)
	history := updated["changeHistory"].([]any)
	require.Equal(t, "tester", history[1].(map[string]any)["changedBy"])

	res = do(t, h, http.MethodPatch, "/gadgets/"+id, `{"colour":"red"}`)
	require.Equal(t, http.StatusBadRequest, res.Code)

	res = do(t, h, http.MethodPatch, "/gadgets/"+id+"/toggle-visibility", ``)
	require.Equal(t, http.StatusOK, res.Code)
	res = do(t, h, http.MethodGet, "/gadgets/hidden", ``)
	require.Equal(t, http.StatusOK, res.Code)
	var hidden []map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &hidden))
	require.Len(t, hidden, 1)

	res = do(t, h, http.MethodPatch, "/gadgets/"+id+"/soft-delete", ``)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "Gadget deleted and archived", decode(t, res)["message"])

	res = do(t, h, http.MethodPatch, "/gadgets/"+id+"/restore", ``)
	require.Equal(t, http.StatusOK, res.Code)

	res = do(t, h, http.MethodDelete, "/gadgets/"+id, ``)
	require.Equal(t, http.StatusOK, res.Code)
	res = do(t, h, http.MethodGet, "/gadgets/"+id, ``)
	require.Equal(t, http.StatusNotFound, res.Code)

	res = do(t, h, http.MethodGet, "/gadgets/archive", ``)
	require.Equal(t, http.StatusOK, res.Code)
	var archives []map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &archives))
	require.Len(t, archives, 1)
	require.Equal(t, id, archives[0]["originalId"])

	res = do(t, h, http.MethodPatch, "/gadgets/"+id+"/restore", ``)
	require.Equal(t, http.StatusOK, res.Code)
	res = do(t, h, http.MethodGet, "/gadgets/"+id+"/history", ``)
	require.Equal(t, http.StatusOK, res.Code)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &records))
	require.Equal(t, "restore", records[len(records)-1]["changeType"])
	require.Equal(t, "delete", records[len(records)-2]["changeType"])
}

func TestBadIDIsValidationError(t *testing.T) {
	h := newTestRouter(t)
	res := do(t, h, http.MethodGet, "/gadgets/not-a-uuid", ``)
	require.Equal(t, http.StatusBadRequest, res.Code)
	body := decode(t, res)
	require.Equal(t, "Validation failed", body["message"])
}
