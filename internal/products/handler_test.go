package products

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmanager/shopmanager/internal/shared"
)

func newTestRouter(t *testing.T, maxUpload int64) (http.Handler, *Service) {
	t.Helper()
	svc, _ := newTestService(t)
	h := NewHandler(svc, nil, maxUpload)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.ContextWithPrincipal(r.Context(), shared.Principal{UserID: "u1", Username: "erin", Role: "cashier"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	r.Route("/products", h.MountRoutes)
	r.Route("/clicked-products", h.MountClicks)
	return r, svc
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, h http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/products/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProductRoutes(t *testing.T) {
	h, _ := newTestRouter(t, 0)

	res := doJSON(t, h, http.MethodPost, "/products/", `{"itemCode":"C1","itemName":"Cable","category":"Cables","buyingPrice":10,"sellingPrice":15,"stock":2}`)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	var created map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &created))
	id := created["id"].(string)
	assert.Equal(t, DefaultSupplier, created["supplierName"])

	res = doJSON(t, h, http.MethodGet, "/products/code/C1", ``)
	require.Equal(t, http.StatusOK, res.Code)

	res = doJSON(t, h, http.MethodPatch, "/products/update-stock/C1", `{"itemName":"Cable","category":"Cables","supplierName":"Acme","newStock":3,"newBuyingPrice":11,"newSellingPrice":16}`)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), `"stock":5`)

	res = doJSON(t, h, http.MethodPatch, "/products/"+id+"/return", `{"returnType":"out-stock","quantity":9}`)
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Insufficient stock")

	res = doJSON(t, h, http.MethodPost, "/products/"+id+"/stock", `{"delta":-5,"reason":"sale"}`)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), `"stock":0`)

	res = doJSON(t, h, http.MethodGet, "/products/code/NOPE", ``)
	require.Equal(t, http.StatusNotFound, res.Code)
}

func TestImportRoute(t *testing.T) {
	h, svc := newTestRouter(t, 0)

	res := upload(t, h, "stock.csv", "Item Name,Selling Price,Stock\nLamp,Rs.500,2\n")
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var body struct {
		Message string       `json:"message"`
		Data    ImportReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Len(t, body.Data.Created, 1)

	rec, err := svc.GetByKey(t.Context(), body.Data.Created[0].ItemCode)
	require.NoError(t, err)
	assert.Equal(t, "erin", rec.History[0].ChangedBy)

	res = doJSON(t, h, http.MethodGet, "/products/uploads", ``)
	require.Equal(t, http.StatusOK, res.Code)
	var logs []UploadLog
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "stock.csv", logs[0].Filename)
}

func TestImportRouteLimits(t *testing.T) {
	h, _ := newTestRouter(t, 1024)

	res := upload(t, h, "big.csv", "Item Name\n"+strings.Repeat("x", 4096)+"\n")
	require.Equal(t, http.StatusRequestEntityTooLarge, res.Code)

	res = upload(t, h, "notes.txt", "hello")
	require.Equal(t, http.StatusBadRequest, res.Code)

	res = doJSON(t, h, http.MethodPost, "/products/import", `{}`)
	require.Equal(t, http.StatusBadRequest, res.Code)
}
