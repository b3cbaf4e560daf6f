package suppliers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmanager/shopmanager/internal/lifecycle"
	"github.com/shopmanager/shopmanager/internal/shared"
)

type memoryGRNs struct {
	mu   sync.Mutex
	rows map[uuid.UUID]GRN
}

func newMemoryGRNs() *memoryGRNs { return &memoryGRNs{rows: map[uuid.UUID]GRN{}} }

func (m *memoryGRNs) InsertGRN(_ context.Context, grn GRN) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.rows {
		if g.GRNNumber == grn.GRNNumber {
			return shared.ErrDuplicateKey
		}
	}
	m.rows[grn.ID] = grn
	return nil
}

func (m *memoryGRNs) ListGRNs(_ context.Context, supplierID uuid.UUID) ([]GRN, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []GRN
	for _, g := range m.rows {
		if g.SupplierID == supplierID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memoryGRNs) GetGRN(_ context.Context, supplierID, id uuid.UUID) (GRN, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok || g.SupplierID != supplierID {
		return GRN{}, shared.ErrNotFound
	}
	return g, nil
}

func (m *memoryGRNs) DeleteGRN(_ context.Context, supplierID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.rows[id]
	if !ok || g.SupplierID != supplierID {
		return shared.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(lifecycle.NewMemoryStore[Supplier](), newMemoryGRNs(), nil)
}

func seedSupplier(t *testing.T, svc *Service) lifecycle.Record[Supplier] {
	t.Helper()
	rec, err := svc.Create(context.Background(), Supplier{Date: "2026-10-01", Time: "09:00", SupplierName: "Acme"}, "alice")
	require.NoError(t, err)
	return rec
}

func cable(qty int64, price float64) CartItem {
	return CartItem{ItemCode: "C1", ItemName: "Cable", Category: "Cables", Quantity: qty, BuyingPrice: price, SellingPrice: price * 1.5, SupplierName: "Acme"}
}

func TestCartOperationsRecordCartChanges(t *testing.T) {
	svc := newTestService(t)
	sup := seedSupplier(t, svc)
	ctx := context.Background()

	rec, err := svc.AddItem(ctx, sup.ID, cable(2, 100), "bob")
	require.NoError(t, err)
	require.Len(t, rec.Fields.Items, 1)
	assert.True(t, strings.HasPrefix(rec.Fields.Items[0].GRNNumber, "GRN-"))

	qty := int64(5)
	rec, err = svc.UpdateItem(ctx, sup.ID, 0, ItemPatch{Quantity: &qty}, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(5), rec.Fields.Items[0].Quantity)

	_, err = svc.UpdateItem(ctx, sup.ID, 3, ItemPatch{Quantity: &qty}, "bob")
	require.True(t, errors.Is(err, shared.ErrValidation))

	rec, err = svc.RemoveItem(ctx, sup.ID, 0, "bob")
	require.NoError(t, err)
	assert.Empty(t, rec.Fields.Items)

	fields := []string{}
	for _, ch := range rec.History[1:] {
		assert.Equal(t, lifecycle.ChangeCart, ch.ChangeType)
		fields = append(fields, ch.Field)
	}
	assert.Equal(t, []string{"cart-add", "cart-update", "cart-delete"}, fields)
	assert.Nil(t, rec.History[3].NewValue)
}

func TestPaymentsCannotExceedDue(t *testing.T) {
	svc := newTestService(t)
	sup := seedSupplier(t, svc)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, sup.ID, cable(3, 100), "bob")
	require.NoError(t, err)

	rec, err := svc.RecordPayment(ctx, sup.ID, PaymentInput{Amount: 120}, "bob")
	require.NoError(t, err)
	assert.Equal(t, 120.0, rec.Fields.TotalPayments)
	last := rec.History[len(rec.History)-1]
	assert.Equal(t, lifecycle.ChangeUpdate, last.ChangeType)
	assert.Equal(t, "totalPayments", last.Field)

	_, err = svc.RecordPayment(ctx, sup.ID, PaymentInput{Amount: 180.01}, "bob")
	require.True(t, errors.Is(err, shared.ErrValidation))
	_, err = svc.RecordPayment(ctx, sup.ID, PaymentInput{Amount: 0}, "bob")
	require.True(t, errors.Is(err, shared.ErrValidation))

	bal, err := svc.Balance(ctx, sup.ID)
	require.NoError(t, err)
	assert.Equal(t, Balance{Total: 300, Paid: 120, Due: 180}, bal)
}

func TestGRNs(t *testing.T) {
	svc := newTestService(t)
	sup := seedSupplier(t, svc)
	ctx := context.Background()
	items := []GRNItem{{ItemCode: "C1", ItemName: "Cable", Category: "Cables", Quantity: 4, BuyingPrice: 25, SellingPrice: 40}}

	grn, err := svc.CreateGRN(ctx, sup.ID, GRNInput{GRNNumber: "G-1", Items: items})
	require.NoError(t, err)
	assert.Equal(t, 100.0, grn.TotalAmount)

	_, err = svc.CreateGRN(ctx, sup.ID, GRNInput{GRNNumber: "G-1", Items: items})
	require.True(t, errors.Is(err, shared.ErrDuplicateKey))
	_, err = svc.CreateGRN(ctx, sup.ID, GRNInput{GRNNumber: "G-2"})
	require.True(t, errors.Is(err, shared.ErrValidation))
	_, err = svc.CreateGRN(ctx, uuid.New(), GRNInput{GRNNumber: "G-3", Items: items})
	require.True(t, errors.Is(err, shared.ErrNotFound))

	list, err := svc.ListGRNs(ctx, sup.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = svc.GetGRN(ctx, uuid.New(), grn.ID)
	require.True(t, errors.Is(err, shared.ErrNotFound))
	require.NoError(t, svc.DeleteGRN(ctx, sup.ID, grn.ID))
	require.True(t, errors.Is(svc.DeleteGRN(ctx, sup.ID, grn.ID), shared.ErrNotFound))
}

func TestSupplierRoutes(t *testing.T) {
	svc := newTestService(t)
	sup := seedSupplier(t, svc)
	r := chi.NewRouter()
	r.Route("/suppliers", NewHandler(svc, nil).MountRoutes)

	call := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}
	base := "/suppliers/" + sup.ID.String()

	res := call(http.MethodPost, base+"/items", `{"itemCode":"C1","itemName":"Cable","category":"Cables","quantity":2,"buyingPrice":50,"sellingPrice":70,"supplierName":"Acme"}`)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	res = call(http.MethodPatch, base+"/items/x", `{}`)
	require.Equal(t, http.StatusBadRequest, res.Code)

	res = call(http.MethodPost, base+"/payments", `{"amount":40}`)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = call(http.MethodGet, base+"/balance", ``)
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"total":100,"paid":40,"due":60}`, res.Body.String())

	res = call(http.MethodGet, base+"/grns", ``)
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `[]`, res.Body.String())
}
