package products

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmanager/shopmanager/internal/lifecycle"
	"github.com/shopmanager/shopmanager/internal/shared"
)

type memoryUploads struct {
	mu   sync.Mutex
	logs []UploadLog
	fail error
}

func (m *memoryUploads) InsertUpload(_ context.Context, log UploadLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.logs = append(m.logs, log)
	return nil
}

func (m *memoryUploads) ListUploads(_ context.Context, limit, offset int) ([]UploadLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]UploadLog(nil), m.logs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func newTestService(t *testing.T) (*Service, *memoryUploads) {
	t.Helper()
	uploads := &memoryUploads{}
	return NewService(lifecycle.NewMemoryStore[Product](), uploads, nil), uploads
}

func seed(t *testing.T, svc *Service, code string, stock int64) lifecycle.Record[Product] {
	t.Helper()
	rec, err := svc.Create(context.Background(), Product{
		ItemCode: code, ItemName: "Item " + code, Category: "Cables",
		BuyingPrice: 80, SellingPrice: 100, Stock: stock,
	}, "alice")
	require.NoError(t, err)
	return rec
}

func TestCreateDefaultsSupplier(t *testing.T) {
	svc, _ := newTestService(t)
	rec := seed(t, svc, "P1", 5)
	assert.Equal(t, DefaultSupplier, rec.Fields.SupplierName)
	require.Len(t, rec.History, 1)
	assert.Equal(t, lifecycle.ChangeCreate, rec.History[0].ChangeType)

	_, err := svc.Create(context.Background(), Product{ItemCode: "P1", ItemName: "Again", Category: "x"}, "alice")
	require.True(t, errors.Is(err, shared.ErrDuplicateKey))
}

func TestRestockExistingProduct(t *testing.T) {
	svc, _ := newTestService(t)
	seed(t, svc, "P1", 5)
	ctx := context.Background()

	rec, created, err := svc.Restock(ctx, "P1", RestockInput{
		ItemName: "Item P1", Category: "Cables", SupplierName: "Acme",
		NewStock: 10, NewBuyingPrice: 90, NewSellingPrice: 120,
	}, "bob")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(15), rec.Fields.Stock)
	assert.Equal(t, 90.0, rec.Fields.BuyingPrice)
	assert.Equal(t, 120.0, rec.Fields.SellingPrice)
	assert.Equal(t, "Acme", rec.Fields.SupplierName)
	require.NotNil(t, rec.Fields.OldStock)
	assert.Equal(t, int64(5), *rec.Fields.OldStock)
	require.NotNil(t, rec.Fields.OldBuyingPrice)
	assert.Equal(t, 80.0, *rec.Fields.OldBuyingPrice)

	stock := rec.History[1]
	assert.Equal(t, lifecycle.ChangeStock, stock.ChangeType)
	assert.Equal(t, "stock", stock.Field)
	for _, ch := range rec.History[2:] {
		assert.Equal(t, lifecycle.ChangeUpdate, ch.ChangeType)
		assert.Equal(t, "bob", ch.ChangedBy)
	}
}

type failingMutateStore struct {
	*lifecycle.MemoryStore[Product]
	fail error
}

func (s *failingMutateStore) Mutate(ctx context.Context, id uuid.UUID, fn lifecycle.MutateFunc[Product]) (lifecycle.Record[Product], error) {
	if s.fail != nil {
		return lifecycle.Record[Product]{}, s.fail
	}
	return s.MemoryStore.Mutate(ctx, id, fn)
}

func TestRestockRevertsStockWhenUpdateFails(t *testing.T) {
	store := &failingMutateStore{MemoryStore: lifecycle.NewMemoryStore[Product]()}
	svc := NewService(store, &memoryUploads{}, nil)
	seed(t, svc, "P1", 5)
	ctx := context.Background()

	store.fail = errors.New("connection reset")
	_, _, err := svc.Restock(ctx, "P1", RestockInput{
		ItemName: "Item P1", Category: "Cables", SupplierName: "Acme",
		NewStock: 10, NewBuyingPrice: 90, NewSellingPrice: 120,
	}, "bob")
	require.Error(t, err)

	got, err := svc.GetByKey(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Fields.Stock)
	assert.Equal(t, 80.0, got.Fields.BuyingPrice)
	require.Len(t, got.History, 3)
	assert.Equal(t, 15.0, got.History[1].NewValue)
	assert.Equal(t, lifecycle.ChangeStock, got.History[2].ChangeType)
	assert.Equal(t, 5.0, got.History[2].NewValue)
}

func TestRestockCreatesUnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)
	rec, created, err := svc.Restock(context.Background(), "NEW-1", RestockInput{
		ItemName: "Adapter", Category: "Power", SupplierName: "Acme",
		NewStock: 4, NewBuyingPrice: 10, NewSellingPrice: 15,
	}, "bob")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(4), rec.Fields.Stock)
	assert.Len(t, rec.History, 1)
}

func TestRestockValidation(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.Restock(context.Background(), "P9", RestockInput{Category: "x", SupplierName: "y", NewStock: -1}, "bob")
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "itemName")
	assert.Contains(t, verr.Fields, "newStock")
}

func TestReturnOutStock(t *testing.T) {
	svc, _ := newTestService(t)
	p := seed(t, svc, "P1", 3)
	ctx := context.Background()

	rec, err := svc.Return(ctx, p.ID, ReturnInput{ReturnType: ReturnOutStock, Quantity: 2}, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Fields.Stock)

	_, err = svc.Return(ctx, p.ID, ReturnInput{ReturnType: ReturnOutStock, Quantity: 2}, "carol")
	require.True(t, errors.Is(err, shared.ErrInsufficientStock))

	_, err = svc.Return(ctx, p.ID, ReturnInput{ReturnType: "in-stock", Quantity: 1}, "carol")
	require.True(t, errors.Is(err, shared.ErrValidation))

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, got.History, 2)
}

func TestAdjustRejectsUnknownReason(t *testing.T) {
	svc, _ := newTestService(t)
	p := seed(t, svc, "P1", 3)
	_, err := svc.Adjust(context.Background(), p.ID, AdjustInput{Delta: 1, Reason: "gift"}, "carol")
	require.True(t, errors.Is(err, shared.ErrValidation))

	rec, err := svc.Adjust(context.Background(), p.ID, AdjustInput{Delta: 4, Reason: "adjustment"}, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.Fields.Stock)
}

func TestImportCreatesAndUpdates(t *testing.T) {
	svc, uploads := newTestService(t)
	seed(t, svc, "P1", 5)
	ctx := context.Background()

	csv := strings.Join([]string{
		"Item Code,Item Name,Category,Buying Price,Selling Price,Stock,Supplier",
		"P1,Item P1,Cables,Rs.85,Rs.110,9,",
		",Charger,,50,75,6,Acme",
		",Item P1,Cables,1,2,3,",
		"P3,,,,,,",
		"P4,Bad,Misc,abc,1,1,",
	}, "\n")

	report, err := svc.Import(ctx, "stock.csv", strings.NewReader(csv), "dave")
	require.NoError(t, err)
	require.Len(t, report.Created, 1)
	require.Len(t, report.Updated, 2)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, 4, report.Errors[0].Row)
	assert.Equal(t, 5, report.Errors[1].Row)

	created, err := svc.FindByField(ctx, "itemName", "Charger")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(created.Fields.ItemCode, "ITEM-"))
	assert.Len(t, created.Fields.ItemCode, len("ITEM-")+8)
	assert.Equal(t, DefaultCategory, created.Fields.Category)
	assert.Equal(t, "Acme", created.Fields.SupplierName)
	require.Len(t, created.History, 2)
	assert.Equal(t, lifecycle.ChangeAddExpense, created.History[1].ChangeType)

	p1, err := svc.GetByKey(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), p1.Fields.Stock)
	assert.Equal(t, 1.0, p1.Fields.BuyingPrice)
	assert.Equal(t, DefaultSupplier, p1.Fields.SupplierName)
	last := p1.History[len(p1.History)-1]
	assert.Equal(t, lifecycle.ChangeAddExpense, last.ChangeType)

	require.Len(t, uploads.logs, 1)
	assert.Equal(t, "stock.csv", uploads.logs[0].Filename)
	assert.Equal(t, "dave", uploads.logs[0].UploadedBy)
	assert.Len(t, uploads.logs[0].Products, 3)
}

func TestImportSurvivesUploadLogFailure(t *testing.T) {
	svc, uploads := newTestService(t)
	uploads.fail = errors.New("db down")
	report, err := svc.Import(context.Background(), "a.csv", strings.NewReader("Item Name,Stock\nFan,0\n"), "dave")
	require.NoError(t, err)
	assert.Len(t, report.Created, 1)
}

func TestImportRejectsUnsupportedFile(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Import(context.Background(), "a.txt", strings.NewReader("x"), "dave")
	require.True(t, errors.Is(err, shared.ErrValidation))
}
