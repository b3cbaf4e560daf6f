package repairs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmanager/shopmanager/internal/lifecycle"
	"github.com/shopmanager/shopmanager/internal/products"
	"github.com/shopmanager/shopmanager/internal/sequence"
	"github.com/shopmanager/shopmanager/internal/shared"
)

type nopUploads struct{}

func (nopUploads) InsertUpload(context.Context, products.UploadLog) error { return nil }
func (nopUploads) ListUploads(context.Context, int, int) ([]products.UploadLog, error) {
	return nil, nil
}

type fixture struct {
	svc      *Service
	products *products.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	inv := products.NewService(lifecycle.NewMemoryStore[products.Product](), nopUploads{}, nil)
	ctx := context.Background()
	for _, p := range []products.Product{
		{ItemCode: "A", ItemName: "Screen", Category: "Parts", BuyingPrice: 60, SellingPrice: 100, Stock: 5},
		{ItemCode: "B", ItemName: "Battery", Category: "Parts", BuyingPrice: 30, SellingPrice: 50, Stock: 1},
	} {
		_, err := inv.Create(ctx, p, "seed")
		require.NoError(t, err)
	}
	svc := NewService(lifecycle.NewMemoryStore[Job](), inv, sequence.NewMemory(), nil)
	return fixture{svc: svc, products: inv}
}

func (f fixture) newJob(t *testing.T) lifecycle.Record[Job] {
	t.Helper()
	rec, err := f.svc.Create(context.Background(), Job{
		CustomerName:     "Nimal",
		CustomerPhone:    "0771234567",
		DeviceType:       "Phone",
		IssueDescription: "Cracked screen",
		RepairCost:       500,
		Services:         []ServiceLine{{ServiceName: "Loyalty", DiscountAmount: 100}},
	}, "tech")
	require.NoError(t, err)
	return rec
}

func (f fixture) stock(t *testing.T, code string) int64 {
	t.Helper()
	rec, err := f.products.GetByKey(context.Background(), code)
	require.NoError(t, err)
	return rec.Fields.Stock
}

func TestCreateAssignsIdentifiersAndTotals(t *testing.T) {
	f := newFixture(t)
	first := f.newJob(t)
	second := f.newJob(t)

	assert.Equal(t, "REP01", first.Fields.RepairInvoice)
	assert.Equal(t, "REP02", second.Fields.RepairInvoice)
	assert.True(t, strings.HasPrefix(first.Fields.RepairCode, "RC-"))
	assert.Equal(t, StatusPending, first.Fields.RepairStatus)
	assert.Equal(t, "Phone", first.Fields.ItemName)
	assert.Equal(t, 100.0, first.Fields.TotalDiscountAmount)
	assert.Equal(t, 400.0, first.Fields.TotalRepairCost)
	assert.Equal(t, 400.0, first.Fields.FinalAmount)
}

func TestRecalculateClampsAtZero(t *testing.T) {
	j := Job{RepairCost: 50, Services: []ServiceLine{{ServiceName: "x", DiscountAmount: 80}},
		AdditionalServices: []AdditionalService{{ServiceName: "y", ServiceAmount: 20}}}
	Recalculate(&j)
	assert.Equal(t, 0.0, j.TotalRepairCost)
	assert.Equal(t, 20.0, j.FinalAmount)
}

func TestSelectProductsDrawsStock(t *testing.T) {
	f := newFixture(t)
	job := f.newJob(t)
	ctx := context.Background()

	rec, err := f.svc.SelectProducts(ctx, job.ID, SelectionInput{Products: []Selection{{ItemCode: "A", Quantity: 2}}}, "tech")
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.stock(t, "A"))
	require.Len(t, rec.Fields.RepairCart, 1)
	assert.Equal(t, CartLine{ItemCode: "A", ItemName: "Screen", Quantity: 2, Cost: 200}, rec.Fields.RepairCart[0])
	assert.Equal(t, StatusInProgress, rec.Fields.RepairStatus)
	assert.Equal(t, 600.0, rec.Fields.TotalRepairCost)

	last := rec.History[len(rec.History)-1]
	assert.Equal(t, lifecycle.ChangeSelect, last.ChangeType)
	assert.Equal(t, "selectProductsForRepair", last.Field)

	prod, err := f.products.GetByKey(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.ChangeSelect, prod.History[len(prod.History)-1].ChangeType)

	rec, err = f.svc.SelectProducts(ctx, job.ID, SelectionInput{Products: []Selection{{ItemCode: "A", Quantity: 1}}}, "tech")
	require.NoError(t, err)
	require.Len(t, rec.Fields.RepairCart, 1)
	assert.Equal(t, int64(3), rec.Fields.RepairCart[0].Quantity)
	assert.Equal(t, 300.0, rec.Fields.RepairCart[0].Cost)
}

func TestSelectProductsCompensatesOnFailure(t *testing.T) {
	f := newFixture(t)
	job := f.newJob(t)
	ctx := context.Background()

	_, err := f.svc.SelectProducts(ctx, job.ID, SelectionInput{Products: []Selection{
		{ItemCode: "A", Quantity: 2},
		{ItemCode: "B", Quantity: 5},
	}}, "tech")
	require.True(t, errors.Is(err, shared.ErrInsufficientStock))
	assert.Equal(t, int64(5), f.stock(t, "A"))
	assert.Equal(t, int64(1), f.stock(t, "B"))

	prod, err := f.products.GetByKey(ctx, "A")
	require.NoError(t, err)
	require.Len(t, prod.History, 3)
	assert.Equal(t, lifecycle.ChangeSelect, prod.History[1].ChangeType)
	assert.Equal(t, lifecycle.ChangeStock, prod.History[2].ChangeType)

	got, err := f.svc.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Fields.RepairCart)
	assert.Equal(t, StatusPending, got.Fields.RepairStatus)

	_, err = f.svc.SelectProducts(ctx, job.ID, SelectionInput{Products: []Selection{{ItemCode: "A", Quantity: 1}, {ItemCode: "Z", Quantity: 1}}}, "tech")
	require.True(t, errors.Is(err, shared.ErrNotFound))
	assert.Equal(t, int64(5), f.stock(t, "A"))
}

func TestReturnProducts(t *testing.T) {
	f := newFixture(t)
	job := f.newJob(t)
	ctx := context.Background()
	_, err := f.svc.SelectProducts(ctx, job.ID, SelectionInput{Products: []Selection{{ItemCode: "A", Quantity: 3}}}, "tech")
	require.NoError(t, err)

	rec, err := f.svc.ReturnProducts(ctx, job.ID, SelectionInput{Products: []Selection{{ItemCode: "A", Quantity: 1}}}, "tech")
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.stock(t, "A"))
	assert.Equal(t, CartLine{ItemCode: "A", ItemName: "Screen", Quantity: 2, Cost: 200}, rec.Fields.RepairCart[0])
	assert.Equal(t, "returnProductsFromRepair", rec.History[len(rec.History)-1].Field)

	_, err = f.svc.ReturnProducts(ctx, job.ID, SelectionInput{Products: []Selection{{ItemCode: "A", Quantity: 5}}}, "tech")
	require.True(t, errors.Is(err, shared.ErrValidation))
	_, err = f.svc.ReturnProducts(ctx, job.ID, SelectionInput{Products: []Selection{{ItemCode: "B", Quantity: 1}}}, "tech")
	require.True(t, errors.Is(err, shared.ErrValidation))
	assert.Equal(t, int64(1), f.stock(t, "B"))

	rec, err = f.svc.ReturnProducts(ctx, job.ID, SelectionInput{Products: []Selection{{ItemCode: "A", Quantity: 2}}}, "tech")
	require.NoError(t, err)
	assert.Empty(t, rec.Fields.RepairCart)
	assert.Equal(t, int64(5), f.stock(t, "A"))
	assert.Equal(t, 400.0, rec.Fields.TotalRepairCost)
}

func TestReturnProductsKeepsCartWhenRestockFails(t *testing.T) {
	f := newFixture(t)
	job := f.newJob(t)
	ctx := context.Background()
	_, err := f.svc.SelectProducts(ctx, job.ID, SelectionInput{Products: []Selection{
		{ItemCode: "A", Quantity: 2},
		{ItemCode: "B", Quantity: 1},
	}}, "tech")
	require.NoError(t, err)

	b, err := f.products.GetByKey(ctx, "B")
	require.NoError(t, err)
	_, err = f.products.SoftDelete(ctx, b.ID, "admin")
	require.NoError(t, err)

	_, err = f.svc.ReturnProducts(ctx, job.ID, SelectionInput{Products: []Selection{
		{ItemCode: "A", Quantity: 2},
		{ItemCode: "B", Quantity: 1},
	}}, "tech")
	require.True(t, errors.Is(err, shared.ErrNotFound))
	assert.Equal(t, int64(3), f.stock(t, "A"))

	got, err := f.svc.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, got.Fields.RepairCart, 2)
	assert.Equal(t, "selectProductsForRepair", got.History[len(got.History)-1].Field)

	a, err := f.products.GetByKey(ctx, "A")
	require.NoError(t, err)
	last := a.History[len(a.History)-2:]
	assert.Equal(t, lifecycle.ChangeStock, last[0].ChangeType)
	assert.Equal(t, 5.0, last[0].NewValue)
	assert.Equal(t, 3.0, last[1].NewValue)
}

func TestAdditionalServices(t *testing.T) {
	f := newFixture(t)
	job := f.newJob(t)
	ctx := context.Background()

	rec, err := f.svc.AddService(ctx, job.ID, AdditionalServiceInput{ServiceName: " Cleaning ", ServiceAmount: 150}, "tech")
	require.NoError(t, err)
	require.Len(t, rec.Fields.AdditionalServices, 1)
	assert.Equal(t, "Cleaning", rec.Fields.AdditionalServices[0].ServiceName)
	assert.Equal(t, 150.0, rec.Fields.TotalAdditionalServicesAmount)
	assert.Equal(t, 550.0, rec.Fields.FinalAmount)

	rec, err = f.svc.PayService(ctx, job.ID, 0, "tech")
	require.NoError(t, err)
	assert.True(t, rec.Fields.AdditionalServices[0].IsPaid)
	count := len(rec.History)

	rec, err = f.svc.PayService(ctx, job.ID, 0, "tech")
	require.NoError(t, err)
	assert.Len(t, rec.History, count)

	_, err = f.svc.PayService(ctx, job.ID, 4, "tech")
	require.True(t, errors.Is(err, shared.ErrValidation))
}

func TestUpdateRederivesTotals(t *testing.T) {
	f := newFixture(t)
	job := f.newJob(t)
	ctx := context.Background()

	rec, err := f.svc.Update(ctx, job.ID, map[string]any{"repairCost": 700}, "tech")
	require.NoError(t, err)
	assert.Equal(t, 600.0, rec.Fields.TotalRepairCost)
	assert.Equal(t, 600.0, rec.Fields.FinalAmount)

	require.Len(t, rec.History, 2)
	assert.Equal(t, "repairCost", rec.History[1].Field)
	assert.Equal(t, 500.0, rec.History[1].OldValue)
	assert.Equal(t, 700.0, rec.History[1].NewValue)

	got, err := f.svc.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 600.0, got.Fields.FinalAmount)

	_, err = f.svc.Update(ctx, job.ID, map[string]any{"repairInvoice": "REP99"}, "tech")
	require.True(t, errors.Is(err, shared.ErrValidation))
	_, err = f.svc.Update(ctx, job.ID, map[string]any{"repairStatus": "Lost"}, "tech")
	require.True(t, errors.Is(err, shared.ErrValidation))
}

func TestCountByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.newJob(t)
	f.newJob(t)
	c := f.newJob(t)
	_, err := f.svc.Update(ctx, a.ID, map[string]any{"repairStatus": StatusCompleted}, "tech")
	require.NoError(t, err)
	_, err = f.svc.SoftDelete(ctx, c.ID, "tech")
	require.NoError(t, err)

	counts, err := f.svc.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{StatusCompleted: 1, StatusPending: 1}, counts)
}
