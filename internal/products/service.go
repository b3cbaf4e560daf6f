package products

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopmanager/shopmanager/internal/lifecycle"
	"github.com/shopmanager/shopmanager/internal/platform/validate"
	"github.com/shopmanager/shopmanager/internal/shared"
)

// UploadRepository persists the import upload log.
type UploadRepository interface {
	InsertUpload(ctx context.Context, log UploadLog) error
	ListUploads(ctx context.Context, limit, offset int) ([]UploadLog, error)
}

// Service layers product rules over the lifecycle manager.
type Service struct {
	*lifecycle.Manager[Product]
	uploads UploadRepository
	clicks  ClickRepository
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service over the given store.
func NewService(store lifecycle.Store[Product], uploads UploadRepository, logger *slog.Logger, opts ...lifecycle.Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Manager: lifecycle.NewManager[Product](Schema, store, logger, opts...),
		uploads: uploads,
		logger:  logger.With(slog.String("module", "products")),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create applies product defaults before inserting.
func (s *Service) Create(ctx context.Context, p Product, actor string) (lifecycle.Record[Product], error) {
	p.ItemCode = strings.TrimSpace(p.ItemCode)
	if strings.TrimSpace(p.SupplierName) == "" {
		p.SupplierName = DefaultSupplier
	}
	p.ClickedForAdd, p.ClickedAt, p.ClickedBy = false, nil, ""
	return s.Manager.Create(ctx, p, actor)
}

// Restock adds stock to an existing product and refreshes its prices, or
// creates the product when the code is unknown. The boolean reports creation.
// The stock move is reversed if the price update fails.
func (s *Service) Restock(ctx context.Context, itemCode string, in RestockInput, actor string) (lifecycle.Record[Product], bool, error) {
	itemCode = strings.TrimSpace(itemCode)
	if itemCode == "" {
		return lifecycle.Record[Product]{}, false, shared.NewValidationError("itemCode", "is required")
	}
	if err := validate.Struct(in); err != nil {
		return lifecycle.Record[Product]{}, false, err
	}

	current, err := s.GetByKey(ctx, itemCode)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		rec, err := s.Create(ctx, Product{
			ItemCode:     itemCode,
			ItemName:     in.ItemName,
			Category:     in.Category,
			BuyingPrice:  in.NewBuyingPrice,
			SellingPrice: in.NewSellingPrice,
			Stock:        in.NewStock,
			SupplierName: in.SupplierName,
		}, actor)
		return rec, err == nil, err
	case err != nil:
		return lifecycle.Record[Product]{}, false, err
	}
	if current.Deleted {
		return lifecycle.Record[Product]{}, false, shared.Invalidf("product %s is deleted", itemCode)
	}

	prev := current.Fields
	moved := false
	if in.NewStock > 0 {
		if _, err := s.AdjustStock(ctx, current.ID, in.NewStock, actor, lifecycle.ReasonRestock); err != nil {
			return lifecycle.Record[Product]{}, false, err
		}
		moved = true
	}
	rec, err := s.Update(ctx, current.ID, map[string]any{
		"buyingPrice":     in.NewBuyingPrice,
		"sellingPrice":    in.NewSellingPrice,
		"supplierName":    in.SupplierName,
		"newStock":        in.NewStock,
		"newBuyingPrice":  in.NewBuyingPrice,
		"newSellingPrice": in.NewSellingPrice,
		"oldStock":        prev.Stock,
		"oldBuyingPrice":  prev.BuyingPrice,
		"oldSellingPrice": prev.SellingPrice,
	}, actor)
	if err != nil {
		if moved {
			if _, rerr := s.AdjustStock(ctx, current.ID, -in.NewStock, actor, lifecycle.ReasonRollback); rerr != nil {
				s.logger.Error("restock rollback failed",
					slog.String("itemCode", itemCode),
					slog.Int64("delta", -in.NewStock),
					slog.Any("error", rerr))
			}
		}
		return lifecycle.Record[Product]{}, false, err
	}
	return rec, false, nil
}

// Return processes a product return. Only out-stock returns move stock.
func (s *Service) Return(ctx context.Context, id uuid.UUID, in ReturnInput, actor string) (lifecycle.Record[Product], error) {
	if err := validate.Struct(in); err != nil {
		return lifecycle.Record[Product]{}, err
	}
	if in.ReturnType != ReturnOutStock {
		return lifecycle.Record[Product]{}, shared.NewValidationError("returnType", "unsupported return type "+in.ReturnType)
	}
	return s.AdjustStock(ctx, id, -in.Quantity, actor, lifecycle.ReasonReturn)
}

// Adjust applies a manual stock adjustment.
func (s *Service) Adjust(ctx context.Context, id uuid.UUID, in AdjustInput, actor string) (lifecycle.Record[Product], error) {
	if err := validate.Struct(in); err != nil {
		return lifecycle.Record[Product]{}, err
	}
	return s.AdjustStock(ctx, id, in.Delta, actor, lifecycle.Reason(in.Reason))
}

// RecordUpload stores an upload log entry.
func (s *Service) RecordUpload(ctx context.Context, log UploadLog) (UploadLog, error) {
	if err := validate.Struct(log); err != nil {
		return UploadLog{}, err
	}
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.UploadedAt.IsZero() {
		log.UploadedAt = s.now()
	}
	if log.Products == nil {
		log.Products = []UploadAction{}
	}
	if err := s.uploads.InsertUpload(ctx, log); err != nil {
		return UploadLog{}, err
	}
	return log, nil
}

// ListUploads returns upload logs, newest first.
func (s *Service) ListUploads(ctx context.Context, filters shared.ListFilters) ([]UploadLog, error) {
	filters = filters.Normalize()
	return s.uploads.ListUploads(ctx, filters.Limit, filters.Offset)
}
