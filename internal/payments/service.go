package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shopmanager/shopmanager/internal/lifecycle"
	"github.com/shopmanager/shopmanager/internal/platform/validate"
	"github.com/shopmanager/shopmanager/internal/products"
	"github.com/shopmanager/shopmanager/internal/sequence"
	"github.com/shopmanager/shopmanager/internal/shared"
)

// Repository persists payments.
type Repository interface {
	Insert(ctx context.Context, p Payment) error
	Get(ctx context.Context, id uuid.UUID) (Payment, error)
	List(ctx context.Context, f ListFilter) ([]Payment, error)
	// Delete removes the payment and returns what was removed.
	Delete(ctx context.Context, id uuid.UUID) (Payment, error)
}

// Inventory is the product surface sales draw stock from.
type Inventory interface {
	AdjustStock(ctx context.Context, id uuid.UUID, delta int64, actor string, reason lifecycle.Reason) (lifecycle.Record[products.Product], error)
}

// Invalidator drops cached aggregates derived from payments.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service records sales and returns against product stock.
type Service struct {
	repo      Repository
	inventory Inventory
	seq       sequence.Sequencer
	cache     Invalidator
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service. cache may be nil.
func NewService(repo Repository, inventory Inventory, seq sequence.Sequencer, cache Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		inventory: inventory,
		seq:       seq,
		cache:     cache,
		logger:    logger.With(slog.String("module", "payments")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type adjustment struct {
	productID uuid.UUID
	delta     int64
}

// Sell draws stock for every item, snapshots buying prices and records the
// payment under the next INV number. Stock is put back if any step fails.
func (s *Service) Sell(ctx context.Context, in SaleInput, actor string) (Payment, error) {
	if err := validate.Struct(in); err != nil {
		return Payment{}, err
	}
	items := make([]Item, len(in.Items))
	var applied []adjustment
	for i, it := range in.Items {
		rec, err := s.inventory.AdjustStock(ctx, it.ProductID, -it.Quantity, actor, lifecycle.ReasonSale)
		if err != nil {
			s.revert(ctx, applied, actor)
			label := it.ItemName
			if label == "" {
				label = it.ProductID.String()
			}
			return Payment{}, fmt.Errorf("item %s: %w", label, err)
		}
		applied = append(applied, adjustment{productID: it.ProductID, delta: -it.Quantity})
		it.BuyingPrice = rec.Fields.BuyingPrice
		if it.ItemName == "" {
			it.ItemName = rec.Fields.ItemName
		}
		items[i] = it
	}

	n, err := s.seq.Next(ctx, sequence.InvoiceNumber)
	if err != nil {
		s.revert(ctx, applied, actor)
		return Payment{}, fmt.Errorf("payments: allocate invoice: %w", err)
	}
	now := s.now()
	p := Payment{
		ID:              uuid.New(),
		InvoiceNumber:   "INV-" + strconv.FormatInt(n, 10),
		Kind:            KindSale,
		Items:           items,
		TotalAmount:     in.TotalAmount,
		DiscountApplied: in.DiscountApplied,
		PaymentMethod:   in.PaymentMethod,
		CashierID:       in.CashierID,
		CashierName:     in.CashierName,
		CustomerName:    in.CustomerName,
		ContactNumber:   in.ContactNumber,
		Address:         in.Address,
		Date:            now,
		CreatedAt:       now,
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		s.revert(ctx, applied, actor)
		return Payment{}, err
	}
	s.invalidate(ctx)
	return p, nil
}

// Return restocks every item and records a negative Refund payment under the
// next RET number.
func (s *Service) Return(ctx context.Context, in ReturnInput, actor string) (Payment, error) {
	if err := validate.Struct(in); err != nil {
		return Payment{}, err
	}
	items := make([]Item, len(in.Items))
	var applied []adjustment
	for i, it := range in.Items {
		rec, err := s.inventory.AdjustStock(ctx, it.ProductID, it.Quantity, actor, lifecycle.ReasonReturn)
		if err != nil {
			s.revert(ctx, applied, actor)
			return Payment{}, fmt.Errorf("item %s: %w", it.ProductID, err)
		}
		applied = append(applied, adjustment{productID: it.ProductID, delta: it.Quantity})
		it.BuyingPrice = rec.Fields.BuyingPrice
		if it.ItemName == "" {
			it.ItemName = rec.Fields.ItemName
		}
		items[i] = it
	}

	n, err := s.seq.Next(ctx, sequence.ReturnNumber)
	if err != nil {
		s.revert(ctx, applied, actor)
		return Payment{}, fmt.Errorf("payments: allocate return number: %w", err)
	}
	now := s.now()
	p := Payment{
		ID:            uuid.New(),
		InvoiceNumber: "RET-" + strconv.FormatInt(n, 10),
		Kind:          KindReturn,
		Items:         items,
		TotalAmount:   -in.TotalRefund,
		PaymentMethod: MethodRefund,
		CashierID:     in.CashierID,
		CashierName:   in.CashierName,
		CustomerName:  in.CustomerName,
		ContactNumber: in.ContactNumber,
		Address:       in.Address,
		Date:          now,
		CreatedAt:     now,
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		s.revert(ctx, applied, actor)
		return Payment{}, err
	}
	s.invalidate(ctx)
	return p, nil
}

// Get returns one payment.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Payment, error) {
	return s.repo.Get(ctx, id)
}

// List returns payments, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Payment, error) {
	return s.repo.List(ctx, f)
}

// Delete restocks a payment's items unless it was a refund, then removes it.
// Restocks already applied are reverted if a later step fails.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor string) (Payment, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	var applied []adjustment
	if p.PaymentMethod != MethodRefund {
		for _, it := range p.Items {
			if _, err := s.inventory.AdjustStock(ctx, it.ProductID, it.Quantity, actor, lifecycle.ReasonRefund); err != nil {
				s.revert(ctx, applied, actor)
				return Payment{}, fmt.Errorf("item %s: %w", it.ProductID, err)
			}
			applied = append(applied, adjustment{productID: it.ProductID, delta: it.Quantity})
		}
	}
	if _, err := s.repo.Delete(ctx, id); err != nil {
		s.revert(ctx, applied, actor)
		return Payment{}, err
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *Service) revert(ctx context.Context, applied []adjustment, actor string) {
	for i := len(applied) - 1; i >= 0; i-- {
		a := applied[i]
		if _, err := s.inventory.AdjustStock(ctx, a.productID, -a.delta, actor, lifecycle.ReasonRollback); err != nil {
			s.logger.Error("payment stock rollback failed",
				slog.String("product", a.productID.String()),
				slog.Int64("delta", -a.delta),
				slog.Any("error", err))
		}
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", slog.Any("error", err))
	}
}

// notFound wraps a missing payment id.
func notFound(id uuid.UUID) error {
	return fmt.Errorf("payment %s: %w", id, shared.ErrNotFound)
}
