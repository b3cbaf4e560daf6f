package suppliers

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopmanager/shopmanager/internal/lifecycle"
	"github.com/shopmanager/shopmanager/internal/platform/validate"
	"github.com/shopmanager/shopmanager/internal/shared"
)

// GRNRepository persists goods received notes.
type GRNRepository interface {
	InsertGRN(ctx context.Context, grn GRN) error
	ListGRNs(ctx context.Context, supplierID uuid.UUID) ([]GRN, error)
	GetGRN(ctx context.Context, supplierID, id uuid.UUID) (GRN, error)
	DeleteGRN(ctx context.Context, supplierID, id uuid.UUID) error
}

// Service layers supplier cart, payment and GRN rules over the lifecycle.
type Service struct {
	*lifecycle.Manager[Supplier]
	grns   GRNRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service over the given store.
func NewService(store lifecycle.Store[Supplier], grns GRNRepository, logger *slog.Logger, opts ...lifecycle.Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Manager: lifecycle.NewManager[Supplier](Schema, store, logger, opts...),
		grns:    grns,
		logger:  logger.With(slog.String("module", "suppliers")),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// AddItem appends a line to the supplier's cart.
func (s *Service) AddItem(ctx context.Context, id uuid.UUID, item CartItem, actor string) (lifecycle.Record[Supplier], error) {
	if err := validate.Struct(item); err != nil {
		return lifecycle.Record[Supplier]{}, err
	}
	if strings.TrimSpace(item.GRNNumber) == "" {
		item.GRNNumber = newGRNNumber()
	}
	return s.Modify(ctx, id, actor, func(sup *Supplier) (*lifecycle.Change, error) {
		sup.Items = append(sup.Items, item)
		return &lifecycle.Change{Type: lifecycle.ChangeCart, Field: "cart-add", NewValue: item}, nil
	})
}

// UpdateItem patches the cart line at index.
func (s *Service) UpdateItem(ctx context.Context, id uuid.UUID, index int, patch ItemPatch, actor string) (lifecycle.Record[Supplier], error) {
	return s.Modify(ctx, id, actor, func(sup *Supplier) (*lifecycle.Change, error) {
		if index < 0 || index >= len(sup.Items) {
			return nil, shared.NewValidationError("itemIndex", "invalid item index")
		}
		old := sup.Items[index]
		next := old
		patch.apply(&next)
		if err := validate.Struct(next); err != nil {
			return nil, err
		}
		sup.Items[index] = next
		return &lifecycle.Change{Type: lifecycle.ChangeCart, Field: "cart-update", OldValue: old, NewValue: next}, nil
	})
}

// RemoveItem deletes the cart line at index.
func (s *Service) RemoveItem(ctx context.Context, id uuid.UUID, index int, actor string) (lifecycle.Record[Supplier], error) {
	return s.Modify(ctx, id, actor, func(sup *Supplier) (*lifecycle.Change, error) {
		if index < 0 || index >= len(sup.Items) {
			return nil, shared.NewValidationError("itemIndex", "invalid item index")
		}
		old := sup.Items[index]
		sup.Items = append(sup.Items[:index], sup.Items[index+1:]...)
		return &lifecycle.Change{Type: lifecycle.ChangeCart, Field: "cart-delete", OldValue: old}, nil
	})
}

// RecordPayment adds a payment that may not exceed the amount due.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, in PaymentInput, actor string) (lifecycle.Record[Supplier], error) {
	if err := validate.Struct(in); err != nil {
		return lifecycle.Record[Supplier]{}, err
	}
	return s.Modify(ctx, id, actor, func(sup *Supplier) (*lifecycle.Change, error) {
		due := round2(sup.Total() - sup.TotalPayments)
		if in.Amount > due {
			return nil, shared.NewValidationError("amount", fmt.Sprintf("cannot exceed amount due %.2f", due))
		}
		old := sup.TotalPayments
		sup.TotalPayments = round2(old + in.Amount)
		return &lifecycle.Change{Type: lifecycle.ChangeUpdate, Field: "totalPayments", OldValue: old, NewValue: sup.TotalPayments}, nil
	})
}

// Balance returns the supplier's cart total, payments and amount due.
func (s *Service) Balance(ctx context.Context, id uuid.UUID) (Balance, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return Balance{}, err
	}
	total := round2(rec.Fields.Total())
	return Balance{Total: total, Paid: rec.Fields.TotalPayments, Due: round2(total - rec.Fields.TotalPayments)}, nil
}

// CreateGRN records a goods received note for a live supplier. A zero total
// is computed from the items.
func (s *Service) CreateGRN(ctx context.Context, supplierID uuid.UUID, in GRNInput) (GRN, error) {
	in.GRNNumber = strings.TrimSpace(in.GRNNumber)
	if err := validate.Struct(in); err != nil {
		return GRN{}, err
	}
	if err := s.requireLive(ctx, supplierID); err != nil {
		return GRN{}, err
	}
	total := in.TotalAmount
	if total == 0 {
		for _, it := range in.Items {
			total += it.BuyingPrice * float64(it.Quantity)
		}
	}
	now := s.now()
	grn := GRN{
		ID:          uuid.New(),
		GRNNumber:   in.GRNNumber,
		SupplierID:  supplierID,
		Date:        now,
		Items:       in.Items,
		TotalAmount: round2(total),
		CreatedAt:   now,
	}
	if err := s.grns.InsertGRN(ctx, grn); err != nil {
		return GRN{}, err
	}
	return grn, nil
}

// ListGRNs returns the supplier's GRNs.
func (s *Service) ListGRNs(ctx context.Context, supplierID uuid.UUID) ([]GRN, error) {
	if _, err := s.Get(ctx, supplierID); err != nil {
		return nil, err
	}
	return s.grns.ListGRNs(ctx, supplierID)
}

// GetGRN returns one GRN belonging to the supplier.
func (s *Service) GetGRN(ctx context.Context, supplierID, id uuid.UUID) (GRN, error) {
	return s.grns.GetGRN(ctx, supplierID, id)
}

// DeleteGRN removes one GRN belonging to the supplier.
func (s *Service) DeleteGRN(ctx context.Context, supplierID, id uuid.UUID) error {
	return s.grns.DeleteGRN(ctx, supplierID, id)
}

func (s *Service) requireLive(ctx context.Context, id uuid.UUID) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.Deleted {
		return fmt.Errorf("supplier %s is deleted: %w", id, shared.ErrNotFound)
	}
	return nil
}

func newGRNNumber() string {
	return "GRN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
