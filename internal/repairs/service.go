package repairs

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopmanager/shopmanager/internal/lifecycle"
	"github.com/shopmanager/shopmanager/internal/platform/validate"
	"github.com/shopmanager/shopmanager/internal/products"
	"github.com/shopmanager/shopmanager/internal/sequence"
	"github.com/shopmanager/shopmanager/internal/shared"
)

// Inventory is the product surface repair carts draw stock from.
type Inventory interface {
	GetByKey(ctx context.Context, key string) (lifecycle.Record[products.Product], error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta int64, actor string, reason lifecycle.Reason) (lifecycle.Record[products.Product], error)
}

// Service layers repair job rules over the lifecycle manager.
type Service struct {
	*lifecycle.Manager[Job]
	inventory Inventory
	seq       sequence.Sequencer
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds Service. Totals are recomputed on every edit.
func NewService(store lifecycle.Store[Job], inventory Inventory, seq sequence.Sequencer, logger *slog.Logger, opts ...lifecycle.Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	mgr := lifecycle.NewManager[Job](Schema, store, logger, opts...).Derive(Recalculate)
	return &Service{
		Manager:   mgr,
		inventory: inventory,
		seq:       seq,
		logger:    logger.With(slog.String("module", "repairs")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create assigns the invoice and repair code and opens the job as Pending
// unless a status was given. Cart lines are only added through SelectProducts.
func (s *Service) Create(ctx context.Context, job Job, actor string) (lifecycle.Record[Job], error) {
	n, err := s.seq.Next(ctx, sequence.RepairInvoice)
	if err != nil {
		return lifecycle.Record[Job]{}, fmt.Errorf("repairs: allocate invoice: %w", err)
	}
	job.RepairInvoice = sequence.Format("REP", n, 2)
	job.RepairCode = fmt.Sprintf("RC-%d-%d", s.now().UnixMilli(), rand.IntN(10000))
	job.RepairCart = nil
	if strings.TrimSpace(job.CustomerType) == "" {
		job.CustomerType = "New Customer"
	}
	if strings.TrimSpace(job.RepairStatus) == "" {
		job.RepairStatus = StatusPending
	}
	if strings.TrimSpace(job.ItemName) == "" {
		job.ItemName = job.DeviceType
	}
	return s.Manager.Create(ctx, job, actor)
}

type taken struct {
	productID uuid.UUID
	itemCode  string
	itemName  string
	quantity  int64
	unitPrice float64
	delta     int64
}

// SelectProducts draws stock for each selection and merges it into the cart.
// Stock already drawn is put back if a later step fails.
func (s *Service) SelectProducts(ctx context.Context, id uuid.UUID, in SelectionInput, actor string) (lifecycle.Record[Job], error) {
	if err := validate.Struct(in); err != nil {
		return lifecycle.Record[Job]{}, err
	}
	if err := s.requireLive(ctx, id); err != nil {
		return lifecycle.Record[Job]{}, err
	}

	var drawn []taken
	for _, sel := range in.Products {
		prod, err := s.inventory.GetByKey(ctx, sel.ItemCode)
		if err != nil {
			s.putBack(ctx, drawn, actor)
			return lifecycle.Record[Job]{}, err
		}
		after, err := s.inventory.AdjustStock(ctx, prod.ID, -sel.Quantity, actor, lifecycle.ReasonRepair)
		if err != nil {
			s.putBack(ctx, drawn, actor)
			return lifecycle.Record[Job]{}, fmt.Errorf("product %s: %w", sel.ItemCode, err)
		}
		drawn = append(drawn, taken{
			productID: prod.ID,
			itemCode:  sel.ItemCode,
			itemName:  after.Fields.ItemName,
			quantity:  sel.Quantity,
			unitPrice: after.Fields.SellingPrice,
			delta:     -sel.Quantity,
		})
	}

	rec, err := s.Modify(ctx, id, actor, func(job *Job) (*lifecycle.Change, error) {
		old := append([]CartLine(nil), job.RepairCart...)
		for _, d := range drawn {
			merged := false
			for i := range job.RepairCart {
				line := &job.RepairCart[i]
				if line.ItemCode != d.itemCode {
					continue
				}
				line.Quantity += d.quantity
				line.Cost = round2(d.unitPrice * float64(line.Quantity))
				merged = true
				break
			}
			if !merged {
				job.RepairCart = append(job.RepairCart, CartLine{
					ItemCode: d.itemCode,
					ItemName: d.itemName,
					Quantity: d.quantity,
					Cost:     round2(d.unitPrice * float64(d.quantity)),
				})
			}
		}
		job.RepairStatus = StatusInProgress
		if job.ItemName == "" {
			job.ItemName = job.DeviceType
		}
		return &lifecycle.Change{Type: lifecycle.ChangeSelect, Field: "selectProductsForRepair", OldValue: old, NewValue: job.RepairCart}, nil
	})
	if err != nil {
		s.putBack(ctx, drawn, actor)
		return lifecycle.Record[Job]{}, err
	}
	return rec, nil
}

// ReturnProducts restocks the returned quantities, then shrinks the cart.
// Restocks already applied are taken back if a later step fails.
func (s *Service) ReturnProducts(ctx context.Context, id uuid.UUID, in SelectionInput, actor string) (lifecycle.Record[Job], error) {
	if err := validate.Struct(in); err != nil {
		return lifecycle.Record[Job]{}, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return lifecycle.Record[Job]{}, err
	}
	if current.Deleted {
		return lifecycle.Record[Job]{}, fmt.Errorf("repair %s is deleted: %w", id, shared.ErrNotFound)
	}
	if _, err := shrinkCart(current.Fields.RepairCart, in.Products); err != nil {
		return lifecycle.Record[Job]{}, err
	}

	var restocked []taken
	for _, sel := range in.Products {
		prod, err := s.inventory.GetByKey(ctx, sel.ItemCode)
		if err != nil {
			s.putBack(ctx, restocked, actor)
			return lifecycle.Record[Job]{}, err
		}
		if _, err := s.inventory.AdjustStock(ctx, prod.ID, sel.Quantity, actor, lifecycle.ReasonReturn); err != nil {
			s.putBack(ctx, restocked, actor)
			return lifecycle.Record[Job]{}, fmt.Errorf("product %s: %w", sel.ItemCode, err)
		}
		restocked = append(restocked, taken{productID: prod.ID, itemCode: sel.ItemCode, delta: sel.Quantity})
	}

	rec, err := s.Modify(ctx, id, actor, func(job *Job) (*lifecycle.Change, error) {
		old := append([]CartLine(nil), job.RepairCart...)
		cart, err := shrinkCart(job.RepairCart, in.Products)
		if err != nil {
			return nil, err
		}
		job.RepairCart = cart
		return &lifecycle.Change{Type: lifecycle.ChangeSelect, Field: "returnProductsFromRepair", OldValue: old, NewValue: job.RepairCart}, nil
	})
	if err != nil {
		s.putBack(ctx, restocked, actor)
		return lifecycle.Record[Job]{}, err
	}
	return rec, nil
}

// shrinkCart removes the selected quantities from a copy of cart.
func shrinkCart(cart []CartLine, sels []Selection) ([]CartLine, error) {
	out := append([]CartLine(nil), cart...)
	for _, sel := range sels {
		idx := -1
		for i, line := range out {
			if line.ItemCode == sel.ItemCode {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, shared.NewValidationError("itemCode", "item "+sel.ItemCode+" not found in repair cart")
		}
		line := out[idx]
		if sel.Quantity > line.Quantity {
			return nil, shared.NewValidationError("quantity", fmt.Sprintf("return quantity %d for %s exceeds cart quantity %d", sel.Quantity, sel.ItemCode, line.Quantity))
		}
		if sel.Quantity == line.Quantity {
			out = append(out[:idx], out[idx+1:]...)
			continue
		}
		unit := line.Cost / float64(line.Quantity)
		line.Quantity -= sel.Quantity
		line.Cost = round2(unit * float64(line.Quantity))
		out[idx] = line
	}
	return out, nil
}

// AddService appends an unpaid additional service.
func (s *Service) AddService(ctx context.Context, id uuid.UUID, in AdditionalServiceInput, actor string) (lifecycle.Record[Job], error) {
	in.ServiceName = strings.TrimSpace(in.ServiceName)
	if err := validate.Struct(in); err != nil {
		return lifecycle.Record[Job]{}, err
	}
	return s.Modify(ctx, id, actor, func(job *Job) (*lifecycle.Change, error) {
		old := append([]AdditionalService(nil), job.AdditionalServices...)
		job.AdditionalServices = append(job.AdditionalServices, AdditionalService{
			ServiceName:   in.ServiceName,
			ServiceAmount: in.ServiceAmount,
			Description:   strings.TrimSpace(in.Description),
			DateAdded:     s.now(),
		})
		return &lifecycle.Change{Type: lifecycle.ChangeUpdate, Field: "additionalServices", OldValue: old, NewValue: job.AdditionalServices}, nil
	})
}

// PayService marks the additional service at index as paid. Paying twice is
// a no-op.
func (s *Service) PayService(ctx context.Context, id uuid.UUID, index int, actor string) (lifecycle.Record[Job], error) {
	return s.Modify(ctx, id, actor, func(job *Job) (*lifecycle.Change, error) {
		if index < 0 || index >= len(job.AdditionalServices) {
			return nil, shared.NewValidationError("serviceIndex", fmt.Sprintf("invalid service index %d", index))
		}
		if job.AdditionalServices[index].IsPaid {
			return nil, nil
		}
		job.AdditionalServices[index].IsPaid = true
		return &lifecycle.Change{
			Type:     lifecycle.ChangeUpdate,
			Field:    fmt.Sprintf("additionalServices.%d.isPaid", index),
			OldValue: false,
			NewValue: true,
		}, nil
	})
}

// CountByStatus tallies live, non-deleted jobs by repair status.
func (s *Service) CountByStatus(ctx context.Context) (map[string]int, error) {
	recs, err := s.List(ctx, lifecycle.Query{State: lifecycle.AnyState})
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, rec := range recs {
		if !rec.Deleted {
			counts[rec.Fields.RepairStatus]++
		}
	}
	return counts, nil
}

func (s *Service) requireLive(ctx context.Context, id uuid.UUID) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.Deleted {
		return fmt.Errorf("repair %s is deleted: %w", id, shared.ErrNotFound)
	}
	return nil
}

// putBack applies the opposite of each recorded delta, newest first.
func (s *Service) putBack(ctx context.Context, drawn []taken, actor string) {
	for i := len(drawn) - 1; i >= 0; i-- {
		d := drawn[i]
		if _, err := s.inventory.AdjustStock(ctx, d.productID, -d.delta, actor, lifecycle.ReasonRollback); err != nil {
			s.logger.Error("repair stock rollback failed",
				slog.String("itemCode", d.itemCode),
				slog.Int64("delta", -d.delta),
				slog.Any("error", err))
		}
	}
}
