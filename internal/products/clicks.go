package products

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/shopmanager/shopmanager/internal/lifecycle"
	"github.com/shopmanager/shopmanager/internal/shared"
)

// ClickLimit caps the click snapshot listing.
const ClickLimit = 100

// ClickRepository persists click snapshots.
type ClickRepository interface {
	InsertClick(ctx context.Context, c ClickedProduct) error
	GetClick(ctx context.Context, id uuid.UUID) (ClickedProduct, error)
	ListClicks(ctx context.Context, limit int) ([]ClickedProduct, error)
	DeleteClick(ctx context.Context, id uuid.UUID) error
}

var errClicksDisabled = errors.New("products: click log not configured")

// WithClicks attaches the click snapshot repository.
func (s *Service) WithClicks(repo ClickRepository) *Service {
	s.clicks = repo
	return s
}

// Click flags a product as picked for Add Product and stores a snapshot of
// it. A product can be clicked once until its snapshot is removed.
func (s *Service) Click(ctx context.Context, id uuid.UUID, clickedBy string) (ClickedProduct, error) {
	if s.clicks == nil {
		return ClickedProduct{}, errClicksDisabled
	}
	clickedBy = strings.TrimSpace(clickedBy)
	if clickedBy == "" {
		clickedBy = "system"
	}
	now := s.now()
	rec, err := s.Modify(ctx, id, clickedBy, func(p *Product) (*lifecycle.Change, error) {
		if p.ClickedForAdd {
			return nil, shared.NewValidationError("clickedForAdd", "product already clicked for Add Product")
		}
		p.ClickedForAdd = true
		p.ClickedAt = &now
		p.ClickedBy = clickedBy
		return &lifecycle.Change{Type: lifecycle.ChangeUpdate, Field: "clickedForAdd", OldValue: false, NewValue: true}, nil
	})
	if err != nil {
		return ClickedProduct{}, err
	}

	p := rec.Fields
	click := ClickedProduct{
		ID:           uuid.New(),
		ProductID:    rec.ID,
		ItemCode:     p.ItemCode,
		ItemName:     p.ItemName,
		Category:     p.Category,
		BuyingPrice:  p.BuyingPrice,
		SellingPrice: p.SellingPrice,
		Stock:        p.Stock,
		SupplierName: p.SupplierName,
		ClickedAt:    now,
		ClickedBy:    clickedBy,
		Status:       ClickActive,
	}
	if err := s.clicks.InsertClick(ctx, click); err != nil {
		if _, uerr := s.clearClick(ctx, rec.ID, clickedBy); uerr != nil {
			s.logger.Error("click flag rollback failed", slog.String("product", rec.ID.String()), slog.Any("error", uerr))
		}
		return ClickedProduct{}, err
	}
	return click, nil
}

// ListClicks returns the latest click snapshots, newest first.
func (s *Service) ListClicks(ctx context.Context) ([]ClickedProduct, error) {
	if s.clicks == nil {
		return nil, errClicksDisabled
	}
	return s.clicks.ListClicks(ctx, ClickLimit)
}

// Available lists active products that have not been clicked.
func (s *Service) Available(ctx context.Context, q lifecycle.Query) ([]lifecycle.Record[Product], error) {
	q.State = lifecycle.OnlyActive
	recs, err := s.List(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]lifecycle.Record[Product], 0, len(recs))
	for _, rec := range recs {
		if !rec.Fields.ClickedForAdd {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Unclick removes a click snapshot and clears the product's flag. A product
// that is gone or deleted keeps no flag to clear.
func (s *Service) Unclick(ctx context.Context, clickID uuid.UUID, actor string) error {
	if s.clicks == nil {
		return errClicksDisabled
	}
	click, err := s.clicks.GetClick(ctx, clickID)
	if err != nil {
		return err
	}
	if _, err := s.clearClick(ctx, click.ProductID, actor); err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		s.logger.Warn("unclick target missing", slog.String("product", click.ProductID.String()))
	}
	return s.clicks.DeleteClick(ctx, clickID)
}

func (s *Service) clearClick(ctx context.Context, id uuid.UUID, actor string) (lifecycle.Record[Product], error) {
	return s.Modify(ctx, id, actor, func(p *Product) (*lifecycle.Change, error) {
		if !p.ClickedForAdd {
			return nil, nil
		}
		p.ClickedForAdd = false
		p.ClickedAt = nil
		p.ClickedBy = ""
		return &lifecycle.Change{Type: lifecycle.ChangeUpdate, Field: "clickedForAdd", OldValue: true, NewValue: false}, nil
	})
}

func clickNotFound(id uuid.UUID) error {
	return fmt.Errorf("clicked product %s: %w", id, shared.ErrNotFound)
}
