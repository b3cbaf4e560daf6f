package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopmanager/shopmanager/internal/platform/validate"
	"github.com/shopmanager/shopmanager/internal/sequence"
	"github.com/shopmanager/shopmanager/internal/shared"
)

// Repository stores every ledger.
type Repository interface {
	InsertIncome(ctx context.Context, e ExtraIncome) error
	GetIncome(ctx context.Context, id uuid.UUID) (ExtraIncome, error)
	ListIncome(ctx context.Context) ([]ExtraIncome, error)
	UpdateIncome(ctx context.Context, e ExtraIncome) error
	DeleteIncome(ctx context.Context, id uuid.UUID) error

	InsertMaintenance(ctx context.Context, m Maintenance) error
	GetMaintenance(ctx context.Context, id uuid.UUID) (Maintenance, error)
	ListMaintenance(ctx context.Context) ([]Maintenance, error)
	UpdateMaintenance(ctx context.Context, m Maintenance) error
	DeleteMaintenance(ctx context.Context, id uuid.UUID) error

	InsertEntry(ctx context.Context, c Catalog, e CatalogEntry) error
	ListEntries(ctx context.Context, c Catalog) ([]CatalogEntry, error)
	DeleteEntry(ctx context.Context, c Catalog, id uuid.UUID) error

	InsertCustomer(ctx context.Context, c Customer) error
	GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
}

// Service applies ledger rules.
type Service struct {
	repo   Repository
	seq    sequence.Sequencer
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs Service. seq numbers maintenance records.
func NewService(repo Repository, seq sequence.Sequencer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		seq:    seq,
		logger: logger.With(slog.String("module", "ledger")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) CreateIncome(ctx context.Context, in ExtraIncomeInput) (ExtraIncome, error) {
	in.IncomeType = strings.TrimSpace(in.IncomeType)
	if err := validate.Struct(in); err != nil {
		return ExtraIncome{}, err
	}
	now := s.now()
	e := ExtraIncome{ID: uuid.New(), CreatedAt: now}
	e = applyIncome(e, in, now)
	if err := s.repo.InsertIncome(ctx, e); err != nil {
		return ExtraIncome{}, err
	}
	return e, nil
}

func (s *Service) ListIncome(ctx context.Context) ([]ExtraIncome, error) {
	return s.repo.ListIncome(ctx)
}

func (s *Service) UpdateIncome(ctx context.Context, id uuid.UUID, in ExtraIncomeInput) (ExtraIncome, error) {
	in.IncomeType = strings.TrimSpace(in.IncomeType)
	if err := validate.Struct(in); err != nil {
		return ExtraIncome{}, err
	}
	cur, err := s.repo.GetIncome(ctx, id)
	if err != nil {
		return ExtraIncome{}, err
	}
	e := applyIncome(cur, in, cur.Date)
	if err := s.repo.UpdateIncome(ctx, e); err != nil {
		return ExtraIncome{}, err
	}
	return e, nil
}

func (s *Service) DeleteIncome(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteIncome(ctx, id)
}

func applyIncome(e ExtraIncome, in ExtraIncomeInput, defaultDate time.Time) ExtraIncome {
	e.Date = defaultDate
	if in.Date != nil {
		e.Date = in.Date.UTC()
	}
	e.IncomeType = in.IncomeType
	e.Amount = in.Amount
	e.Description = strings.TrimSpace(in.Description)
	return e
}

// CreateMaintenance numbers and stamps a maintenance record.
func (s *Service) CreateMaintenance(ctx context.Context, in MaintenanceInput) (Maintenance, error) {
	in.ServiceType = strings.TrimSpace(in.ServiceType)
	if err := validate.Struct(in); err != nil {
		return Maintenance{}, err
	}
	no, err := s.seq.Next(ctx, sequence.Maintenance)
	if err != nil {
		return Maintenance{}, fmt.Errorf("ledger: next maintenance number: %w", err)
	}
	now := s.now()
	m := Maintenance{
		ID:          uuid.New(),
		No:          no,
		Date:        now.Format(time.DateOnly),
		Time:        now.Format(time.TimeOnly),
		ServiceType: in.ServiceType,
		Price:       in.Price,
		Remarks:     in.Remarks,
	}
	if err := s.repo.InsertMaintenance(ctx, m); err != nil {
		return Maintenance{}, err
	}
	return m, nil
}

func (s *Service) ListMaintenance(ctx context.Context) ([]Maintenance, error) {
	return s.repo.ListMaintenance(ctx)
}

func (s *Service) GetMaintenance(ctx context.Context, id uuid.UUID) (Maintenance, error) {
	return s.repo.GetMaintenance(ctx, id)
}

// UpdateMaintenance replaces service type, price and remarks. Number, date
// and time never change.
func (s *Service) UpdateMaintenance(ctx context.Context, id uuid.UUID, in MaintenanceInput) (Maintenance, error) {
	in.ServiceType = strings.TrimSpace(in.ServiceType)
	if err := validate.Struct(in); err != nil {
		return Maintenance{}, err
	}
	m, err := s.repo.GetMaintenance(ctx, id)
	if err != nil {
		return Maintenance{}, err
	}
	m.ServiceType, m.Price, m.Remarks = in.ServiceType, in.Price, in.Remarks
	if err := s.repo.UpdateMaintenance(ctx, m); err != nil {
		return Maintenance{}, err
	}
	return m, nil
}

func (s *Service) DeleteMaintenance(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteMaintenance(ctx, id)
}

// AddEntry adds a trimmed, unique name to a device catalog.
func (s *Service) AddEntry(ctx context.Context, c Catalog, in CatalogInput) (CatalogEntry, error) {
	name := in.value()
	if name == "" {
		return CatalogEntry{}, shared.NewValidationError("name", "is required")
	}
	e := CatalogEntry{ID: uuid.New(), Name: name, CreatedAt: s.now()}
	if err := s.repo.InsertEntry(ctx, c, e); err != nil {
		return CatalogEntry{}, err
	}
	return e, nil
}

// Entries lists a catalog, newest first.
func (s *Service) Entries(ctx context.Context, c Catalog) ([]CatalogEntry, error) {
	return s.repo.ListEntries(ctx, c)
}

func (s *Service) DeleteEntry(ctx context.Context, c Catalog, id uuid.UUID) error {
	return s.repo.DeleteEntry(ctx, c, id)
}

// CreateCustomer opens a credit or wholesale account.
func (s *Service) CreateCustomer(ctx context.Context, in CustomerInput) (Customer, error) {
	in.NIC = strings.TrimSpace(in.NIC)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Mobile = strings.TrimSpace(in.Mobile)
	if err := validate.Struct(in); err != nil {
		return Customer{}, err
	}
	now := s.now()
	c := Customer{
		ID:           uuid.New(),
		NIC:          in.NIC,
		CustomerName: in.CustomerName,
		Mobile:       in.Mobile,
		Address:      strings.TrimSpace(in.Address),
		TotalAmount:  in.TotalAmount,
		PaymentType:  in.PaymentType,
		Items:        in.Items,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if c.Items == nil {
		c.Items = []CustomerItem{}
	}
	if err := s.repo.InsertCustomer(ctx, c); err != nil {
		return Customer{}, err
	}
	s.logger.Info("customer account opened", slog.String("payment_type", c.PaymentType), slog.Float64("total", c.TotalAmount))
	return c, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteCustomer(ctx, id)
}
