package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/shopmanager/shopmanager/internal/shared"
)

// Memory is a process-local Repository for tests and test mode.
type Memory struct {
	mu          sync.Mutex
	income      map[uuid.UUID]ExtraIncome
	maintenance map[uuid.UUID]Maintenance
	catalogs    map[Catalog]map[uuid.UUID]CatalogEntry
	customers   map[uuid.UUID]Customer
}

// NewMemory constructs an empty Memory repository.
func NewMemory() *Memory {
	return &Memory{
		income:      map[uuid.UUID]ExtraIncome{},
		maintenance: map[uuid.UUID]Maintenance{},
		catalogs:    map[Catalog]map[uuid.UUID]CatalogEntry{DeviceTypes: {}, DeviceIssues: {}},
		customers:   map[uuid.UUID]Customer{},
	}
}

func (m *Memory) InsertIncome(_ context.Context, e ExtraIncome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.income[e.ID] = e
	return nil
}

func (m *Memory) GetIncome(_ context.Context, id uuid.UUID) (ExtraIncome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.income[id]
	if !ok {
		return ExtraIncome{}, notFound("extra income", id)
	}
	return e, nil
}

func (m *Memory) ListIncome(context.Context) ([]ExtraIncome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := values(m.income)
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *Memory) UpdateIncome(_ context.Context, e ExtraIncome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.income[e.ID]; !ok {
		return notFound("extra income", e.ID)
	}
	m.income[e.ID] = e
	return nil
}

func (m *Memory) DeleteIncome(_ context.Context, id uuid.UUID) error {
	return remove(&m.mu, m.income, "extra income", id)
}

func (m *Memory) InsertMaintenance(_ context.Context, rec Maintenance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.maintenance {
		if other.No == rec.No {
			return fmt.Errorf("%w: maintenance no %d", shared.ErrDuplicateKey, rec.No)
		}
	}
	m.maintenance[rec.ID] = rec
	return nil
}

func (m *Memory) GetMaintenance(_ context.Context, id uuid.UUID) (Maintenance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.maintenance[id]
	if !ok {
		return Maintenance{}, notFound("maintenance", id)
	}
	return rec, nil
}

func (m *Memory) ListMaintenance(context.Context) ([]Maintenance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := values(m.maintenance)
	sort.Slice(out, func(i, j int) bool { return out[i].No < out[j].No })
	return out, nil
}

func (m *Memory) UpdateMaintenance(_ context.Context, rec Maintenance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.maintenance[rec.ID]
	if !ok {
		return notFound("maintenance", rec.ID)
	}
	cur.ServiceType, cur.Price, cur.Remarks = rec.ServiceType, rec.Price, rec.Remarks
	m.maintenance[rec.ID] = cur
	return nil
}

func (m *Memory) DeleteMaintenance(_ context.Context, id uuid.UUID) error {
	return remove(&m.mu, m.maintenance, "maintenance", id)
}

func (m *Memory) InsertEntry(_ context.Context, c Catalog, e CatalogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.catalogs[c] {
		if other.Name == e.Name {
			return fmt.Errorf("%w: %s %s", shared.ErrDuplicateKey, c, e.Name)
		}
	}
	m.catalogs[c][e.ID] = e
	return nil
}

func (m *Memory) ListEntries(_ context.Context, c Catalog) ([]CatalogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := values(m.catalogs[c])
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return strings.Compare(out[i].Name, out[j].Name) < 0
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) DeleteEntry(_ context.Context, c Catalog, id uuid.UUID) error {
	return remove(&m.mu, m.catalogs[c], string(c), id)
}

func (m *Memory) InsertCustomer(_ context.Context, c Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = c
	return nil
}

func (m *Memory) GetCustomer(_ context.Context, id uuid.UUID) (Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return Customer{}, notFound("customer", id)
	}
	return c, nil
}

func (m *Memory) ListCustomers(context.Context) ([]Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := values(m.customers)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeleteCustomer(_ context.Context, id uuid.UUID) error {
	return remove(&m.mu, m.customers, "customer", id)
}

func values[T any](rows map[uuid.UUID]T) []T {
	out := make([]T, 0, len(rows))
	for _, v := range rows {
		out = append(out, v)
	}
	return out
}

func remove[T any](mu *sync.Mutex, rows map[uuid.UUID]T, what string, id uuid.UUID) error {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := rows[id]; !ok {
		return notFound(what, id)
	}
	delete(rows, id)
	return nil
}

var _ Repository = (*Memory)(nil)
