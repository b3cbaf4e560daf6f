package products

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryClicks is a process-local ClickRepository for tests and test mode.
type MemoryClicks struct {
	mu   sync.Mutex
	rows map[uuid.UUID]ClickedProduct
}

// NewMemoryClicks constructs an empty MemoryClicks.
func NewMemoryClicks() *MemoryClicks {
	return &MemoryClicks{rows: map[uuid.UUID]ClickedProduct{}}
}

func (m *MemoryClicks) InsertClick(_ context.Context, c ClickedProduct) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.ID] = c
	return nil
}

func (m *MemoryClicks) GetClick(_ context.Context, id uuid.UUID) (ClickedProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return ClickedProduct{}, clickNotFound(id)
	}
	return c, nil
}

func (m *MemoryClicks) ListClicks(_ context.Context, limit int) ([]ClickedProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ClickedProduct, 0, len(m.rows))
	for _, c := range m.rows {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClickedAt.After(out[j].ClickedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryClicks) DeleteClick(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return clickNotFound(id)
	}
	delete(m.rows, id)
	return nil
}
