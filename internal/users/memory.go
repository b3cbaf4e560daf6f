package users

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
	mu   sync.Mutex
	rows map[uuid.UUID]User
}

// NewMemory constructs an empty Memory repository.
func NewMemory() *Memory {
	return &Memory{rows: map[uuid.UUID]User{}}
}

func (m *Memory) Create(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(u.Email, u.ID) {
		return fmt.Errorf("email %s: %w", u.Email, shared.ErrDuplicateKey)
	}
	m.rows[u.ID] = u
	return nil
}

func (m *Memory) FindByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("user: %w", shared.ErrNotFound)
}

func (m *Memory) FindByID(_ context.Context, id uuid.UUID) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return User{}, notFound(id)
	}
	return u, nil
}

func (m *Memory) List(context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]User, 0, len(m.rows))
	for _, u := range m.rows {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows), nil
}

func (m *Memory) Update(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[u.ID]
	if !ok {
		return notFound(u.ID)
	}
	if m.emailTaken(u.Email, u.ID) {
		return fmt.Errorf("email %s: %w", u.Email, shared.ErrDuplicateKey)
	}
	u.PasswordHash = cur.PasswordHash
	u.CreatedAt = cur.CreatedAt
	m.rows[u.ID] = u
	return nil
}

func (m *Memory) SetPassword(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return notFound(id)
	}
	u.PasswordHash = hash
	m.rows[id] = u
	return nil
}

func (m *Memory) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return notFound(id)
	}
	delete(m.rows, id)
	return nil
}

func (m *Memory) emailTaken(email string, except uuid.UUID) bool {
	for id, u := range m.rows {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

var _ Repository = (*Memory)(nil)
