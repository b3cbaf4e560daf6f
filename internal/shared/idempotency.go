package shared

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyHeader carries the client-chosen request key.
const IdempotencyHeader = "Idempotency-Key"

// IdempotencyKeys remembers processed request keys per module.
type IdempotencyKeys interface {
	// Claim records key; a key seen before yields ErrDuplicateKey.
	Claim(ctx context.Context, module, key string) error
	// Release forgets key so the request can be retried.
	Release(ctx context.Context, module, key string) error
}

// IdempotencyStore persists processed keys in idempotency_keys.
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// Claim implements IdempotencyKeys.
func (s *IdempotencyStore) Claim(ctx context.Context, module, key string) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	if err := checkIdempotency(module, key); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO idempotency_keys (module, key, created_at) VALUES ($1, $2, $3)`, module, key, time.Now().UTC())
	return MapUniqueViolation(err, "request "+key+" already processed")
}

// Release implements IdempotencyKeys.
func (s *IdempotencyStore) Release(ctx context.Context, module, key string) error {
	if s == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE module = $1 AND key = $2`, module, key)
	return err
}

// Cleanup removes entries older than retention.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MemoryIdempotency is an in-process IdempotencyKeys.
type MemoryIdempotency struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryIdempotency constructs an empty MemoryIdempotency.
func NewMemoryIdempotency() *MemoryIdempotency {
	return &MemoryIdempotency{seen: make(map[string]struct{})}
}

// Claim implements IdempotencyKeys.
func (m *MemoryIdempotency) Claim(_ context.Context, module, key string) error {
	if err := checkIdempotency(module, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := module + "\x00" + key
	if _, ok := m.seen[id]; ok {
		return fmt.Errorf("%w: request %s already processed", ErrDuplicateKey, key)
	}
	m.seen[id] = struct{}{}
	return nil
}

// Release implements IdempotencyKeys.
func (m *MemoryIdempotency) Release(_ context.Context, module, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, module+"\x00"+key)
	return nil
}

func checkIdempotency(module, key string) error {
	if module == "" {
		return errors.New("idempotency module required")
	}
	if key == "" || len(key) > 128 {
		return NewValidationError(IdempotencyHeader, "must be 1 to 128 characters")
	}
	return nil
}
