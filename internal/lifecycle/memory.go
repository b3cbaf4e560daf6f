package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/shopmanager/shopmanager/internal/shared"
)

// MemoryStore is a process-local Store used by tests and local runs.
type MemoryStore[T Entity] struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]Record[T]
	archives map[uuid.UUID]ArchiveRecord[T]

	// FailArchive, when set, is returned by every archive write.
	FailArchive error
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore[T Entity]() *MemoryStore[T] {
	return &MemoryStore[T]{
		rows:     map[uuid.UUID]Record[T]{},
		archives: map[uuid.UUID]ArchiveRecord[T]{},
	}
}

func (s *MemoryStore[T]) keyTaken(key string, except uuid.UUID) bool {
	for id, r := range s.rows {
		if id != except && r.Fields.BusinessKey() == key {
			return true
		}
	}
	return false
}

func (s *MemoryStore[T]) Insert(_ context.Context, rec Record[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[rec.ID]; ok {
		return shared.ErrDuplicateKey
	}
	if s.keyTaken(rec.Fields.BusinessKey(), rec.ID) {
		return shared.ErrDuplicateKey
	}
	s.rows[rec.ID] = cloneRecord(rec)
	return nil
}

func (s *MemoryStore[T]) Get(_ context.Context, id uuid.UUID) (Record[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rows[id]
	if !ok {
		return Record[T]{}, shared.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore[T]) GetByKey(_ context.Context, key string) (Record[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.rows {
		if rec.Fields.BusinessKey() == key {
			return cloneRecord(rec), nil
		}
	}
	return Record[T]{}, shared.ErrNotFound
}

func (s *MemoryStore[T]) FindByField(_ context.Context, field, value string) (Record[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var match *Record[T]
	for _, rec := range s.rows {
		if rec.Deleted {
			continue
		}
		m, err := fieldMap(rec.Fields)
		if err != nil {
			return Record[T]{}, err
		}
		if fmt.Sprint(m[field]) != value {
			continue
		}
		if match == nil || rec.CreatedAt.Before(match.CreatedAt) {
			r := rec
			match = &r
		}
	}
	if match == nil {
		return Record[T]{}, shared.ErrNotFound
	}
	return cloneRecord(*match), nil
}

func (s *MemoryStore[T]) List(_ context.Context, q Query) ([]Record[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record[T], 0, len(s.rows))
	for _, rec := range s.rows {
		if !matchState(rec, q.State) || !matchSearch(rec.Fields, q.Search) {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, q), nil
}

func (s *MemoryStore[T]) Mutate(_ context.Context, id uuid.UUID, fn MutateFunc[T]) (Record[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.rows[id]
	if !ok {
		return Record[T]{}, shared.ErrNotFound
	}
	work := cloneRecord(current)
	changed, err := fn(&work)
	if err != nil {
		return Record[T]{}, err
	}
	if !changed {
		return cloneRecord(current), nil
	}
	if len(work.History) < len(current.History) {
		return Record[T]{}, fmt.Errorf("lifecycle: history is append-only")
	}
	work.ID = id
	if s.keyTaken(work.Fields.BusinessKey(), id) {
		return Record[T]{}, shared.ErrDuplicateKey
	}
	s.rows[id] = cloneRecord(work)
	return work, nil
}

func (s *MemoryStore[T]) Increment(_ context.Context, id uuid.UUID, field string, delta int64, rec ChangeRecord) (Record[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.rows[id]
	if !ok || current.Deleted {
		return Record[T]{}, shared.ErrNotFound
	}
	m, err := fieldMap(current.Fields)
	if err != nil {
		return Record[T]{}, err
	}
	var old int64
	if n, ok := m[field].(float64); ok {
		old = int64(n)
	}
	next := old + delta
	if next < 0 {
		return Record[T]{}, fmt.Errorf("%w: available %d, requested %d", shared.ErrInsufficientStock, old, -delta)
	}
	m[field] = next
	fields, err := fromFieldMap[T](m)
	if err != nil {
		return Record[T]{}, err
	}
	work := cloneRecord(current)
	work.Fields = fields
	rec.OldValue = float64(old)
	rec.NewValue = float64(next)
	work.History = append(work.History, rec)
	work.UpdatedAt = rec.ChangedAt
	s.rows[id] = cloneRecord(work)
	return work, nil
}

func (s *MemoryStore[T]) PutArchive(_ context.Context, a ArchiveRecord[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailArchive != nil {
		return s.FailArchive
	}
	if _, ok := s.archives[a.OriginalID]; !ok {
		s.archives[a.OriginalID] = cloneArchive(a)
	}
	return nil
}

func (s *MemoryStore[T]) ArchiveAndRemove(_ context.Context, id uuid.UUID, fn func(rec *Record[T]) (ArchiveRecord[T], error)) (ArchiveRecord[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.rows[id]
	if !ok {
		return ArchiveRecord[T]{}, shared.ErrNotFound
	}
	work := cloneRecord(current)
	archive, err := fn(&work)
	if err != nil {
		return ArchiveRecord[T]{}, err
	}
	if s.FailArchive != nil {
		return ArchiveRecord[T]{}, fmt.Errorf("%w: %v", shared.ErrArchivalFailure, s.FailArchive)
	}
	stored, ok := s.archives[archive.OriginalID]
	if !ok {
		stored = cloneArchive(archive)
		s.archives[archive.OriginalID] = stored
	}
	delete(s.rows, id)
	return cloneArchive(stored), nil
}

func (s *MemoryStore[T]) GetArchive(_ context.Context, originalID uuid.UUID) (ArchiveRecord[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.archives[originalID]
	if !ok {
		return ArchiveRecord[T]{}, shared.ErrNotFound
	}
	return cloneArchive(a), nil
}

func (s *MemoryStore[T]) ListArchives(_ context.Context, q Query) ([]ArchiveRecord[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ArchiveRecord[T], 0, len(s.archives))
	for _, a := range s.archives {
		if matchSearch(a.Fields, q.Search) {
			out = append(out, cloneArchive(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArchivedAt.After(out[j].ArchivedAt) })
	return page(out, q), nil
}

func (s *MemoryStore[T]) RestoreArchive(_ context.Context, originalID uuid.UUID, fn func(a ArchiveRecord[T]) (Record[T], error)) (Record[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.archives[originalID]
	if !ok {
		return Record[T]{}, shared.ErrNotFound
	}
	rec, err := fn(cloneArchive(a))
	if err != nil {
		return Record[T]{}, err
	}
	if _, exists := s.rows[rec.ID]; exists || s.keyTaken(rec.Fields.BusinessKey(), rec.ID) {
		return Record[T]{}, shared.ErrDuplicateKey
	}
	s.rows[rec.ID] = cloneRecord(rec)
	delete(s.archives, originalID)
	return rec, nil
}

func (s *MemoryStore[T]) DeleteArchive(_ context.Context, originalID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.archives[originalID]; !ok {
		return shared.ErrNotFound
	}
	delete(s.archives, originalID)
	return nil
}

func matchState[T Entity](rec Record[T], state StateFilter) bool {
	switch state {
	case OnlyActive:
		return !rec.Deleted && rec.Visible
	case OnlyHidden:
		return !rec.Deleted && !rec.Visible
	case OnlyDeleted:
		return rec.Deleted
	default:
		return true
	}
}

func matchSearch(fields any, search string) bool {
	if search == "" {
		return true
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(raw)), strings.ToLower(search))
}

func page[E any](items []E, q Query) []E {
	if q.Offset > 0 {
		if q.Offset >= len(items) {
			return items[:0]
		}
		items = items[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(items) {
		items = items[:q.Limit]
	}
	return items
}
