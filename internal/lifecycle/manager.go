package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/shopmanager/shopmanager/internal/platform/validate"
	"github.com/shopmanager/shopmanager/internal/shared"
)

// Reason explains a stock adjustment.
type Reason string

const (
	ReasonSale     Reason = "sale"
	ReasonReturn   Reason = "return"
	ReasonRestock  Reason = "restock"
	ReasonRefund   Reason = "refund"
	ReasonRepair   Reason = "repair"
	ReasonRollback Reason = "rollback"
	ReasonManual   Reason = "adjustment"
)

// Schema describes how a tracked type maps onto the lifecycle.
type Schema struct {
	// Entity names the type in history records and archives, e.g. "product".
	Entity string
	// KeyField is the JSON name of the business key.
	KeyField string
	// QuantityField is the JSON name of the integer stock field, if any.
	QuantityField string
	// Immutable lists JSON fields Update refuses to change.
	Immutable []string
}

// Change is what a Modify callback reports about its edit.
type Change struct {
	Type     ChangeType
	Field    string
	OldValue any
	NewValue any
}

// SoftDeleteResult reports the flag change and whether archival succeeded.
type SoftDeleteResult[T Entity] struct {
	Record     Record[T]
	Archived   bool
	ArchiveErr error
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	now      func() time.Time
	observer Observer
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Observer is told about stock movements and archive failures.
type Observer interface {
	StockAdjusted(entity string, reason Reason, delta int64)
	ArchiveFailed(entity string)
}

// WithObserver attaches an Observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

type nopObserver struct{}

func (nopObserver) StockAdjusted(string, Reason, int64) {}
func (nopObserver) ArchiveFailed(string)                {}

// Manager enforces the lifecycle state machine for one tracked type.
type Manager[T Entity] struct {
	schema    Schema
	store     Store[T]
	logger    *slog.Logger
	now       func() time.Time
	known     map[string]bool
	immutable map[string]bool
	derive    func(*T)
	observer  Observer
}

// NewManager constructs a Manager.
func NewManager[T Entity](schema Schema, store Store[T], logger *slog.Logger, opts ...Option) *Manager[T] {
	o := options{now: func() time.Time { return time.Now().UTC() }, observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.Default()
	}
	var zero T
	known := map[string]bool{}
	if m, err := fieldMap(zero); err == nil {
		for k := range m {
			known[k] = true
		}
	}
	immutable := map[string]bool{}
	for _, f := range schema.Immutable {
		immutable[f] = true
	}
	return &Manager[T]{
		schema:    schema,
		store:     store,
		logger:    logger.With(slog.String("entity", schema.Entity)),
		now:       o.now,
		known:     known,
		immutable: immutable,
		observer:  o.observer,
	}
}

// Schema returns the manager's schema.
func (m *Manager[T]) Schema() Schema { return m.schema }

// Derive registers fn to recompute derived fields after every create and
// edit. Derived values are persisted but only caller-sent fields are recorded.
func (m *Manager[T]) Derive(fn func(*T)) *Manager[T] {
	m.derive = fn
	return m
}

// Create inserts a new entity with a single create record.
func (m *Manager[T]) Create(ctx context.Context, fields T, actor string) (Record[T], error) {
	if m.derive != nil {
		m.derive(&fields)
	}
	if err := m.check(fields); err != nil {
		return Record[T]{}, err
	}
	snapshot, err := fieldMap(fields)
	if err != nil {
		return Record[T]{}, err
	}
	now := m.now()
	rec := Record[T]{
		ID:      uuid.New(),
		Fields:  fields,
		Visible: true,
		History: []ChangeRecord{{
			Field:      m.schema.Entity,
			OldValue:   nil,
			NewValue:   snapshot,
			ChangedBy:  actor,
			ChangedAt:  now,
			ChangeType: ChangeCreate,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Insert(ctx, rec); err != nil {
		return Record[T]{}, m.wrap(err, fields.BusinessKey())
	}
	return rec, nil
}

// Get returns a live row in any state.
func (m *Manager[T]) Get(ctx context.Context, id uuid.UUID) (Record[T], error) {
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return Record[T]{}, m.wrap(err, id.String())
	}
	return rec, nil
}

// GetByKey resolves a live row by business key.
func (m *Manager[T]) GetByKey(ctx context.Context, key string) (Record[T], error) {
	rec, err := m.store.GetByKey(ctx, key)
	if err != nil {
		return Record[T]{}, m.wrap(err, key)
	}
	return rec, nil
}

// FindByField resolves the oldest non-deleted row whose field equals value.
func (m *Manager[T]) FindByField(ctx context.Context, field, value string) (Record[T], error) {
	if !m.known[field] {
		return Record[T]{}, shared.NewValidationError(field, "unknown field")
	}
	rec, err := m.store.FindByField(ctx, field, value)
	if err != nil {
		return Record[T]{}, m.wrap(err, field+"="+value)
	}
	return rec, nil
}

// List returns live rows; the zero Query lists active rows.
func (m *Manager[T]) List(ctx context.Context, q Query) ([]Record[T], error) {
	return m.store.List(ctx, q)
}

// ListArchives returns archived snapshots, newest first.
func (m *Manager[T]) ListArchives(ctx context.Context, q Query) ([]ArchiveRecord[T], error) {
	return m.store.ListArchives(ctx, q)
}

// History returns the change history of a live row.
func (m *Manager[T]) History(ctx context.Context, id uuid.UUID) ([]ChangeRecord, error) {
	rec, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.History, nil
}

// Update applies deltas keyed by JSON field name, recording one update per
// sent field whose value actually changes.
func (m *Manager[T]) Update(ctx context.Context, id uuid.UUID, deltas map[string]any, actor string) (Record[T], error) {
	if len(deltas) == 0 {
		return Record[T]{}, shared.Invalidf("no fields to update")
	}
	keys := make([]string, 0, len(deltas))
	normalized := make(map[string]any, len(deltas))
	for k, v := range deltas {
		if !m.known[k] {
			return Record[T]{}, shared.NewValidationError(k, "unknown field")
		}
		if m.immutable[k] {
			return Record[T]{}, shared.NewValidationError(k, "cannot be changed")
		}
		n, err := normalize(v)
		if err != nil {
			return Record[T]{}, err
		}
		normalized[k] = n
		keys = append(keys, k)
	}

	rec, err := m.store.Mutate(ctx, id, func(rec *Record[T]) (bool, error) {
		if rec.Deleted {
			return false, fmt.Errorf("%s %s is deleted: %w", m.schema.Entity, id, shared.ErrNotFound)
		}
		before, err := fieldMap(rec.Fields)
		if err != nil {
			return false, err
		}
		edited, err := fieldMap(rec.Fields)
		if err != nil {
			return false, err
		}
		for _, k := range keys {
			edited[k] = normalized[k]
		}
		fields, err := fromFieldMap[T](edited)
		if err != nil {
			return false, err
		}
		if m.derive != nil {
			m.derive(&fields)
		}
		after, err := fieldMap(fields)
		if err != nil {
			return false, err
		}
		changes := m.diff(before, after, keys, actor)
		if len(changes) == 0 {
			return false, nil
		}
		if err := m.check(fields); err != nil {
			return false, err
		}
		rec.Fields = fields
		rec.History = append(rec.History, changes...)
		rec.UpdatedAt = changes[0].ChangedAt
		return true, nil
	})
	if err != nil {
		return Record[T]{}, m.wrap(err, id.String())
	}
	return rec, nil
}

// Modify runs an entity-specific edit and records the single Change it
// reports. A nil Change leaves the row untouched.
func (m *Manager[T]) Modify(ctx context.Context, id uuid.UUID, actor string, fn func(fields *T) (*Change, error)) (Record[T], error) {
	rec, err := m.store.Mutate(ctx, id, func(rec *Record[T]) (bool, error) {
		if rec.Deleted {
			return false, fmt.Errorf("%s %s is deleted: %w", m.schema.Entity, id, shared.ErrNotFound)
		}
		fields := clone(rec.Fields)
		change, err := fn(&fields)
		if err != nil || change == nil {
			return false, err
		}
		if m.derive != nil {
			m.derive(&fields)
		}
		if err := m.check(fields); err != nil {
			return false, err
		}
		oldValue, err := normalize(change.OldValue)
		if err != nil {
			return false, err
		}
		newValue, err := normalize(change.NewValue)
		if err != nil {
			return false, err
		}
		now := m.now()
		rec.Fields = fields
		rec.History = append(rec.History, ChangeRecord{
			Field:      change.Field,
			OldValue:   oldValue,
			NewValue:   newValue,
			ChangedBy:  actor,
			ChangedAt:  now,
			ChangeType: change.Type,
		})
		rec.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return Record[T]{}, m.wrap(err, id.String())
	}
	return rec, nil
}

// Annotate appends a note-style record (for example addExpense) without
// touching business fields.
func (m *Manager[T]) Annotate(ctx context.Context, id uuid.UUID, actor string, changeType ChangeType, field string, value any) (Record[T], error) {
	newValue, err := normalize(value)
	if err != nil {
		return Record[T]{}, err
	}
	rec, err := m.store.Mutate(ctx, id, func(rec *Record[T]) (bool, error) {
		now := m.now()
		rec.History = append(rec.History, ChangeRecord{
			Field:      field,
			NewValue:   newValue,
			ChangedBy:  actor,
			ChangedAt:  now,
			ChangeType: changeType,
		})
		rec.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return Record[T]{}, m.wrap(err, id.String())
	}
	return rec, nil
}

// AdjustStock adds delta to the quantity field in one conditional write.
// Reason repair records a select change; every other reason records stock.
func (m *Manager[T]) AdjustStock(ctx context.Context, id uuid.UUID, delta int64, actor string, reason Reason) (Record[T], error) {
	if m.schema.QuantityField == "" {
		return Record[T]{}, shared.Invalidf("%s has no quantity field", m.schema.Entity)
	}
	if delta == 0 {
		return Record[T]{}, shared.NewValidationError("delta", "must be non-zero")
	}
	changeType := ChangeStock
	if reason == ReasonRepair {
		changeType = ChangeSelect
	}
	rec, err := m.store.Increment(ctx, id, m.schema.QuantityField, delta, ChangeRecord{
		Field:      m.schema.QuantityField,
		ChangedBy:  actor,
		ChangedAt:  m.now(),
		ChangeType: changeType,
	})
	if err != nil {
		return Record[T]{}, m.wrap(err, id.String())
	}
	m.observer.StockAdjusted(m.schema.Entity, reason, delta)
	return rec, nil
}

// SoftDelete flags the row deleted, then archives it best-effort. An archive
// failure is logged and reported in the result, never rolled back.
func (m *Manager[T]) SoftDelete(ctx context.Context, id uuid.UUID, actor string) (SoftDeleteResult[T], error) {
	rec, err := m.store.Mutate(ctx, id, func(rec *Record[T]) (bool, error) {
		if rec.Deleted {
			return false, shared.Invalidf("%s %s is already deleted", m.schema.Entity, id)
		}
		snapshot, err := fieldMap(rec.Fields)
		if err != nil {
			return false, err
		}
		now := m.now()
		rec.History = append(rec.History, ChangeRecord{
			Field:      m.schema.Entity,
			OldValue:   snapshot,
			ChangedBy:  actor,
			ChangedAt:  now,
			ChangeType: ChangeDelete,
		})
		rec.Deleted = true
		rec.DeletedAt = &now
		rec.DeletedBy = actor
		rec.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return SoftDeleteResult[T]{}, m.wrap(err, id.String())
	}

	result := SoftDeleteResult[T]{Record: rec}
	if err := m.store.PutArchive(ctx, m.archiveOf(rec, *rec.DeletedAt, actor)); err != nil {
		result.ArchiveErr = fmt.Errorf("%w: %v", shared.ErrArchivalFailure, err)
		m.logger.Warn("soft delete archive failed", slog.String("id", id.String()), slog.Any("error", err))
		m.observer.ArchiveFailed(m.schema.Entity)
		return result, nil
	}
	result.Archived = true
	return result, nil
}

// HardDelete archives the row and removes it in one unit. If archival fails
// the row is left untouched and ErrArchivalFailure is returned. A row already
// archived by SoftDelete keeps that archive.
func (m *Manager[T]) HardDelete(ctx context.Context, id uuid.UUID, actor string) (ArchiveRecord[T], error) {
	archive, err := m.store.ArchiveAndRemove(ctx, id, func(rec *Record[T]) (ArchiveRecord[T], error) {
		snapshot, err := fieldMap(rec.Fields)
		if err != nil {
			return ArchiveRecord[T]{}, err
		}
		now := m.now()
		rec.History = append(rec.History, ChangeRecord{
			Field:      m.schema.Entity,
			OldValue:   snapshot,
			ChangedBy:  actor,
			ChangedAt:  now,
			ChangeType: ChangeDelete,
		})
		return m.archiveOf(*rec, now, actor), nil
	})
	if err != nil {
		return ArchiveRecord[T]{}, m.wrap(err, id.String())
	}
	return archive, nil
}

// Restore returns a soft-deleted row or an archived entity to Active. The
// archive entry is removed on both paths.
func (m *Manager[T]) Restore(ctx context.Context, id uuid.UUID, actor string) (Record[T], error) {
	live, err := m.store.Get(ctx, id)
	switch {
	case err == nil:
		if !live.Deleted {
			return Record[T]{}, fmt.Errorf("%s %s is not deleted: %w", m.schema.Entity, id, shared.ErrNotFound)
		}
		return m.restoreSoft(ctx, id, actor)
	case errors.Is(err, shared.ErrNotFound):
		return m.restoreArchived(ctx, id, actor)
	default:
		return Record[T]{}, err
	}
}

func (m *Manager[T]) restoreSoft(ctx context.Context, id uuid.UUID, actor string) (Record[T], error) {
	rec, err := m.store.Mutate(ctx, id, func(rec *Record[T]) (bool, error) {
		if !rec.Deleted {
			return false, fmt.Errorf("%s %s is not deleted: %w", m.schema.Entity, id, shared.ErrNotFound)
		}
		snapshot, err := fieldMap(rec.Fields)
		if err != nil {
			return false, err
		}
		now := m.now()
		rec.History = append(rec.History, ChangeRecord{
			Field:      m.schema.Entity,
			NewValue:   snapshot,
			ChangedBy:  actor,
			ChangedAt:  now,
			ChangeType: ChangeRestore,
		})
		rec.Deleted = false
		rec.DeletedAt = nil
		rec.DeletedBy = ""
		rec.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return Record[T]{}, m.wrap(err, id.String())
	}
	if err := m.store.DeleteArchive(ctx, id); err != nil && !errors.Is(err, shared.ErrNotFound) {
		m.logger.Warn("restore could not remove archive", slog.String("id", id.String()), slog.Any("error", err))
	}
	return rec, nil
}

func (m *Manager[T]) restoreArchived(ctx context.Context, id uuid.UUID, actor string) (Record[T], error) {
	rec, err := m.store.RestoreArchive(ctx, id, func(a ArchiveRecord[T]) (Record[T], error) {
		snapshot, err := fieldMap(a.Fields)
		if err != nil {
			return Record[T]{}, err
		}
		now := m.now()
		created := now
		if len(a.History) > 0 {
			created = a.History[0].ChangedAt
		}
		history := append(append([]ChangeRecord(nil), a.History...), ChangeRecord{
			Field:      m.schema.Entity,
			NewValue:   snapshot,
			ChangedBy:  actor,
			ChangedAt:  now,
			ChangeType: ChangeRestore,
		})
		return Record[T]{
			ID:        a.OriginalID,
			Fields:    a.Fields,
			Visible:   true,
			History:   history,
			CreatedAt: created,
			UpdatedAt: now,
		}, nil
	})
	if err != nil {
		return Record[T]{}, m.wrap(err, id.String())
	}
	return rec, nil
}

// ToggleVisibility flips visible regardless of the deleted flag.
func (m *Manager[T]) ToggleVisibility(ctx context.Context, id uuid.UUID, actor string) (Record[T], error) {
	rec, err := m.store.Mutate(ctx, id, func(rec *Record[T]) (bool, error) {
		now := m.now()
		change := ChangeRecord{
			Field:     "visible",
			OldValue:  rec.Visible,
			NewValue:  !rec.Visible,
			ChangedBy: actor,
			ChangedAt: now,
		}
		if rec.Visible {
			change.ChangeType = ChangeHide
			rec.Visible = false
			rec.HiddenAt = &now
			rec.HiddenBy = actor
		} else {
			change.ChangeType = ChangeRestore
			rec.Visible = true
			rec.HiddenAt = nil
			rec.HiddenBy = ""
		}
		rec.History = append(rec.History, change)
		rec.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return Record[T]{}, m.wrap(err, id.String())
	}
	return rec, nil
}

func (m *Manager[T]) archiveOf(rec Record[T], deletedAt time.Time, actor string) ArchiveRecord[T] {
	return ArchiveRecord[T]{
		ID:         uuid.New(),
		OriginalID: rec.ID,
		Fields:     rec.Fields,
		History:    append([]ChangeRecord(nil), rec.History...),
		DeletedAt:  deletedAt,
		DeletedBy:  actor,
		ArchivedAt: m.now(),
	}
}

// diff emits one update record per listed field whose value differs, in
// field-name order.
func (m *Manager[T]) diff(before, after map[string]any, fields []string, actor string) []ChangeRecord {
	keys := append([]string(nil), fields...)
	sort.Strings(keys)
	now := m.now()
	var changes []ChangeRecord
	for _, k := range keys {
		if sameValue(before[k], after[k]) {
			continue
		}
		changes = append(changes, ChangeRecord{
			Field:      k,
			OldValue:   before[k],
			NewValue:   after[k],
			ChangedBy:  actor,
			ChangedAt:  now,
			ChangeType: ChangeUpdate,
		})
	}
	return changes
}

func (m *Manager[T]) check(fields T) error {
	if fields.BusinessKey() == "" {
		return shared.NewValidationError(m.schema.KeyField, "is required")
	}
	return validate.Struct(fields)
}

func (m *Manager[T]) wrap(err error, ref string) error {
	if err == shared.ErrNotFound || err == shared.ErrDuplicateKey {
		return fmt.Errorf("%s %s: %w", m.schema.Entity, ref, err)
	}
	return err
}
