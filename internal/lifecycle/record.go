// Package lifecycle implements the audit-trailed create, mutate, delete and
// restore state machine shared by every tracked entity (products, suppliers,
// repair jobs). Each entity type supplies its business fields as T; the
// manager owns visibility, deletion provenance and the append-only history.
package lifecycle

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ChangeType classifies a ChangeRecord.
type ChangeType string

const (
	ChangeCreate     ChangeType = "create"
	ChangeUpdate     ChangeType = "update"
	ChangeDelete     ChangeType = "delete"
	ChangeRestore    ChangeType = "restore"
	ChangeStock      ChangeType = "stock"
	ChangeCart       ChangeType = "cart"
	ChangeSelect     ChangeType = "select"
	ChangeHide       ChangeType = "hide"
	ChangeAddExpense ChangeType = "addExpense"
)

// ChangeRecord is one immutable history entry.
type ChangeRecord struct {
	Field      string     `json:"field"`
	OldValue   any        `json:"oldValue"`
	NewValue   any        `json:"newValue"`
	ChangedBy  string     `json:"changedBy"`
	ChangedAt  time.Time  `json:"changedAt"`
	ChangeType ChangeType `json:"changeType"`
}

// Status is the derived lifecycle state of a live row.
type Status string

const (
	StatusActive      Status = "Active"
	StatusHidden      Status = "Hidden"
	StatusSoftDeleted Status = "SoftDeleted"
)

// Entity is implemented by the business field set of a tracked type.
type Entity interface {
	BusinessKey() string
}

// Record is a live row: business fields plus lifecycle bookkeeping.
type Record[T Entity] struct {
	ID        uuid.UUID
	Fields    T
	Visible   bool
	HiddenAt  *time.Time
	HiddenBy  string
	Deleted   bool
	DeletedAt *time.Time
	DeletedBy string
	History   []ChangeRecord
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Status derives the state from the deleted and visible flags. Deletion wins.
func (r Record[T]) Status() Status {
	switch {
	case r.Deleted:
		return StatusSoftDeleted
	case !r.Visible:
		return StatusHidden
	default:
		return StatusActive
	}
}

// MarshalJSON flattens business fields next to the lifecycle attributes.
func (r Record[T]) MarshalJSON() ([]byte, error) {
	out, err := fieldMap(r.Fields)
	if err != nil {
		return nil, err
	}
	history := r.History
	if history == nil {
		history = []ChangeRecord{}
	}
	out["id"] = r.ID
	out["status"] = r.Status()
	out["visible"] = r.Visible
	out["hiddenAt"] = r.HiddenAt
	out["hiddenBy"] = r.HiddenBy
	out["deleted"] = r.Deleted
	out["deletedAt"] = r.DeletedAt
	out["deletedBy"] = r.DeletedBy
	out["changeHistory"] = history
	out["createdAt"] = r.CreatedAt
	out["updatedAt"] = r.UpdatedAt
	return json.Marshal(out)
}

// ArchiveRecord is a detached snapshot of an entity and its full history.
type ArchiveRecord[T Entity] struct {
	ID         uuid.UUID      `json:"id"`
	OriginalID uuid.UUID      `json:"originalId"`
	Fields     T              `json:"fields"`
	History    []ChangeRecord `json:"changeHistory"`
	DeletedAt  time.Time      `json:"deletedAt"`
	DeletedBy  string         `json:"deletedBy"`
	ArchivedAt time.Time      `json:"archivedAt"`
}

// StateFilter selects which live rows a listing returns.
type StateFilter int

const (
	// OnlyActive is the default listing: visible and not deleted.
	OnlyActive StateFilter = iota
	// OnlyHidden returns hidden rows that are not deleted.
	OnlyHidden
	// OnlyDeleted returns soft-deleted rows.
	OnlyDeleted
	// AnyState returns every live row.
	AnyState
)

// Query parameterises List and ListArchives.
type Query struct {
	State  StateFilter
	Search string
	Limit  int
	Offset int
}
