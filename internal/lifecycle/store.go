package lifecycle

import (
	"context"

	"github.com/google/uuid"
)

// MutateFunc edits a locked copy of a row. Returning false skips the write.
// History may only grow.
type MutateFunc[T Entity] func(rec *Record[T]) (bool, error)

// Store persists tracked entities and their archives. Every method is a single
// atomic unit against the backing store.
type Store[T Entity] interface {
	// Insert writes a new row; a taken business key yields shared.ErrDuplicateKey.
	Insert(ctx context.Context, rec Record[T]) error
	Get(ctx context.Context, id uuid.UUID) (Record[T], error)
	GetByKey(ctx context.Context, key string) (Record[T], error)
	// FindByField returns the oldest non-deleted row whose field equals value.
	FindByField(ctx context.Context, field, value string) (Record[T], error)
	List(ctx context.Context, q Query) ([]Record[T], error)
	// Mutate runs fn against the row while holding it exclusively.
	Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc[T]) (Record[T], error)
	// Increment adds delta to an integer field only when the result stays
	// non-negative, appending rec with the old and new values filled in.
	Increment(ctx context.Context, id uuid.UUID, field string, delta int64, rec ChangeRecord) (Record[T], error)

	// PutArchive writes the archive for a.OriginalID unless one exists.
	// Archives are never rewritten.
	PutArchive(ctx context.Context, a ArchiveRecord[T]) error
	// ArchiveAndRemove builds an archive from the locked row, writes it unless
	// one exists, deletes the row and returns the stored archive. Nothing
	// changes if the archive write fails.
	ArchiveAndRemove(ctx context.Context, id uuid.UUID, fn func(rec *Record[T]) (ArchiveRecord[T], error)) (ArchiveRecord[T], error)
	GetArchive(ctx context.Context, originalID uuid.UUID) (ArchiveRecord[T], error)
	ListArchives(ctx context.Context, q Query) ([]ArchiveRecord[T], error)
	// RestoreArchive recreates a row from its archive and removes the archive.
	RestoreArchive(ctx context.Context, originalID uuid.UUID, fn func(a ArchiveRecord[T]) (Record[T], error)) (Record[T], error)
	DeleteArchive(ctx context.Context, originalID uuid.UUID) error
}
