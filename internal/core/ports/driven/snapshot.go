package driven

import "context"

// SnapshotStore durably persists the vector index and the metadata store
// together, and reloads them in lockstep. The two are never saved or
// loaded independently.
//
// Writes are atomic from the caller's point of view: implementations
// stage the write, verify integrity, and only then make it visible as
// the current snapshot. A crash mid-write leaves the previously
// committed snapshot intact and loadable.
type SnapshotStore interface {
	// Save persists both structures and returns the new snapshot ID.
	Save(ctx context.Context, index IndexSnapshot, meta MetadataSnapshot) (string, error)

	// Load reads the snapshot with the given ID. It fails with
	// *domain.IncompatibleSchemaError on a schema version mismatch and
	// *domain.PersistenceError on I/O or integrity failures.
	Load(ctx context.Context, id string) (IndexSnapshot, MetadataSnapshot, error)

	// Latest returns the ID of the current committed snapshot, or
	// domain.ErrNotFound when none has been committed.
	Latest(ctx context.Context) (string, error)
}
