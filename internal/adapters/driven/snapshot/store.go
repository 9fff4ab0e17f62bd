// Package snapshot persists the vector index and metadata store as one
// atomic unit on the local filesystem.
//
// A snapshot is a single JSON file: an envelope carrying the schema
// version, a CRC32 checksum, and the payload holding both structures.
// Saves are staged to a temp file, fsynced, then renamed into place;
// only after the data file is durable is the CURRENT pointer updated.
// A crash at any point leaves the previously committed snapshot intact.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
	"github.com/custodia-labs/ragcore/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.SnapshotStore = (*Store)(nil)

// SchemaVersion is the snapshot format this build reads and writes.
const SchemaVersion = 1

// currentFile is the pointer file naming the committed snapshot.
const currentFile = "CURRENT"

// snapshotSuffix is the extension of committed snapshot files.
const snapshotSuffix = ".snap"

type envelope struct {
	SchemaVersion int             `json:"schema_version"`
	Checksum      uint32          `json:"checksum"`
	Payload       json.RawMessage `json:"payload"`
}

type payload struct {
	Index    driven.IndexSnapshot    `json:"index"`
	Metadata driven.MetadataSnapshot `json:"metadata"`
}

// Store is a filesystem-backed snapshot store.
type Store struct {
	dir string
}

// NewStore creates a snapshot store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, &domain.ConfigurationError{Field: "snapshot.dir", Reason: "must not be empty"}
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, &domain.PersistenceError{Op: "create snapshot directory", Err: err}
	}
	return &Store{dir: dir}, nil
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save persists both structures as one new snapshot and commits it as
// current. The index and metadata chunk ID sets must match; a mismatch
// means the caller broke the lockstep invariant and nothing is written.
func (s *Store) Save(ctx context.Context, index driven.IndexSnapshot, meta driven.MetadataSnapshot) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &domain.PersistenceError{Op: "save", Err: err}
	}
	if err := verifyLockstep(index, meta); err != nil {
		return "", err
	}

	payloadBytes, err := json.Marshal(payload{Index: index, Metadata: meta})
	if err != nil {
		return "", &domain.PersistenceError{Op: "encode snapshot", Err: err}
	}

	env := envelope{
		SchemaVersion: SchemaVersion,
		Checksum:      crc32.ChecksumIEEE(payloadBytes),
		Payload:       payloadBytes,
	}
	envBytes, err := json.Marshal(env)
	if err != nil {
		return "", &domain.PersistenceError{Op: "encode snapshot", Err: err}
	}

	id := uuid.NewString()
	dataPath := filepath.Join(s.dir, id+snapshotSuffix)

	if err := writeFileAtomic(dataPath, envBytes); err != nil {
		return "", &domain.PersistenceError{Op: "write snapshot", Err: err}
	}

	// The data file is durable; committing is just the pointer swap.
	if err := writeFileAtomic(filepath.Join(s.dir, currentFile), []byte(id)); err != nil {
		return "", &domain.PersistenceError{Op: "commit snapshot", Err: err}
	}

	logger.Info("Committed snapshot %s (%d vectors, %d rows)", id, len(index.Entries), len(meta.Rows))
	return id, nil
}

// Load reads the snapshot with the given ID and verifies its integrity.
func (s *Store) Load(ctx context.Context, id string) (driven.IndexSnapshot, driven.MetadataSnapshot, error) {
	var zero driven.IndexSnapshot
	var zeroMeta driven.MetadataSnapshot

	if err := ctx.Err(); err != nil {
		return zero, zeroMeta, &domain.PersistenceError{Op: "load", Err: err}
	}
	if id == "" || strings.ContainsAny(id, "/\\") {
		return zero, zeroMeta, &domain.PersistenceError{Op: "load", Err: domain.ErrInvalidInput}
	}

	envBytes, err := os.ReadFile(filepath.Join(s.dir, id+snapshotSuffix))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return zero, zeroMeta, &domain.PersistenceError{Op: "load snapshot " + id, Err: domain.ErrNotFound}
		}
		return zero, zeroMeta, &domain.PersistenceError{Op: "read snapshot", Err: err}
	}

	var env envelope
	if err := json.Unmarshal(envBytes, &env); err != nil {
		return zero, zeroMeta, &domain.PersistenceError{Op: "decode snapshot", Err: err}
	}
	if env.SchemaVersion != SchemaVersion {
		return zero, zeroMeta, &domain.IncompatibleSchemaError{Want: SchemaVersion, Got: env.SchemaVersion}
	}
	if got := crc32.ChecksumIEEE(env.Payload); got != env.Checksum {
		err := fmt.Errorf("checksum mismatch: stored %08x, computed %08x", env.Checksum, got)
		return zero, zeroMeta, &domain.PersistenceError{Op: "verify snapshot", Err: err}
	}

	var p payload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return zero, zeroMeta, &domain.PersistenceError{Op: "decode snapshot payload", Err: err}
	}
	if err := verifyLockstep(p.Index, p.Metadata); err != nil {
		return zero, zeroMeta, err
	}

	logger.Debug("Loaded snapshot %s (%d vectors, %d rows)", id, len(p.Index.Entries), len(p.Metadata.Rows))
	return p.Index, p.Metadata, nil
}

// Latest returns the ID the CURRENT pointer names.
func (s *Store) Latest(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &domain.PersistenceError{Op: "latest", Err: err}
	}

	data, err := os.ReadFile(filepath.Join(s.dir, currentFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.ErrNotFound
		}
		return "", &domain.PersistenceError{Op: "read current pointer", Err: err}
	}

	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", domain.ErrNotFound
	}
	return id, nil
}

// verifyLockstep checks that the index and metadata name the same chunk
// ID set.
func verifyLockstep(index driven.IndexSnapshot, meta driven.MetadataSnapshot) error {
	if len(index.Entries) != len(meta.Rows) {
		err := fmt.Errorf("index has %d chunks, metadata has %d", len(index.Entries), len(meta.Rows))
		return &domain.PersistenceError{Op: "verify lockstep", Err: err}
	}

	seen := make(map[string]struct{}, len(index.Entries))
	for _, e := range index.Entries {
		seen[e.ChunkID] = struct{}{}
	}
	for _, r := range meta.Rows {
		if _, ok := seen[r.ChunkID]; !ok {
			err := fmt.Errorf("chunk %s present in metadata but not in index", r.ChunkID)
			return &domain.PersistenceError{Op: "verify lockstep", Err: err}
		}
	}
	return nil
}

// writeFileAtomic stages data in a temp file, fsyncs it, and renames it
// over path.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
