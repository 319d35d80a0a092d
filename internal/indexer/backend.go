package indexer

import (
	"encoding/json"
	"os"
	"path/filepath"

	"axisconnect/internal/domain"
	"axisconnect/internal/vectorstore/sqlite"
)

// Store is a vector store that also carries the embedding-space metadata of
// the index persisted in it.
type Store interface {
	domain.VectorStore
	Meta() (domain.IndexMeta, error)
	SetMeta(domain.IndexMeta) error
	Close() error
}

// Backend opens the persisted index artifact for a data directory and
// reports whether one is present without opening it. Remove discards a
// corrupt artifact so a rebuild starts clean.
type Backend interface {
	Exists(dataDir string) bool
	Open(dataDir string) (Store, error)
	Remove(dataDir string) error
}

// SQLiteBackend stores the index in the local SQLite artifact. This is the
// default backend; the database file is the validity marker.
type SQLiteBackend struct{}

func (SQLiteBackend) Exists(dataDir string) bool { return sqlite.Exists(dataDir) }

func (SQLiteBackend) Open(dataDir string) (Store, error) { return sqlite.Open(dataDir) }

func (SQLiteBackend) Remove(dataDir string) error {
	path := sqlite.Path(dataDir)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// remoteMetaFile is the sidecar marker for backends whose chunk data lives
// elsewhere (qdrant, in-memory).
const remoteMetaFile = "index.meta.json"

// RemoteBackend adapts a store without local metadata persistence by keeping
// the IndexMeta in a sidecar JSON file, which doubles as the marker.
type RemoteBackend struct {
	store domain.VectorStore
}

func NewRemoteBackend(store domain.VectorStore) *RemoteBackend {
	return &RemoteBackend{store: store}
}

func (b *RemoteBackend) Exists(dataDir string) bool {
	_, err := os.Stat(filepath.Join(dataDir, remoteMetaFile))
	return err == nil
}

func (b *RemoteBackend) Remove(dataDir string) error {
	err := os.Remove(filepath.Join(dataDir, remoteMetaFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (b *RemoteBackend) Open(dataDir string) (Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return &remoteStore{VectorStore: b.store, metaPath: filepath.Join(dataDir, remoteMetaFile)}, nil
}

type remoteStore struct {
	domain.VectorStore
	metaPath string
}

func (s *remoteStore) Meta() (domain.IndexMeta, error) {
	data, err := os.ReadFile(s.metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.IndexMeta{}, nil
		}
		return domain.IndexMeta{}, err
	}
	var meta domain.IndexMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.IndexMeta{}, err
	}
	return meta, nil
}

func (s *remoteStore) SetMeta(meta domain.IndexMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(s.metaPath, data, 0o644)
}

func (s *remoteStore) Close() error { return nil }
