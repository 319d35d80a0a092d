// Package indexer converts the policy corpus into retrievable chunks and
// owns the lifecycle of the persisted vector index.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"axisconnect/internal/domain"
)

// ErrBuildLocked is returned when another process holds the build lock for
// the same data directory.
var ErrBuildLocked = errors.New("index build already in progress")

const (
	tfidfStateFile = "tfidf.json"
	buildLockFile  = ".build.lock"
)

// statePersister is implemented by embedders whose fitted state must survive
// restarts so queries use the build-time embedding space.
type statePersister interface {
	SaveState(path string) error
	LoadState(path string) error
}

// Index is a handle to a loaded or freshly built vector index. An
// unavailable index signals that retrieval must be skipped; callers degrade
// to profile-only answers instead of failing.
type Index struct {
	store     Store
	meta      domain.IndexMeta
	available bool
	rebuilt   bool
}

// Available reports whether retrieval is possible.
func (ix *Index) Available() bool { return ix != nil && ix.available }

// Rebuilt reports whether this handle was produced by a full rebuild rather
// than a fast-path load.
func (ix *Index) Rebuilt() bool { return ix.rebuilt }

// Store returns the underlying vector store. Nil when unavailable.
func (ix *Index) Store() domain.VectorStore {
	if !ix.Available() {
		return nil
	}
	return ix.store
}

// Meta returns the embedding-space metadata of the index.
func (ix *Index) Meta() domain.IndexMeta { return ix.meta }

// Close releases the underlying store.
func (ix *Index) Close() error {
	if ix == nil || ix.store == nil {
		return nil
	}
	return ix.store.Close()
}

// Unavailable is the sentinel handle for "no retrieval available".
func Unavailable() *Index { return &Index{} }

// Indexer builds or loads the vector index for a corpus.
type Indexer struct {
	chunker  domain.Chunker
	embedder domain.Embedder
	backend  Backend
	logger   *slog.Logger

	mu sync.Mutex // serializes builds within the process
}

func New(chunker domain.Chunker, embedder domain.Embedder, backend Backend, logger *slog.Logger) *Indexer {
	if backend == nil {
		backend = SQLiteBackend{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{chunker: chunker, embedder: embedder, backend: backend, logger: logger}
}

// BuildOrLoad returns a usable index for the corpus.
//
// If a valid persisted index exists it is loaded without writes. A persisted
// index that fails to load or validate triggers a full rebuild rather than an
// error. A missing corpus with no persisted index yields the unavailable
// sentinel and a nil error; callers must degrade gracefully.
func (x *Indexer) BuildOrLoad(ctx context.Context, corpusPath, dataDir string) (*Index, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.backend.Exists(dataDir) {
		ix, err := x.load(dataDir)
		if err == nil {
			x.logger.Info("loaded persisted index",
				"data_dir", dataDir,
				"chunks", ix.meta.Chunks,
				"dimension", ix.meta.Dimension,
			)
			return ix, nil
		}
		x.logger.Warn("persisted index invalid, rebuilding", "data_dir", dataDir, "error", err)
		if err := x.backend.Remove(dataDir); err != nil {
			return nil, fmt.Errorf("removing invalid index: %w", err)
		}
	}

	pages, err := LoadCorpus(corpusPath)
	if err != nil {
		if os.IsNotExist(err) {
			x.logger.Warn("corpus missing and no persisted index; retrieval unavailable", "corpus", corpusPath)
			return Unavailable(), nil
		}
		return nil, fmt.Errorf("reading corpus: %w", err)
	}
	return x.build(ctx, pages, corpusPath, dataDir)
}

func (x *Indexer) load(dataDir string) (*Index, error) {
	store, err := x.backend.Open(dataDir)
	if err != nil {
		return nil, err
	}
	meta, err := store.Meta()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if meta.Dimension <= 0 || meta.Chunks <= 0 {
		_ = store.Close()
		return nil, errors.New("index metadata incomplete")
	}
	if meta.Embedder != x.embedder.Name() {
		_ = store.Close()
		return nil, fmt.Errorf("index built with embedder %q, configured %q", meta.Embedder, x.embedder.Name())
	}
	if sp, ok := x.embedder.(statePersister); ok {
		if err := sp.LoadState(filepath.Join(dataDir, tfidfStateFile)); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("restoring embedder state: %w", err)
		}
	}
	// Remote embedders learn their dimension lazily; only a known,
	// conflicting dimension invalidates the index here. The retriever guards
	// every query as well.
	if d := x.embedder.Dimension(); d > 0 && d != meta.Dimension {
		_ = store.Close()
		return nil, domain.ErrDimensionMismatch
	}
	n, err := store.Count()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if n != meta.Chunks {
		_ = store.Close()
		return nil, fmt.Errorf("index has %d chunks, metadata says %d", n, meta.Chunks)
	}
	if err := store.Init(meta.Dimension); err != nil {
		_ = store.Close()
		return nil, err
	}
	return &Index{store: store, meta: meta, available: true}, nil
}

func (x *Indexer) build(ctx context.Context, pages []domain.Page, corpusPath, dataDir string) (*Index, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	unlock, err := acquireBuildLock(dataDir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var chunks []domain.Chunk
	var texts []string
	for _, p := range pages {
		cs, err := x.chunker.Chunk(p)
		if err != nil {
			return nil, fmt.Errorf("chunking page %d: %w", p.Number, err)
		}
		for _, ch := range cs {
			chunks = append(chunks, ch)
			texts = append(texts, ch.Text)
		}
	}
	if len(chunks) == 0 {
		x.logger.Warn("corpus produced no chunks; retrieval unavailable", "corpus", corpusPath)
		return Unavailable(), nil
	}

	if err := x.embedder.Prepare(texts); err != nil {
		return nil, fmt.Errorf("preparing embedder: %w", err)
	}
	vectors := make([][]float64, len(chunks))
	for i := range chunks {
		vec, err := x.embedder.Embed(ctx, chunks[i].Text)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d: %w", i, err)
		}
		vectors[i] = vec
	}
	dim := x.embedder.Dimension()

	store, err := x.backend.Open(dataDir)
	if err != nil {
		return nil, err
	}
	if err := store.Init(dim); err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := store.Clear(); err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := store.Upsert(ctx, chunks, vectors); err != nil {
		_ = store.Close()
		return nil, err
	}
	meta := domain.IndexMeta{
		Embedder:  x.embedder.Name(),
		Dimension: dim,
		Corpus:    filepath.Base(corpusPath),
		Chunks:    len(chunks),
	}
	if err := store.SetMeta(meta); err != nil {
		_ = store.Close()
		return nil, err
	}
	if sp, ok := x.embedder.(statePersister); ok {
		if err := sp.SaveState(filepath.Join(dataDir, tfidfStateFile)); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("persisting embedder state: %w", err)
		}
	}
	x.logger.Info("built index", "corpus", corpusPath, "chunks", len(chunks), "dimension", dim)
	return &Index{store: store, meta: meta, available: true, rebuilt: true}, nil
}

// acquireBuildLock takes an exclusive cross-process lock for index builds in
// dataDir. A stale lock from a crashed build must be removed manually.
func acquireBuildLock(dataDir string) (func(), error) {
	path := filepath.Join(dataDir, buildLockFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrBuildLocked, path)
		}
		return nil, err
	}
	_ = f.Close()
	return func() { _ = os.Remove(path) }, nil
}
