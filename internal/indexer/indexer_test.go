package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axisconnect/internal/chunker"
	"axisconnect/internal/embedding/tfidf"
)

const testCorpus = "Leave policy: employees get 20 days annual leave." +
	"\f" +
	"Payroll policy: salaries are processed on the last working day of each month." +
	"\f" +
	"IT policy: assets must be returned on exit. Laptops are refreshed every three years."

func writeCorpus(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "policies.txt")
	require.NoError(t, os.WriteFile(path, []byte(testCorpus), 0o644))
	return path
}

func newIndexer() *Indexer {
	return New(chunker.NewCharChunker(200, 20), tfidf.NewEmbedder(), SQLiteBackend{}, nil)
}

func TestLoadCorpusPages(t *testing.T) {
	dir := t.TempDir()
	path := writeCorpus(t, dir)

	pages, err := LoadCorpus(path)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, 1, pages[0].Number)
	assert.Equal(t, 3, pages[2].Number)
	assert.Equal(t, "policies", pages[0].SourceID)
}

func TestBuildWhenNothingPersisted(t *testing.T) {
	dir := t.TempDir()
	corpus := writeCorpus(t, dir)
	dataDir := filepath.Join(dir, "data")

	ix, err := newIndexer().BuildOrLoad(context.Background(), corpus, dataDir)
	require.NoError(t, err)
	defer ix.Close()

	assert.True(t, ix.Available())
	assert.True(t, ix.Rebuilt())
	assert.Equal(t, "tfidf", ix.Meta().Embedder)
	assert.Greater(t, ix.Meta().Chunks, 0)

	n, err := ix.Store().Count()
	require.NoError(t, err)
	assert.Equal(t, ix.Meta().Chunks, n)

	_, err = os.Stat(filepath.Join(dataDir, buildLockFile))
	assert.True(t, os.IsNotExist(err), "build lock released")
}

func TestIdempotentIndexing(t *testing.T) {
	dir := t.TempDir()
	corpus := writeCorpus(t, dir)
	dataDir := filepath.Join(dir, "data")
	ctx := context.Background()

	first, err := newIndexer().BuildOrLoad(ctx, corpus, dataDir)
	require.NoError(t, err)
	firstMeta := first.Meta()
	require.NoError(t, first.Close())

	// Fresh indexer, fresh embedder: the load path must restore the same
	// embedding space from disk without writes.
	secondIdx := newIndexer()
	second, err := secondIdx.BuildOrLoad(ctx, corpus, dataDir)
	require.NoError(t, err)
	defer second.Close()

	assert.False(t, second.Rebuilt(), "valid persisted index is loaded, not rebuilt")
	assert.Equal(t, firstMeta, second.Meta())

	n, err := second.Store().Count()
	require.NoError(t, err)
	assert.Equal(t, firstMeta.Chunks, n, "no additional writes on re-run")
}

func TestLoadedIndexServesIdenticalRetrieval(t *testing.T) {
	dir := t.TempDir()
	corpus := writeCorpus(t, dir)
	dataDir := filepath.Join(dir, "data")
	ctx := context.Background()

	embBuild := tfidf.NewEmbedder()
	built, err := New(chunker.NewCharChunker(200, 20), embBuild, SQLiteBackend{}, nil).BuildOrLoad(ctx, corpus, dataDir)
	require.NoError(t, err)
	qv, err := embBuild.Embed(ctx, "How many leave days do I get?")
	require.NoError(t, err)
	builtRes, err := built.Store().Search(ctx, qv, 3)
	require.NoError(t, err)
	require.NoError(t, built.Close())

	embLoad := tfidf.NewEmbedder()
	loaded, err := New(chunker.NewCharChunker(200, 20), embLoad, SQLiteBackend{}, nil).BuildOrLoad(ctx, corpus, dataDir)
	require.NoError(t, err)
	defer loaded.Close()

	qv2, err := embLoad.Embed(ctx, "How many leave days do I get?")
	require.NoError(t, err)
	loadedRes, err := loaded.Store().Search(ctx, qv2, 3)
	require.NoError(t, err)

	require.Equal(t, len(builtRes), len(loadedRes))
	for i := range builtRes {
		assert.Equal(t, builtRes[i].Chunk.ID, loadedRes[i].Chunk.ID)
		assert.InDelta(t, builtRes[i].Score, loadedRes[i].Score, 1e-9)
	}
}

func TestMissingCorpusDegradesToUnavailable(t *testing.T) {
	dir := t.TempDir()
	ix, err := newIndexer().BuildOrLoad(context.Background(), filepath.Join(dir, "absent.txt"), filepath.Join(dir, "data"))
	require.NoError(t, err, "missing corpus is a degradation, not an error")
	assert.False(t, ix.Available())
	assert.Nil(t, ix.Store())
}

func TestCorruptStoreFallsBackToRebuild(t *testing.T) {
	dir := t.TempDir()
	corpus := writeCorpus(t, dir)
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "index.db"), []byte("not a database"), 0o644))

	ix, err := newIndexer().BuildOrLoad(context.Background(), corpus, dataDir)
	require.NoError(t, err)
	defer ix.Close()

	assert.True(t, ix.Available())
	assert.True(t, ix.Rebuilt())
}

func TestEmbedderChangeTriggersRebuild(t *testing.T) {
	dir := t.TempDir()
	corpus := writeCorpus(t, dir)
	dataDir := filepath.Join(dir, "data")
	ctx := context.Background()

	first, err := newIndexer().BuildOrLoad(ctx, corpus, dataDir)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	other := renamedEmbedder{Embedder: tfidf.NewEmbedder(), name: "tfidf-v2"}
	second, err := New(chunker.NewCharChunker(200, 20), other, SQLiteBackend{}, nil).BuildOrLoad(ctx, corpus, dataDir)
	require.NoError(t, err)
	defer second.Close()

	assert.True(t, second.Rebuilt(), "a different embedding space must not be served from the old index")
	assert.Equal(t, "tfidf-v2", second.Meta().Embedder)
}

func TestConcurrentBuildLocked(t *testing.T) {
	dir := t.TempDir()
	corpus := writeCorpus(t, dir)
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, buildLockFile), nil, 0o644))

	_, err := newIndexer().BuildOrLoad(context.Background(), corpus, dataDir)
	assert.ErrorIs(t, err, ErrBuildLocked)
}

// renamedEmbedder wraps the TF-IDF embedder under a different name to
// simulate an embedder swap between runs.
type renamedEmbedder struct {
	*tfidf.Embedder
	name string
}

func (r renamedEmbedder) Name() string { return r.name }
