package domain

import (
	"context"
	"errors"
)

// ErrNotFound is returned by profile lookups for unknown employee codes.
var ErrNotFound = errors.New("not found")

// ErrDimensionMismatch is returned when a query vector does not match the
// embedding space the index was built in.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Embedder converts free text into a fixed-length numeric vector.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Chunker splits corpus pages into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(page Page) ([]Chunk, error)
}

// VectorStore persists chunk vectors and supports similarity search.
type VectorStore interface {
	Init(dimension int) error
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]SearchResult, error)
	Count() (int, error)
	Clear() error
}

// TokenStream is a finite, non-restartable sequence of text fragments.
// Recv returns io.EOF on exhaustion. Close abandons the stream; it is safe
// to call after EOF and more than once.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// Generator produces a streamed completion for an assembled context. Each
// call opens a fresh stream; cancelling ctx stops production.
type Generator interface {
	Generate(ctx context.Context, pc PromptContext) (TokenStream, error)
}

// ProfileProvider looks up employee records. Consumed read-only; a missing
// code yields ErrNotFound, never a partial profile.
type ProfileProvider interface {
	Lookup(ctx context.Context, employeeCode string) (Profile, error)
}

// Summarizer produces a brief extractive summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
