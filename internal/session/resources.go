package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"axisconnect/internal/assembler"
	"axisconnect/internal/chunker"
	"axisconnect/internal/config"
	"axisconnect/internal/domain"
	embopenai "axisconnect/internal/embedding/openai"
	"axisconnect/internal/embedding/tfidf"
	"axisconnect/internal/generator"
	"axisconnect/internal/indexer"
	"axisconnect/internal/logging"
	"axisconnect/internal/profile"
	"axisconnect/internal/retriever"
	"axisconnect/internal/summarizer"
	"axisconnect/internal/vectorstore/memory"
	"axisconnect/internal/vectorstore/qdrant"
)

// Resources constructs and caches the process-lifetime components: the
// embedder, the vector index, the retriever, the assembler, the chat
// generator and the employee directory. Every component is built at most
// once; a failed index build degrades retrieval instead of taking the
// process down.
type Resources struct {
	cfg    *config.AppConfig
	logger *slog.Logger

	mu        sync.Mutex
	embedder  domain.Embedder
	index     *indexer.Index
	indexDone bool
	retriever *retriever.Retriever
	assembler *assembler.Assembler
	gen       domain.Generator
	genErr    error
	genDone   bool
	directory *profile.Directory
}

// NewResources creates the cache around a loaded configuration.
func NewResources(cfg *config.AppConfig) *Resources {
	return &Resources{cfg: cfg, logger: logging.NewModuleLogger("session")}
}

// Embedder returns the configured embedder, building it on first use.
func (r *Resources) Embedder() (domain.Embedder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.embedderLocked()
}

func (r *Resources) embedderLocked() (domain.Embedder, error) {
	if r.embedder != nil {
		return r.embedder, nil
	}
	switch r.cfg.Embedder.Type {
	case "", "tfidf":
		r.embedder = tfidf.NewEmbedder()
	case "openai":
		oc := r.cfg.Embedder.OpenAI
		if oc == nil {
			oc = &config.OpenAIEmbedderConfig{}
		}
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:   oc.BaseURL,
			APIKeyEnv: oc.APIKeyEnv,
			Model:     oc.Model,
			Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("building openai embedder: %w", err)
		}
		r.embedder = client
	default:
		return nil, fmt.Errorf("unknown embedder type %q", r.cfg.Embedder.Type)
	}
	return r.embedder, nil
}

func (r *Resources) backend() (indexer.Backend, error) {
	switch r.cfg.VectorStore.Type {
	case "", "sqlite":
		return indexer.SQLiteBackend{}, nil
	case "memory":
		return indexer.NewRemoteBackend(memory.NewStorage()), nil
	case "qdrant":
		qc := r.cfg.VectorStore.Qdrant
		if qc == nil {
			return nil, fmt.Errorf("vector store type qdrant needs a qdrant config block")
		}
		store := qdrant.NewStorage(qdrant.Config{
			URL:        qc.URL,
			APIKey:     qc.APIKey,
			Collection: qc.Collection,
			Timeout:    time.Duration(qc.TimeoutSecs) * time.Second,
		})
		return indexer.NewRemoteBackend(store), nil
	default:
		return nil, fmt.Errorf("unknown vector store type %q", r.cfg.VectorStore.Type)
	}
}

// Index returns the vector index, building or loading it on first use. Index
// failures degrade to the unavailable sentinel: the assistant answers from
// the profile alone instead of refusing to start.
func (r *Resources) Index(ctx context.Context) *indexer.Index {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexDone {
		return r.index
	}
	r.indexDone = true
	r.index = indexer.Unavailable()

	emb, err := r.embedderLocked()
	if err != nil {
		r.logger.Error("embedder unavailable, retrieval disabled", "error", err)
		return r.index
	}
	backend, err := r.backend()
	if err != nil {
		r.logger.Error("vector store unavailable, retrieval disabled", "error", err)
		return r.index
	}
	ch := chunker.NewCharChunker(r.cfg.Chunker.MaxChars, r.cfg.Chunker.OverlapChars)
	ix, err := indexer.New(ch, emb, backend, r.logger).BuildOrLoad(ctx, r.cfg.Corpus.Path, r.cfg.Corpus.DataDir)
	if err != nil {
		r.logger.Error("index build failed, retrieval disabled", "error", err)
		return r.index
	}
	r.index = ix
	return r.index
}

// Retriever returns the retriever bound to the configured embedder.
func (r *Resources) Retriever() (*retriever.Retriever, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.retriever != nil {
		return r.retriever, nil
	}
	emb, err := r.embedderLocked()
	if err != nil {
		return nil, err
	}
	r.retriever = retriever.New(emb, r.cfg.Retriever.TopK, r.logger)
	return r.retriever, nil
}

// Assembler returns the prompt assembler.
func (r *Resources) Assembler() (*assembler.Assembler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.assembler != nil {
		return r.assembler, nil
	}
	a, err := assembler.New(r.cfg.History.MaxTurns, r.cfg.History.TokenBudget,
		summarizer.NewFrequencySummarizer(), r.logger)
	if err != nil {
		return nil, err
	}
	r.assembler = a
	return r.assembler, nil
}

// Generator returns the streaming chat client. The first failure (usually a
// missing API key) is cached and reported on every use.
func (r *Resources) Generator() (domain.Generator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.genDone {
		return r.gen, r.genErr
	}
	r.genDone = true
	lc := r.cfg.LLM
	r.gen, r.genErr = generator.NewClient(generator.Config{
		BaseURL:   lc.BaseURL,
		APIKeyEnv: lc.APIKeyEnv,
		Model:     lc.Model,
		Timeout:   time.Duration(lc.TimeoutSecs) * time.Second,
		MaxTokens: lc.MaxTokens,
	})
	return r.gen, r.genErr
}

// Directory returns the employee directory, opening and seeding it on first
// use.
func (r *Resources) Directory(ctx context.Context) (*profile.Directory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.directory != nil {
		return r.directory, nil
	}
	d, err := profile.Open(r.cfg.Directory.DBPath)
	if err != nil {
		return nil, err
	}
	if err := d.SeedIfEmpty(ctx, r.cfg.Directory.SeedPath); err != nil {
		_ = d.Close()
		return nil, err
	}
	r.directory = d
	return r.directory, nil
}

// Login authenticates an employee code against the directory and opens a
// session. domain.ErrNotFound means the code is unknown.
func (r *Resources) Login(ctx context.Context, code string) (*Session, error) {
	dir, err := r.Directory(ctx)
	if err != nil {
		return nil, err
	}
	p, err := dir.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	s := New(p)
	r.logger.Info("session opened",
		"session", s.ID(),
		"employee", p.EmployeeCode,
		"clearance", p.Clearance.String(),
	)
	return s, nil
}

// Logout ends a session. Chat transcripts are never persisted, so the
// per-session state simply becomes unreachable.
func (r *Resources) Logout(s *Session) {
	if s == nil {
		return
	}
	r.logger.Info("session closed", "session", s.ID(), "employee", s.Profile().EmployeeCode, "turns", s.Len())
}

// Close releases everything the cache opened.
func (r *Resources) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	if r.index != nil {
		if err := r.index.Close(); err != nil {
			first = err
		}
		r.index = nil
	}
	if r.directory != nil {
		if err := r.directory.Close(); err != nil && first == nil {
			first = err
		}
		r.directory = nil
	}
	return first
}
