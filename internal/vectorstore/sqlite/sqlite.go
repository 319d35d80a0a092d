// Package sqlite persists the vector index in a single SQLite database file.
// The database file doubles as the index validity marker: if it is present
// the index is loadable, if not the corpus must be re-indexed.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	_ "modernc.org/sqlite" // SQLite driver

	"axisconnect/internal/domain"
)

// MarkerFile is the expected index artifact inside the data directory.
const MarkerFile = "index.db"

// Storage is a SQLite-backed vector store. Vectors are stored as float32
// little-endian blobs alongside the chunk payload; search is brute-force
// cosine over all rows, which is adequate for a single policy corpus.
type Storage struct {
	db        *sql.DB
	path      string
	dimension int
}

// Path returns the marker file location for a data directory.
func Path(dataDir string) string {
	return filepath.Join(dataDir, MarkerFile)
}

// Exists reports whether a persisted index artifact is present.
func Exists(dataDir string) bool {
	_, err := os.Stat(Path(dataDir))
	return err == nil
}

// Open opens (or creates) the index database under dataDir.
func Open(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := Path(dataDir)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}
	s := &Storage{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("preparing index schema: %w", err)
	}
	if meta, err := s.Meta(); err == nil && meta.Dimension > 0 {
		s.dimension = meta.Dimension
	}
	return s, nil
}

func (s *Storage) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			id        TEXT PRIMARY KEY,
			source_id TEXT NOT NULL,
			page      INTEGER NOT NULL,
			idx       INTEGER NOT NULL,
			text      TEXT NOT NULL,
			embedding BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS index_meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// Close closes the database connection.
func (s *Storage) Close() error { return s.db.Close() }

// FilePath returns the database file path.
func (s *Storage) FilePath() string { return s.path }

func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks (id, source_id, page, idx, text, embedding)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, ch := range chunks {
		if len(vectors[i]) != s.dimension {
			return domain.ErrDimensionMismatch
		}
		if _, err := stmt.ExecContext(ctx, ch.ID, ch.SourceID, ch.Page, ch.Index, ch.Text, encodeVector(vectors[i])); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if len(vector) != s.dimension {
		return nil, domain.ErrDimensionMismatch
	}
	if topK <= 0 {
		topK = 4
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, source_id, page, idx, text, embedding FROM chunks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var ch domain.Chunk
		var blob []byte
		if err := rows.Scan(&ch.ID, &ch.SourceID, &ch.Page, &ch.Index, &ch.Text, &blob); err != nil {
			return nil, err
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", ch.ID, err)
		}
		if len(vec) != s.dimension {
			return nil, fmt.Errorf("chunk %s: %w", ch.ID, domain.ErrDimensionMismatch)
		}
		results = append(results, domain.SearchResult{Chunk: ch, Score: cosine(vector, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (s *Storage) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

func (s *Storage) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM chunks`); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM index_meta`)
	return err
}

// Meta reads the persisted embedding-space metadata. A missing or partial
// record yields a zero-valued IndexMeta, which callers treat as invalid.
func (s *Storage) Meta() (domain.IndexMeta, error) {
	rows, err := s.db.Query(`SELECT key, value FROM index_meta`)
	if err != nil {
		return domain.IndexMeta{}, err
	}
	defer rows.Close()

	var meta domain.IndexMeta
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return domain.IndexMeta{}, err
		}
		switch k {
		case "embedder":
			meta.Embedder = v
		case "dimension":
			meta.Dimension, _ = strconv.Atoi(v)
		case "corpus":
			meta.Corpus = v
		case "chunks":
			meta.Chunks, _ = strconv.Atoi(v)
		}
	}
	return meta, rows.Err()
}

// SetMeta records the embedding-space metadata for the persisted index.
func (s *Storage) SetMeta(meta domain.IndexMeta) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	pairs := map[string]string{
		"embedder":  meta.Embedder,
		"dimension": strconv.Itoa(meta.Dimension),
		"corpus":    meta.Corpus,
		"chunks":    strconv.Itoa(meta.Chunks),
	}
	for k, v := range pairs {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO index_meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func encodeVector(vec []float64) []byte {
	buf := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(f)))
	}
	return buf
}

func decodeVector(data []byte) ([]float64, error) {
	if len(data)%4 != 0 {
		return nil, errors.New("malformed embedding blob")
	}
	vec := make([]float64, len(data)/4)
	for i := range vec {
		vec[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	}
	return vec, nil
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
