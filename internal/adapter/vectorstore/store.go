package vectorstore

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"switchboard/internal/domain"
)

// Store implements domain.PassageStore backed by SQLite. Passages are written
// by the document indexing pipeline and read here via cosine similarity over
// stored embeddings.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	dbPath string
}

// New opens (or creates) a SQLite database at dbPath, runs migrations, and
// returns a ready Store.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", domain.ErrPassageStore, err)
	}

	// SQLite write safety: single writer.
	db.SetMaxOpenConns(1)

	// Pragmas for performance.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: pragma: %v", domain.ErrPassageStore, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", domain.ErrPassageStore, err)
	}

	return &Store{db: db, logger: logger, dbPath: dbPath}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS passages (
		id         TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		content    TEXT NOT NULL,
		source     TEXT NOT NULL DEFAULT 'unknown',
		embedding  BLOB,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_passages_collection ON passages(collection);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts one passage with its embedding into a collection. It is the
// write side used by the indexing pipeline and by tests.
func (s *Store) Add(ctx context.Context, collection, content, source string, vec []float32) error {
	id, err := generateID()
	if err != nil {
		return fmt.Errorf("%w: generate id: %v", domain.ErrPassageStore, err)
	}
	if source == "" {
		source = "unknown"
	}

	const insert = `
		INSERT INTO passages (id, collection, content, source, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, insert,
		id, collection, content, source, float32ToBytes(vec), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("%w: insert passage: %v", domain.ErrPassageStore, err)
	}
	return nil
}

// Count returns the number of passages stored in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM passages WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", domain.ErrPassageStore, err)
	}
	return n, nil
}

// Search implements domain.PassageStore. It returns the topK passages of a
// collection ranked by cosine similarity against queryVec. An empty collection
// yields ErrNoResults.
func (s *Store) Search(ctx context.Context, collection string, queryVec []float32, topK int) ([]domain.Passage, error) {
	if topK <= 0 {
		topK = 5
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT content, source, embedding FROM passages WHERE collection = ?`, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", domain.ErrPassageStore, err)
	}
	defer rows.Close()

	var scored []domain.Passage
	total := 0
	for rows.Next() {
		var (
			content string
			source  string
			blob    []byte
		)
		if err := rows.Scan(&content, &source, &blob); err != nil {
			s.logger.Warn("passage store: scan failed, skipping row", "error", err)
			continue
		}
		total++

		vec := bytesToFloat32(blob)
		if vec == nil {
			continue
		}
		scored = append(scored, domain.Passage{
			Content: content,
			Source:  source,
			Score:   float64(cosineSimilarity(queryVec, vec)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate: %v", domain.ErrPassageStore, err)
	}

	if total == 0 {
		return nil, fmt.Errorf("%w: collection %q is empty", domain.ErrNoResults, collection)
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// cosineSimilarity computes the cosine similarity of two vectors.
// Mismatched or zero-length vectors score 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB)))
	if denom == 0 {
		return 0
	}
	result := dot / denom
	if math.IsNaN(float64(result)) || math.IsInf(float64(result), 0) {
		return 0
	}
	return result
}

// float32ToBytes converts a float32 slice to little-endian bytes.
func float32ToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32 converts little-endian bytes back to a float32 slice.
func bytesToFloat32(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func generateID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

var _ domain.PassageStore = (*Store)(nil)
