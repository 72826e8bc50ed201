// Package history persists synthesized answers in SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dheena017/multimind/pkg/synthesis"
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("history record not found")

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id               TEXT PRIMARY KEY,
	created_at       TEXT NOT NULL,
	query            TEXT NOT NULL,
	topic            TEXT NOT NULL,
	complexity       TEXT NOT NULL,
	complexity_score REAL NOT NULL,
	primary_source   TEXT NOT NULL,
	confidence       REAL NOT NULL,
	consensus_level  TEXT NOT NULL,
	result_json      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_created ON conversations(created_at);
CREATE INDEX IF NOT EXISTS idx_conversations_topic ON conversations(topic);
`

// Record is one stored query and its synthesized result.
type Record struct {
	ID              string                     `json:"id"`
	CreatedAt       time.Time                  `json:"created_at"`
	Query           string                     `json:"query"`
	Topic           string                     `json:"topic"`
	Complexity      string                     `json:"complexity"`
	ComplexityScore float64                    `json:"complexity_score"`
	PrimarySource   string                     `json:"primary_source"`
	Confidence      float64                    `json:"confidence"`
	ConsensusLevel  string                     `json:"consensus_level"`
	Result          *synthesis.SynthesisResult `json:"result,omitempty"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. Pass ":memory:" for an
// in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and avoids
	// "database is locked" errors.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode=WAL"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts rec, assigning an ID and timestamp when missing, and returns
// the ID.
func (s *Store) Save(ctx context.Context, rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	resultJSON := []byte("null")
	if rec.Result != nil {
		var err error
		if resultJSON, err = json.Marshal(rec.Result); err != nil {
			return "", fmt.Errorf("encoding result: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, created_at, query, topic, complexity, complexity_score, primary_source, confidence, consensus_level, result_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt.UTC().Format(timeLayout), rec.Query, rec.Topic, rec.Complexity,
		rec.ComplexityScore, rec.PrimarySource, rec.Confidence, rec.ConsensusLevel, string(resultJSON),
	)
	if err != nil {
		return "", fmt.Errorf("saving history record: %w", err)
	}
	return rec.ID, nil
}

// Get returns the record with the given ID, including the full result.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, query, topic, complexity, complexity_score, primary_source, confidence, consensus_level, result_json
		FROM conversations WHERE id = ?`, id)

	var rec Record
	var createdAt, resultJSON string
	err := row.Scan(&rec.ID, &createdAt, &rec.Query, &rec.Topic, &rec.Complexity, &rec.ComplexityScore,
		&rec.PrimarySource, &rec.Confidence, &rec.ConsensusLevel, &resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return Record{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if resultJSON != "null" {
		var result synthesis.SynthesisResult
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			return Record{}, fmt.Errorf("decoding result: %w", err)
		}
		rec.Result = &result
	}
	return rec, nil
}

// List returns summaries (without the full result), newest first.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.query(ctx, `
		SELECT id, created_at, query, topic, complexity, complexity_score, primary_source, confidence, consensus_level
		FROM conversations ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, limit, max(offset, 0))
}

// Search returns summaries whose query or topic contains term, newest first.
func (s *Store) Search(ctx context.Context, term string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	return s.query(ctx, `
		SELECT id, created_at, query, topic, complexity, complexity_score, primary_source, confidence, consensus_level
		FROM conversations
		WHERE lower(query) LIKE ? ESCAPE '\' OR lower(topic) LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, id LIMIT ?`, pattern, pattern, limit)
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting history record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversations").Scan(&n)
	return n, err
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var createdAt string
		if err := rows.Scan(&rec.ID, &createdAt, &rec.Query, &rec.Topic, &rec.Complexity, &rec.ComplexityScore,
			&rec.PrimarySource, &rec.Confidence, &rec.ConsensusLevel); err != nil {
			return nil, err
		}
		if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
