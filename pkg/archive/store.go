// Package archive exports synthesis results into a content-addressed store.
package archive

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dheena017/multimind/pkg/synthesis"
)

const (
	KindResult = "result"
	KindReport = "report"
)

// Ref addresses a stored object.
type Ref struct {
	Kind   string `json:"kind"`
	SHA256 string `json:"sha256"`
}

// IndexEntry is one line of the export index.
type IndexEntry struct {
	Ref        Ref       `json:"ref"`
	Query      string    `json:"query"`
	Confidence float64   `json:"confidence"`
	StoredAt   time.Time `json:"stored_at"`
}

// Store manages the content-addressed archive.
type Store struct {
	BasePath string
}

// NewStore creates a new archive store rooted at basePath, defaulting to
// ~/.multimind/archive.
func NewStore(basePath string) (*Store, error) {
	if basePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		basePath = filepath.Join(home, ".multimind", "archive")
	}

	for _, d := range []string{
		filepath.Join(basePath, "objects"),
		filepath.Join(basePath, "indexes"),
	} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, err
		}
	}

	return &Store{BasePath: basePath}, nil
}

// StoreObject stores a JSON object by its SHA256 content hash in a sharded directory structure.
func (s *Store) StoreObject(obj any, kind string) (Ref, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return Ref{}, err
	}
	hash, err := s.write(data, ".json")
	if err != nil {
		return Ref{}, err
	}
	return Ref{Kind: kind, SHA256: hash}, nil
}

// StoreBlob stores raw bytes such as a rendered report.
func (s *Store) StoreBlob(data []byte, kind string) (Ref, error) {
	hash, err := s.write(data, "")
	if err != nil {
		return Ref{}, err
	}
	return Ref{Kind: kind, SHA256: hash}, nil
}

func (s *Store) write(data []byte, ext string) (string, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	dir := filepath.Join(s.BasePath, "objects", hash[:2])
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, hash+ext)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return hash, nil
}

// StoreResult archives a synthesis result and, when non-empty, its rendered
// Markdown report. The result is appended to the export index.
func (s *Store) StoreResult(result synthesis.SynthesisResult, report string) (Ref, *Ref, error) {
	ref, err := s.StoreObject(result, KindResult)
	if err != nil {
		return Ref{}, nil, fmt.Errorf("store result: %w", err)
	}

	var reportRef *Ref
	if report != "" {
		r, err := s.StoreBlob([]byte(report), KindReport)
		if err != nil {
			return ref, nil, fmt.Errorf("store report: %w", err)
		}
		reportRef = &r
	}

	entry := IndexEntry{Ref: ref, Query: result.Query, Confidence: result.Confidence, StoredAt: time.Now().UTC()}
	if err := s.appendIndex(entry); err != nil {
		return ref, reportRef, err
	}
	return ref, reportRef, nil
}

// LoadResult reads back an archived result.
func (s *Store) LoadResult(ref Ref) (synthesis.SynthesisResult, error) {
	var result synthesis.SynthesisResult
	data, err := os.ReadFile(s.ObjectPath(ref))
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("decode %s: %w", ref.SHA256, err)
	}
	return result, nil
}

// ObjectPath returns where ref is stored.
func (s *Store) ObjectPath(ref Ref) string {
	name := ref.SHA256
	if ref.Kind != KindReport {
		name += ".json"
	}
	if len(ref.SHA256) < 2 {
		return filepath.Join(s.BasePath, "objects", name)
	}
	return filepath.Join(s.BasePath, "objects", ref.SHA256[:2], name)
}

func (s *Store) indexPath() string {
	return filepath.Join(s.BasePath, "indexes", "results.jsonl")
}

func (s *Store) appendIndex(entry IndexEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(s.indexPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Index lists archived results in the order they were stored.
func (s *Store) Index() ([]IndexEntry, error) {
	f, err := os.Open(s.indexPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []IndexEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e IndexEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("decode index line: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}
