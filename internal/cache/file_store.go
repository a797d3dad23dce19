package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/agenthands/truthseeker/internal/core/model"
	"github.com/spf13/cast"
)

// FileStore keeps the cache as one JSON document. Saves replace the file atomically so a reader
// never observes a partial write.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) (Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file '%s': %w", s.path, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse cache file '%s': %w", s.path, err)
	}

	snap := make(Snapshot, len(raw))
	for k, v := range raw {
		if e, ok := decodeEntry(v); ok {
			snap[k] = e
		}
	}
	return snap, nil
}

func (s *FileStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// decodeEntry is lenient: a bad timestamp drops the entry, a bad result drops only that result.
func decodeEntry(data []byte) (Entry, bool) {
	var raw struct {
		TS      any               `json:"ts"`
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Entry{}, false
	}
	ts, err := cast.ToFloat64E(raw.TS)
	if err != nil {
		return Entry{}, false
	}

	results := make([]model.SearchResult, 0, len(raw.Results))
	for _, item := range raw.Results {
		var r model.SearchResult
		if err := json.Unmarshal(item, &r); err != nil {
			continue
		}
		valid, err := model.NewSearchResult(r.Title, r.Description, r.URL, r.QueryTime)
		if err != nil {
			continue
		}
		results = append(results, valid)
	}
	return Entry{Timestamp: ts, Results: results}, true
}
