package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// JSONStore keeps the ledger as one JSON array in a single file. Every append
// rewrites the whole file through a temporary sibling and a rename.
type JSONStore struct {
	path string
	mu   sync.Mutex

	write  func(f *os.File, data []byte) error
	rename func(oldPath, newPath string) error
}

// NewJSONStore returns a store backed by path. The file is created on the
// first append.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{
		path: path,
		write: func(f *os.File, data []byte) error {
			_, err := f.Write(data)
			return err
		},
		rename: os.Rename,
	}
}

// Path returns the backing file.
func (s *JSONStore) Path() string { return s.path }

// Recent implements Store.
func (s *JSONStore) Recent(ctx context.Context, n int) ([]Record, error) {
	records, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return tail(records, n), nil
}

// All implements Store.
func (s *JSONStore) All(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Append implements Store.
func (s *JSONStore) Append(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	records = append(records, rec)
	return s.save(records)
}

// Close implements Store.
func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ledger file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse ledger file: %w", err)
	}
	return records, nil
}

// save writes the ledger atomically. The previous file is untouched until the
// rename succeeds.
func (s *JSONStore) save(records []Record) (err error) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err = s.write(tmp, data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = s.rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
