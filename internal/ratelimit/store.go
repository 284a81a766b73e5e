package ratelimit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store persists learned boundaries per limiter key across process restarts.
type Store interface {
	// Load returns the stored boundary for key, or ok=false if none exists.
	Load(key Key) (Boundary, bool, error)

	// Save durably records the boundary for key, overwriting any previous
	// entry. The boundary must validate.
	Save(key Key, b Boundary) error

	// ListAll returns every stored key→boundary entry.
	ListAll() (map[string]Boundary, error)
}

// FileStore keeps all boundaries in a single JSON document on disk. Writes
// are read-modify-write under a mutex and land via a temp file rename, so a
// crash mid-write never leaves a truncated document and concurrent saves for
// different keys cannot corrupt each other's entries.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by the given file path. The file does
// not need to exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load implements Store.
func (s *FileStore) Load(key Key) (Boundary, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return Boundary{}, false, err
	}
	b, ok := doc[key.String()]
	return b, ok, nil
}

// Save implements Store.
func (s *FileStore) Save(key Key, b Boundary) error {
	if err := b.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return err
	}
	doc[key.String()] = b
	return s.writeLocked(doc)
}

// ListAll implements Store.
func (s *FileStore) ListAll() (map[string]Boundary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

// readLocked loads the whole document, treating a missing file as empty.
// Caller must hold s.mu.
func (s *FileStore) readLocked() (map[string]Boundary, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]Boundary), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read boundary file: %w", err)
	}

	doc := make(map[string]Boundary)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse boundary file %s: %w", s.path, err)
	}
	return doc, nil
}

// writeLocked atomically replaces the document on disk. Caller must hold s.mu.
func (s *FileStore) writeLocked(doc map[string]Boundary) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal boundaries: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".boundaries-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp boundary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp boundary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp boundary file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace boundary file: %w", err)
	}
	return nil
}
