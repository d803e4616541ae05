package recent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/occva/X-Bookmarks/internal/domain"
)

// FileStore keeps the list in a JSON file.
type FileStore struct {
	path string
	mu   sync.Mutex
	max  int
}

// NewFileStore creates a file-backed store. The file is created on first write.
func NewFileStore(path string, max int) *FileStore {
	if max <= 0 {
		max = DefaultMax
	}
	return &FileStore{
		path: path,
		max:  max,
	}
}

// List returns the stored entries, newest first.
func (s *FileStore) List(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readLocked()
}

// Add stores e at the front of the list.
func (s *FileStore) Add(_ context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A corrupt file is replaced rather than blocking new entries.
	entries, _ := s.readLocked()
	return s.writeLocked(insert(entries, e, s.max))
}

// Remove deletes one entry.
func (s *FileStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readLocked()
	if err != nil {
		return err
	}
	for i, e := range entries {
		if e.Key == key {
			return s.writeLocked(append(entries[:i], entries[i+1:]...))
		}
	}
	return domain.ErrRecentNotFound
}

// Clear removes the file.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove recent store: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) readLocked() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read recent store: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode recent store: %w", err)
	}
	if len(entries) > s.max {
		entries = entries[:s.max]
	}
	return entries, nil
}

func (s *FileStore) writeLocked(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode recent store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create recent store dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write recent store: %w", err)
	}
	return nil
}
