package entry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Store is the record of every entry ever processed. Its IDs seed the dedup set
// of the next run.
type Store interface {
	IDs(ctx context.Context) (map[string]struct{}, error)
	List(ctx context.Context) ([]Entry, error)
	// Append adds entries whose ID is not yet stored and reports how many were added.
	Append(ctx context.Context, entries []*Entry) (int, error)
	// SetPublished persists the publication fields of an already stored entry.
	SetPublished(ctx context.Context, e *Entry) error
	// Flush makes pending changes durable.
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// fileStore keeps the whole history as one JSON array, read fully on open and
// rewritten fully on Flush.
type fileStore struct {
	mu      sync.Mutex
	path    string
	entries []Entry
	index   map[string]int
	dirty   bool
	logger  *log.Logger
}

func NewFileStore(path string, logger *log.Logger) (Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	s := &fileStore{
		path:   path,
		index:  make(map[string]int),
		logger: logger,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *fileStore) load() error {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Printf("store: %s not found, starting empty", s.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: read %s: %w", s.path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return fmt.Errorf("store: decode %s: %w", s.path, err)
	}
	for _, e := range entries {
		if _, ok := s.index[e.ID]; ok {
			s.logger.Printf("store: dropping duplicate record %s", e.ID)
			continue
		}
		s.index[e.ID] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	s.logger.Printf("store: loaded %d entries from %s", len(s.entries), s.path)
	return nil
}

func (s *fileStore) IDs(_ context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[string]struct{}, len(s.index))
	for id := range s.index {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (s *fileStore) List(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...), nil
}

func (s *fileStore) Append(_ context.Context, entries []*Entry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, e := range entries {
		if _, ok := s.index[e.ID]; ok {
			s.logger.Printf("store: entry %s already stored, skipping", e.ID)
			continue
		}
		s.index[e.ID] = len(s.entries)
		s.entries = append(s.entries, *e)
		added++
	}
	if added > 0 {
		s.dirty = true
	}
	return added, nil
}

func (s *fileStore) SetPublished(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[e.ID]
	if !ok {
		return fmt.Errorf("store: entry %s not found", e.ID)
	}
	s.entries[i].Published = e.Published
	s.entries[i].PublishedAt = e.PublishedAt
	s.entries[i].PageURL = e.PageURL
	s.dirty = true
	return nil
}

// Flush rewrites the document through a temp file so a crash never leaves a
// truncated history behind.
func (s *fileStore) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	entries := s.entries
	if entries == nil {
		entries = []Entry{}
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("store: replace %s: %w", s.path, err)
	}

	s.dirty = false
	s.logger.Printf("store: saved %d entries to %s", len(s.entries), s.path)
	return nil
}

func (s *fileStore) Close(ctx context.Context) error {
	return s.Flush(ctx)
}
