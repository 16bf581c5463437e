// Package memory provides an in-memory implementation of the storage
// interfaces, used in tests and ephemeral dev runs.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/billy1976-servant/screenloom/internal/storage"
)

// Store keeps the event log and screen documents in process memory.
type Store struct {
	mu      sync.Mutex
	log     []byte
	hasLog  bool
	screens map[string]storage.ScreenRecord
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{screens: map[string]storage.ScreenRecord{}}
}

// SaveLog replaces the stored event log payload.
func (s *Store) SaveLog(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append([]byte(nil), data...)
	s.hasLog = true
	return nil
}

// LoadLog returns the stored event log payload if any.
func (s *Store) LoadLog(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasLog {
		return nil, false, nil
	}
	return append([]byte(nil), s.log...), true, nil
}

// PutScreen inserts or replaces one screen document.
func (s *Store) PutScreen(ctx context.Context, record storage.ScreenRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := strings.TrimSpace(record.Key)
	if key == "" {
		return fmt.Errorf("screen key is required")
	}
	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screens[key] = storage.ScreenRecord{
		Key:       key,
		Document:  append(json.RawMessage(nil), record.Document...),
		UpdatedAt: updatedAt,
	}
	return nil
}

// GetScreen returns one screen document by key.
func (s *Store) GetScreen(ctx context.Context, key string) (storage.ScreenRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ScreenRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.screens[strings.TrimSpace(key)]
	if !ok {
		return storage.ScreenRecord{}, storage.ErrNotFound
	}
	record.Document = append(json.RawMessage(nil), record.Document...)
	return record, nil
}

// ListScreens returns all stored screen documents ordered by key.
func (s *Store) ListScreens(ctx context.Context) ([]storage.ScreenRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]storage.ScreenRecord, 0, len(s.screens))
	for _, record := range s.screens {
		record.Document = append(json.RawMessage(nil), record.Document...)
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records, nil
}

// DeleteScreen removes one screen document.
func (s *Store) DeleteScreen(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key = strings.TrimSpace(key)
	if _, ok := s.screens[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.screens, key)
	return nil
}

var (
	_ storage.EventLogStore = (*Store)(nil)
	_ storage.ScreenStore   = (*Store)(nil)
)
