package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dbxmcp/dbxmcp/state"
)

const defaultLimit = 50

// Store keeps cursors in process memory. Useful for tests and for servers
// that do not need resume across restarts.
type Store struct {
	mu      sync.RWMutex
	records map[string]state.CursorRecord
}

func New() *Store {
	return &Store{records: map[string]state.CursorRecord{}}
}

func (s *Store) SaveCursor(_ context.Context, record state.CursorRecord) error {
	if record.Handle == "" {
		return fmt.Errorf("handle is required")
	}
	if record.Cursor == "" {
		return fmt.Errorf("cursor is required")
	}
	now := time.Now().UTC()
	if record.CreatedAt == nil {
		if existing, ok := s.get(record.Handle); ok && existing.CreatedAt != nil {
			record.CreatedAt = existing.CreatedAt
		} else {
			record.CreatedAt = &now
		}
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Handle] = record
	return nil
}

func (s *Store) LoadCursor(_ context.Context, handle string) (state.CursorRecord, error) {
	record, ok := s.get(handle)
	if !ok {
		return state.CursorRecord{}, state.ErrNotFound
	}
	return record, nil
}

func (s *Store) ListCursors(_ context.Context, query state.ListCursorsQuery) ([]state.CursorRecord, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	s.mu.RLock()
	out := make([]state.CursorRecord, 0, len(s.records))
	for _, record := range s.records {
		if query.Tool != "" && record.Tool != query.Tool {
			continue
		}
		out = append(out, record)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ti, tj := time.Time{}, time.Time{}
		if out[i].UpdatedAt != nil {
			ti = *out[i].UpdatedAt
		}
		if out[j].UpdatedAt != nil {
			tj = *out[j].UpdatedAt
		}
		return ti.After(tj)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) DeleteCursor(_ context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[handle]; !ok {
		return state.ErrNotFound
	}
	delete(s.records, handle)
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) get(handle string) (state.CursorRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[handle]
	return record, ok
}
