package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/luisalpizar/crm-intake/internal/core/domain"
	"github.com/luisalpizar/crm-intake/internal/infra/storage"
)

// MemoryStore implements storage.RecordStore in process memory. Used in dev
// mode and tests.
type MemoryStore struct {
	tables map[string]*table
	mu     sync.RWMutex
}

type table struct {
	header []string
	rows   [][]string
	nextID int64
	ids    []int64 // parallel to rows, stable across deletes
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*table)}
}

func (s *MemoryStore) getTable(name string) *table {
	t, ok := s.tables[name]
	if !ok {
		t = &table{header: domain.RecordHeader, nextID: 1}
		s.tables[name] = t
	}
	return t
}

func (s *MemoryStore) AppendRow(ctx context.Context, tableName string, fields []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.getTable(tableName)
	row := make([]string, len(fields))
	copy(row, fields)
	t.rows = append(t.rows, row)
	t.ids = append(t.ids, t.nextID)
	t.nextID++
	return nil
}

func (s *MemoryStore) FindRowByID(ctx context.Context, tableName, id string) (*storage.RowRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[tableName]
	if !ok {
		return nil, storage.ErrRowNotFound
	}
	idCol := columnIndex(t.header, "id")
	if idCol < 0 {
		return nil, fmt.Errorf("table %s has no id column", tableName)
	}
	for i, row := range t.rows {
		if idCol < len(row) && row[idCol] == id {
			return &storage.RowRef{Table: tableName, ID: id, Index: t.ids[i]}, nil
		}
	}
	return nil, storage.ErrRowNotFound
}

func (s *MemoryStore) UpdateCell(ctx context.Context, ref *storage.RowRef, column, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[ref.Table]
	if !ok {
		return storage.ErrRowNotFound
	}
	col := columnIndex(t.header, column)
	if col < 0 {
		return storage.ErrUnknownColumn
	}
	for i, rowID := range t.ids {
		if rowID == ref.Index {
			for col >= len(t.rows[i]) {
				t.rows[i] = append(t.rows[i], "")
			}
			t.rows[i][col] = value
			return nil
		}
	}
	return storage.ErrRowNotFound
}

func (s *MemoryStore) DeleteRow(ctx context.Context, ref *storage.RowRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[ref.Table]
	if !ok {
		return storage.ErrRowNotFound
	}
	for i, rowID := range t.ids {
		if rowID == ref.Index {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			t.ids = append(t.ids[:i], t.ids[i+1:]...)
			return nil
		}
	}
	return storage.ErrRowNotFound
}

func (s *MemoryStore) ReadAllRows(ctx context.Context, tableName string) ([]string, [][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[tableName]
	if !ok {
		return domain.RecordHeader, nil, nil
	}
	rows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		copied := make([]string, len(row))
		copy(copied, row)
		rows[i] = copied
	}
	return t.header, rows, nil
}

func columnIndex(header []string, name string) int {
	for i, col := range header {
		if col == name {
			return i
		}
	}
	return -1
}
