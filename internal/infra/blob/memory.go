package blob

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore implements Store in process memory for dev mode and tests.
type MemoryStore struct {
	files map[string][]byte
	mu    sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func (s *MemoryStore) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]byte, len(data))
	copy(copied, data)
	s.files[filename] = copied
	return fmt.Sprintf("memory://%s", filename), nil
}

// Get returns an uploaded file, for test assertions.
func (s *MemoryStore) Get(filename string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[filename]
	return data, ok
}
