package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process DocStore and FileStore. It backs the
// "memory" storage backend for local development and is the store the
// test suites run against.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string][]byte
	files map[string][]byte

	// FailPuts forces every Put to fail, for exercising store-failure
	// paths in tests.
	FailPuts bool
	// FailFileDeletes forces DeleteFile to fail, for exercising the
	// best-effort file cleanup path.
	FailFileDeletes bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  make(map[string][]byte),
		files: make(map[string][]byte),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte) error {
	if s.FailPuts {
		return errStoreDown
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.docs[key] = stored
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[key]; !ok {
		return ErrNotFound
	}
	delete(s.docs, key)
	return nil
}

func (s *MemoryStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key := range s.docs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) PutFile(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.files[name] = stored
	return "memory://" + name, nil
}

func (s *MemoryStore) DeleteFile(ctx context.Context, name string) error {
	if s.FailFileDeletes {
		return errStoreDown
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.files, name)
	return nil
}

// HasFile reports whether a file is present, for test assertions.
func (s *MemoryStore) HasFile(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.files[name]
	return ok
}

type storeDownError struct{}

func (storeDownError) Error() string { return "store unavailable" }

var errStoreDown = storeDownError{}
