package storage

import "sync"

// KeyLock hands out one mutex per document key so that read-modify-
// write cycles against the same document never interleave. The store
// has no optimistic-write primitive, so a concurrent rewrite would
// silently drop the other writer's changes.
type KeyLock struct {
	mu   sync.Mutex
	keys map[string]*sync.Mutex
}

func NewKeyLock() *KeyLock {
	return &KeyLock{keys: make(map[string]*sync.Mutex)}
}

// Acquire locks the mutex for key and returns the release function.
// Locks for distinct keys are independent; operations on different
// partitions proceed in parallel.
func (kl *KeyLock) Acquire(key string) func() {
	kl.mu.Lock()
	m, ok := kl.keys[key]
	if !ok {
		m = &sync.Mutex{}
		kl.keys[key] = m
	}
	kl.mu.Unlock()

	m.Lock()
	return m.Unlock
}
