package task

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is the default in-process registry: a mutex-guarded map.
// Construct one per gateway (or per test); there is no package-level
// instance.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]*Record)}
}

func (s *MemoryStore) Create(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; ok {
		return fmt.Errorf("create %s: %w", id, ErrExists)
	}

	now := time.Now()
	s.tasks[id] = &Record{
		ID:        id,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (s *MemoryStore) SetResult(ctx context.Context, id string, status Status, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("set result %s: %w", id, ErrNotFound)
	}
	if rec.Status.Terminal() {
		return fmt.Errorf("set result %s: %w", id, ErrTerminal)
	}

	rec.Status = status
	rec.Result = result
	rec.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy so pollers never observe a concurrent write.
	snapshot := *rec
	return &snapshot, nil
}

func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks), nil
}
