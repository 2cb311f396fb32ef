package checkpoint

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps checkpoints in a map. Contents are lost when the process
// exits.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]Checkpoint
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]Checkpoint)}
}

// Save stores a copy of cp.
func (s *MemoryStore) Save(_ context.Context, cp Checkpoint) error {
	cp, err := prepare(cp)
	if err != nil {
		return err
	}
	cp.State = slices.Clone(cp.State)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[cp.RunID] = cp
	return nil
}

// Load returns a copy of the stored checkpoint.
func (s *MemoryStore) Load(_ context.Context, runID string) (Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.runs[runID]
	if !ok {
		return Checkpoint{}, ErrNotFound
	}
	cp.State = slices.Clone(cp.State)
	return cp, nil
}

// Delete removes the checkpoint for runID.
func (s *MemoryStore) Delete(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
	return nil
}

// Len returns the number of stored checkpoints.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
