package verification

import (
	"context"
	"sync"
)

// MemoryStatusStore keeps applicant status in a mutex-guarded map. Records
// live for the process lifetime; contention is low, so one lock suffices.
type MemoryStatusStore struct {
	mu       sync.RWMutex
	statuses map[string]Status
}

// NewMemoryStatusStore constructs an empty status store.
func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{statuses: make(map[string]Status)}
}

func (s *MemoryStatusStore) Get(_ context.Context, applicantDID string) (Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if status, ok := s.statuses[applicantDID]; ok {
		return status, nil
	}
	return StatusNone, nil
}

func (s *MemoryStatusStore) MarkPending(_ context.Context, applicantDID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// COMPLETED is terminal; re-entering PENDING is disallowed.
	if s.statuses[applicantDID] == StatusCompleted {
		return nil
	}
	s.statuses[applicantDID] = StatusPending
	return nil
}

func (s *MemoryStatusStore) MarkCompleted(_ context.Context, applicantDID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[applicantDID] = StatusCompleted
	return nil
}

var _ StatusStore = (*MemoryStatusStore)(nil)
