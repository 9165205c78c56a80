package snapshot

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/prepverse/mockportal-backend/internal/model"
)

// MemoryStore is an in-process Store used by tests and as a fallback
// when Redis is unavailable. Snapshots are kept as encoded bytes so the
// codec path matches the durable implementation.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[int][]byte
	now   func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots: make(map[int][]byte),
		now:   time.Now,
	}
}

// WithClock overrides the clock used for staleness checks. Test hook.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// Save overwrites the student's slot. Last write wins.
func (s *MemoryStore) Save(_ context.Context, studentID int, snap *model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.slots[studentID] = data
	s.mu.Unlock()
	return nil
}

// Load returns the student's snapshot, discarding it first if stale.
func (s *MemoryStore) Load(_ context.Context, studentID int) (*model.Snapshot, error) {
	s.mu.RLock()
	data, ok := s.slots[studentID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNoSnapshot
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// Corrupt slot: drop it rather than blocking future saves.
		_ = s.Discard(context.Background(), studentID)
		return nil, ErrNoSnapshot
	}

	if !valid(&snap, s.now()) {
		_ = s.Discard(context.Background(), studentID)
		return nil, ErrNoSnapshot
	}
	return &snap, nil
}

// Discard removes the slot. Idempotent.
func (s *MemoryStore) Discard(_ context.Context, studentID int) error {
	s.mu.Lock()
	delete(s.slots, studentID)
	s.mu.Unlock()
	return nil
}
