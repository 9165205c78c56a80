package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/prepverse/mockportal-backend/internal/model"
)

func makeSnapshot(savedAt time.Time) *model.Snapshot {
	q := model.Question{
		ID:            uuid.New(),
		Prompt:        "prompt",
		OptionA:       "alpha",
		OptionB:       "bravo",
		OptionC:       "charlie",
		OptionD:       "delta",
		CorrectOption: model.OptionB,
	}
	return &model.Snapshot{
		TestID: uuid.New(),
		Questions: []model.ShuffledQuestion{{
			Question:         q,
			PresentedOptions: []string{"bravo", "delta", "alpha", "charlie"},
			CorrectIndex:     0,
		}},
		Answers:       map[uuid.UUID]int{q.ID: 0},
		Marked:        map[uuid.UUID]bool{q.ID: true},
		Visited:       []int{0},
		CurrentIndex:  0,
		TimeRemaining: 120,
		Violations:    []string{"10:00:00: tab switch"},
		SavedAt:       savedAt.UnixMilli(),
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	snap := makeSnapshot(time.Now())

	if err := store.Save(ctx, 1, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, 1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.TestID != snap.TestID {
		t.Fatalf("test id = %v, want %v", loaded.TestID, snap.TestID)
	}
	if loaded.TimeRemaining != 120 || loaded.CurrentIndex != 0 {
		t.Fatalf("loaded = %+v, want original state", loaded)
	}
	if len(loaded.Questions) != 1 || loaded.Questions[0].CorrectIndex != 0 {
		t.Fatalf("questions = %+v, want frozen shuffle", loaded.Questions)
	}
	if loaded.Questions[0].PresentedOptions[0] != "bravo" {
		t.Fatalf("option order = %v, changed across round trip", loaded.Questions[0].PresentedOptions)
	}
	if len(loaded.Violations) != 1 {
		t.Fatalf("violations = %v, want original log", loaded.Violations)
	}
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Load(context.Background(), 42); err != ErrNoSnapshot {
		t.Fatalf("err = %v, want ErrNoSnapshot", err)
	}
}

func TestMemoryStoreDiscard(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Save(ctx, 1, makeSnapshot(time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Discard(ctx, 1); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if _, err := store.Load(ctx, 1); err != ErrNoSnapshot {
		t.Fatalf("err = %v after discard, want ErrNoSnapshot", err)
	}

	// Discarding an empty slot is fine.
	if err := store.Discard(ctx, 1); err != nil {
		t.Fatalf("second Discard: %v", err)
	}
}

func TestMemoryStoreLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first := makeSnapshot(time.Now())
	second := makeSnapshot(time.Now())
	second.TimeRemaining = 30

	if err := store.Save(ctx, 1, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, 1, second); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, 1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.TestID != second.TestID || loaded.TimeRemaining != 30 {
		t.Fatalf("loaded = %+v, want the second save", loaded)
	}
}

func TestMemoryStoreRejectsStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := NewMemoryStore().WithClock(func() time.Time { return now })

	if err := store.Save(ctx, 1, makeSnapshot(now.Add(-2*time.Hour))); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.Load(ctx, 1); err != ErrNoSnapshot {
		t.Fatalf("err = %v for 2h-old snapshot, want ErrNoSnapshot", err)
	}
}

func TestMemoryStoreRejectsExpiredTimer(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	snap := makeSnapshot(time.Now())
	snap.TimeRemaining = 0
	if err := store.Save(ctx, 1, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.Load(ctx, 1); err != ErrNoSnapshot {
		t.Fatalf("err = %v for zero time remaining, want ErrNoSnapshot", err)
	}
}

func TestMemoryStoreSlotsAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Save(ctx, 1, makeSnapshot(time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Discard(ctx, 2); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if _, err := store.Load(ctx, 1); err != nil {
		t.Fatalf("Load: %v, other student's discard must not touch slot 1", err)
	}
	if _, err := store.Load(ctx, 2); err != ErrNoSnapshot {
		t.Fatalf("err = %v for empty slot, want ErrNoSnapshot", err)
	}
}
