package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/prepverse/mockportal-backend/internal/config"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewRedisStore(rdb), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)
	snap := makeSnapshot(time.Now())

	if err := store.Save(ctx, 7, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(ctx, 7)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.TestID != snap.TestID {
		t.Fatalf("test id = %v, want %v", loaded.TestID, snap.TestID)
	}
	if loaded.TimeRemaining != snap.TimeRemaining {
		t.Fatalf("time remaining = %d, want %d", loaded.TimeRemaining, snap.TimeRemaining)
	}
	if len(loaded.Answers) != 1 || len(loaded.Questions) != 1 {
		t.Fatalf("loaded = %+v, want full attempt state", loaded)
	}
}

func TestRedisStoreLoadMissing(t *testing.T) {
	store, _ := newTestRedisStore(t)
	if _, err := store.Load(context.Background(), 7); err != ErrNoSnapshot {
		t.Fatalf("err = %v, want ErrNoSnapshot", err)
	}
}

func TestRedisStoreDiscard(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)

	if err := store.Save(ctx, 7, makeSnapshot(time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Discard(ctx, 7); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if _, err := store.Load(ctx, 7); err != ErrNoSnapshot {
		t.Fatalf("err = %v after discard, want ErrNoSnapshot", err)
	}
	if err := store.Discard(ctx, 7); err != nil {
		t.Fatalf("second Discard: %v", err)
	}
}

func TestRedisStoreKeyExpires(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	if err := store.Save(ctx, 7, makeSnapshot(time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}

	key := config.CacheKey.AttemptSnapshotKey(7)
	if ttl := mr.TTL(key); ttl != MaxAge {
		t.Fatalf("ttl = %v, want %v", ttl, MaxAge)
	}

	mr.FastForward(MaxAge + time.Minute)
	if _, err := store.Load(ctx, 7); err != ErrNoSnapshot {
		t.Fatalf("err = %v after TTL expiry, want ErrNoSnapshot", err)
	}
}

func TestRedisStoreRejectsStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)
	now := time.Now()
	store.WithClock(func() time.Time { return now })

	// The slot itself is fresh but the embedded save time is not; the
	// staleness policy is enforced on load, independent of the key TTL.
	if err := store.Save(ctx, 7, makeSnapshot(now.Add(-90*time.Minute))); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.Load(ctx, 7); err != ErrNoSnapshot {
		t.Fatalf("err = %v for stale save time, want ErrNoSnapshot", err)
	}

	// The rejected slot is also gone.
	if _, err := store.Load(ctx, 7); err != ErrNoSnapshot {
		t.Fatalf("err = %v, want empty slot after rejection", err)
	}
}

func TestRedisStoreRejectsCorruptSlot(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	key := config.CacheKey.AttemptSnapshotKey(7)
	if err := mr.Set(key, "{not json"); err != nil {
		t.Fatalf("seed corrupt slot: %v", err)
	}

	if _, err := store.Load(ctx, 7); err != ErrNoSnapshot {
		t.Fatalf("err = %v for corrupt slot, want ErrNoSnapshot", err)
	}
	if mr.Exists(key) {
		t.Fatal("corrupt slot survived load")
	}
}
