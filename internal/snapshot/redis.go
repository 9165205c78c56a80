package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prepverse/mockportal-backend/internal/config"
	"github.com/prepverse/mockportal-backend/internal/model"
)

// RedisStore keeps the snapshot slot in Redis so the attempt survives a
// process restart. The key TTL mirrors the staleness window, but the
// policy is still enforced on load: TTL cannot express the
// time-remaining condition.
type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, now: time.Now}
}

// WithClock overrides the clock used for staleness checks. Test hook.
func (s *RedisStore) WithClock(now func() time.Time) *RedisStore {
	s.now = now
	return s
}

// Save serializes the snapshot into the student's slot. Overlapping
// saves are harmless: the slot holds one value and last write wins.
func (s *RedisStore) Save(ctx context.Context, studentID int, snap *model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	key := config.CacheKey.AttemptSnapshotKey(studentID)
	if err := s.rdb.Set(ctx, key, data, MaxAge).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load reads and validates the student's slot. Stale or corrupt
// snapshots are discarded and reported as absent.
func (s *RedisStore) Load(ctx context.Context, studentID int) (*model.Snapshot, error) {
	key := config.CacheKey.AttemptSnapshotKey(studentID)
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		_ = s.Discard(ctx, studentID)
		return nil, ErrNoSnapshot
	}

	if !valid(&snap, s.now()) {
		_ = s.Discard(ctx, studentID)
		return nil, ErrNoSnapshot
	}
	return &snap, nil
}

// Discard deletes the slot. Idempotent; deleting a missing key is fine.
func (s *RedisStore) Discard(ctx context.Context, studentID int) error {
	return s.rdb.Del(ctx, config.CacheKey.AttemptSnapshotKey(studentID)).Err()
}
