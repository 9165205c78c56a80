// Package snapshot implements the save/resume protocol: one durable
// slot per student holding a serialized copy of in-progress attempt
// state, with a staleness policy applied on load.
package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/prepverse/mockportal-backend/internal/model"
)

// MaxAge is the staleness window: snapshots older than this are
// discarded on load rather than offered for resume.
const MaxAge = time.Hour

// ErrNoSnapshot is returned by Load when no valid snapshot exists.
var ErrNoSnapshot = errors.New("no saved snapshot")

// Store is the durable slot the save/resume protocol writes to.
// Saves are idempotent last-write-wins against a single slot per
// student; Discard succeeds even when no snapshot exists.
type Store interface {
	Save(ctx context.Context, studentID int, snap *model.Snapshot) error
	Load(ctx context.Context, studentID int) (*model.Snapshot, error)
	Discard(ctx context.Context, studentID int) error
}

// valid applies the staleness policy: a snapshot is resumable only if
// it was saved less than MaxAge ago and still has time on the clock.
func valid(snap *model.Snapshot, now time.Time) bool {
	savedAt := time.UnixMilli(snap.SavedAt)
	return now.Sub(savedAt) < MaxAge && snap.TimeRemaining > 0
}
