package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/prepverse/mockportal-backend/internal/model"
)

const (
	// DefaultTickInterval drives the session countdown.
	DefaultTickInterval = time.Second
	// DefaultSaveInterval is the periodic snapshot cadence.
	DefaultSaveInterval = 5 * time.Second
)

// RunnerConfig wires a Runner to its session's side channels.
type RunnerConfig struct {
	TickInterval time.Duration
	SaveInterval time.Duration

	// Save persists one snapshot. Failures are logged and retried on
	// the next period; a single lost save is non-fatal.
	Save func(ctx context.Context, snap *model.Snapshot) error

	// OnAutoSubmit is invoked exactly once if the countdown reaches
	// zero and the session auto-submits.
	OnAutoSubmit func(result *model.AttemptResult)

	Logger zerolog.Logger
}

// Runner drives one in-progress session: the 1-second countdown tick
// and the 5-second periodic snapshot save. Both are interrupt-style
// callbacks into the single-writer session, never parallel mutators.
// The loop stops deterministically as soon as the session leaves
// InProgress or the context is cancelled, so no stray tick or save can
// touch a Completed or NotStarted attempt.
type Runner struct {
	session *Session
	cfg     RunnerConfig
	dirty   atomic.Bool
	log     zerolog.Logger
}

// NewRunner creates a Runner for a session.
func NewRunner(session *Session, cfg RunnerConfig) *Runner {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.SaveInterval <= 0 {
		cfg.SaveInterval = DefaultSaveInterval
	}
	return &Runner{
		session: session,
		cfg:     cfg,
		log:     cfg.Logger.With().Str("component", "session_runner").Logger(),
	}
}

// MarkDirty flags that the session mutated since the last save. Wired
// as the session's mutation listener.
func (r *Runner) MarkDirty() {
	r.dirty.Store(true)
}

// SaveNow persists a snapshot immediately, regardless of the dirty
// flag. Used for the opportunistic save on loss of visibility.
func (r *Runner) SaveNow(ctx context.Context) {
	r.dirty.Store(false)
	r.persist(ctx)
}

// Run blocks, ticking and saving, until the session completes or ctx is
// cancelled. Call in a goroutine.
func (r *Runner) Run(ctx context.Context) {
	tick := time.NewTicker(r.cfg.TickInterval)
	defer tick.Stop()
	save := time.NewTicker(r.cfg.SaveInterval)
	defer save.Stop()

	r.log.Debug().Msg("Runner started")

	for {
		select {
		case <-ctx.Done():
			r.log.Debug().Msg("Runner stopped")
			return

		case <-tick.C:
			if expired := r.session.Tick(); expired {
				r.log.Info().Msg("Time expired, attempt auto-submitted")
				if r.cfg.OnAutoSubmit != nil {
					r.cfg.OnAutoSubmit(r.session.Result())
				}
				return
			}
			// A user-triggered submit elsewhere also ends the loop.
			if r.session.Phase() != model.PhaseInProgress {
				return
			}

		case <-save.C:
			if r.dirty.Swap(false) {
				r.persist(ctx)
			}
		}
	}
}

func (r *Runner) persist(ctx context.Context) {
	snap := r.session.Snapshot()
	if snap == nil || r.cfg.Save == nil {
		return
	}
	if err := r.cfg.Save(ctx, snap); err != nil {
		// The next periodic save retries; the session continues in memory.
		r.log.Warn().Err(err).Msg("Snapshot save failed")
		r.dirty.Store(true)
	}
}
