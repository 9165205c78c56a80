package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/prepverse/mockportal-backend/internal/model"
)

// snapshotSink collects saved snapshots behind a mutex so the runner
// goroutine and test assertions never race.
type snapshotSink struct {
	mu    sync.Mutex
	snaps []*model.Snapshot
}

func (s *snapshotSink) save(_ context.Context, snap *model.Snapshot) error {
	s.mu.Lock()
	s.snaps = append(s.snaps, snap)
	s.mu.Unlock()
	return nil
}

func (s *snapshotSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snaps)
}

func (s *snapshotSink) last() *model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snaps) == 0 {
		return nil
	}
	return s.snaps[len(s.snaps)-1]
}

func TestRunnerAutoSubmitsOnExpiry(t *testing.T) {
	test := buildTest(2)
	test.DurationSeconds = 2
	sess := NewSession()
	if err := sess.Start(test); err != nil {
		t.Fatalf("Start: %v", err)
	}

	results := make(chan *model.AttemptResult, 1)
	runner := NewRunner(sess, RunnerConfig{
		TickInterval: 5 * time.Millisecond,
		SaveInterval: time.Hour,
		OnAutoSubmit: func(result *model.AttemptResult) { results <- result },
		Logger:       zerolog.Nop(),
	})

	done := make(chan struct{})
	go func() {
		runner.Run(context.Background())
		close(done)
	}()

	select {
	case result := <-results:
		if result == nil || result.TimeTakenSeconds != 2 {
			t.Fatalf("result = %+v, want full-duration auto-submit", result)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("auto-submit never fired")
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop after auto-submit")
	}
	if got := sess.Phase(); got != model.PhaseCompleted {
		t.Fatalf("phase = %v, want completed", got)
	}
}

func TestRunnerStopsAfterUserSubmit(t *testing.T) {
	sess, _ := startedSession(t, 2)
	runner := NewRunner(sess, RunnerConfig{
		TickInterval: 5 * time.Millisecond,
		SaveInterval: time.Hour,
		Logger:       zerolog.Nop(),
	})

	done := make(chan struct{})
	go func() {
		runner.Run(context.Background())
		close(done)
	}()

	if _, _, err := sess.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runner kept ticking after submit")
	}
}

func TestRunnerSavesOnlyWhenDirty(t *testing.T) {
	sess, _ := startedSession(t, 3)
	questions := sess.Questions()

	sink := &snapshotSink{}
	runner := NewRunner(sess, RunnerConfig{
		TickInterval: time.Hour,
		SaveInterval: 10 * time.Millisecond,
		Save:         sink.save,
		Logger:       zerolog.Nop(),
	})
	sess.SetMutationListener(runner.MarkDirty)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	// No mutation yet: the save ticker must stay quiet.
	time.Sleep(50 * time.Millisecond)
	if got := sink.count(); got != 0 {
		t.Fatalf("saves = %d before any mutation, want 0", got)
	}

	sess.Answer(questions[0].ID, 1)

	deadline := time.Now().Add(5 * time.Second)
	for sink.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("dirty session was never saved")
		}
		time.Sleep(5 * time.Millisecond)
	}

	snap := sink.last()
	if snap.Answers[questions[0].ID] != 1 {
		t.Fatalf("saved snapshot answers = %v, want recorded answer", snap.Answers)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop on cancel")
	}
}

func TestRunnerSaveNowIgnoresDirtyFlag(t *testing.T) {
	sess, _ := startedSession(t, 2)

	sink := &snapshotSink{}
	runner := NewRunner(sess, RunnerConfig{
		Save:   sink.save,
		Logger: zerolog.Nop(),
	})

	runner.SaveNow(context.Background())
	if got := sink.count(); got != 1 {
		t.Fatalf("saves = %d, want immediate save", got)
	}
}

func TestRunnerDefaultsIntervals(t *testing.T) {
	sess := NewSession()
	runner := NewRunner(sess, RunnerConfig{Logger: zerolog.Nop()})

	if runner.cfg.TickInterval != DefaultTickInterval {
		t.Fatalf("tick interval = %v, want %v", runner.cfg.TickInterval, DefaultTickInterval)
	}
	if runner.cfg.SaveInterval != DefaultSaveInterval {
		t.Fatalf("save interval = %v, want %v", runner.cfg.SaveInterval, DefaultSaveInterval)
	}
}
