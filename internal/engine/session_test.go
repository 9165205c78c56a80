package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/prepverse/mockportal-backend/internal/model"
)

func buildTest(n int) *model.Test {
	test := &model.Test{
		ID:              uuid.New(),
		Name:            "Mock Test",
		DurationSeconds: 600,
		Questions:       make([]model.Question, n),
	}
	for i := range test.Questions {
		test.Questions[i] = makeQuestion(model.OptionKeys[i%model.OptionCount])
	}
	return test
}

func startedSession(t *testing.T, n int, opts ...Option) (*Session, *model.Test) {
	t.Helper()
	test := buildTest(n)
	sess := NewSession(opts...)
	if err := sess.Start(test); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return sess, test
}

func TestSessionStart(t *testing.T) {
	sess, test := startedSession(t, 5)

	if got := sess.Phase(); got != model.PhaseInProgress {
		t.Fatalf("phase = %v, want in progress", got)
	}
	if got := sess.TimeRemaining(); got != test.DurationSeconds {
		t.Fatalf("time remaining = %d, want %d", got, test.DurationSeconds)
	}
	if got := sess.CurrentIndex(); got != 0 {
		t.Fatalf("current index = %d, want 0", got)
	}
	counts := sess.StatusCounts()
	if counts.VisitedNotAnswered != 1 || counts.NotVisited != 4 {
		t.Fatalf("counts = %+v, want only index 0 visited", counts)
	}
}

func TestSessionStartRejectsEmptyTest(t *testing.T) {
	sess := NewSession()
	if err := sess.Start(&model.Test{ID: uuid.New(), DurationSeconds: 60}); err != ErrNoQuestions {
		t.Fatalf("err = %v, want ErrNoQuestions", err)
	}
	if err := sess.Start(nil); err != ErrNoQuestions {
		t.Fatalf("err = %v, want ErrNoQuestions for nil test", err)
	}
}

func TestSessionStartRejectsDoubleStart(t *testing.T) {
	sess, test := startedSession(t, 3)
	if err := sess.Start(test); err != ErrAlreadyStarted {
		t.Fatalf("err = %v, want ErrAlreadyStarted", err)
	}
}

func TestSessionAnswer(t *testing.T) {
	sess, _ := startedSession(t, 3)
	questions := sess.Questions()

	sess.Answer(questions[0].ID, 2)
	sess.Answer(questions[0].ID, 1) // last write wins
	sess.Answer(questions[1].ID, -1)
	sess.Answer(questions[1].ID, model.OptionCount)
	sess.Answer(uuid.New(), 0) // unknown question

	answers := sess.Answers()
	if len(answers) != 1 {
		t.Fatalf("answers = %v, want single entry", answers)
	}
	if answers[questions[0].ID] != 1 {
		t.Fatalf("answer = %d, want 1", answers[questions[0].ID])
	}
}

func TestSessionClearAnswer(t *testing.T) {
	sess, _ := startedSession(t, 3)
	questions := sess.Questions()

	sess.Answer(questions[0].ID, 2)
	sess.ClearAnswer()

	if got := len(sess.Answers()); got != 0 {
		t.Fatalf("answers = %d entries, want 0", got)
	}
}

func TestSessionSaveAndNext(t *testing.T) {
	sess, _ := startedSession(t, 3)

	sess.SaveAndNext()
	sess.SaveAndNext()
	if got := sess.CurrentIndex(); got != 2 {
		t.Fatalf("current index = %d, want 2", got)
	}

	// No-op on the last question.
	sess.SaveAndNext()
	if got := sess.CurrentIndex(); got != 2 {
		t.Fatalf("current index = %d, want to stay at 2", got)
	}
}

func TestSessionMarkAndNext(t *testing.T) {
	sess, _ := startedSession(t, 3)
	questions := sess.Questions()

	sess.MarkAndNext()
	if got := sess.CurrentIndex(); got != 1 {
		t.Fatalf("current index = %d, want 1", got)
	}

	marked := sess.MarkedIDs()
	if len(marked) != 1 || marked[0] != questions[0].ID {
		t.Fatalf("marked = %v, want only question 0", marked)
	}
}

func TestSessionNavigateTo(t *testing.T) {
	sess, _ := startedSession(t, 5)

	sess.NavigateTo(4)
	if got := sess.CurrentIndex(); got != 4 {
		t.Fatalf("current index = %d, want 4", got)
	}
	sess.NavigateTo(1)
	if got := sess.CurrentIndex(); got != 1 {
		t.Fatalf("current index = %d, want 1", got)
	}

	sess.NavigateTo(-1)
	sess.NavigateTo(5)
	if got := sess.CurrentIndex(); got != 1 {
		t.Fatalf("current index = %d, want bounds-checked 1", got)
	}

	counts := sess.StatusCounts()
	if counts.VisitedNotAnswered != 3 {
		t.Fatalf("counts = %+v, want indices 0, 1 and 4 visited", counts)
	}
}

func TestSessionTickCountsDown(t *testing.T) {
	sess, test := startedSession(t, 2)

	for i := 0; i < 10; i++ {
		if sess.Tick() {
			t.Fatalf("tick %d reported expiry", i)
		}
	}
	if got := sess.TimeRemaining(); got != test.DurationSeconds-10 {
		t.Fatalf("time remaining = %d, want %d", got, test.DurationSeconds-10)
	}
}

func TestSessionTickAutoSubmitsExactlyOnce(t *testing.T) {
	test := buildTest(2)
	test.DurationSeconds = 3
	sess := NewSession()
	if err := sess.Start(test); err != nil {
		t.Fatalf("Start: %v", err)
	}
	questions := sess.Questions()
	sess.Answer(questions[0].ID, questions[0].CorrectIndex)

	expirations := 0
	for i := 0; i < 10; i++ {
		if sess.Tick() {
			expirations++
		}
	}
	if expirations != 1 {
		t.Fatalf("expirations = %d, want exactly 1", expirations)
	}
	if got := sess.Phase(); got != model.PhaseCompleted {
		t.Fatalf("phase = %v, want completed", got)
	}

	result := sess.Result()
	if result == nil {
		t.Fatal("result is nil after auto-submit")
	}
	if result.Correct != 1 || result.Unattempted != 1 {
		t.Fatalf("result = %+v, want 1 correct 1 unattempted", result)
	}
	if result.TimeTakenSeconds != 3 {
		t.Fatalf("time taken = %d, want full duration", result.TimeTakenSeconds)
	}
}

func TestSessionSubmitIdempotent(t *testing.T) {
	sess, _ := startedSession(t, 4)
	questions := sess.Questions()
	sess.Answer(questions[0].ID, questions[0].CorrectIndex)

	first, performed, err := sess.Submit()
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !performed {
		t.Fatal("first submit reported performed=false")
	}

	second, performed, err := sess.Submit()
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if performed {
		t.Fatal("second submit reported performed=true")
	}
	if first != second {
		t.Fatal("second submit returned a different result")
	}
}

func TestSessionSubmitBeforeStart(t *testing.T) {
	sess := NewSession()
	if _, _, err := sess.Submit(); err != ErrNotInProgress {
		t.Fatalf("err = %v, want ErrNotInProgress", err)
	}
}

func TestSessionMutationsFrozenAfterSubmit(t *testing.T) {
	sess, _ := startedSession(t, 3)
	questions := sess.Questions()
	sess.Answer(questions[0].ID, 0)

	if _, _, err := sess.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	sess.Answer(questions[1].ID, 0)
	sess.NavigateTo(2)
	sess.RecordViolation("tab switch")
	sess.Tick()

	if got := len(sess.Answers()); got != 1 {
		t.Fatalf("answers = %d entries after submit, want frozen 1", got)
	}
	if got := sess.CurrentIndex(); got != 0 {
		t.Fatalf("current index = %d after submit, want frozen 0", got)
	}
	if got := len(sess.Violations()); got != 0 {
		t.Fatalf("violations = %d after submit, want 0", got)
	}
}

func TestSessionRecordViolationFormat(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 14, 30, 5, 0, time.UTC)
	sess := NewSession(WithClock(func() time.Time { return fixed }))
	if err := sess.Start(buildTest(2)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	sess.RecordViolation("window lost focus")
	sess.RecordViolation("window lost focus") // duplicates are kept

	violations := sess.Violations()
	if len(violations) != 2 {
		t.Fatalf("violations = %d, want 2", len(violations))
	}
	if violations[0] != "14:30:05: window lost focus" {
		t.Fatalf("violation = %q, want timestamped message", violations[0])
	}
}

func TestSessionMutationListener(t *testing.T) {
	fired := 0
	sess, _ := startedSession(t, 3, WithMutationListener(func() { fired++ }))
	questions := sess.Questions()

	sess.Answer(questions[0].ID, 1)
	sess.NavigateTo(2)
	sess.Answer(uuid.New(), 0) // rejected, must not fire
	sess.NavigateTo(99)        // rejected, must not fire

	if fired != 2 {
		t.Fatalf("listener fired %d times, want 2", fired)
	}
}

func TestSessionSnapshotRoundTrip(t *testing.T) {
	sess, test := startedSession(t, 4, WithRand(rand.New(rand.NewSource(7))))
	questions := sess.Questions()

	sess.Answer(questions[0].ID, 2)
	sess.MarkAndNext()
	sess.NavigateTo(3)
	sess.RecordViolation("fullscreen exited")
	sess.Tick()

	snap := sess.Snapshot()
	if snap == nil {
		t.Fatal("snapshot is nil for in-progress attempt")
	}
	if snap.TestID != test.ID {
		t.Fatalf("snapshot test id = %v, want %v", snap.TestID, test.ID)
	}

	restored := NewSession()
	if err := restored.Resume(test, snap); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	if got := restored.TimeRemaining(); got != sess.TimeRemaining() {
		t.Fatalf("time remaining = %d, want %d", got, sess.TimeRemaining())
	}
	if got := restored.CurrentIndex(); got != 3 {
		t.Fatalf("current index = %d, want 3", got)
	}
	if got := restored.Answers()[questions[0].ID]; got != 2 {
		t.Fatalf("answer = %d, want 2", got)
	}
	if got := restored.Violations(); len(got) != 1 || got[0] != sess.Violations()[0] {
		t.Fatalf("violations = %v, want %v", got, sess.Violations())
	}
	if got, want := restored.StatusCounts(), sess.StatusCounts(); got != want {
		t.Fatalf("counts = %+v, want %+v", got, want)
	}

	// Shuffle order is frozen across the round trip, not re-rolled.
	restoredQuestions := restored.Questions()
	for i := range questions {
		if restoredQuestions[i].CorrectIndex != questions[i].CorrectIndex {
			t.Fatalf("question %d correct index changed across resume", i)
		}
		for j, opt := range questions[i].PresentedOptions {
			if restoredQuestions[i].PresentedOptions[j] != opt {
				t.Fatalf("question %d option order changed across resume", i)
			}
		}
	}
}

func TestSessionSnapshotIsDeepCopy(t *testing.T) {
	sess, _ := startedSession(t, 3)
	questions := sess.Questions()

	snap := sess.Snapshot()
	sess.Answer(questions[0].ID, 1)
	sess.RecordViolation("tab switch")

	if len(snap.Answers) != 0 {
		t.Fatalf("snapshot answers = %v, mutated after capture", snap.Answers)
	}
	if len(snap.Violations) != 0 {
		t.Fatalf("snapshot violations = %v, mutated after capture", snap.Violations)
	}
}

func TestSessionSnapshotNilOutsideInProgress(t *testing.T) {
	sess := NewSession()
	if snap := sess.Snapshot(); snap != nil {
		t.Fatalf("snapshot = %+v before start, want nil", snap)
	}

	if err := sess.Start(buildTest(2)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, _, err := sess.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if snap := sess.Snapshot(); snap != nil {
		t.Fatalf("snapshot = %+v after submit, want nil", snap)
	}
}

func TestSessionResumeRejectsMismatchedTest(t *testing.T) {
	sess, _ := startedSession(t, 3)
	snap := sess.Snapshot()

	other := buildTest(3)
	restored := NewSession()
	if err := restored.Resume(other, snap); err != ErrBadSnapshot {
		t.Fatalf("err = %v, want ErrBadSnapshot", err)
	}
	if err := restored.Resume(nil, snap); err != ErrBadSnapshot {
		t.Fatalf("err = %v, want ErrBadSnapshot for nil test", err)
	}
}

func TestSessionRestart(t *testing.T) {
	sess, _ := startedSession(t, 3)
	if _, _, err := sess.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	sess.Restart()

	if got := sess.Phase(); got != model.PhaseNotStarted {
		t.Fatalf("phase = %v after restart, want not started", got)
	}
	if sess.Result() != nil {
		t.Fatal("result survived restart")
	}
	if err := sess.Start(buildTest(2)); err != nil {
		t.Fatalf("Start after restart: %v", err)
	}
}
