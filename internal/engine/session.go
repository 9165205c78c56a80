package engine

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prepverse/mockportal-backend/internal/model"
)

// Session owns the mutable state of one test attempt and every
// transition between its phases (NotStarted, InProgress, Completed).
// All mutation is funneled through its methods; the mutex guarantees
// that the timer tick and a user-triggered submit cannot both fire the
// Completed transition.
type Session struct {
	mu         sync.Mutex
	rng        *rand.Rand
	now        func() time.Time
	onMutation func()

	test          *model.Test
	questions     []model.ShuffledQuestion
	answers       map[uuid.UUID]int
	marked        map[uuid.UUID]bool
	visited       map[int]bool
	current       int
	timeRemaining int
	violations    []string
	phase         model.Phase
	result        *model.AttemptResult
}

// Option configures a Session.
type Option func(*Session)

// WithRand injects the random source used for option shuffling.
func WithRand(rng *rand.Rand) Option {
	return func(s *Session) { s.rng = rng }
}

// WithClock injects the wall clock, used for violation timestamps and
// snapshot save times.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithMutationListener registers a callback invoked after every
// committed mutation. The listener decides when to persist; the
// session itself performs no I/O.
func WithMutationListener(fn func()) Option {
	return func(s *Session) { s.onMutation = fn }
}

// SetMutationListener replaces the mutation listener. Used when the
// listener (e.g. a Runner's dirty flag) is constructed after the
// session itself.
func (s *Session) SetMutationListener(fn func()) {
	s.mu.Lock()
	s.onMutation = fn
	s.mu.Unlock()
}

// NewSession creates an idle session in the NotStarted phase.
func NewSession(opts ...Option) *Session {
	s := &Session{
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
		phase: model.PhaseNotStarted,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resetLocked()
	return s
}

// resetLocked returns all attempt state to defaults. Caller holds the lock
// (or owns the session exclusively during construction).
func (s *Session) resetLocked() {
	s.test = nil
	s.questions = nil
	s.answers = make(map[uuid.UUID]int)
	s.marked = make(map[uuid.UUID]bool)
	s.visited = map[int]bool{0: true}
	s.current = 0
	s.timeRemaining = 0
	s.violations = nil
	s.phase = model.PhaseNotStarted
	s.result = nil
}

// Start begins a fresh attempt: shuffles every question's options once
// and resets all mutable state. Fails if the test has no questions or
// an attempt is already running.
func (s *Session) Start(test *model.Test) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == model.PhaseInProgress {
		return ErrAlreadyStarted
	}
	if test == nil || len(test.Questions) == 0 {
		return ErrNoQuestions
	}

	s.resetLocked()
	s.test = test
	s.questions = shuffleAll(test.Questions, s.rng)
	s.timeRemaining = test.DurationSeconds
	s.phase = model.PhaseInProgress
	return nil
}

// Resume rehydrates an attempt from a snapshot, bypassing the shuffle
// step: the snapshot's frozen question list (with its correct presented
// indices) is restored verbatim so grading stays deterministic.
func (s *Session) Resume(test *model.Test, snap *model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == model.PhaseInProgress {
		return ErrAlreadyStarted
	}
	if snap == nil || test == nil || snap.TestID != test.ID {
		return ErrBadSnapshot
	}
	if len(snap.Questions) == 0 {
		return ErrNoQuestions
	}

	s.resetLocked()
	s.test = test
	s.questions = snap.Questions
	s.answers = make(map[uuid.UUID]int, len(snap.Answers))
	for id, idx := range snap.Answers {
		s.answers[id] = idx
	}
	s.marked = make(map[uuid.UUID]bool, len(snap.Marked))
	for id, v := range snap.Marked {
		if v {
			s.marked[id] = true
		}
	}
	s.visited = make(map[int]bool, len(snap.Visited)+1)
	s.visited[0] = true
	for _, idx := range snap.Visited {
		if idx >= 0 && idx < len(snap.Questions) {
			s.visited[idx] = true
		}
	}
	if snap.CurrentIndex >= 0 && snap.CurrentIndex < len(snap.Questions) {
		s.current = snap.CurrentIndex
	}
	s.timeRemaining = snap.TimeRemaining
	s.violations = append([]string(nil), snap.Violations...)
	s.phase = model.PhaseInProgress
	return nil
}

// Answer upserts the chosen presented index for a question. Last write
// wins. Out-of-range indices and unknown question ids are ignored
// rather than corrupting state.
func (s *Session) Answer(questionID uuid.UUID, index int) {
	s.mutate(func() bool {
		if index < 0 || index >= model.OptionCount {
			return false
		}
		if !s.hasQuestionLocked(questionID) {
			return false
		}
		s.answers[questionID] = index
		return true
	})
}

// ClearAnswer removes the answer for the question at the current index.
func (s *Session) ClearAnswer() {
	s.mutate(func() bool {
		qID := s.questions[s.current].ID
		if _, ok := s.answers[qID]; !ok {
			return false
		}
		delete(s.answers, qID)
		return true
	})
}

// SaveAndNext advances to the next question and marks it visited.
// No-op on the last question.
func (s *Session) SaveAndNext() {
	s.mutate(func() bool { return s.advanceLocked() })
}

// MarkAndNext flags the current question for review, then advances like
// SaveAndNext. There is no unmark operation; marking is one-way.
func (s *Session) MarkAndNext() {
	s.mutate(func() bool {
		s.marked[s.questions[s.current].ID] = true
		s.advanceLocked()
		return true
	})
}

// NavigateTo jumps to any question, forward or backward, and marks it
// visited. Out-of-range indices are ignored.
func (s *Session) NavigateTo(index int) {
	s.mutate(func() bool {
		if index < 0 || index >= len(s.questions) {
			return false
		}
		s.current = index
		s.visited[index] = true
		return true
	})
}

// advanceLocked moves to the next question if not on the last one.
func (s *Session) advanceLocked() bool {
	if s.current >= len(s.questions)-1 {
		return false
	}
	s.current++
	s.visited[s.current] = true
	return true
}

// Tick decrements the remaining time by one second. When time reaches
// zero the session force-transitions to Completed (auto-submit).
// Returns true only on the tick that performed that transition, so the
// caller can run the exactly-once completion side effects.
func (s *Session) Tick() bool {
	var expired bool
	s.mutate(func() bool {
		if s.timeRemaining <= 0 {
			return false
		}
		s.timeRemaining--
		if s.timeRemaining == 0 {
			s.completeLocked()
			expired = true
		}
		return true
	})
	return expired
}

// RecordViolation appends a timestamped proctoring event to the log.
// Never blocks, never fails, never deduplicates. Callable in any phase
// but only recorded while the attempt is in progress.
func (s *Session) RecordViolation(message string) {
	s.mutate(func() bool {
		s.violations = append(s.violations, s.now().Format("15:04:05")+": "+message)
		return true
	})
}

// Submit freezes the attempt and returns its result. Idempotent: a
// second call returns the identical result with performed=false, so
// callers persist the result exactly once. The timer auto-submit and a
// user submit race safely; first to transition wins.
func (s *Session) Submit() (result *model.AttemptResult, performed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case model.PhaseNotStarted:
		return nil, false, ErrNotInProgress
	case model.PhaseCompleted:
		return s.result, false, nil
	}

	s.completeLocked()
	return s.result, true, nil
}

// completeLocked performs the single InProgress → Completed transition:
// scores the attempt and freezes the result. Caller holds the lock and
// has verified phase == InProgress.
func (s *Session) completeLocked() {
	tally := ScoreAttempt(s.questions, s.answers)
	s.result = &model.AttemptResult{
		TestID:           s.test.ID,
		TestName:         s.test.Name,
		Correct:          tally.Correct,
		Incorrect:        tally.Incorrect,
		Unattempted:      tally.Unattempted,
		TotalQuestions:   len(s.questions),
		TotalMarks:       tally.TotalMarks(),
		MaxMarks:         len(s.questions) * MarksPerQuestion,
		TimeTakenSeconds: s.test.DurationSeconds - s.timeRemaining,
		Violations:       append([]string(nil), s.violations...),
		SubmittedAt:      s.now(),
	}
	s.phase = model.PhaseCompleted
}

// Restart clears all attempt state back to defaults and releases the
// selected test. The question catalog is untouched.
func (s *Session) Restart() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
}

// mutate runs fn under the lock while the attempt is in progress and
// notifies the mutation listener if fn committed a change. Mutations in
// any other phase are no-ops: no stray tick or edit may touch a
// Completed or NotStarted attempt.
func (s *Session) mutate(fn func() bool) {
	s.mu.Lock()
	if s.phase != model.PhaseInProgress || len(s.questions) == 0 {
		s.mu.Unlock()
		return
	}
	changed := fn()
	listener := s.onMutation
	s.mu.Unlock()

	if changed && listener != nil {
		listener()
	}
}

func (s *Session) hasQuestionLocked(questionID uuid.UUID) bool {
	for i := range s.questions {
		if s.questions[i].ID == questionID {
			return true
		}
	}
	return false
}

// Phase returns the attempt's lifecycle stage.
func (s *Session) Phase() model.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Test returns the selected test, or nil when idle.
func (s *Session) Test() *model.Test {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.test
}

// CurrentIndex returns the index of the question on display.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// TimeRemaining returns the remaining seconds.
func (s *Session) TimeRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeRemaining
}

// Result returns the frozen result, or nil before submission.
func (s *Session) Result() *model.AttemptResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Violations returns a copy of the violation log.
func (s *Session) Violations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.violations...)
}

// Questions returns the frozen shuffled question set.
func (s *Session) Questions() []model.ShuffledQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions
}

// PresentedQuestions returns the student-facing question views, with
// grading information stripped.
func (s *Session) PresentedQuestions() []model.PresentedQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.PresentedQuestion, len(s.questions))
	for i := range s.questions {
		out[i] = s.questions[i].ForStudent()
	}
	return out
}

// Answers returns a copy of the answers map.
func (s *Session) Answers() map[uuid.UUID]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]int, len(s.answers))
	for id, idx := range s.answers {
		out[id] = idx
	}
	return out
}

// MarkedIDs returns a copy of the marked-for-review set.
func (s *Session) MarkedIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uuid.UUID, 0, len(s.marked))
	for id := range s.marked {
		out = append(out, id)
	}
	return out
}

// StatusCounts classifies every question into its navigation bucket.
func (s *Session) StatusCounts() model.StatusCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CountStatuses(s.questions, s.answers, s.marked, s.visited)
}

// Snapshot builds a durable deep copy of the in-progress attempt.
// Returns nil in any other phase.
func (s *Session) Snapshot() *model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseInProgress {
		return nil
	}

	answers := make(map[uuid.UUID]int, len(s.answers))
	for id, idx := range s.answers {
		answers[id] = idx
	}
	marked := make(map[uuid.UUID]bool, len(s.marked))
	for id := range s.marked {
		marked[id] = true
	}
	visited := make([]int, 0, len(s.visited))
	for idx := range s.visited {
		visited = append(visited, idx)
	}
	sort.Ints(visited)

	return &model.Snapshot{
		TestID:        s.test.ID,
		Questions:     s.questions,
		Answers:       answers,
		Marked:        marked,
		Visited:       visited,
		CurrentIndex:  s.current,
		TimeRemaining: s.timeRemaining,
		Violations:    append([]string(nil), s.violations...),
		SavedAt:       s.now().UnixMilli(),
	}
}
