package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepverse/mockportal-backend/internal/config"
	"github.com/prepverse/mockportal-backend/internal/engine"
	"github.com/prepverse/mockportal-backend/internal/model"
	"github.com/prepverse/mockportal-backend/internal/snapshot"
)

var (
	ErrNoActiveAttempt = errors.New("no attempt in progress")
	ErrAttemptActive   = errors.New("an attempt is already in progress")
	ErrNoSavedAttempt  = errors.New("no resumable saved attempt")
)

// resultQueueItem is the wire shape pushed to the results queue. The
// persistence worker decodes the same shape on the other side.
type resultQueueItem struct {
	StudentID        int      `json:"student_id"`
	TestID           string   `json:"test_id"`
	TestName         string   `json:"test_name"`
	Correct          int      `json:"correct"`
	Incorrect        int      `json:"incorrect"`
	Unattempted      int      `json:"unattempted"`
	TotalQuestions   int      `json:"total_questions"`
	TotalMarks       int      `json:"total_marks"`
	MaxMarks         int      `json:"max_marks"`
	TimeTakenSeconds int      `json:"time_taken_seconds"`
	Violations       []string `json:"violations"`
	SubmittedAt      int64    `json:"submitted_at"`
}

// violationQueueItem is the wire shape pushed to the violations queue.
type violationQueueItem struct {
	StudentID int    `json:"student_id"`
	TestID    string `json:"test_id"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// ViolationEvent is published on the per-test Redis channel for live
// proctor feeds.
type ViolationEvent struct {
	StudentID int    `json:"student_id"`
	TestID    string `json:"test_id"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// AttemptView is the full student-facing state of an active attempt.
// Grading data (correct options) never appears here.
type AttemptView struct {
	Phase         model.Phase               `json:"phase"`
	TestID        uuid.UUID                 `json:"test_id"`
	TestName      string                    `json:"test_name"`
	Questions     []model.PresentedQuestion `json:"questions"`
	Answers       map[uuid.UUID]int         `json:"answers"`
	MarkedIDs     []uuid.UUID               `json:"marked_ids"`
	CurrentIndex  int                       `json:"current_index"`
	TimeRemaining int                       `json:"time_remaining"`
	StatusCounts  model.StatusCounts        `json:"status_counts"`
	Violations    []string                  `json:"violations"`
}

type activeAttempt struct {
	session *engine.Session
	runner  *engine.Runner
	cancel  context.CancelFunc
	testID  uuid.UUID
}

// SessionService owns every live attempt in the process: one
// engine.Session plus its Runner goroutine per student. PostgreSQL is
// only touched at the edges (catalog load, result persistence via the
// worker queue); everything mid-attempt is memory plus Redis snapshots.
type SessionService struct {
	catalog *CatalogService
	store   snapshot.Store
	rdb     *redis.Client
	log     zerolog.Logger

	mu     sync.Mutex
	active map[int]*activeAttempt
}

// NewSessionService creates a new SessionService.
func NewSessionService(catalog *CatalogService, store snapshot.Store, rdb *redis.Client, log zerolog.Logger) *SessionService {
	return &SessionService{
		catalog: catalog,
		store:   store,
		rdb:     rdb,
		log:     log.With().Str("component", "session_service").Logger(),
		active:  make(map[int]*activeAttempt),
	}
}

// StartTest begins a fresh attempt. Any saved snapshot for the student
// is discarded: starting over always means a clean slate and a fresh
// option shuffle.
func (s *SessionService) StartTest(ctx context.Context, studentID int, testID uuid.UUID) (*AttemptView, error) {
	s.mu.Lock()
	if _, ok := s.active[studentID]; ok {
		s.mu.Unlock()
		return nil, ErrAttemptActive
	}
	s.mu.Unlock()

	test, err := s.catalog.GetTestWithQuestions(ctx, testID)
	if err != nil {
		return nil, err
	}
	if len(test.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	if err := s.store.Discard(ctx, studentID); err != nil {
		s.log.Warn().Err(err).Int("student_id", studentID).Msg("Failed to discard stale snapshot")
	}

	sess := engine.NewSession()
	if err := sess.Start(test); err != nil {
		return nil, fmt.Errorf("start attempt: %w", err)
	}

	if err := s.track(studentID, sess, testID); err != nil {
		return nil, err
	}

	s.log.Info().
		Int("student_id", studentID).
		Str("test_id", testID.String()).
		Int("questions", len(test.Questions)).
		Msg("Attempt started")

	return s.view(sess), nil
}

// ResumeOffer reports whether the student has a resumable snapshot.
// Stale or corrupt snapshots are already filtered by the store.
func (s *SessionService) ResumeOffer(ctx context.Context, studentID int) (*model.ResumeOffer, error) {
	snap, err := s.store.Load(ctx, studentID)
	if err != nil {
		if errors.Is(err, snapshot.ErrNoSnapshot) {
			return nil, ErrNoSavedAttempt
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	offer := &model.ResumeOffer{
		TestID:        snap.TestID,
		TimeRemaining: snap.TimeRemaining,
		Answered:      len(snap.Answers),
		SavedAt:       time.UnixMilli(snap.SavedAt),
	}
	if test, err := s.catalog.GetTestWithQuestions(ctx, snap.TestID); err == nil {
		offer.TestName = test.Name
	}
	return offer, nil
}

// Resume rehydrates the student's saved attempt. The snapshot's frozen
// shuffled questions are restored verbatim, never reshuffled.
func (s *SessionService) Resume(ctx context.Context, studentID int) (*AttemptView, error) {
	s.mu.Lock()
	if _, ok := s.active[studentID]; ok {
		s.mu.Unlock()
		return nil, ErrAttemptActive
	}
	s.mu.Unlock()

	snap, err := s.store.Load(ctx, studentID)
	if err != nil {
		if errors.Is(err, snapshot.ErrNoSnapshot) {
			return nil, ErrNoSavedAttempt
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	test, err := s.catalog.GetTestWithQuestions(ctx, snap.TestID)
	if err != nil {
		// The test was deleted since the save; the snapshot is useless.
		_ = s.store.Discard(ctx, studentID)
		return nil, ErrNoSavedAttempt
	}

	sess := engine.NewSession()
	if err := sess.Resume(test, snap); err != nil {
		_ = s.store.Discard(ctx, studentID)
		return nil, ErrNoSavedAttempt
	}

	if err := s.track(studentID, sess, test.ID); err != nil {
		return nil, err
	}

	s.log.Info().
		Int("student_id", studentID).
		Str("test_id", test.ID.String()).
		Int("time_remaining", snap.TimeRemaining).
		Msg("Attempt resumed")

	return s.view(sess), nil
}

// DiscardSaved drops the student's saved snapshot (the "start over"
// choice on the resume prompt).
func (s *SessionService) DiscardSaved(ctx context.Context, studentID int) error {
	return s.store.Discard(ctx, studentID)
}

// State returns the current view of the student's active attempt.
func (s *SessionService) State(studentID int) (*AttemptView, error) {
	att, err := s.attempt(studentID)
	if err != nil {
		return nil, err
	}
	return s.view(att.session), nil
}

// Answer records the chosen presented index for a question.
func (s *SessionService) Answer(studentID int, questionID uuid.UUID, index int) error {
	att, err := s.attempt(studentID)
	if err != nil {
		return err
	}
	att.session.Answer(questionID, index)
	return nil
}

// ClearAnswer removes the answer on the current question.
func (s *SessionService) ClearAnswer(studentID int) error {
	att, err := s.attempt(studentID)
	if err != nil {
		return err
	}
	att.session.ClearAnswer()
	return nil
}

// SaveAndNext advances to the next question.
func (s *SessionService) SaveAndNext(studentID int) error {
	att, err := s.attempt(studentID)
	if err != nil {
		return err
	}
	att.session.SaveAndNext()
	return nil
}

// MarkAndNext flags the current question for review and advances.
func (s *SessionService) MarkAndNext(studentID int) error {
	att, err := s.attempt(studentID)
	if err != nil {
		return err
	}
	att.session.MarkAndNext()
	return nil
}

// NavigateTo jumps to a question by index.
func (s *SessionService) NavigateTo(studentID int, index int) error {
	att, err := s.attempt(studentID)
	if err != nil {
		return err
	}
	att.session.NavigateTo(index)
	return nil
}

// RecordViolation appends a proctoring event to the attempt log, fans
// it out to the live proctor channel, and queues it for persistence.
func (s *SessionService) RecordViolation(ctx context.Context, studentID int, message string) error {
	att, err := s.attempt(studentID)
	if err != nil {
		return err
	}
	att.session.RecordViolation(message)

	now := time.Now().Unix()
	event := ViolationEvent{
		StudentID: studentID,
		TestID:    att.testID.String(),
		Message:   message,
		Timestamp: now,
	}
	data, _ := json.Marshal(event)

	pipe := s.rdb.Pipeline()
	pipe.Publish(ctx, config.CacheKey.ViolationChannel(att.testID.String()), data)
	item, _ := json.Marshal(violationQueueItem{
		StudentID: studentID,
		TestID:    att.testID.String(),
		Message:   message,
		Timestamp: now,
	})
	pipe.RPush(ctx, config.WorkerKey.PersistViolationsQueue, item)
	if _, err := pipe.Exec(ctx); err != nil {
		// The in-memory log already has the event; fan-out is best effort.
		s.log.Warn().Err(err).Int("student_id", studentID).Msg("Violation fan-out failed")
	}
	return nil
}

// SaveNow persists a snapshot immediately, outside the periodic cycle.
// Triggered when the student's app loses visibility.
func (s *SessionService) SaveNow(ctx context.Context, studentID int) error {
	att, err := s.attempt(studentID)
	if err != nil {
		return err
	}
	att.runner.SaveNow(ctx)
	return nil
}

// TimeRemaining reports the live countdown of the student's attempt.
func (s *SessionService) TimeRemaining(studentID int) (int, error) {
	att, err := s.attempt(studentID)
	if err != nil {
		return 0, err
	}
	return att.session.TimeRemaining(), nil
}

// ViolationCount reports the size of the attempt's violation log.
func (s *SessionService) ViolationCount(studentID int) (int, error) {
	att, err := s.attempt(studentID)
	if err != nil {
		return 0, err
	}
	return len(att.session.Violations()), nil
}

// Submit finalizes the student's attempt and returns its result.
// Idempotent against the timer: if the auto-submit won the race the
// frozen result is returned and nothing is persisted twice.
func (s *SessionService) Submit(ctx context.Context, studentID int) (*model.AttemptResult, error) {
	att, err := s.attempt(studentID)
	if err != nil {
		return nil, err
	}

	result, performed, err := att.session.Submit()
	if err != nil {
		return nil, err
	}
	if performed {
		s.finalize(ctx, studentID, result)
	}
	s.release(studentID)
	return result, nil
}

// Shutdown snapshots every live attempt so a process restart loses at
// most the final few seconds, then stops all runners.
func (s *SessionService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	attempts := make(map[int]*activeAttempt, len(s.active))
	for id, att := range s.active {
		attempts[id] = att
	}
	s.mu.Unlock()

	for studentID, att := range attempts {
		att.runner.SaveNow(ctx)
		att.cancel()
		s.release(studentID)
	}
	s.log.Info().Int("count", len(attempts)).Msg("All live attempts snapshotted and stopped")
}

// track registers the attempt and starts its runner goroutine.
func (s *SessionService) track(studentID int, sess *engine.Session, testID uuid.UUID) error {
	ctx, cancel := context.WithCancel(context.Background())

	runner := engine.NewRunner(sess, engine.RunnerConfig{
		Save: func(ctx context.Context, snap *model.Snapshot) error {
			return s.store.Save(ctx, studentID, snap)
		},
		OnAutoSubmit: func(result *model.AttemptResult) {
			s.finalize(context.Background(), studentID, result)
		},
		Logger: s.log,
	})
	sess.SetMutationListener(runner.MarkDirty)

	s.mu.Lock()
	if _, ok := s.active[studentID]; ok {
		s.mu.Unlock()
		cancel()
		return ErrAttemptActive
	}
	att := &activeAttempt{session: sess, runner: runner, cancel: cancel, testID: testID}
	s.active[studentID] = att
	s.mu.Unlock()

	go runner.Run(ctx)

	// Write the first snapshot right away so a crash during the first
	// save interval is still resumable.
	runner.SaveNow(ctx)
	return nil
}

// finalize runs the exactly-once completion side effects: drop the
// snapshot and queue the result for persistence. Called either from
// Submit (user) or OnAutoSubmit (timer), never both.
func (s *SessionService) finalize(ctx context.Context, studentID int, result *model.AttemptResult) {
	if err := s.store.Discard(ctx, studentID); err != nil {
		s.log.Warn().Err(err).Int("student_id", studentID).Msg("Failed to discard snapshot on submit")
	}

	item, _ := json.Marshal(resultQueueItem{
		StudentID:        studentID,
		TestID:           result.TestID.String(),
		TestName:         result.TestName,
		Correct:          result.Correct,
		Incorrect:        result.Incorrect,
		Unattempted:      result.Unattempted,
		TotalQuestions:   result.TotalQuestions,
		TotalMarks:       result.TotalMarks,
		MaxMarks:         result.MaxMarks,
		TimeTakenSeconds: result.TimeTakenSeconds,
		Violations:       result.Violations,
		SubmittedAt:      result.SubmittedAt.Unix(),
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, item).Err(); err != nil {
		s.log.Error().Err(err).Int("student_id", studentID).Msg("CRITICAL: Failed to queue result for persistence")
	}

	s.log.Info().
		Int("student_id", studentID).
		Str("test_id", result.TestID.String()).
		Int("total_marks", result.TotalMarks).
		Int("violations", len(result.Violations)).
		Msg("Attempt finalized")
}

// release drops the attempt from the live map and stops its runner.
func (s *SessionService) release(studentID int) {
	s.mu.Lock()
	att, ok := s.active[studentID]
	if ok {
		delete(s.active, studentID)
	}
	s.mu.Unlock()
	if ok {
		att.cancel()
	}
}

func (s *SessionService) attempt(studentID int) (*activeAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	att, ok := s.active[studentID]
	if !ok {
		return nil, ErrNoActiveAttempt
	}
	return att, nil
}

func (s *SessionService) view(sess *engine.Session) *AttemptView {
	test := sess.Test()
	view := &AttemptView{
		Phase:         sess.Phase(),
		Questions:     sess.PresentedQuestions(),
		Answers:       sess.Answers(),
		MarkedIDs:     sess.MarkedIDs(),
		CurrentIndex:  sess.CurrentIndex(),
		TimeRemaining: sess.TimeRemaining(),
		StatusCounts:  sess.StatusCounts(),
		Violations:    sess.Violations(),
	}
	if test != nil {
		view.TestID = test.ID
		view.TestName = test.Name
	}
	return view
}
