package model

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the coarse lifecycle stage of an attempt.
type Phase string

const (
	PhaseNotStarted Phase = "NOT_STARTED"
	PhaseInProgress Phase = "IN_PROGRESS"
	PhaseCompleted  Phase = "COMPLETED"
)

// StatusCounts buckets every question of an attempt into exactly one
// navigation status. The five buckets are mutually exclusive and sum to
// the attempt's question count.
type StatusCounts struct {
	Answered           int `json:"answered"`
	VisitedNotAnswered int `json:"visited_not_answered"`
	NotVisited         int `json:"not_visited"`
	Marked             int `json:"marked"`
	AnsweredAndMarked  int `json:"answered_and_marked"`
}

// Total returns the sum of all five buckets.
func (c StatusCounts) Total() int {
	return c.Answered + c.VisitedNotAnswered + c.NotVisited + c.Marked + c.AnsweredAndMarked
}

// AttemptResult is the frozen outcome of a submitted attempt.
type AttemptResult struct {
	TestID           uuid.UUID `json:"test_id"`
	TestName         string    `json:"test_name"`
	Correct          int       `json:"correct"`
	Incorrect        int       `json:"incorrect"`
	Unattempted      int       `json:"unattempted"`
	TotalQuestions   int       `json:"total_questions"`
	TotalMarks       int       `json:"total_marks"`
	MaxMarks         int       `json:"max_marks"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	Violations       []string  `json:"violations"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// Snapshot is a durable copy of in-progress attempt state used for
// crash-resilient resume. It carries the full shuffled question list so
// a resumed attempt is graded against the exact presentation order the
// taker saw before the interruption.
type Snapshot struct {
	TestID        uuid.UUID          `json:"test_id"`
	Questions     []ShuffledQuestion `json:"questions"`
	Answers       map[uuid.UUID]int  `json:"answers"`
	Marked        map[uuid.UUID]bool `json:"marked"`
	Visited       []int              `json:"visited"`
	CurrentIndex  int                `json:"current_index"`
	TimeRemaining int                `json:"time_remaining"`
	Violations    []string           `json:"violations"`
	SavedAt       int64              `json:"saved_at"` // epoch millis
}

// ResumeOffer describes a valid snapshot surfaced to the client. The
// engine never auto-resumes; the client decides whether to prompt.
type ResumeOffer struct {
	TestID        uuid.UUID `json:"test_id"`
	TestName      string    `json:"test_name"`
	TimeRemaining int       `json:"time_remaining"`
	Answered      int       `json:"answered"`
	SavedAt       time.Time `json:"saved_at"`
}

// AnswerRequest selects a presented option for a question. The index
// is a pointer so option 0 survives required-field validation.
type AnswerRequest struct {
	QuestionID  string `json:"question_id" binding:"required,uuid"`
	OptionIndex *int   `json:"option_index" binding:"required,min=0,max=3"`
}

// NavigateRequest jumps the palette to a question index.
type NavigateRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}

// ViolationRequest reports one proctoring event.
type ViolationRequest struct {
	Message string `json:"message" binding:"required,max=500"`
}

// HistoryEntry is one persisted row of the attempt history store.
type HistoryEntry struct {
	ID             int       `json:"id"`
	StudentEmail   string    `json:"student_email"`
	TestID         uuid.UUID `json:"test_id"`
	TestName       string    `json:"test_name"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	Correct        int       `json:"correct"`
	Incorrect      int       `json:"incorrect"`
	Unattempted    int       `json:"unattempted"`
	TimeTaken      int       `json:"time_taken"`
	ViolationCount int       `json:"violation_count"`
	SubmittedAt    time.Time `json:"submitted_at"`
}
