package engine

import (
	"testing"

	"github.com/google/uuid"

	"github.com/prepverse/mockportal-backend/internal/model"
)

// buildSet creates n shuffled questions where the correct presented
// index is always 0, so tests can pick right and wrong answers by
// index alone.
func buildSet(n int) []model.ShuffledQuestion {
	questions := make([]model.ShuffledQuestion, n)
	for i := range questions {
		questions[i] = model.ShuffledQuestion{
			Question:         model.Question{ID: uuid.New()},
			PresentedOptions: []string{"w", "x", "y", "z"},
			CorrectIndex:     0,
		}
	}
	return questions
}

func TestScoreAttempt(t *testing.T) {
	questions := buildSet(50)

	// 30 correct, 10 incorrect, 10 untouched.
	answers := make(map[uuid.UUID]int)
	for i := 0; i < 30; i++ {
		answers[questions[i].ID] = 0
	}
	for i := 30; i < 40; i++ {
		answers[questions[i].ID] = 1
	}

	tally := ScoreAttempt(questions, answers)

	if tally.Correct != 30 || tally.Incorrect != 10 || tally.Unattempted != 10 {
		t.Fatalf("tally = %+v, want 30/10/10", tally)
	}
	if got := tally.TotalMarks(); got != 110 {
		t.Fatalf("total marks = %d, want 110", got)
	}
	if max := len(questions) * MarksPerQuestion; max != 200 {
		t.Fatalf("max marks = %d, want 200", max)
	}
}

func TestScoreAttemptEmptyAnswers(t *testing.T) {
	questions := buildSet(5)

	tally := ScoreAttempt(questions, map[uuid.UUID]int{})

	if tally.Correct != 0 || tally.Incorrect != 0 || tally.Unattempted != 5 {
		t.Fatalf("tally = %+v, want all unattempted", tally)
	}
	if tally.TotalMarks() != 0 {
		t.Fatalf("total marks = %d, want 0", tally.TotalMarks())
	}
}

func TestScoreAttemptAllWrongGoesNegative(t *testing.T) {
	questions := buildSet(3)
	answers := make(map[uuid.UUID]int)
	for i := range questions {
		answers[questions[i].ID] = 2
	}

	if got := ScoreAttempt(questions, answers).TotalMarks(); got != -3 {
		t.Fatalf("total marks = %d, want -3", got)
	}
}

func TestScoreAttemptIgnoresUnknownAnswerIDs(t *testing.T) {
	questions := buildSet(2)
	answers := map[uuid.UUID]int{
		questions[0].ID: 0,
		uuid.New():      0, // not part of the set
	}

	tally := ScoreAttempt(questions, answers)
	if tally.Correct != 1 || tally.Unattempted != 1 {
		t.Fatalf("tally = %+v, want 1 correct 1 unattempted", tally)
	}
}
