package engine

import (
	"github.com/google/uuid"

	"github.com/prepverse/mockportal-backend/internal/model"
)

// Scoring rule: +4 per correct answer, -1 per incorrect, 0 for
// unattempted. Max marks are 4 per question.
const (
	MarksPerCorrect  = 4
	PenaltyPerWrong  = 1
	MarksPerQuestion = 4
)

// Tally classifies every question of the working set against the
// answers map. An absent entry is unattempted; a stored index equal to
// the question's CorrectIndex is correct; anything else is incorrect.
type Tally struct {
	Correct     int
	Incorrect   int
	Unattempted int
}

// TotalMarks applies the scoring rule to the tally.
func (t Tally) TotalMarks() int {
	return t.Correct*MarksPerCorrect - t.Incorrect*PenaltyPerWrong
}

// ScoreAttempt computes the correct/incorrect/unattempted tally for a
// shuffled question set. Pure; safe to call at any time.
func ScoreAttempt(questions []model.ShuffledQuestion, answers map[uuid.UUID]int) Tally {
	var t Tally
	for i := range questions {
		idx, ok := answers[questions[i].ID]
		switch {
		case !ok:
			t.Unattempted++
		case idx == questions[i].CorrectIndex:
			t.Correct++
		default:
			t.Incorrect++
		}
	}
	return t
}
