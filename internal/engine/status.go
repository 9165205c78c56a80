package engine

import (
	"github.com/google/uuid"

	"github.com/prepverse/mockportal-backend/internal/model"
)

// CountStatuses buckets every question into exactly one navigation
// status. Precedence: answered+marked, answered, marked, visited,
// not-visited. A question marked for review but never answered counts
// as marked even if it was never otherwise visited.
func CountStatuses(
	questions []model.ShuffledQuestion,
	answers map[uuid.UUID]int,
	marked map[uuid.UUID]bool,
	visited map[int]bool,
) model.StatusCounts {
	var counts model.StatusCounts
	for i := range questions {
		_, isAnswered := answers[questions[i].ID]
		isMarked := marked[questions[i].ID]

		switch {
		case isAnswered && isMarked:
			counts.AnsweredAndMarked++
		case isAnswered:
			counts.Answered++
		case isMarked:
			counts.Marked++
		case visited[i]:
			counts.VisitedNotAnswered++
		default:
			counts.NotVisited++
		}
	}
	return counts
}
