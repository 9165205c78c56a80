package engine

import (
	"testing"

	"github.com/google/uuid"

	"github.com/prepverse/mockportal-backend/internal/model"
)

func TestCountStatusesPrecedence(t *testing.T) {
	questions := buildSet(5)

	answers := map[uuid.UUID]int{
		questions[0].ID: 0, // answered and marked
		questions[1].ID: 1, // answered only
	}
	marked := map[uuid.UUID]bool{
		questions[0].ID: true,
		questions[2].ID: true, // marked only, never visited
	}
	visited := map[int]bool{
		0: true,
		1: true,
		3: true, // visited, no answer
	}

	counts := CountStatuses(questions, answers, marked, visited)

	want := model.StatusCounts{
		AnsweredAndMarked:  1,
		Answered:           1,
		Marked:             1,
		VisitedNotAnswered: 1,
		NotVisited:         1,
	}
	if counts != want {
		t.Fatalf("counts = %+v, want %+v", counts, want)
	}
}

func TestCountStatusesPartitionsEveryQuestion(t *testing.T) {
	questions := buildSet(17)

	answers := map[uuid.UUID]int{}
	marked := map[uuid.UUID]bool{}
	visited := map[int]bool{}
	for i := range questions {
		if i%2 == 0 {
			answers[questions[i].ID] = i % model.OptionCount
		}
		if i%3 == 0 {
			marked[questions[i].ID] = true
		}
		if i%5 == 0 {
			visited[i] = true
		}
	}

	counts := CountStatuses(questions, answers, marked, visited)
	if counts.Total() != len(questions) {
		t.Fatalf("buckets sum to %d, want %d", counts.Total(), len(questions))
	}
}

func TestCountStatusesEmptyAttempt(t *testing.T) {
	questions := buildSet(4)

	counts := CountStatuses(questions, nil, nil, map[int]bool{0: true})

	if counts.VisitedNotAnswered != 1 || counts.NotVisited != 3 {
		t.Fatalf("counts = %+v, want 1 visited and 3 not visited", counts)
	}
}
