package engine

import (
	"math/rand"

	"github.com/prepverse/mockportal-backend/internal/model"
)

// ShuffleOptions permutes a question's four options into a random
// presentation order and records where the correct option landed.
// The random source is injected so shuffle outcomes are reproducible
// in tests. Called exactly once per question per attempt; the result
// is frozen for the attempt's lifetime, including across resume.
func ShuffleOptions(q model.Question, rng *rand.Rand) model.ShuffledQuestion {
	type option struct {
		text string
		key  model.OptionKey
	}

	opts := []option{
		{q.OptionA, model.OptionA},
		{q.OptionB, model.OptionB},
		{q.OptionC, model.OptionC},
		{q.OptionD, model.OptionD},
	}

	// Fisher–Yates.
	for i := len(opts) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		opts[i], opts[j] = opts[j], opts[i]
	}

	presented := make([]string, len(opts))
	correct := -1
	for i, o := range opts {
		presented[i] = o.text
		if o.key == q.CorrectOption {
			correct = i
		}
	}

	return model.ShuffledQuestion{
		Question:         q,
		PresentedOptions: presented,
		CorrectIndex:     correct,
	}
}

// shuffleAll builds the working question set for a fresh attempt.
func shuffleAll(questions []model.Question, rng *rand.Rand) []model.ShuffledQuestion {
	shuffled := make([]model.ShuffledQuestion, len(questions))
	for i, q := range questions {
		shuffled[i] = ShuffleOptions(q, rng)
	}
	return shuffled
}
