package engine

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/google/uuid"

	"github.com/prepverse/mockportal-backend/internal/model"
)

func makeQuestion(correct model.OptionKey) model.Question {
	return model.Question{
		ID:            uuid.New(),
		TestID:        uuid.New(),
		Prompt:        "prompt",
		OptionA:       "alpha",
		OptionB:       "bravo",
		OptionC:       "charlie",
		OptionD:       "delta",
		CorrectOption: correct,
	}
}

func TestShuffleOptionsPreservesOptionSet(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 100; i++ {
		q := makeQuestion(model.OptionC)
		sq := ShuffleOptions(q, rng)

		if len(sq.PresentedOptions) != model.OptionCount {
			t.Fatalf("expected %d options, got %d", model.OptionCount, len(sq.PresentedOptions))
		}

		got := append([]string(nil), sq.PresentedOptions...)
		sort.Strings(got)
		want := []string{"alpha", "bravo", "charlie", "delta"}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("option set changed: got %v", sq.PresentedOptions)
			}
		}
	}
}

func TestShuffleOptionsTracksCorrectIndex(t *testing.T) {
	correctText := map[model.OptionKey]string{
		model.OptionA: "alpha",
		model.OptionB: "bravo",
		model.OptionC: "charlie",
		model.OptionD: "delta",
	}

	rng := rand.New(rand.NewSource(2))
	for _, key := range model.OptionKeys {
		for i := 0; i < 50; i++ {
			sq := ShuffleOptions(makeQuestion(key), rng)
			if sq.CorrectIndex < 0 || sq.CorrectIndex >= model.OptionCount {
				t.Fatalf("correct index out of range: %d", sq.CorrectIndex)
			}
			if sq.PresentedOptions[sq.CorrectIndex] != correctText[key] {
				t.Fatalf("correct index %d points at %q, want %q",
					sq.CorrectIndex, sq.PresentedOptions[sq.CorrectIndex], correctText[key])
			}
		}
	}
}

func TestShuffleOptionsIsSeedDeterministic(t *testing.T) {
	q := makeQuestion(model.OptionB)

	first := ShuffleOptions(q, rand.New(rand.NewSource(42)))
	second := ShuffleOptions(q, rand.New(rand.NewSource(42)))

	for i := range first.PresentedOptions {
		if first.PresentedOptions[i] != second.PresentedOptions[i] {
			t.Fatalf("same seed produced different orders: %v vs %v",
				first.PresentedOptions, second.PresentedOptions)
		}
	}
	if first.CorrectIndex != second.CorrectIndex {
		t.Fatalf("same seed produced different correct indices: %d vs %d",
			first.CorrectIndex, second.CorrectIndex)
	}
}
