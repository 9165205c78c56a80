package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prepverse/mockportal-backend/internal/config"
	"github.com/prepverse/mockportal-backend/internal/database"
	"github.com/prepverse/mockportal-backend/internal/logger"
	"github.com/prepverse/mockportal-backend/internal/model"
	"github.com/prepverse/mockportal-backend/internal/repository"
)

// Seeds a small demo catalog: one test per category, four questions
// each. Intended for local development only.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	testRepo := repository.NewTestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	fmt.Println("=== Seeding demo catalog ===")

	for _, cat := range model.Categories {
		test := &model.Test{
			ID:              uuid.New(),
			Name:            fmt.Sprintf("Demo: %s", cat.Name),
			Description:     fmt.Sprintf("Sample paper for the %s series", cat.Name),
			DurationSeconds: 600,
			Category:        cat.ID,
		}
		if err := testRepo.Create(ctx, test); err != nil {
			log.Fatal().Err(err).Str("category", cat.ID).Msg("Failed to create test")
		}

		questions := make([]model.Question, 4)
		for i := range questions {
			questions[i] = model.Question{
				ID:            uuid.New(),
				TestID:        test.ID,
				Prompt:        fmt.Sprintf("Sample question %d: which option is marked correct?", i+1),
				OptionA:       "Option A",
				OptionB:       "Option B",
				OptionC:       "Option C",
				OptionD:       "Option D",
				CorrectOption: model.OptionKeys[i%len(model.OptionKeys)],
				OrderNum:      i + 1,
			}
		}
		if err := questionRepo.ReplaceForTest(ctx, test.ID, questions); err != nil {
			log.Fatal().Err(err).Str("test_id", test.ID.String()).Msg("Failed to seed questions")
		}

		fmt.Printf("Seeded %q with %d questions\n", test.Name, len(questions))
	}

	fmt.Println("Done.")
}
