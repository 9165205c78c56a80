package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepverse/mockportal-backend/internal/config"
	"github.com/prepverse/mockportal-backend/internal/model"
	"github.com/prepverse/mockportal-backend/internal/repository"
)

// Domain errors.
var (
	ErrNoQuestions     = errors.New("test has no questions")
	ErrTestNotFound    = errors.New("test not found in catalog")
	ErrInvalidCategory = errors.New("unknown test category")
)

// CatalogService handles the test catalog and its Redis fast path. The
// cached payload carries the full question set including correct
// options; it is server-internal and never leaves the engine boundary.
type CatalogService struct {
	testRepo     *repository.TestRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	testRepo *repository.TestRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		testRepo:     testRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "catalog_service").Logger(),
	}
}

// List retrieves the catalog without question bodies.
func (s *CatalogService) List(ctx context.Context) ([]model.Test, error) {
	return s.testRepo.List(ctx)
}

// Categories returns the fixed category set.
func (s *CatalogService) Categories() []model.TestCategory {
	return model.Categories
}

// Create inserts a new test into the catalog.
func (s *CatalogService) Create(ctx context.Context, req *model.CreateTestRequest) (*model.Test, error) {
	if !model.ValidCategory(req.Category) {
		return nil, ErrInvalidCategory
	}

	test := &model.Test{
		ID:              uuid.New(),
		Name:            req.Name,
		Description:     req.Description,
		DurationSeconds: req.DurationSeconds,
		Category:        req.Category,
	}
	if test.Description == "" {
		test.Description = "No description"
	}
	if err := s.testRepo.Create(ctx, test); err != nil {
		return nil, fmt.Errorf("create test: %w", err)
	}
	return test, nil
}

// Delete removes a test and drops its cached payload.
func (s *CatalogService) Delete(ctx context.Context, testID uuid.UUID) error {
	if err := s.testRepo.Delete(ctx, testID); err != nil {
		return fmt.Errorf("delete test: %w", err)
	}
	if err := s.rdb.Del(ctx, config.CacheKey.TestPayloadKey(testID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Failed to drop cached payload")
	}
	return nil
}

// ReplaceQuestions swaps a test's question set and rewarms its cache.
func (s *CatalogService) ReplaceQuestions(ctx context.Context, testID uuid.UUID, req *model.ReplaceQuestionsRequest) error {
	if _, err := s.testRepo.GetByID(ctx, testID); err != nil {
		return ErrTestNotFound
	}

	questions := make([]model.Question, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = model.Question{
			ID:            uuid.New(),
			TestID:        testID,
			Prompt:        q.Prompt,
			Image:         q.Image,
			OptionA:       q.OptionA,
			OptionB:       q.OptionB,
			OptionC:       q.OptionC,
			OptionD:       q.OptionD,
			CorrectOption: model.OptionKey(q.CorrectOption),
			OrderNum:      q.OrderNum,
		}
	}

	if err := s.questionRepo.ReplaceForTest(ctx, testID, questions); err != nil {
		return fmt.Errorf("replace questions: %w", err)
	}

	if err := s.warmTestCache(ctx, testID); err != nil {
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Cache rewarm failed")
	}
	return nil
}

// GetTestWithQuestions loads a test and its full question set, serving
// from the Redis payload cache when possible and self-healing on miss.
func (s *CatalogService) GetTestWithQuestions(ctx context.Context, testID uuid.UUID) (*model.Test, error) {
	key := config.CacheKey.TestPayloadKey(testID.String())

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var payload model.TestPayload
		if err := json.Unmarshal(data, &payload); err == nil {
			return &model.Test{
				ID:              payload.TestID,
				Name:            payload.Name,
				DurationSeconds: payload.DurationSeconds,
				Category:        payload.Category,
				QuestionCount:   len(payload.Questions),
				Questions:       payload.Questions,
			}, nil
		}
		// Corrupt cache entry: fall through to PostgreSQL and rewarm.
		s.log.Warn().Str("test_id", testID.String()).Msg("Dropping corrupt payload cache entry")
		_ = s.rdb.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		// Real Redis error: degrade to PostgreSQL rather than failing.
		s.log.Warn().Err(err).Msg("Payload cache read failed, using PostgreSQL")
	}

	test, err := s.loadFromDB(ctx, testID)
	if err != nil {
		return nil, err
	}

	if err := s.cachePayload(ctx, test); err != nil {
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Cache warm failed")
	}
	return test, nil
}

// PrewarmAllCaches loads every test payload into Redis on startup so
// test-start traffic never stampedes PostgreSQL.
func (s *CatalogService) PrewarmAllCaches(ctx context.Context) error {
	tests, err := s.testRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("list tests: %w", err)
	}

	warmed := 0
	for i := range tests {
		if err := s.warmTestCache(ctx, tests[i].ID); err != nil {
			s.log.Warn().Err(err).Str("test_id", tests[i].ID.String()).Msg("Failed to warm test, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().Int("warmed", warmed).Int("total", len(tests)).Msg("Catalog prewarm complete")
	return nil
}

func (s *CatalogService) warmTestCache(ctx context.Context, testID uuid.UUID) error {
	test, err := s.loadFromDB(ctx, testID)
	if err != nil {
		return err
	}
	return s.cachePayload(ctx, test)
}

func (s *CatalogService) loadFromDB(ctx context.Context, testID uuid.UUID) (*model.Test, error) {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return nil, ErrTestNotFound
	}

	questions, err := s.questionRepo.ListByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	test.Questions = questions
	test.QuestionCount = len(questions)
	return test, nil
}

func (s *CatalogService) cachePayload(ctx context.Context, test *model.Test) error {
	payload := model.TestPayload{
		TestID:          test.ID,
		Name:            test.Name,
		DurationSeconds: test.DurationSeconds,
		Category:        test.Category,
		Questions:       test.Questions,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	key := config.CacheKey.TestPayloadKey(test.ID.String())
	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("cache payload: %w", err)
	}
	return nil
}
