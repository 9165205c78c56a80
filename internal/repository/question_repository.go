package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepverse/mockportal-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByTest retrieves a test's questions in order.
func (r *QuestionRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, prompt, image, option_a, option_b, option_c, option_d, correct_option, order_num
		 FROM questions
		 WHERE test_id = $1
		 ORDER BY order_num ASC`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.TestID, &q.Prompt, &q.Image,
			&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&q.CorrectOption, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ReplaceForTest atomically swaps a test's entire question set.
func (r *QuestionRepository) ReplaceForTest(ctx context.Context, testID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE test_id = $1`, testID); err != nil {
		return fmt.Errorf("delete old questions: %w", err)
	}

	rows := make([][]interface{}, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		rows = append(rows, []interface{}{
			q.ID, testID, q.Prompt, q.Image,
			q.OptionA, q.OptionB, q.OptionC, q.OptionD,
			string(q.CorrectOption), q.OrderNum,
		})
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"questions"},
		[]string{"id", "test_id", "prompt", "image", "option_a", "option_b", "option_c", "option_d", "correct_option", "order_num"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copy questions: %w", err)
	}

	return tx.Commit(ctx)
}
