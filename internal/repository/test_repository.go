package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepverse/mockportal-backend/internal/model"
)

// TestRepository handles test catalog data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

// GetByID retrieves a test without its questions.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT t.id, t.name, t.description, t.duration_seconds, t.category, t.created_at,
		        (SELECT COUNT(*) FROM questions q WHERE q.test_id = t.id)
		 FROM tests t
		 WHERE t.id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Description, &t.DurationSeconds, &t.Category, &t.CreatedAt, &t.QuestionCount)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List retrieves all tests ordered by creation time, without questions.
func (r *TestRepository) List(ctx context.Context) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.name, t.description, t.duration_seconds, t.category, t.created_at,
		        (SELECT COUNT(*) FROM questions q WHERE q.test_id = t.id)
		 FROM tests t
		 ORDER BY t.created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.DurationSeconds, &t.Category, &t.CreatedAt, &t.QuestionCount); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// Create inserts a new test.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO tests (id, name, description, duration_seconds, category)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		t.ID, t.Name, t.Description, t.DurationSeconds, t.Category,
	).Scan(&t.CreatedAt)
}

// Delete removes a test and (via FK cascade) its questions.
func (r *TestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	return err
}
