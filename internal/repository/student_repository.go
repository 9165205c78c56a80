package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepverse/mockportal-backend/internal/model"
)

// StudentRepository handles student account data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetByEmail retrieves a student by email.
func (r *StudentRepository) GetByEmail(ctx context.Context, email string) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password, status, created_at
		 FROM students
		 WHERE email = $1`, email,
	).Scan(&s.ID, &s.Name, &s.Email, &s.Password, &s.Status, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a student by id.
func (r *StudentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password, status, created_at
		 FROM students
		 WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.Email, &s.Password, &s.Status, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new student in PENDING status.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO students (name, email, password, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		s.Name, s.Email, s.Password, model.ApprovalPending,
	).Scan(&s.ID, &s.CreatedAt)
}

// ListByStatus retrieves students filtered by approval status.
func (r *StudentRepository) ListByStatus(ctx context.Context, status model.ApprovalStatus) ([]model.Student, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, password, status, created_at
		 FROM students
		 WHERE status = $1
		 ORDER BY created_at ASC`, status,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Password, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// SetStatus updates a student's approval status.
func (r *StudentRepository) SetStatus(ctx context.Context, id int, status model.ApprovalStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE students SET status = $1 WHERE id = $2`, status, id)
	return err
}
