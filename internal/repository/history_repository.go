package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepverse/mockportal-backend/internal/model"
)

// HistoryRepository handles the persisted attempt history (the result
// store). Inserts happen through the background result worker; the
// read paths here back the student history and admin report endpoints.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

const historyColumns = `h.id, s.email, h.test_id, h.test_name, h.score, h.total_questions,
	h.correct, h.incorrect, h.unattempted, h.time_taken, h.violation_count, h.submitted_at`

// ListByStudent retrieves a student's attempts, newest first.
func (r *HistoryRepository) ListByStudent(ctx context.Context, studentID int) ([]model.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+historyColumns+`
		 FROM student_test_history h
		 JOIN students s ON s.id = h.student_id
		 WHERE h.student_id = $1
		 ORDER BY h.submitted_at DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows)
}

// ListAll retrieves every attempt, newest first. Flat sorting only.
func (r *HistoryRepository) ListAll(ctx context.Context) ([]model.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+historyColumns+`
		 FROM student_test_history h
		 JOIN students s ON s.id = h.student_id
		 ORDER BY h.submitted_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows)
}

// LeaderboardByTest ranks a test's attempts by score, ties broken by
// the faster finish.
func (r *HistoryRepository) LeaderboardByTest(ctx context.Context, testID uuid.UUID) ([]model.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+historyColumns+`
		 FROM student_test_history h
		 JOIN students s ON s.id = h.student_id
		 WHERE h.test_id = $1
		 ORDER BY h.score DESC, h.time_taken ASC`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows)
}

// ViolationCounts returns per-student violation totals for a test,
// aggregated from the durable violation log.
func (r *HistoryRepository) ViolationCounts(ctx context.Context, testID uuid.UUID) (map[int]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id, COUNT(*)
		 FROM attempt_violations
		 WHERE test_id = $1
		 GROUP BY student_id`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int64)
	for rows.Next() {
		var studentID int
		var n int64
		if err := rows.Scan(&studentID, &n); err != nil {
			return nil, err
		}
		counts[studentID] = n
	}
	return counts, rows.Err()
}

type historyRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanHistory(rows historyRows) ([]model.HistoryEntry, error) {
	var entries []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		if err := rows.Scan(&e.ID, &e.StudentEmail, &e.TestID, &e.TestName, &e.Score,
			&e.TotalQuestions, &e.Correct, &e.Incorrect, &e.Unattempted,
			&e.TimeTaken, &e.ViolationCount, &e.SubmittedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
