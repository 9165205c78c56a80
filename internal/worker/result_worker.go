package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepverse/mockportal-backend/internal/config"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ResultWorker drains the results queue into the durable history
// table. Submissions ack instantly on the hot path; this worker is the
// only writer of student_test_history.
type ResultWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewResultWorker creates a new ResultWorker.
func NewResultWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "result_worker").Logger(),
	}
}

type resultPayload struct {
	StudentID        int      `json:"student_id"`
	TestID           string   `json:"test_id"`
	TestName         string   `json:"test_name"`
	Correct          int      `json:"correct"`
	Incorrect        int      `json:"incorrect"`
	Unattempted      int      `json:"unattempted"`
	TotalQuestions   int      `json:"total_questions"`
	TotalMarks       int      `json:"total_marks"`
	MaxMarks         int      `json:"max_marks"`
	TimeTakenSeconds int      `json:"time_taken_seconds"`
	Violations       []string `json:"violations"`
	SubmittedAt      int64    `json:"submitted_at"`
}

// Start runs the drain loop until ctx is cancelled.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	buffer := make([]*resultPayload, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Check flush conditions (time or size)
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		// 2. Check context (graceful shutdown)
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 3. Fetch from Redis. BLPop blocks for 1 second, returns
		// immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistResultsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check the flush timer
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var payload resultPayload
		if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &payload)
	}
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *ResultWorker) flushSafe(ctx context.Context, batch []*resultPayload) {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *ResultWorker) bulkInsert(ctx context.Context, batch []*resultPayload) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, p := range batch {
		testID, err := uuid.Parse(p.TestID)
		if err != nil {
			// Trigger the fallback, which handles the bad UUID individually
			return err
		}
		rows = append(rows, []interface{}{
			p.StudentID, testID, p.TestName, p.TotalMarks, p.TotalQuestions,
			p.Correct, p.Incorrect, p.Unattempted, p.TimeTakenSeconds,
			len(p.Violations), time.Unix(p.SubmittedAt, 0),
		})
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"student_test_history"},
		[]string{"student_id", "test_id", "test_name", "score", "total_questions",
			"correct", "incorrect", "unattempted", "time_taken", "violation_count", "submitted_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (w *ResultWorker) fallbackInsert(ctx context.Context, batch []*resultPayload) {
	requeueList := make([]*resultPayload, 0)

	for _, p := range batch {
		testID, err := uuid.Parse(p.TestID)
		if err != nil {
			w.log.Error().Str("test_id", p.TestID).Msg("Dropping result with invalid UUID")
			continue
		}

		_, err = w.pool.Exec(ctx,
			`INSERT INTO student_test_history
			   (student_id, test_id, test_name, score, total_questions,
			    correct, incorrect, unattempted, time_taken, violation_count, submitted_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			p.StudentID, testID, p.TestName, p.TotalMarks, p.TotalQuestions,
			p.Correct, p.Incorrect, p.Unattempted, p.TimeTakenSeconds,
			len(p.Violations), time.Unix(p.SubmittedAt, 0),
		)
		if err != nil {
			w.log.Error().Err(err).Int("student_id", p.StudentID).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, p)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ResultWorker) requeue(ctx context.Context, items []*resultPayload) {
	pipe := w.rdb.Pipeline()
	for _, p := range items {
		data, _ := json.Marshal(p)
		pipe.RPush(ctx, config.WorkerKey.PersistResultsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
	} else {
		w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
		// Avoid thrashing if the DB is down hard
		time.Sleep(2 * time.Second)
	}
}

func (w *ResultWorker) shutdown(buffer []*resultPayload) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
