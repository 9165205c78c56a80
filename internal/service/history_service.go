package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/prepverse/mockportal-backend/internal/model"
	"github.com/prepverse/mockportal-backend/internal/repository"
)

// HistoryService reads the persisted attempt history. Writes never
// happen here; the result worker owns inserts.
type HistoryService struct {
	historyRepo *repository.HistoryRepository
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(historyRepo *repository.HistoryRepository) *HistoryService {
	return &HistoryService{historyRepo: historyRepo}
}

// ForStudent returns the student's attempts, newest first.
func (s *HistoryService) ForStudent(ctx context.Context, studentID int) ([]model.HistoryEntry, error) {
	return s.historyRepo.ListByStudent(ctx, studentID)
}

// All returns every attempt across students, newest first.
func (s *HistoryService) All(ctx context.Context) ([]model.HistoryEntry, error) {
	return s.historyRepo.ListAll(ctx)
}

// Leaderboard ranks a test's attempts by score.
func (s *HistoryService) Leaderboard(ctx context.Context, testID uuid.UUID) ([]model.HistoryEntry, error) {
	return s.historyRepo.LeaderboardByTest(ctx, testID)
}

// TestReport bundles a test's leaderboard with its per-student
// violation totals for the admin report view.
type TestReport struct {
	Entries         []model.HistoryEntry `json:"entries"`
	ViolationCounts map[int]int64        `json:"violation_counts"`
	TotalViolations int64                `json:"total_violations"`
}

// ReportForTest fires the leaderboard and violation-count fetches in
// parallel. The leaderboard is critical; violation counts are
// best-effort.
func (s *HistoryService) ReportForTest(ctx context.Context, testID uuid.UUID) (*TestReport, error) {
	report := &TestReport{ViolationCounts: make(map[int]int64)}

	var (
		entries    []model.HistoryEntry
		counts     map[int]int64
		entriesErr error
		countsErr  error
		wg         sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		entries, entriesErr = s.historyRepo.LeaderboardByTest(ctx, testID)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		counts, countsErr = s.historyRepo.ViolationCounts(ctx, testID)
	}()

	wg.Wait()

	if entriesErr != nil {
		return nil, entriesErr
	}
	report.Entries = entries

	if countsErr == nil && counts != nil {
		report.ViolationCounts = counts
		for _, n := range counts {
			report.TotalViolations += n
		}
	}

	return report, nil
}
