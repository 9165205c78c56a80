package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepverse/mockportal-backend/internal/middleware"
	"github.com/prepverse/mockportal-backend/internal/response"
	"github.com/prepverse/mockportal-backend/internal/service"
)

// HistoryHandler serves the persisted attempt history.
type HistoryHandler struct {
	historyService *service.HistoryService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(historyService *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

// GetMyHistory godoc
// GET /api/v1/student/history
// Returns the student's past attempts, newest first.
func (h *HistoryHandler) GetMyHistory(c *gin.Context) {
	claims := middleware.GetClaims(c)

	entries, err := h.historyService.ForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"history": entries})
}

// GetLeaderboard godoc
// GET /api/v1/student/tests/:test_id/leaderboard
// Ranks a test's attempts by score, faster finish breaking ties.
func (h *HistoryHandler) GetLeaderboard(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	entries, err := h.historyService.Leaderboard(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"leaderboard": entries})
}

// GetAllHistory godoc
// GET /api/v1/admin/history
// Returns every attempt across all students, newest first.
func (h *HistoryHandler) GetAllHistory(c *gin.Context) {
	entries, err := h.historyService.All(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"history": entries})
}

// GetTestReport godoc
// GET /api/v1/admin/tests/:test_id/report
// Bundles a test's leaderboard with per-student violation totals.
func (h *HistoryHandler) GetTestReport(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	report, err := h.historyService.ReportForTest(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"report": report})
}
