package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepverse/mockportal-backend/internal/model"
	"github.com/prepverse/mockportal-backend/internal/response"
	"github.com/prepverse/mockportal-backend/internal/service"
	"github.com/prepverse/mockportal-backend/internal/validator"
)

// AdminHandler handles catalog management and the signup approval
// queue.
type AdminHandler struct {
	catalogService *service.CatalogService
	studentService *service.StudentService
	authService    *service.AuthService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	catalogService *service.CatalogService,
	studentService *service.StudentService,
	authService *service.AuthService,
) *AdminHandler {
	return &AdminHandler{
		catalogService: catalogService,
		studentService: studentService,
		authService:    authService,
	}
}

// CreateTest godoc
// POST /api/v1/admin/tests
// Creates an empty test shell. Questions are attached separately.
func (h *AdminHandler) CreateTest(c *gin.Context) {
	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.catalogService.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCategory) {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidCategory)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"test": test})
}

// DeleteTest godoc
// DELETE /api/v1/admin/tests/:test_id
// Removes a test, its questions, and its cached payload.
func (h *AdminHandler) DeleteTest(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.catalogService.Delete(c.Request.Context(), testID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ReplaceQuestions godoc
// PUT /api/v1/admin/tests/:test_id/questions
// Atomically swaps a test's full question set and rewarms its cache.
func (h *AdminHandler) ReplaceQuestions(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.catalogService.ReplaceQuestions(c.Request.Context(), testID, &req); err != nil {
		if errors.Is(err, service.ErrTestNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetTestWithQuestions godoc
// GET /api/v1/admin/tests/:test_id
// Returns a test with its full question set, correct options included.
func (h *AdminHandler) GetTestWithQuestions(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	test, err := h.catalogService.GetTestWithQuestions(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// ListPendingStudents godoc
// GET /api/v1/admin/students/pending
// Returns signups awaiting approval.
func (h *AdminHandler) ListPendingStudents(c *gin.Context) {
	students, err := h.studentService.ListPending(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"students": students})
}

// ApproveStudent godoc
// POST /api/v1/admin/students/:id/approve
func (h *AdminHandler) ApproveStudent(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.studentService.Approve(c.Request.Context(), id); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// RejectStudent godoc
// POST /api/v1/admin/students/:id/reject
func (h *AdminHandler) RejectStudent(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.studentService.Reject(c.Request.Context(), id); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ResetStudentSession godoc
// POST /api/v1/admin/students/:id/reset-session
// Clears the student's single-device login slot so they can log in
// again after losing a device mid-attempt.
func (h *AdminHandler) ResetStudentSession(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.authService.ResetStudentSession(c.Request.Context(), id); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
