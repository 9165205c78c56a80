package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepverse/mockportal-backend/internal/middleware"
	"github.com/prepverse/mockportal-backend/internal/model"
	"github.com/prepverse/mockportal-backend/internal/response"
	"github.com/prepverse/mockportal-backend/internal/service"
	"github.com/prepverse/mockportal-backend/internal/validator"
)

// AttemptHandler drives a student's live attempt over HTTP. Every
// endpoint resolves the attempt by the authenticated student id; a
// student has at most one live attempt at a time.
type AttemptHandler struct {
	sessionService *service.SessionService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(sessionService *service.SessionService) *AttemptHandler {
	return &AttemptHandler{sessionService: sessionService}
}

// StartAttempt godoc
// POST /api/v1/student/tests/:test_id/start
// Begins a fresh attempt with a new per-attempt option shuffle. Any
// saved snapshot for the student is discarded.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	view, err := h.sessionService.StartTest(c.Request.Context(), claims.UserID, testID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAttemptActive):
			response.Fail(c, http.StatusConflict, response.ErrAttemptActive)
		case errors.Is(err, service.ErrTestNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
		case errors.Is(err, service.ErrNoQuestions):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoQuestions)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attempt": view})
}

// GetResumeOffer godoc
// GET /api/v1/student/attempt/saved
// Reports whether a resumable snapshot exists. The client shows the
// resume-or-start-over prompt; the server never auto-resumes.
func (h *AttemptHandler) GetResumeOffer(c *gin.Context) {
	claims := middleware.GetClaims(c)

	offer, err := h.sessionService.ResumeOffer(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrNoSavedAttempt) {
			response.Fail(c, http.StatusNotFound, response.ErrNoSavedAttempt)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"saved": offer})
}

// ResumeAttempt godoc
// POST /api/v1/student/attempt/resume
// Rehydrates the saved attempt: same question order, same shuffled
// options, same answers and clock as the last save.
func (h *AttemptHandler) ResumeAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)

	view, err := h.sessionService.Resume(c.Request.Context(), claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAttemptActive):
			response.Fail(c, http.StatusConflict, response.ErrAttemptActive)
		case errors.Is(err, service.ErrNoSavedAttempt):
			response.Fail(c, http.StatusNotFound, response.ErrNoSavedAttempt)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": view})
}

// DiscardSaved godoc
// DELETE /api/v1/student/attempt/saved
// Drops the saved snapshot (the start-over choice).
func (h *AttemptHandler) DiscardSaved(c *gin.Context) {
	claims := middleware.GetClaims(c)

	if err := h.sessionService.DiscardSaved(c.Request.Context(), claims.UserID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetState godoc
// GET /api/v1/student/attempt
// Returns the full live view: questions (grading data stripped),
// answers, marks, palette counts, clock and violation log.
func (h *AttemptHandler) GetState(c *gin.Context) {
	claims := middleware.GetClaims(c)

	view, err := h.sessionService.State(claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": view})
}

// Answer godoc
// POST /api/v1/student/attempt/answer
// Records the chosen presented option for a question. Last write wins.
func (h *AttemptHandler) Answer(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.sessionService.Answer(claims.UserID, questionID, *req.OptionIndex); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ClearAnswer godoc
// POST /api/v1/student/attempt/clear
// Clears the answer on the current question.
func (h *AttemptHandler) ClearAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)

	if err := h.sessionService.ClearAnswer(claims.UserID); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// SaveAndNext godoc
// POST /api/v1/student/attempt/next
// Advances to the next question. No-op on the last question.
func (h *AttemptHandler) SaveAndNext(c *gin.Context) {
	claims := middleware.GetClaims(c)

	if err := h.sessionService.SaveAndNext(claims.UserID); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// MarkAndNext godoc
// POST /api/v1/student/attempt/mark
// Marks the current question for review and advances. Marking is
// one-way; there is no unmark.
func (h *AttemptHandler) MarkAndNext(c *gin.Context) {
	claims := middleware.GetClaims(c)

	if err := h.sessionService.MarkAndNext(claims.UserID); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Navigate godoc
// POST /api/v1/student/attempt/navigate
// Jumps to a question by index, forward or backward.
func (h *AttemptHandler) Navigate(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.NavigateTo(claims.UserID, *req.Index); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ReportViolation godoc
// POST /api/v1/student/attempt/violation
// Appends a proctoring event to the attempt's violation log and fans
// it out to the live proctor feed.
func (h *AttemptHandler) ReportViolation(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.ViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.RecordViolation(c.Request.Context(), claims.UserID, req.Message); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Submit godoc
// POST /api/v1/student/attempt/submit
// Finalizes the attempt and returns the scored result. Idempotent
// against the timer auto-submit: whichever fires first wins and the
// result is identical either way.
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)

	result, err := h.sessionService.Submit(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveAttempt)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}
