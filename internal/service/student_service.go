package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/prepverse/mockportal-backend/internal/model"
	"github.com/prepverse/mockportal-backend/internal/repository"
)

// ErrEmailTaken is returned when a signup email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// StudentService handles the student account record store and its
// admin approval workflow.
type StudentService struct {
	studentRepo *repository.StudentRepository
}

// NewStudentService creates a new StudentService.
func NewStudentService(studentRepo *repository.StudentRepository) *StudentService {
	return &StudentService{studentRepo: studentRepo}
}

// Signup registers a new student in PENDING status.
func (s *StudentService) Signup(ctx context.Context, req *model.SignupRequest) (*model.Student, error) {
	existing, err := s.studentRepo.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	student := &model.Student{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Status:   model.ApprovalPending,
	}
	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, fmt.Errorf("create student: %w", err)
	}
	return student, nil
}

// Authenticate verifies credentials and approval status for login.
func (s *StudentService) Authenticate(ctx context.Context, auth *AuthService, email, password string) (*model.Student, error) {
	student, err := s.studentRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get student: %w", err)
	}

	if err := auth.CheckStudentPassword(student.Password, password); err != nil {
		return nil, err
	}

	switch student.Status {
	case model.ApprovalPending:
		return nil, ErrAccountPending
	case model.ApprovalRejected:
		return nil, ErrAccountRejected
	}

	return student, nil
}

// GetByID retrieves a student by id.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	return s.studentRepo.GetByID(ctx, id)
}

// ListPending retrieves signups awaiting approval.
func (s *StudentService) ListPending(ctx context.Context) ([]model.Student, error) {
	return s.studentRepo.ListByStatus(ctx, model.ApprovalPending)
}

// Approve marks a pending signup as approved.
func (s *StudentService) Approve(ctx context.Context, studentID int) error {
	return s.studentRepo.SetStatus(ctx, studentID, model.ApprovalApproved)
}

// Reject marks a pending signup as rejected.
func (s *StudentService) Reject(ctx context.Context, studentID int) error {
	return s.studentRepo.SetStatus(ctx, studentID, model.ApprovalRejected)
}
