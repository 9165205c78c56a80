package service

import (
	"context"
	"fmt"

	"github.com/prepverse/mockportal-backend/internal/model"
	"github.com/prepverse/mockportal-backend/internal/repository"
)

// AdminService manages administrator accounts.
type AdminService struct {
	adminRepo *repository.AdminRepository
}

// NewAdminService creates a new AdminService.
func NewAdminService(adminRepo *repository.AdminRepository) *AdminService {
	return &AdminService{adminRepo: adminRepo}
}

// GetByEmail retrieves an admin account by email.
func (s *AdminService) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return s.adminRepo.GetByEmail(ctx, email)
}

// Create stores a new admin account with a bcrypt-hashed password.
func (s *AdminService) Create(ctx context.Context, auth *AuthService, name, email, password string) (*model.Admin, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin := &model.Admin{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return admin, nil
}
