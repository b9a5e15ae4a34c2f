package service

import (
	"context"
	"strings"

	"github.com/aidar/teamhub/internal/domain"
	"github.com/aidar/teamhub/internal/repository"
)

// UserService handles the user directory
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

// Upsert creates or updates a directory record
func (s *UserService) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	user.UserID = strings.TrimSpace(user.UserID)
	user.Username = strings.TrimSpace(user.Username)
	user.Email = domain.NormalizeEmail(user.Email)
	if user.UserID == "" || user.Username == "" {
		return nil, domain.ErrInvalidInput
	}

	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return nil, err
	}

	return s.userRepo.GetByID(ctx, user.UserID)
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}
