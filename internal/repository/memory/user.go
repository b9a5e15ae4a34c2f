package memory

import (
	"context"

	"github.com/aidar/teamhub/internal/domain"
)

// UserRepository реализует repository.UserRepository в памяти
type UserRepository struct {
	s *Store
}

// Upsert создает нового пользователя или обновляет существующего
func (r *UserRepository) Upsert(ctx context.Context, user *domain.User) error {
	defer r.s.lock(ctx)()

	email := domain.NormalizeEmail(user.Email)
	for id, u := range r.s.users {
		if id == user.UserID {
			continue
		}
		if u.Username == user.Username || (email != "" && u.Email == email) {
			return domain.ErrInvalidInput
		}
	}

	r.s.users[user.UserID] = domain.User{UserID: user.UserID, Username: user.Username, Email: email}
	return nil
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	defer r.s.lock(ctx)()

	u, ok := r.s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

// GetByUsername получает пользователя по имени
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	defer r.s.lock(ctx)()

	for _, u := range r.s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// GetByEmail получает пользователя по email (без учета регистра)
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	defer r.s.lock(ctx)()

	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.ErrUserNotFound
	}
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}
