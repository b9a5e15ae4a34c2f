package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aidar/teamhub/internal/domain"
)

// UserRepository реализует repository.UserRepository для PostgreSQL
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository создает новый экземпляр UserRepository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert создает нового пользователя или обновляет существующего
func (r *UserRepository) Upsert(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (user_id, username, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username,
		    email = EXCLUDED.email,
		    updated_at = NOW()
	`

	_, err := conn(ctx, r.db).Exec(ctx, query, user.UserID, user.Username, domain.NormalizeEmail(user.Email))
	if err != nil {
		if isUniqueViolation(err, "") {
			return domain.ErrInvalidInput
		}
		return classify(err)
	}
	return nil
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT user_id, username, email FROM users WHERE user_id = $1`, userID)
}

// GetByUsername получает пользователя по имени
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT user_id, username, email FROM users WHERE username = $1`, username)
}

// GetByEmail получает пользователя по email (без учета регистра)
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.getOne(ctx, `SELECT user_id, username, email FROM users WHERE lower(email) = $1`, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	var user domain.User
	err := conn(ctx, r.db).QueryRow(ctx, query, arg).Scan(&user.UserID, &user.Username, &user.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, classify(err)
	}
	return &user, nil
}
