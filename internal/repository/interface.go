package repository

import (
	"context"
	"time"

	"github.com/aidar/teamhub/internal/domain"
)

// Transactor выполняет функцию в рамках одной транзакции хранилища.
// Репозитории, вызванные с переданным контекстом, работают внутри этой транзакции.
// Вложенный вызов переиспользует внешнюю транзакцию.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository определяет методы справочника пользователей
type UserRepository interface {
	// Upsert создает нового пользователя или обновляет существующего
	Upsert(ctx context.Context, user *domain.User) error

	// GetByID получает пользователя по ID
	GetByID(ctx context.Context, userID string) (*domain.User, error)

	// GetByUsername получает пользователя по имени
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByEmail получает пользователя по email (без учета регистра)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// TeamRepository определяет методы для работы с командами и их составом
type TeamRepository interface {
	// Create создает команду вместе с лидером в качестве первого участника
	Create(ctx context.Context, team *domain.Team) error

	// GetByID получает команду со списком участников
	GetByID(ctx context.Context, teamID string) (*domain.Team, error)

	// GetForUpdate получает команду и блокирует ее до конца транзакции
	GetForUpdate(ctx context.Context, teamID string) (*domain.Team, error)

	// GetByMember возвращает команду пользователя или nil, если он не состоит в команде
	GetByMember(ctx context.Context, userID string) (*domain.Team, error)

	// GetByInviteCode получает команду по invite-коду
	GetByInviteCode(ctx context.Context, code string) (*domain.Team, error)

	// Update обновляет название и описание команды
	Update(ctx context.Context, teamID, name, description string) (*domain.Team, error)

	// Delete удаляет команду вместе с составом
	Delete(ctx context.Context, teamID string) error

	// AddMember добавляет пользователя в команду
	AddMember(ctx context.Context, teamID, userID string) error

	// RemoveMember исключает пользователя из команды (лидера исключить нельзя)
	RemoveMember(ctx context.Context, teamID, userID string) error

	// SetLeader назначает лидером участника команды
	SetLeader(ctx context.Context, teamID, userID string) error

	// ReplaceInviteCode заменяет invite-код команды, старый код перестает действовать
	ReplaceInviteCode(ctx context.Context, teamID, code string) error

	// ListMembers возвращает состав команды с именами пользователей
	ListMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error)

	// ListByScore возвращает команды, отсортированные по очкам
	ListByScore(ctx context.Context, limit int) ([]*domain.Team, error)

	// Count возвращает количество команд
	Count(ctx context.Context) (int, error)
}

// InvitationRepository определяет методы для работы с приглашениями
type InvitationRepository interface {
	// Create создает приглашение; не более одного ожидающего на пару (команда, приглашенный)
	Create(ctx context.Context, invitation *domain.Invitation) error

	// GetByID получает приглашение по ID
	GetByID(ctx context.Context, invitationID string) (*domain.Invitation, error)

	// FindPending возвращает ожидающее приглашение для пары или nil
	FindPending(ctx context.Context, teamID, inviteeKey string) (*domain.Invitation, error)

	// ListPendingForUser возвращает ожидающие приглашения пользователя (по ID или email)
	ListPendingForUser(ctx context.Context, userID, email string) ([]*domain.Invitation, error)

	// ListPendingForTeam возвращает ожидающие приглашения команды
	ListPendingForTeam(ctx context.Context, teamID string) ([]*domain.Invitation, error)

	// SetStatus переводит ожидающее приглашение в терминальный статус
	SetStatus(ctx context.Context, invitationID string, status domain.InvitationStatus) error

	// ExpirePending переводит все просроченные ожидающие приглашения в expired
	ExpirePending(ctx context.Context, now time.Time) (int64, error)

	// CountByStatus возвращает количество приглашений по статусам
	CountByStatus(ctx context.Context) (map[domain.InvitationStatus]int, error)
}
