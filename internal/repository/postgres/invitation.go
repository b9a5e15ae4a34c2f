package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aidar/teamhub/internal/domain"
)

const constraintPendingPair = "idx_invitations_pending_pair"

const invitationColumns = `invitation_id, team_id, team_name, inviter_id, invitee_user_id, invitee_email,
	invitee_key, status, expires_at, created_at, updated_at`

// InvitationRepository реализует repository.InvitationRepository для PostgreSQL
type InvitationRepository struct {
	db *pgxpool.Pool
}

// NewInvitationRepository создает новый экземпляр InvitationRepository
func NewInvitationRepository(db *pgxpool.Pool) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// Create создает приглашение. Дубликат ожидающего приглашения отсекается частичным уникальным индексом
func (r *InvitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	query := `
		INSERT INTO team_invitations (invitation_id, team_id, team_name, inviter_id, invitee_user_id,
			invitee_email, invitee_key, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`

	_, err := conn(ctx, r.db).Exec(ctx, query,
		inv.ID, inv.TeamID, inv.TeamName, inv.InviterID, inv.InviteeUserID,
		domain.NormalizeEmail(inv.InviteeEmail), inv.InviteeKey, inv.Status, inv.ExpiresAt, inv.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, constraintPendingPair) {
			return domain.ErrDuplicatePendingInvitation
		}
		return classify(err)
	}

	inv.UpdatedAt = inv.CreatedAt
	return nil
}

// GetByID получает приглашение по ID
func (r *InvitationRepository) GetByID(ctx context.Context, invitationID string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM team_invitations WHERE invitation_id = $1`

	inv, err := scanInvitation(conn(ctx, r.db).QueryRow(ctx, query, invitationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, classify(err)
	}
	return inv, nil
}

// FindPending возвращает ожидающее приглашение для пары (команда, приглашенный) или nil
func (r *InvitationRepository) FindPending(ctx context.Context, teamID, inviteeKey string) (*domain.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM team_invitations
		WHERE team_id = $1 AND invitee_key = $2 AND status = 'pending'
	`

	inv, err := scanInvitation(conn(ctx, r.db).QueryRow(ctx, query, teamID, inviteeKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(err)
	}
	return inv, nil
}

// ListPendingForUser возвращает ожидающие приглашения пользователя по ID или email
func (r *InvitationRepository) ListPendingForUser(ctx context.Context, userID, email string) ([]*domain.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM team_invitations
		WHERE status = 'pending'
		  AND (($1 <> '' AND invitee_user_id = $1) OR ($2 <> '' AND invitee_email = $2))
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, userID, domain.NormalizeEmail(email))
}

// ListPendingForTeam возвращает ожидающие приглашения команды
func (r *InvitationRepository) ListPendingForTeam(ctx context.Context, teamID string) ([]*domain.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM team_invitations
		WHERE team_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, teamID)
}

// SetStatus переводит ожидающее приглашение в терминальный статус.
// Условный UPDATE сериализует конкурентные переходы одного приглашения
func (r *InvitationRepository) SetStatus(ctx context.Context, invitationID string, status domain.InvitationStatus) error {
	if !domain.CanTransition(domain.InvitationPending, status) {
		return domain.ErrInvalidState
	}

	query := `
		UPDATE team_invitations
		SET status = $2, updated_at = NOW()
		WHERE invitation_id = $1 AND status = 'pending'
	`

	q := conn(ctx, r.db)
	result, err := q.Exec(ctx, query, invitationID, status)
	if err != nil {
		return classify(err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	// Строка не обновлена: приглашения нет или оно уже не pending
	var exists bool
	err = q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM team_invitations WHERE invitation_id = $1)`, invitationID).Scan(&exists)
	if err != nil {
		return classify(err)
	}
	if !exists {
		return domain.ErrInvitationNotFound
	}
	return domain.ErrInvalidState
}

// ExpirePending переводит просроченные ожидающие приглашения в expired
func (r *InvitationRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE team_invitations
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'pending' AND expires_at <= $1
	`

	result, err := conn(ctx, r.db).Exec(ctx, query, now)
	if err != nil {
		return 0, classify(err)
	}
	return result.RowsAffected(), nil
}

// CountByStatus возвращает количество приглашений по статусам
func (r *InvitationRepository) CountByStatus(ctx context.Context) (map[domain.InvitationStatus]int, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT status, COUNT(*) FROM team_invitations GROUP BY status`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	counts := make(map[domain.InvitationStatus]int)
	for rows.Next() {
		var status domain.InvitationStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, classify(rows.Err())
}

func (r *InvitationRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Invitation, error) {
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	invitations := make([]*domain.Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, classify(rows.Err())
}

func scanInvitation(row pgx.Row) (*domain.Invitation, error) {
	var inv domain.Invitation
	err := row.Scan(
		&inv.ID,
		&inv.TeamID,
		&inv.TeamName,
		&inv.InviterID,
		&inv.InviteeUserID,
		&inv.InviteeEmail,
		&inv.InviteeKey,
		&inv.Status,
		&inv.ExpiresAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
