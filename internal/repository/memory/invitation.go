package memory

import (
	"context"
	"time"

	"github.com/aidar/teamhub/internal/domain"
)

// InvitationRepository реализует repository.InvitationRepository в памяти
type InvitationRepository struct {
	s *Store
}

// Create создает приглашение; проверка дубликата и запись выполняются под одним мьютексом
func (r *InvitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.invitations[inv.ID]; ok {
		return domain.ErrInvalidInput
	}
	for _, existing := range r.s.invitations {
		if existing.IsPending() && existing.TeamID == inv.TeamID && existing.InviteeKey == inv.InviteeKey {
			return domain.ErrDuplicatePendingInvitation
		}
	}

	inv.InviteeEmail = domain.NormalizeEmail(inv.InviteeEmail)
	inv.UpdatedAt = inv.CreatedAt
	r.s.invitations[inv.ID] = *inv
	r.s.invOrder = append(r.s.invOrder, inv.ID)
	return nil
}

// GetByID получает приглашение по ID
func (r *InvitationRepository) GetByID(ctx context.Context, invitationID string) (*domain.Invitation, error) {
	defer r.s.lock(ctx)()

	inv, ok := r.s.invitations[invitationID]
	if !ok {
		return nil, domain.ErrInvitationNotFound
	}
	return &inv, nil
}

// FindPending возвращает ожидающее приглашение для пары или nil
func (r *InvitationRepository) FindPending(ctx context.Context, teamID, inviteeKey string) (*domain.Invitation, error) {
	defer r.s.lock(ctx)()

	for _, inv := range r.s.invitations {
		if inv.IsPending() && inv.TeamID == teamID && inv.InviteeKey == inviteeKey {
			return &inv, nil
		}
	}
	return nil, nil
}

// ListPendingForUser возвращает ожидающие приглашения пользователя по ID или email
func (r *InvitationRepository) ListPendingForUser(ctx context.Context, userID, email string) ([]*domain.Invitation, error) {
	email = domain.NormalizeEmail(email)
	return r.filter(ctx, func(inv *domain.Invitation) bool {
		if !inv.IsPending() {
			return false
		}
		return (userID != "" && inv.InviteeUserID == userID) || (email != "" && inv.InviteeEmail == email)
	}), nil
}

// ListPendingForTeam возвращает ожидающие приглашения команды
func (r *InvitationRepository) ListPendingForTeam(ctx context.Context, teamID string) ([]*domain.Invitation, error) {
	return r.filter(ctx, func(inv *domain.Invitation) bool {
		return inv.IsPending() && inv.TeamID == teamID
	}), nil
}

// SetStatus переводит ожидающее приглашение в терминальный статус
func (r *InvitationRepository) SetStatus(ctx context.Context, invitationID string, status domain.InvitationStatus) error {
	defer r.s.lock(ctx)()

	inv, ok := r.s.invitations[invitationID]
	if !ok {
		return domain.ErrInvitationNotFound
	}
	if !domain.CanTransition(inv.Status, status) {
		return domain.ErrInvalidState
	}

	inv.Status = status
	inv.UpdatedAt = time.Now().UTC()
	r.s.invitations[invitationID] = inv
	return nil
}

// ExpirePending переводит просроченные ожидающие приглашения в expired
func (r *InvitationRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	defer r.s.lock(ctx)()

	var n int64
	for id, inv := range r.s.invitations {
		if inv.IsPending() && !inv.ExpiresAt.After(now) {
			inv.Status = domain.InvitationExpired
			inv.UpdatedAt = now
			r.s.invitations[id] = inv
			n++
		}
	}
	return n, nil
}

// CountByStatus возвращает количество приглашений по статусам
func (r *InvitationRepository) CountByStatus(ctx context.Context) (map[domain.InvitationStatus]int, error) {
	defer r.s.lock(ctx)()

	counts := make(map[domain.InvitationStatus]int)
	for _, inv := range r.s.invitations {
		counts[inv.Status]++
	}
	return counts, nil
}

// filter возвращает приглашения в порядке от новых к старым
func (r *InvitationRepository) filter(ctx context.Context, keep func(inv *domain.Invitation) bool) []*domain.Invitation {
	defer r.s.lock(ctx)()

	result := make([]*domain.Invitation, 0)
	for i := len(r.s.invOrder) - 1; i >= 0; i-- {
		inv := r.s.invitations[r.s.invOrder[i]]
		if keep(&inv) {
			result = append(result, &inv)
		}
	}
	return result
}
