package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aidar/teamhub/internal/domain"
	"github.com/aidar/teamhub/internal/repository"
)

// InvitationNotifier delivers invitation emails. Implementations must not block the caller.
type InvitationNotifier interface {
	NotifyInvitation(to, teamName, inviteLink string)
}

// InvitationService implements the invitation state machine:
// pending -> accepted | rejected | cancelled | expired.
type InvitationService struct {
	tx       repository.Transactor
	teamRepo repository.TeamRepository
	invRepo  repository.InvitationRepository
	userRepo repository.UserRepository
	notifier InvitationNotifier
	policy   Policy
	logger   *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewInvitationService creates a new InvitationService
func NewInvitationService(
	tx repository.Transactor,
	teamRepo repository.TeamRepository,
	invRepo repository.InvitationRepository,
	userRepo repository.UserRepository,
	notifier InvitationNotifier,
	policy Policy,
	logger *zap.Logger,
) *InvitationService {
	return &InvitationService{
		tx:       tx,
		teamRepo: teamRepo,
		invRepo:  invRepo,
		userRepo: userRepo,
		notifier: notifier,
		policy:   policy,
		logger:   logger.Named("invitations"),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    newID,
	}
}

// WithClock replaces the time source
func (s *InvitationService) WithClock(now func() time.Time) *InvitationService {
	s.now = now
	return s
}

// Invite creates a pending invitation from the team leader to a user or an email address
func (s *InvitationService) Invite(ctx context.Context, actorID, teamID string, ref domain.InviteeRef) (*domain.Invitation, error) {
	username := strings.TrimSpace(ref.Username)
	email := domain.NormalizeEmail(ref.Email)
	if (username == "") == (email == "") {
		return nil, domain.ErrInvalidInput
	}

	var inv *domain.Invitation
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		team, err := s.teamRepo.GetForUpdate(ctx, teamID)
		if err != nil {
			return err
		}
		if err := requireLeader(actorID, team); err != nil {
			return err
		}
		if s.policy.isFull(team) {
			return domain.ErrTeamFull
		}

		inviteeUserID, keys, err := s.resolveInvitee(ctx, username, email)
		if err != nil {
			return err
		}
		key := keys[0]
		if inviteeUserID != "" {
			current, err := s.teamRepo.GetByMember(ctx, inviteeUserID)
			if err != nil {
				return err
			}
			if current != nil {
				return domain.ErrUserAlreadyOnTeam
			}
		}

		now := s.now()
		// A pending invitation past its deadline no longer blocks a new one.
		// Keys after the first cover invitations sent to the user's email before registration.
		for i, k := range keys {
			existing, err := s.invRepo.FindPending(ctx, teamID, k)
			if err != nil {
				return err
			}
			if existing == nil {
				continue
			}
			if existing.IsExpiredAt(now) {
				if err := s.invRepo.SetStatus(ctx, existing.ID, domain.InvitationExpired); err != nil {
					return err
				}
				continue
			}
			if i > 0 {
				return domain.ErrDuplicatePendingInvitation
			}
		}

		inv = &domain.Invitation{
			ID:            s.newID(),
			TeamID:        team.ID,
			TeamName:      team.Name,
			InviterID:     actorID,
			InviteeUserID: inviteeUserID,
			InviteeEmail:  email,
			InviteeKey:    key,
			Status:        domain.InvitationPending,
			ExpiresAt:     now.Add(s.policy.InvitationTTL),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return s.invRepo.Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invitation created",
		zap.String("invitation_id", inv.ID),
		zap.String("team_id", inv.TeamID),
		zap.String("inviter_id", actorID),
		zap.String("invitee_key", inv.InviteeKey),
	)

	if inv.InviteeEmail != "" && s.notifier != nil {
		s.notifier.NotifyInvitation(inv.InviteeEmail, inv.TeamName, s.policy.inviteLink(inv.ID))
	}

	return inv, nil
}

// resolveInvitee maps a username or email to the invitee's user id and the keys
// a pending invitation for them may be stored under. The first key is the one a
// new invitation gets.
func (s *InvitationService) resolveInvitee(ctx context.Context, username, email string) (string, []string, error) {
	var user *domain.User
	var err error
	if username != "" {
		user, err = s.userRepo.GetByUsername(ctx, username)
		if err != nil {
			return "", nil, err
		}
	} else {
		user, err = s.userRepo.GetByEmail(ctx, email)
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return "", []string{domain.InviteeKeyForEmail(email)}, nil
		case err != nil:
			return "", nil, err
		}
	}

	keys := []string{domain.InviteeKeyForUser(user.UserID)}
	if user.Email != "" {
		keys = append(keys, domain.InviteeKeyForEmail(user.Email))
	}
	return user.UserID, keys, nil
}

// Accept transitions the invitation to accepted and adds the actor to the team atomically
func (s *InvitationService) Accept(ctx context.Context, actor domain.Actor, invitationID string) (*domain.Team, error) {
	inv, err := s.loadForInvitee(ctx, actor, invitationID)
	if err != nil {
		return nil, err
	}

	var team *domain.Team
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		// Team row before invitation row, the same order as Invite and Cancel
		locked, err := s.teamRepo.GetForUpdate(ctx, inv.TeamID)
		if err != nil {
			return err
		}
		// A concurrent accept or cancel loses here with InvalidState
		if err := s.invRepo.SetStatus(ctx, inv.ID, domain.InvitationAccepted); err != nil {
			return err
		}
		current, err := s.teamRepo.GetByMember(ctx, actor.UserID)
		if err != nil {
			return err
		}
		if current != nil {
			return domain.ErrUserAlreadyOnTeam
		}
		if s.policy.isFull(locked) {
			return domain.ErrTeamFull
		}

		if err := s.teamRepo.AddMember(ctx, inv.TeamID, actor.UserID); err != nil {
			if errors.Is(err, domain.ErrAlreadyOnTeam) {
				return domain.ErrUserAlreadyOnTeam
			}
			return err
		}

		team, err = s.teamRepo.GetByID(ctx, inv.TeamID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invitation accepted",
		zap.String("invitation_id", inv.ID),
		zap.String("team_id", inv.TeamID),
		zap.String("user_id", actor.UserID),
	)
	return team, nil
}

// Reject transitions the invitation to rejected
func (s *InvitationService) Reject(ctx context.Context, actor domain.Actor, invitationID string) (*domain.Invitation, error) {
	inv, err := s.loadForInvitee(ctx, actor, invitationID)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.teamRepo.GetByID(ctx, inv.TeamID); err != nil {
			return err
		}
		return s.invRepo.SetStatus(ctx, inv.ID, domain.InvitationRejected)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invitation rejected",
		zap.String("invitation_id", inv.ID),
		zap.String("user_id", actor.UserID),
	)
	return s.invRepo.GetByID(ctx, inv.ID)
}

// loadForInvitee runs the checks shared by Accept and Reject.
// An invitation found past its deadline is persisted as expired.
func (s *InvitationService) loadForInvitee(ctx context.Context, actor domain.Actor, invitationID string) (*domain.Invitation, error) {
	inv, err := s.invRepo.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if !inv.IsAddressedTo(actor) {
		return nil, domain.ErrUnauthorized
	}
	if !inv.IsPending() {
		return nil, domain.ErrInvalidState
	}

	if inv.IsExpiredAt(s.now()) {
		err := s.invRepo.SetStatus(ctx, inv.ID, domain.InvitationExpired)
		if err != nil && !errors.Is(err, domain.ErrInvalidState) {
			return nil, err
		}
		s.logger.Info("invitation expired on access", zap.String("invitation_id", inv.ID))
		return nil, domain.ErrExpired
	}
	return inv, nil
}

// Cancel lets the team leader withdraw a pending invitation
func (s *InvitationService) Cancel(ctx context.Context, actorID, teamID, invitationID string) (*domain.Invitation, error) {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		team, err := s.teamRepo.GetForUpdate(ctx, teamID)
		if err != nil {
			return err
		}
		inv, err := s.invRepo.GetByID(ctx, invitationID)
		if err != nil {
			return err
		}
		if inv.TeamID != team.ID {
			return domain.ErrInvitationNotFound
		}
		if err := requireLeader(actorID, team); err != nil {
			return err
		}
		if !inv.IsPending() {
			return domain.ErrInvalidState
		}
		return s.invRepo.SetStatus(ctx, inv.ID, domain.InvitationCancelled)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invitation cancelled",
		zap.String("invitation_id", invitationID),
		zap.String("team_id", teamID),
		zap.String("actor_id", actorID),
	)
	return s.invRepo.GetByID(ctx, invitationID)
}

// SweepExpired moves every pending invitation past its deadline to expired.
// Running it again without new expirations changes nothing.
func (s *InvitationService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.invRepo.ExpirePending(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired invitations swept", zap.Int64("count", n))
	}
	return n, nil
}

// JoinByCode adds the actor to the team owning the invite code. No invitation record is created.
func (s *InvitationService) JoinByCode(ctx context.Context, actorID, code string) (*domain.Team, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrTeamNotFound
	}

	var team *domain.Team
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		found, err := s.teamRepo.GetByInviteCode(ctx, code)
		if err != nil {
			return err
		}
		locked, err := s.teamRepo.GetForUpdate(ctx, found.ID)
		if err != nil {
			return err
		}
		// The code may have been regenerated between the lookup and the lock
		if locked.InviteCode != code {
			return domain.ErrTeamNotFound
		}
		current, err := s.teamRepo.GetByMember(ctx, actorID)
		if err != nil {
			return err
		}
		if current != nil {
			return domain.ErrUserAlreadyOnTeam
		}
		if s.policy.isFull(locked) {
			return domain.ErrTeamFull
		}

		if err := s.teamRepo.AddMember(ctx, locked.ID, actorID); err != nil {
			if errors.Is(err, domain.ErrAlreadyOnTeam) {
				return domain.ErrUserAlreadyOnTeam
			}
			return err
		}
		team, err = s.teamRepo.GetByID(ctx, locked.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("joined team by code",
		zap.String("team_id", team.ID),
		zap.String("user_id", actorID),
	)
	return team, nil
}

// ListPendingForUser returns invitations the actor can still act on
func (s *InvitationService) ListPendingForUser(ctx context.Context, actor domain.Actor) ([]*domain.Invitation, error) {
	if _, err := s.SweepExpired(ctx); err != nil {
		return nil, err
	}
	return s.invRepo.ListPendingForUser(ctx, actor.UserID, actor.Email)
}

// ListPendingForTeam returns the team's outstanding invitations; leader only
func (s *InvitationService) ListPendingForTeam(ctx context.Context, actorID, teamID string) ([]*domain.Invitation, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := requireLeader(actorID, team); err != nil {
		return nil, err
	}
	if _, err := s.SweepExpired(ctx); err != nil {
		return nil, err
	}
	return s.invRepo.ListPendingForTeam(ctx, teamID)
}

// GetInvitation returns an invitation to its invitee, its inviter or the current team leader
func (s *InvitationService) GetInvitation(ctx context.Context, actor domain.Actor, invitationID string) (*domain.Invitation, error) {
	inv, err := s.invRepo.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || inv.IsAddressedTo(actor) || inv.InviterID == actor.UserID {
		return inv, nil
	}

	team, err := s.teamRepo.GetByID(ctx, inv.TeamID)
	if err != nil {
		if errors.Is(err, domain.ErrTeamNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if err := requireLeader(actor.UserID, team); err != nil {
		return nil, err
	}
	return inv, nil
}
