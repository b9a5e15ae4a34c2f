package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/aidar/teamhub/internal/domain"
)

// TeamRepository реализует repository.TeamRepository в памяти
type TeamRepository struct {
	s *Store
}

// Create создает команду вместе с лидером в качестве первого участника
func (r *TeamRepository) Create(ctx context.Context, team *domain.Team) error {
	defer r.s.lock(ctx)()

	for _, rec := range r.s.teams {
		if strings.EqualFold(rec.team.Name, team.Name) {
			return domain.ErrTeamNameTaken
		}
		if rec.team.InviteCode == team.InviteCode {
			return domain.ErrInviteCodeTaken
		}
	}
	if r.s.teamOf(team.LeaderID) != nil {
		return domain.ErrAlreadyOnTeam
	}

	team.MemberIDs = []string{team.LeaderID}
	team.UpdatedAt = team.CreatedAt
	rec := &teamRecord{team: *team, members: []string{team.LeaderID}}
	rec.team.MemberIDs = nil
	r.s.teams[team.ID] = rec
	return nil
}

// GetByID получает команду со списком участников
func (r *TeamRepository) GetByID(ctx context.Context, teamID string) (*domain.Team, error) {
	defer r.s.lock(ctx)()

	rec, ok := r.s.teams[teamID]
	if !ok {
		return nil, domain.ErrTeamNotFound
	}
	return rec.snapshot(), nil
}

// GetForUpdate получает команду; блокировку обеспечивает мьютекс транзакции
func (r *TeamRepository) GetForUpdate(ctx context.Context, teamID string) (*domain.Team, error) {
	return r.GetByID(ctx, teamID)
}

// GetByMember возвращает команду пользователя или nil
func (r *TeamRepository) GetByMember(ctx context.Context, userID string) (*domain.Team, error) {
	defer r.s.lock(ctx)()

	if rec := r.s.teamOf(userID); rec != nil {
		return rec.snapshot(), nil
	}
	return nil, nil
}

// GetByInviteCode получает команду по invite-коду
func (r *TeamRepository) GetByInviteCode(ctx context.Context, code string) (*domain.Team, error) {
	defer r.s.lock(ctx)()

	for _, rec := range r.s.teams {
		if rec.team.InviteCode == code {
			return rec.snapshot(), nil
		}
	}
	return nil, domain.ErrTeamNotFound
}

// Update обновляет название и описание команды
func (r *TeamRepository) Update(ctx context.Context, teamID, name, description string) (*domain.Team, error) {
	defer r.s.lock(ctx)()

	rec, ok := r.s.teams[teamID]
	if !ok {
		return nil, domain.ErrTeamNotFound
	}
	for id, other := range r.s.teams {
		if id != teamID && strings.EqualFold(other.team.Name, name) {
			return nil, domain.ErrTeamNameTaken
		}
	}

	rec.team.Name = name
	rec.team.Description = description
	rec.team.UpdatedAt = time.Now().UTC()
	return rec.snapshot(), nil
}

// Delete удаляет команду вместе с составом
func (r *TeamRepository) Delete(ctx context.Context, teamID string) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.teams[teamID]; !ok {
		return domain.ErrTeamNotFound
	}
	delete(r.s.teams, teamID)
	return nil
}

// AddMember добавляет пользователя в команду
func (r *TeamRepository) AddMember(ctx context.Context, teamID, userID string) error {
	defer r.s.lock(ctx)()

	rec, ok := r.s.teams[teamID]
	if !ok {
		return domain.ErrTeamNotFound
	}
	if r.s.teamOf(userID) != nil {
		return domain.ErrAlreadyOnTeam
	}

	rec.members = append(rec.members, userID)
	rec.team.UpdatedAt = time.Now().UTC()
	return nil
}

// RemoveMember исключает пользователя из команды; лидера исключить нельзя
func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, userID string) error {
	defer r.s.lock(ctx)()

	rec, ok := r.s.teams[teamID]
	if !ok {
		return domain.ErrTeamNotFound
	}
	if rec.team.LeaderID == userID {
		return domain.ErrLastMemberIsLeader
	}

	for i, id := range rec.members {
		if id == userID {
			rec.members = append(rec.members[:i:i], rec.members[i+1:]...)
			rec.team.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return domain.ErrNotAMember
}

// SetLeader назначает лидером участника команды
func (r *TeamRepository) SetLeader(ctx context.Context, teamID, userID string) error {
	defer r.s.lock(ctx)()

	rec, ok := r.s.teams[teamID]
	if !ok {
		return domain.ErrTeamNotFound
	}
	for _, id := range rec.members {
		if id == userID {
			rec.team.LeaderID = userID
			rec.team.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return domain.ErrNotAMember
}

// ReplaceInviteCode заменяет invite-код команды
func (r *TeamRepository) ReplaceInviteCode(ctx context.Context, teamID, code string) error {
	defer r.s.lock(ctx)()

	rec, ok := r.s.teams[teamID]
	if !ok {
		return domain.ErrTeamNotFound
	}
	for id, other := range r.s.teams {
		if id != teamID && other.team.InviteCode == code {
			return domain.ErrInviteCodeTaken
		}
	}

	rec.team.InviteCode = code
	rec.team.UpdatedAt = time.Now().UTC()
	return nil
}

// ListMembers возвращает состав команды с именами пользователей
func (r *TeamRepository) ListMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error) {
	defer r.s.lock(ctx)()

	rec, ok := r.s.teams[teamID]
	if !ok {
		return nil, domain.ErrTeamNotFound
	}

	members := make([]domain.TeamMember, 0, len(rec.members))
	for _, id := range rec.members {
		username := id
		if u, ok := r.s.users[id]; ok {
			username = u.Username
		}
		members = append(members, domain.TeamMember{
			UserID:   id,
			Username: username,
			IsLeader: id == rec.team.LeaderID,
		})
	}
	return members, nil
}

// ListByScore возвращает команды, отсортированные по очкам
func (r *TeamRepository) ListByScore(ctx context.Context, limit int) ([]*domain.Team, error) {
	defer r.s.lock(ctx)()

	teams := make([]*domain.Team, 0, len(r.s.teams))
	for _, rec := range r.s.teams {
		teams = append(teams, rec.snapshot())
	}
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].Score != teams[j].Score {
			return teams[i].Score > teams[j].Score
		}
		return teams[i].CreatedAt.Before(teams[j].CreatedAt)
	})

	if limit > 0 && len(teams) > limit {
		teams = teams[:limit]
	}
	return teams, nil
}

// Count возвращает количество команд
func (r *TeamRepository) Count(ctx context.Context) (int, error) {
	defer r.s.lock(ctx)()
	return len(r.s.teams), nil
}
