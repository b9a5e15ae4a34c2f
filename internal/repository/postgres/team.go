package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aidar/teamhub/internal/domain"
)

const (
	codeForeignKeyViolation = "23503"

	constraintTeamName       = "idx_teams_name_lower"
	constraintTeamInviteCode = "idx_teams_invite_code"
)

const teamColumns = `team_id, name, description, leader_id, invite_code, score, created_at, updated_at`

// TeamRepository реализует repository.TeamRepository для PostgreSQL
type TeamRepository struct {
	db *pgxpool.Pool
}

// NewTeamRepository создает новый экземпляр TeamRepository
func NewTeamRepository(db *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{db: db}
}

// Create создает команду вместе с лидером в качестве первого участника
func (r *TeamRepository) Create(ctx context.Context, team *domain.Team) error {
	return runInTx(ctx, r.db, func(ctx context.Context) error {
		q := conn(ctx, r.db)

		query := `
			INSERT INTO teams (team_id, name, description, leader_id, invite_code, score, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 0, $6, $6)
		`
		_, err := q.Exec(ctx, query, team.ID, team.Name, team.Description, team.LeaderID, team.InviteCode, team.CreatedAt)
		if err != nil {
			switch {
			case isUniqueViolation(err, constraintTeamName):
				return domain.ErrTeamNameTaken
			case isUniqueViolation(err, constraintTeamInviteCode):
				return domain.ErrInviteCodeTaken
			}
			return classify(err)
		}

		memberQuery := `INSERT INTO team_members (team_id, user_id, joined_at) VALUES ($1, $2, $3)`
		if _, err := q.Exec(ctx, memberQuery, team.ID, team.LeaderID, team.CreatedAt); err != nil {
			if isUniqueViolation(err, "") {
				return domain.ErrAlreadyOnTeam
			}
			return classify(err)
		}

		team.MemberIDs = []string{team.LeaderID}
		team.UpdatedAt = team.CreatedAt
		return nil
	})
}

// GetByID получает команду со списком участников
func (r *TeamRepository) GetByID(ctx context.Context, teamID string) (*domain.Team, error) {
	return r.getOne(ctx, `SELECT `+teamColumns+` FROM teams WHERE team_id = $1`, teamID)
}

// GetForUpdate получает команду и блокирует строку до конца транзакции
func (r *TeamRepository) GetForUpdate(ctx context.Context, teamID string) (*domain.Team, error) {
	return r.getOne(ctx, `SELECT `+teamColumns+` FROM teams WHERE team_id = $1 FOR UPDATE`, teamID)
}

// GetByInviteCode получает команду по invite-коду (с учетом регистра)
func (r *TeamRepository) GetByInviteCode(ctx context.Context, code string) (*domain.Team, error) {
	return r.getOne(ctx, `SELECT `+teamColumns+` FROM teams WHERE invite_code = $1`, code)
}

// GetByMember возвращает команду пользователя или nil, если он не состоит в команде
func (r *TeamRepository) GetByMember(ctx context.Context, userID string) (*domain.Team, error) {
	query := `
		SELECT t.team_id, t.name, t.description, t.leader_id, t.invite_code, t.score, t.created_at, t.updated_at
		FROM teams t
		JOIN team_members m ON m.team_id = t.team_id
		WHERE m.user_id = $1
	`
	team, err := r.getOne(ctx, query, userID)
	if errors.Is(err, domain.ErrTeamNotFound) {
		return nil, nil
	}
	return team, err
}

// Update обновляет название и описание команды
func (r *TeamRepository) Update(ctx context.Context, teamID, name, description string) (*domain.Team, error) {
	query := `
		UPDATE teams
		SET name = $2, description = $3, updated_at = NOW()
		WHERE team_id = $1
	`

	result, err := conn(ctx, r.db).Exec(ctx, query, teamID, name, description)
	if err != nil {
		if isUniqueViolation(err, constraintTeamName) {
			return nil, domain.ErrTeamNameTaken
		}
		return nil, classify(err)
	}
	if result.RowsAffected() == 0 {
		return nil, domain.ErrTeamNotFound
	}

	return r.GetByID(ctx, teamID)
}

// Delete удаляет команду; состав удаляется каскадно, приглашения остаются
func (r *TeamRepository) Delete(ctx context.Context, teamID string) error {
	result, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM teams WHERE team_id = $1`, teamID)
	if err != nil {
		return classify(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrTeamNotFound
	}
	return nil
}

// AddMember добавляет пользователя в команду
func (r *TeamRepository) AddMember(ctx context.Context, teamID, userID string) error {
	return runInTx(ctx, r.db, func(ctx context.Context) error {
		q := conn(ctx, r.db)

		_, err := q.Exec(ctx, `INSERT INTO team_members (team_id, user_id) VALUES ($1, $2)`, teamID, userID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation {
				return domain.ErrTeamNotFound
			}
			if isUniqueViolation(err, "") {
				return domain.ErrAlreadyOnTeam
			}
			return classify(err)
		}

		return r.touch(ctx, q, teamID)
	})
}

// RemoveMember исключает пользователя из команды; лидера исключить нельзя
func (r *TeamRepository) RemoveMember(ctx context.Context, teamID, userID string) error {
	return runInTx(ctx, r.db, func(ctx context.Context) error {
		q := conn(ctx, r.db)

		var leaderID string
		err := q.QueryRow(ctx, `SELECT leader_id FROM teams WHERE team_id = $1 FOR UPDATE`, teamID).Scan(&leaderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrTeamNotFound
			}
			return classify(err)
		}
		if leaderID == userID {
			return domain.ErrLastMemberIsLeader
		}

		result, err := q.Exec(ctx, `DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
		if err != nil {
			return classify(err)
		}
		if result.RowsAffected() == 0 {
			return domain.ErrNotAMember
		}

		return r.touch(ctx, q, teamID)
	})
}

// SetLeader назначает лидером участника команды
func (r *TeamRepository) SetLeader(ctx context.Context, teamID, userID string) error {
	return runInTx(ctx, r.db, func(ctx context.Context) error {
		q := conn(ctx, r.db)

		var isMember bool
		err := q.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2)`,
			teamID, userID,
		).Scan(&isMember)
		if err != nil {
			return classify(err)
		}
		if !isMember {
			return domain.ErrNotAMember
		}

		result, err := q.Exec(ctx, `UPDATE teams SET leader_id = $2, updated_at = NOW() WHERE team_id = $1`, teamID, userID)
		if err != nil {
			return classify(err)
		}
		if result.RowsAffected() == 0 {
			return domain.ErrTeamNotFound
		}
		return nil
	})
}

// ReplaceInviteCode заменяет invite-код команды
func (r *TeamRepository) ReplaceInviteCode(ctx context.Context, teamID, code string) error {
	return runInTx(ctx, r.db, func(ctx context.Context) error {
		query := `UPDATE teams SET invite_code = $2, updated_at = NOW() WHERE team_id = $1`

		result, err := conn(ctx, r.db).Exec(ctx, query, teamID, code)
		if err != nil {
			if isUniqueViolation(err, constraintTeamInviteCode) {
				return domain.ErrInviteCodeTaken
			}
			return classify(err)
		}
		if result.RowsAffected() == 0 {
			return domain.ErrTeamNotFound
		}
		return nil
	})
}

// ListMembers возвращает состав команды с именами пользователей
func (r *TeamRepository) ListMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error) {
	query := `
		SELECT m.user_id, COALESCE(u.username, m.user_id), m.user_id = t.leader_id
		FROM team_members m
		JOIN teams t ON t.team_id = m.team_id
		LEFT JOIN users u ON u.user_id = m.user_id
		WHERE m.team_id = $1
		ORDER BY m.joined_at, m.user_id
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, teamID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var members []domain.TeamMember
	for rows.Next() {
		var member domain.TeamMember
		if err := rows.Scan(&member.UserID, &member.Username, &member.IsLeader); err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	// В существующей команде всегда есть хотя бы лидер
	if len(members) == 0 {
		return nil, domain.ErrTeamNotFound
	}
	return members, nil
}

// ListByScore возвращает команды, отсортированные по очкам
func (r *TeamRepository) ListByScore(ctx context.Context, limit int) ([]*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams ORDER BY score DESC, created_at LIMIT $1`

	q := conn(ctx, r.db)
	rows, err := q.Query(ctx, query, limit)
	if err != nil {
		return nil, classify(err)
	}

	var teams []*domain.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		teams = append(teams, team)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	for _, team := range teams {
		if team.MemberIDs, err = r.memberIDs(ctx, q, team.ID); err != nil {
			return nil, err
		}
	}
	return teams, nil
}

// Count возвращает количество команд
func (r *TeamRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM teams`).Scan(&count); err != nil {
		return 0, classify(err)
	}
	return count, nil
}

func (r *TeamRepository) getOne(ctx context.Context, query, arg string) (*domain.Team, error) {
	q := conn(ctx, r.db)

	team, err := scanTeam(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTeamNotFound
		}
		return nil, classify(err)
	}

	if team.MemberIDs, err = r.memberIDs(ctx, q, team.ID); err != nil {
		return nil, err
	}
	return team, nil
}

func (r *TeamRepository) memberIDs(ctx context.Context, q querier, teamID string) ([]string, error) {
	rows, err := q.Query(ctx, `SELECT user_id FROM team_members WHERE team_id = $1 ORDER BY joined_at, user_id`, teamID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	ids := make([]string, 0, 4)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, classify(rows.Err())
}

func (r *TeamRepository) touch(ctx context.Context, q querier, teamID string) error {
	_, err := q.Exec(ctx, `UPDATE teams SET updated_at = NOW() WHERE team_id = $1`, teamID)
	return classify(err)
}

func scanTeam(row pgx.Row) (*domain.Team, error) {
	var team domain.Team
	err := row.Scan(
		&team.ID,
		&team.Name,
		&team.Description,
		&team.LeaderID,
		&team.InviteCode,
		&team.Score,
		&team.CreatedAt,
		&team.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &team, nil
}
