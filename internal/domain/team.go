package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Ограничения на поля команды
const (
	TeamNameMinLen        = 3
	TeamNameMaxLen        = 50
	TeamDescriptionMaxLen = 500
)

// Team представляет команду участников
type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	LeaderID    string    `json:"leader_id"`
	MemberIDs   []string  `json:"member_ids"`
	InviteCode  string    `json:"invite_code,omitempty"` // Виден только участникам команды
	Score       int       `json:"score"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TeamMember представляет участника команды (проекция, отдельно не хранится)
type TeamMember struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsLeader bool   `json:"is_leader"`
}

// HasMember проверяет, состоит ли пользователь в команде
func (t *Team) HasMember(userID string) bool {
	for _, id := range t.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Size возвращает количество участников команды
func (t *Team) Size() int {
	return len(t.MemberIDs)
}

// Public возвращает копию команды без invite-кода (для посторонних пользователей)
func (t *Team) Public() *Team {
	cp := *t
	cp.MemberIDs = append([]string(nil), t.MemberIDs...)
	cp.InviteCode = ""
	return &cp
}

// ValidateTeamFields проверяет длину названия и описания команды
func ValidateTeamFields(name, description string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < TeamNameMinLen || n > TeamNameMaxLen {
		return ErrInvalidInput
	}
	if utf8.RuneCountInString(description) > TeamDescriptionMaxLen {
		return ErrInvalidInput
	}
	return nil
}
