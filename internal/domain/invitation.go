package domain

import "time"

// InvitationStatus представляет статус приглашения в команду
type InvitationStatus string

// Возможные статусы приглашения
const (
	InvitationPending   InvitationStatus = "pending"   // Ожидает ответа
	InvitationAccepted  InvitationStatus = "accepted"  // Принято, приглашенный стал участником
	InvitationRejected  InvitationStatus = "rejected"  // Отклонено приглашенным
	InvitationCancelled InvitationStatus = "cancelled" // Отозвано лидером команды
	InvitationExpired   InvitationStatus = "expired"   // Истек срок действия
)

// IsTerminal возвращает true для статусов, из которых нет переходов
func (s InvitationStatus) IsTerminal() bool {
	switch s {
	case InvitationAccepted, InvitationRejected, InvitationCancelled, InvitationExpired:
		return true
	default:
		return false
	}
}

// Valid проверяет, что статус входит в известный набор
func (s InvitationStatus) Valid() bool {
	return s == InvitationPending || s.IsTerminal()
}

// CanTransition проверяет допустимость перехода между статусами
func CanTransition(from, to InvitationStatus) bool {
	return from == InvitationPending && to.IsTerminal()
}

// Invitation представляет приглашение пользователя в команду
type Invitation struct {
	ID            string           `json:"id"`
	TeamID        string           `json:"team_id"`
	TeamName      string           `json:"team_name"`
	InviterID     string           `json:"inviter_id"`
	InviteeUserID string           `json:"invitee_user_id,omitempty"`
	InviteeEmail  string           `json:"invitee_email,omitempty"`
	InviteeKey    string           `json:"-"` // Нормализованный ключ приглашенного для проверки дублей
	Status        InvitationStatus `json:"status"`
	ExpiresAt     time.Time        `json:"expires_at"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// IsPending возвращает true если приглашение ожидает ответа
func (i *Invitation) IsPending() bool {
	return i.Status == InvitationPending
}

// IsExpiredAt проверяет истечение срока действия на момент now
func (i *Invitation) IsExpiredAt(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// IsAddressedTo проверяет, адресовано ли приглашение пользователю
func (i *Invitation) IsAddressedTo(actor Actor) bool {
	if i.InviteeUserID != "" && i.InviteeUserID == actor.UserID {
		return true
	}
	if i.InviteeEmail != "" && actor.Email != "" {
		return NormalizeEmail(i.InviteeEmail) == NormalizeEmail(actor.Email)
	}
	return false
}

// InviteeRef описывает, кого приглашают: по имени пользователя или по email
type InviteeRef struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// InviteeKeyForUser возвращает ключ приглашенного для зарегистрированного пользователя
func InviteeKeyForUser(userID string) string {
	return "user:" + userID
}

// InviteeKeyForEmail возвращает ключ приглашенного для незарегистрированного email
func InviteeKeyForEmail(email string) string {
	return "email:" + NormalizeEmail(email)
}
