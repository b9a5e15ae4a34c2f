package domain

import "strings"

// Роли, которые выдает провайдер идентичности
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User представляет запись справочника пользователей
type User struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Actor представляет аутентифицированного пользователя, выполняющего операцию
type Actor struct {
	UserID string
	Email  string
	Role   string
}

// IsAdmin возвращает true если у пользователя роль администратора
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// NormalizeEmail приводит email к каноническому виду для сравнения
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
