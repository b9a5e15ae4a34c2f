package domain

import "errors"

// Доменные ошибки. Каждая соответствует одному виду ошибки API
var (
	// ErrNotFound возвращается когда ресурс не найден
	ErrNotFound = errors.New("resource not found")

	// ErrUserNotFound возвращается когда пользователь не найден
	ErrUserNotFound = errors.New("user not found")

	// ErrTeamNotFound возвращается когда команда не найдена (в том числе удалена)
	ErrTeamNotFound = errors.New("team not found")

	// ErrInvitationNotFound возвращается когда приглашение не найдено
	ErrInvitationNotFound = errors.New("invitation not found")

	// ErrUnauthorized возвращается когда у пользователя нет прав на операцию
	ErrUnauthorized = errors.New("not permitted")

	// ErrUnauthenticated возвращается при неудачной аутентификации
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidToken возвращается когда JWT токен невалиден
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidState возвращается при недопустимом переходе статуса приглашения
	ErrInvalidState = errors.New("invitation is no longer pending")

	// ErrExpired возвращается когда срок действия приглашения истек
	ErrExpired = errors.New("invitation has expired")

	// ErrAlreadyOnTeam возвращается когда сам пользователь уже состоит в команде
	ErrAlreadyOnTeam = errors.New("you are already a member of a team")

	// ErrUserAlreadyOnTeam возвращается когда приглашаемый или вступающий уже в команде
	ErrUserAlreadyOnTeam = errors.New("user is already a member of a team")

	// ErrNotAMember возвращается когда пользователь не состоит в команде
	ErrNotAMember = errors.New("user is not a member of this team")

	// ErrDuplicatePendingInvitation возвращается при повторном приглашении того же пользователя
	ErrDuplicatePendingInvitation = errors.New("a pending invitation already exists for this invitee")

	// ErrTeamFull возвращается когда команда достигла максимального размера
	ErrTeamFull = errors.New("team is already at maximum capacity")

	// ErrMustTransferLeadershipFirst возвращается когда лидер покидает команду с участниками
	ErrMustTransferLeadershipFirst = errors.New("leader must transfer leadership before leaving")

	// ErrCannotRemoveSelf возвращается когда лидер пытается исключить сам себя
	ErrCannotRemoveSelf = errors.New("leader cannot remove themselves, leave the team instead")

	// ErrLastMemberIsLeader возвращается хранилищем при попытке удалить лидера из состава
	ErrLastMemberIsLeader = errors.New("cannot remove the team leader from members")

	// ErrTeamNameTaken возвращается когда название команды уже занято
	ErrTeamNameTaken = errors.New("team name already exists")

	// ErrInviteCodeTaken возвращается хранилищем при коллизии invite-кода
	ErrInviteCodeTaken = errors.New("invite code already in use")

	// ErrInvalidInput возвращается при невалидных входных данных
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransientStoreFailure возвращается при таймауте или потере соединения с хранилищем
	ErrTransientStoreFailure = errors.New("temporary storage failure")
)

// ErrorCode представляет коды ошибок API
type ErrorCode string

// Коды ошибок API
const (
	CodeNotFound                    ErrorCode = "NOT_FOUND"
	CodeUnauthorized                ErrorCode = "UNAUTHORIZED"
	CodeUnauthenticated             ErrorCode = "UNAUTHENTICATED"
	CodeInvalidState                ErrorCode = "INVALID_STATE"
	CodeExpired                     ErrorCode = "EXPIRED"
	CodeAlreadyOnTeam               ErrorCode = "ALREADY_ON_TEAM"
	CodeUserAlreadyOnTeam           ErrorCode = "USER_ALREADY_ON_TEAM"
	CodeNotAMember                  ErrorCode = "NOT_A_MEMBER"
	CodeDuplicatePendingInvitation  ErrorCode = "DUPLICATE_PENDING_INVITATION"
	CodeTeamFull                    ErrorCode = "TEAM_FULL"
	CodeMustTransferLeadershipFirst ErrorCode = "MUST_TRANSFER_LEADERSHIP_FIRST"
	CodeCannotRemoveSelf            ErrorCode = "CANNOT_REMOVE_SELF"
	CodeLastMemberIsLeader          ErrorCode = "LAST_MEMBER_IS_LEADER"
	CodeTeamNameTaken               ErrorCode = "TEAM_NAME_TAKEN"
	CodeInvalidInput                ErrorCode = "INVALID_INPUT"
	CodeTransientStoreFailure       ErrorCode = "TRANSIENT_STORE_FAILURE"
	CodeInternal                    ErrorCode = "INTERNAL_ERROR"
)

// MapErrorToCode преобразует доменные ошибки в коды ошибок API
func MapErrorToCode(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrTeamNotFound), errors.Is(err, ErrInvitationNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidToken):
		return CodeUnauthenticated
	case errors.Is(err, ErrInvalidState):
		return CodeInvalidState
	case errors.Is(err, ErrExpired):
		return CodeExpired
	case errors.Is(err, ErrAlreadyOnTeam):
		return CodeAlreadyOnTeam
	case errors.Is(err, ErrUserAlreadyOnTeam):
		return CodeUserAlreadyOnTeam
	case errors.Is(err, ErrNotAMember):
		return CodeNotAMember
	case errors.Is(err, ErrDuplicatePendingInvitation):
		return CodeDuplicatePendingInvitation
	case errors.Is(err, ErrTeamFull):
		return CodeTeamFull
	case errors.Is(err, ErrMustTransferLeadershipFirst):
		return CodeMustTransferLeadershipFirst
	case errors.Is(err, ErrCannotRemoveSelf):
		return CodeCannotRemoveSelf
	case errors.Is(err, ErrLastMemberIsLeader):
		return CodeLastMemberIsLeader
	case errors.Is(err, ErrTeamNameTaken):
		return CodeTeamNameTaken
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrTransientStoreFailure):
		return CodeTransientStoreFailure
	default:
		return CodeInternal
	}
}
