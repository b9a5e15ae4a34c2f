package handler

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/aidar/teamhub/internal/domain"
)

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail содержит код и описание ошибки
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorInfo struct {
	status  int
	message string
}

// Наружу уходит только фиксированное сообщение для каждого кода
var errorInfos = map[domain.ErrorCode]errorInfo{
	domain.CodeNotFound:                    {http.StatusNotFound, "resource not found"},
	domain.CodeUnauthorized:                {http.StatusForbidden, "you are not allowed to perform this action"},
	domain.CodeUnauthenticated:             {http.StatusUnauthorized, "authentication required"},
	domain.CodeInvalidState:                {http.StatusConflict, "invitation is no longer pending"},
	domain.CodeExpired:                     {http.StatusGone, "invitation has expired"},
	domain.CodeAlreadyOnTeam:               {http.StatusConflict, "you are already a member of a team"},
	domain.CodeUserAlreadyOnTeam:           {http.StatusConflict, "user is already a member of a team"},
	domain.CodeNotAMember:                  {http.StatusNotFound, "user is not a member of this team"},
	domain.CodeDuplicatePendingInvitation:  {http.StatusConflict, "a pending invitation already exists for this user"},
	domain.CodeTeamFull:                    {http.StatusConflict, "team is already at maximum capacity"},
	domain.CodeMustTransferLeadershipFirst: {http.StatusConflict, "transfer leadership before leaving the team"},
	domain.CodeCannotRemoveSelf:            {http.StatusBadRequest, "leader cannot remove themselves, leave the team instead"},
	domain.CodeLastMemberIsLeader:          {http.StatusConflict, "the team leader cannot be removed"},
	domain.CodeTeamNameTaken:               {http.StatusConflict, "team name already exists"},
	domain.CodeInvalidInput:                {http.StatusBadRequest, "invalid input"},
	domain.CodeTransientStoreFailure:       {http.StatusServiceUnavailable, "temporary storage failure, try again"},
	domain.CodeInternal:                    {http.StatusInternalServerError, "internal server error"},
}

// RespondWithError отправляет ответ с ошибкой
func RespondWithError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	render.Status(r, statusCode)
	render.JSON(w, r, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// HandleError преобразует доменные ошибки в HTTP ответы
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.MapErrorToCode(err)
	info, ok := errorInfos[code]
	if !ok {
		code = domain.CodeInternal
		info = errorInfos[code]
	}
	RespondWithError(w, r, info.status, string(code), info.message)
}

// StatusForError возвращает HTTP статус для доменной ошибки
func StatusForError(err error) int {
	if info, ok := errorInfos[domain.MapErrorToCode(err)]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}
