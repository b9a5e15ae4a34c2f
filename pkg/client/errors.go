package client

import (
	"errors"
	"fmt"
)

// Error codes returned by the API
const (
	CodeNotFound                    = "NOT_FOUND"
	CodeUnauthorized                = "UNAUTHORIZED"
	CodeUnauthenticated             = "UNAUTHENTICATED"
	CodeInvalidState                = "INVALID_STATE"
	CodeExpired                     = "EXPIRED"
	CodeAlreadyOnTeam               = "ALREADY_ON_TEAM"
	CodeUserAlreadyOnTeam           = "USER_ALREADY_ON_TEAM"
	CodeNotAMember                  = "NOT_A_MEMBER"
	CodeDuplicatePendingInvitation  = "DUPLICATE_PENDING_INVITATION"
	CodeTeamFull                    = "TEAM_FULL"
	CodeMustTransferLeadershipFirst = "MUST_TRANSFER_LEADERSHIP_FIRST"
	CodeCannotRemoveSelf            = "CANNOT_REMOVE_SELF"
	CodeTeamNameTaken               = "TEAM_NAME_TAKEN"
	CodeInvalidInput                = "INVALID_INPUT"
	CodeTransientStoreFailure       = "TRANSIENT_STORE_FAILURE"
)

// APIError is a non-2xx response decoded from the error envelope
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// IsCode reports whether err is an APIError with the given code
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
