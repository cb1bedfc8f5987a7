package auth

import (
	"fmt"
	"net/http"
)

// Error is an authorization failure with a stable machine-readable code and
// the HTTP status it maps to. Two Errors match under errors.Is when their
// codes match, so handlers can test against the sentinels below regardless
// of message detail.
type Error struct {
	Code    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches by code so wrapped and detailed variants compare equal to the
// package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	// ErrUnauthenticated covers every credential failure: missing, malformed,
	// expired, revoked, unknown. Callers never learn which.
	ErrUnauthenticated = &Error{
		Code:    "unauthenticated",
		Status:  http.StatusUnauthorized,
		Message: "authentication required",
	}

	// ErrNoOrganization means the identity verified but carries no
	// organization membership.
	ErrNoOrganization = &Error{
		Code:    "no_organization",
		Status:  http.StatusForbidden,
		Message: "no organization membership",
	}

	// ErrInvalidRole means the identity carries a role string outside the
	// known set.
	ErrInvalidRole = &Error{
		Code:    "invalid_role",
		Status:  http.StatusForbidden,
		Message: "invalid role",
	}

	// ErrInsufficientRole is the sentinel for role-check failures. Real
	// occurrences are built with InsufficientRole so the message names both
	// roles.
	ErrInsufficientRole = &Error{
		Code:    "insufficient_role",
		Status:  http.StatusForbidden,
		Message: "insufficient role",
	}

	// ErrConflict is the sentinel for guarded state transitions that would
	// leave an organization in an invalid state.
	ErrConflict = &Error{
		Code:    "conflict",
		Status:  http.StatusConflict,
		Message: "conflict",
	}
)

// InsufficientRole builds a role-check failure naming the caller's actual
// role and the role the operation requires.
func InsufficientRole(actual, required string) *Error {
	return &Error{
		Code:    ErrInsufficientRole.Code,
		Status:  ErrInsufficientRole.Status,
		Message: fmt.Sprintf("role %s does not meet required role %s", actual, required),
	}
}

// Conflict builds a conflict error with a specific message.
func Conflict(message string) *Error {
	return &Error{
		Code:    ErrConflict.Code,
		Status:  ErrConflict.Status,
		Message: message,
	}
}
