// Package apperr defines the error taxonomy shared by the backend client,
// the session service and the views.
package apperr

import (
	"errors"
	"fmt"
)

// Auth error codes.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeUserExists         = "user_already_exists"
	CodeInvalidInput       = "invalid_input"
	CodeSessionExpired     = "session_expired"
	CodeSignOutFailed      = "sign_out_failed"
	CodeAuthUnavailable    = "auth_unavailable"
)

// Query error codes.
const (
	CodePolicy     = "policy_violation"
	CodeNotFound   = "not_found"
	CodeConflict   = "conflict"
	CodeInvalid    = "invalid_query"
	CodeConstraint = "constraint_violation"
	CodeStore      = "store_failure"
)

// AuthError reports a rejected credential or identity operation.
type AuthError struct {
	Code    string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Message, e.Err)
	}
	return "auth: " + e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

// QueryError reports a table read or write the backend rejected.
type QueryError struct {
	Op    string
	Table string
	Code  string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Table, e.Code, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// PersistenceError reports a sign-up whose identity was created but whose
// profile row could not be written. IdentityID names the orphaned identity.
type PersistenceError struct {
	IdentityID string
	Email      string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("profile for identity %s not persisted: %v", e.IdentityID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PreconditionError reports an operation attempted without the state it needs,
// usually a signed-in user.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// ReasonNoUser is the PreconditionError reason for a missing signed-in user.
const ReasonNoUser = "no user logged in"

// NoUser returns the precondition failure for op when nobody is signed in.
func NoUser(op string) *PreconditionError {
	return &PreconditionError{Op: op, Reason: ReasonNoUser}
}

// Describe flattens err into a user-facing message and a stable code.
func Describe(err error) (message, code string) {
	if err == nil {
		return "", ""
	}
	var (
		authErr  *AuthError
		queryErr *QueryError
		persErr  *PersistenceError
		preErr   *PreconditionError
	)
	switch {
	case errors.As(err, &authErr):
		return authErr.Message, authErr.Code
	case errors.As(err, &queryErr):
		return queryMessage(queryErr), queryErr.Code
	case errors.As(err, &persErr):
		return "account created but profile could not be saved", "profile_not_persisted"
	case errors.As(err, &preErr):
		return preErr.Reason, "precondition_failed"
	default:
		return "an unknown error occurred", "unknown_error"
	}
}

func queryMessage(e *QueryError) string {
	switch e.Code {
	case CodePolicy:
		return "not allowed"
	case CodeNotFound:
		return "not found"
	case CodeConflict:
		return "already exists"
	case CodeInvalid, CodeConstraint:
		return "invalid request"
	default:
		return "request failed"
	}
}
