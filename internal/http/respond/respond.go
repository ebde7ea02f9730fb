package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hongminglow/farmconnect/internal/apperr"
)

// Envelope is the standard API response wrapper used across handlers.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes a success or informational response using the common envelope.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{Code: status, Message: message, Data: data})
}

// Error writes an error response with the shared envelope structure.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Code: status, Message: message})
}

// Err maps an operation error onto a status and writes it.
func Err(w http.ResponseWriter, err error) {
	message, code := apperr.Describe(err)
	write(w, Status(err), Envelope{Code: Status(err), Message: message, Error: code})
}

// Status picks the HTTP status for an operation error.
func Status(err error) int {
	var (
		authErr  *apperr.AuthError
		queryErr *apperr.QueryError
		persErr  *apperr.PersistenceError
		preErr   *apperr.PreconditionError
	)
	switch {
	case errors.As(err, &persErr):
		return http.StatusBadGateway
	case errors.As(err, &authErr):
		switch authErr.Code {
		case apperr.CodeUserExists:
			return http.StatusConflict
		case apperr.CodeInvalidInput:
			return http.StatusBadRequest
		case apperr.CodeAuthUnavailable, apperr.CodeSignOutFailed:
			return http.StatusServiceUnavailable
		}
		return http.StatusUnauthorized
	case errors.As(err, &preErr):
		if preErr.Reason == apperr.ReasonNoUser {
			return http.StatusUnauthorized
		}
		return http.StatusUnprocessableEntity
	case errors.As(err, &queryErr):
		switch queryErr.Code {
		case apperr.CodePolicy:
			return http.StatusForbidden
		case apperr.CodeNotFound:
			return http.StatusNotFound
		case apperr.CodeConflict:
			return http.StatusConflict
		case apperr.CodeInvalid, apperr.CodeConstraint:
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

func write(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("respond: encode payload failed", "error", err)
	}
}
