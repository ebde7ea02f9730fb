package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hongminglow/farmconnect/internal/apperr"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&apperr.AuthError{Code: apperr.CodeInvalidCredentials}, http.StatusUnauthorized},
		{&apperr.AuthError{Code: apperr.CodeUserExists}, http.StatusConflict},
		{&apperr.AuthError{Code: apperr.CodeInvalidInput}, http.StatusBadRequest},
		{apperr.NoUser("update profile"), http.StatusUnauthorized},
		{&apperr.PreconditionError{Op: "create product", Reason: "only farmers can list products"}, http.StatusUnprocessableEntity},
		{&apperr.QueryError{Code: apperr.CodePolicy}, http.StatusForbidden},
		{&apperr.QueryError{Code: apperr.CodeNotFound}, http.StatusNotFound},
		{&apperr.QueryError{Code: apperr.CodeConstraint}, http.StatusBadRequest},
		{&apperr.QueryError{Code: apperr.CodeStore}, http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", &apperr.PersistenceError{IdentityID: "x"}), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := Status(tc.err); got != tc.want {
			t.Fatalf("Status(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestErrWritesEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Err(rec, &apperr.AuthError{Code: apperr.CodeInvalidCredentials, Message: "invalid login credentials"})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	var env Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	if env.Code != http.StatusUnauthorized || env.Message != "invalid login credentials" || env.Error != apperr.CodeInvalidCredentials {
		t.Fatalf("envelope = %+v", env)
	}
}
