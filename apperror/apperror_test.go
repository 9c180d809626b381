package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		name string
		err  *AppError
		want int
	}{
		{"validation maps to 400", NewValidationError("bad input", nil), http.StatusBadRequest},
		{"auth maps to 401", NewAuthError("invalid credentials", nil), http.StatusUnauthorized},
		{"unauthorized maps to 403", NewUnauthorizedError("admins only", nil), http.StatusForbidden},
		{"not found maps to 404", NewNotFoundError("no such book", nil), http.StatusNotFound},
		{"conflict maps to 409", NewConflictError("already exists", nil), http.StatusConflict},
		{"database maps to 500", NewDatabaseError("query failed", nil), http.StatusInternalServerError},
		{"external service maps to 500", NewExternalServiceError("mail delivery failed", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.err.StatusCode(); got != tc.want {
				t.Errorf("StatusCode() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestToResponse(t *testing.T) {
	t.Run("operational 4xx uses fail status and real message", func(t *testing.T) {
		resp := NewValidationError("passwords are not the same", nil).ToResponse()
		if resp.Status != "fail" {
			t.Errorf("Status = %q, want fail", resp.Status)
		}
		if resp.Message != "passwords are not the same" {
			t.Errorf("Message = %q", resp.Message)
		}
	})

	t.Run("operational 5xx uses error status and keeps message", func(t *testing.T) {
		resp := NewExternalServiceError("failed to send the password reset email", nil).ToResponse()
		if resp.Status != "error" {
			t.Errorf("Status = %q, want error", resp.Status)
		}
		if resp.Message != "failed to send the password reset email" {
			t.Errorf("Message = %q", resp.Message)
		}
	})

	t.Run("non-operational errors suppress the message", func(t *testing.T) {
		resp := NewDatabaseError("duplicate key value violates constraint", errors.New("pq: boom")).ToResponse()
		if resp.Status != "error" {
			t.Errorf("Status = %q, want error", resp.Status)
		}
		if resp.Message != "something went very wrong" {
			t.Errorf("internal detail leaked: %q", resp.Message)
		}
	})
}

func TestFromError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		if _, ok := FromError(nil); ok {
			t.Error("FromError(nil) should report false")
		}
	})

	t.Run("plain error", func(t *testing.T) {
		if _, ok := FromError(errors.New("plain")); ok {
			t.Error("plain errors are not AppErrors")
		}
	})

	t.Run("wrapped AppError is recovered", func(t *testing.T) {
		inner := NewNotFoundError("book not found", nil)
		wrapped := fmt.Errorf("handling request: %w", inner)
		ae, ok := FromError(wrapped)
		if !ok {
			t.Fatal("FromError should unwrap to the AppError")
		}
		if ae.Type != NotFoundError {
			t.Errorf("Type = %v, want NotFoundError", ae.Type)
		}
	})
}

func TestTypePredicates(t *testing.T) {
	if !IsNotFound(NewNotFoundError("gone", nil)) {
		t.Error("IsNotFound failed on a NotFoundError")
	}
	if IsNotFound(NewAuthError("nope", nil)) {
		t.Error("IsNotFound matched an AuthError")
	}
	if !IsAuthError(fmt.Errorf("wrap: %w", NewAuthError("nope", nil))) {
		t.Error("IsAuthError should see through wrapping")
	}
	if !IsValidationError(NewValidationError("bad", nil)) {
		t.Error("IsValidationError failed")
	}
	if !IsUnauthorizedError(NewUnauthorizedError("forbidden", nil)) {
		t.Error("IsUnauthorizedError failed")
	}
	if !IsConflictError(NewConflictError("dup", nil)) {
		t.Error("IsConflictError failed")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDatabaseError("failed to fetch user", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if err.Error() != "failed to fetch user: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
}
