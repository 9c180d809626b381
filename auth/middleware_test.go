package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/user/bookmarket-go/apperror"
)

// stubUserSource serves a fixed set of users for guard tests.
type stubUserSource struct {
	users map[int]*User
}

func (s *stubUserSource) UserByID(_ context.Context, id int) (*User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, apperror.NewNotFoundError("user not found", nil)
}

func okHandler(t *testing.T, wantUserID int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			t.Error("handler reached without a user on the context")
		} else if u.ID != wantUserID {
			t.Errorf("context user id = %d, want %d", u.ID, wantUserID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apperror.ErrorResponse {
	t.Helper()
	var resp apperror.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding error envelope: %v", err)
	}
	return resp
}

func TestRequireUser(t *testing.T) {
	tokens := newTestTokenService(time.Hour)
	source := &stubUserSource{users: map[int]*User{
		1: {ID: 1, UserName: "amy"},
	}}
	guard := NewGuard(tokens, source)

	validToken, err := tokens.Issue(1)
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	t.Run("bearer header accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+validToken)
		rec := httptest.NewRecorder()
		guard.RequireUser(okHandler(t, 1)).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("jwt cookie accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "jwt", Value: validToken})
		rec := httptest.NewRecorder()
		guard.RequireUser(okHandler(t, 1)).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("missing token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		guard.RequireUser(okHandler(t, 1)).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		if resp := decodeEnvelope(t, rec); resp.Status != "fail" {
			t.Errorf("envelope status = %q, want fail", resp.Status)
		}
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nonsense")
		rec := httptest.NewRecorder()
		guard.RequireUser(okHandler(t, 1)).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("expired token rejected", func(t *testing.T) {
		expired := newTestTokenService(-time.Minute)
		tok, _ := expired.Issue(1)
		// Same secret, so Verify fails on expiry rather than signature.
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		guard.RequireUser(okHandler(t, 1)).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		if resp := decodeEnvelope(t, rec); resp.Message != "your token has expired! please log in again" {
			t.Errorf("message = %q", resp.Message)
		}
	})

	t.Run("deleted user rejected", func(t *testing.T) {
		tok, _ := tokens.Issue(99)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		guard.RequireUser(okHandler(t, 99)).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		if resp := decodeEnvelope(t, rec); resp.Message != "the user belonging to this token no longer exists" {
			t.Errorf("message = %q", resp.Message)
		}
	})

	t.Run("password changed after issuance rejected", func(t *testing.T) {
		changed := time.Now().Add(time.Hour)
		source.users[2] = &User{ID: 2, PasswordChangedAt: &changed}
		tok, _ := tokens.Issue(2)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		guard.RequireUser(okHandler(t, 2)).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	tokens := newTestTokenService(time.Hour)
	guard := NewGuard(tokens, &stubUserSource{})

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("admin passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithUser(req.Context(), &User{ID: 1, IsAdmin: true}))
		rec := httptest.NewRecorder()
		guard.RequireAdmin(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithUser(req.Context(), &User{ID: 1}))
		rec := httptest.NewRecorder()
		guard.RequireAdmin(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("no user unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		guard.RequireAdmin(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}
