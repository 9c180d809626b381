package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/user/bookmarket-go/apperror"
)

// UserSource loads users for the guard middleware. AuthService satisfies
// it; tests substitute a stub.
type UserSource interface {
	UserByID(ctx context.Context, id int) (*User, error)
}

// Guard is the authentication middleware. It resolves the session token
// from the Authorization header or the jwt cookie, verifies it, loads the
// user and places them on the request context.
type Guard struct {
	tokens *TokenService
	users  UserSource
}

// NewGuard creates a Guard.
func NewGuard(tokens *TokenService, users UserSource) *Guard {
	return &Guard{tokens: tokens, users: users}
}

// tokenFromRequest prefers a Bearer Authorization header and falls back
// to the jwt cookie set at login.
func tokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie("jwt"); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireUser rejects unauthenticated requests with 401 and otherwise
// forwards the request with the user attached to the context.
func (g *Guard) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := tokenFromRequest(r)
		if tokenString == "" {
			WriteError(w, r, apperror.NewAuthError("you are not logged in! please log in to get access", nil))
			return
		}

		claims, err := g.tokens.Verify(tokenString)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				WriteError(w, r, apperror.NewAuthError("your token has expired! please log in again", err))
				return
			}
			WriteError(w, r, apperror.NewAuthError("invalid token! please log in again", err))
			return
		}

		user, err := g.users.UserByID(r.Context(), claims.UserID)
		if err != nil {
			if apperror.IsNotFound(err) {
				WriteError(w, r, apperror.NewAuthError("the user belonging to this token no longer exists", nil))
				return
			}
			WriteError(w, r, err)
			return
		}

		if user.PasswordChangedAfter(claims.IssuedAt) {
			WriteError(w, r, apperror.NewAuthError("user recently changed password! please log in again", nil))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireAdmin rejects non-admin users with 403. It must run after
// RequireUser.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			WriteError(w, r, apperror.NewAuthError("you are not logged in! please log in to get access", nil))
			return
		}
		if !user.IsAdmin {
			WriteError(w, r, apperror.NewUnauthorizedError("you do not have permission to perform this action", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}
