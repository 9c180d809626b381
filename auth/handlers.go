// Package auth implements accounts and sessions: signup, login, the
// password lifecycle, token verification and the access guard middleware.
// This file is the HTTP layer; business logic lives in service.go.
package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/user/bookmarket-go/apperror"
)

// Handlers wraps the AuthService with HTTP handlers.
type Handlers struct {
	service   *AuthService
	cookieTTL time.Duration
}

// NewHandlers creates a Handlers instance.
func NewHandlers(service *AuthService, cookieTTL time.Duration) *Handlers {
	return &Handlers{service: service, cookieTTL: cookieTTL}
}

// successEnvelope is the uniform success body: {"status":"success","data":...}.
type successEnvelope struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Error().Err(err).Msg("failed to encode response body")
		}
	}
}

// WriteJSON sends data wrapped in the success envelope.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, successEnvelope{Status: "success", Data: data})
}

// WriteError converts any error into the standardized error envelope.
// Non-AppError values are wrapped as internal errors, so their details are
// logged but never leak into the response body.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok {
		appErr = apperror.NewInternalError("an unexpected error occurred", err)
	}
	if appErr.StatusCode() >= http.StatusInternalServerError {
		log.Error().Err(appErr).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	} else {
		log.Debug().Err(appErr).Str("method", r.Method).Str("path", r.URL.Path).Msg("request rejected")
	}
	writeJSON(w, appErr.StatusCode(), appErr.ToResponse())
}

// writeAuthPayload sends the session token both in the body and as an
// httpOnly cookie, alongside the sanitized user.
func (h *Handlers) writeAuthPayload(w http.ResponseWriter, status int, user *User, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.cookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	payload := AuthPayload{Status: "success", Token: token}
	payload.Data.User = user
	writeJSON(w, status, payload)
}

// HandleSignup creates an account and logs the new user in.
func (h *Handlers) HandleSignup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		user, token, err := h.service.Signup(r.Context(), req)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		h.writeAuthPayload(w, http.StatusCreated, user, token)
	}
}

// HandleLogin authenticates by email or mobile number.
func (h *Handlers) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		user, token, err := h.service.Login(r.Context(), req)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		h.writeAuthPayload(w, http.StatusOK, user, token)
	}
}

// HandleLogout overwrites the jwt cookie with a short-lived dummy value.
// Stateless tokens cannot be revoked server-side, so the logout is purely
// a cookie wipe, matching what browser clients need.
func (h *Handlers) HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     "jwt",
			Value:    "loggedout",
			Path:     "/",
			Expires:  time.Now().Add(10 * time.Second),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		WriteJSON(w, http.StatusOK, nil)
	}
}

// HandleChangePassword rotates the password of the logged-in user and
// issues a fresh session.
func (h *Handlers) HandleChangePassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			WriteError(w, r, apperror.NewAuthError("you are not logged in! please log in to get access", nil))
			return
		}

		var req ChangePasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		updated, token, err := h.service.ChangePassword(r.Context(), user, req)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		h.writeAuthPayload(w, http.StatusOK, updated, token)
	}
}

// HandleForgotPassword starts the reset flow by mailing a reset link.
func (h *Handlers) HandleForgotPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ForgotPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		resetURLBase := scheme + "://" + r.Host + "/user/resetPassword"

		if err := h.service.ForgotPassword(r.Context(), req, resetURLBase); err != nil {
			WriteError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"message": "token sent to email"})
	}
}

// HandleResetPassword consumes a mailed reset token.
func (h *Handlers) HandleResetPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plainToken := chi.URLParam(r, "token")
		if plainToken == "" {
			WriteError(w, r, apperror.NewBadRequestError("reset token is required", nil))
			return
		}

		var req ResetPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		user, token, err := h.service.ResetPassword(r.Context(), plainToken, req)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		h.writeAuthPayload(w, http.StatusOK, user, token)
	}
}
