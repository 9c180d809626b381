package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/bookmarket-go/apperror"
	"github.com/user/bookmarket-go/config"
	"github.com/user/bookmarket-go/mail"
	"github.com/user/bookmarket-go/validation"
)

const bcryptCost = 12

// UserColumns is the canonical select list for scanning a full User row.
// Keep in sync with ScanUser.
const UserColumns = `id, username, email, password, first_name, last_name,
	address, phone_country_code, phone_number, is_admin,
	cart, wishlist, invoices, shelf,
	password_changed_at, created_at`

// AuthService implements signup, login and the password lifecycle.
type AuthService struct {
	pool   *pgxpool.Pool
	tokens *TokenService
	mailer mail.Mailer
	cfg    *config.AuthConfig
}

// NewAuthService creates an AuthService with its collaborators.
func NewAuthService(pool *pgxpool.Pool, tokens *TokenService, mailer mail.Mailer, cfg *config.AuthConfig) *AuthService {
	return &AuthService{pool: pool, tokens: tokens, mailer: mailer, cfg: cfg}
}

// RowScanner abstracts pgx.Row so user scanning can be shared across
// packages and transactions.
type RowScanner interface {
	Scan(dest ...any) error
}

// ScanUser populates a User from a row selected with UserColumns, decoding
// the JSONB collection columns along the way.
func ScanUser(row RowScanner) (*User, error) {
	var (
		u            User
		addressJSON  []byte
		cartJSON     []byte
		wishlistJSON []byte
		invoicesJSON []byte
		shelfJSON    []byte
	)
	err := row.Scan(
		&u.ID, &u.UserName, &u.Email, &u.HashedPassword, &u.FirstName, &u.LastName,
		&addressJSON, &u.Phone.CountryCode, &u.Phone.PhoneNumber, &u.IsAdmin,
		&cartJSON, &wishlistJSON, &invoicesJSON, &shelfJSON,
		&u.PasswordChangedAt, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	for _, field := range []struct {
		raw []byte
		dst any
	}{
		{addressJSON, &u.Address},
		{cartJSON, &u.Cart},
		{wishlistJSON, &u.Wishlist},
		{invoicesJSON, &u.Invoices},
		{shelfJSON, &u.Shelf},
	} {
		if len(field.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(field.raw, field.dst); err != nil {
			return nil, fmt.Errorf("decoding user document column: %w", err)
		}
	}
	return &u, nil
}

// Sanitize clears fields that must never be serialized to clients.
func (u *User) Sanitize() *User {
	u.HashedPassword = ""
	return u
}

// Signup creates an account. Username, email and phone number are each
// checked for prior existence so the caller gets a distinct message per
// field; the unique constraints remain the backstop under races.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*User, string, error) {
	if err := validation.Struct(req); err != nil {
		return nil, "", apperror.NewValidationError(err.Error(), nil)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	checks := []struct {
		query   string
		arg     string
		message string
	}{
		{"SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)", req.UserName, "this username is already taken"},
		{"SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)", email, "an account with this email already exists"},
		{"SELECT EXISTS (SELECT 1 FROM users WHERE phone_number = $1)", req.Phone.PhoneNumber, "an account with this mobile number already exists"},
	}
	for _, c := range checks {
		var exists bool
		if err := s.pool.QueryRow(ctx, c.query, c.arg).Scan(&exists); err != nil {
			return nil, "", apperror.NewDatabaseError("failed to check account uniqueness", err)
		}
		if exists {
			return nil, "", apperror.NewBadRequestError(c.message, nil)
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, "", apperror.NewInternalError("failed to hash password", err)
	}

	addressJSON, err := json.Marshal(req.Address)
	if err != nil {
		return nil, "", apperror.NewInternalError("failed to encode address", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password, first_name, last_name,
			address, phone_country_code, phone_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+UserColumns,
		req.UserName, email, string(hashed), req.FirstName, req.LastName,
		addressJSON, req.Phone.CountryCode, req.Phone.PhoneNumber,
	)
	user, err := ScanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Lost the race against a concurrent signup.
			return nil, "", apperror.NewBadRequestError("an account with these details already exists", err)
		}
		return nil, "", apperror.NewDatabaseError("failed to create user", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", apperror.NewInternalError("failed to issue session token", err)
	}
	log.Info().Int("user_id", user.ID).Str("username", user.UserName).Msg("user signed up")
	return user.Sanitize(), token, nil
}

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// classifyIdentifier decides whether a login identifier is an email or a
// mobile number and returns the matching column. Identifiers that are
// neither are rejected before any lookup.
func classifyIdentifier(identifier string) (column, value string, err error) {
	trimmed := strings.TrimSpace(identifier)
	switch {
	case emailPattern.MatchString(trimmed):
		return "email", strings.ToLower(trimmed), nil
	case phonePattern.MatchString(trimmed):
		return "phone_number", trimmed, nil
	default:
		return "", "", apperror.NewBadRequestError("please provide a valid email or mobile number", nil)
	}
}

// Login authenticates by email or mobile number. A missing user and a
// wrong password produce the same generic failure.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*User, string, error) {
	if err := validation.Struct(req); err != nil {
		return nil, "", apperror.NewValidationError(err.Error(), nil)
	}

	column, value, err := classifyIdentifier(req.Identifier)
	if err != nil {
		return nil, "", err
	}

	row := s.pool.QueryRow(ctx,
		"SELECT "+UserColumns+" FROM users WHERE "+column+" = $1", value)
	user, err := ScanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperror.NewAuthError("incorrect email/mobile number or password", nil)
		}
		return nil, "", apperror.NewDatabaseError("failed to look up user", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)) != nil {
		return nil, "", apperror.NewAuthError("incorrect email/mobile number or password", nil)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", apperror.NewInternalError("failed to issue session token", err)
	}
	return user.Sanitize(), token, nil
}

// UserByID loads a user for the access guard.
func (s *AuthService) UserByID(ctx context.Context, id int) (*User, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+UserColumns+" FROM users WHERE id = $1", id)
	user, err := ScanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFoundError("user not found", nil)
		}
		return nil, apperror.NewDatabaseError("failed to load user", err)
	}
	return user, nil
}

// ChangePassword verifies the current password, stores a fresh hash and
// bumps password_changed_at so earlier tokens stop verifying.
func (s *AuthService) ChangePassword(ctx context.Context, user *User, req ChangePasswordRequest) (*User, string, error) {
	if err := validation.Struct(req); err != nil {
		return nil, "", apperror.NewValidationError(err.Error(), nil)
	}

	var currentHash string
	err := s.pool.QueryRow(ctx, "SELECT password FROM users WHERE id = $1", user.ID).Scan(&currentHash)
	if err != nil {
		return nil, "", apperror.NewDatabaseError("failed to load current password", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(currentHash), []byte(req.PasswordCurrent)) != nil {
		return nil, "", apperror.NewAuthError("your current password is wrong", nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, "", apperror.NewInternalError("failed to hash password", err)
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE users
		SET password = $1, password_changed_at = now()
		WHERE id = $2
		RETURNING `+UserColumns,
		string(hashed), user.ID,
	)
	updated, err := ScanUser(row)
	if err != nil {
		return nil, "", apperror.NewDatabaseError("failed to update password", err)
	}

	token, err := s.tokens.Issue(updated.ID)
	if err != nil {
		return nil, "", apperror.NewInternalError("failed to issue session token", err)
	}
	return updated.Sanitize(), token, nil
}

// ForgotPassword persists a hashed reset token and mails the plain token
// as a reset link. On delivery failure the stored token is left in place:
// the caller may simply request again and the mail is retried with a new
// token.
func (s *AuthService) ForgotPassword(ctx context.Context, req ForgotPasswordRequest, resetURLBase string) error {
	if err := validation.Struct(req); err != nil {
		return apperror.NewValidationError(err.Error(), nil)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var userID int
	err := s.pool.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.NewNotFoundError("there is no user with that email address", nil)
		}
		return apperror.NewDatabaseError("failed to look up user", err)
	}

	plain, hashed, expires, err := s.tokens.IssueResetToken()
	if err != nil {
		return apperror.NewInternalError("failed to generate reset token", err)
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE users SET password_reset_token = $1, password_reset_expires = $2 WHERE id = $3`,
		hashed, expires, userID,
	)
	if err != nil {
		return apperror.NewDatabaseError("failed to store reset token", err)
	}

	resetURL := strings.TrimRight(resetURLBase, "/") + "/" + plain
	body := fmt.Sprintf(
		"Forgot your password? Submit a PATCH request with your new password and passwordConfirm to:\n\n%s\n\nIf you didn't forget your password, please ignore this email. The link is valid for %s.",
		resetURL, s.cfg.ResetTokenTTL,
	)
	if err := s.mailer.Send(email, "Your password reset token", body); err != nil {
		log.Error().Err(err).Str("email", email).Msg("reset mail delivery failed")
		return apperror.NewExternalServiceError("there was an error sending the email. try again later", err)
	}
	return nil
}

// ResetPassword consumes a reset token: a single UPDATE matches the token
// hash and expiry, replaces the password and clears the reset fields, so
// the token cannot be replayed.
func (s *AuthService) ResetPassword(ctx context.Context, plainToken string, req ResetPasswordRequest) (*User, string, error) {
	if err := validation.Struct(req); err != nil {
		return nil, "", apperror.NewValidationError(err.Error(), nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, "", apperror.NewInternalError("failed to hash password", err)
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE users
		SET password = $1,
		    password_changed_at = now(),
		    password_reset_token = NULL,
		    password_reset_expires = NULL
		WHERE password_reset_token = $2 AND password_reset_expires > now()
		RETURNING `+UserColumns,
		string(hashed), HashResetToken(plainToken),
	)
	user, err := ScanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperror.NewBadRequestError("token is invalid or has expired", nil)
		}
		return nil, "", apperror.NewDatabaseError("failed to reset password", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", apperror.NewInternalError("failed to issue session token", err)
	}
	log.Info().Int("user_id", user.ID).Msg("password reset completed")
	return user.Sanitize(), token, nil
}

// PurgeExpiredResetTokens clears reset fields whose expiry has passed.
// Called from the background auditor.
func (s *AuthService) PurgeExpiredResetTokens(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET password_reset_token = NULL, password_reset_expires = NULL
		WHERE password_reset_expires IS NOT NULL AND password_reset_expires <= $1`,
		time.Now(),
	)
	if err != nil {
		return 0, apperror.NewDatabaseError("failed to purge expired reset tokens", err)
	}
	return tag.RowsAffected(), nil
}
