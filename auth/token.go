package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/user/bookmarket-go/config"
)

var (
	// ErrTokenExpired indicates a structurally valid but expired token.
	ErrTokenExpired = errors.New("token has expired")
	// ErrTokenInvalid indicates a malformed, unsigned or tampered token.
	ErrTokenInvalid = errors.New("token is invalid")
)

// SessionClaims is what a verified session token asserts.
type SessionClaims struct {
	UserID   int
	IssuedAt time.Time
}

// TokenService issues and verifies the two kinds of token the app uses:
// signed JWT session tokens, and opaque single-use password reset tokens.
type TokenService struct {
	secret        []byte
	tokenDuration time.Duration
	resetTokenTTL time.Duration
}

// NewTokenService creates a TokenService from the auth configuration.
func NewTokenService(cfg *config.AuthConfig) *TokenService {
	return &TokenService{
		secret:        []byte(cfg.JWTSecret),
		tokenDuration: cfg.TokenDuration,
		resetTokenTTL: cfg.ResetTokenTTL,
	}
}

// Issue signs a session token for the given user id.
func (s *TokenService) Issue(userID int) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenDuration)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token, returning its claims.
// Expired tokens map to ErrTokenExpired, everything else to ErrTokenInvalid.
func (s *TokenService) Verify(tokenString string) (*SessionClaims, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	sc := &SessionClaims{UserID: userID}
	if claims.IssuedAt != nil {
		sc.IssuedAt = claims.IssuedAt.Time
	}
	return sc, nil
}

// IssueResetToken generates an opaque password reset token. The plain
// token goes to the user by mail; only its SHA-256 digest is stored, so a
// leaked database row cannot be replayed.
func (s *TokenService) IssueResetToken() (plain, hashed string, expires time.Time, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		err = fmt.Errorf("generating reset token: %w", err)
		return
	}
	plain = hex.EncodeToString(buf)
	hashed = HashResetToken(plain)
	expires = time.Now().Add(s.resetTokenTTL)
	return
}

// HashResetToken maps a plain reset token to its stored digest.
func HashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
