package models

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"ddash-backend/pkg/apperrors"

	"github.com/golang-jwt/jwt/v5"
)

const (
	MinPasswordLength = 5
	maxNameLength     = 255
)

// User represents a user in the system
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // Never return password in JSON
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	DisplayName  string    `json:"display_name,omitempty" db:"display_name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// NormalizeEmail lower-cases and trims an address; emails are compared case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRegisterRequest represents the request payload for user registration
type UserRegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DisplayName string `json:"display_name"`
}

// Validate checks the signup payload before any storage access.
func (r *UserRegisterRequest) Validate() error {
	email := NormalizeEmail(r.Email)
	if email == "" {
		return apperrors.Validation("email", "email is required")
	}
	if utf8.RuneCountInString(email) > maxNameLength {
		return apperrors.Validation("email", "email must be at most 255 characters")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return apperrors.Validation("email", "email is not a valid address")
	}
	if utf8.RuneCountInString(r.Password) < MinPasswordLength {
		return apperrors.Validation("password", "password must be at least 5 characters")
	}
	if strings.TrimSpace(r.FirstName) == "" {
		return apperrors.Validation("first_name", "first_name is required")
	}
	if strings.TrimSpace(r.LastName) == "" {
		return apperrors.Validation("last_name", "last_name is required")
	}
	if utf8.RuneCountInString(r.FirstName) > maxNameLength || utf8.RuneCountInString(r.LastName) > maxNameLength || utf8.RuneCountInString(r.DisplayName) > maxNameLength {
		return apperrors.Validation("name", "names must be at most 255 characters")
	}
	return nil
}

// UserLoginRequest represents the request payload for user login
type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse represents the response payload for token issue/refresh
type TokenResponse struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// RefreshTokenRequest represents the request payload for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims represents the JWT token claims
type TokenClaims struct {
	ID     string `json:"jti"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Type   string `json:"type"` // "access" or "refresh"
	Exp    int64  `json:"exp"`
	Iat    int64  `json:"iat"`
}

// GetExpirationTime implements jwt.Claims interface
func (c *TokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Exp, 0)), nil
}

// GetIssuedAt implements jwt.Claims interface
func (c *TokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Iat, 0)), nil
}

// GetNotBefore implements jwt.Claims interface
func (c *TokenClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims interface
func (c *TokenClaims) GetIssuer() (string, error) {
	return "", nil
}

// GetSubject implements jwt.Claims interface
func (c *TokenClaims) GetSubject() (string, error) {
	return c.UserID, nil
}

// GetAudience implements jwt.Claims interface
func (c *TokenClaims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}

// ExpiresAt returns the expiry as a time value.
func (c *TokenClaims) ExpiresAt() time.Time {
	return time.Unix(c.Exp, 0)
}
