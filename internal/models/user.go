package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AuthProvider identifies how an account authenticates
type AuthProvider string

const (
	AuthProviderLocal  AuthProvider = "local"
	AuthProviderGoogle AuthProvider = "google"
)

// User represents a registered passenger account
type User struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	Username       string       `json:"username" db:"username"`
	Email          string       `json:"email" db:"email"`
	PasswordHash   *string      `json:"-" db:"password_hash"`
	GoogleID       *string      `json:"-" db:"google_id"`
	AuthProvider   AuthProvider `json:"auth_provider" db:"auth_provider"`
	ProfilePicture *string      `json:"profile_picture,omitempty" db:"profile_picture"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}

// RegisterRequest is the payload for local account registration
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest is the payload for local login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest is the payload for profile updates
type UpdateProfileRequest struct {
	Username       *string `json:"username,omitempty"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
}

// RefreshTokenRequest is the payload for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AuthResponse carries the tokens issued after a successful login
type AuthResponse struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// Validate applies the checks gin binding cannot express
func (r *RegisterRequest) Validate() error {
	if strings.ContainsAny(r.Username, " \t") {
		return errors.New("username must not contain whitespace")
	}
	return nil
}

// UserSummary is the reduced user view embedded in ticket verification results
type UserSummary struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Summary returns the reduced view of the user
func (u *User) Summary() UserSummary {
	return UserSummary{Username: u.Username, Email: u.Email}
}
