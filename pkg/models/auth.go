package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is the verified end-user carried inside a session token.
type Identity struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
}

type Claims struct {
	UserID   uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() *Identity {
	return &Identity{
		ID:       c.UserID,
		Email:    c.Email,
		Username: c.Username,
	}
}

type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

func (u *User) Identity() *Identity {
	return &Identity{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
	}
}

// APIKey is a machine credential. IsActive is flipped by an external
// revocation process only.
type APIKey struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Key       string    `json:"key" db:"key"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type UsageRecord struct {
	APIKeyID   uuid.UUID `json:"api_key_id" db:"api_key_id"`
	Endpoint   string    `json:"endpoint" db:"endpoint"`
	Date       time.Time `json:"date" db:"date"`
	CallsCount int64     `json:"calls_count" db:"calls_count"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	// max counts runes; the 72-byte bcrypt limit is enforced by the hasher.
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResult struct {
	Token  string    `json:"token"`
	User   *Identity `json:"user"`
	APIKey *APIKey   `json:"api_key,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
