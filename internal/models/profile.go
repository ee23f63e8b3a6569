package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the per-user record created on first authentication
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Credential is the auth-service view of an identity. It never leaves the auth layer.
type Credential struct {
	UserID       uuid.UUID
	Email        string
	PasswordHash *string
	ProviderID   *string
	CreatedAt    time.Time
}

// SessionClaims are the claims carried by an issued session token
type SessionClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Exp   int64  `json:"exp"`
	Iat   int64  `json:"iat"`
	Iss   string `json:"iss"`
}
