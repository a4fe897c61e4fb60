package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/siaptugas/siaptugas/internal/roles"
)

// Credential is the authentication view of a principal.
type Credential struct {
	ID           uuid.UUID
	FullName     string
	Email        string
	PasswordHash string
	Role         roles.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
