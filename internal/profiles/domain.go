package profiles

import (
	"time"

	"github.com/google/uuid"

	"github.com/siaptugas/siaptugas/internal/roles"
)

// Profile represents a principal: an authenticated member of the unit.
type Profile struct {
	ID           uuid.UUID
	FullName     string
	NIP          string
	Email        string
	Role         roles.Role
	Unit         string
	SupervisorID *uuid.UUID
	AvatarURL    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterInput carries data for creating a new principal.
type RegisterInput struct {
	FullName string
	NIP      string
	Email    string
	Password string
}

// SelfUpdateInput carries the fields a principal may edit on their own record.
type SelfUpdateInput struct {
	FullName  string
	NIP       string
	Email     string
	AvatarURL string
}

// AdminUpdateInput extends SelfUpdateInput with super-authority-only fields.
type AdminUpdateInput struct {
	SelfUpdateInput
	Role         string
	Unit         string
	SupervisorID *uuid.UUID
}
