// Package roles is the single normalization point for role labels.
// Every authorization decision in the engine goes through Capabilities.
package roles

import "strings"

// Role is the closed set of role labels used across the organisation.
type Role string

const (
	RoleUnknown    Role = ""
	RoleStaff      Role = "staff"
	RoleKasubid    Role = "kasubid"
	RoleKabid      Role = "kabid"
	RolePimpinan   Role = "pimpinan"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// Capabilities describes what a role is allowed to do.
type Capabilities struct {
	CanCreateTasks   bool
	CanApprove       bool
	IsSuperAuthority bool
}

// Parse normalizes a stored role label. Source data mixes casing
// ("Staff", "Kasubid", "superadmin"), so comparison is case-insensitive.
// Unknown labels map to RoleUnknown and carry no capabilities.
func Parse(label string) Role {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "staff":
		return RoleStaff
	case "kasubid":
		return RoleKasubid
	case "kabid":
		return RoleKabid
	case "pimpinan":
		return RolePimpinan
	case "admin":
		return RoleAdmin
	case "superadmin":
		return RoleSuperadmin
	default:
		return RoleUnknown
	}
}

// Capabilities resolves a role to its capability flags. Fails closed:
// RoleUnknown yields the zero Capabilities.
func (r Role) Capabilities() Capabilities {
	switch r {
	case RoleKasubid, RoleKabid, RolePimpinan:
		return Capabilities{CanCreateTasks: true, CanApprove: true}
	case RoleAdmin, RoleSuperadmin:
		return Capabilities{CanCreateTasks: true, CanApprove: true, IsSuperAuthority: true}
	default:
		return Capabilities{}
	}
}

// Valid reports whether the role belongs to the enumerated set.
func (r Role) Valid() bool {
	return r != RoleUnknown
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}
