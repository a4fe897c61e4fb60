package roles_test

import (
	"testing"

	"github.com/siaptugas/siaptugas/internal/roles"
	_ "github.com/siaptugas/siaptugas/testing"
)

func TestParseIsCaseInsensitive(t *testing.T) {
	cases := map[string]roles.Role{
		"Staff":       roles.RoleStaff,
		"staff":       roles.RoleStaff,
		"KASUBID":     roles.RoleKasubid,
		"Kabid":       roles.RoleKabid,
		" pimpinan ":  roles.RolePimpinan,
		"Admin":       roles.RoleAdmin,
		"superadmin":  roles.RoleSuperadmin,
		"SuperAdmin":  roles.RoleSuperadmin,
		"":            roles.RoleUnknown,
		"koordinator": roles.RoleUnknown,
	}
	for label, want := range cases {
		if got := roles.Parse(label); got != want {
			t.Fatalf("Parse(%q) = %q, want %q", label, got, want)
		}
	}
}

func TestCapabilitiesFailClosed(t *testing.T) {
	caps := roles.RoleUnknown.Capabilities()
	if caps.CanCreateTasks || caps.CanApprove || caps.IsSuperAuthority {
		t.Fatalf("unknown role must carry no capabilities, got %+v", caps)
	}
	caps = roles.RoleStaff.Capabilities()
	if caps.CanCreateTasks || caps.CanApprove || caps.IsSuperAuthority {
		t.Fatalf("staff must carry no capabilities, got %+v", caps)
	}
}

func TestApproverRoles(t *testing.T) {
	for _, r := range []roles.Role{roles.RoleKasubid, roles.RoleKabid, roles.RolePimpinan, roles.RoleAdmin, roles.RoleSuperadmin} {
		caps := r.Capabilities()
		if !caps.CanCreateTasks || !caps.CanApprove {
			t.Fatalf("%s should create and approve, got %+v", r, caps)
		}
	}
}

func TestSuperAuthorityRoles(t *testing.T) {
	if !roles.RoleAdmin.Capabilities().IsSuperAuthority {
		t.Fatalf("admin should be super authority")
	}
	if !roles.RoleSuperadmin.Capabilities().IsSuperAuthority {
		t.Fatalf("superadmin should be super authority")
	}
	if roles.RoleKabid.Capabilities().IsSuperAuthority {
		t.Fatalf("kabid must not be super authority")
	}
}
