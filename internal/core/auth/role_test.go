package auth

import (
	"reflect"
	"testing"
)

func TestNormaliseRole(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"super admin", "SUPER-ADMIN"},
		{"SUPERADMIN", "SUPER-ADMIN"},
		{"super_admin", "SUPER-ADMIN"},
		{"superadmin", "SUPER-ADMIN"},
		{"Employee", "EMPLOYEE"},
		{"  manager ", "MANAGER"},
		{"attendance team", "ATTENDANCE-TEAM"},
		{"  ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormaliseRole(tt.in); got != tt.want {
			t.Errorf("NormaliseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormaliseRoles(t *testing.T) {
	got := NormaliseRoles([]string{"manager", "ADMIN", " ", "Manager", "super admin"})
	want := []string{"MANAGER", "ADMIN", "SUPER-ADMIN"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormaliseRoles() = %v, want %v", got, want)
	}
}

func TestValidRoleName(t *testing.T) {
	for _, ok := range []string{"ADMIN", "SUPER-ADMIN", "TEAM-2"} {
		if !ValidRoleName(ok) {
			t.Errorf("ValidRoleName(%q) = false", ok)
		}
	}
	for _, bad := range []string{"", "-ADMIN", "ADMIN!", "admin", "A B"} {
		if ValidRoleName(bad) {
			t.Errorf("ValidRoleName(%q) = true", bad)
		}
	}
}

func TestHasAnyRole(t *testing.T) {
	if !HasAnyRole([]string{"EMPLOYEE", "ADMIN"}, []string{"SUPER-ADMIN", "ADMIN"}) {
		t.Error("expected intersection")
	}
	if HasAnyRole([]string{"EMPLOYEE"}, []string{"ADMIN"}) {
		t.Error("unexpected intersection")
	}
	if HasAnyRole([]string{"ADMIN"}, nil) {
		t.Error("empty allow-list should deny")
	}
}
