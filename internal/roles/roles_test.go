package roles

import "testing"

func TestIsValidRole(t *testing.T) {
	for _, role := range ValidRoles() {
		if !IsValidRole(role) {
			t.Fatalf("expected %s to be valid", role)
		}
	}
	if IsValidRole("superuser") || IsValidRole("") {
		t.Fatalf("unknown roles must be invalid")
	}
}

func TestHasPermission(t *testing.T) {
	cases := []struct {
		user, required string
		want           bool
	}{
		{Admin, Admin, true},
		{Admin, Farmer, true},
		{Agronomist, Farmer, true},
		{Agronomist, Admin, false},
		{Farmer, Agronomist, false},
		{"superuser", Farmer, false},
		{Farmer, "superuser", false},
	}
	for _, tc := range cases {
		if got := HasPermission(tc.user, tc.required); got != tc.want {
			t.Fatalf("HasPermission(%s, %s) = %v, want %v", tc.user, tc.required, got, tc.want)
		}
	}
}

func TestCanAssignRole(t *testing.T) {
	if !CanAssignRole(Admin, Admin) || !CanAssignRole(Agronomist, Farmer) {
		t.Fatalf("expected assignment up to own level to be allowed")
	}
	if CanAssignRole(Farmer, Agronomist) || CanAssignRole(Farmer, "superuser") {
		t.Fatalf("expected assignment above own level to be denied")
	}
}
