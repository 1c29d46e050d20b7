package auth

import (
	"testing"
	"time"
)

func TestIdentity_HasPermission(t *testing.T) {
	tests := []struct {
		name     string
		identity *Identity
		required []Role
		want     bool
	}{
		{
			name:     "nil identity",
			identity: nil,
			required: []Role{RoleUser},
			want:     false,
		},
		{
			name:     "unknown role",
			identity: &Identity{Role: "editor"},
			required: []Role{RoleUser},
			want:     false,
		},
		{
			name:     "exact role",
			identity: &Identity{Role: RoleTechnical},
			required: []Role{RoleTechnical},
			want:     true,
		},
		{
			name:     "higher role",
			identity: &Identity{Role: RoleAdmin},
			required: []Role{RoleTechnical},
			want:     true,
		},
		{
			name:     "lower role",
			identity: &Identity{Role: RoleUser},
			required: []Role{RoleTechnical},
			want:     false,
		},
		{
			name:     "any of several",
			identity: &Identity{Role: RoleTechnical},
			required: []Role{RoleAdmin, RoleTechnical},
			want:     true,
		},
		{
			name:     "no requirement",
			identity: &Identity{Role: RoleUser},
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.identity.HasPermission(tt.required...); got != tt.want {
				t.Errorf("Identity.HasPermission(%v) = %v, want %v", tt.required, got, tt.want)
			}
		})
	}
}

func TestIdentity_HasRole(t *testing.T) {
	id := &Identity{Role: RoleAdmin}
	if !id.HasRole(RoleAdmin) {
		t.Error("HasRole(admin) = false, want true")
	}
	if id.HasRole(RoleTechnical) {
		t.Error("HasRole(technical) = true, want false; HasRole is exact")
	}

	var nilID *Identity
	if nilID.HasRole(RoleAdmin) {
		t.Error("nil HasRole() = true, want false")
	}
}

func TestIdentity_IsExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"no expiry", time.Time{}, false},
		{"future", now.Add(time.Minute), false},
		{"exactly now", now, true},
		{"past", now.Add(-time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := &Identity{ExpiresAt: tt.expiresAt}
			if got := id.IsExpired(now); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIdentity_Name(t *testing.T) {
	tests := []struct {
		id   *Identity
		want string
	}{
		{&Identity{UserID: "7", Username: "ada", Email: "ada@example.org"}, "ada"},
		{&Identity{UserID: "7", Email: "ada@example.org"}, "ada@example.org"},
		{&Identity{UserID: "7"}, "7"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := tt.id.Name(); got != tt.want {
			t.Errorf("Name() = %q, want %q", got, tt.want)
		}
	}
}

func TestIdentity_CloneIsIndependent(t *testing.T) {
	id := &Identity{UserID: "1", Claims: map[string]any{"role": "admin"}}
	cp := id.clone()
	cp.Claims["role"] = "user"
	cp.UserID = "2"

	if id.Claims["role"] != "admin" || id.UserID != "1" {
		t.Errorf("clone shares state with original: %+v", id)
	}
}
