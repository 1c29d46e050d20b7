package auth

import (
	"context"
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"user", RoleUser, false},
		{"Technical", RoleTechnical, false},
		{" ADMIN ", RoleAdmin, false},
		{"editor", RoleNone, true},
		{"", RoleNone, true},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseRole(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrUnknownRole) {
			t.Errorf("ParseRole(%q) error = %v, want ErrUnknownRole", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRole_Hierarchy(t *testing.T) {
	if RoleUser.Level() != 1 || RoleTechnical.Level() != 2 || RoleAdmin.Level() != 3 {
		t.Fatalf("levels = %d/%d/%d, want 1/2/3", RoleUser.Level(), RoleTechnical.Level(), RoleAdmin.Level())
	}
	if !RoleAdmin.AtLeast(RoleUser) {
		t.Error("admin should rank at least user")
	}
	if RoleUser.AtLeast(RoleTechnical) {
		t.Error("user should not rank at least technical")
	}
	if !RoleNone.AtLeast(RoleNone) {
		t.Error("none should rank at least none")
	}
	if RoleNone.String() != "none" {
		t.Errorf("RoleNone.String() = %q", RoleNone.String())
	}
}

func newTestAuthorizer() *RoleAuthorizer {
	return NewRoleAuthorizer(RBACConfig{
		Resources: map[string]AccessRule{
			"blogs": {Read: RoleNone, Write: RoleTechnical},
			"users": {Read: RoleAdmin, Write: RoleAdmin},
		},
		Default: AccessRule{Write: RoleAdmin},
	})
}

func TestRoleAuthorizer_Authorize(t *testing.T) {
	authz := newTestAuthorizer()
	tech := &Identity{UserID: "2", Role: RoleTechnical}

	tests := []struct {
		name     string
		subject  *Identity
		resource string
		action   string
		allowed  bool
	}{
		{"public read without login", nil, "blogs", ActionRead, true},
		{"write without login", nil, "blogs", ActionDelete, false},
		{"technical writes blogs", tech, "blogs", ActionCreate, true},
		{"technical cannot list users", tech, "users", ActionRead, false},
		{"admin lists users", &Identity{UserID: "1", Role: RoleAdmin}, "users", ActionRead, true},
		{"user cannot write blogs", &Identity{UserID: "3", Role: RoleUser}, "blogs", ActionUpdate, false},
		{"default rule applies", tech, "badges", ActionDelete, false},
		{"default read is public", nil, "badges", ActionRead, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authz.Authorize(context.Background(), &AuthzRequest{
				Subject:  tt.subject,
				Resource: tt.resource,
				Action:   tt.action,
			})
			if tt.allowed && err != nil {
				t.Fatalf("Authorize() error = %v, want nil", err)
			}
			if !tt.allowed {
				if err == nil {
					t.Fatal("Authorize() = nil, want denial")
				}
				if !errors.Is(err, ErrForbidden) {
					t.Errorf("Authorize() error = %v, want ErrForbidden", err)
				}
				var authzErr *AuthzError
				if !errors.As(err, &authzErr) {
					t.Fatalf("Authorize() error type = %T, want *AuthzError", err)
				}
				if authzErr.Resource != tt.resource || authzErr.Action != tt.action {
					t.Errorf("AuthzError = %+v", authzErr)
				}
			}
		})
	}
}

func TestRoleAuthorizer_NoIdentityWrapsNotLoggedIn(t *testing.T) {
	err := newTestAuthorizer().Authorize(context.Background(), &AuthzRequest{
		Resource: "users",
		Action:   ActionDelete,
	})
	if !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("error = %v, want ErrNotLoggedIn", err)
	}
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

func TestAuthzError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AuthzError
		want string
	}{
		{
			name: "role too low",
			err:  &AuthzError{Resource: "users", Action: ActionDelete, Have: RoleTechnical, Need: RoleAdmin},
			want: "delete users: role technical, needs admin",
		},
		{
			name: "logged out",
			err:  &AuthzError{Resource: "jobs", Action: ActionCreate, Need: RoleTechnical, Cause: ErrNotLoggedIn},
			want: "create jobs: " + ErrNotLoggedIn.Error() + ", needs technical",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRoleAuthorizer_DenialCarriesRoles(t *testing.T) {
	err := newTestAuthorizer().Authorize(context.Background(), &AuthzRequest{
		Subject:  &Identity{UserID: "2", Role: RoleTechnical},
		Resource: "users",
		Action:   ActionRead,
	})
	var authzErr *AuthzError
	if !errors.As(err, &authzErr) {
		t.Fatalf("error = %v, want *AuthzError", err)
	}
	if authzErr.Have != RoleTechnical || authzErr.Need != RoleAdmin {
		t.Errorf("Have/Need = %s/%s, want technical/admin", authzErr.Have, authzErr.Need)
	}
	if errors.Is(err, ErrNotLoggedIn) {
		t.Error("logged in denial should not match ErrNotLoggedIn")
	}
}

func TestAuthorizerFunc(t *testing.T) {
	ctx := context.Background()
	req := &AuthzRequest{Resource: "jobs", Action: ActionDelete}

	deny := AuthorizerFunc(func(_ context.Context, r *AuthzRequest) error {
		return &AuthzError{Resource: r.Resource, Action: r.Action, Need: RoleAdmin}
	})
	if deny.Name() != "func" {
		t.Errorf("Name() = %q, want func", deny.Name())
	}
	if err := deny.Authorize(ctx, req); !errors.Is(err, ErrForbidden) {
		t.Errorf("AuthorizerFunc error = %v, want ErrForbidden", err)
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if IdentityFromContext(ctx) != nil || UserIDFromContext(ctx) != "" {
		t.Fatal("empty context should carry no identity")
	}
	id := &Identity{UserID: "7", Role: RoleUser}
	ctx = WithIdentity(ctx, id)
	if IdentityFromContext(ctx) != id {
		t.Error("IdentityFromContext() did not return the attached identity")
	}
	if got := UserIDFromContext(ctx); got != "7" {
		t.Errorf("UserIDFromContext() = %q, want 7", got)
	}
}
