package auth

import (
	"context"
	"fmt"
	"strings"
)

// Role is a position in the CMS role hierarchy.
type Role string

const (
	RoleNone      Role = ""
	RoleUser      Role = "user"
	RoleTechnical Role = "technical"
	RoleAdmin     Role = "admin"
)

var roleLevels = map[Role]int{
	RoleUser:      1,
	RoleTechnical: 2,
	RoleAdmin:     3,
}

// ParseRole parses a role name, case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return RoleNone, fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Level returns the role's rank: user 1, technical 2, admin 3, otherwise 0.
func (r Role) Level() int {
	return roleLevels[r]
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r.Level() > 0
}

// AtLeast reports whether r ranks at or above other. Everything ranks at
// least RoleNone.
func (r Role) AtLeast(other Role) bool {
	return r.Level() >= other.Level()
}

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

// Common actions.
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// AccessRule is the minimum role per action class for one resource.
// RoleNone means no login is needed.
type AccessRule struct {
	Read  Role
	Write Role
}

// RBACConfig configures the role authorizer.
type RBACConfig struct {
	// Resources maps a resource kind (e.g. "blogs") to its rule.
	Resources map[string]AccessRule

	// Default applies to resources with no explicit rule.
	Default AccessRule
}

// RoleAuthorizer grants access when the subject's role ranks at least the
// resource's minimum role for the action. Any action other than ActionRead
// is a write.
type RoleAuthorizer struct {
	config RBACConfig
}

// NewRoleAuthorizer creates a role authorizer.
func NewRoleAuthorizer(config RBACConfig) *RoleAuthorizer {
	return &RoleAuthorizer{config: config}
}

// Name returns "role".
func (a *RoleAuthorizer) Name() string {
	return "role"
}

// Required returns the minimum role for action on resource.
func (a *RoleAuthorizer) Required(resource, action string) Role {
	rule, ok := a.config.Resources[resource]
	if !ok {
		rule = a.config.Default
	}
	if action == ActionRead {
		return rule.Read
	}
	return rule.Write
}

// Authorize allows the request when the subject's role reaches the rule for
// the resource. A nil subject is only allowed on RoleNone rules.
func (a *RoleAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	need := a.Required(req.Resource, req.Action)
	if need == RoleNone {
		return nil
	}
	deny := &AuthzError{Resource: req.Resource, Action: req.Action, Need: need}
	if req.Subject == nil {
		deny.Cause = ErrNotLoggedIn
		return deny
	}
	if !req.Subject.HasPermission(need) {
		deny.Have = req.Subject.Role
		return deny
	}
	return nil
}

// Ensure RoleAuthorizer implements Authorizer
var _ Authorizer = (*RoleAuthorizer)(nil)
