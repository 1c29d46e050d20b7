package auth

import "time"

// Identity is the logged in principal as described by its token claims.
type Identity struct {
	// UserID is the backend user id (user_id claim, falling back to sub).
	UserID string

	// Username is the display name, if the token carries one.
	Username string

	// Email is the account email, if the token carries one.
	Email string

	// Role is the identity's position in the role hierarchy.
	Role Role

	// Claims contains the raw claims from the token.
	Claims map[string]any

	// ExpiresAt is when the token expires. Zero means no expiry.
	ExpiresAt time.Time

	// IssuedAt is when the token was issued.
	IssuedAt time.Time
}

// HasRole reports whether the identity holds exactly role.
func (id *Identity) HasRole(role Role) bool {
	if id == nil {
		return false
	}
	return id.Role == role
}

// HasPermission reports whether the identity's role is at least one of the
// required roles. With no roles given it reports whether the identity is
// known at all.
func (id *Identity) HasPermission(required ...Role) bool {
	if id == nil || !id.Role.Valid() {
		return false
	}
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if id.Role.AtLeast(r) {
			return true
		}
	}
	return false
}

// IsExpired reports whether the identity has expired at now.
func (id *Identity) IsExpired(now time.Time) bool {
	if id == nil || id.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(id.ExpiresAt)
}

// Name returns the best human readable name for the identity.
func (id *Identity) Name() string {
	switch {
	case id == nil:
		return ""
	case id.Username != "":
		return id.Username
	case id.Email != "":
		return id.Email
	default:
		return id.UserID
	}
}

func (id *Identity) clone() *Identity {
	if id == nil {
		return nil
	}
	cp := *id
	if id.Claims != nil {
		cp.Claims = make(map[string]any, len(id.Claims))
		for k, v := range id.Claims {
			cp.Claims[k] = v
		}
	}
	return &cp
}
