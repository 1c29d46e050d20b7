package auth

import (
	"context"
	"fmt"
	"strings"
)

// Authorizer decides whether a subject may act on a resource kind before a
// request is sent.
type Authorizer interface {
	// Authorize returns nil when allowed. Denials satisfy
	// errors.Is(err, ErrForbidden).
	Authorize(ctx context.Context, req *AuthzRequest) error

	// Name identifies the authorizer in logs.
	Name() string
}

// AuthzRequest asks whether Subject may perform Action on Resource.
type AuthzRequest struct {
	Subject  *Identity // nil when logged out
	Resource string    // resource kind, e.g. "users"
	Action   string    // one of the Action constants
}

// AuthzError is a denied AuthzRequest.
type AuthzError struct {
	Resource string
	Action   string

	// Have is the subject's role; RoleNone when logged out.
	Have Role
	// Need is the lowest role that is allowed.
	Need Role

	// Cause is ErrNotLoggedIn when there was no subject.
	Cause error
}

func (e *AuthzError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: ", e.Action, e.Resource)
	if e.Cause != nil {
		fmt.Fprintf(&b, "%v, ", e.Cause)
	} else {
		fmt.Fprintf(&b, "role %s, ", e.Have)
	}
	fmt.Fprintf(&b, "needs %s", e.Need)
	return b.String()
}

func (e *AuthzError) Unwrap() error { return e.Cause }

// Is makes every AuthzError match ErrForbidden.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, req *AuthzRequest) error

func (f AuthorizerFunc) Authorize(ctx context.Context, req *AuthzRequest) error {
	return f(ctx, req)
}

func (f AuthorizerFunc) Name() string { return "func" }
