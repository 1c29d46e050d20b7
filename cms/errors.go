package cms

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNilFetchClient   = errors.New("cms: fetch client is nil")
	ErrNilCache         = errors.New("cms: query client is nil")
	ErrNoSession        = errors.New("cms: no session configured")
	ErrInvalidInput     = errors.New("cms: invalid input")
	ErrUnknownResource  = errors.New("cms: unknown resource")
	ErrEmptyLoginResult = errors.New("cms: login returned no token")
)

// FieldError describes one rejected field.
type FieldError struct {
	// Field is the JSON name of the field.
	Field string

	// Rule is the failed validation tag, e.g. "required" or "email".
	Rule string

	// Param is the tag parameter, e.g. "6" for min=6.
	Param string
}

func (f FieldError) String() string {
	switch f.Rule {
	case "required":
		return f.Field + " is required"
	case "email":
		return f.Field + " must be a valid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", f.Field, f.Param)
	case "min", "max", "gt":
		return fmt.Sprintf("%s fails %s=%s", f.Field, f.Rule, f.Param)
	default:
		return fmt.Sprintf("%s is invalid (%s)", f.Field, f.Rule)
	}
}

// ValidationError is returned before any request is sent when an input
// fails its field rules.
type ValidationError struct {
	// Type is the Go type that failed, e.g. "Job".
	Type   string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.String()
	}
	return fmt.Sprintf("cms: invalid %s: %s", e.Type, strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Has reports whether field failed any rule.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}
