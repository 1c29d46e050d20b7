package query

import (
	"errors"
	"strings"
)

// MaxKindLength is the maximum allowed length for a resource kind.
const MaxKindLength = 128

// Sentinel errors for query operations.
var (
	ErrNilClient    = errors.New("query: client is nil")
	ErrNilFetch     = errors.New("query: fetch function is nil")
	ErrNilRun       = errors.New("query: mutation run function is nil")
	ErrInvalidKey   = errors.New("query: key is invalid")
	ErrKindTooLong  = errors.New("query: kind exceeds max length")
	ErrNotCached    = errors.New("query: no cached data for key")
	ErrTypeMismatch = errors.New("query: cached data has unexpected type")
)

// ValidateKind checks if a resource kind is usable as the head of a Key.
func ValidateKind(kind string) error {
	if kind == "" || strings.TrimSpace(kind) == "" {
		return ErrInvalidKey
	}
	if len(kind) > MaxKindLength {
		return ErrKindTooLong
	}
	// Reject kinds with newlines or carriage returns
	if strings.ContainsAny(kind, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
