package health

import "errors"

var (
	// ErrCheckTimeout indicates a health check did not finish in time.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates a checker was not found.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrBackendStatus indicates the backend answered with a status other
	// than "ok".
	ErrBackendStatus = errors.New("health: backend reported not ok")

	// ErrEntriesFailing indicates watched cache entries are in error state.
	ErrEntriesFailing = errors.New("health: cached queries failing")
)
