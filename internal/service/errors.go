package service

import (
	"errors"
	"fmt"
)

// Lifecycle failures. Match with errors.Is; returned errors may wrap these
// with detail.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrAlreadyAssigned    = errors.New("ticket is already assigned")
	ErrAlreadyUsed        = errors.New("ticket has already been used")
	ErrEventExpired       = errors.New("event has already taken place")
	ErrRequiresAssignment = errors.New("ticket must be assigned before it can be validated")
	ErrStoreUnavailable   = errors.New("ticket store unavailable")
)

// ErrCodeSpaceExhausted is returned when every generated code collided.
var ErrCodeSpaceExhausted = fmt.Errorf("%w: no unique ticket code could be allocated", ErrInvalidArgument)

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Reason returns a stable snake_case name for err, "ok" for nil and
// "internal" for anything outside the taxonomy.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrAlreadyAssigned):
		return "already_assigned"
	case errors.Is(err, ErrAlreadyUsed):
		return "already_used"
	case errors.Is(err, ErrEventExpired):
		return "event_expired"
	case errors.Is(err, ErrRequiresAssignment):
		return "requires_assignment"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}
