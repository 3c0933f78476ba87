package profile

import "errors"

var (
	// ErrProfileNotFound is returned when a profile ID does not exist.
	ErrProfileNotFound = errors.New("profile: not found")

	// ErrNoActiveProfile is returned by GetActive when no profile is active.
	ErrNoActiveProfile = errors.New("profile: no active profile")

	// ErrInvalidProfile is returned when a profile fails validation.
	ErrInvalidProfile = errors.New("profile: invalid")

	// ErrInvalidEntityID is returned when a selection names a malformed entity id.
	ErrInvalidEntityID = errors.New("profile: invalid entity id")
)
