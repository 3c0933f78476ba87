package tab

import "errors"

var (
	// ErrTabNotFound is returned when a tab ID does not exist.
	ErrTabNotFound = errors.New("tab: not found")

	// ErrInvalidName is returned for an empty, too long or reserved tab name.
	ErrInvalidName = errors.New("tab: invalid name")

	// ErrDuplicateName is returned when a profile already has a tab with the name.
	ErrDuplicateName = errors.New("tab: duplicate name")

	// ErrProfileNotFound is returned when creating a tab for an unknown profile.
	ErrProfileNotFound = errors.New("tab: profile not found")
)
