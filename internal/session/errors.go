package session

import "errors"

// ErrNoAlternateURL is returned by SwitchURL when the bound profile has
// only one base URL configured.
var ErrNoAlternateURL = errors.New("session: profile has no alternate url")
