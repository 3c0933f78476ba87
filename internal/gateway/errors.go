package gateway

import (
	"errors"
	"net/http"
)

// Sentinel errors for gateway operations. Every failure returned by this
// package wraps exactly one of them; use errors.Is or KindOf to branch.
var (
	// ErrNoActiveConfiguration means no gateway profile is active, so
	// there is nothing to talk to. This is a normal state, not corruption.
	ErrNoActiveConfiguration = errors.New("gateway: no active configuration")

	// ErrAuthenticationFailed is a 401 or 403 from the gateway.
	ErrAuthenticationFailed = errors.New("gateway: authentication failed")

	// ErrNotFound is a 404, usually a misconfigured base URL or unknown entity.
	ErrNotFound = errors.New("gateway: not found")

	// ErrUnreachable covers DNS, connect and timeout failures.
	ErrUnreachable = errors.New("gateway: unreachable")

	// ErrServerError is any other non-2xx response.
	ErrServerError = errors.New("gateway: server error")

	// ErrMalformedResponse means the body could not be decoded.
	ErrMalformedResponse = errors.New("gateway: malformed response")

	// ErrInvalidURL is returned by NewClient for an unusable base URL.
	ErrInvalidURL = errors.New("gateway: invalid base url")

	// ErrInvalidAction rejects an action that cannot be sent (unknown
	// name, missing parameter, wrong domain).
	ErrInvalidAction = errors.New("gateway: invalid action")
)

// Kind is the stable label of an error class, used in events, API
// responses and metrics.
type Kind string

// Error kinds.
const (
	KindNone                  Kind = ""
	KindNoActiveConfiguration Kind = "no_active_configuration"
	KindAuthenticationFailed  Kind = "authentication_failed"
	KindNotFound              Kind = "not_found"
	KindUnreachable           Kind = "unreachable"
	KindServerError           Kind = "server_error"
	KindMalformedResponse     Kind = "malformed_response"
	KindInvalidRequest        Kind = "invalid_request"
	KindUnknown               Kind = "unknown"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrNoActiveConfiguration, KindNoActiveConfiguration},
	{ErrAuthenticationFailed, KindAuthenticationFailed},
	{ErrNotFound, KindNotFound},
	{ErrUnreachable, KindUnreachable},
	{ErrServerError, KindServerError},
	{ErrMalformedResponse, KindMalformedResponse},
	{ErrInvalidURL, KindInvalidRequest},
	{ErrInvalidAction, KindInvalidRequest},
}

// KindOf classifies err. A nil error is KindNone; an error outside the
// taxonomy is KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// statusError maps a non-2xx status code to its sentinel.
func statusError(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrAuthenticationFailed
	case code == http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrServerError
	}
}
