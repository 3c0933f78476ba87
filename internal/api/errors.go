package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-remote/internal/gateway"
	"github.com/nerrad567/gray-logic-remote/internal/history"
	"github.com/nerrad567/gray-logic-remote/internal/profile"
	"github.com/nerrad567/gray-logic-remote/internal/session"
	"github.com/nerrad567/gray-logic-remote/internal/tab"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes. Gateway failures use the gateway.Kind label as code.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
	ErrCodeTimeout      = "timeout"
)

// gatewayStatus maps gateway error kinds to HTTP statuses.
var gatewayStatus = map[gateway.Kind]int{
	gateway.KindNoActiveConfiguration: http.StatusConflict,
	gateway.KindAuthenticationFailed:  http.StatusBadGateway,
	gateway.KindNotFound:              http.StatusBadGateway,
	gateway.KindUnreachable:           http.StatusGatewayTimeout,
	gateway.KindServerError:           http.StatusBadGateway,
	gateway.KindMalformedResponse:     http.StatusBadGateway,
	gateway.KindInvalidRequest:        http.StatusBadRequest,
}

// classify maps an error from the stores, engine or gateway to a status
// and code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, profile.ErrProfileNotFound),
		errors.Is(err, tab.ErrTabNotFound),
		errors.Is(err, tab.ErrProfileNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, profile.ErrInvalidProfile),
		errors.Is(err, profile.ErrInvalidEntityID),
		errors.Is(err, tab.ErrInvalidName),
		errors.Is(err, history.ErrInvalidWindow):
		return http.StatusBadRequest, ErrCodeValidation
	case errors.Is(err, tab.ErrDuplicateName),
		errors.Is(err, session.ErrNoAlternateURL):
		return http.StatusConflict, ErrCodeConflict
	}

	if kind := gateway.KindOf(err); kind != gateway.KindUnknown {
		if status, ok := gatewayStatus[kind]; ok {
			return status, string(kind)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, ErrCodeTimeout
	}
	return http.StatusInternalServerError, ErrCodeInternal
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeFailure classifies err and writes it. Internal errors are logged
// and their detail hidden from the client.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "internal server error")
		return
	}
	writeError(w, status, code, err.Error())
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// decodeJSON decodes the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
