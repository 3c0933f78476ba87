// Package api exposes the synchronisation engine over a local HTTP API
// and a WebSocket event stream.
//
// All routes live under /api/v1. Everything except /health requires a
// bearer token issued by the auth package; the token's role gates
// mutating routes. Engine events (snapshot.updated, entity.updated,
// sync.error, reconcile.completed) are pushed to WebSocket clients.
// A stream opens with the current snapshot; clients may then narrow it
// by event type and entity id with subscribe/unsubscribe frames.
//
// Gateway failures are reported with the error kind as the response
// code: no_active_configuration is 409, unreachable is 504, and the other
// gateway kinds are 502.
package api
