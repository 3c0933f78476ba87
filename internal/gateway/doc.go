// Package gateway is the HTTP client for a Home Assistant style REST gateway.
//
// A Client is bound to one base URL and one bearer token. Each call is a
// single round trip: failures are classified into the package's sentinel
// errors and never retried here. Retry policy, where there is one, lives
// in the statesync engine.
//
// Wire contract:
//
//	GET  /api/states                  -> []entity
//	GET  /api/states/{entity_id}      -> entity
//	POST /api/services/{domain}/{svc} <- {"entity_id": ..., params...}
//	GET  /api/history/period/{start}  -> [][]state
package gateway
