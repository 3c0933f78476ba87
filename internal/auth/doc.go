// Package auth issues and verifies the bearer tokens that guard the
// local HTTP API.
//
// Tokens are HS256 JWTs signed with security.jwt.secret and minted by the
// "graylogic-remote token" command. There are no user accounts: the token
// subject names the client (a dashboard, a script) and its role decides
// what it may do. Verification is signature and expiry only, with no
// database lookup.
//
// Roles are cumulative:
//   - viewer reads snapshots, views, history and the event stream
//   - operator also sends entity actions, refreshes and switches URL
//   - admin also manages profiles, tabs and entity selection
package auth
