// Package session binds the active gateway profile to a gateway client.
//
// The Selector is the single place that decides which base URL the rest
// of the program talks to. It re-reads the profile store on every call to
// Current, so activating a different profile elsewhere (the API, another
// process sharing the database) is picked up on the next request without
// any cache invalidation.
//
// Both URLs of a profile share one token. Switching URL never touches
// credentials.
package session
