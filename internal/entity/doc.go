// Package entity models the gateway's entities and the ordered snapshot
// the rest of the client works from.
//
// An entity is identified by its "domain.slug" id. Everything else
// (display name, room, whether it can be actuated) is derived from the
// id and the attribute bag the gateway returns.
//
// Snapshots are immutable values sorted by id. Patch returns a new
// snapshot, so a snapshot handed to a reader never changes underneath it.
package entity
