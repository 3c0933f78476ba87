// Package profile stores gateway profiles (a base URL pair plus token) and
// the set of entities the user has chosen for each profile.
//
// At most one profile is active at a time. SetActive clears every active
// flag and sets the new one inside a single transaction. Dependents must
// still treat "no active profile" as a normal state: the store may be
// empty, or the active profile may have been deleted.
package profile
