// Package dashboard is a terminal dashboard over the sync engine.
//
// It shows the tab strip of the active profile, the entities of the
// selected tab grouped by room, and the connection in use. Controllable
// entities toggle on enter; every change arrives through engine events,
// so the screen never shows state the engine does not hold.
package dashboard
