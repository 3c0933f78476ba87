// Package tab stores user-defined tabs and their entity assignments, and
// partitions a snapshot into a room-grouped view for a selected tab.
//
// The pseudo-tab "All" is never stored. It shows every controllable
// entity and always comes first in the tab strip.
package tab
