package tab

import (
	"github.com/nerrad567/gray-logic-remote/internal/entity"
)

// Group is the entities of one room, in id order.
type Group struct {
	Room     string          `json:"room"`
	Entities []entity.Entity `json:"entities"`
}

// View is a snapshot partitioned for one tab.
type View struct {
	Tab    string  `json:"tab"`
	Groups []Group `json:"groups"`
}

// Len returns the number of entities across all groups.
func (v View) Len() int {
	n := 0
	for _, g := range v.Groups {
		n += len(g.Entities)
	}
	return n
}

// Entities flattens the view in group order.
func (v View) Entities() []entity.Entity {
	out := make([]entity.Entity, 0, v.Len())
	for _, g := range v.Groups {
		out = append(out, g.Entities...)
	}
	return out
}

// Filter selects the entities shown under the tab named selected and
// groups them by room.
//
//   - "All" keeps controllable entities only.
//   - A known tab name keeps exactly the entities assigned to it,
//     controllable or not. Assigned ids missing from the snapshot are
//     skipped.
//   - An unknown name (a tab renamed or deleted since it was selected)
//     falls back to entities whose room equals the name.
//
// Groups appear in the order their room is first seen in the id-sorted
// snapshot, and entities keep snapshot order within a group.
func Filter(snap entity.Snapshot, tabs []WithEntities, selected string) View {
	keep := matcher(tabs, selected)

	view := View{Tab: selected, Groups: []Group{}}
	index := make(map[string]int)
	for e := range snap.All {
		if !keep(e) {
			continue
		}
		room := e.Room()
		i, ok := index[room]
		if !ok {
			i = len(view.Groups)
			index[room] = i
			view.Groups = append(view.Groups, Group{Room: room})
		}
		view.Groups[i].Entities = append(view.Groups[i].Entities, e)
	}
	return view
}

func matcher(tabs []WithEntities, selected string) func(entity.Entity) bool {
	if selected == All {
		return entity.Entity.IsControllable
	}

	for _, t := range tabs {
		if t.Name != selected {
			continue
		}
		assigned := make(map[string]struct{}, len(t.EntityIDs))
		for _, id := range t.EntityIDs {
			assigned[id] = struct{}{}
		}
		return func(e entity.Entity) bool {
			_, ok := assigned[e.ID]
			return ok
		}
	}

	return func(e entity.Entity) bool {
		return e.Room() == selected
	}
}
