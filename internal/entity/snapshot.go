package entity

import (
	"encoding/json"
	"slices"
	"strings"
)

// Snapshot is an id-sorted, immutable list of entities.
// The zero value is an empty snapshot.
type Snapshot struct {
	entities []Entity
}

// NewSnapshot sorts a copy of entities by id. When ids repeat, the last
// occurrence wins.
func NewSnapshot(entities []Entity) Snapshot {
	sorted := slices.Clone(entities)
	slices.SortStableFunc(sorted, func(a, b Entity) int {
		return strings.Compare(a.ID, b.ID)
	})

	// Collapse duplicates, keeping the later element of each run.
	out := sorted[:0]
	for i, e := range sorted {
		if i+1 < len(sorted) && sorted[i+1].ID == e.ID {
			continue
		}
		out = append(out, e)
	}
	return Snapshot{entities: out}
}

// Len returns the number of entities.
func (s Snapshot) Len() int {
	return len(s.entities)
}

// Entities returns a copy of the entities in id order.
func (s Snapshot) Entities() []Entity {
	return slices.Clone(s.entities)
}

// All iterates the entities in id order without copying.
func (s Snapshot) All(yield func(Entity) bool) {
	for _, e := range s.entities {
		if !yield(e) {
			return
		}
	}
}

// Get looks up an entity by id.
func (s Snapshot) Get(id string) (Entity, bool) {
	i, found := s.index(id)
	if !found {
		return Entity{}, false
	}
	return s.entities[i], true
}

// Patch returns a new snapshot with e replacing the entity of the same id,
// or inserted at its sorted position when absent. Other entries are
// untouched and the receiver is not modified.
func (s Snapshot) Patch(e Entity) Snapshot {
	i, found := s.index(e.ID)
	if found {
		next := slices.Clone(s.entities)
		next[i] = e
		return Snapshot{entities: next}
	}

	next := make([]Entity, 0, len(s.entities)+1)
	next = append(next, s.entities[:i]...)
	next = append(next, e)
	next = append(next, s.entities[i:]...)
	return Snapshot{entities: next}
}

func (s Snapshot) index(id string) (int, bool) {
	return slices.BinarySearchFunc(s.entities, id, func(e Entity, target string) int {
		return strings.Compare(e.ID, target)
	})
}

// MarshalJSON encodes the snapshot as a JSON array.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.entities == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.entities)
}

// UnmarshalJSON decodes a JSON array, sorting it by id.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var entities []Entity
	if err := json.Unmarshal(data, &entities); err != nil {
		return err
	}
	*s = NewSnapshot(entities)
	return nil
}
