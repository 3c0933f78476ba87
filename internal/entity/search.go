package entity

import "strings"

// Search returns the entities whose display name, id or room contains
// query, case-insensitively. An empty query matches everything.
func Search(entities []Entity, query string) []Entity {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return entities
	}

	var out []Entity
	for _, e := range entities {
		if strings.Contains(strings.ToLower(e.DisplayName()), q) ||
			strings.Contains(strings.ToLower(e.ID), q) ||
			strings.Contains(strings.ToLower(e.Room()), q) {
			out = append(out, e)
		}
	}
	return out
}

// Controllable keeps only entities on the actuation allow-list.
func Controllable(entities []Entity) []Entity {
	var out []Entity
	for _, e := range entities {
		if e.IsControllable() {
			out = append(out, e)
		}
	}
	return out
}
