package tab

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// All is the name of the built-in tab.
const All = "All"

const maxNameLength = 50

// Tab is a named, ordered group of entities belonging to one profile.
type Tab struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profile_id"`
	Name      string    `json:"name"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// WithEntities pairs a tab with its assigned entity ids.
type WithEntities struct {
	Tab
	EntityIDs []string `json:"entity_ids"`
}

// ValidateName checks a user tab name. "All" is reserved.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	if strings.EqualFold(name, All) {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidName, All)
	}
	return nil
}

// Names returns the tab strip: "All" followed by tabs in sort order.
func Names(tabs []Tab) []string {
	names := make([]string, 0, len(tabs)+1)
	names = append(names, All)
	for _, t := range tabs {
		names = append(names, t.Name)
	}
	return names
}

// GenerateID returns a new tab identifier.
func GenerateID() string {
	return uuid.New().String()
}
