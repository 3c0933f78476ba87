package profile

import (
	"time"

	"github.com/google/uuid"
)

// Profile is one configured gateway.
//
// The same Token is used for both URLs: they are two network paths to
// the same gateway, not two gateways.
type Profile struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	InternalURL    string    `json:"internal_url"`
	ExternalURL    string    `json:"external_url"`
	Token          string    `json:"-"`
	PreferExternal bool      `json:"prefer_external"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Which names one of a profile's two base URLs.
type Which string

// URL selectors.
const (
	Internal Which = "internal"
	External Which = "external"
)

// Other returns the opposite selector.
func (w Which) Other() Which {
	if w == External {
		return Internal
	}
	return External
}

// Preferred is the URL a fresh binding starts on: external when the
// profile prefers it, internal otherwise. A missing URL falls back to
// the other one.
func (p Profile) Preferred() Which {
	want := Internal
	if p.PreferExternal {
		want = External
	}
	if p.URL(want) == "" {
		return want.Other()
	}
	return want
}

// URL returns the base URL for w.
func (p Profile) URL(w Which) string {
	if w == External {
		return p.ExternalURL
	}
	return p.InternalURL
}

// SelectedEntity is an entity the user picked for a profile.
type SelectedEntity struct {
	ProfileID    string `json:"profile_id"`
	EntityID     string `json:"entity_id"`
	DisplayOrder int    `json:"display_order"`
}

// GenerateID returns a new profile identifier.
func GenerateID() string {
	return uuid.New().String()
}
