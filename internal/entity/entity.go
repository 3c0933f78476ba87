package entity

import (
	"strings"
	"time"
)

// UnassignedRoom is the room of an entity that carries no area attribute.
const UnassignedRoom = "Unassigned"

// Domains that accept actuation commands.
const (
	DomainSwitch      = "switch"
	DomainLight       = "light"
	DomainClimate     = "climate"
	DomainFan         = "fan"
	DomainCover       = "cover"
	DomainLock        = "lock"
	DomainMediaPlayer = "media_player"
)

// controllableDomains is the closed allow-list behind IsControllable.
var controllableDomains = map[string]bool{
	DomainSwitch:      true,
	DomainLight:       true,
	DomainClimate:     true,
	DomainFan:         true,
	DomainCover:       true,
	DomainLock:        true,
	DomainMediaPlayer: true,
}

// Entity is one gateway-exposed device or sensor as last reported.
type Entity struct {
	ID          string     `json:"entity_id"`
	State       string     `json:"state"`
	Attributes  Attributes `json:"attributes"`
	LastChanged time.Time  `json:"last_changed"`
	LastUpdated time.Time  `json:"last_updated"`
}

// Domain returns the id up to the first ".", or the whole id when there is none.
func (e Entity) Domain() string {
	return DomainOf(e.ID)
}

// DomainOf extracts the domain part of an entity id.
func DomainOf(id string) string {
	domain, _, _ := strings.Cut(id, ".")
	return domain
}

// DisplayName is the friendly name, or the id when the gateway sent none.
func (e Entity) DisplayName() string {
	if e.Attributes.FriendlyName != nil && *e.Attributes.FriendlyName != "" {
		return *e.Attributes.FriendlyName
	}
	return e.ID
}

// Room is the area attribute, or UnassignedRoom.
func (e Entity) Room() string {
	if e.Attributes.Area != nil && *e.Attributes.Area != "" {
		return *e.Attributes.Area
	}
	return UnassignedRoom
}

// IsControllable reports whether the entity's domain accepts actions.
func (e Entity) IsControllable() bool {
	return IsControllableDomain(e.Domain())
}

// IsControllableDomain reports whether domain is on the actuation allow-list.
func IsControllableDomain(domain string) bool {
	return controllableDomains[domain]
}

// IsOn is a convenience for binary entities.
func (e Entity) IsOn() bool {
	return e.State == "on"
}

// Unavailable reports the gateway's placeholder states for entities it cannot reach.
func (e Entity) Unavailable() bool {
	return e.State == "unavailable" || e.State == "unknown"
}
