package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every topic this service publishes or
// subscribes to.
const TopicPrefix = "graylogic/remote"

// Topics provides builders for the remote's MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.EntityState("light.kitchen")
//	// Returns: "graylogic/remote/entity/light.kitchen/state"
type Topics struct{}

// Status returns the retained online/offline topic (also the LWT topic).
func (Topics) Status() string {
	return TopicPrefix + "/status"
}

// Snapshot returns the topic carrying the full snapshot after a fetch.
func (Topics) Snapshot() string {
	return TopicPrefix + "/snapshot"
}

// EntityState returns the retained per-entity state topic.
//
// Example: graylogic/remote/entity/light.kitchen/state
func (Topics) EntityState(entityID string) string {
	return fmt.Sprintf("%s/entity/%s/state", TopicPrefix, entityID)
}

// Reconcile returns the topic for verification results of one entity.
func (Topics) Reconcile(entityID string) string {
	return fmt.Sprintf("%s/reconcile/%s", TopicPrefix, entityID)
}

// Error returns the topic for sync failures.
func (Topics) Error() string {
	return TopicPrefix + "/error"
}

// Command returns the inbound command topic for one entity.
func (Topics) Command(entityID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, entityID)
}

// AllCommands returns the wildcard subscription for every command topic.
func (Topics) AllCommands() string {
	return TopicPrefix + "/command/+"
}

// CommandEntityID extracts the entity id from a command topic. ok is
// false when topic is not a command topic.
func (Topics) CommandEntityID(topic string) (entityID string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefix+"/command/")
	if !found || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
