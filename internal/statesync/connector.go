package statesync

import (
	"context"

	"github.com/nerrad567/gray-logic-remote/internal/entity"
	"github.com/nerrad567/gray-logic-remote/internal/gateway"
	"github.com/nerrad567/gray-logic-remote/internal/session"
)

// Gateway is the part of gateway.Client the engine calls.
type Gateway interface {
	ListAll(ctx context.Context) (entity.Snapshot, error)
	Invoke(ctx context.Context, entityID string, a gateway.Action) error
	HealthCheck(ctx context.Context) error
}

// Binding identifies the gateway the engine is currently talking to.
type Binding struct {
	ProfileID   string  `json:"profile_id"`
	ProfileName string  `json:"profile_name"`
	Which       string  `json:"which"`
	BaseURL     string  `json:"base_url"`
	Gateway     Gateway `json:"-"`
}

// Connector resolves and changes the active gateway binding.
// Current must return an error wrapping gateway.ErrNoActiveConfiguration
// when nothing is active.
type Connector interface {
	Current(ctx context.Context) (Binding, error)
	Activate(ctx context.Context, profileID string) (Binding, error)
	SwitchURL(ctx context.Context) (Binding, error)
}

// SelectorConnector adapts a session.Selector to Connector.
type SelectorConnector struct {
	Selector *session.Selector
}

// Current implements Connector.
func (c SelectorConnector) Current(ctx context.Context) (Binding, error) {
	b, err := c.Selector.Current(ctx)
	if err != nil {
		return Binding{}, err
	}
	return fromSession(b), nil
}

// Activate implements Connector.
func (c SelectorConnector) Activate(ctx context.Context, profileID string) (Binding, error) {
	b, err := c.Selector.Activate(ctx, profileID)
	if err != nil {
		return Binding{}, err
	}
	return fromSession(b), nil
}

// SwitchURL implements Connector.
func (c SelectorConnector) SwitchURL(ctx context.Context) (Binding, error) {
	b, err := c.Selector.SwitchURL(ctx)
	if err != nil {
		return Binding{}, err
	}
	return fromSession(b), nil
}

func fromSession(b *session.Binding) Binding {
	return Binding{
		ProfileID:   b.Profile.ID,
		ProfileName: b.Profile.Name,
		Which:       string(b.Which),
		BaseURL:     b.BaseURL(),
		Gateway:     b.Client,
	}
}
