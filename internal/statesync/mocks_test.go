package statesync

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-remote/internal/entity"
	"github.com/nerrad567/gray-logic-remote/internal/gateway"
	"github.com/nerrad567/gray-logic-remote/internal/tab"
)

// listResponse is one scripted ListAll answer.
type listResponse struct {
	snap entity.Snapshot
	err  error
}

// mockGateway answers ListAll from a script, repeating the last entry
// once the script runs out.
type mockGateway struct {
	mu        sync.Mutex
	script    []listResponse
	listCalls int
	invoked   []string
	invokeErr error
	healthErr error

	// gate, when set, blocks ListAll until closed. entered is signalled
	// on every call before blocking.
	gate    chan struct{}
	entered chan struct{}
}

func (m *mockGateway) ListAll(ctx context.Context) (entity.Snapshot, error) {
	m.mu.Lock()
	i := m.listCalls
	m.listCalls++
	gate, entered := m.gate, m.entered
	var r listResponse
	if len(m.script) > 0 {
		r = m.script[min(i, len(m.script)-1)]
	}
	m.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return entity.Snapshot{}, ctx.Err()
		}
	}
	return r.snap, r.err
}

func (m *mockGateway) Invoke(_ context.Context, entityID string, a gateway.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoked = append(m.invoked, entityID+":"+a.Name())
	return m.invokeErr
}

func (m *mockGateway) HealthCheck(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthErr
}

func (m *mockGateway) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

func (m *mockGateway) invocations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.invoked...)
}

// mockConnector binds every call to one gateway.
type mockConnector struct {
	mu        sync.Mutex
	gw        Gateway
	profileID string
	err       error
	switches  int
	activated []string
	which     string
}

func newConnector(gw Gateway) *mockConnector {
	return &mockConnector{gw: gw, profileID: "home", which: "internal"}
}

func (c *mockConnector) binding() Binding {
	return Binding{ProfileID: c.profileID, ProfileName: "Home", Which: c.which, BaseURL: "http://" + c.which + ".test", Gateway: c.gw}
}

func (c *mockConnector) Current(context.Context) (Binding, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return Binding{}, c.err
	}
	return c.binding(), nil
}

func (c *mockConnector) Activate(_ context.Context, id string) (Binding, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activated = append(c.activated, id)
	c.profileID = id
	c.err = nil
	return c.binding(), nil
}

func (c *mockConnector) SwitchURL(context.Context) (Binding, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return Binding{}, c.err
	}
	c.switches++
	if c.which == "internal" {
		c.which = "external"
	} else {
		c.which = "internal"
	}
	return c.binding(), nil
}

// mockTabs is a fixed TabStore.
type mockTabs struct {
	tabs []tab.WithEntities
}

func (m *mockTabs) ListForProfile(_ context.Context, profileID string) ([]tab.Tab, error) {
	var out []tab.Tab
	for _, t := range m.tabs {
		if t.ProfileID == profileID {
			out = append(out, t.Tab)
		}
	}
	return out, nil
}

func (m *mockTabs) ListWithEntities(_ context.Context, profileID string) ([]tab.WithEntities, error) {
	var out []tab.WithEntities
	for _, t := range m.tabs {
		if t.ProfileID == profileID {
			out = append(out, t)
		}
	}
	return out, nil
}

func ent(id, state string) entity.Entity {
	return entity.Entity{ID: id, State: state}
}

// house returns the three-entity snapshot used across tests, with the
// kitchen light in the given state.
func house(kitchen string) entity.Snapshot {
	return entity.NewSnapshot([]entity.Entity{
		ent("light.kitchen", kitchen),
		ent("sensor.temp", "23.5"),
		ent("switch.garage", "off"),
	})
}

func ids(s entity.Snapshot) []string {
	out := make([]string, 0, s.Len())
	for e := range s.All {
		out = append(out, e.ID)
	}
	return out
}

func fastOptions() Options {
	return Options{VerifyAttempts: 3, VerifyBaseDelay: time.Millisecond, VerifyStep: time.Millisecond}
}
