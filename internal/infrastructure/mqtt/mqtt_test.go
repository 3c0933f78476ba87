package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-remote/internal/entity"
	"github.com/nerrad567/gray-logic-remote/internal/gateway"
	"github.com/nerrad567/gray-logic-remote/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-remote/internal/statesync"
)

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// fakeBroker records publishes and captures subscription handlers.
type fakeBroker struct {
	mu           sync.Mutex
	published    []published
	handlers     map[string]MessageHandler
	unsubscribed []string
	publishErr   error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{handlers: make(map[string]MessageHandler)}
}

func (b *fakeBroker) Publish(topic string, payload []byte, qos byte, retained bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, published{topic, payload, qos, retained})
	return nil
}

func (b *fakeBroker) Subscribe(topic string, _ byte, handler MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = handler
	return nil
}

func (b *fakeBroker) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, topic)
	b.unsubscribed = append(b.unsubscribed, topic)
	return nil
}

func (b *fakeBroker) topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.published))
	for _, p := range b.published {
		out = append(out, p.topic)
	}
	return out
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, entityID string, a gateway.Action) (statesync.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, entityID+":"+a.Name())
	return statesync.Result{EntityID: entityID}, d.err
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(string, ...any) {}

func (l *recordingLogger) Error(msg string, _ ...any) { l.Warn(msg) }

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func TestTopics(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		got, want string
	}{
		{topics.Status(), "graylogic/remote/status"},
		{topics.Snapshot(), "graylogic/remote/snapshot"},
		{topics.EntityState("light.kitchen"), "graylogic/remote/entity/light.kitchen/state"},
		{topics.Reconcile("light.kitchen"), "graylogic/remote/reconcile/light.kitchen"},
		{topics.Error(), "graylogic/remote/error"},
		{topics.Command("switch.garage"), "graylogic/remote/command/switch.garage"},
		{topics.AllCommands(), "graylogic/remote/command/+"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestTopics_CommandEntityID(t *testing.T) {
	tests := []struct {
		topic  string
		want   string
		wantOK bool
	}{
		{"graylogic/remote/command/light.kitchen", "light.kitchen", true},
		{"graylogic/remote/command/", "", false},
		{"graylogic/remote/command/a/b", "", false},
		{"graylogic/remote/error", "", false},
	}
	for _, tt := range tests {
		got, ok := Topics{}.CommandEntityID(tt.topic)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("CommandEntityID(%q) = %q, %v; want %q, %v", tt.topic, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestBuildStatusPayload(t *testing.T) {
	var p statusPayload
	if err := json.Unmarshal(buildStatusPayload(statusOffline, `id"quoted`, reasonShutdown), &p); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if p.Status != "offline" || p.ClientID != `id"quoted` || p.Reason != "graceful_shutdown" || p.Timestamp == "" {
		t.Errorf("payload = %+v", p)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{Host: "broker.local", Port: 8883, TLS: true, ClientID: "remote"},
		Auth:   config.MQTTAuthConfig{Username: "user", Password: "pass"},
	}
	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://broker.local:8883" {
		t.Errorf("Servers = %v, want ssl://broker.local:8883", opts.Servers)
	}
	if opts.ClientID != "remote" || opts.Username != "user" {
		t.Errorf("ClientID/Username = %q/%q", opts.ClientID, opts.Username)
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig not set with TLS enabled")
	}

	configureLWT(opts, "remote")
	if !opts.WillEnabled || opts.WillTopic != "graylogic/remote/status" || !opts.WillRetained {
		t.Errorf("LWT = enabled %v topic %q retained %v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
}

func TestClient_ValidationBeforeConnect(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	if err := c.Publish("", nil, 0, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish(empty topic) = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("t", nil, 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish(qos 3) = %v, want ErrInvalidQoS", err)
	}
	if err := c.Publish("t", make([]byte, maxPayloadSize+1), 0, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish(large) = %v, want ErrPublishFailed", err)
	}
	if err := c.Publish("t", []byte("x"), 0, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish(disconnected) = %v, want ErrNotConnected", err)
	}
	if err := c.Subscribe("t", 0, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) = %v, want ErrSubscribeFailed", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client = %v", err)
	}
}

func TestMirror_NotifyPublishesEvents(t *testing.T) {
	broker := newFakeBroker()
	m := NewMirror(broker, &fakeDispatcher{}, 1)

	snap := entity.NewSnapshot([]entity.Entity{
		{ID: "light.kitchen", State: "on"},
		{ID: "switch.garage", State: "off"},
	})
	m.Notify(statesync.Event{Type: statesync.EventSnapshotUpdated, Snapshot: snap})
	m.Notify(statesync.Event{Type: statesync.EventEntityUpdated, Entity: &entity.Entity{ID: "light.kitchen", State: "off"}})
	m.Notify(statesync.Event{Type: statesync.EventSyncError, Error: &statesync.SyncError{Op: "fetch_all", Kind: gateway.KindUnreachable}})
	m.Notify(statesync.Event{Type: statesync.EventReconcileCompleted, Reconcile: &statesync.Result{EntityID: "light.kitchen"}})

	want := []string{
		"graylogic/remote/snapshot",
		"graylogic/remote/entity/light.kitchen/state",
		"graylogic/remote/entity/switch.garage/state",
		"graylogic/remote/entity/light.kitchen/state",
		"graylogic/remote/error",
		"graylogic/remote/reconcile/light.kitchen",
	}
	got := broker.topics()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("topics = %v, want %v", got, want)
	}

	for _, p := range broker.published {
		retained := strings.HasSuffix(p.topic, "/state")
		if p.retained != retained {
			t.Errorf("%s retained = %v, want %v", p.topic, p.retained, retained)
		}
		if p.qos != 1 {
			t.Errorf("%s qos = %d, want 1", p.topic, p.qos)
		}
	}

	var e entity.Entity
	if err := json.Unmarshal(broker.published[3].payload, &e); err != nil || e.State != "off" {
		t.Errorf("entity payload = %s (%v)", broker.published[3].payload, err)
	}
}

func TestMirror_PublishFailureIsLogged(t *testing.T) {
	broker := newFakeBroker()
	broker.publishErr = ErrNotConnected
	logger := &recordingLogger{}
	m := NewMirror(broker, &fakeDispatcher{}, 0)
	m.SetLogger(logger)

	m.Notify(statesync.Event{Type: statesync.EventSyncError, Error: &statesync.SyncError{Op: "fetch_all"}})

	if len(logger.warns) != 1 {
		t.Errorf("warnings = %v, want one", logger.warns)
	}
}

func TestMirror_HandleCommands(t *testing.T) {
	broker := newFakeBroker()
	dispatcher := &fakeDispatcher{}
	m := NewMirror(broker, dispatcher, 1)

	if err := m.HandleCommands(context.Background()); err != nil {
		t.Fatalf("HandleCommands() error = %v", err)
	}
	handler, ok := broker.handlers["graylogic/remote/command/+"]
	if !ok {
		t.Fatal("command topic not subscribed")
	}

	tests := []struct {
		name    string
		topic   string
		payload string
		wantErr bool
	}{
		{"turn on", "graylogic/remote/command/light.kitchen", `{"action":"turn_on"}`, false},
		{"toggle", "graylogic/remote/command/switch.garage", `{"action":"toggle"}`, false},
		{"bad json", "graylogic/remote/command/light.kitchen", `{`, true},
		{"unknown action", "graylogic/remote/command/light.kitchen", `{"action":"explode"}`, true},
		{"foreign topic", "graylogic/remote/error", `{"action":"turn_on"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handler(tt.topic, []byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Errorf("handler() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidCommand) {
				t.Errorf("handler() error = %v, want ErrInvalidCommand", err)
			}
		})
	}

	m.Stop()
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	if len(dispatcher.calls) != 2 {
		t.Fatalf("dispatched = %v, want 2 calls", dispatcher.calls)
	}
	for _, want := range []string{"light.kitchen:turn_on", "switch.garage:toggle"} {
		found := false
		for _, c := range dispatcher.calls {
			if c == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing dispatch %s in %v", want, dispatcher.calls)
		}
	}
}

func TestMirror_StopUnsubscribesAndRejectsLateCommands(t *testing.T) {
	broker := newFakeBroker()
	dispatcher := &fakeDispatcher{}
	m := NewMirror(broker, dispatcher, 1)
	if err := m.HandleCommands(context.Background()); err != nil {
		t.Fatalf("HandleCommands() error = %v", err)
	}
	handler := broker.handlers["graylogic/remote/command/+"]

	// Late deliveries racing Stop must never reach the dispatcher after
	// Stop has returned.
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handler("graylogic/remote/command/light.kitchen", []byte(`{"action":"turn_on"}`)) //nolint:errcheck // rejected after Stop
		}()
	}
	m.Stop()
	dispatcher.mu.Lock()
	settled := len(dispatcher.calls)
	dispatcher.mu.Unlock()
	wg.Wait()

	broker.mu.Lock()
	unsubscribed := append([]string(nil), broker.unsubscribed...)
	broker.mu.Unlock()
	if len(unsubscribed) != 1 || unsubscribed[0] != "graylogic/remote/command/+" {
		t.Errorf("unsubscribed = %v, want the command wildcard", unsubscribed)
	}

	err := handler("graylogic/remote/command/light.kitchen", []byte(`{"action":"turn_on"}`))
	if !errors.Is(err, ErrCommandRejected) {
		t.Errorf("handler() after Stop error = %v, want ErrCommandRejected", err)
	}
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	if len(dispatcher.calls) != settled {
		t.Errorf("dispatched %d commands after Stop, want none", len(dispatcher.calls)-settled)
	}

	m.Stop() // idempotent
	if len(broker.unsubscribed) != 1 {
		t.Errorf("second Stop unsubscribed again: %v", broker.unsubscribed)
	}
}
