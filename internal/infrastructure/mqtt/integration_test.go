//go:build integration

package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-remote/internal/entity"
	"github.com/nerrad567/gray-logic-remote/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-remote/internal/statesync"
)

// Integration tests against a real broker at 127.0.0.1:1883.
//
// Run with:
//
//	go test -tags=integration -count=1 -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func connect(t *testing.T, clientID string) *Client {
	t.Helper()
	client, err := Connect(integrationConfig(clientID))
	if err != nil {
		t.Fatalf("Connect(%s) error = %v", clientID, err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

func TestIntegration_ConnectAndHealth(t *testing.T) {
	client := connect(t, "graylogic-remote-int-health")

	if !client.IsConnected() {
		t.Fatal("IsConnected() = false after Connect")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	client := connect(t, "graylogic-remote-int-subs")
	handler := func(string, []byte) error { return nil }

	topics := []string{Topics{}.Snapshot(), Topics{}.Error(), Topics{}.AllCommands()}
	for _, topic := range topics {
		if err := client.Subscribe(topic, 1, handler); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
	}
	if got := client.SubscriptionCount(); got != len(topics) {
		t.Errorf("SubscriptionCount() = %d, want %d", got, len(topics))
	}

	if err := client.Unsubscribe(topics[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.HasSubscription(topics[0]) {
		t.Errorf("HasSubscription(%s) = true after unsubscribe", topics[0])
	}
}

func TestIntegration_MirrorRoundtrip(t *testing.T) {
	pub := connect(t, "graylogic-remote-int-pub")
	sub := connect(t, "graylogic-remote-int-sub")

	received := make(chan []byte, 1)
	var once sync.Once
	topic := Topics{}.EntityState("light.kitchen")
	if err := sub.Subscribe(topic, 1, func(_ string, p []byte) error {
		once.Do(func() { received <- p })
		return nil
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	mirror := NewMirror(pub, &fakeDispatcher{}, 1)
	mirror.Notify(statesync.Event{
		Type:   statesync.EventEntityUpdated,
		Entity: &entity.Entity{ID: "light.kitchen", State: "on"},
	})

	select {
	case p := <-received:
		var e entity.Entity
		if err := json.Unmarshal(p, &e); err != nil {
			t.Fatalf("decoding %s: %v", p, err)
		}
		if e.State != "on" {
			t.Errorf("state = %q, want on", e.State)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for mirrored state")
	}
}
