package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-remote/internal/gateway"
	"github.com/nerrad567/gray-logic-remote/internal/statesync"
)

// Broker is the part of Client the mirror needs.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Unsubscribe(topic string) error
}

// Dispatcher runs an action through the sync engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, entityID string, a gateway.Action) (statesync.Result, error)
}

// Mirror publishes engine events to the broker and dispatches inbound
// commands. Register it with Engine.AddNotifier.
type Mirror struct {
	broker     Broker
	dispatcher Dispatcher
	qos        byte
	topics     Topics

	logger Logger

	// mu orders inflight.Add against Stop: once stopped is set no new
	// command is counted, so Wait never races an Add.
	mu       sync.Mutex
	stopped  bool
	inflight sync.WaitGroup
}

// NewMirror creates a mirror publishing at qos.
func NewMirror(broker Broker, dispatcher Dispatcher, qos byte) *Mirror {
	return &Mirror{broker: broker, dispatcher: dispatcher, qos: qos, logger: noopLogger{}}
}

// SetLogger sets a logger for publish and command failures.
func (m *Mirror) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	m.logger = logger
}

// Notify implements statesync.Notifier.
//
// A snapshot event publishes the snapshot and refreshes every retained
// entity topic, so late subscribers see current state per entity.
func (m *Mirror) Notify(ev statesync.Event) {
	switch ev.Type {
	case statesync.EventSnapshotUpdated:
		m.publish(m.topics.Snapshot(), ev.Payload(), false)
		for e := range ev.Snapshot.All {
			m.publish(m.topics.EntityState(e.ID), e, true)
		}
	case statesync.EventEntityUpdated:
		if ev.Entity != nil {
			m.publish(m.topics.EntityState(ev.Entity.ID), ev.Entity, true)
		}
	case statesync.EventSyncError:
		m.publish(m.topics.Error(), ev.Error, false)
	case statesync.EventReconcileCompleted:
		if ev.Reconcile != nil {
			m.publish(m.topics.Reconcile(ev.Reconcile.EntityID), ev.Reconcile, false)
		}
	}
}

func (m *Mirror) publish(topic string, v any, retained bool) {
	data, err := json.Marshal(v)
	if err == nil {
		err = m.broker.Publish(topic, data, m.qos, retained)
	}
	if err != nil {
		m.logger.Warn("MQTT mirror publish failed", "topic", topic, "error", err)
	}
}

// HandleCommands subscribes to every command topic. Each valid command
// is dispatched on its own goroutine bound to ctx; the outcome reaches
// the broker through the reconcile and error topics.
func (m *Mirror) HandleCommands(ctx context.Context) error {
	if err := m.broker.Subscribe(m.topics.AllCommands(), m.qos, m.commandHandler(ctx)); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}
	return nil
}

func (m *Mirror) commandHandler(ctx context.Context) MessageHandler {
	return func(topic string, payload []byte) error {
		entityID, ok := m.topics.CommandEntityID(topic)
		if !ok {
			return fmt.Errorf("%w: unexpected topic %s", ErrInvalidCommand, topic)
		}

		var req gateway.ActionRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		action, err := req.Parse()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}

		m.mu.Lock()
		if m.stopped {
			m.mu.Unlock()
			return fmt.Errorf("%w: mirror stopped", ErrCommandRejected)
		}
		m.inflight.Add(1)
		m.mu.Unlock()

		go func() {
			defer m.inflight.Done()
			if _, err := m.dispatcher.Dispatch(ctx, entityID, action); err != nil {
				m.logger.Warn("MQTT command failed",
					"entity_id", entityID,
					"action", action.Name(),
					"error", err,
				)
			}
		}()
		return nil
	}
}

// Stop unsubscribes from the command topics, rejects any command that
// still arrives, and blocks until every dispatched command has returned.
// Call it before closing the client.
func (m *Mirror) Stop() {
	m.mu.Lock()
	already := m.stopped
	m.stopped = true
	m.mu.Unlock()

	if !already {
		if err := m.broker.Unsubscribe(m.topics.AllCommands()); err != nil {
			m.logger.Warn("MQTT command unsubscribe failed", "error", err)
		}
	}
	m.inflight.Wait()
}
