package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-remote/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-remote/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-remote/internal/statesync"
)

// WebSocket message types.
const (
	// Server to client.
	WSTypeEvent    = "event"
	WSTypeSnapshot = "snapshot"
	WSTypeAck      = "ack"
	WSTypePong     = "pong"
	WSTypeError    = "error"

	// Client to server.
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"

	wsSendBufferSize = 256

	defaultWSPingInterval   = 30
	defaultWSPongTimeout    = 10
	defaultWSMaxMessageSize = 8192
)

// WSMessage is the envelope for every frame in both directions.
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	EventType string          `json:"event_type,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// WSFilter is the payload of subscribe and unsubscribe requests.
//
// Events narrows the event types delivered. EntityIDs narrows entity,
// reconcile and per-entity error events to the listed entities; snapshot
// events are never narrowed by entity.
type WSFilter struct {
	Events    []string `json:"events,omitempty"`
	EntityIDs []string `json:"entity_ids,omitempty"`
}

var knownEvents = map[statesync.EventType]struct{}{
	statesync.EventSnapshotUpdated:    {},
	statesync.EventEntityUpdated:      {},
	statesync.EventSyncError:          {},
	statesync.EventReconcileCompleted: {},
}

// subscription is a client's event filter. The zero value receives
// nothing; newSubscription receives every event type for every entity.
type subscription struct {
	events   map[statesync.EventType]struct{}
	entities map[string]struct{}
}

func newSubscription() subscription {
	s := subscription{
		events:   make(map[statesync.EventType]struct{}, len(knownEvents)),
		entities: make(map[string]struct{}),
	}
	for t := range knownEvents {
		s.events[t] = struct{}{}
	}
	return s
}

func (s subscription) matches(ev statesync.Event) bool {
	if _, ok := s.events[ev.Type]; !ok {
		return false
	}
	if len(s.entities) == 0 {
		return true
	}
	id := eventEntityID(ev)
	if id == "" {
		return true
	}
	_, ok := s.entities[id]
	return ok
}

// eventEntityID returns the entity an event is about, or "" for
// snapshot-wide events.
func eventEntityID(ev statesync.Event) string {
	switch {
	case ev.Entity != nil:
		return ev.Entity.ID
	case ev.Reconcile != nil:
		return ev.Reconcile.EntityID
	case ev.Error != nil:
		return ev.Error.EntityID
	default:
		return ""
	}
}

// Hub fans engine events out to WebSocket clients. It implements
// statesync.Notifier.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	dropped atomic.Int64

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// NewHub creates a hub. Unset timings fall back to defaults.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultWSPingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaultWSPongTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultWSMaxMessageSize
	}
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// Run blocks until ctx ends, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.shutdown()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many event frames were discarded for slow clients.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "client", c.subject, "clients", n)
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	c.shutdown()
	h.logger.Debug("websocket client disconnected", "client", c.subject, "clients", n)
}

// Notify delivers ev to every client whose filter matches. The frame is
// encoded once; a client with a full buffer misses the event rather than
// stalling the engine.
func (h *Hub) Notify(ev statesync.Event) {
	data, err := encodeEvent(ev)
	if err != nil {
		h.logger.Error("encoding websocket event", "event", ev.Type, "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.wants(ev) {
			continue
		}
		if !c.enqueue(data) {
			h.dropped.Add(1)
			h.logger.Debug("websocket client lagging, event dropped", "client", c.subject, "event", ev.Type)
		}
	}
}

func encodeEvent(ev statesync.Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Payload())
	if err != nil {
		return nil, err
	}
	return json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: string(ev.Type),
		Timestamp: ev.Timestamp.UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	})
}

// wsClient is one connection. send is closed exactly once, by shutdown.
type wsClient struct {
	hub     *Hub
	conn    *websocket.Conn
	subject string

	mu     sync.Mutex
	sub    subscription
	send   chan []byte
	closed bool
}

func (c *wsClient) wants(ev statesync.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sub.matches(ev)
}

// enqueue queues a frame without blocking. It reports false when the
// frame was dropped because the buffer is full or the client is gone.
func (c *wsClient) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *wsClient) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *wsClient) reply(msgType, id string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:   raw,
	})
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *wsClient) replyError(id, message string) {
	c.reply(WSTypeError, id, map[string]string{"message": message})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS middleware.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// handleWebSocket upgrades the request and starts streaming engine
// events. The first frame is the current snapshot so a client never
// has to race a REST fetch against the stream.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		hub:  s.hub,
		conn: conn,
		sub:  newSubscription(),
		send: make(chan []byte, wsSendBufferSize),
	}
	if claims := claimsFromContext(r.Context()); claims != nil {
		c.subject = claims.Subject
	}

	snap := s.engine.Snapshot()
	c.reply(WSTypeSnapshot, "", map[string]any{
		"base_url": s.engine.BaseURL(),
		"count":    snap.Len(),
		"entities": snap,
	})

	s.hub.add(c)
	go c.writePump()
	go c.readPump()
}

func (c *wsClient) readPump() {
	cfg := c.hub.cfg
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	wait := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(wait)) }

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	extend() //nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "client", c.subject, "error", err)
			}
			return
		}
		// Application frames count as liveness for clients that ignore
		// protocol pings.
		extend() //nolint:errcheck // Best-effort deadline reset
		c.handle(data)
	}
}

func (c *wsClient) writePump() {
	cfg := c.hub.cfg
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	write := func(msgType int, data []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // Write error is checked instead
		return c.conn.WriteMessage(msgType, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				write(websocket.CloseMessage, nil) //nolint:errcheck // Best-effort close frame
				return
			}
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) handle(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.replyError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypePing:
		c.reply(WSTypePong, msg.ID, nil)
	case WSTypeSubscribe, WSTypeUnsubscribe:
		var f WSFilter
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &f); err != nil {
				c.replyError(msg.ID, "invalid filter payload")
				return
			}
		}
		if err := validateFilter(f); err != nil {
			c.replyError(msg.ID, err.Error())
			return
		}
		c.reply(WSTypeAck, msg.ID, c.apply(msg.Type == WSTypeSubscribe, f))
	default:
		c.replyError(msg.ID, "unknown message type: "+msg.Type)
	}
}

func validateFilter(f WSFilter) error {
	for _, name := range f.Events {
		if _, ok := knownEvents[statesync.EventType(name)]; !ok {
			return fmt.Errorf("unknown event type: %s", name)
		}
	}
	for _, id := range f.EntityIDs {
		if id == "" {
			return fmt.Errorf("empty entity id")
		}
	}
	return nil
}

// apply adds or removes f from the client's filter and returns the
// resulting filter. An empty entity list in a subscribe leaves the
// entity narrowing unchanged.
func (c *wsClient) apply(add bool, f WSFilter) WSFilter {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range f.Events {
		if add {
			c.sub.events[statesync.EventType(name)] = struct{}{}
		} else {
			delete(c.sub.events, statesync.EventType(name))
		}
	}
	for _, id := range f.EntityIDs {
		if add {
			c.sub.entities[id] = struct{}{}
		} else {
			delete(c.sub.entities, id)
		}
	}

	var out WSFilter
	for t := range c.sub.events {
		out.Events = append(out.Events, string(t))
	}
	for id := range c.sub.entities {
		out.EntityIDs = append(out.EntityIDs, id)
	}
	slices.Sort(out.Events)
	slices.Sort(out.EntityIDs)
	return out
}
