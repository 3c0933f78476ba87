package statesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nerrad567/gray-logic-remote/internal/entity"
	"github.com/nerrad567/gray-logic-remote/internal/gateway"
	"github.com/nerrad567/gray-logic-remote/internal/tab"
)

// Default reconciliation settings.
const (
	DefaultVerifyAttempts  = 3
	DefaultVerifyBaseDelay = 300 * time.Millisecond
	DefaultVerifyStep      = 200 * time.Millisecond
)

const fetchAllKey = "fetch-all"

// TabStore is the part of the tab repository the engine reads.
type TabStore interface {
	ListForProfile(ctx context.Context, profileID string) ([]tab.Tab, error)
	ListWithEntities(ctx context.Context, profileID string) ([]tab.WithEntities, error)
}

// Logger defines the logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options tunes reconciliation. Zero VerifyAttempts means the default;
// zero delays are honoured.
type Options struct {
	VerifyAttempts  int
	VerifyBaseDelay time.Duration
	VerifyStep      time.Duration
}

// DefaultOptions returns the production reconciliation settings.
func DefaultOptions() Options {
	return Options{
		VerifyAttempts:  DefaultVerifyAttempts,
		VerifyBaseDelay: DefaultVerifyBaseDelay,
		VerifyStep:      DefaultVerifyStep,
	}
}

// verifyDelay is the wait before verification attempt n (zero based):
// the base delay plus one step per earlier attempt.
func (o Options) verifyDelay(n int) time.Duration {
	return o.VerifyBaseDelay + time.Duration(n)*o.VerifyStep
}

// Engine is the synchronisation engine.
//
// Thread Safety: all methods are safe for concurrent use.
type Engine struct {
	conn   Connector
	tabs   TabStore
	opts   Options
	logger Logger

	fetches singleflight.Group
	busy    atomic.Bool

	mu       sync.RWMutex
	snapshot entity.Snapshot
	baseURL  string

	events    *bus
	notifyMu  sync.Mutex
	notifiers []func()
}

// New creates an engine. tabs may be nil when views are not needed.
func New(conn Connector, tabs TabStore, opts Options) *Engine {
	if opts.VerifyAttempts <= 0 {
		opts.VerifyAttempts = DefaultVerifyAttempts
	}
	if opts.VerifyBaseDelay < 0 {
		opts.VerifyBaseDelay = 0
	}
	if opts.VerifyStep < 0 {
		opts.VerifyStep = 0
	}
	e := &Engine{
		conn:   conn,
		tabs:   tabs,
		opts:   opts,
		logger: noopLogger{},
	}
	e.events = newBus(func(t EventType) {
		e.logger.Debug("subscriber lagging, event dropped", "event", t)
	})
	return e
}

// SetLogger sets the logger for the engine. Call before use.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// Snapshot returns the held snapshot. It is empty until the first
// successful FetchAll.
func (e *Engine) Snapshot() entity.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// BaseURL returns the URL the held snapshot was last fetched from.
func (e *Engine) BaseURL() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.baseURL
}

// Busy reports whether a full fetch is in flight.
func (e *Engine) Busy() bool {
	return e.busy.Load()
}

// Subscribe returns a channel of engine events and a cancel func that
// closes it. Events are dropped for a subscriber whose buffer is full.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	return e.events.subscribe()
}

// AddNotifier delivers every subsequent event to n on a dedicated
// goroutine until Close.
func (e *Engine) AddNotifier(n Notifier) {
	ch, cancel := e.events.subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			n.Notify(ev)
		}
	}()

	e.notifyMu.Lock()
	e.notifiers = append(e.notifiers, func() {
		cancel()
		<-done
	})
	e.notifyMu.Unlock()
}

// Close stops every subscription and waits for notifiers to drain.
func (e *Engine) Close() {
	e.notifyMu.Lock()
	stops := e.notifiers
	e.notifiers = nil
	e.notifyMu.Unlock()

	for _, stop := range stops {
		stop()
	}
	e.events.close()
}

// FetchAll replaces the held snapshot with the gateway's full state set.
//
// A call made while another is in flight does not start a second
// request: it waits for the running one and returns its result. On
// failure the held snapshot is left as it was and a sync.error event is
// published.
func (e *Engine) FetchAll(ctx context.Context) (entity.Snapshot, error) {
	ch := e.fetches.DoChan(fetchAllKey, func() (any, error) {
		// Joined callers must not be cut short by the leader's cancellation.
		return e.fetchAll(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Shared {
			e.logger.Debug("fetch-all joined in-flight request")
		}
		if res.Err != nil {
			return entity.Snapshot{}, res.Err
		}
		return res.Val.(entity.Snapshot), nil
	case <-ctx.Done():
		return entity.Snapshot{}, ctx.Err()
	}
}

func (e *Engine) fetchAll(ctx context.Context) (entity.Snapshot, error) {
	e.busy.Store(true)
	defer e.busy.Store(false)

	b, err := e.conn.Current(ctx)
	if err != nil {
		e.publishError("fetch_all", "", err)
		return entity.Snapshot{}, err
	}

	start := time.Now()
	snap, err := b.Gateway.ListAll(ctx)
	if err != nil {
		err = fmt.Errorf("fetching states from %s: %w", b.BaseURL, err)
		e.logger.Warn("fetch-all failed", "url", b.BaseURL, "kind", gateway.KindOf(err), "error", err)
		e.publishError("fetch_all", "", err)
		return entity.Snapshot{}, err
	}

	e.mu.Lock()
	e.snapshot = snap
	e.baseURL = b.BaseURL
	e.mu.Unlock()

	e.logger.Debug("fetch-all complete",
		"url", b.BaseURL,
		"entities", snap.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	e.events.publish(Event{
		Type:      EventSnapshotUpdated,
		Timestamp: time.Now().UTC(),
		BaseURL:   b.BaseURL,
		Snapshot:  snap,
	})
	return snap, nil
}

// Activate makes profileID the active profile and loads its state.
// The activation stands even when the follow-up fetch fails.
func (e *Engine) Activate(ctx context.Context, profileID string) (Binding, error) {
	b, err := e.conn.Activate(ctx, profileID)
	if err != nil {
		return Binding{}, err
	}
	if _, err := e.FetchAll(ctx); err != nil {
		return b, err
	}
	return b, nil
}

// SwitchURL flips the active profile to its other base URL and
// immediately refetches everything: state read over one path says
// nothing about the other.
func (e *Engine) SwitchURL(ctx context.Context) (Binding, error) {
	b, err := e.conn.SwitchURL(ctx)
	if err != nil {
		e.publishError("switch_url", "", err)
		return Binding{}, err
	}
	e.logger.Info("gateway url switched", "which", b.Which, "url", b.BaseURL)
	if _, err := e.FetchAll(ctx); err != nil {
		return b, err
	}
	return b, nil
}

// Connection returns the current binding.
func (e *Engine) Connection(ctx context.Context) (Binding, error) {
	return e.conn.Current(ctx)
}

// CheckGateway verifies the bound gateway answers with the stored
// token. It does not touch the held snapshot or emit events.
func (e *Engine) CheckGateway(ctx context.Context) error {
	b, err := e.conn.Current(ctx)
	if err != nil {
		return err
	}
	if err := b.Gateway.HealthCheck(ctx); err != nil {
		return fmt.Errorf("checking %s: %w", b.BaseURL, err)
	}
	return nil
}

// Tabs returns the tab strip for the active profile: "All" first, then
// user tabs in sort order.
func (e *Engine) Tabs(ctx context.Context) ([]string, error) {
	profileID, err := e.activeProfileID(ctx)
	if err != nil {
		return nil, err
	}
	tabs, err := e.tabs.ListForProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("listing tabs: %w", err)
	}
	return tab.Names(tabs), nil
}

// View filters the held snapshot for tabName.
func (e *Engine) View(ctx context.Context, tabName string) (tab.View, error) {
	profileID, err := e.activeProfileID(ctx)
	if err != nil {
		return tab.View{}, err
	}
	var tabs []tab.WithEntities
	if tabName != tab.All {
		if tabs, err = e.tabs.ListWithEntities(ctx, profileID); err != nil {
			return tab.View{}, fmt.Errorf("loading tabs: %w", err)
		}
	}
	return tab.Filter(e.Snapshot(), tabs, tabName), nil
}

func (e *Engine) activeProfileID(ctx context.Context) (string, error) {
	if e.tabs == nil {
		return "", errors.New("statesync: no tab store configured")
	}
	b, err := e.conn.Current(ctx)
	if err != nil {
		return "", err
	}
	return b.ProfileID, nil
}

// patch replaces one entity in the held snapshot. Last write wins.
func (e *Engine) patch(ent entity.Entity) {
	e.mu.Lock()
	e.snapshot = e.snapshot.Patch(ent)
	baseURL := e.baseURL
	e.mu.Unlock()

	e.events.publish(Event{
		Type:      EventEntityUpdated,
		Timestamp: time.Now().UTC(),
		BaseURL:   baseURL,
		Entity:    &ent,
	})
}

func (e *Engine) publishError(op, entityID string, err error) {
	e.events.publish(Event{
		Type:      EventSyncError,
		Timestamp: time.Now().UTC(),
		BaseURL:   e.BaseURL(),
		Error: &SyncError{
			Op:       op,
			EntityID: entityID,
			Kind:     gateway.KindOf(err),
			Message:  err.Error(),
		},
	})
}
