package dashboard

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nerrad567/gray-logic-remote/internal/entity"
	"github.com/nerrad567/gray-logic-remote/internal/gateway"
	"github.com/nerrad567/gray-logic-remote/internal/statesync"
	"github.com/nerrad567/gray-logic-remote/internal/tab"
)

// Engine is the part of statesync.Engine the dashboard drives.
type Engine interface {
	Connection(ctx context.Context) (statesync.Binding, error)
	Tabs(ctx context.Context) ([]string, error)
	View(ctx context.Context, tabName string) (tab.View, error)
	FetchAll(ctx context.Context) (entity.Snapshot, error)
	SwitchURL(ctx context.Context) (statesync.Binding, error)
	Dispatch(ctx context.Context, entityID string, a gateway.Action) (statesync.Result, error)
}

// --- Messages ---

type connectionMsg struct {
	binding statesync.Binding
	err     error
}

type tabsLoadedMsg struct {
	names []string
	err   error
}

type viewLoadedMsg struct {
	view tab.View
	err  error
}

type refreshDoneMsg struct{ err error }

type switchedMsg struct {
	binding statesync.Binding
	err     error
}

type actionDoneMsg struct {
	result statesync.Result
	err    error
}

type engineEventMsg struct{ event statesync.Event }

// Model is the bubbletea model of the dashboard.
type Model struct {
	ctx    context.Context
	engine Engine
	events <-chan statesync.Event

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	conn    statesync.Binding
	tabs    []string
	tabIdx  int
	rows    []entity.Entity
	view    tab.View
	cursor  int
	pending int

	status string
	err    error
	width  int
	height int
}

// New creates a dashboard over engine. events is usually from
// Engine.Subscribe; a nil channel disables live updates.
func New(ctx context.Context, engine Engine, events <-chan statesync.Event) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:     ctx,
		engine:  engine,
		events:  events,
		keys:    keys,
		help:    help.New(),
		spinner: sp,
		tabs:    []string{tab.All},
	}
}

// Init loads the connection and tab strip, runs the first fetch and
// starts listening for engine events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.loadConnection(),
		m.loadTabs(),
		m.refresh(),
		m.waitForEvent(),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case connectionMsg:
		m.conn, m.err = msg.binding, msg.err
		return m, nil

	case tabsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		current := m.currentTab()
		m.tabs = msg.names
		m.tabIdx = 0
		for i, name := range m.tabs {
			if name == current {
				m.tabIdx = i
			}
		}
		return m, m.loadView()

	case viewLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if msg.view.Tab != m.currentTab() {
			return m, nil
		}
		m.view = msg.view
		m.rows = msg.view.Entities()
		m.cursor = min(m.cursor, max(len(m.rows)-1, 0))
		return m, nil

	case refreshDoneMsg:
		m.pending = max(m.pending-1, 0)
		m.err = msg.err
		if msg.err == nil {
			m.status = "refreshed"
		}
		return m, nil

	case switchedMsg:
		m.pending = max(m.pending-1, 0)
		if msg.err != nil && msg.binding.ProfileID == "" {
			m.err = msg.err
			return m, nil
		}
		m.conn, m.err = msg.binding, msg.err
		m.status = "switched to " + msg.binding.Which
		return m, nil

	case actionDoneMsg:
		m.pending = max(m.pending-1, 0)
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("%s %s: %s (%s)", msg.result.Action, msg.result.EntityID, msg.result.State, msg.result.Resolution)
		return m, nil

	case engineEventMsg:
		cmds := []tea.Cmd{m.waitForEvent()}
		switch msg.event.Type {
		case statesync.EventSnapshotUpdated:
			cmds = append(cmds, m.loadTabs(), m.loadConnection())
		case statesync.EventEntityUpdated:
			cmds = append(cmds, m.loadView())
		case statesync.EventSyncError:
			if msg.event.Error != nil {
				m.status = fmt.Sprintf("%s failed: %s", msg.event.Error.Op, msg.event.Error.Kind)
			}
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.PrevTab):
		m.tabIdx = (m.tabIdx - 1 + len(m.tabs)) % len(m.tabs)
		m.cursor = 0
		return m, m.loadView()

	case key.Matches(msg, m.keys.NextTab):
		m.tabIdx = (m.tabIdx + 1) % len(m.tabs)
		m.cursor = 0
		return m, m.loadView()

	case key.Matches(msg, m.keys.Toggle):
		e, ok := m.selected()
		if !ok || !e.IsControllable() {
			return m, nil
		}
		m.pending++
		m.status = "toggling " + e.DisplayName()
		return m, m.dispatch(e.ID, gateway.Toggle{})

	case key.Matches(msg, m.keys.Refresh):
		m.pending++
		return m, m.refresh()

	case key.Matches(msg, m.keys.SwitchURL):
		m.pending++
		return m, m.switchURL()
	}
	return m, nil
}

func (m Model) currentTab() string {
	if m.tabIdx < len(m.tabs) {
		return m.tabs[m.tabIdx]
	}
	return tab.All
}

func (m Model) selected() (entity.Entity, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return entity.Entity{}, false
	}
	return m.rows[m.cursor], true
}

// Busy reports whether a refresh, switch or action is in flight.
func (m Model) Busy() bool {
	return m.pending > 0
}

// --- Commands ---

func (m Model) loadConnection() tea.Cmd {
	return func() tea.Msg {
		b, err := m.engine.Connection(m.ctx)
		return connectionMsg{binding: b, err: err}
	}
}

func (m Model) loadTabs() tea.Cmd {
	return func() tea.Msg {
		names, err := m.engine.Tabs(m.ctx)
		return tabsLoadedMsg{names: names, err: err}
	}
}

func (m Model) loadView() tea.Cmd {
	name := m.currentTab()
	return func() tea.Msg {
		v, err := m.engine.View(m.ctx, name)
		return viewLoadedMsg{view: v, err: err}
	}
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		_, err := m.engine.FetchAll(m.ctx)
		return refreshDoneMsg{err: err}
	}
}

func (m Model) switchURL() tea.Cmd {
	return func() tea.Msg {
		b, err := m.engine.SwitchURL(m.ctx)
		return switchedMsg{binding: b, err: err}
	}
}

func (m Model) dispatch(entityID string, a gateway.Action) tea.Cmd {
	return func() tea.Msg {
		res, err := m.engine.Dispatch(m.ctx, entityID, a)
		return actionDoneMsg{result: res, err: err}
	}
}

// waitForEvent blocks on the engine's event channel. It returns nil once
// the channel is closed, which ends the listening loop.
func (m Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return nil
		}
		return engineEventMsg{event: ev}
	}
}
