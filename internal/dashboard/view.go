package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nerrad567/gray-logic-remote/internal/entity"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7D56F4"))

	tabStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#888888"))

	roomStyle   = lipgloss.NewStyle().Bold(true).Underline(true).MarginTop(1)
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true)
	onStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	offStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	downStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).Italic(true)
)

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.renderGroups())
	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("Gray Logic Remote")
	if m.conn.ProfileID == "" {
		return title + "  " + offStyle.Render("no active profile")
	}
	return fmt.Sprintf("%s  %s via %s (%s)", title, m.conn.ProfileName, m.conn.Which, m.conn.BaseURL)
}

func (m Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, name := range m.tabs {
		if i == m.tabIdx {
			parts = append(parts, activeTabStyle.Render(name))
		} else {
			parts = append(parts, tabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderGroups() string {
	if len(m.rows) == 0 {
		return offStyle.Render("  nothing to show")
	}

	var b strings.Builder
	row := 0
	for _, g := range m.view.Groups {
		b.WriteString(roomStyle.Render(g.Room))
		b.WriteString("\n")
		for _, e := range g.Entities {
			marker := "  "
			name := e.DisplayName()
			if row == m.cursor {
				marker = cursorStyle.Render("> ")
				name = cursorStyle.Render(name)
			}
			fmt.Fprintf(&b, "%s%-32s %s\n", marker, name, renderState(e))
			row++
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderState(e entity.Entity) string {
	state := e.State
	if unit := e.Attributes.UnitOfMeasurement; unit != nil && *unit != "" {
		state += " " + *unit
	}
	switch {
	case e.Unavailable():
		return downStyle.Render(state)
	case e.IsOn():
		return onStyle.Render(state)
	default:
		return offStyle.Render(state)
	}
}

func (m Model) renderStatus() string {
	var line string
	switch {
	case m.err != nil:
		line = errorStyle.Render("error: " + m.err.Error())
	case m.status != "":
		line = statusStyle.Render(m.status)
	}
	if m.Busy() {
		line = m.spinner.View() + " " + line
	}
	return line
}
