package tabs

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	appmsg "github.com/sadopc/catalogsync/internal/msg"
	"github.com/sadopc/catalogsync/internal/theme"
)

// Tab is one content view in the tab bar.
type Tab struct {
	View appmsg.View
	// Count is shown next to the title when positive.
	Count int
}

// Model is the tab bar component.
type Model struct {
	tabs   []Tab
	active int
	width  int
}

// New creates a tab bar with one tab per view.
func New() Model {
	m := Model{}
	for _, v := range appmsg.Views {
		m.tabs = append(m.tabs, Tab{View: v})
	}
	return m
}

// Init returns no initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles tab bar messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(appmsg.SwitchViewMsg); ok {
		if idx := m.indexOf(msg.View); idx >= 0 {
			m.active = idx
		}
	}
	return m, nil
}

// View renders the tab bar.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}

	th := theme.Current

	var tabs []string
	for i, tab := range m.tabs {
		title := fmt.Sprintf("%d %s", i+1, tab.View)
		if tab.Count > 0 {
			title += fmt.Sprintf(" (%d)", tab.Count)
		}

		style := th.TabInactive
		if i == m.active {
			style = th.TabActive
		}
		tabs = append(tabs, style.Render(title))
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
	return th.TabBar.Width(m.width).Render(bar)
}

// SetSize sets the tab bar width.
func (m *Model) SetSize(width int) {
	m.width = width
}

// SetCount sets the badge of a view's tab.
func (m *Model) SetCount(v appmsg.View, n int) {
	if idx := m.indexOf(v); idx >= 0 {
		m.tabs[idx].Count = n
	}
}

// Active returns the active view.
func (m Model) Active() appmsg.View {
	if m.active < len(m.tabs) {
		return m.tabs[m.active].View
	}
	return appmsg.ViewReport
}

// NextTab switches to the next tab.
func (m *Model) NextTab() tea.Cmd {
	if len(m.tabs) == 0 {
		return nil
	}
	m.active = (m.active + 1) % len(m.tabs)
	return m.switchCmd()
}

// PrevTab switches to the previous tab.
func (m *Model) PrevTab() tea.Cmd {
	if len(m.tabs) == 0 {
		return nil
	}
	m.active--
	if m.active < 0 {
		m.active = len(m.tabs) - 1
	}
	return m.switchCmd()
}

// Tabs returns all tabs.
func (m Model) Tabs() []Tab {
	return m.tabs
}

// Count returns the number of tabs.
func (m Model) Count() int {
	return len(m.tabs)
}

func (m Model) switchCmd() tea.Cmd {
	v := m.tabs[m.active].View
	return func() tea.Msg { return appmsg.SwitchViewMsg{View: v} }
}

func (m Model) indexOf(v appmsg.View) int {
	for i, t := range m.tabs {
		if t.View == v {
			return i
		}
	}
	return -1
}
