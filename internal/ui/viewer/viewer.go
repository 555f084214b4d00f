// Package viewer is a scrollable, bordered text pane used for the report
// and SQL views of the browser.
package viewer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/catalogsync/internal/theme"
)

// Model wraps a viewport with a title line and an empty-state message.
type Model struct {
	vp      viewport.Model
	title   string
	empty   string
	lines   []string
	width   int
	height  int
	focused bool
}

// New creates a pane. empty is shown when there are no lines.
func New(title, empty string) Model {
	vp := viewport.New(0, 0)
	vp.MouseWheelEnabled = true
	return Model{vp: vp, title: title, empty: empty}
}

// Init returns no initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetLines replaces the content and scrolls back to the top.
func (m *Model) SetLines(lines []string) {
	m.lines = lines
	m.vp.SetContent(strings.Join(lines, "\n"))
	m.vp.GotoTop()
}

// SetTitle changes the title line.
func (m *Model) SetTitle(title string) {
	m.title = title
}

// Lines returns the current content.
func (m Model) Lines() []string {
	return m.lines
}

// Update scrolls the pane. Keys are ignored unless the pane is focused.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		if !m.focused {
			return m, nil
		}
		switch km.String() {
		case "g", "home":
			m.vp.GotoTop()
			return m, nil
		case "G", "end":
			m.vp.GotoBottom()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

// View renders the pane with its border.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	th := theme.Current

	innerW := max(m.width-2, 1)
	innerH := max(m.height-2, 1)

	titleStyle := th.MutedText
	if m.focused {
		titleStyle = th.DialogTitle
	}
	title := m.title
	if len(m.lines) > m.vp.Height {
		title = fmt.Sprintf("%s  %3.f%%", title, m.vp.ScrollPercent()*100)
	}
	header := titleStyle.Width(innerW).Render(" " + title + " ")

	body := m.vp.View()
	if len(m.lines) == 0 {
		body = th.MutedText.Render("  " + m.empty)
	}

	border := th.Border
	if m.focused {
		border = th.FocusedBorder
	}
	return border.Width(innerW).Height(innerH).Render(lipgloss.JoinVertical(lipgloss.Left, header, body))
}

// SetSize sets the pane dimensions including the border.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	// Border takes two rows and columns, the title one row.
	m.vp.Width = max(width-2, 1)
	m.vp.Height = max(height-3, 1)
}

// Focus focuses the pane.
func (m *Model) Focus() { m.focused = true }

// Blur unfocuses the pane.
func (m *Model) Blur() { m.focused = false }

// Focused returns whether the pane is focused.
func (m Model) Focused() bool { return m.focused }

// AtTop reports whether the pane is scrolled to the top.
func (m Model) AtTop() bool { return m.vp.AtTop() }

// YOffset returns the scroll offset.
func (m Model) YOffset() int { return m.vp.YOffset }
