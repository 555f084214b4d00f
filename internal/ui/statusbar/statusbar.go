package statusbar

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/catalogsync/internal/diff"
	appmsg "github.com/sadopc/catalogsync/internal/msg"
	"github.com/sadopc/catalogsync/internal/theme"
)

// ClearStatusMsg is sent after a timeout to revert the status bar to the
// change summary.
type ClearStatusMsg struct{}

// Model is the status bar component.
type Model struct {
	width       int
	catalog     string
	source      string
	counts      diff.Counts
	destructive int
	allowDrop   bool
	loadTime    time.Duration
	message     string
	isError     bool
}

// New creates a new status bar.
func New() Model {
	return Model{}
}

// Init returns no initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	clearAfter := func() tea.Cmd {
		return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
			return ClearStatusMsg{}
		})
	}

	switch msg := msg.(type) {
	case appmsg.StatusMsg:
		m.message = msg.Text
		m.isError = msg.IsError
		if msg.Duration > 0 {
			m.loadTime = msg.Duration
		}
		return m, clearAfter()

	case appmsg.WriteDoneMsg:
		m.message = fmt.Sprintf("wrote %d statements to %s", msg.Statements, msg.Path)
		m.isError = false
		return m, clearAfter()

	case appmsg.WriteErrMsg:
		if msg.Err != nil {
			m.message = msg.Err.Error()
		} else {
			m.message = "unknown error"
		}
		m.isError = true
		return m, clearAfter()

	case appmsg.HistoryErrMsg:
		m.message = "history: " + msg.Err.Error()
		m.isError = true
		return m, clearAfter()

	case appmsg.ToggleDropMsg:
		m.allowDrop = !m.allowDrop

	case ClearStatusMsg:
		m.message = ""
		m.isError = false
	}

	return m, nil
}

// View renders the status bar.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}

	th := theme.Current

	// Left section: what is being compared
	left := th.Selected.Render(" " + m.location() + " ")

	// Center section: message or change counts
	var center string
	if m.message != "" {
		if m.isError {
			center = th.ErrorText.Render(" " + truncate(m.message, m.width/2) + " ")
		} else {
			center = th.SuccessText.Render(" " + truncate(m.message, m.width/2) + " ")
		}
	} else if m.counts.Total() == 0 {
		center = th.MutedText.Render(" no differences ")
	} else {
		center = th.Added.Render(fmt.Sprintf(" +%d", m.counts.Added)) +
			th.Removed.Render(fmt.Sprintf(" -%d", m.counts.Removed)) +
			th.Modified.Render(fmt.Sprintf(" ~%d ", m.counts.Modified))
	}

	// Right section: drop mode and load time
	drop := "drops off"
	if m.allowDrop {
		drop = "drops ON"
	}
	if m.destructive > 0 {
		drop = fmt.Sprintf("%s (%d)", drop, m.destructive)
	}
	right := th.StatusBar.Render(" " + drop + " ")
	if m.loadTime > 0 {
		right += th.MutedText.Render(" " + formatDuration(m.loadTime) + " ")
	}

	leftW := lipgloss.Width(left)
	centerW := lipgloss.Width(center)
	rightW := lipgloss.Width(right)
	gap := max(m.width-leftW-centerW-rightW, 0)

	leftGap := gap / 2
	rightGap := gap - leftGap

	bar := left +
		th.StatusBar.Render(strings.Repeat(" ", leftGap)) +
		center +
		th.StatusBar.Render(strings.Repeat(" ", rightGap)) +
		right

	return th.StatusBar.Width(m.width).Render(bar)
}

func (m Model) location() string {
	switch {
	case m.catalog == "":
		return "catalogsync"
	case m.source == "":
		return m.catalog
	default:
		return m.catalog + " @ " + m.source
	}
}

// SetSize sets the status bar width.
func (m *Model) SetSize(width int) {
	m.width = width
}

// SetTarget sets the catalog name and the display form of its live source.
func (m *Model) SetTarget(catalog, source string) {
	m.catalog = catalog
	m.source = source
}

// SetChanges updates the change counts and the number of destructive
// statements in the current plan.
func (m *Model) SetChanges(c diff.Counts, destructive int) {
	m.counts = c
	m.destructive = destructive
}

// SetAllowDrop sets the drop mode display.
func (m *Model) SetAllowDrop(allow bool) {
	m.allowDrop = allow
}

// AllowDrop reports the drop mode shown.
func (m Model) AllowDrop() bool {
	return m.allowDrop
}

// Message returns the current status message, if any.
func (m Model) Message() (string, bool) {
	return m.message, m.isError
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func truncate(s string, maxLen int) string {
	if maxLen <= 3 {
		return s
	}
	if len(s) > maxLen {
		return s[:maxLen-3] + "..."
	}
	return s
}
