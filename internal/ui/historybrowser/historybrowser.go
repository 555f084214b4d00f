package historybrowser

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/catalogsync/internal/history"
	appmsg "github.com/sadopc/catalogsync/internal/msg"
	"github.com/sadopc/catalogsync/internal/theme"
)

// Store is the part of history.History the browser reads from.
type Store interface {
	Recent(limit int) ([]history.Run, error)
	Search(pattern string, limit int) ([]history.Run, error)
}

// maxRuns caps how many runs are loaded at once.
const maxRuns = 200

// Model lists recorded runs with an incremental search box.
type Model struct {
	store     Store
	runs      []history.Run
	cursor    int
	offset    int // scroll offset
	width     int
	height    int
	focused   bool
	searching bool
	search    textinput.Model
	err       error
}

// New creates a new history browser. A nil store shows an empty list.
func New(store Store) Model {
	ti := textinput.New()
	ti.Placeholder = "Search runs..."
	ti.Prompt = "/ "
	ti.Width = 40
	return Model{
		store:  store,
		search: ti,
	}
}

// Load returns a command that reads runs matching the current search.
func (m Model) Load() tea.Cmd {
	store, text := m.store, m.search.Value()
	return func() tea.Msg {
		if store == nil {
			return appmsg.HistoryLoadedMsg{}
		}
		var (
			runs []history.Run
			err  error
		)
		if text != "" {
			runs, err = store.Search("%"+text+"%", maxRuns)
		} else {
			runs, err = store.Recent(maxRuns)
		}
		if err != nil {
			return appmsg.HistoryErrMsg{Err: err}
		}
		return appmsg.HistoryLoadedMsg{Runs: runs}
	}
}

// Update handles history browser messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case appmsg.HistoryLoadedMsg:
		m.runs = msg.Runs
		m.err = nil
		m.cursor = min(m.cursor, max(len(m.runs)-1, 0))
		m.ensureVisible()
		return m, nil

	case appmsg.HistoryErrMsg:
		m.runs = nil
		m.err = msg.Err
		return m, nil

	case tea.KeyMsg:
		if !m.focused {
			return m, nil
		}
		if m.searching {
			return m.updateSearch(msg)
		}
		switch msg.String() {
		case "/":
			m.searching = true
			m.search.Focus()
			return m, textinput.Blink
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				m.ensureVisible()
			}
		case "down", "j":
			if m.cursor < len(m.runs)-1 {
				m.cursor++
				m.ensureVisible()
			}
		case "pgup":
			m.cursor = max(m.cursor-m.visibleCount(), 0)
			m.ensureVisible()
		case "pgdown":
			m.cursor = max(min(m.cursor+m.visibleCount(), len(m.runs)-1), 0)
			m.ensureVisible()
		case "r":
			return m, m.Load()
		case "enter":
			if m.cursor < len(m.runs) {
				text := Describe(m.runs[m.cursor])
				return m, func() tea.Msg { return appmsg.StatusMsg{Text: text} }
			}
		}
		return m, nil
	}

	// Non-key messages (e.g. blink)
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) updateSearch(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter":
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	prevVal := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != prevVal {
		m.cursor = 0
		m.offset = 0
		return m, tea.Batch(cmd, m.Load())
	}
	return m, cmd
}

// View renders the history list.
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
	title := titleStyle.Render(fmt.Sprintf(" Run History (%d) ", len(m.runs)))
	searchView := " " + m.search.View()

	var lines []string
	switch {
	case m.err != nil:
		lines = append(lines, th.ErrorText.Render("  "+m.err.Error()))
	case len(m.runs) == 0:
		lines = append(lines, th.MutedText.Render("  No runs recorded"))
	default:
		end := min(m.offset+m.visibleCount(), len(m.runs))
		for i := m.offset; i < end; i++ {
			r := m.runs[i]
			line := FormatRun(r, innerW-4)
			switch {
			case i == m.cursor && m.focused:
				lines = append(lines, th.Selected.Render("> "+line))
			case r.IsError:
				lines = append(lines, th.ErrorText.Render("  "+line))
			case r.HasChanges:
				lines = append(lines, th.Modified.Render("  "+line))
			default:
				lines = append(lines, "  "+line)
			}
		}
	}

	help := th.MutedText.Render(" /:search  r:reload  enter:details")

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		searchView,
		strings.Join(lines, "\n"),
		help,
	)

	border := th.Border
	if m.focused {
		border = th.FocusedBorder
	}
	return border.Width(innerW).Height(innerH).Render(content)
}

// SetSize sets the available space.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Focus focuses the list.
func (m *Model) Focus() { m.focused = true }

// Blur unfocuses the list and the search box.
func (m *Model) Blur() {
	m.focused = false
	m.searching = false
	m.search.Blur()
}

// Focused returns whether the list is focused.
func (m Model) Focused() bool { return m.focused }

// Searching reports whether the search box has the keyboard.
func (m Model) Searching() bool { return m.searching }

// Runs returns the loaded runs.
func (m Model) Runs() []history.Run { return m.runs }

// visibleCount returns how many runs fit in the visible area.
func (m Model) visibleCount() int {
	// Title + search + help = 3 lines of chrome, plus 2 for border.
	return max(m.height-5, 3)
}

func (m *Model) ensureVisible() {
	visible := m.visibleCount()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
}

// FormatRun renders a run as a single line of at most maxWidth columns.
func FormatRun(r history.Run, maxWidth int) string {
	head := fmt.Sprintf("%-12s %-16s", r.Command, r.Catalog)

	var meta []string
	if r.IsError {
		meta = append(meta, "error")
	} else if r.HasChanges {
		meta = append(meta, fmt.Sprintf("+%d -%d ~%d", r.Added, r.Removed, r.Modified))
	} else {
		meta = append(meta, "no changes")
	}
	if r.Statements > 0 {
		meta = append(meta, fmt.Sprintf("%d stmts", r.Statements))
	}
	if r.DurationMS > 0 {
		meta = append(meta, formatDuration(r.DurationMS))
	}
	meta = append(meta, RelativeTime(r.ExecutedAt))

	line := head + "  " + strings.Join(meta, " | ")
	if maxWidth > 3 && len(line) > maxWidth {
		line = line[:maxWidth-3] + "..."
	}
	return line
}

// Describe returns a one-line summary of where a run read from.
func Describe(r history.Run) string {
	parts := []string{r.Command, r.Catalog}
	if r.Source != "" {
		parts = append(parts, "source="+r.Source)
	}
	if r.Stored != "" {
		parts = append(parts, "stored="+r.Stored)
	}
	parts = append(parts, r.ExecutedAt.Local().Format(time.DateTime))
	return strings.Join(parts, " ")
}

func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}

// RelativeTime formats a timestamp as a human-readable relative time.
func RelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		return fmt.Sprintf("%dm ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		return fmt.Sprintf("%dh ago", h)
	case d < 48*time.Hour:
		return "yesterday"
	default:
		days := int(d.Hours() / 24)
		return fmt.Sprintf("%dd ago", days)
	}
}
