// Package app is the interactive diff browser: a schema tree on the left and
// the report, migration SQL and run history as tabs on the right.
package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/catalogsync/internal/audit"
	"github.com/sadopc/catalogsync/internal/diff"
	"github.com/sadopc/catalogsync/internal/highlight"
	appmsg "github.com/sadopc/catalogsync/internal/msg"
	"github.com/sadopc/catalogsync/internal/report"
	"github.com/sadopc/catalogsync/internal/snapshot"
	"github.com/sadopc/catalogsync/internal/sqlgen"
	"github.com/sadopc/catalogsync/internal/theme"
	"github.com/sadopc/catalogsync/internal/ui/dialog"
	"github.com/sadopc/catalogsync/internal/ui/historybrowser"
	"github.com/sadopc/catalogsync/internal/ui/sidebar"
	"github.com/sadopc/catalogsync/internal/ui/statusbar"
	"github.com/sadopc/catalogsync/internal/ui/tabs"
	"github.com/sadopc/catalogsync/internal/ui/viewer"
)

// DefaultSQLDir is where the browser writes migration files unless told
// otherwise.
const DefaultSQLDir = "sql"

// Options configures a browser session.
type Options struct {
	Catalog string
	// Source is the display form of the live side, shown in the status bar.
	Source string
	// Dialect picks the SQL highlighter lexer.
	Dialect string
	// Diff is the live-vs-stored diff shown in the report and tree.
	Diff *diff.CatalogDiff
	// Migration is the diff SQL is generated from. Nil means Diff.
	Migration *diff.CatalogDiff
	// Target names the side the SQL applies to, for the audit log.
	Target    string
	AllowDrop bool
	SQLDir    string
	Theme     string

	History historybrowser.Store
	Audit   *audit.Logger
	Adapter string
	DSN     string
}

// Model is the root browser model.
type Model struct {
	// Layout
	width        int
	height       int
	sidebarWidth int
	showSidebar  bool

	// Focus
	focusedPane appmsg.Pane

	// Components
	sidebar   sidebar.Model
	tabs      tabs.Model
	statusbar statusbar.Model
	report    viewer.Model
	sql       viewer.Model
	history   historybrowser.Model
	confirm   dialog.Model
	help      help.Model

	opts        Options
	highlighter *highlight.Highlighter
	keyMap      KeyMap

	// State
	schema    string // selected schema, "" for the whole catalog
	allowDrop bool
	showHelp  bool
	quitting  bool
}

// New creates the browser model.
func New(opts Options) Model {
	if opts.Diff == nil {
		opts.Diff = &diff.CatalogDiff{Name: opts.Catalog}
	}
	if opts.Migration == nil {
		opts.Migration = opts.Diff
	}
	if opts.SQLDir == "" {
		opts.SQLDir = DefaultSQLDir
	}
	if opts.Theme != "" {
		theme.Current = theme.Get(opts.Theme)
	}

	m := Model{
		sidebarWidth: 30,
		showSidebar:  true,
		focusedPane:  appmsg.PaneSidebar,

		sidebar:   sidebar.New(),
		tabs:      tabs.New(),
		statusbar: statusbar.New(),
		report:    viewer.New("Report", "No differences found."),
		sql:       viewer.New("SQL", "No statements to generate."),
		history:   historybrowser.New(opts.History),
		help:      help.New(),

		opts:        opts,
		highlighter: highlight.New(opts.Dialect),
		keyMap:      DefaultKeyMap(),
		allowDrop:   opts.AllowDrop,
	}
	m.confirm = m.writeDialog()

	m.sidebar.SetDiff(opts.Diff)
	m.sidebar.Focus()
	m.statusbar.SetTarget(opts.Catalog, opts.Source)
	m.statusbar.SetAllowDrop(opts.AllowDrop)
	m.refresh()
	return m
}

// Run starts the browser on the alternate screen and blocks until it exits.
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("browser: %w", err)
	}
	return nil
}

// Init loads the run history.
func (m Model) Init() tea.Cmd {
	return m.history.Load()
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		// The confirm dialog takes priority
		if m.confirm.Visible() {
			var cmd tea.Cmd
			m.confirm, cmd = m.confirm.Update(msg)
			return m, cmd
		}

		// Help overlay consumes all keys except close
		if m.showHelp {
			if key.Matches(msg, m.keyMap.Help) || msg.String() == "esc" || msg.String() == "q" {
				m.showHelp = false
			}
			return m, nil
		}

		// Typing into the history search box
		if m.focusedPane == appmsg.PaneContent && m.tabs.Active() == appmsg.ViewHistory && m.history.Searching() {
			var cmd tea.Cmd
			m.history, cmd = m.history.Update(msg)
			return m, cmd
		}

		if cmd, handled := m.handleGlobalKeys(msg); handled {
			return m, cmd
		}
		return m, m.handleFocusedPaneKey(msg)

	case tea.MouseMsg:
		return m, m.handleFocusedPaneKey(msg)

	case appmsg.SwitchViewMsg:
		m.tabs, _ = m.tabs.Update(msg)
		m.focusContentView()
		if msg.View == appmsg.ViewHistory {
			cmds = append(cmds, m.history.Load())
		}

	case appmsg.FocusMsg:
		m.setFocus(msg.Pane)

	case appmsg.SelectSchemaMsg:
		m.schema = msg.Schema
		m.refresh()

	case appmsg.ToggleDropMsg:
		m.allowDrop = !m.allowDrop
		var cmd tea.Cmd
		m.statusbar, cmd = m.statusbar.Update(msg)
		cmds = append(cmds, cmd)
		m.refresh()

	case appmsg.WriteSQLMsg:
		return m, m.writeSQL(msg.Path)

	case appmsg.WriteDoneMsg, appmsg.WriteErrMsg, appmsg.StatusMsg, statusbar.ClearStatusMsg:
		var cmd tea.Cmd
		m.statusbar, cmd = m.statusbar.Update(msg)
		cmds = append(cmds, cmd)

	case appmsg.HistoryLoadedMsg:
		m.history, _ = m.history.Update(msg)
		m.tabs.SetCount(appmsg.ViewHistory, len(msg.Runs))

	case appmsg.HistoryErrMsg:
		m.history, _ = m.history.Update(msg)
		var cmd tea.Cmd
		m.statusbar, cmd = m.statusbar.Update(msg)
		cmds = append(cmds, cmd)

	default:
		// Cursor blink and friends
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		cmds = append(cmds, cmd)
		m.confirm, cmd = m.confirm.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleGlobalKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	km := m.keyMap
	switch {
	case key.Matches(msg, km.Quit):
		m.quitting = true
		return tea.Quit, true

	case key.Matches(msg, km.Help):
		m.showHelp = !m.showHelp
		return nil, true

	case key.Matches(msg, km.NextView):
		return m.tabs.NextTab(), true

	case key.Matches(msg, km.PrevView):
		return m.tabs.PrevTab(), true

	case key.Matches(msg, km.ViewReport):
		return switchView(appmsg.ViewReport), true

	case key.Matches(msg, km.ViewSQL):
		return switchView(appmsg.ViewSQL), true

	case key.Matches(msg, km.ViewHistory):
		return switchView(appmsg.ViewHistory), true

	case key.Matches(msg, km.FocusSidebar):
		if m.showSidebar {
			m.setFocus(appmsg.PaneSidebar)
		}
		return nil, true

	case key.Matches(msg, km.FocusContent):
		m.setFocus(appmsg.PaneContent)
		return nil, true

	case key.Matches(msg, km.ToggleSidebar):
		m.showSidebar = !m.showSidebar
		if !m.showSidebar {
			m.setFocus(appmsg.PaneContent)
		}
		m.updateLayout()
		return nil, true

	case key.Matches(msg, km.ResizeLeft):
		if m.sidebarWidth > 15 {
			m.sidebarWidth -= 2
			m.updateLayout()
		}
		return nil, true

	case key.Matches(msg, km.ResizeRight):
		if m.sidebarWidth < m.width/2 {
			m.sidebarWidth += 2
			m.updateLayout()
		}
		return nil, true

	case key.Matches(msg, km.ToggleDrop):
		return func() tea.Msg { return appmsg.ToggleDropMsg{} }, true

	case key.Matches(msg, km.WriteSQL):
		if len(m.sql.Lines()) == 0 {
			return func() tea.Msg { return appmsg.StatusMsg{Text: "nothing to write"} }, true
		}
		m.confirm = m.writeDialog()
		m.confirm.SetSize(m.width, m.height)
		m.confirm.Show()
		return nil, true
	}
	return nil, false
}

func (m *Model) handleFocusedPaneKey(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if m.focusedPane == appmsg.PaneSidebar {
		m.sidebar, cmd = m.sidebar.Update(msg)
		return cmd
	}
	switch m.tabs.Active() {
	case appmsg.ViewSQL:
		m.sql, cmd = m.sql.Update(msg)
	case appmsg.ViewHistory:
		m.history, cmd = m.history.Update(msg)
	default:
		m.report, cmd = m.report.Update(msg)
	}
	return cmd
}

// View renders the entire browser.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	th := theme.Current

	if m.showHelp {
		m.help.ShowAll = true
		m.help.Width = m.width - 4
		body := th.DialogTitle.Render("catalogsync - Keyboard Shortcuts") + "\n\n" + m.help.View(m.keyMap) +
			"\n\n" + th.MutedText.Render("Press ? / Esc to close")
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, th.DialogBorder.Render(body))
	}

	var content string
	switch m.tabs.Active() {
	case appmsg.ViewSQL:
		content = m.sql.View()
	case appmsg.ViewHistory:
		content = m.history.View()
	default:
		content = m.report.View()
	}
	if m.showSidebar {
		content = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), content)
	}

	view := lipgloss.JoinVertical(lipgloss.Left, m.tabs.View(), content, m.statusbar.View())
	return m.confirm.Overlay(view)
}

func (m *Model) updateLayout() {
	m.tabs.SetSize(m.width)
	m.statusbar.SetSize(m.width)
	m.confirm.SetSize(m.width, m.height)

	mainHeight := max(m.height-2, 3) // tab bar + status bar
	mainWidth := m.width
	if m.showSidebar {
		mainWidth = max(m.width-m.sidebarWidth, 10)
		m.sidebar.SetSize(m.sidebarWidth, mainHeight)
	}
	m.report.SetSize(mainWidth, mainHeight)
	m.sql.SetSize(mainWidth, mainHeight)
	m.history.SetSize(mainWidth, mainHeight)
}

func (m *Model) setFocus(pane appmsg.Pane) {
	m.focusedPane = pane
	m.sidebar.Blur()
	m.report.Blur()
	m.sql.Blur()
	m.history.Blur()
	if pane == appmsg.PaneSidebar {
		m.sidebar.Focus()
		return
	}
	switch m.tabs.Active() {
	case appmsg.ViewSQL:
		m.sql.Focus()
	case appmsg.ViewHistory:
		m.history.Focus()
	default:
		m.report.Focus()
	}
}

// focusContentView moves focus to the active tab when the content pane has
// it, so switching tabs never leaves a hidden view focused.
func (m *Model) focusContentView() {
	if m.focusedPane == appmsg.PaneContent {
		m.setFocus(appmsg.PaneContent)
	}
}

// refresh rebuilds the report and SQL views for the selected schema and the
// current drop mode.
func (m *Model) refresh() {
	th := theme.Current

	d := filterSchema(m.opts.Diff, m.schema)
	lines := report.StyledLines(d, th)
	m.report.SetLines(lines)

	plans := sqlgen.PlanSchemas(m.opts.Catalog, filterSchema(m.opts.Migration, m.schema))
	sqlLines, stmts, destructive := m.sqlLines(plans, th)
	m.sql.SetLines(sqlLines)

	title := func(name string) string {
		if m.schema == "" {
			return name
		}
		return name + ": " + m.schema
	}
	m.report.SetTitle(title("Report"))
	m.sql.SetTitle(title("SQL"))
	m.tabs.SetCount(appmsg.ViewReport, len(lines))
	m.tabs.SetCount(appmsg.ViewSQL, stmts)
	m.statusbar.SetChanges(d.Summary().All(), destructive)
}

func (m *Model) sqlLines(plans []sqlgen.SchemaPlan, th *theme.Theme) (lines []string, stmts, destructive int) {
	opts := sqlgen.Options{AllowDrop: m.allowDrop}
	for i, p := range plans {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, th.SQLComment.Render("-- Schema: "+p.Schema))
		rendered := p.Render(opts)
		lines = append(lines, m.highlighter.Lines(rendered.Statements, th)...)
		stmts += len(p.Statements)
		destructive += sqlgen.CountDestructive(p.Statements)
	}
	return lines, stmts, destructive
}

func (m Model) writeDialog() dialog.Model {
	body := fmt.Sprintf("Write the migration for %s as one .sql file per schema into:", m.opts.Catalog)
	if !m.allowDrop {
		body += "\nDestructive statements will be commented out."
	}
	return dialog.New("Write SQL", body, "Write", func(value string) tea.Msg {
		return appmsg.WriteSQLMsg{Path: value}
	}).WithInput("> ", m.opts.SQLDir)
}

// writeSQL writes the whole catalog's migration, ignoring the schema
// selection, and records each schema in the audit log.
func (m *Model) writeSQL(dir string) tea.Cmd {
	if dir == "" {
		dir = m.opts.SQLDir
	}
	opts := sqlgen.Options{AllowDrop: m.allowDrop}
	plans := sqlgen.PlanSchemas(m.opts.Catalog, m.opts.Migration)
	o := m.opts
	return func() tea.Msg {
		files := make([]snapshot.SQLFile, len(plans))
		total := 0
		for i, p := range plans {
			r := p.Render(opts)
			files[i] = snapshot.SQLFile{Schema: r.Schema, Statements: r.Statements}
			total += len(r.Statements)
		}
		paths, err := snapshot.WriteSQLDir(dir, files)
		if err != nil {
			return appmsg.WriteErrMsg{Err: err}
		}
		for i, p := range plans {
			o.Audit.Log(audit.Entry{
				Command:     "browse",
				Catalog:     o.Catalog,
				Schema:      p.Schema,
				Target:      o.Target,
				Statements:  files[i].Statements,
				Destructive: sqlgen.CountDestructive(p.Statements),
				AllowDrop:   opts.AllowDrop,
				Output:      paths[i],
				Adapter:     o.Adapter,
				DSN:         o.DSN,
			})
		}
		return appmsg.WriteDoneMsg{Path: filepath.Clean(dir), Statements: total}
	}
}

func switchView(v appmsg.View) tea.Cmd {
	return func() tea.Msg { return appmsg.SwitchViewMsg{View: v} }
}

// filterSchema narrows d to one schema. An empty name returns d.
func filterSchema(d *diff.CatalogDiff, name string) *diff.CatalogDiff {
	if name == "" {
		return d
	}
	out := &diff.CatalogDiff{Name: d.Name}
	if s := d.Schema(name); s != nil {
		out.Schemas = []diff.SchemaDiff{*s}
	}
	return out
}

// String renders a one-line description of the session, used in logs.
func (o Options) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "catalog=%s", o.Catalog)
	if o.Source != "" {
		fmt.Fprintf(&b, " source=%s", o.Source)
	}
	if o.Target != "" {
		fmt.Fprintf(&b, " target=%s", o.Target)
	}
	return b.String()
}
