// Package msg holds the messages exchanged between the browser's
// components.
package msg

import (
	"time"

	"github.com/sadopc/catalogsync/internal/history"
)

// Pane focus targets.
type Pane int

const (
	PaneSidebar Pane = iota
	PaneContent
)

func (p Pane) String() string {
	if p == PaneSidebar {
		return "sidebar"
	}
	return "content"
}

// View is one of the browser's content tabs.
type View int

const (
	ViewReport View = iota
	ViewSQL
	ViewHistory
)

// Views lists every view in tab order.
var Views = []View{ViewReport, ViewSQL, ViewHistory}

func (v View) String() string {
	switch v {
	case ViewSQL:
		return "SQL"
	case ViewHistory:
		return "History"
	default:
		return "Report"
	}
}

// FocusMsg requests a pane focus change.
type FocusMsg struct {
	Pane Pane
}

// SwitchViewMsg requests switching the content tab.
type SwitchViewMsg struct {
	View View
}

// SelectSchemaMsg narrows the report and SQL views to one schema. An empty
// Schema shows the whole catalog.
type SelectSchemaMsg struct {
	Schema string
}

// ToggleDropMsg flips whether destructive statements are emitted live or
// commented out.
type ToggleDropMsg struct{}

// WriteSQLMsg requests writing the SQL view to Path.
type WriteSQLMsg struct {
	Path string
}

// WriteDoneMsg is sent when the SQL file has been written.
type WriteDoneMsg struct {
	Path       string
	Statements int
}

// WriteErrMsg is sent when writing the SQL file fails.
type WriteErrMsg struct {
	Err error
}

// HistoryLoadedMsg carries runs read from the history database.
type HistoryLoadedMsg struct {
	Runs []history.Run
}

// HistoryErrMsg is sent when the history database cannot be read.
type HistoryErrMsg struct {
	Err error
}

// StatusMsg updates the status bar text.
type StatusMsg struct {
	Text     string
	IsError  bool
	Duration time.Duration
}
