// Package theme holds the lipgloss styles used by the change report, the
// SQL highlighter and the browser TUI. Every visual element references a
// style in a Theme so the look can be swapped with the theme config key.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme holds lipgloss.Style values for every styled element.
type Theme struct {
	Name string

	// Report markers
	Added    lipgloss.Style
	Removed  lipgloss.Style
	Modified lipgloss.Style
	Field    lipgloss.Style
	Summary  lipgloss.Style

	// SQL syntax highlighting
	SQLKeyword    lipgloss.Style
	SQLString     lipgloss.Style
	SQLNumber     lipgloss.Style
	SQLComment    lipgloss.Style
	SQLOperator   lipgloss.Style
	SQLFunction   lipgloss.Style
	SQLType       lipgloss.Style
	SQLIdentifier lipgloss.Style

	// Browser chrome
	TabActive   lipgloss.Style
	TabInactive lipgloss.Style
	TabBar      lipgloss.Style
	StatusBar   lipgloss.Style
	Border        lipgloss.Style
	FocusedBorder lipgloss.Style
	Selected      lipgloss.Style

	// Dialogs
	DialogBorder   lipgloss.Style
	DialogTitle    lipgloss.Style
	ButtonActive   lipgloss.Style
	ButtonInactive lipgloss.Style

	// General
	ErrorText   lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	MutedText   lipgloss.Style
}

// palette lists the colors a theme is built from.
type palette struct {
	name       string
	fg, bg     string
	barBg      string
	accent     string
	muted      string
	border     string
	added      string
	removed    string
	modified   string
	str        string
	number     string
	comment    string
	function   string
	typ        string
	identifier string
}

func (p palette) theme() *Theme {
	c := func(s string) lipgloss.Color { return lipgloss.Color(s) }
	return &Theme{
		Name: p.name,

		Added:    lipgloss.NewStyle().Foreground(c(p.added)),
		Removed:  lipgloss.NewStyle().Foreground(c(p.removed)),
		Modified: lipgloss.NewStyle().Foreground(c(p.modified)),
		Field:    lipgloss.NewStyle().Foreground(c(p.muted)),
		Summary:  lipgloss.NewStyle().Bold(true).Foreground(c(p.accent)),

		SQLKeyword:    lipgloss.NewStyle().Bold(true).Foreground(c(p.accent)),
		SQLString:     lipgloss.NewStyle().Foreground(c(p.str)),
		SQLNumber:     lipgloss.NewStyle().Foreground(c(p.number)),
		SQLComment:    lipgloss.NewStyle().Italic(true).Foreground(c(p.comment)),
		SQLOperator:   lipgloss.NewStyle().Foreground(c(p.fg)),
		SQLFunction:   lipgloss.NewStyle().Foreground(c(p.function)),
		SQLType:       lipgloss.NewStyle().Foreground(c(p.typ)),
		SQLIdentifier: lipgloss.NewStyle().Foreground(c(p.identifier)),

		TabActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.fg)).
			Background(c(p.bg)).
			PaddingLeft(1).
			PaddingRight(1),
		TabInactive: lipgloss.NewStyle().
			Foreground(c(p.muted)).
			Background(c(p.barBg)).
			PaddingLeft(1).
			PaddingRight(1),
		TabBar: lipgloss.NewStyle().
			Background(c(p.barBg)),
		StatusBar: lipgloss.NewStyle().
			Foreground(c(p.fg)).
			Background(c(p.barBg)),
		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(c(p.border)),
		FocusedBorder: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(c(p.accent)),
		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.bg)).
			Background(c(p.accent)),

		DialogBorder: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(c(p.accent)).
			Padding(0, 1),
		DialogTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.accent)),
		ButtonActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(c(p.bg)).
			Background(c(p.accent)).
			Padding(0, 2),
		ButtonInactive: lipgloss.NewStyle().
			Foreground(c(p.fg)).
			Background(c(p.barBg)).
			Padding(0, 2),

		ErrorText:   lipgloss.NewStyle().Foreground(c(p.removed)),
		SuccessText: lipgloss.NewStyle().Foreground(c(p.added)),
		WarningText: lipgloss.NewStyle().Foreground(c(p.modified)),
		MutedText:   lipgloss.NewStyle().Foreground(c(p.muted)),
	}
}

// ---------------------------------------------------------------------------
// Theme definitions
// ---------------------------------------------------------------------------

func newDefaultTheme() *Theme {
	return palette{
		name: "default", fg: "#D4D4D4", bg: "#1E1E1E", barBg: "#252526",
		accent: "#569CD6", muted: "#808080", border: "#3C3C3C",
		added: "#6A9955", removed: "#F44747", modified: "#DCDCAA",
		str: "#CE9178", number: "#B5CEA8", comment: "#6A9955",
		function: "#DCDCAA", typ: "#4EC9B0", identifier: "#9CDCFE",
	}.theme()
}

func newLightTheme() *Theme {
	return palette{
		name: "light", fg: "#1E1E1E", bg: "#FFFFFF", barBg: "#F3F3F3",
		accent: "#0000FF", muted: "#A0A0A0", border: "#D4D4D4",
		added: "#098658", removed: "#CD3131", modified: "#795E26",
		str: "#A31515", number: "#098658", comment: "#008000",
		function: "#795E26", typ: "#267F99", identifier: "#001080",
	}.theme()
}

func newMonokaiTheme() *Theme {
	return palette{
		name: "monokai", fg: "#F8F8F2", bg: "#272822", barBg: "#3E3D32",
		accent: "#F92672", muted: "#75715E", border: "#49483E",
		added: "#A6E22E", removed: "#F92672", modified: "#E6DB74",
		str: "#E6DB74", number: "#AE81FF", comment: "#75715E",
		function: "#A6E22E", typ: "#66D9EF", identifier: "#F8F8F2",
	}.theme()
}

// newPlainTheme has no colors at all. It is used for --no-color and when
// output is not a terminal.
func newPlainTheme() *Theme {
	s := lipgloss.NewStyle()
	return &Theme{
		Name: "plain",

		Added:    s,
		Removed:  s,
		Modified: s,
		Field:    s,
		Summary:  s,

		SQLKeyword:    s,
		SQLString:     s,
		SQLNumber:     s,
		SQLComment:    s,
		SQLOperator:   s,
		SQLFunction:   s,
		SQLType:       s,
		SQLIdentifier: s,

		TabActive:     s.Bold(true).PaddingLeft(1).PaddingRight(1),
		TabInactive:   s.PaddingLeft(1).PaddingRight(1),
		TabBar:        s,
		StatusBar:     s,
		Border:        s.BorderStyle(lipgloss.NormalBorder()),
		FocusedBorder: s.BorderStyle(lipgloss.ThickBorder()),
		Selected:      s.Reverse(true),

		DialogBorder:   s.BorderStyle(lipgloss.NormalBorder()).Padding(0, 1),
		DialogTitle:    s.Bold(true),
		ButtonActive:   s.Reverse(true).Padding(0, 2),
		ButtonInactive: s.Padding(0, 2),

		ErrorText:   s,
		SuccessText: s,
		WarningText: s,
		MutedText:   s,
	}
}

// ---------------------------------------------------------------------------
// Registry and accessors
// ---------------------------------------------------------------------------

// Themes maps theme names to their Theme definitions.
var Themes = map[string]*Theme{
	"default": newDefaultTheme(),
	"light":   newLightTheme(),
	"monokai": newMonokaiTheme(),
	"plain":   newPlainTheme(),
}

// Current is the theme the browser renders with. It is set once at startup.
var Current = Default()

// Default returns the default dark theme.
func Default() *Theme {
	return Themes["default"]
}

// Plain returns the colorless theme.
func Plain() *Theme {
	return Themes["plain"]
}

// Get returns the theme identified by name. If no theme with that name exists
// it falls back to the default theme.
func Get(name string) *Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return Default()
}

// Marker returns the style for a report marker ("+", "-" or "~").
func (t *Theme) Marker(marker string) lipgloss.Style {
	switch marker {
	case "+":
		return t.Added
	case "-":
		return t.Removed
	case "~":
		return t.Modified
	}
	return t.MutedText
}
