// Package highlight colors generated SQL for terminal output.
package highlight

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/catalogsync/internal/theme"
)

// Highlighter tokenises SQL text using chroma and renders it with lipgloss
// styles from a theme.
type Highlighter struct {
	lexer chroma.Lexer
}

// lexerNames maps adapter names to chroma lexers. Databricks SQL quotes
// identifiers with backticks like MySQL does.
var lexerNames = map[string]string{
	"databricks": "MySQL",
	"mysql":      "MySQL",
	"postgres":   "PostgreSQL",
	"sqlite":     "SQL",
	"duckdb":     "PostgreSQL",
}

// New creates a Highlighter for the SQL dialect of the named adapter. Unknown
// dialects use the generic SQL lexer.
func New(dialect string) *Highlighter {
	var l chroma.Lexer
	if name, ok := lexerNames[dialect]; ok {
		l = lexers.Get(name)
	}
	if l == nil {
		l = lexers.Get("SQL")
	}
	if l == nil {
		l = lexers.Fallback
	}
	return &Highlighter{lexer: chroma.Coalesce(l)}
}

// Highlight tokenises sql and styles each token from th. Newlines are
// emitted unstyled so multi-line statements keep their shape. A nil theme
// returns sql unchanged.
func (h *Highlighter) Highlight(sql string, th *theme.Theme) string {
	if th == nil {
		return sql
	}

	iter, err := h.lexer.Tokenise(nil, sql)
	if err != nil {
		return sql
	}

	var b strings.Builder
	b.Grow(len(sql) * 2)

	for _, tok := range iter.Tokens() {
		if tok.Value == "" {
			continue
		}
		style, ok := styleFor(tok.Type, th)
		if !ok {
			b.WriteString(tok.Value)
			continue
		}
		for i, line := range strings.Split(tok.Value, "\n") {
			if i > 0 {
				b.WriteByte('\n')
			}
			if line != "" {
				b.WriteString(style.Render(line))
			}
		}
	}
	return b.String()
}

// Lines highlights each statement and returns them in order.
func (h *Highlighter) Lines(stmts []string, th *theme.Theme) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = h.Highlight(s, th)
	}
	return out
}

// styleFor maps a chroma token type to a theme style. The second return
// value is false for tokens that pass through unstyled.
func styleFor(tt chroma.TokenType, th *theme.Theme) (lipgloss.Style, bool) {
	switch {
	// KeywordType is a Keyword subtype; SQL types get their own color.
	case tt == chroma.KeywordType || tt == chroma.NameBuiltin:
		return th.SQLType, true
	case tt == chroma.NameFunction:
		return th.SQLFunction, true
	case tt.InCategory(chroma.Keyword):
		return th.SQLKeyword, true
	case tt == chroma.LiteralStringBacktick || tt.InCategory(chroma.Name):
		return th.SQLIdentifier, true
	case tt.InSubCategory(chroma.LiteralString):
		return th.SQLString, true
	case tt.InSubCategory(chroma.LiteralNumber):
		return th.SQLNumber, true
	case tt.InCategory(chroma.Comment):
		return th.SQLComment, true
	case tt.InCategory(chroma.Operator):
		return th.SQLOperator, true
	default:
		return lipgloss.Style{}, false
	}
}
