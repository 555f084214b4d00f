package sidebar

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/catalogsync/internal/diff"
	appmsg "github.com/sadopc/catalogsync/internal/msg"
	"github.com/sadopc/catalogsync/internal/theme"
)

func init() {
	theme.Current = theme.Default()
}

func keyMsg(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func specialKeyMsg(keyType tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: keyType}
}

func sampleDiff() *diff.CatalogDiff {
	return &diff.CatalogDiff{
		Name: "prod",
		Schemas: []diff.SchemaDiff{
			{Name: "audit", Status: diff.Added},
			{Name: "sales", Status: diff.Modified, Tables: []diff.TableDiff{
				{Name: "orders", Status: diff.Modified},
				{Name: "refunds", Status: diff.Removed},
			}},
		},
	}
}

func TestNew(t *testing.T) {
	m := New()

	if len(m.nodes) != 0 || len(m.flat) != 0 {
		t.Fatalf("expected empty tree, got %d nodes", len(m.nodes))
	}
	if m.Focused() {
		t.Fatal("expected focused=false")
	}
	if m.Selected() != nil {
		t.Fatal("Selected() on empty tree should be nil")
	}
}

func TestSetDiff(t *testing.T) {
	m := New()
	m.SetDiff(sampleDiff())

	// Catalog root expanded; schemas collapsed because there are two.
	if len(m.flat) != 3 {
		t.Fatalf("expected 3 visible nodes, got %d", len(m.flat))
	}
	if m.flat[0].Kind != NodeCatalog || m.flat[1].Label != "audit" || m.flat[2].Label != "sales" {
		t.Fatalf("unexpected flat order: %q %q %q", m.flat[0].Label, m.flat[1].Label, m.flat[2].Label)
	}
	if len(m.flat[2].Children) != 2 {
		t.Fatalf("sales should have 2 table children, got %d", len(m.flat[2].Children))
	}
}

func TestSetDiff_NoChanges(t *testing.T) {
	m := New()
	m.SetDiff(&diff.CatalogDiff{Name: "prod"})
	if len(m.flat) != 0 {
		t.Fatalf("expected empty tree for an unchanged catalog, got %d", len(m.flat))
	}
	m.SetDiff(nil)
	if len(m.flat) != 0 {
		t.Fatal("expected empty tree for nil diff")
	}
}

func TestSingleSchemaExpanded(t *testing.T) {
	d := sampleDiff()
	d.Schemas = d.Schemas[1:]
	m := New()
	m.SetDiff(d)
	if len(m.flat) != 4 {
		t.Fatalf("single schema should auto-expand: got %d visible nodes", len(m.flat))
	}
}

func TestNavigation(t *testing.T) {
	m := New()
	m.SetDiff(sampleDiff())
	m.SetSize(30, 20)

	// Unfocused sidebar ignores keys.
	m, _ = m.Update(keyMsg("j"))
	if m.cursor != 0 {
		t.Fatalf("unfocused sidebar moved cursor to %d", m.cursor)
	}

	m.Focus()
	m, _ = m.Update(keyMsg("j"))
	m, _ = m.Update(specialKeyMsg(tea.KeyDown))
	if m.cursor != 2 {
		t.Fatalf("expected cursor=2, got %d", m.cursor)
	}
	m, _ = m.Update(keyMsg("j"))
	if m.cursor != 2 {
		t.Fatalf("cursor should stop at the last node, got %d", m.cursor)
	}
	m, _ = m.Update(keyMsg("k"))
	if m.cursor != 1 {
		t.Fatalf("expected cursor=1, got %d", m.cursor)
	}
	m, _ = m.Update(keyMsg("G"))
	if m.cursor != 2 {
		t.Fatalf("G should jump to the end, got %d", m.cursor)
	}
	m, _ = m.Update(keyMsg("g"))
	if m.cursor != 0 {
		t.Fatalf("g should jump to the top, got %d", m.cursor)
	}
}

func TestEnterSelectsSchema(t *testing.T) {
	m := New()
	m.SetDiff(sampleDiff())
	m.SetSize(30, 20)
	m.Focus()

	m, _ = m.Update(keyMsg("G"))
	m, cmd := m.Update(specialKeyMsg(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("enter should return a command")
	}
	sel, ok := cmd().(appmsg.SelectSchemaMsg)
	if !ok || sel.Schema != "sales" {
		t.Fatalf("command = %#v, want SelectSchemaMsg{sales}", cmd())
	}
	// The schema expanded to show its tables.
	if len(m.flat) != 5 {
		t.Fatalf("expected 5 visible nodes after expanding, got %d", len(m.flat))
	}

	// Selecting a table narrows to its schema.
	m, _ = m.Update(keyMsg("j"))
	_, cmd = m.Update(specialKeyMsg(tea.KeyEnter))
	if sel := cmd().(appmsg.SelectSchemaMsg); sel.Schema != "sales" {
		t.Fatalf("table select = %q, want sales", sel.Schema)
	}

	// Collapse with h from the schema node.
	m, _ = m.Update(keyMsg("k"))
	m, _ = m.Update(keyMsg("h"))
	if len(m.flat) != 3 {
		t.Fatalf("expected 3 visible nodes after collapsing, got %d", len(m.flat))
	}

	// The catalog root selects everything.
	m, _ = m.Update(keyMsg("g"))
	_, cmd = m.Update(specialKeyMsg(tea.KeyEnter))
	if sel := cmd().(appmsg.SelectSchemaMsg); sel.Schema != "" {
		t.Fatalf("catalog select = %q, want empty", sel.Schema)
	}
}

func TestView(t *testing.T) {
	m := New()
	if m.View() != "" {
		t.Fatal("View() with zero size should be empty")
	}

	m.SetSize(30, 10)
	if out := m.View(); !strings.Contains(out, "No differences.") {
		t.Errorf("empty View() = %q", out)
	}

	m.SetDiff(sampleDiff())
	out := m.View()
	for _, want := range []string{"Changes", "prod (2 schemas)", "+ audit", "~ sales"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q:\n%s", want, out)
		}
	}
}

func TestFocusBlur(t *testing.T) {
	m := New()
	m.Focus()
	if !m.Focused() {
		t.Fatal("expected focused after Focus()")
	}
	m.Blur()
	if m.Focused() {
		t.Fatal("expected unfocused after Blur()")
	}
}
