package sidebar

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/catalogsync/internal/diff"
	appmsg "github.com/sadopc/catalogsync/internal/msg"
	"github.com/sadopc/catalogsync/internal/theme"
)

// NodeKind represents the type of tree node.
type NodeKind int

const (
	NodeCatalog NodeKind = iota
	NodeSchema
	NodeTable
)

// TreeNode is one changed object in the diff tree.
type TreeNode struct {
	Label    string
	Kind     NodeKind
	Status   diff.Status
	Children []*TreeNode
	Expanded bool
	Depth    int

	Schema string
	Table  string
}

// Model is the change tree sidebar.
type Model struct {
	nodes   []*TreeNode
	flat    []*TreeNode // flattened visible nodes
	cursor  int
	offset  int
	width   int
	height  int
	focused bool
}

// New creates a new sidebar.
func New() Model {
	return Model{}
}

// Init returns no initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetDiff rebuilds the tree from d.
func (m *Model) SetDiff(d *diff.CatalogDiff) {
	m.nodes = buildTree(d)
	m.flatten()
}

// Update handles sidebar messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok || !m.focused {
		return m, nil
	}
	switch km.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.ensureVisible()
		}
	case "down", "j":
		if m.cursor < len(m.flat)-1 {
			m.cursor++
			m.ensureVisible()
		}
	case "enter", "right", "l":
		return m, m.toggleOrSelect()
	case "left", "h":
		if m.cursor < len(m.flat) {
			node := m.flat[m.cursor]
			if node.Expanded && node.Kind != NodeCatalog {
				node.Expanded = false
				m.flatten()
			}
		}
	case "home", "g":
		m.cursor = 0
		m.offset = 0
	case "end", "G":
		m.cursor = max(len(m.flat)-1, 0)
		m.ensureVisible()
	}
	return m, nil
}

// View renders the sidebar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	th := theme.Current

	// Account for border (left + right = 2, top + bottom = 2).
	innerW := max(m.width-2, 1)
	innerH := max(m.height-2, 1)

	titleStyle := th.MutedText
	if m.focused {
		titleStyle = th.DialogTitle
	}
	titleLine := titleStyle.Width(innerW).Render(" Changes ")

	if len(m.flat) == 0 {
		content := titleLine + "\n\n  No differences."
		return m.borderStyle().Width(innerW).Height(innerH).Render(content)
	}

	// Render visible nodes: innerH - 1 for the title line.
	contentHeight := max(innerH-1, 1)
	end := min(m.offset+contentHeight, len(m.flat))

	var lines []string
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderNode(m.flat[i], i == m.cursor, th))
	}

	content := titleLine + "\n" + strings.Join(lines, "\n")
	return m.borderStyle().Width(innerW).Height(innerH).Render(content)
}

func (m Model) renderNode(node *TreeNode, selected bool, th *theme.Theme) string {
	indent := strings.Repeat("  ", node.Depth)

	expandIcon := "  "
	if len(node.Children) > 0 {
		if node.Expanded {
			expandIcon = "▼ "
		} else {
			expandIcon = "▶ "
		}
	}

	marker := node.Status.Marker()
	if node.Kind == NodeCatalog {
		marker = " "
	}
	line := indent + expandIcon + marker + " " + node.Label

	// Truncate and pad to width
	maxW := max(m.width-4, 2)
	if lipgloss.Width(line) > maxW {
		r := []rune(line)
		if len(r) > maxW-1 {
			r = r[:maxW-1]
		}
		line = string(r) + "…"
	}
	if pad := maxW - lipgloss.Width(line); pad > 0 {
		line += strings.Repeat(" ", pad)
	}

	if selected {
		return th.Selected.Render(line)
	}
	if node.Kind == NodeCatalog {
		return th.Summary.Render(line)
	}
	return th.Marker(marker).Render(line)
}

func (m Model) borderStyle() lipgloss.Style {
	th := theme.Current
	if m.focused {
		return th.FocusedBorder
	}
	return th.Border
}

// toggleOrSelect expands or collapses a schema and narrows the content
// views to the node's schema. The catalog node selects everything.
func (m *Model) toggleOrSelect() tea.Cmd {
	if m.cursor >= len(m.flat) {
		return nil
	}
	node := m.flat[m.cursor]

	if node.Kind == NodeSchema && len(node.Children) > 0 {
		node.Expanded = !node.Expanded
		m.flatten()
	}

	name := node.Schema
	return func() tea.Msg {
		return appmsg.SelectSchemaMsg{Schema: name}
	}
}

// Selected returns the node under the cursor, or nil.
func (m Model) Selected() *TreeNode {
	if m.cursor < len(m.flat) {
		return m.flat[m.cursor]
	}
	return nil
}

func (m *Model) flatten() {
	m.flat = nil
	for _, node := range m.nodes {
		m.flattenNode(node)
	}
	if m.cursor >= len(m.flat) {
		m.cursor = len(m.flat) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) flattenNode(node *TreeNode) {
	m.flat = append(m.flat, node)
	if node.Expanded {
		for _, child := range node.Children {
			m.flattenNode(child)
		}
	}
}

func (m *Model) ensureVisible() {
	contentHeight := max(m.height-3, 1)
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+contentHeight {
		m.offset = m.cursor - contentHeight + 1
	}
}

// SetSize sets the sidebar dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Focus focuses the sidebar.
func (m *Model) Focus() { m.focused = true }

// Blur unfocuses the sidebar.
func (m *Model) Blur() { m.focused = false }

// Focused returns whether the sidebar is focused.
func (m Model) Focused() bool { return m.focused }

// buildTree returns a catalog root holding one node per changed schema and,
// below each, one node per changed table. A diff without changes yields no
// nodes.
func buildTree(d *diff.CatalogDiff) []*TreeNode {
	if d == nil || !d.HasChanges() {
		return nil
	}
	root := &TreeNode{
		Label:    fmt.Sprintf("%s (%d schemas)", d.Name, len(d.Schemas)),
		Kind:     NodeCatalog,
		Status:   diff.Modified,
		Expanded: true,
	}
	for _, s := range d.Schemas {
		sn := &TreeNode{
			Label:    s.Name,
			Kind:     NodeSchema,
			Status:   s.Status,
			Depth:    1,
			Schema:   s.Name,
			Expanded: len(d.Schemas) == 1,
		}
		for _, t := range s.Tables {
			sn.Children = append(sn.Children, &TreeNode{
				Label:  t.Name,
				Kind:   NodeTable,
				Status: t.Status,
				Depth:  2,
				Schema: s.Name,
				Table:  t.Name,
			})
		}
		root.Children = append(root.Children, sn)
	}
	return []*TreeNode{root}
}
