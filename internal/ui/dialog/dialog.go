// Package dialog implements the confirmation prompt shown before the browser
// writes a migration file.
package dialog

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/catalogsync/internal/theme"
)

// ConfirmFunc builds the message sent when the dialog is confirmed. value is
// the text of the input field, or "" when the dialog has none.
type ConfirmFunc func(value string) tea.Msg

// Model is a modal confirm/cancel dialog with an optional input field.
type Model struct {
	title     string
	body      string
	confirm   string
	onConfirm ConfirmFunc
	hasInput  bool
	input     textinput.Model
	active    int // 0 = confirm, 1 = cancel
	visible   bool
	width     int
	height    int
	maxWidth  int
}

// New creates a hidden dialog. confirm labels the confirming button.
func New(title, body, confirm string, onConfirm ConfirmFunc) Model {
	return Model{
		title:     title,
		body:      body,
		confirm:   confirm,
		onConfirm: onConfirm,
		maxWidth:  60,
	}
}

// WithInput adds a single-line input prefilled with value.
func (m Model) WithInput(prompt, value string) Model {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.SetValue(value)
	ti.CharLimit = 512
	ti.Width = m.maxWidth - 8
	m.input = ti
	m.hasInput = true
	return m
}

// Update handles dialog messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.hasInput {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	switch key.String() {
	case "esc":
		m.Hide()
		return m, nil
	case "tab", "shift+tab":
		m.active = 1 - m.active
		return m, nil
	case "enter":
		m.Hide()
		if m.active != 0 || m.onConfirm == nil {
			return m, nil
		}
		value := m.Value()
		onConfirm := m.onConfirm
		return m, func() tea.Msg { return onConfirm(value) }
	}

	if m.hasInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(key)
		return m, cmd
	}
	switch key.String() {
	case "left", "h", "y":
		m.active = 0
	case "right", "l", "n":
		m.active = 1
	}
	return m, nil
}

// View renders the dialog box.
func (m Model) View() string {
	if !m.visible {
		return ""
	}

	th := theme.Current
	innerW := max(m.maxWidth-4, 10)

	title := th.DialogTitle.Render(m.title)
	body := lipgloss.NewStyle().Width(innerW).Render(m.body)

	parts := []string{title, "", body}
	if m.hasInput {
		parts = append(parts, "", m.input.View())
	}

	labels := []string{m.confirm, "Cancel"}
	btns := make([]string, len(labels))
	for i, label := range labels {
		style := th.ButtonInactive
		if i == m.active {
			style = th.ButtonActive
		}
		btns[i] = style.Render(label)
	}
	buttonRow := lipgloss.JoinHorizontal(lipgloss.Center, strings.Join(btns, "  "))
	buttonRow = lipgloss.NewStyle().Width(innerW).Align(lipgloss.Center).Render(buttonRow)
	parts = append(parts, "", buttonRow)

	return th.DialogBorder.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// Overlay renders the dialog centered in the available space in place of
// background. A hidden dialog returns background unchanged.
func (m Model) Overlay(background string) string {
	if !m.visible {
		return background
	}
	w, h := m.width, m.height
	if w == 0 || h == 0 {
		w, h = lipgloss.Width(background), lipgloss.Height(background)
	}
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, m.View())
}

// Show makes the dialog visible with the confirm button selected.
func (m *Model) Show() {
	m.visible = true
	m.active = 0
	if m.hasInput {
		m.input.Focus()
		m.input.CursorEnd()
	}
}

// Hide makes the dialog invisible.
func (m *Model) Hide() {
	m.visible = false
	if m.hasInput {
		m.input.Blur()
	}
}

// Visible returns whether the dialog is shown.
func (m Model) Visible() bool {
	return m.visible
}

// Value returns the trimmed input text.
func (m Model) Value() string {
	if !m.hasInput {
		return ""
	}
	return strings.TrimSpace(m.input.Value())
}

// SetSize sets the available space for centering.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.maxWidth = min(60, max(width-4, 20))
	if m.hasInput {
		m.input.Width = m.maxWidth - 8
	}
}
