package app

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
)

// containsKey checks whether the binding's keys contain the given key string.
func containsKey(b key.Binding, target string) bool {
	for _, k := range b.Keys() {
		if k == target {
			return true
		}
	}
	return false
}

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		name    string
		binding key.Binding
		key     string
	}{
		{"NextView", km.NextView, "tab"},
		{"PrevView", km.PrevView, "shift+tab"},
		{"ViewReport", km.ViewReport, "1"},
		{"ViewSQL", km.ViewSQL, "2"},
		{"ViewHistory", km.ViewHistory, "3"},
		{"FocusSidebar", km.FocusSidebar, "alt+1"},
		{"FocusContent", km.FocusContent, "alt+2"},
		{"ToggleSidebar", km.ToggleSidebar, "ctrl+b"},
		{"ResizeLeft", km.ResizeLeft, "ctrl+left"},
		{"ResizeRight", km.ResizeRight, "ctrl+right"},
		{"ToggleDrop", km.ToggleDrop, "d"},
		{"WriteSQL", km.WriteSQL, "w"},
		{"Quit", km.Quit, "q"},
		{"Quit ctrl+c", km.Quit, "ctrl+c"},
		{"Help", km.Help, "?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !containsKey(tt.binding, tt.key) {
				t.Errorf("%s keys = %v, want to contain %q", tt.name, tt.binding.Keys(), tt.key)
			}
			if tt.binding.Help().Desc == "" {
				t.Errorf("%s has no help text", tt.name)
			}
		})
	}
}

func TestNoDuplicateKeys(t *testing.T) {
	km := DefaultKeyMap()
	seen := map[string]string{}
	for gi, group := range km.FullHelp() {
		for bi, b := range group {
			for _, k := range b.Keys() {
				id := b.Help().Desc
				if prev, ok := seen[k]; ok {
					t.Errorf("key %q bound to both %q and %q (group %d, binding %d)", k, prev, id, gi, bi)
				}
				seen[k] = id
			}
		}
	}
}

func TestShortHelpSubsetOfFullHelp(t *testing.T) {
	km := DefaultKeyMap()
	full := map[string]bool{}
	for _, group := range km.FullHelp() {
		for _, b := range group {
			full[b.Help().Desc] = true
		}
	}
	for _, b := range km.ShortHelp() {
		if !full[b.Help().Desc] {
			t.Errorf("short help binding %q missing from full help", b.Help().Desc)
		}
	}
}
