package theme

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestThemes_AllRegistered(t *testing.T) {
	expected := []string{"default", "light", "monokai", "plain"}
	for _, name := range expected {
		if _, ok := Themes[name]; !ok {
			t.Errorf("expected theme %q to be registered", name)
		}
	}
}

func TestThemes_NamesMatch(t *testing.T) {
	for name, th := range Themes {
		if th.Name != name {
			t.Errorf("theme registered as %q has Name=%q", name, th.Name)
		}
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"default", "default"},
		{"light", "light"},
		{"monokai", "monokai"},
		{"plain", "plain"},
		{"nonexistent", "default"},
		{"", "default"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			th := Get(tt.in)
			if th == nil {
				t.Fatalf("Get(%q) returned nil", tt.in)
			}
			if th.Name != tt.want {
				t.Errorf("Get(%q).Name = %q, want %q", tt.in, th.Name, tt.want)
			}
		})
	}
}

func TestPlainRendersVerbatim(t *testing.T) {
	p := Plain()
	for _, s := range []string{"+ Schema: main [ADDED]", "CREATE TABLE", "'x'"} {
		if got := p.Added.Render(s); got != s {
			t.Errorf("plain Added.Render(%q) = %q", s, got)
		}
		if got := p.SQLKeyword.Render(s); got != s {
			t.Errorf("plain SQLKeyword.Render(%q) = %q", s, got)
		}
	}
}

func TestMarker(t *testing.T) {
	th := Default()
	tests := []struct {
		marker string
		want   string
	}{
		{"+", th.Added.Render("x")},
		{"-", th.Removed.Render("x")},
		{"~", th.Modified.Render("x")},
		{"?", th.MutedText.Render("x")},
	}
	for _, tt := range tests {
		if got := th.Marker(tt.marker).Render("x"); got != tt.want {
			t.Errorf("Marker(%q).Render = %q, want %q", tt.marker, got, tt.want)
		}
	}
}

func TestTheme_StylesRenderNonEmpty(t *testing.T) {
	for name, th := range Themes {
		t.Run(name, func(t *testing.T) {
			pairs := []struct {
				label string
				out   string
			}{
				{"Added", th.Added.Render("+")},
				{"SQLKeyword", th.SQLKeyword.Render("SELECT")},
				{"SQLComment", th.SQLComment.Render("-- note")},
				{"TabActive", th.TabActive.Render("tab")},
				{"TabInactive", th.TabInactive.Render("tab")},
				{"StatusBar", th.StatusBar.Render("status")},
				{"ErrorText", th.ErrorText.Render("error")},
				{"MutedText", th.MutedText.Render("muted")},
				{"Selected", th.Selected.Render("row")},
				{"DialogTitle", th.DialogTitle.Render("title")},
				{"ButtonActive", th.ButtonActive.Render("OK")},
				{"FocusedBorder", th.FocusedBorder.Render("pane")},
			}
			for _, p := range pairs {
				if p.out == "" {
					t.Errorf("%s: %s rendered empty", name, p.label)
				}
			}
		})
	}
}

func TestThemes_AreDistinct(t *testing.T) {
	seen := make(map[*Theme]string)
	for name, th := range Themes {
		if other, ok := seen[th]; ok {
			t.Errorf("%s and %s are the same pointer", name, other)
		}
		seen[th] = name
	}
}

func TestCurrentDefaultsToDefault(t *testing.T) {
	if Current == nil || Current.Name != "default" {
		t.Errorf("Current = %v, want the default theme", Current)
	}
}

func TestPaletteColors(t *testing.T) {
	tests := []struct {
		theme string
		style func(*Theme) lipgloss.Style
		want  lipgloss.Color
	}{
		{"default", func(th *Theme) lipgloss.Style { return th.Added }, "#6A9955"},
		{"default", func(th *Theme) lipgloss.Style { return th.Removed }, "#F44747"},
		{"light", func(th *Theme) lipgloss.Style { return th.Modified }, "#795E26"},
		{"monokai", func(th *Theme) lipgloss.Style { return th.SQLKeyword }, "#F92672"},
	}
	for _, tt := range tests {
		if got := tt.style(Get(tt.theme)).GetForeground(); got != tt.want {
			t.Errorf("%s foreground = %v, want %v", tt.theme, got, tt.want)
		}
	}
}

func TestStatusBarUnpadded(t *testing.T) {
	for name, th := range Themes {
		if l := th.StatusBar.GetPaddingLeft(); l != 0 {
			t.Errorf("%s StatusBar left padding = %d, want 0", name, l)
		}
	}
}
