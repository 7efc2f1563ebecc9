package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the palette for summaries and plots.
type Theme struct {
	Name    string
	Title   lipgloss.Color
	Border  lipgloss.Color
	Label   lipgloss.Color
	Value   lipgloss.Color
	Good    lipgloss.Color
	Warning lipgloss.Color
	Bad     lipgloss.Color
}

var (
	ThemeDefault = Theme{
		Name:    "default",
		Title:   lipgloss.Color("#00ffff"),
		Border:  lipgloss.Color("#444466"),
		Label:   lipgloss.Color("#888899"),
		Value:   lipgloss.Color("#00ccff"),
		Good:    lipgloss.Color("#00ff88"),
		Warning: lipgloss.Color("#ffcc00"),
		Bad:     lipgloss.Color("#ff4444"),
	}

	ThemePhosphor = Theme{
		Name:    "phosphor",
		Title:   lipgloss.Color("#88ff88"),
		Border:  lipgloss.Color("#005500"),
		Label:   lipgloss.Color("#00aa00"),
		Value:   lipgloss.Color("#00ff00"),
		Good:    lipgloss.Color("#88ff88"),
		Warning: lipgloss.Color("#ffff00"),
		Bad:     lipgloss.Color("#ff0000"),
	}

	ThemeMono = Theme{
		Name:    "mono",
		Title:   lipgloss.Color("#ffffff"),
		Border:  lipgloss.Color("#888888"),
		Label:   lipgloss.Color("#aaaaaa"),
		Value:   lipgloss.Color("#ffffff"),
		Good:    lipgloss.Color("#ffffff"),
		Warning: lipgloss.Color("#cccccc"),
		Bad:     lipgloss.Color("#ffffff"),
	}

	Themes = []Theme{ThemeDefault, ThemePhosphor, ThemeMono}
)

// GetTheme returns a theme by name, falling back to the default.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeDefault
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
