package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles are the lipgloss styles derived from one theme.
type Styles struct {
	Panel   lipgloss.Style
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Good    lipgloss.Style
	Warning lipgloss.Style
	Bad     lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 2),
		Title: lipgloss.NewStyle().Bold(true).Foreground(t.Title),
		Label: lipgloss.NewStyle().Foreground(t.Label),
		Value: lipgloss.NewStyle().Bold(true).Foreground(t.Value),
		Good:  lipgloss.NewStyle().Bold(true).Foreground(t.Good),
		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Warning),
		Bad: lipgloss.NewStyle().Bold(true).Foreground(t.Bad),
	}
}

// ProgressBar renders fraction in [0, 1] as a bar of width cells.
func (s Styles) ProgressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	filled = min(max(filled, 0), width)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	if fraction >= 1 {
		return s.Good.Render(bar)
	}
	return s.Warning.Render(bar)
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders values as one line of block characters, sampled down
// to at most width runes.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	step := max(len(values)/width, 1)
	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / span
		idx := min(max(int(norm*float64(len(sparkChars)-1)), 0), len(sparkChars)-1)
		b.WriteRune(sparkChars[idx])
	}
	return b.String()
}
