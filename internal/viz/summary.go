package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/mdforce/internal/metrics"
	"github.com/san-kum/mdforce/internal/sim"
)

// Summary renders a finished run as a bordered panel: the world, the final
// thermo sample, kernel counters, metrics and an energy sparkline.
func Summary(s Styles, title string, world sim.World, res *sim.Result) string {
	var b strings.Builder
	b.WriteString(s.Title.Render(title))
	b.WriteString("\n\n")

	row := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", s.Label.Render(fmt.Sprintf("%-14s", label)), s.Value.Render(value))
	}

	row("box", world.Box.String())
	row("ranks", fmt.Sprintf("%d (%d x %d x %d)", world.Ranks(), max(world.Procs[0], 1), max(world.Procs[1], 1), max(world.Procs[2], 1)))
	row("particles", fmt.Sprintf("%d", len(res.Particles)))
	row("steps", fmt.Sprintf("%d", res.StepsTaken))

	if n := len(res.Thermo); n > 0 {
		last := res.Thermo[n-1]
		row("etot / N", fmt.Sprintf("%.6f", last.Etot/float64(max(last.N, 1))))
		row("temperature", fmt.Sprintf("%.4f", last.Temperature))
		row("pressure", fmt.Sprintf("%.4f", last.Pressure))
	}

	b.WriteString("\n")
	row("pairs", fmt.Sprintf("%d", res.Stats.Pairs))
	row("rebuilds", fmt.Sprintf("%d", res.Stats.Rebuilds))
	short := fmt.Sprintf("%d", res.Stats.ShortSteps)
	if res.Stats.ShortSteps > 0 {
		short = s.Bad.Render(short)
	}
	fmt.Fprintf(&b, "%s %s\n", s.Label.Render(fmt.Sprintf("%-14s", "short steps")), short)

	if len(res.Metrics) > 0 {
		b.WriteString("\n")
		names := make([]string, 0, len(res.Metrics))
		for name := range res.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			row(name, fmt.Sprintf("%.6g", res.Metrics[name]))
		}
	}

	if series, err := Series(res.Thermo, "etot"); err == nil && len(series) > 1 {
		sum := metrics.Summarize(series)
		b.WriteString("\n")
		row("etot range", fmt.Sprintf("%.6g .. %.6g", sum.Min, sum.Max))
		b.WriteString(s.Good.Render(Sparkline(series, 48)))
		b.WriteString("\n")
	}

	return s.Panel.Render(strings.TrimRight(b.String(), "\n"))
}

// Table renders rows of cells with a bold header, columns padded to width.
func Table(s Styles, header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range rows {
		for i, c := range r {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(c))
			}
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = style.Render(c + strings.Repeat(" ", widths[i]-lipgloss.Width(c)))
		}
		return strings.Join(parts, "  ")
	}

	var b strings.Builder
	b.WriteString(line(header, s.Title))
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(line(r, s.Value))
	}
	return b.String()
}
