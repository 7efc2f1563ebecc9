package viz

import (
	"fmt"
	"sort"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/mdforce/internal/sim"
)

var fields = map[string]func(sim.Thermo) float64{
	"epot":        func(th sim.Thermo) float64 { return th.Epot },
	"ekin":        func(th sim.Thermo) float64 { return th.Ekin },
	"etot":        func(th sim.Thermo) float64 { return th.Etot },
	"temperature": func(th sim.Thermo) float64 { return th.Temperature },
	"pressure":    func(th sim.Thermo) float64 { return th.Pressure },
	"virial":      func(th sim.Thermo) float64 { return th.Virial },
}

// Fields lists the thermo quantities Series and Plot accept.
func Fields() []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Series extracts one quantity from a thermo series. Energies are per particle.
func Series(thermo []sim.Thermo, field string) ([]float64, error) {
	pick, ok := fields[field]
	if !ok {
		return nil, fmt.Errorf("unknown thermo field %q, want one of %v", field, Fields())
	}
	out := make([]float64, len(thermo))
	for i, th := range thermo {
		v := pick(th)
		if th.N > 0 && (field == "epot" || field == "ekin" || field == "etot") {
			v /= float64(th.N)
		}
		out[i] = v
	}
	return out, nil
}

func Plot(thermo []sim.Thermo, field string, width, height int) (string, error) {
	data, err := Series(thermo, field)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("no samples to plot")
	}
	caption := field
	if len(thermo) > 1 {
		caption = fmt.Sprintf("%s, steps %d to %d", field, thermo[0].Step, thermo[len(thermo)-1].Step)
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	), nil
}
