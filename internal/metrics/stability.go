package metrics

import "github.com/san-kum/mdforce/internal/sim"

// RebuildRate is the fraction of samples taken on a step that rebuilt the
// neighbor list.
type RebuildRate struct {
	name     string
	rebuilds int
	samples  int
}

func NewRebuildRate() *RebuildRate {
	return &RebuildRate{name: "rebuild_rate"}
}

func (r *RebuildRate) Name() string {
	return r.name
}

func (r *RebuildRate) Observe(th sim.Thermo) {
	r.samples++
	if th.Rebuilt {
		r.rebuilds++
	}
}

func (r *RebuildRate) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return float64(r.rebuilds) / float64(r.samples)
}

func (r *RebuildRate) Reset() {
	r.rebuilds = 0
	r.samples = 0
}

// Defaults returns the metrics every run records.
func Defaults() []sim.Metric {
	return []sim.Metric{
		NewEnergy(),
		NewEnergyDrift(),
		NewPressure(),
		NewTemperature(),
		NewRebuildRate(),
	}
}
