package metrics

import (
	"github.com/san-kum/mdforce/internal/sim"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean averages one thermodynamic quantity over all samples.
type Mean struct {
	name    string
	pick    func(sim.Thermo) float64
	samples []float64
}

func NewPressure() *Mean {
	return &Mean{name: "pressure", pick: func(th sim.Thermo) float64 { return th.Pressure }}
}

func NewTemperature() *Mean {
	return &Mean{name: "temperature", pick: func(th sim.Thermo) float64 { return th.Temperature }}
}

func (m *Mean) Name() string { return m.name }

func (m *Mean) Observe(th sim.Thermo) { m.samples = append(m.samples, m.pick(th)) }

func (m *Mean) Value() float64 {
	if len(m.samples) == 0 {
		return 0
	}
	return stat.Mean(m.samples, nil)
}

func (m *Mean) Reset() { m.samples = m.samples[:0] }

type Summary struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize reduces a series to its moments and range.
func Summarize(series []float64) Summary {
	if len(series) == 0 {
		return Summary{}
	}
	var s Summary
	s.Mean, s.StdDev = stat.MeanStdDev(series, nil)
	if len(series) < 2 {
		s.StdDev = 0
	}
	s.Min = floats.Min(series)
	s.Max = floats.Max(series)
	return s
}
