package metrics

import (
	"math"

	"github.com/san-kum/mdforce/internal/sim"
	"gonum.org/v1/gonum/stat"
)

// Energy is the mean total energy over all samples.
type Energy struct {
	name    string
	samples []float64
}

func NewEnergy() *Energy {
	return &Energy{name: "energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(th sim.Thermo) {
	e.samples = append(e.samples, th.Etot)
}

func (e *Energy) Value() float64 {
	if len(e.samples) == 0 {
		return 0
	}
	return stat.Mean(e.samples, nil)
}

// StdDev is the sample standard deviation of the total energy.
func (e *Energy) StdDev() float64 {
	if len(e.samples) < 2 {
		return 0
	}
	return stat.StdDev(e.samples, nil)
}

func (e *Energy) Reset() {
	e.samples = e.samples[:0]
}

// EnergyDrift is the largest deviation of the total energy per particle
// from its first sample.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(th sim.Thermo) {
	if th.N == 0 {
		return
	}
	energy := th.Etot / float64(th.N)
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++
	e.maxDrift = math.Max(e.maxDrift, math.Abs(energy-e.initialEnergy))
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
