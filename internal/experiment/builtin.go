package experiment

import (
	"math"

	"github.com/san-kum/mdforce/internal/force"
	"github.com/san-kum/mdforce/internal/potential"
	"github.com/sirupsen/logrus"
)

const (
	builtinBegin = 0.5
	builtinStep  = 0.001
	// host densities beyond this are read flat from the last sample
	maxDensity = 50.0
)

// mixing scales unlike-pair interactions.
func mixing(col, ntypes int) float64 {
	if col/ntypes == col%ntypes {
		return 1
	}
	return 0.8
}

// ljTable samples the Lennard-Jones form of potential.MonoLJ for every
// ordered type pair.
func ljTable(ntypes int, cut2 float64, opts potential.LoadOptions) (*potential.Table, error) {
	lj := potential.NewMonoLJ(cut2, false)
	return potential.Tabulate("lj", ntypes*ntypes, builtinBegin, cut2, builtinStep, func(col int, r2 float64) float64 {
		v, _ := lj.Evaluate(r2)
		return mixing(col, ntypes) * v
	}, opts)
}

// builtinEAM is a Finnis-Sinclair style model: a repulsive core, a density
// falling quadratically to zero at the cutoff and a square-root embedding.
func builtinEAM(ntypes int, cut2 float64, log logrus.FieldLogger) (force.EAM, error) {
	opts := potential.LoadOptions{ShiftToZero: true, Logger: log}
	core, err := potential.Tabulate("core", ntypes*ntypes, builtinBegin, cut2, builtinStep, func(col int, r2 float64) float64 {
		s6 := math.Pow(2/r2, 6)
		return mixing(col, ntypes) * s6
	}, opts)
	if err != nil {
		return force.EAM{}, err
	}

	rho, err := potential.Tabulate("density", ntypes*ntypes, builtinBegin, cut2, builtinStep, func(col int, r2 float64) float64 {
		u := (cut2 - r2) / cut2
		// a host of type it feels a heavier neighbor of type jt more
		jt := col % ntypes
		return (1 + 0.1*float64(jt)) * u * u
	}, potential.LoadOptions{Logger: log})
	if err != nil {
		return force.EAM{}, err
	}

	embed, err := potential.Tabulate("embed", ntypes, 0, maxDensity, 0.005, func(typ int, rho float64) float64 {
		return -(1 + 0.1*float64(typ)) * math.Sqrt(rho)
	}, potential.LoadOptions{Logger: log})
	if err != nil {
		return force.EAM{}, err
	}
	return force.EAM{Core: core, Density: rho, Embed: embed}, nil
}
