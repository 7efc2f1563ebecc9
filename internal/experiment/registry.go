package experiment

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/mdforce/internal/config"
	"github.com/san-kum/mdforce/internal/force"
	"github.com/san-kum/mdforce/internal/integrators"
	"github.com/san-kum/mdforce/internal/metrics"
	"github.com/san-kum/mdforce/internal/potential"
	"github.com/san-kum/mdforce/internal/sim"
	"github.com/sirupsen/logrus"
)

// PotentialBuilder returns a model for ntypes species and its cutoff
// distance, which sizes the cell grid.
type PotentialBuilder func(p config.PotentialConfig, ntypes int, log logrus.FieldLogger) (force.Model, float64, error)

type Registry struct {
	potentials  map[string]PotentialBuilder
	integrators map[string]func() sim.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		potentials:  make(map[string]PotentialBuilder),
		integrators: make(map[string]func() sim.Integrator),
	}

	r.potentials["monolj"] = buildMonoLJ
	r.potentials["pair"] = buildPair
	r.potentials["eam"] = buildEAM

	r.integrators["nve"] = func() sim.Integrator { return integrators.NewVelocityVerlet() }
	r.integrators["mik"] = func() sim.Integrator { return integrators.NewMIK() }

	return r
}

func (r *Registry) GetPotential(p config.PotentialConfig, ntypes int, log logrus.FieldLogger) (force.Model, float64, error) {
	fn, ok := r.potentials[p.Kind]
	if !ok {
		return nil, 0, fmt.Errorf("unknown potential: %s", p.Kind)
	}
	return fn(p, ntypes, log)
}

func (r *Registry) GetIntegrator(name string) (sim.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListPotentials() []string {
	names := make([]string, 0, len(r.potentials))
	for name := range r.potentials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics() []sim.Metric {
	return metrics.Defaults()
}

func order(p config.PotentialConfig) (potential.Order, error) {
	return potential.ParseOrder(p.Order)
}

func format(p config.PotentialConfig) potential.Format {
	if p.Format == 0 {
		return potential.Format1
	}
	return potential.Format(p.Format)
}

// pairShift reports whether a pair table file is shifted to zero at its
// cutoff. Format 1 pair tables always are.
func pairShift(p config.PotentialConfig) bool {
	return p.Shift || format(p) == potential.Format1
}

func buildMonoLJ(p config.PotentialConfig, _ int, _ logrus.FieldLogger) (force.Model, float64, error) {
	return force.MonoLJ{MonoLJ: potential.NewMonoLJ(p.Cutoff*p.Cutoff, p.Shift)}, p.Cutoff, nil
}

func buildPair(p config.PotentialConfig, ntypes int, log logrus.FieldLogger) (force.Model, float64, error) {
	ord, err := order(p)
	if err != nil {
		return nil, 0, err
	}
	opts := potential.LoadOptions{ShiftToZero: p.Shift, Logger: log}

	var tab *potential.Table
	if p.File != "" {
		opts.ShiftToZero = pairShift(p)
		tab, _, err = potential.LoadFile(p.File, format(p), ntypes*ntypes, opts)
	} else {
		tab, err = ljTable(ntypes, p.Cutoff*p.Cutoff, opts)
	}
	if err != nil {
		return nil, 0, err
	}
	return force.TabulatedPair{Table: tab, Order: ord}, math.Sqrt(tab.MaxCutoff2()), nil
}

func buildEAM(p config.PotentialConfig, ntypes int, log logrus.FieldLogger) (force.Model, float64, error) {
	ord, err := order(p)
	if err != nil {
		return nil, 0, err
	}
	var m force.EAM
	if p.Core != "" {
		opts := potential.LoadOptions{ShiftToZero: pairShift(p), Logger: log}
		if m.Core, _, err = potential.LoadFile(p.Core, format(p), ntypes*ntypes, opts); err != nil {
			return nil, 0, err
		}
		// density and embedding are functions, not energies at a cutoff
		opts.ShiftToZero = false
		if m.Density, _, err = potential.LoadFile(p.Density, format(p), ntypes*ntypes, opts); err != nil {
			return nil, 0, err
		}
		if m.Embed, _, err = potential.LoadFile(p.Embed, format(p), ntypes, opts); err != nil {
			return nil, 0, err
		}
	} else {
		m, err = builtinEAM(ntypes, p.Cutoff*p.Cutoff, log)
		if err != nil {
			return nil, 0, err
		}
	}
	m.Order = ord
	cut2 := math.Max(m.Core.MaxCutoff2(), m.Density.MaxCutoff2())
	return m, math.Sqrt(cut2), nil
}
