package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/mdforce/internal/atoms"
	"github.com/san-kum/mdforce/internal/cell"
	"github.com/san-kum/mdforce/internal/config"
	"github.com/san-kum/mdforce/internal/dynamo"
	"github.com/san-kum/mdforce/internal/force"
	"github.com/san-kum/mdforce/internal/sim"
	"github.com/sirupsen/logrus"
)

// Experiment turns a config into particles, a world and a simulator.
type Experiment struct {
	cfg       *config.Config
	reg       *Registry
	log       logrus.FieldLogger
	world     sim.World
	particles []cell.Particle
	simulator *sim.Simulator
}

func New(cfg *config.Config, reg *Registry, log logrus.FieldLogger) *Experiment {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Experiment{cfg: cfg, reg: reg, log: log}
}

func (e *Experiment) Setup() error {
	cfg := e.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}

	model, cutoff, err := e.reg.GetPotential(cfg.Potential, cfg.NTypes, e.log)
	if err != nil {
		return err
	}
	integ, err := e.reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return err
	}

	ps, box, err := e.buildParticles(cfg.Seed)
	if err != nil {
		return err
	}

	var procs cell.Coord
	for d, p := range cfg.Procs {
		procs[d] = p
	}
	e.world = sim.World{
		Dim:    cfg.Dim,
		Box:    box,
		Procs:  procs,
		Cutoff: cutoff,
		Skin:   cfg.Skin,
		Force: force.Options{
			NTypes:   cfg.NTypes,
			Axial:    cfg.Output.Axial,
			Stress:   cfg.Output.Stress,
			HeatFlux: cfg.Output.HeatFlux,
		},
	}
	e.particles = ps

	e.simulator = sim.New(e.world, model, integ, e.log)
	for _, m := range e.reg.DefaultMetrics() {
		e.simulator.AddMetric(m)
	}

	e.log.WithFields(logrus.Fields{
		"particles": len(ps),
		"box":       box,
		"cutoff":    cutoff,
		"ranks":     e.world.Ranks(),
	}).Info("experiment ready")
	return nil
}

func (e *Experiment) buildParticles(seed uint64) ([]cell.Particle, dynamo.Vec, error) {
	cfg := e.cfg
	if cfg.Atoms != "" {
		ps, err := atoms.ReadFile(cfg.Atoms, cfg.Dim)
		if err != nil {
			return nil, dynamo.Vec{}, err
		}
		var box dynamo.Vec
		copy(box[:], cfg.Box)
		return ps, box, nil
	}

	l := cfg.Lattice
	var (
		ps  []cell.Particle
		box dynamo.Vec
	)
	switch l.Kind {
	case "fcc":
		ps, box = atoms.FCC(l.Constant, cell.Coord{l.Repeat[0], l.Repeat[1], l.Repeat[2]}, cfg.NTypes, l.Mass)
	case "hex":
		ps, box = atoms.Hex2D(l.Constant, l.Repeat[0], l.Repeat[1], cfg.NTypes, l.Mass)
	default:
		return nil, dynamo.Vec{}, fmt.Errorf("unknown lattice: %s", l.Kind)
	}
	atoms.Maxwell(ps, cfg.Temperature, cfg.Dim, seed)
	return ps, box, nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	return e.simulator.Run(ctx, e.particles, e.simConfig())
}

func (e *Experiment) simConfig() sim.Config {
	return sim.Config{
		Dt:          e.cfg.Dt,
		Steps:       e.cfg.Steps,
		ThermoEvery: e.cfg.ThermoEvery,
	}
}

// RunEnsemble runs n replicas whose Maxwell velocities are drawn from
// seeds cfg.Seed, cfg.Seed+1 and so on. Replicas read from an atom file
// all start from the file's velocities.
func (e *Experiment) RunEnsemble(ctx context.Context, n int) ([]*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	if n < 1 {
		return nil, fmt.Errorf("ensemble needs at least one run, got %d", n)
	}
	build := func(seed uint64) ([]cell.Particle, error) {
		ps, _, err := e.buildParticles(seed)
		return ps, err
	}
	return sim.NewEnsemble(e.simulator, n, e.cfg.Seed).Run(ctx, build, e.simConfig())
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) World() sim.World { return e.world }

func (e *Experiment) Particles() []cell.Particle { return e.particles }

func (e *Experiment) Config() *config.Config { return e.cfg }
