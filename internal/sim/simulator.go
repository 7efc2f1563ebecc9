package sim

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/san-kum/mdforce/internal/cell"
	"github.com/san-kum/mdforce/internal/comm"
	"github.com/san-kum/mdforce/internal/dynamo"
	"github.com/san-kum/mdforce/internal/force"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Simulator runs one rank per sub-domain over an in-process world. Rank 0
// records thermodynamic samples and feeds metrics and observers.
type Simulator struct {
	world      World
	model      force.Model
	integrator Integrator
	metrics    []Metric
	observers  []Observer
	log        logrus.FieldLogger
}

func New(world World, model force.Model, integrator Integrator, log logrus.FieldLogger) *Simulator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Simulator{
		world:      world,
		model:      model,
		integrator: integrator,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
		log:        log,
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) World() World { return s.world }

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Steps < 0 {
		return fmt.Errorf("steps must not be negative, got %d", cfg.Steps)
	}
	if cfg.ThermoEvery < 0 {
		return fmt.Errorf("thermo interval must not be negative, got %d", cfg.ThermoEvery)
	}
	return s.world.validate()
}

// Run distributes ps over the ranks, evaluates the initial forces and
// integrates cfg.Steps steps. A fatal error on any rank cancels the rest.
func (s *Simulator) Run(ctx context.Context, ps []cell.Particle, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	n := s.world.Ranks()
	comms := comm.NewLocalWorld(n)
	domains := make([]*Domain, n)
	for r := range domains {
		d, err := NewDomain(s.world, comms[r], s.model, s.log)
		if err != nil {
			return nil, err
		}
		domains[r] = d
	}
	g0 := domains[0].Grid
	for _, p := range ps {
		if !p.Pos.IsValid() {
			return nil, fmt.Errorf("%w: particle %d at %v", dynamo.ErrInvalidState, p.ID, p.Pos)
		}
		owner := g0.OwnerProcess(g0.CellOf(g0.Wrap(p.Pos)))
		if err := domains[owner].Insert(p); err != nil {
			return nil, err
		}
	}

	for _, m := range s.metrics {
		m.Reset()
	}
	result := &Result{
		Thermo:  make([]Thermo, 0, cfg.Steps/max(cfg.ThermoEvery, 1)+2),
		Metrics: make(map[string]float64),
	}

	s.log.Infof("running %d particles on %d ranks for %d steps with %s", len(ps), n, cfg.Steps, s.integrator.Name())

	g, gctx := errgroup.WithContext(ctx)
	for r, d := range domains {
		var res *Result
		if r == 0 {
			res = result
		}
		g.Go(func() error { return s.runRank(gctx, d, cfg, res) })
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	for _, d := range domains {
		result.Particles = append(result.Particles, d.Grid.Particles()...)
	}
	slices.SortFunc(result.Particles, func(a, b cell.Particle) int { return cmp.Compare(a.ID, b.ID) })
	result.Stats = domains[0].Kernel.Stats()
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, nil
}

// runRank is the per-rank loop. res is nil except on rank 0.
func (s *Simulator) runRank(ctx context.Context, d *Domain, cfg Config, res *Result) (err error) {
	step := 0
	defer func() {
		if r := recover(); r != nil {
			wrapped, ok := r.(error)
			if !ok {
				wrapped = fmt.Errorf("%v", r)
			}
			err = &dynamo.FatalError{Rank: d.Rank(), Step: step, Op: "panic", Wrapped: wrapped}
		}
	}()

	every := max(cfg.ThermoEvery, 1)
	fres, err := d.Kernel.Evaluate(ctx, 0)
	if err != nil {
		return err
	}
	if err := s.sample(ctx, d, fres, 0, res); err != nil {
		return err
	}

	for step = 1; step <= cfg.Steps; step++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}

		s.integrator.Drift(d.Grid, cfg.Dt)
		fres, err = d.Kernel.Evaluate(ctx, step)
		if err != nil {
			return err
		}
		s.integrator.Kick(d.Grid, cfg.Dt)

		if cfg.ValidateState {
			if err := d.Validate(); err != nil {
				return &dynamo.FatalError{Rank: d.Rank(), Step: step, Op: "validate", Wrapped: err}
			}
		}
		if res != nil {
			res.StepsTaken++
		}
		if step%every == 0 || step == cfg.Steps {
			if err := s.sample(ctx, d, fres, float64(step)*cfg.Dt, res); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Simulator) sample(ctx context.Context, d *Domain, fres force.Result, t float64, res *Result) error {
	th, err := d.Sample(ctx, fres, t)
	if err != nil {
		return &dynamo.FatalError{Rank: d.Rank(), Step: fres.Step, Op: "sample", Wrapped: err}
	}
	if res == nil {
		return nil
	}
	res.Thermo = append(res.Thermo, th)
	for _, m := range s.metrics {
		m.Observe(th)
	}
	for _, o := range s.observers {
		o.OnStep(th)
	}
	s.log.WithField("step", th.Step).Debugf("epot %.6g ekin %.6g etot %.6g T %.4g P %.4g", th.Epot, th.Ekin, th.Etot, th.Temperature, th.Pressure)
	return nil
}
