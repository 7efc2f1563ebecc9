package force

import (
	"context"
	"fmt"

	"github.com/san-kum/mdforce/internal/cell"
	"github.com/san-kum/mdforce/internal/comm"
	"github.com/san-kum/mdforce/internal/dynamo"
	"github.com/san-kum/mdforce/internal/halo"
	"github.com/san-kum/mdforce/internal/neighbor"
	"github.com/sirupsen/logrus"
)

type Options struct {
	NTypes int
	// Axial accumulates the global virial tensor.
	Axial    bool
	Stress   bool
	HeatFlux bool
}

// Result holds the global quantities of one evaluation, identical on every
// rank.
type Result struct {
	Step    int
	Epot    float64
	Virial  float64
	Tensor  dynamo.Tensor
	Short   int
	Rebuilt bool
}

// Pressure combines the kinetic energy with the virial. Virial holds half
// of sum r·F, so P = 2(Ekin + Virial) / (dim V).
func (r Result) Pressure(ekin float64, dim int, volume float64) float64 {
	return 2 * (ekin + r.Virial) / (float64(dim) * volume)
}

type Stats struct {
	Evaluations int
	Pairs       int64
	Rebuilds    int
	ShortSteps  int
}

// Kernel evaluates forces, energies and virials on one rank.
type Kernel struct {
	grid  *cell.Grid
	ex    *halo.Exchange
	cache *neighbor.Cache
	model Model
	mb    ManyBody
	opts  Options
	log   logrus.FieldLogger

	df    [][]float64
	stats Stats
}

// accum collects the local share of the reduced quantities.
type accum struct {
	epot   float64
	virial float64
	tensor dynamo.Tensor
	short  int
	pairs  int64
}

func New(grid *cell.Grid, ex *halo.Exchange, cache *neighbor.Cache, model Model, opts Options, log logrus.FieldLogger) (*Kernel, error) {
	if ex.Grid() != grid {
		return nil, fmt.Errorf("%w: exchange built for another grid", dynamo.ErrInvalidState)
	}
	if opts.NTypes < 1 {
		opts.NTypes = 1
	}
	if err := model.Validate(opts.NTypes); err != nil {
		return nil, err
	}
	fields := grid.Cell(0).Fields()
	k := &Kernel{grid: grid, ex: ex, cache: cache, model: model, opts: opts, log: log}
	if k.log == nil {
		k.log = logrus.StandardLogger()
	}
	k.log = k.log.WithField("rank", grid.Rank)
	if mb, ok := model.(ManyBody); ok {
		if !fields.Has(cell.FieldRho) {
			return nil, fmt.Errorf("%w: many-body model needs density storage", dynamo.ErrInvalidState)
		}
		k.mb = mb
		k.df = make([][]float64, grid.NumCells())
	}
	if opts.Stress && !fields.Has(cell.FieldStress) {
		return nil, fmt.Errorf("%w: stress requested without stress storage", dynamo.ErrInvalidState)
	}
	if opts.HeatFlux && !fields.Has(cell.FieldHeatFlux) {
		return nil, fmt.Errorf("%w: heat flux requested without heat flux storage", dynamo.ErrInvalidState)
	}
	return k, nil
}

func (k *Kernel) Stats() Stats { return k.stats }

func (k *Kernel) Model() Model { return k.model }

func (k *Kernel) fatal(step int, op string, err error) error {
	return &dynamo.FatalError{Rank: k.grid.Rank, Step: step, Op: op, Wrapped: err}
}

// Evaluate runs one full force evaluation. Every rank of the world must
// call it with the same step. On return every owned particle carries its
// final force and energy.
func (k *Kernel) Evaluate(ctx context.Context, step int) (Result, error) {
	res := Result{Step: step}

	rebuilt, err := k.cache.EnsureValid(ctx)
	if err != nil {
		return res, k.fatal(step, "neighbor", err)
	}
	if !rebuilt {
		if err := k.ex.RefreshBuffers(ctx); err != nil {
			return res, k.fatal(step, "refresh", err)
		}
	}
	res.Rebuilt = rebuilt

	k.clear()
	var acc accum
	k.pairPass(&acc)

	if k.mb != nil {
		if err := k.ex.ReduceDensity(ctx); err != nil {
			return res, k.fatal(step, "density", err)
		}
		if err := k.ex.BroadcastDensity(ctx); err != nil {
			return res, k.fatal(step, "density", err)
		}
		k.embedPass(&acc)
	}

	vals := []float64{
		acc.epot, acc.virial,
		acc.tensor[dynamo.XX], acc.tensor[dynamo.YY], acc.tensor[dynamo.ZZ],
		acc.tensor[dynamo.YZ], acc.tensor[dynamo.ZX], acc.tensor[dynamo.XY],
		float64(acc.short),
	}
	if err := k.ex.Comm().AllReduce(ctx, comm.Sum, vals); err != nil {
		return res, k.fatal(step, "reduce", err)
	}
	res.Epot, res.Virial = vals[0], vals[1]
	if k.opts.Axial {
		copy(res.Tensor[:], vals[2:8])
	}
	res.Short = int(vals[8])

	if err := k.ex.ScatterForces(ctx); err != nil {
		return res, k.fatal(step, "scatter", err)
	}

	k.stats.Evaluations++
	k.stats.Pairs += acc.pairs
	if rebuilt {
		k.stats.Rebuilds++
	}
	if acc.short > 0 {
		k.stats.ShortSteps++
		k.log.WithField("step", step).Warnf("%d pair distances below the table start", acc.short)
	}
	return res, nil
}

func (k *Kernel) clear() {
	g := k.grid
	dynamo.ParallelFor(g.NumCells(), 64, func(start, end int) {
		for idx := start; idx < end; idx++ {
			g.Cell(idx).ClearAccumulators()
		}
	})
}

// apply adds the pair force f = grad*d to i and subtracts it from j, with
// d = r_j - r_i.
func (k *Kernel) apply(acc *accum, ci *cell.Cell, i int, cj *cell.Cell, j int, d dynamo.Vec, r2, grad float64) {
	f := d.Scale(grad)
	ci.Force[i] = ci.Force[i].Add(f)
	cj.Force[j] = cj.Force[j].Sub(f)

	acc.virial -= 0.5 * r2 * grad
	if k.opts.Axial {
		acc.tensor.AddOuter(d, f, -0.5)
	}
	if k.opts.Stress {
		ci.Stress[i].AddOuter(d, f, -0.5)
		cj.Stress[j].AddOuter(d, f, -0.5)
	}
}

func (k *Kernel) pairPass(acc *accum) {
	g := k.grid
	nt := k.opts.NTypes
	share := k.model.EnergyShare()
	p := 0
	for _, idx := range g.Owned() {
		c := g.Cell(idx)
		for i := 0; i < c.N; i++ {
			it := c.Type[i]
			pi := c.Pos[i]
			for _, e := range k.cache.Neighbors(p) {
				q := g.Cell(e.Cell)
				j := e.Index
				jt := q.Type[j]
				d := q.Pos[j].Sub(pi)
				r2 := d.Norm2()
				col := it*nt + jt

				short := false
				if r2 <= k.model.Cut2(col) {
					pot, grad, s := k.model.Pair(col, r2)
					short = s
					acc.pairs++
					k.apply(acc, c, i, q, j, d, r2, grad)

					c.Epot[i] += share * pot
					q.Epot[j] += share * pot
					acc.epot += pot
					if k.opts.HeatFlux {
						h := share*pot - r2*grad
						c.HeatFlux[i] += h
						q.HeatFlux[j] += h
					}
				}

				if k.mb != nil {
					if r2 < k.mb.RhoCut2(col) {
						rho, s := k.mb.Rho(col, r2)
						short = short || s
						c.Rho[i] += rho
						if it == jt {
							q.Rho[j] += rho
						}
					}
					if it != jt {
						col2 := jt*nt + it
						if r2 < k.mb.RhoCut2(col2) {
							rho, s := k.mb.Rho(col2, r2)
							short = short || s
							q.Rho[j] += rho
						}
					}
				}
				if short {
					acc.short++
				}
			}
			p++
		}
	}
}

// embedPass adds the embedding energy of owned particles and the embedding
// forces of every listed pair. Buffer particles carry broadcast densities,
// so their derivatives are evaluated locally.
func (k *Kernel) embedPass(acc *accum) {
	g := k.grid
	nt := k.opts.NTypes
	for idx := 0; idx < g.NumCells(); idx++ {
		n := g.Cell(idx).N
		if cap(k.df[idx]) < n {
			k.df[idx] = make([]float64, n, 2*n)
		}
		k.df[idx] = k.df[idx][:n]
	}
	energies := make([]float64, g.NumCells())
	dynamo.ParallelFor(g.NumCells(), 16, func(start, end int) {
		for idx := start; idx < end; idx++ {
			c := g.Cell(idx)
			owned := g.IsOwned(idx)
			for i := 0; i < c.N; i++ {
				f, df := k.mb.Embedding(c.Type[i], c.Rho[i])
				k.df[idx][i] = df
				if owned {
					c.Epot[i] += f
					energies[idx] += f
				}
			}
		}
	})
	for _, e := range energies {
		acc.epot += e
	}

	p := 0
	for _, idx := range g.Owned() {
		c := g.Cell(idx)
		for i := 0; i < c.N; i++ {
			it := c.Type[i]
			pi := c.Pos[i]
			dfi := k.df[idx][i]
			for _, e := range k.cache.Neighbors(p) {
				q := g.Cell(e.Cell)
				j := e.Index
				jt := q.Type[j]
				d := q.Pos[j].Sub(pi)
				r2 := d.Norm2()

				col1 := jt*nt + it
				col2 := it*nt + jt
				if r2 < k.mb.RhoCut2(col1) || r2 < k.mb.RhoCut2(col2) {
					rhoI := k.mb.RhoDeriv(col1, r2)
					rhoJ := rhoI
					if col1 != col2 {
						rhoJ = k.mb.RhoDeriv(col2, r2)
					}
					grad := 0.5 * (dfi*rhoJ + k.df[e.Cell][j]*rhoI)
					k.apply(acc, c, i, q, j, d, r2, grad)
				}
			}
			p++
		}
	}
}
