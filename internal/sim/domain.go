package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/mdforce/internal/cell"
	"github.com/san-kum/mdforce/internal/comm"
	"github.com/san-kum/mdforce/internal/dynamo"
	"github.com/san-kum/mdforce/internal/force"
	"github.com/san-kum/mdforce/internal/halo"
	"github.com/san-kum/mdforce/internal/neighbor"
	"github.com/sirupsen/logrus"
)

// Domain is everything one rank owns: its cells, the exchange with its
// neighbors, the neighbor cache and the force kernel.
type Domain struct {
	World    World
	Grid     *cell.Grid
	Exchange *halo.Exchange
	Cache    *neighbor.Cache
	Kernel   *force.Kernel

	comm comm.Comm
	log  logrus.FieldLogger
}

func NewDomain(w World, c comm.Comm, model force.Model, log logrus.FieldLogger) (*Domain, error) {
	if err := w.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	var fields cell.Fields
	if _, ok := model.(force.ManyBody); ok {
		fields |= cell.FieldRho
	}
	if w.Force.Stress {
		fields |= cell.FieldStress
	}
	if w.Force.HeatFlux {
		fields |= cell.FieldHeatFlux
	}

	g, err := cell.NewGrid(cell.GridConfig{
		Dim:         w.Dim,
		Box:         w.Box,
		Procs:       w.Procs,
		Rank:        c.Rank(),
		MinCellSize: w.Cutoff + w.Skin,
		Fields:      fields,
	})
	if err != nil {
		return nil, err
	}
	ex := halo.New(g, c, halo.Options{Logger: log})
	cache := neighbor.New(ex, neighbor.Config{Cutoff: w.Cutoff, Skin: w.Skin}, log)
	k, err := force.New(g, ex, cache, model, w.Force, log)
	if err != nil {
		return nil, err
	}
	return &Domain{
		World:    w,
		Grid:     g,
		Exchange: ex,
		Cache:    cache,
		Kernel:   k,
		comm:     c,
		log:      log.WithField("rank", c.Rank()),
	}, nil
}

func (d *Domain) Rank() int { return d.comm.Rank() }

// Owns reports whether p, once wrapped into the box, falls in this rank's
// block.
func (d *Domain) Owns(p cell.Particle) bool {
	g := d.Grid
	return g.OwnerProcess(g.CellOf(g.Wrap(p.Pos))) == g.Rank
}

func (d *Domain) Insert(p cell.Particle) error {
	if nt := max(d.World.Force.NTypes, 1); p.Type >= nt {
		return fmt.Errorf("%w: particle %d has type %d, only %d types", dynamo.ErrIndexRange, p.ID, p.Type, nt)
	}
	return d.Grid.Insert(p)
}

// KineticEnergy returns the global kinetic energy and particle count.
func (d *Domain) KineticEnergy(ctx context.Context) (float64, int, error) {
	g := d.Grid
	ekin := 0.0
	n := 0
	for _, idx := range g.Owned() {
		c := g.Cell(idx)
		for i := 0; i < c.N; i++ {
			ekin += c.Mom[i].Norm2() / (2 * c.Mass[i])
		}
		n += c.N
	}
	vals := []float64{ekin, float64(n)}
	if err := d.comm.AllReduce(ctx, comm.Sum, vals); err != nil {
		return 0, 0, err
	}
	return vals[0], int(vals[1]), nil
}

// Validate checks every owned position and momentum for NaN or Inf.
func (d *Domain) Validate() error {
	g := d.Grid
	for _, idx := range g.Owned() {
		c := g.Cell(idx)
		for i := 0; i < c.N; i++ {
			if !c.Pos[i].IsValid() || !c.Mom[i].IsValid() {
				return fmt.Errorf("%w: particle %d at %v with momentum %v", dynamo.ErrInvalidState, c.ID[i], c.Pos[i], c.Mom[i])
			}
		}
	}
	return nil
}

// Sample evaluates the kinetic energy and combines it with a force result.
func (d *Domain) Sample(ctx context.Context, res force.Result, t float64) (Thermo, error) {
	ekin, n, err := d.KineticEnergy(ctx)
	if err != nil {
		return Thermo{}, err
	}
	th := Thermo{
		Step:    res.Step,
		Time:    t,
		N:       n,
		Epot:    res.Epot,
		Ekin:    ekin,
		Etot:    res.Epot + ekin,
		Virial:  res.Virial,
		Tensor:  res.Tensor,
		Rebuilt: res.Rebuilt,
	}
	if n > 0 {
		th.Temperature = 2 * ekin / float64(d.World.Dim*n)
	}
	th.Pressure = res.Pressure(ekin, d.World.Dim, d.World.Volume())
	return th, nil
}
