package neighbor

import (
	"context"
	"fmt"

	"github.com/san-kum/mdforce/internal/cell"
	"github.com/san-kum/mdforce/internal/comm"
	"github.com/san-kum/mdforce/internal/dynamo"
	"github.com/san-kum/mdforce/internal/halo"
	"github.com/sirupsen/logrus"
)

// Entry names one neighbor: a local cell index and a slot within it.
type Entry struct {
	Cell  int
	Index int
}

type Config struct {
	Cutoff float64
	Skin   float64
}

// Radius2 is the squared list radius, (cutoff+skin)².
func (c Config) Radius2() float64 {
	r := c.Cutoff + c.Skin
	return r * r
}

// Cache holds, for each owned particle, the partners found within
// cutoff+skin at the last build. Entries live in one fixed-capacity arena;
// particle p owns entries[offsets[p]:offsets[p+1]].
type Cache struct {
	grid *cell.Grid
	ex   *halo.Exchange
	cfg  Config
	log  logrus.FieldLogger

	radius2 float64
	margin2 float64

	entries []Entry
	n       int
	offsets []int
	atMax   int

	built  bool
	builds int
}

func New(ex *halo.Exchange, cfg Config, log logrus.FieldLogger) *Cache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	half := cfg.Skin / 2
	return &Cache{
		grid:    ex.Grid(),
		ex:      ex,
		cfg:     cfg,
		log:     log,
		radius2: cfg.Radius2(),
		margin2: half * half,
		offsets: make([]int, 1),
	}
}

func (c *Cache) Config() Config { return c.cfg }

// Len is the number of entries in use, Cap the arena capacity.
func (c *Cache) Len() int { return c.n }

func (c *Cache) Cap() int { return len(c.entries) }

// Builds counts completed rebuilds.
func (c *Cache) Builds() int { return c.builds }

func (c *Cache) Entries() []Entry { return c.entries[:c.n] }

// Range returns the entry interval of the p-th owned particle, counted in
// owned-cell order.
func (c *Cache) Range(p int) (start, end int) {
	return c.offsets[p], c.offsets[p+1]
}

// Neighbors returns the entries of the p-th owned particle.
func (c *Cache) Neighbors(p int) []Entry {
	return c.entries[c.offsets[p]:c.offsets[p+1]]
}

// enumerate visits every candidate pair within the list radius, in
// owned-cell, particle, relation and partner order. Pairs inside one cell
// are visited once with j > i.
func (c *Cache) enumerate(visit func(p, cj, j int) error, done func(p int)) error {
	g := c.grid
	p := 0
	for k, ci := range g.Owned() {
		pc := g.Cell(ci)
		rel := g.Relations(k)
		for i := 0; i < pc.N; i++ {
			pi := pc.Pos[i]
			for _, cj := range rel {
				qc := g.Cell(cj)
				j0 := 0
				if cj == ci {
					j0 = i + 1
				}
				for j := j0; j < qc.N; j++ {
					if qc.Pos[j].Sub(pi).Norm2() < c.radius2 {
						if err := visit(p, cj, j); err != nil {
							return err
						}
					}
				}
			}
			if done != nil {
				done(p)
			}
			p++
		}
	}
	return nil
}

// EstimateSize counts the entries a build from the current positions
// would produce.
func (c *Cache) EstimateSize() int {
	n := 0
	_ = c.enumerate(func(int, int, int) error { n++; return nil }, nil)
	return n
}

// Build migrates particles, refreshes buffers, snapshots reference
// positions and refills the arena. The arena grows to 1.1 times the
// estimate whenever the estimate exceeds it and never shrinks.
func (c *Cache) Build(ctx context.Context) error {
	if err := c.ex.SetupBuffers(ctx); err != nil {
		return err
	}
	if err := c.ex.Migrate(ctx); err != nil {
		return err
	}
	if err := c.ex.SetupBuffers(ctx); err != nil {
		return err
	}

	g := c.grid
	owned := 0
	for _, idx := range g.Owned() {
		pc := g.Cell(idx)
		for i := 0; i < pc.N; i++ {
			pc.NblPos[i] = pc.Pos[i]
		}
		owned += pc.N
	}
	if err := c.ex.RefreshBuffers(ctx); err != nil {
		return err
	}

	if owned >= c.atMax {
		c.atMax = int(1.1 * float64(owned))
		if c.atMax < owned {
			c.atMax = owned
		}
		c.offsets = make([]int, c.atMax+1)
	}
	if est := c.EstimateSize(); est > len(c.entries) {
		c.entries = make([]Entry, int(1.1*float64(est))+1)
	}

	c.n = 0
	c.offsets[0] = 0
	err := c.enumerate(func(p, cj, j int) error {
		if c.n >= len(c.entries) {
			return fmt.Errorf("%w: more than %d entries on rank %d", dynamo.ErrNeighborOverflow, len(c.entries), g.Rank)
		}
		c.entries[c.n] = Entry{Cell: cj, Index: j}
		c.n++
		return nil
	}, func(p int) {
		c.offsets[p+1] = c.n
	})
	if err != nil {
		return err
	}

	c.built = true
	c.builds++
	c.log.WithField("rank", g.Rank).Debugf("neighbor list rebuilt: %d entries for %d particles (capacity %d)", c.n, owned, len(c.entries))
	return nil
}

// MaxDisplacement2 returns the largest squared displacement of any owned
// particle on this rank since the last build.
func (c *Cache) MaxDisplacement2() float64 {
	g := c.grid
	owned := g.Owned()
	return dynamo.ParallelMax(len(owned), 32, func(start, end int) float64 {
		m := 0.0
		for _, idx := range owned[start:end] {
			pc := g.Cell(idx)
			for i := 0; i < pc.N; i++ {
				if d := pc.Pos[i].Sub(pc.NblPos[i]).Norm2(); d > m {
					m = d
				}
			}
		}
		return m
	})
}

// IsStillValid reports whether no particle on any rank moved more than
// half the skin since the last build.
func (c *Cache) IsStillValid(ctx context.Context) (bool, error) {
	m, err := c.ex.ReduceScalar(ctx, comm.Max, c.MaxDisplacement2())
	if err != nil {
		return false, err
	}
	return m <= c.margin2, nil
}

// EnsureValid rebuilds the cache if it was never built or has gone stale.
func (c *Cache) EnsureValid(ctx context.Context) (rebuilt bool, err error) {
	if c.built {
		ok, err := c.IsStillValid(ctx)
		if err != nil || ok {
			return false, err
		}
	}
	if err := c.Build(ctx); err != nil {
		return false, err
	}
	return true, nil
}
