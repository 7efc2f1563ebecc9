package sim

import (
	"context"

	"github.com/san-kum/mdforce/internal/cell"
	"golang.org/x/sync/errgroup"
)

// Ensemble runs independent replicas of one simulator, each from its own
// seeded initial configuration.
type Ensemble struct {
	base      *Simulator
	numRuns   int
	seedStart uint64
}

func NewEnsemble(s *Simulator, numRuns int, seedStart uint64) *Ensemble {
	return &Ensemble{base: s, numRuns: numRuns, seedStart: seedStart}
}

// Run builds replica i from seedStart+i and runs them concurrently. Metrics
// and observers of the base simulator are not shared with replicas.
func (e *Ensemble) Run(ctx context.Context, build func(seed uint64) ([]cell.Particle, error), cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < e.numRuns; i++ {
		g.Go(func() error {
			ps, err := build(e.seedStart + uint64(i))
			if err != nil {
				return err
			}
			s := New(e.base.world, e.base.model, e.base.integrator, e.base.log)
			results[i], err = s.Run(gctx, ps, cfg)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
