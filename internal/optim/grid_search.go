package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/mdforce/internal/config"
	"github.com/san-kum/mdforce/internal/experiment"
	"github.com/san-kum/mdforce/internal/sim"
	"github.com/sirupsen/logrus"
)

// Setter applies one scanned value to a config.
type Setter func(cfg *config.Config, v float64)

// Params are the config fields a scan can vary.
var Params = map[string]Setter{
	"a":           func(c *config.Config, v float64) { c.Lattice.Constant = v },
	"temperature": func(c *config.Config, v float64) { c.Temperature = v },
	"dt":          func(c *config.Config, v float64) { c.Dt = v },
	"skin":        func(c *config.Config, v float64) { c.Skin = v },
	"cutoff":      func(c *config.Config, v float64) { c.Potential.Cutoff = v },
}

// Score reduces a run to the value the search minimizes.
type Score func(res *sim.Result) float64

// FinalEpot is the potential energy per particle of the last sample.
func FinalEpot(res *sim.Result) float64 {
	last := res.Thermo[len(res.Thermo)-1]
	return last.Epot / float64(max(last.N, 1))
}

// Metric scores a run by one of its recorded metrics.
func Metric(name string) Score {
	return func(res *sim.Result) float64 {
		v, ok := res.Metrics[name]
		if !ok {
			return math.Inf(1)
		}
		return v
	}
}

type Point struct {
	Params map[string]float64
	Score  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	log        logrus.FieldLogger
}

func NewGridSearch(params []string, ranges [][]float64, log logrus.FieldLogger) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("%d parameters but %d ranges", len(params), len(ranges))
	}
	for _, p := range params {
		if _, ok := Params[p]; !ok {
			return nil, fmt.Errorf("unknown scan parameter: %s", p)
		}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &GridSearch{paramNames: params, ranges: ranges, log: log}, nil
}

// Search runs base with every combination of values and returns the best
// point and every evaluated point. Points whose run fails are kept with
// their error and an infinite score.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, reg *experiment.Registry, score Score) (Point, []Point, error) {
	var points []Point
	if err := g.searchRecursive(ctx, 0, map[string]float64{}, base, reg, score, &points); err != nil {
		return Point{}, points, err
	}

	best := Point{Score: math.Inf(1)}
	for _, p := range points {
		if p.Err == nil && p.Score < best.Score {
			best = p
		}
	}
	if best.Params == nil {
		return best, points, fmt.Errorf("no scan point succeeded")
	}
	return best, points, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	reg *experiment.Registry,
	score Score,
	points *[]Point,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		cfg := base.Clone()
		for name, v := range current {
			Params[name](cfg, v)
		}
		p := Point{Params: current, Score: math.Inf(1)}

		exp := experiment.New(cfg, reg, g.log)
		if p.Err = exp.Setup(); p.Err == nil {
			var res *sim.Result
			if res, p.Err = exp.Run(ctx); p.Err == nil {
				p.Score = score(res)
			}
		}
		if p.Err != nil {
			g.log.WithField("params", current).Warnf("scan point failed: %v", p.Err)
		}
		*points = append(*points, p)
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, base, reg, score, points); err != nil {
			return err
		}
	}
	return nil
}
