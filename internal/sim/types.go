package sim

import (
	"fmt"

	"github.com/san-kum/mdforce/internal/cell"
	"github.com/san-kum/mdforce/internal/dynamo"
	"github.com/san-kum/mdforce/internal/force"
)

// Integrator splits a step around the force evaluation: Drift before it,
// Kick after it. Both touch owned particles only.
type Integrator interface {
	Name() string
	Drift(g *cell.Grid, dt float64)
	Kick(g *cell.Grid, dt float64)
}

type Metric interface {
	Name() string
	Observe(th Thermo)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(th Thermo)
}

// Thermo is one sample of global thermodynamic quantities, with k_B = 1.
type Thermo struct {
	Step        int           `json:"step"`
	Time        float64       `json:"time"`
	N           int           `json:"n"`
	Epot        float64       `json:"epot"`
	Ekin        float64       `json:"ekin"`
	Etot        float64       `json:"etot"`
	Temperature float64       `json:"temperature"`
	Pressure    float64       `json:"pressure"`
	Virial      float64       `json:"virial"`
	Tensor      dynamo.Tensor `json:"tensor"`
	Rebuilt     bool          `json:"rebuilt"`
}

// World describes the box, its decomposition and the interaction range.
type World struct {
	Dim    int
	Box    dynamo.Vec
	Procs  cell.Coord
	Cutoff float64
	Skin   float64
	Force  force.Options
}

func (w World) Ranks() int {
	n := 1
	for _, p := range w.Procs {
		if p > 0 {
			n *= p
		}
	}
	return n
}

func (w World) Volume() float64 {
	v := 1.0
	for d := 0; d < w.Dim; d++ {
		v *= w.Box[d]
	}
	return v
}

func (w World) validate() error {
	if w.Dim != 2 && w.Dim != 3 {
		return fmt.Errorf("%w: dim %d", dynamo.ErrDimensionMismatch, w.Dim)
	}
	if w.Cutoff <= 0 {
		return fmt.Errorf("cutoff must be positive, got %g", w.Cutoff)
	}
	if w.Skin < 0 {
		return fmt.Errorf("skin must not be negative, got %g", w.Skin)
	}
	return nil
}

type Config struct {
	Dt    float64
	Steps int
	// ThermoEvery is the sampling interval; zero samples every step.
	ThermoEvery   int
	ValidateState bool
}

type Result struct {
	Thermo     []Thermo
	Metrics    map[string]float64
	StepsTaken int
	Stats      force.Stats
	// Particles holds the final configuration ordered by ID.
	Particles []cell.Particle
}
