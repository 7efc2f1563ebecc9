package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/mdforce/internal/cell"
	"github.com/san-kum/mdforce/internal/dynamo"
)

type stepper interface {
	Drift(g *cell.Grid, dt float64)
	Kick(g *cell.Grid, dt float64)
}

// oscillator holds one particle of mass 2 on a spring of stiffness 2
// centered in the box, so the angular frequency is 1.
func oscillator(t testing.TB) (*cell.Grid, *cell.Cell) {
	t.Helper()
	g, err := cell.NewGrid(cell.GridConfig{Dim: 3, Box: dynamo.Vec{30, 30, 30}, MinCellSize: 10})
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if err := g.Insert(cell.Particle{ID: 1, Mass: 2, Pos: dynamo.Vec{16, 15, 15}}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	for _, idx := range g.Owned() {
		if c := g.Cell(idx); c.N > 0 {
			return g, c
		}
	}
	t.Fatal("particle not stored")
	return nil, nil
}

func spring(c *cell.Cell) {
	c.Force[0] = c.Pos[0].Sub(dynamo.Vec{15, 15, 15}).Scale(-2)
}

func run(s stepper, g *cell.Grid, c *cell.Cell, steps int, dt float64) {
	spring(c)
	for i := 0; i < steps; i++ {
		s.Drift(g, dt)
		spring(c)
		s.Kick(g, dt)
	}
}

func TestVelocityVerletAccuracy(t *testing.T) {
	g, c := oscillator(t)
	dt := 0.01
	steps := 100
	run(NewVelocityVerlet(), g, c, steps, dt)

	wantX := 15 + math.Cos(float64(steps)*dt)
	wantP := -2 * math.Sin(float64(steps)*dt)
	if math.Abs(c.Pos[0][0]-wantX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", c.Pos[0][0], wantX)
	}
	if math.Abs(c.Mom[0][0]-wantP) > 1e-4 {
		t.Errorf("momentum error too large: got %.6f, expected %.6f", c.Mom[0][0], wantP)
	}
}

func TestVelocityVerletConservesEnergy(t *testing.T) {
	g, c := oscillator(t)
	energy := func() float64 {
		x := c.Pos[0][0] - 15
		return c.Mom[0].Norm2()/(2*c.Mass[0]) + x*x
	}
	e0 := energy()
	run(NewVelocityVerlet(), g, c, 10000, 0.02)
	if drift := math.Abs(energy()-e0) / e0; drift > 1e-3 {
		t.Errorf("energy drift %.2e over 10000 steps", drift)
	}
}

func TestMIKQuenches(t *testing.T) {
	g, c := oscillator(t)
	run(NewMIK(), g, c, 2000, 0.05)
	x := math.Abs(c.Pos[0][0] - 15)
	if x > 1e-3 {
		t.Errorf("expected quench to the spring center, still %.2e away", x)
	}
}

func TestNames(t *testing.T) {
	if n := NewVelocityVerlet().Name(); n != "nve" {
		t.Errorf("got %s", n)
	}
	if n := NewMIK().Name(); n != "mik" {
		t.Errorf("got %s", n)
	}
}
