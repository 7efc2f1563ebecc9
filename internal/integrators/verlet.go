package integrators

import (
	"github.com/san-kum/mdforce/internal/cell"
	"github.com/san-kum/mdforce/internal/dynamo"
)

// VelocityVerlet integrates at constant energy. A step is Drift, a force
// evaluation, then Kick.
type VelocityVerlet struct{}

func NewVelocityVerlet() *VelocityVerlet {
	return &VelocityVerlet{}
}

func (v *VelocityVerlet) Name() string { return "nve" }

// Drift applies the first half kick and moves every owned particle a full
// step.
func (v *VelocityVerlet) Drift(g *cell.Grid, dt float64) {
	halfDt := 0.5 * dt
	owned := g.Owned()
	dynamo.ParallelFor(len(owned), 16, func(start, end int) {
		for _, idx := range owned[start:end] {
			c := g.Cell(idx)
			for i := 0; i < c.N; i++ {
				c.Mom[i] = c.Mom[i].Add(c.Force[i].Scale(halfDt))
				c.Pos[i] = c.Pos[i].Add(c.Mom[i].Scale(dt / c.Mass[i]))
			}
		}
	})
}

// Kick applies the second half kick with the new forces.
func (v *VelocityVerlet) Kick(g *cell.Grid, dt float64) {
	halfDt := 0.5 * dt
	owned := g.Owned()
	dynamo.ParallelFor(len(owned), 16, func(start, end int) {
		for _, idx := range owned[start:end] {
			c := g.Cell(idx)
			for i := 0; i < c.N; i++ {
				c.Mom[i] = c.Mom[i].Add(c.Force[i].Scale(halfDt))
			}
		}
	})
}

// MIK is velocity Verlet with microconvergent quenching: after each kick,
// any particle moving against its force is stopped.
type MIK struct {
	VelocityVerlet
}

func NewMIK() *MIK {
	return &MIK{}
}

func (m *MIK) Name() string { return "mik" }

func (m *MIK) Kick(g *cell.Grid, dt float64) {
	m.VelocityVerlet.Kick(g, dt)
	owned := g.Owned()
	dynamo.ParallelFor(len(owned), 16, func(start, end int) {
		for _, idx := range owned[start:end] {
			c := g.Cell(idx)
			for i := 0; i < c.N; i++ {
				if c.Mom[i].Dot(c.Force[i]) < 0 {
					c.Mom[i] = dynamo.Vec{}
				}
			}
		}
	})
}
