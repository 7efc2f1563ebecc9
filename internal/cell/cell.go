package cell

import (
	"fmt"

	"github.com/san-kum/mdforce/internal/dynamo"
)

// GrowStep is the minimum number of slots added when a cell runs full.
const GrowStep = 10

// Fields selects the optional per-particle arrays carried by every cell.
type Fields uint8

const (
	FieldRefPos Fields = 1 << iota
	FieldStress
	FieldRho
	FieldHeatFlux
)

func (f Fields) Has(o Fields) bool { return f&o != 0 }

// Particle is the value form of one slot, used to move particles in and
// out of cells.
type Particle struct {
	ID       int64
	Type     int
	Mass     float64
	Pos      dynamo.Vec
	Mom      dynamo.Vec
	Force    dynamo.Vec
	Epot     float64
	RefPos   dynamo.Vec
	Stress   dynamo.Tensor
	Rho      float64
	HeatFlux float64
}

// Cell stores particles as parallel arrays. Every array has the same
// length, the slot capacity; N slots are in use.
type Cell struct {
	N      int
	fields Fields

	Pos    []dynamo.Vec
	Mom    []dynamo.Vec
	Force  []dynamo.Vec
	NblPos []dynamo.Vec
	Epot   []float64
	Type   []int
	ID     []int64
	Mass   []float64

	RefPos   []dynamo.Vec
	Stress   []dynamo.Tensor
	Rho      []float64
	HeatFlux []float64
}

func New(fields Fields) *Cell {
	return &Cell{fields: fields}
}

func (c *Cell) Fields() Fields { return c.fields }

func (c *Cell) Cap() int { return len(c.Pos) }

// Reserve makes room for at least n slots. Capacity grows geometrically
// and never shrinks.
func (c *Cell) Reserve(n int) {
	if n <= c.Cap() {
		return
	}
	size := 2 * c.Cap()
	if size < c.Cap()+GrowStep {
		size = c.Cap() + GrowStep
	}
	if size < n {
		size = n
	}
	c.Pos = growVec(c.Pos, size)
	c.Mom = growVec(c.Mom, size)
	c.Force = growVec(c.Force, size)
	c.NblPos = growVec(c.NblPos, size)
	c.Epot = growFloat(c.Epot, size)
	c.Mass = growFloat(c.Mass, size)
	c.Type = append(c.Type, make([]int, size-len(c.Type))...)
	c.ID = append(c.ID, make([]int64, size-len(c.ID))...)
	if c.fields.Has(FieldRefPos) {
		c.RefPos = growVec(c.RefPos, size)
	}
	if c.fields.Has(FieldStress) {
		c.Stress = append(c.Stress, make([]dynamo.Tensor, size-len(c.Stress))...)
	}
	if c.fields.Has(FieldRho) {
		c.Rho = growFloat(c.Rho, size)
	}
	if c.fields.Has(FieldHeatFlux) {
		c.HeatFlux = growFloat(c.HeatFlux, size)
	}
}

func growVec(s []dynamo.Vec, n int) []dynamo.Vec {
	return append(s, make([]dynamo.Vec, n-len(s))...)
}

func growFloat(s []float64, n int) []float64 {
	return append(s, make([]float64, n-len(s))...)
}

// Append adds p at slot N and returns its index.
func (c *Cell) Append(p Particle) int {
	c.Reserve(c.N + 1)
	i := c.N
	c.N++
	c.Set(i, p)
	return i
}

func (c *Cell) Set(i int, p Particle) {
	c.Pos[i] = p.Pos
	c.Mom[i] = p.Mom
	c.Force[i] = p.Force
	c.NblPos[i] = p.Pos
	c.Epot[i] = p.Epot
	c.Type[i] = p.Type
	c.ID[i] = p.ID
	c.Mass[i] = p.Mass
	if c.fields.Has(FieldRefPos) {
		c.RefPos[i] = p.RefPos
	}
	if c.fields.Has(FieldStress) {
		c.Stress[i] = p.Stress
	}
	if c.fields.Has(FieldRho) {
		c.Rho[i] = p.Rho
	}
	if c.fields.Has(FieldHeatFlux) {
		c.HeatFlux[i] = p.HeatFlux
	}
}

func (c *Cell) Particle(i int) Particle {
	p := Particle{
		ID:    c.ID[i],
		Type:  c.Type[i],
		Mass:  c.Mass[i],
		Pos:   c.Pos[i],
		Mom:   c.Mom[i],
		Force: c.Force[i],
		Epot:  c.Epot[i],
	}
	if c.fields.Has(FieldRefPos) {
		p.RefPos = c.RefPos[i]
	}
	if c.fields.Has(FieldStress) {
		p.Stress = c.Stress[i]
	}
	if c.fields.Has(FieldRho) {
		p.Rho = c.Rho[i]
	}
	if c.fields.Has(FieldHeatFlux) {
		p.HeatFlux = c.HeatFlux[i]
	}
	return p
}

// Remove deletes slot i by moving the last particle into it. It is O(1)
// and does not preserve order.
func (c *Cell) Remove(i int) {
	if i < 0 || i >= c.N {
		panic(fmt.Errorf("%w: remove %d from cell with %d particles", dynamo.ErrIndexRange, i, c.N))
	}
	last := c.N - 1
	if i != last {
		c.move(last, i)
	}
	c.N--
}

func (c *Cell) move(from, to int) {
	c.Pos[to] = c.Pos[from]
	c.Mom[to] = c.Mom[from]
	c.Force[to] = c.Force[from]
	c.NblPos[to] = c.NblPos[from]
	c.Epot[to] = c.Epot[from]
	c.Type[to] = c.Type[from]
	c.ID[to] = c.ID[from]
	c.Mass[to] = c.Mass[from]
	if c.fields.Has(FieldRefPos) {
		c.RefPos[to] = c.RefPos[from]
	}
	if c.fields.Has(FieldStress) {
		c.Stress[to] = c.Stress[from]
	}
	if c.fields.Has(FieldRho) {
		c.Rho[to] = c.Rho[from]
	}
	if c.fields.Has(FieldHeatFlux) {
		c.HeatFlux[to] = c.HeatFlux[from]
	}
}

// Reset empties the cell and keeps its capacity.
func (c *Cell) Reset() { c.N = 0 }

// ClearAccumulators zeroes force, energy and the optional accumulators of
// every used slot.
func (c *Cell) ClearAccumulators() {
	for i := 0; i < c.N; i++ {
		c.Force[i] = dynamo.Vec{}
		c.Epot[i] = 0
	}
	if c.fields.Has(FieldStress) {
		for i := 0; i < c.N; i++ {
			c.Stress[i] = dynamo.Tensor{}
		}
	}
	if c.fields.Has(FieldRho) {
		for i := 0; i < c.N; i++ {
			c.Rho[i] = 0
		}
	}
	if c.fields.Has(FieldHeatFlux) {
		for i := 0; i < c.N; i++ {
			c.HeatFlux[i] = 0
		}
	}
}
