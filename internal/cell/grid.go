package cell

import (
	"fmt"
	"math"

	"github.com/san-kum/mdforce/internal/dynamo"
)

// Coord is an integer cell or process coordinate. In 2D the z entry is 0.
type Coord [3]int

type GridConfig struct {
	Dim         int
	Box         dynamo.Vec
	Procs       Coord
	Rank        int
	MinCellSize float64
	Fields      Fields
}

// Grid is one rank's view of the global cell decomposition: its owned
// block of cells and the single layer of buffer cells around it.
//
// Local coordinates run from 0 to Size-1 along each axis; 0 and Size-1
// are buffer layers. In 2D the z axis has Size 1 and no buffers.
type Grid struct {
	Dim      int
	Box      dynamo.Vec
	CellSize dynamo.Vec
	Global   Coord // cells in the whole box
	Procs    Coord
	Block    Coord // owned cells per axis
	Size     Coord // local array extent, Block+2 on buffered axes
	Lo       Coord // global coordinate of the first owned cell
	Proc     Coord
	Rank     int

	cells     []*Cell
	owned     []int
	relations [][]int
	fields    Fields
}

func NewGrid(cfg GridConfig) (*Grid, error) {
	if cfg.Dim != 2 && cfg.Dim != 3 {
		return nil, fmt.Errorf("%w: dim must be 2 or 3, got %d", dynamo.ErrDimensionMismatch, cfg.Dim)
	}
	if cfg.MinCellSize <= 0 {
		return nil, fmt.Errorf("%w: cell size must be positive, got %g", dynamo.ErrGridTooSmall, cfg.MinCellSize)
	}
	procs := cfg.Procs
	for d := 0; d < 3; d++ {
		if procs[d] == 0 {
			procs[d] = 1
		}
		if procs[d] < 0 {
			return nil, fmt.Errorf("%w: %v", dynamo.ErrProcGrid, cfg.Procs)
		}
	}
	if cfg.Dim == 2 && procs[2] != 1 {
		return nil, fmt.Errorf("%w: 2D run with %d processes along z", dynamo.ErrProcGrid, procs[2])
	}
	nranks := procs[0] * procs[1] * procs[2]
	if cfg.Rank < 0 || cfg.Rank >= nranks {
		return nil, fmt.Errorf("%w: rank %d outside %v", dynamo.ErrProcGrid, cfg.Rank, procs)
	}

	g := &Grid{
		Dim:    cfg.Dim,
		Box:    cfg.Box,
		Procs:  procs,
		Rank:   cfg.Rank,
		fields: cfg.Fields,
	}
	g.Proc = g.ProcOf(cfg.Rank)

	for d := 0; d < 3; d++ {
		if d >= cfg.Dim {
			g.Global[d], g.Block[d], g.Size[d] = 1, 1, 1
			g.CellSize[d] = 1
			continue
		}
		if cfg.Box[d] <= 0 {
			return nil, fmt.Errorf("%w: box length %g along axis %d", dynamo.ErrGridTooSmall, cfg.Box[d], d)
		}
		n := int(math.Floor(cfg.Box[d] / cfg.MinCellSize))
		n -= n % procs[d]
		if n < 3 {
			return nil, fmt.Errorf("%w: %d cells along axis %d (box %g, cell %g, %d procs)",
				dynamo.ErrGridTooSmall, n, d, cfg.Box[d], cfg.MinCellSize, procs[d])
		}
		g.Global[d] = n
		g.Block[d] = n / procs[d]
		g.Size[d] = g.Block[d] + 2
		g.CellSize[d] = cfg.Box[d] / float64(n)
		g.Lo[d] = g.Proc[d] * g.Block[d]
	}

	total := g.Size[0] * g.Size[1] * g.Size[2]
	g.cells = make([]*Cell, total)
	for i := range g.cells {
		g.cells[i] = New(cfg.Fields)
	}
	for x := 1; x <= g.Block[0]; x++ {
		for y := 1; y <= g.Block[1]; y++ {
			for z := g.ownedLo(2); z <= g.ownedHi(2); z++ {
				g.owned = append(g.owned, g.Index(Coord{x, y, z}))
			}
		}
	}
	g.buildRelations()
	return g, nil
}

func (g *Grid) buffered(axis int) bool { return axis < g.Dim }

// ownedLo and ownedHi bound the owned local range along axis.
func (g *Grid) ownedLo(axis int) int {
	if g.buffered(axis) {
		return 1
	}
	return 0
}

func (g *Grid) ownedHi(axis int) int {
	if g.buffered(axis) {
		return g.Block[axis]
	}
	return 0
}

// halfShell lists the directed neighbor offsets, self first. Each
// unordered pair of adjacent cells appears exactly once.
var halfShell3D = []Coord{
	{0, 0, 0},
	{1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {-1, 1, 0},
	{-1, -1, 1}, {0, -1, 1}, {1, -1, 1},
	{-1, 0, 1}, {0, 0, 1}, {1, 0, 1},
	{-1, 1, 1}, {0, 1, 1}, {1, 1, 1},
}

var halfShell2D = []Coord{
	{0, 0, 0},
	{1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {-1, 1, 0},
}

func (g *Grid) buildRelations() {
	shell := halfShell3D
	if g.Dim == 2 {
		shell = halfShell2D
	}
	g.relations = make([][]int, len(g.owned))
	for k, idx := range g.owned {
		c := g.CoordOf(idx)
		rel := make([]int, len(shell))
		for r, off := range shell {
			rel[r] = g.Index(Coord{c[0] + off[0], c[1] + off[1], c[2] + off[2]})
		}
		g.relations[k] = rel
	}
}

// Index maps a local coordinate to the cell array index.
func (g *Grid) Index(c Coord) int {
	return (c[0]*g.Size[1]+c[1])*g.Size[2] + c[2]
}

func (g *Grid) CoordOf(idx int) Coord {
	z := idx % g.Size[2]
	idx /= g.Size[2]
	return Coord{idx / g.Size[1], idx % g.Size[1], z}
}

func (g *Grid) Cell(idx int) *Cell { return g.cells[idx] }

func (g *Grid) NumCells() int { return len(g.cells) }

// Owned returns the indices of owned cells in enumeration order.
func (g *Grid) Owned() []int { return g.owned }

// Relations returns the half-shell neighbor cells of the k-th owned cell.
func (g *Grid) Relations(k int) []int { return g.relations[k] }

func (g *Grid) IsOwned(idx int) bool {
	c := g.CoordOf(idx)
	for d := 0; d < 3; d++ {
		if c[d] < g.ownedLo(d) || c[d] > g.ownedHi(d) {
			return false
		}
	}
	return true
}

// CellOf returns the global cell containing pos. pos must already be
// inside the box.
func (g *Grid) CellOf(pos dynamo.Vec) Coord {
	var c Coord
	for d := 0; d < g.Dim; d++ {
		c[d] = int(math.Floor(pos[d] / g.CellSize[d]))
		if c[d] >= g.Global[d] {
			c[d] = g.Global[d] - 1
		}
		if c[d] < 0 {
			c[d] = 0
		}
	}
	return c
}

// OwnerProcess returns the rank owning global cell c.
func (g *Grid) OwnerProcess(c Coord) int {
	var p Coord
	for d := 0; d < 3; d++ {
		p[d] = c[d] / g.Block[d]
	}
	return g.RankOf(p)
}

// RankOf maps a process coordinate to its rank, row-major over Procs.
func (g *Grid) RankOf(p Coord) int {
	return (p[0]*g.Procs[1]+p[1])*g.Procs[2] + p[2]
}

func (g *Grid) ProcOf(rank int) Coord {
	z := rank % g.Procs[2]
	rank /= g.Procs[2]
	return Coord{rank / g.Procs[1], rank % g.Procs[1], z}
}

// Neighbor returns the rank adjacent along axis in direction dir (+1 or
// -1), wrapping periodically.
func (g *Grid) Neighbor(axis, dir int) int {
	p := g.Proc
	p[axis] = (p[axis] + dir + g.Procs[axis]) % g.Procs[axis]
	return g.RankOf(p)
}

// Local maps a global cell to its local index if this rank owns it.
func (g *Grid) Local(global Coord) (int, bool) {
	var c Coord
	for d := 0; d < 3; d++ {
		if !g.buffered(d) {
			continue
		}
		c[d] = global[d] - g.Lo[d] + 1
		if c[d] < 1 || c[d] > g.Block[d] {
			return 0, false
		}
	}
	return g.Index(c), true
}

// Layer returns the plane of cells at local coordinate at along axis.
// Axes processed before axis span their full local range including
// buffers; later axes span the owned range. Exchanging layers axis by
// axis in this shape fills edge and corner buffers.
func (g *Grid) Layer(axis, at int) []int {
	var lo, hi Coord
	for d := 0; d < 3; d++ {
		switch {
		case d == axis:
			lo[d], hi[d] = at, at
		case d < axis:
			lo[d], hi[d] = 0, g.Size[d]-1
		default:
			lo[d], hi[d] = g.ownedLo(d), g.ownedHi(d)
		}
	}
	var out []int
	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for z := lo[2]; z <= hi[2]; z++ {
				out = append(out, g.Index(Coord{x, y, z}))
			}
		}
	}
	return out
}

// Wrap folds pos into the box.
func (g *Grid) Wrap(pos dynamo.Vec) dynamo.Vec {
	for d := 0; d < g.Dim; d++ {
		pos[d] = dynamo.Wrap(pos[d], g.Box[d])
	}
	return pos
}

// Insert stores p in its owned cell.
func (g *Grid) Insert(p Particle) error {
	if !p.Pos.IsValid() {
		return fmt.Errorf("%w: particle %d at %v", dynamo.ErrInvalidState, p.ID, p.Pos)
	}
	p.Pos = g.Wrap(p.Pos)
	gc := g.CellOf(p.Pos)
	idx, ok := g.Local(gc)
	if !ok {
		return fmt.Errorf("%w: particle %d in cell %v belongs to rank %d, not %d",
			dynamo.ErrNotOwned, p.ID, gc, g.OwnerProcess(gc), g.Rank)
	}
	g.cells[idx].Append(p)
	return nil
}

// NumOwned counts particles in owned cells.
func (g *Grid) NumOwned() int {
	n := 0
	for _, idx := range g.owned {
		n += g.cells[idx].N
	}
	return n
}

// LargestOwned returns the occupancy of the fullest owned cell.
func (g *Grid) LargestOwned() int {
	m := 0
	for _, idx := range g.owned {
		if n := g.cells[idx].N; n > m {
			m = n
		}
	}
	return m
}

// Volume returns the box volume, or area in 2D.
func (g *Grid) Volume() float64 {
	v := 1.0
	for d := 0; d < g.Dim; d++ {
		v *= g.Box[d]
	}
	return v
}

// Particles returns copies of all owned particles in cell order.
func (g *Grid) Particles() []Particle {
	out := make([]Particle, 0, g.NumOwned())
	for _, idx := range g.owned {
		c := g.cells[idx]
		for i := 0; i < c.N; i++ {
			out = append(out, c.Particle(i))
		}
	}
	return out
}
