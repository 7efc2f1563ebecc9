package halo

import (
	"context"
	"fmt"

	"github.com/san-kum/mdforce/internal/cell"
	"github.com/san-kum/mdforce/internal/comm"
	"github.com/san-kum/mdforce/internal/dynamo"
	"github.com/sirupsen/logrus"
)

// CellSafety is added to the largest cell occupancy when sizing buffers.
const CellSafety = 10

const (
	tagRefresh = iota + 1
	tagMigrate
	tagScatter
	tagRhoReduce
	tagRhoBroadcast
)

func tag(kind, axis, phase int) int { return kind*8 + axis*2 + phase }

type Options struct {
	Logger logrus.FieldLogger
}

// Exchange keeps buffer cells current, returns accumulated buffer data to
// its owners and moves particles between cells and ranks.
type Exchange struct {
	grid *cell.Grid
	comm comm.Comm
	log  logrus.FieldLogger

	send *comm.MsgBuf
	recv *comm.MsgBuf

	// layers[axis]: owned low, owned high, buffer low, buffer high
	layers    [3][4][]int
	faceCells int
	perPart   int
	strays    []cell.Particle
}

const (
	ownedLo = iota
	ownedHi
	bufLo
	bufHi
)

func New(grid *cell.Grid, c comm.Comm, opts Options) *Exchange {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	e := &Exchange{
		grid: grid,
		comm: c,
		log:  log,
		send: comm.NewMsgBuf(0),
		recv: comm.NewMsgBuf(0),
	}
	for axis := 0; axis < grid.Dim; axis++ {
		e.layers[axis] = [4][]int{
			grid.Layer(axis, 1),
			grid.Layer(axis, grid.Block[axis]),
			grid.Layer(axis, 0),
			grid.Layer(axis, grid.Size[axis]-1),
		}
		if n := len(e.layers[axis][ownedLo]); n > e.faceCells {
			e.faceCells = n
		}
	}
	e.perPart = max(refreshFields, migrateFields(grid), scatterFields)
	return e
}

const (
	refreshFields = 6  // pos, type, id, mass
	scatterFields = 11 // force, epot, stress, heat flux
)

func migrateFields(g *cell.Grid) int {
	n := 9 // pos, mom, type, id, mass
	if g.Cell(0).Fields().Has(cell.FieldRefPos) {
		n += 3
	}
	return n
}

func (e *Exchange) Grid() *cell.Grid { return e.grid }

func (e *Exchange) Comm() comm.Comm { return e.comm }

// Capacity is the current message buffer size in values.
func (e *Exchange) Capacity() int { return e.send.Cap() }

// SetupBuffers sizes the message buffers from the largest owned cell on
// any rank. Buffers are reallocated only when they must grow.
func (e *Exchange) SetupBuffers(ctx context.Context) error {
	largest := []float64{float64(e.grid.LargestOwned())}
	if err := e.comm.AllReduce(ctx, comm.Max, largest); err != nil {
		return err
	}
	need := (int(largest[0])+CellSafety)*e.faceCells*e.perPart + e.faceCells + 1
	if e.send.Grow(need) {
		e.recv.Grow(need)
		e.log.WithField("rank", e.comm.Rank()).Debugf("message buffers grown to %d values (largest cell %d)", need, int(largest[0]))
	}
	return nil
}

// ReduceScalar combines v over all ranks.
func (e *Exchange) ReduceScalar(ctx context.Context, op comm.Op, v float64) (float64, error) {
	vals := []float64{v}
	if err := e.comm.AllReduce(ctx, op, vals); err != nil {
		return 0, err
	}
	return vals[0], nil
}

type packFunc func(c *cell.Cell, b *comm.MsgBuf) error
type unpackFunc func(c *cell.Cell, n int, b *comm.MsgBuf) error

// swap packs sendCells for rank to and unpacks the reply from rank from
// into recvCells. Each cell is preceded by its particle count.
func (e *Exchange) swap(ctx context.Context, tag int, sendCells []int, to int, recvCells []int, from int, pack packFunc, unpack unpackFunc) error {
	e.send.Reset()
	for _, idx := range sendCells {
		c := e.grid.Cell(idx)
		if err := e.send.Put(float64(c.N)); err != nil {
			return err
		}
		if err := pack(c, e.send); err != nil {
			return err
		}
	}
	if err := e.comm.SendRecv(ctx, e.send, to, e.recv, from, tag); err != nil {
		return err
	}
	for _, idx := range recvCells {
		n := int(e.recv.Next())
		if err := unpack(e.grid.Cell(idx), n, e.recv); err != nil {
			return err
		}
	}
	return nil
}

// shifts returns the periodic image offsets applied to the low and high
// owned layers when they cross the box boundary.
func (e *Exchange) shifts(axis int) (lo, hi dynamo.Vec) {
	g := e.grid
	if g.Proc[axis] == 0 {
		lo[axis] = g.Box[axis]
	}
	if g.Proc[axis] == g.Procs[axis]-1 {
		hi[axis] = -g.Box[axis]
	}
	return lo, hi
}

// RefreshBuffers copies the owned boundary layers into the buffer cells
// of the neighbor ranks, axis by axis.
func (e *Exchange) RefreshBuffers(ctx context.Context) error {
	for axis := 0; axis < e.grid.Dim; axis++ {
		l := e.layers[axis]
		shLo, shHi := e.shifts(axis)
		down, up := e.grid.Neighbor(axis, -1), e.grid.Neighbor(axis, 1)

		if err := e.swap(ctx, tag(tagRefresh, axis, 0), l[ownedLo], down, l[bufHi], up, packState(shLo), unpackState); err != nil {
			return fmt.Errorf("refresh axis %d: %w", axis, err)
		}
		if err := e.swap(ctx, tag(tagRefresh, axis, 1), l[ownedHi], up, l[bufLo], down, packState(shHi), unpackState); err != nil {
			return fmt.Errorf("refresh axis %d: %w", axis, err)
		}
	}
	return nil
}

func packState(shift dynamo.Vec) packFunc {
	return func(c *cell.Cell, b *comm.MsgBuf) error {
		for i := 0; i < c.N; i++ {
			p := c.Pos[i].Add(shift)
			if err := b.Put(p[0], p[1], p[2], float64(c.Type[i]), float64(c.ID[i]), c.Mass[i]); err != nil {
				return err
			}
		}
		return nil
	}
}

func unpackState(c *cell.Cell, n int, b *comm.MsgBuf) error {
	c.Reset()
	c.Reserve(n)
	for i := 0; i < n; i++ {
		pos := b.NextVec()
		typ := int(b.Next())
		id := int64(b.Next())
		c.Append(cell.Particle{Pos: pos, Type: typ, ID: id, Mass: b.Next()})
	}
	return nil
}

// ScatterForces folds the force, energy and optional stress and heat flux
// accumulated in buffer cells back into the owning cells, in reverse axis
// order. Buffer accumulators are zeroed once sent.
func (e *Exchange) ScatterForces(ctx context.Context) error {
	for axis := e.grid.Dim - 1; axis >= 0; axis-- {
		if err := e.fold(ctx, tagScatter, axis, packForces, unpackAddForces); err != nil {
			return fmt.Errorf("scatter axis %d: %w", axis, err)
		}
	}
	return nil
}

// fold sends both buffer layers of axis back to their owners, which
// combine them into their owned layers.
func (e *Exchange) fold(ctx context.Context, kind, axis int, pack packFunc, unpack unpackFunc) error {
	l := e.layers[axis]
	down, up := e.grid.Neighbor(axis, -1), e.grid.Neighbor(axis, 1)
	if err := e.swap(ctx, tag(kind, axis, 0), l[bufHi], up, l[ownedLo], down, pack, unpack); err != nil {
		return err
	}
	return e.swap(ctx, tag(kind, axis, 1), l[bufLo], down, l[ownedHi], up, pack, unpack)
}

func packForces(c *cell.Cell, b *comm.MsgBuf) error {
	stress := c.Fields().Has(cell.FieldStress)
	heat := c.Fields().Has(cell.FieldHeatFlux)
	for i := 0; i < c.N; i++ {
		if err := b.PutVec(c.Force[i]); err != nil {
			return err
		}
		if err := b.Put(c.Epot[i]); err != nil {
			return err
		}
		c.Force[i] = dynamo.Vec{}
		c.Epot[i] = 0
		if stress {
			if err := b.Put(c.Stress[i][:]...); err != nil {
				return err
			}
			c.Stress[i] = dynamo.Tensor{}
		}
		if heat {
			if err := b.Put(c.HeatFlux[i]); err != nil {
				return err
			}
			c.HeatFlux[i] = 0
		}
	}
	return nil
}

func checkCount(c *cell.Cell, n int) error {
	if n != c.N {
		return fmt.Errorf("%w: %d particles received for a cell holding %d", dynamo.ErrLayerMismatch, n, c.N)
	}
	return nil
}

func unpackAddForces(c *cell.Cell, n int, b *comm.MsgBuf) error {
	if err := checkCount(c, n); err != nil {
		return err
	}
	stress := c.Fields().Has(cell.FieldStress)
	heat := c.Fields().Has(cell.FieldHeatFlux)
	for i := 0; i < n; i++ {
		c.Force[i] = c.Force[i].Add(b.NextVec())
		c.Epot[i] += b.Next()
		if stress {
			for k := range c.Stress[i] {
				c.Stress[i][k] += b.Next()
			}
		}
		if heat {
			c.HeatFlux[i] += b.Next()
		}
	}
	return nil
}

// ReduceDensity adds the host density accumulated in buffer cells into
// the owning particles.
func (e *Exchange) ReduceDensity(ctx context.Context) error {
	for axis := e.grid.Dim - 1; axis >= 0; axis-- {
		if err := e.fold(ctx, tagRhoReduce, axis, packRho(true), unpackAddRho); err != nil {
			return fmt.Errorf("density reduce axis %d: %w", axis, err)
		}
	}
	return nil
}

// BroadcastDensity copies the final host density of owned boundary
// particles into the buffer cells of the neighbor ranks.
func (e *Exchange) BroadcastDensity(ctx context.Context) error {
	for axis := 0; axis < e.grid.Dim; axis++ {
		l := e.layers[axis]
		down, up := e.grid.Neighbor(axis, -1), e.grid.Neighbor(axis, 1)
		if err := e.swap(ctx, tag(tagRhoBroadcast, axis, 0), l[ownedLo], down, l[bufHi], up, packRho(false), unpackSetRho); err != nil {
			return fmt.Errorf("density broadcast axis %d: %w", axis, err)
		}
		if err := e.swap(ctx, tag(tagRhoBroadcast, axis, 1), l[ownedHi], up, l[bufLo], down, packRho(false), unpackSetRho); err != nil {
			return fmt.Errorf("density broadcast axis %d: %w", axis, err)
		}
	}
	return nil
}

func packRho(clear bool) packFunc {
	return func(c *cell.Cell, b *comm.MsgBuf) error {
		if err := b.Put(c.Rho[:c.N]...); err != nil {
			return err
		}
		if clear {
			for i := 0; i < c.N; i++ {
				c.Rho[i] = 0
			}
		}
		return nil
	}
}

func unpackAddRho(c *cell.Cell, n int, b *comm.MsgBuf) error {
	if err := checkCount(c, n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		c.Rho[i] += b.Next()
	}
	return nil
}

func unpackSetRho(c *cell.Cell, n int, b *comm.MsgBuf) error {
	if err := checkCount(c, n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		c.Rho[i] = b.Next()
	}
	return nil
}
