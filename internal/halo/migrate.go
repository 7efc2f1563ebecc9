package halo

import (
	"context"
	"fmt"

	"github.com/san-kum/mdforce/internal/cell"
	"github.com/san-kum/mdforce/internal/comm"
	"github.com/san-kum/mdforce/internal/dynamo"
)

// Migrate wraps owned positions into the box and moves every particle
// whose cell changed. Particles leaving the rank travel one neighbor hop
// per axis, x then y then z; anything still undelivered afterwards is a
// fatal error.
func (e *Exchange) Migrate(ctx context.Context) error {
	g := e.grid
	e.strays = e.strays[:0]
	for _, idx := range g.Owned() {
		c := g.Cell(idx)
		for i := c.N - 1; i >= 0; i-- {
			c.Pos[i] = g.Wrap(c.Pos[i])
			if !c.Pos[i].IsValid() {
				return fmt.Errorf("%w: particle %d at %v", dynamo.ErrInvalidState, c.ID[i], c.Pos[i])
			}
			target, ok := g.Local(g.CellOf(c.Pos[i]))
			if ok && target == idx {
				continue
			}
			p := c.Particle(i)
			c.Remove(i)
			if ok {
				g.Cell(target).Append(p)
			} else {
				e.strays = append(e.strays, p)
			}
		}
	}

	for axis := 0; axis < g.Dim; axis++ {
		if g.Procs[axis] == 1 {
			continue
		}
		if err := e.migrateAxis(ctx, axis); err != nil {
			return fmt.Errorf("migrate axis %d: %w", axis, err)
		}
	}

	for _, p := range e.strays {
		gc := g.CellOf(p.Pos)
		idx, ok := g.Local(gc)
		if !ok {
			return fmt.Errorf("%w: particle %d in cell %v owned by rank %d reached rank %d",
				dynamo.ErrMigration, p.ID, gc, g.OwnerProcess(gc), g.Rank)
		}
		g.Cell(idx).Append(p)
	}
	e.strays = e.strays[:0]
	return nil
}

func (e *Exchange) migrateAxis(ctx context.Context, axis int) error {
	g := e.grid
	n := g.Procs[axis]
	mine := g.Proc[axis]
	var up, down, keep []cell.Particle
	for _, p := range e.strays {
		dest := g.ProcOf(g.OwnerProcess(g.CellOf(p.Pos)))[axis]
		switch dest {
		case mine:
			keep = append(keep, p)
		case (mine + 1) % n:
			up = append(up, p)
		case (mine - 1 + n) % n:
			down = append(down, p)
		default:
			return fmt.Errorf("%w: particle %d jumps from process %d to %d along axis %d",
				dynamo.ErrMigration, p.ID, mine, dest, axis)
		}
	}

	lo, hi := g.Neighbor(axis, -1), g.Neighbor(axis, 1)
	recvd, err := e.sendParticles(ctx, tag(tagMigrate, axis, 0), up, hi, lo)
	if err != nil {
		return err
	}
	keep = append(keep, recvd...)
	recvd, err = e.sendParticles(ctx, tag(tagMigrate, axis, 1), down, lo, hi)
	if err != nil {
		return err
	}
	e.strays = append(keep, recvd...)
	return nil
}

func (e *Exchange) sendParticles(ctx context.Context, tag int, ps []cell.Particle, to, from int) ([]cell.Particle, error) {
	refPos := e.grid.Cell(0).Fields().Has(cell.FieldRefPos)
	e.send.Reset()
	if err := e.send.Put(float64(len(ps))); err != nil {
		return nil, err
	}
	for _, p := range ps {
		if err := packParticle(e.send, p, refPos); err != nil {
			return nil, err
		}
	}
	if err := e.comm.SendRecv(ctx, e.send, to, e.recv, from, tag); err != nil {
		return nil, err
	}
	n := int(e.recv.Next())
	out := make([]cell.Particle, n)
	for i := range out {
		out[i] = unpackParticle(e.recv, refPos)
	}
	return out, nil
}

func packParticle(b *comm.MsgBuf, p cell.Particle, refPos bool) error {
	if err := b.PutVec(p.Pos); err != nil {
		return err
	}
	if err := b.PutVec(p.Mom); err != nil {
		return err
	}
	if err := b.Put(float64(p.Type), float64(p.ID), p.Mass); err != nil {
		return err
	}
	if refPos {
		return b.PutVec(p.RefPos)
	}
	return nil
}

func unpackParticle(b *comm.MsgBuf, refPos bool) cell.Particle {
	p := cell.Particle{
		Pos: b.NextVec(),
		Mom: b.NextVec(),
	}
	p.Type = int(b.Next())
	p.ID = int64(b.Next())
	p.Mass = b.Next()
	if refPos {
		p.RefPos = b.NextVec()
	}
	return p
}
