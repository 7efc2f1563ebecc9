package halo

import (
	"context"
	"testing"

	"github.com/san-kum/mdforce/internal/cell"
	"github.com/san-kum/mdforce/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateDeliversToOwner(t *testing.T) {
	box := dynamo.Vec{12, 12, 12}
	ranks := newWorld(t, 3, box, cell.Coord{2, 2, 1}, 3, cell.FieldRefPos)
	ps := centered(box, ranks[0].grid.Global, 3)
	for i := range ps {
		ps[i].RefPos = ps[i].Pos
		ps[i].Mom = dynamo.Vec{float64(i), 0, 0}
	}
	insertAll(t, ranks, ps)

	// move particles across cell, rank and periodic boundaries
	moves := map[int64]dynamo.Vec{
		0:  {-0.7, -0.7, 0},
		5:  {3, 0, 0},
		17: {0, 4.5, -2},
		30: {2.9, 2.9, 2.9},
		63: {1.8, 1.8, 1.8},
	}
	for _, r := range ranks {
		for _, idx := range r.grid.Owned() {
			c := r.grid.Cell(idx)
			for i := 0; i < c.N; i++ {
				if d, ok := moves[c.ID[i]]; ok {
					c.Pos[i] = c.Pos[i].Add(d)
				}
			}
		}
	}

	err := runAll(t, ranks, func(ctx context.Context, r *rank) error {
		if err := r.ex.SetupBuffers(ctx); err != nil {
			return err
		}
		return r.ex.Migrate(ctx)
	})
	require.NoError(t, err)

	seen := map[int64]bool{}
	for _, r := range ranks {
		g := r.grid
		for _, idx := range g.Owned() {
			c := g.Cell(idx)
			for i := 0; i < c.N; i++ {
				id := c.ID[i]
				assert.False(t, seen[id], "particle %d duplicated", id)
				seen[id] = true

				want, ok := g.Local(g.CellOf(c.Pos[i]))
				require.True(t, ok, "particle %d on wrong rank", id)
				assert.Equal(t, want, idx, "particle %d in wrong cell", id)
				for d := 0; d < 3; d++ {
					assert.True(t, c.Pos[i][d] >= 0 && c.Pos[i][d] < box[d])
				}
				assert.Equal(t, float64(id), c.Mom[i][0])
				if _, moved := moves[id]; !moved {
					assert.Equal(t, c.RefPos[i], c.Pos[i])
				}
			}
		}
	}
	assert.Len(t, seen, len(ps))
}

func TestMigrateRejectsLongJumps(t *testing.T) {
	box := dynamo.Vec{24, 6, 6}
	ranks := newWorld(t, 3, box, cell.Coord{4, 1, 1}, 2, 0)
	insertAll(t, ranks, []cell.Particle{{ID: 1, Pos: dynamo.Vec{1, 1, 1}}})

	c := ranks[0].grid.Cell(ranks[0].grid.Owned()[0])
	require.Equal(t, 1, c.N)
	c.Pos[0][0] += 12

	err := runAll(t, ranks, func(ctx context.Context, r *rank) error {
		if err := r.ex.SetupBuffers(ctx); err != nil {
			return err
		}
		return r.ex.Migrate(ctx)
	})
	assert.ErrorIs(t, err, dynamo.ErrMigration)
}

func TestMigrateRejectsNaN(t *testing.T) {
	ranks := newWorld(t, 3, dynamo.Vec{9, 9, 9}, cell.Coord{1, 1, 1}, 3, 0)
	insertAll(t, ranks, []cell.Particle{{ID: 1, Pos: dynamo.Vec{1, 1, 1}}})
	c := ranks[0].grid.Cell(ranks[0].grid.Owned()[0])
	c.Pos[0][1] = nan()

	err := ranks[0].ex.Migrate(context.Background())
	assert.ErrorIs(t, err, dynamo.ErrInvalidState)
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
