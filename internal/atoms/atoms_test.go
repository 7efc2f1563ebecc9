package atoms

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/mdforce/internal/cell"
	"github.com/san-kum/mdforce/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	src := `# two atoms
1 0 2.0 1.0 2.0 3.0 0.5 0 -1

2 1 1.0 4.0 5.0 6.0
`
	ps, err := Read(strings.NewReader(src), "test", 3)
	require.NoError(t, err)
	require.Len(t, ps, 2)

	assert.Equal(t, int64(1), ps[0].ID)
	assert.Equal(t, dynamo.Vec{1, 2, 3}, ps[0].Pos)
	assert.Equal(t, dynamo.Vec{1, 0, -2}, ps[0].Mom)
	assert.Equal(t, 1, ps[1].Type)
	assert.Equal(t, dynamo.Vec{}, ps[1].Mom)
}

func TestRead2D(t *testing.T) {
	ps, err := Read(strings.NewReader("7 0 1 1.5 2.5 1 2\n"), "test", 2)
	require.NoError(t, err)
	assert.Equal(t, dynamo.Vec{1.5, 2.5, 0}, ps[0].Pos)
	assert.Equal(t, dynamo.Vec{1, 2, 0}, ps[0].Mom)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"short line", "1 0 1.0 1 2\n"},
		{"zero mass", "1 0 0 1 2 3\n"},
		{"negative mass", "1 0 -1 1 2 3\n"},
		{"negative type", "1 -1 1 1 2 3\n"},
		{"bad number", "1 0 1 1 x 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader("# header\n"+tt.src), "bad.atoms", 3)
			require.ErrorIs(t, err, ErrMalformed)
			assert.Contains(t, err.Error(), "bad.atoms line 2")
		})
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	ps, _ := FCC(1.6, cell.Coord{2, 2, 2}, 2, 1.5)
	Maxwell(ps, 0.3, 3, 1)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, ps, 3))
	back, err := Read(&buf, "buf", 3)
	require.NoError(t, err)
	require.Len(t, back, len(ps))
	for i := range ps {
		assert.Equal(t, ps[i].ID, back[i].ID)
		assert.Equal(t, ps[i].Type, back[i].Type)
		for d := 0; d < 3; d++ {
			assert.InDelta(t, ps[i].Pos[d], back[i].Pos[d], 1e-9)
			assert.InDelta(t, ps[i].Mom[d], back[i].Mom[d], 1e-9)
		}
	}
}

func TestWriteFileGzip(t *testing.T) {
	ps, _ := Hex2D(1, 3, 2, 1, 1)
	for _, name := range []string{"conf.atoms", "conf.atoms.gz"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, WriteFile(path, ps, 2))
		back, err := ReadFile(path, 2)
		require.NoError(t, err, name)
		assert.Len(t, back, len(ps), name)
	}
}

func nearest(ps []cell.Particle, box dynamo.Vec, dim int) float64 {
	best := math.Inf(1)
	for i := range ps {
		for j := i + 1; j < len(ps); j++ {
			d := ps[j].Pos.Sub(ps[i].Pos)
			for k := 0; k < dim; k++ {
				d[k] -= box[k] * math.Round(d[k]/box[k])
			}
			best = math.Min(best, d.Norm())
		}
	}
	return best
}

func TestFCC(t *testing.T) {
	ps, box := FCC(2, cell.Coord{3, 2, 2}, 1, 1)
	assert.Len(t, ps, 48)
	assert.Equal(t, dynamo.Vec{6, 4, 4}, box)
	assert.InDelta(t, 2/math.Sqrt2, nearest(ps, box, 3), 1e-12)
	for _, p := range ps {
		for d := 0; d < 3; d++ {
			assert.True(t, p.Pos[d] > 0 && p.Pos[d] < box[d])
		}
	}
}

func TestHex2D(t *testing.T) {
	ps, box := Hex2D(1.5, 4, 3, 2, 1)
	assert.Len(t, ps, 24)
	assert.InDelta(t, 1.5, nearest(ps, box, 2), 1e-12)
	assert.Zero(t, box[2])
}

func TestMaxwell(t *testing.T) {
	ps, _ := FCC(1.6, cell.Coord{4, 4, 4}, 1, 2)
	Maxwell(ps, 0.5, 3, 42)

	var total dynamo.Vec
	ekin := 0.0
	for _, p := range ps {
		total = total.Add(p.Mom)
		ekin += p.Mom.Norm2() / (2 * p.Mass)
	}
	assert.InDelta(t, 0, total.Norm(), 1e-9)
	assert.InDelta(t, 1.5*float64(len(ps))*0.5, ekin, 1e-9)

	again, _ := FCC(1.6, cell.Coord{4, 4, 4}, 1, 2)
	Maxwell(again, 0.5, 3, 42)
	assert.Equal(t, ps[17].Mom, again[17].Mom)
}
