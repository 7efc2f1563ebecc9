package export

import (
	"strings"
	"testing"

	"github.com/san-kum/mdforce/internal/cell"
	"github.com/san-kum/mdforce/internal/dynamo"
)

func TestParticlesSVG(t *testing.T) {
	ps := []cell.Particle{
		{ID: 0, Type: 0, Pos: dynamo.Vec{1, 1, 0}},
		{ID: 1, Type: 1, Pos: dynamo.Vec{-1, 3, 0}},
	}
	out := ParticlesSVG(ps, dynamo.Vec{4, 4, 4}, 10)

	if got := strings.Count(out, "<circle"); got != 2 {
		t.Errorf("expected 2 circles, got %d", got)
	}
	// -1 wraps to 3 and y is flipped
	if !strings.Contains(out, `cx="30.0" cy="10.0"`) {
		t.Errorf("wrapped particle not found in\n%s", out)
	}
	if !strings.Contains(out, typeColors[1]) {
		t.Error("type 1 color missing")
	}
}

func TestSeriesSVG(t *testing.T) {
	if SeriesSVG([]float64{0}, []float64{1}, 100, 50, "#fff") != "" {
		t.Error("a single point should give no plot")
	}

	out := SeriesSVG([]float64{0, 1, 2}, []float64{1, 1, 1}, 120, 60, "#00ff88")
	if !strings.HasPrefix(out, "<?xml") || !strings.HasSuffix(out, "</svg>") {
		t.Errorf("not an svg document:\n%s", out)
	}
	if strings.Count(out, " L") != 2 {
		t.Errorf("expected 2 line segments in\n%s", out)
	}
}
