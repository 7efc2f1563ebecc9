package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/mdforce/internal/cell"
	"github.com/san-kum/mdforce/internal/dynamo"
)

var typeColors = []string{"#00ffff", "#ff00ff", "#ffcc00", "#00ff88", "#ff4444"}

// ParticlesSVG projects particles onto the xy plane of the box, one
// circle per particle colored by type. scale is pixels per length unit.
func ParticlesSVG(ps []cell.Particle, box dynamo.Vec, scale float64) string {
	width := box[0] * scale
	height := box[1] * scale

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	radius := scale * 0.3
	for _, p := range ps {
		// svg y grows downwards
		cx := dynamo.Wrap(p.Pos[0], box[0]) * scale
		cy := height - dynamo.Wrap(p.Pos[1], box[1])*scale
		color := typeColors[p.Type%len(typeColors)]
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, cx, cy, radius, color)
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// SeriesSVG draws ys against xs as a polyline with 10% padding around
// the data bounds.
func SeriesSVG(xs, ys []float64, width, height int, strokeColor string) string {
	n := min(len(xs), len(ys))
	if n < 2 {
		return ""
	}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := 0; i < n; i++ {
		minX, maxX = min(minX, xs[i]), max(maxX, xs[i])
		minY, maxY = min(minY, ys[i]), max(maxY, ys[i])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor)

	for i := 0; i < n; i++ {
		x := (xs[i] - minX) / rangeX * float64(width)
		y := float64(height) - (ys[i]-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
