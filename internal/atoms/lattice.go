package atoms

import (
	"math"
	"math/rand/v2"

	"github.com/san-kum/mdforce/internal/cell"
	"github.com/san-kum/mdforce/internal/dynamo"
	"gonum.org/v1/gonum/stat/distuv"
)

var fccBasis = []dynamo.Vec{
	{0, 0, 0},
	{0.5, 0.5, 0},
	{0.5, 0, 0.5},
	{0, 0.5, 0.5},
}

// FCC builds n[0] x n[1] x n[2] cubic fcc cells of edge a. Types cycle over
// the four basis sites modulo ntypes, so two types give an L1_0 ordering.
func FCC(a float64, n cell.Coord, ntypes int, mass float64) ([]cell.Particle, dynamo.Vec) {
	if ntypes < 1 {
		ntypes = 1
	}
	ps := make([]cell.Particle, 0, 4*n[0]*n[1]*n[2])
	for x := 0; x < n[0]; x++ {
		for y := 0; y < n[1]; y++ {
			for z := 0; z < n[2]; z++ {
				origin := dynamo.Vec{float64(x), float64(y), float64(z)}
				for b, off := range fccBasis {
					// quarter-site offset keeps atoms off cell faces
					pos := origin.Add(off).Add(dynamo.Vec{0.25, 0.25, 0.25}).Scale(a)
					ps = append(ps, cell.Particle{ID: int64(len(ps)), Type: b % ntypes, Mass: mass, Pos: pos})
				}
			}
		}
	}
	box := dynamo.Vec{float64(n[0]) * a, float64(n[1]) * a, float64(n[2]) * a}
	return ps, box
}

// Hex2D builds a triangular lattice with nearest-neighbor distance a in a
// periodic box of nx x ny rectangular cells, two atoms per cell.
func Hex2D(a float64, nx, ny, ntypes int, mass float64) ([]cell.Particle, dynamo.Vec) {
	if ntypes < 1 {
		ntypes = 1
	}
	h := a * math.Sqrt(3)
	ps := make([]cell.Particle, 0, 2*nx*ny)
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			for b := 0; b < 2; b++ {
				pos := dynamo.Vec{(float64(x) + 0.25 + 0.5*float64(b)) * a, (float64(y) + 0.25 + 0.5*float64(b)) * h}
				ps = append(ps, cell.Particle{ID: int64(len(ps)), Type: b % ntypes, Mass: mass, Pos: pos})
			}
		}
	}
	return ps, dynamo.Vec{float64(nx) * a, float64(ny) * h}
}

// Maxwell draws momenta at temperature T (k_B = 1), removes the net
// momentum and rescales so the kinetic energy is exactly dim*N*T/2.
func Maxwell(ps []cell.Particle, temperature float64, dim int, seed uint64) {
	if len(ps) == 0 || temperature <= 0 {
		for i := range ps {
			ps[i].Mom = dynamo.Vec{}
		}
		return
	}
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}

	var total dynamo.Vec
	mass := 0.0
	for i := range ps {
		s := math.Sqrt(ps[i].Mass * temperature)
		var p dynamo.Vec
		for d := 0; d < dim; d++ {
			p[d] = s * norm.Rand()
		}
		ps[i].Mom = p
		total = total.Add(p)
		mass += ps[i].Mass
	}

	ekin := 0.0
	for i := range ps {
		ps[i].Mom = ps[i].Mom.Sub(total.Scale(ps[i].Mass / mass))
		ekin += ps[i].Mom.Norm2() / (2 * ps[i].Mass)
	}
	if ekin == 0 {
		return
	}
	scale := math.Sqrt(0.5 * float64(dim*len(ps)) * temperature / ekin)
	for i := range ps {
		ps[i].Mom = ps[i].Mom.Scale(scale)
	}
}
