package dynamo

import (
	"fmt"
	"math"
)

// Vec is a position, momentum or force. In 2D runs the z component stays zero.
type Vec [3]float64

func (v Vec) Add(o Vec) Vec {
	return Vec{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

func (v Vec) Sub(o Vec) Vec {
	return Vec{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

func (v Vec) Scale(f float64) Vec {
	return Vec{v[0] * f, v[1] * f, v[2] * f}
}

func (v Vec) Dot(o Vec) float64 {
	return v[0]*o[0] + v[1]*o[1] + v[2]*o[2]
}

func (v Vec) Norm2() float64 { return v.Dot(v) }

func (v Vec) Norm() float64 { return math.Sqrt(v.Dot(v)) }

func (v Vec) IsValid() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func (v Vec) String() string {
	return fmt.Sprintf("(%.6g, %.6g, %.6g)", v[0], v[1], v[2])
}

// Tensor components, in the order used by every symmetric 3x3 accumulator.
const (
	XX = iota
	YY
	ZZ
	YZ
	ZX
	XY
)

// Tensor is a symmetric 3x3 tensor stored as xx, yy, zz, yz, zx, xy.
type Tensor [6]float64

func (t *Tensor) AddOuter(a, b Vec, f float64) {
	t[XX] += f * a[0] * b[0]
	t[YY] += f * a[1] * b[1]
	t[ZZ] += f * a[2] * b[2]
	t[YZ] += f * a[1] * b[2]
	t[ZX] += f * a[2] * b[0]
	t[XY] += f * a[0] * b[1]
}

func (t Tensor) Trace() float64 { return t[XX] + t[YY] + t[ZZ] }

// Wrap folds x into [0, l).
func Wrap(x, l float64) float64 {
	if x >= 0 && x < l {
		return x
	}
	x -= l * math.Floor(x/l)
	// rounding can land exactly on l for tiny negative inputs
	if x >= l {
		x = 0
	}
	return x
}
