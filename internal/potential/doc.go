// Package potential loads and interpolates tabulated functions of the
// squared distance.
//
// Tables come in two layouts: [Format1], one line per r² holding every
// column, and [Format2], per-column "begin end step" headers followed by
// column blocks. Both are read by [Load] and [LoadFile].
//
// [Table.Evaluate] returns the value together with twice the derivative
// with respect to r², i.e. (1/r) dV/dr, so force = grad * displacement
// needs no square root.
//
// # Example
//
//	tab, cut2, err := potential.LoadFile("cu.pot", potential.Format1, 1,
//		potential.LoadOptions{ShiftToZero: true})
//	pot, grad, short := tab.Evaluate(0, r2, potential.Cubic)
//
// # Thread Safety
//
// A loaded Table is immutable and may be shared between any number of
// goroutines.
package potential
