// Package dynamo provides the primitives shared by the force engine.
//
// It defines:
//
//   - [Vec]: three-component vector for positions, momenta and forces
//   - [Tensor]: symmetric 3x3 accumulator used for virial and stress
//   - sentinel errors and [FatalError] for aborting a run
//   - [ParallelFor]: chunked fan-out for per-cell loops inside one rank
//
// # Example
//
//	d := pj.Sub(pi)
//	r2 := d.Norm2()
//	var vir dynamo.Tensor
//	vir.AddOuter(d, d, -grad)
//
// # Thread Safety
//
// Vec and Tensor are values. ParallelFor callers must partition writes so
// that no two chunks touch the same memory.
package dynamo
