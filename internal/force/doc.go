// Package force evaluates short-range forces from a cached neighbor list.
//
// A [Kernel] binds one rank's grid, halo exchange and neighbor cache to a
// [Model]. Pair models walk the list once. Models that also implement
// [ManyBody] walk it twice, with a density exchange between the passes.
//
// Every call to [Kernel.Evaluate] is collective: all ranks of a world call
// it with the same step, and all return the same [Result].
package force
