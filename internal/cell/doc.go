// Package cell implements the particle store and the spatial cell
// decomposition of the simulation box.
//
// A [Grid] covers one rank's sub-domain: an owned block of cells plus one
// surrounding layer of buffer cells mirroring the neighbor ranks. Each
// [Cell] keeps its particles as parallel arrays whose capacity only grows.
package cell
