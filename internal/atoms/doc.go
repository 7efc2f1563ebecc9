// Package atoms reads and writes initial configurations and builds
// lattices.
package atoms
