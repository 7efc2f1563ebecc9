// Package metrics reduces thermodynamic samples to run-level numbers.
package metrics
