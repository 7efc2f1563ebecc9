// Package integrators advances owned particles between force evaluations.
package integrators
