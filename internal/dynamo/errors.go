package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for force evaluation. All of them abort the run.
var (
	// ErrInvalidState indicates a particle with NaN or Inf coordinates.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrNeighborOverflow indicates the neighbor arena filled up during a rebuild.
	ErrNeighborOverflow = errors.New("dynamo: neighbor list overflow")

	// ErrBufferOverflow indicates a message exceeded the capacity of its buffer.
	ErrBufferOverflow = errors.New("dynamo: message buffer overflow")

	// ErrIndexRange indicates a particle index outside its cell.
	ErrIndexRange = errors.New("dynamo: particle index out of range")

	// ErrMigration indicates a particle that could not be delivered to its owner.
	ErrMigration = errors.New("dynamo: particle migration failed")

	// ErrGridTooSmall indicates fewer than three cells along an axis.
	ErrGridTooSmall = errors.New("dynamo: cell grid too small for cutoff")

	// ErrProcGrid indicates a process grid that does not divide the cell grid.
	ErrProcGrid = errors.New("dynamo: invalid process grid")

	// ErrNotOwned indicates a particle inserted into a rank that does not own it.
	ErrNotOwned = errors.New("dynamo: particle not owned by this rank")

	// ErrLayerMismatch indicates a buffer layer whose occupancy differs from its owner layer.
	ErrLayerMismatch = errors.New("dynamo: buffer layer does not match owner layer")

	// ErrContextCanceled indicates the run was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")

	// ErrDimensionMismatch indicates mismatched dimensions between inputs.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")
)

// FatalError wraps an error with the rank and step it occurred on.
type FatalError struct {
	Rank    int
	Step    int
	Op      string
	Wrapped error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("rank %d step %d: %s: %v", e.Rank, e.Step, e.Op, e.Wrapped)
}

func (e *FatalError) Unwrap() error {
	return e.Wrapped
}
