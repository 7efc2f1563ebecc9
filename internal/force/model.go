package force

import (
	"fmt"

	"github.com/san-kum/mdforce/internal/dynamo"
	"github.com/san-kum/mdforce/internal/potential"
)

// Model is a pair interaction indexed by the column col = it*ntypes + jt.
// grad follows the table convention: twice dV/dr², so the force on i is
// grad * (r_j - r_i).
type Model interface {
	Pair(col int, r2 float64) (pot, grad float64, short bool)
	Cut2(col int) float64
	// EnergyShare is the fraction of each pair energy credited to each
	// participant.
	EnergyShare() float64
	Validate(ntypes int) error
}

// ManyBody extends a Model with an embedding term. Rho(col, r2) is the
// density at a host of the first type of col contributed by a neighbor of
// the second, flagged short below the first sample. RhoDeriv reads the
// same tables, so the kernel takes the short count from Rho alone.
// Embedding returns F(rho) and twice dF/drho.
type ManyBody interface {
	Model
	RhoCut2(col int) float64
	Rho(col int, r2 float64) (rho float64, short bool)
	RhoDeriv(col int, r2 float64) float64
	Embedding(typ int, rho float64) (f, df float64)
}

func checkCols(name string, t *potential.Table, want int) error {
	if t == nil {
		return fmt.Errorf("%w: %s table missing", dynamo.ErrInvalidState, name)
	}
	if t.Cols != want {
		return fmt.Errorf("%w: %s table %q has %d columns, want %d", dynamo.ErrDimensionMismatch, name, t.Name, t.Cols, want)
	}
	return nil
}

// TabulatedPair interpolates a pair potential table with one column per
// ordered type pair.
type TabulatedPair struct {
	Table *potential.Table
	Order potential.Order
}

func (m TabulatedPair) Pair(col int, r2 float64) (float64, float64, bool) {
	return m.Table.Evaluate(col, r2, m.Order)
}

func (m TabulatedPair) Cut2(col int) float64 { return m.Table.End[col] }

func (TabulatedPair) EnergyShare() float64 { return 1 }

func (m TabulatedPair) Validate(ntypes int) error {
	return checkCols("pair", m.Table, ntypes*ntypes)
}

// MonoLJ is the single-type closed form Lennard-Jones pair.
type MonoLJ struct {
	potential.MonoLJ
}

func (m MonoLJ) Pair(_ int, r2 float64) (float64, float64, bool) {
	pot, grad := m.Evaluate(r2)
	return pot, grad, false
}

func (m MonoLJ) Cut2(int) float64 { return m.Cutoff2 }

func (MonoLJ) EnergyShare() float64 { return 1 }

func (m MonoLJ) Validate(ntypes int) error {
	if ntypes != 1 {
		return fmt.Errorf("%w: monolj supports one type, got %d", dynamo.ErrDimensionMismatch, ntypes)
	}
	if m.Cutoff2 <= 0 {
		return fmt.Errorf("%w: monolj cutoff² %g", dynamo.ErrInvalidState, m.Cutoff2)
	}
	return nil
}

// EAM is the embedded atom method: a core pair table, a density table with
// ntypes² asymmetric columns and an embedding table with one column per
// type, indexed by host density instead of r².
type EAM struct {
	Core    *potential.Table
	Density *potential.Table
	Embed   *potential.Table
	Order   potential.Order
}

func (m EAM) Pair(col int, r2 float64) (float64, float64, bool) {
	return m.Core.Evaluate(col, r2, m.Order)
}

func (m EAM) Cut2(col int) float64 { return m.Core.End[col] }

// EnergyShare splits the core pair energy evenly.
func (EAM) EnergyShare() float64 { return 0.5 }

func (m EAM) Validate(ntypes int) error {
	if err := checkCols("core", m.Core, ntypes*ntypes); err != nil {
		return err
	}
	if err := checkCols("density", m.Density, ntypes*ntypes); err != nil {
		return err
	}
	return checkCols("embedding", m.Embed, ntypes)
}

func (m EAM) RhoCut2(col int) float64 { return m.Density.End[col] }

func (m EAM) Rho(col int, r2 float64) (float64, bool) {
	v, _, short := m.Density.Evaluate(col, r2, m.Order)
	return v, short
}

func (m EAM) RhoDeriv(col int, r2 float64) float64 {
	return m.Density.Deriv(col, r2, m.Order)
}

func (m EAM) Embedding(typ int, rho float64) (float64, float64) {
	f, df, _ := m.Embed.Evaluate(typ, rho, m.Order)
	return f, df
}
