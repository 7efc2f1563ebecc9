package potential

// MonoLJ is the single-species Lennard-Jones potential with its minimum of
// depth 1 at r² = 2:
//
//	V(r²) = (2/r²)^6 - 2(2/r²)^3 - Shift
type MonoLJ struct {
	Cutoff2 float64
	Shift   float64
}

// NewMonoLJ returns the potential cut at cutoff2. With shift set the
// energy is zero at the cutoff; the force is unchanged.
func NewMonoLJ(cutoff2 float64, shift bool) MonoLJ {
	m := MonoLJ{Cutoff2: cutoff2}
	if shift {
		m.Shift, _ = m.Evaluate(cutoff2)
	}
	return m
}

// Evaluate returns the energy and twice its derivative with respect to r².
func (m MonoLJ) Evaluate(r2 float64) (pot, grad float64) {
	s2 := 2.0 / r2
	s6 := s2 * s2 * s2
	s12 := s6 * s6

	grad = -6 * s2 * (s12 - s6)
	pot = s12 - 2.0*s6 - m.Shift
	return pot, grad
}
