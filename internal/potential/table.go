package potential

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Padding is the number of extra samples kept after every column so the
// interpolation stencils can look ahead past the last node.
const Padding = 3

type Order int

const (
	Quadratic Order = 2
	Cubic     Order = 3
)

func (o Order) String() string {
	switch o {
	case Quadratic:
		return "quadratic"
	case Cubic:
		return "cubic"
	default:
		return fmt.Sprintf("order(%d)", int(o))
	}
}

// ParseOrder reads an order by name or number. The empty string is Cubic.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "quadratic", "2":
		return Quadratic, nil
	case "cubic", "3", "":
		return Cubic, nil
	}
	return 0, fmt.Errorf("unknown interpolation order: %s", s)
}

// Table holds equidistant samples in r² for a set of columns. Column
// (it*ntypes+jt) is the usual layout for pair potentials, column it for
// per-type functions such as the embedding energy.
//
// A Table is read-only after loading and may be shared between ranks.
type Table struct {
	Name     string
	Cols     int
	Begin    []float64
	End      []float64
	Step     []float64
	InvStep  []float64
	Len      []int
	MaxSteps int

	// data[k*Cols+col], MaxSteps+Padding rows
	data []float64
}

func newTable(name string, cols, maxSteps int) *Table {
	return &Table{
		Name:     name,
		Cols:     cols,
		Begin:    make([]float64, cols),
		End:      make([]float64, cols),
		Step:     make([]float64, cols),
		InvStep:  make([]float64, cols),
		Len:      make([]int, cols),
		MaxSteps: maxSteps,
		data:     make([]float64, (maxSteps+Padding)*cols),
	}
}

// NewTable builds a table from in-memory samples. samples[col] holds the
// values at begin[col] + k*step[col]; end[col] is the cutoff in r².
func NewTable(name string, begin, end, step []float64, samples [][]float64, opts LoadOptions) (*Table, error) {
	cols := len(samples)
	if len(begin) != cols || len(end) != cols || len(step) != cols {
		return nil, fmt.Errorf("%w: %d columns but %d/%d/%d bounds", ErrMalformed, cols, len(begin), len(end), len(step))
	}
	maxSteps := 0
	for _, s := range samples {
		if len(s) > maxSteps {
			maxSteps = len(s)
		}
	}
	t := newTable(name, cols, maxSteps)
	for col, s := range samples {
		if len(s) == 0 {
			return nil, fmt.Errorf("%w: column %d is empty", ErrMalformed, col)
		}
		if step[col] <= 0 || end[col] < begin[col] {
			return nil, fmt.Errorf("%w: column %d has begin %g end %g step %g", ErrMalformed, col, begin[col], end[col], step[col])
		}
		t.Begin[col] = begin[col]
		t.End[col] = end[col]
		t.Step[col] = step[col]
		t.InvStep[col] = 1 / step[col]
		t.Len[col] = len(s)
		for k, v := range s {
			t.set(k, col, v)
		}
	}
	if opts.ShiftToZero {
		t.shiftToZero(opts.logger())
	}
	t.pad()
	return t, nil
}

func (t *Table) at(k, col int) float64 { return t.data[k*t.Cols+col] }

func (t *Table) set(k, col int, v float64) { t.data[k*t.Cols+col] = v }

// Sample returns the stored value at node k of column col.
func (t *Table) Sample(col, k int) float64 { return t.at(k, col) }

// NodeR2 returns the r² at which node k of column col is sampled.
func (t *Table) NodeR2(col, k int) float64 { return t.Begin[col] + float64(k)*t.Step[col] }

// MaxCutoff2 is the largest End over all columns.
func (t *Table) MaxCutoff2() float64 {
	m := 0.0
	for _, e := range t.End {
		m = math.Max(m, e)
	}
	return m
}

// pad fills every row past a column's last sample with that sample.
func (t *Table) pad() {
	rows := t.MaxSteps + Padding
	for col := 0; col < t.Cols; col++ {
		n := t.Len[col]
		last := t.at(n-1, col)
		for k := n; k < rows; k++ {
			t.set(k, col, last)
		}
	}
}

func (t *Table) shiftToZero(log logrus.FieldLogger) {
	for col := 0; col < t.Cols; col++ {
		n := t.Len[col]
		delta := t.at(n-1, col)
		if delta == 0 {
			continue
		}
		for k := 0; k < n; k++ {
			t.set(k, col, t.at(k, col)-delta)
		}
		log.Infof("potential %s column %d shifted by %g", t.Name, col, delta)
	}
}

// locate returns the fractional node coordinate of r2 in column col,
// flagged when below the first sample. over reports r2 past the last node.
func (t *Table) locate(col int, r2 float64) (chi float64, short, over bool) {
	r2a := r2 - t.Begin[col]
	if r2a < 0 {
		r2a = 0
		short = true
	}
	chi = r2a * t.InvStep[col]
	return chi, short, chi > float64(t.Len[col]-1)
}

// Evaluate interpolates column col at r2. grad is twice the derivative with
// respect to r², which equals (1/r) dV/dr.
// Past the last node the column is flat at its final sample.
func (t *Table) Evaluate(col int, r2 float64, order Order) (val, grad float64, short bool) {
	chi, short, over := t.locate(col, r2)
	if over {
		return t.at(t.Len[col]-1, col), 0, short
	}
	if order == Cubic {
		val, grad = t.cubic(col, chi)
	} else {
		val, grad = t.quadratic(col, chi)
	}
	return val, grad, short
}

// Value interpolates column col at r2 without the derivative.
func (t *Table) Value(col int, r2 float64, order Order) float64 {
	v, _, _ := t.Evaluate(col, r2, order)
	return v
}

// Deriv interpolates only the derivative of column col at r2.
func (t *Table) Deriv(col int, r2 float64, order Order) float64 {
	_, g, _ := t.Evaluate(col, r2, order)
	return g
}

func (t *Table) quadratic(col int, chi float64) (val, grad float64) {
	k := int(chi)
	chi -= float64(k)

	p0 := t.at(k, col)
	p1 := t.at(k+1, col)
	p2 := t.at(k+2, col)
	dv := p1 - p0
	d2v := p2 - 2*p1 + p0

	val = p0 + chi*dv + 0.5*chi*(chi-1)*d2v
	grad = 2 * t.InvStep[col] * (dv + (chi-0.5)*d2v)
	return val, grad
}

// cubic uses Lagrange weights on nodes s..s+3 with s = k-1, so the local
// coordinate x sits in [0,1) between nodes s+1 and s+2. In the first
// interval the stencil starts at node 0 and x lies in [-1,0).
func (t *Table) cubic(col int, chi float64) (val, grad float64) {
	k := int(chi)
	s := k - 1
	if s < 0 {
		s = 0
	}
	x := chi - float64(s) - 1

	p0 := t.at(s, col)
	p1 := t.at(s+1, col)
	p2 := t.at(s+2, col)
	p3 := t.at(s+3, col)

	fac0 := -(1.0 / 6.0) * x * (x - 1) * (x - 2)
	fac1 := 0.5 * (x*x - 1) * (x - 2)
	fac2 := -0.5 * x * (x + 1) * (x - 2)
	fac3 := (1.0 / 6.0) * x * (x*x - 1)

	dfac0 := -(1.0 / 6.0) * ((3*x-6)*x + 2)
	dfac1 := 0.5 * ((3*x-4)*x - 1)
	dfac2 := -0.5 * ((3*x-2)*x - 2)
	dfac3 := 0.5 * (x*x - 1.0/3.0)

	val = fac0*p0 + fac1*p1 + fac2*p2 + fac3*p3
	grad = 2 * t.InvStep[col] * (dfac0*p0 + dfac1*p1 + dfac2*p2 + dfac3*p3)
	return val, grad
}

// Tabulate samples f on a uniform grid from begin to end, the same bounds
// for every column.
func Tabulate(name string, cols int, begin, end, step float64, f func(col int, x float64) float64, opts LoadOptions) (*Table, error) {
	if step <= 0 || end <= begin {
		return nil, fmt.Errorf("%w: %s: begin %g end %g step %g", ErrMalformed, name, begin, end, step)
	}
	n := int(math.Round((end-begin)/step)) + 1
	b := make([]float64, cols)
	e := make([]float64, cols)
	s := make([]float64, cols)
	samples := make([][]float64, cols)
	for c := range samples {
		b[c], e[c], s[c] = begin, end, step
		samples[c] = make([]float64, n)
		for k := range samples[c] {
			samples[c][k] = f(c, begin+float64(k)*step)
		}
	}
	return NewTable(name, b, e, s, samples, opts)
}
