package viz

import (
	"fmt"
	"io"

	"github.com/san-kum/mdforce/internal/sim"
)

// Progress is a sim.Observer that redraws a one-line bar on every sample.
type Progress struct {
	w      io.Writer
	styles Styles
	total  int
}

func NewProgress(w io.Writer, s Styles, totalSteps int) *Progress {
	return &Progress{w: w, styles: s, total: totalSteps}
}

func (p *Progress) OnStep(th sim.Thermo) {
	frac := 1.0
	if p.total > 0 {
		frac = float64(th.Step) / float64(p.total)
	}
	fmt.Fprintf(p.w, "\r%s %d/%d  T %.4f  P %.4f", p.styles.ProgressBar(frac, 30), th.Step, p.total, th.Temperature, th.Pressure)
	if th.Step >= p.total {
		fmt.Fprintln(p.w)
	}
}
