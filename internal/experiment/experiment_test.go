package experiment

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/mdforce/internal/atoms"
	"github.com/san-kum/mdforce/internal/config"
	"github.com/san-kum/mdforce/internal/force"
	"github.com/san-kum/mdforce/internal/potential"
)

func quiet() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func small(name string) *config.Config {
	cfg := config.GetPreset(name)
	cfg.Steps = 10
	cfg.ThermoEvery = 5
	return cfg
}

func TestPresetsRun(t *testing.T) {
	for _, name := range config.ListPresets() {
		t.Run(name, func(t *testing.T) {
			e := New(small(name), NewRegistry(), quiet())
			require.NoError(t, e.Setup())

			res, err := e.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 10, res.StepsTaken)
			assert.Len(t, res.Thermo, 3)
			assert.Len(t, res.Particles, len(e.Particles()))
			for _, th := range res.Thermo {
				assert.False(t, math.IsNaN(th.Etot) || math.IsInf(th.Etot, 0), "step %d: %g", th.Step, th.Etot)
			}
			assert.Contains(t, res.Metrics, "energy_drift")
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"eam", "monolj", "pair"}, r.ListPotentials())
	assert.Equal(t, []string{"mik", "nve"}, r.ListIntegrators())

	_, err := r.GetIntegrator("rk4")
	assert.Error(t, err)
	_, _, err = r.GetPotential(config.PotentialConfig{Kind: "morse"}, 1, quiet())
	assert.Error(t, err)

	m, cutoff, err := r.GetPotential(config.PotentialConfig{Kind: "eam", Cutoff: 2.5}, 2, quiet())
	require.NoError(t, err)
	assert.InDelta(t, 2.5, cutoff, 1e-9)
	require.NoError(t, m.Validate(2))
	_, ok := m.(force.ManyBody)
	assert.True(t, ok)
}

func writeLJTable(t *testing.T, cut2 float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lj.pt")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	lj := potential.NewMonoLJ(cut2, false)
	const n = 4000
	step := (cut2 - 0.5) / n
	fmt.Fprintln(f, "# r2 v00")
	for k := 0; k <= n; k++ {
		r2 := 0.5 + float64(k)*step
		v, _ := lj.Evaluate(r2)
		fmt.Fprintf(f, "%.10g %.12g\n", r2, v)
	}
	return path
}

func TestPairTableMatchesClosedForm(t *testing.T) {
	closed := small("lj-fcc")
	closed.Steps = 0

	tabulated := closed.Clone()
	tabulated.Potential = config.PotentialConfig{Kind: "pair", File: writeLJTable(t, 6.25), Order: "cubic", Shift: true}

	var epot [2]float64
	for i, cfg := range []*config.Config{closed, tabulated} {
		e := New(cfg, NewRegistry(), quiet())
		require.NoError(t, e.Setup())
		res, err := e.Run(context.Background())
		require.NoError(t, err)
		epot[i] = res.Thermo[0].Epot
	}
	assert.InEpsilon(t, epot[0], epot[1], 1e-3)
}

func TestSetupFromAtomFile(t *testing.T) {
	cfg := small("lj-fcc")
	ps, box := atoms.FCC(cfg.Lattice.Constant, [3]int{5, 5, 5}, 1, 1)
	path := filepath.Join(t.TempDir(), "crystal.atoms.gz")
	require.NoError(t, atoms.WriteFile(path, ps, 3))

	cfg.Atoms = path
	cfg.Box = box[:]
	cfg.Procs = nil

	e := New(cfg, NewRegistry(), quiet())
	require.NoError(t, e.Setup())
	assert.Len(t, e.Particles(), len(ps))
	assert.Equal(t, box, e.World().Box)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	// a perfect crystal at rest stays at rest
	assert.InDelta(t, 0, res.Thermo[len(res.Thermo)-1].Ekin, 1e-9)
}

func TestSetupRejectsInvalidConfig(t *testing.T) {
	cfg := small("lj-fcc")
	cfg.Dt = 0
	e := New(cfg, NewRegistry(), quiet())
	assert.ErrorIs(t, e.Setup(), config.ErrInvalid)

	_, err := e.Run(context.Background())
	assert.Error(t, err)
}

func TestRunEnsemble(t *testing.T) {
	cfg := small("lj-fcc")
	cfg.Procs = nil
	e := New(cfg, NewRegistry(), quiet())
	require.NoError(t, e.Setup())

	results, err := e.RunEnsemble(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	a, b := results[0].Thermo[0], results[1].Thermo[0]
	// same lattice, different velocities at the same temperature
	assert.InDelta(t, a.Epot, b.Epot, 1e-9)
	assert.InDelta(t, a.Temperature, b.Temperature, 1e-9)
	assert.NotEqual(t, results[0].Particles[0].Mom, results[1].Particles[0].Mom)

	_, err = e.RunEnsemble(context.Background(), 0)
	assert.Error(t, err)
}

// writeFormat1 writes cols columns sampled at 101 equidistant r² values
// from 1 to 6.
func writeFormat1(t *testing.T, name string, cols int, f func(col int, r2 float64) float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()
	for k := 0; k <= 100; k++ {
		r2 := 1 + 0.05*float64(k)
		fmt.Fprintf(out, "%.10g", r2)
		for c := 0; c < cols; c++ {
			fmt.Fprintf(out, " %.12g", f(c, r2))
		}
		fmt.Fprintln(out)
	}
	return path
}

func TestFormat1PairTableIsAlwaysShifted(t *testing.T) {
	inverse := func(_ int, r2 float64) float64 { return 1 / r2 }
	p := config.PotentialConfig{Kind: "pair", File: writeFormat1(t, "pair.pt", 1, inverse), Format: 1, Shift: false}

	m, _, err := NewRegistry().GetPotential(p, 1, quiet())
	require.NoError(t, err)
	tab := m.(force.TabulatedPair).Table
	assert.InDelta(t, 0, tab.Value(0, tab.End[0], potential.Cubic), 1e-12)
	assert.InDelta(t, 1-1.0/6, tab.Sample(0, 0), 1e-9)
}

func TestEAMDensityFileIsNotShifted(t *testing.T) {
	inverse := func(_ int, r2 float64) float64 { return 1 / r2 }
	p := config.PotentialConfig{
		Kind:    "eam",
		Format:  1,
		Core:    writeFormat1(t, "core.pt", 1, inverse),
		Density: writeFormat1(t, "rho.pt", 1, inverse),
		Embed:   writeFormat1(t, "embed.pt", 1, func(_ int, rho float64) float64 { return -rho }),
	}

	m, _, err := NewRegistry().GetPotential(p, 1, quiet())
	require.NoError(t, err)
	eam := m.(force.EAM)
	assert.InDelta(t, 0, eam.Core.Sample(0, 100), 1e-12)
	assert.InDelta(t, 1.0/6, eam.Density.Sample(0, 100), 1e-9)
	assert.InDelta(t, -1, eam.Embed.Sample(0, 0), 1e-9)
}
