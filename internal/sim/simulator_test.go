package sim

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/san-kum/mdforce/internal/atoms"
	"github.com/san-kum/mdforce/internal/cell"
	"github.com/san-kum/mdforce/internal/dynamo"
	"github.com/san-kum/mdforce/internal/force"
	"github.com/san-kum/mdforce/internal/integrators"
	"github.com/san-kum/mdforce/internal/potential"
	"github.com/sirupsen/logrus"
)

func quiet() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func ljWorld(box dynamo.Vec, procs cell.Coord) World {
	return World{Dim: 3, Box: box, Procs: procs, Cutoff: 2.5, Skin: 0.3, Force: force.Options{NTypes: 1}}
}

func ljModel() force.Model {
	return force.MonoLJ{MonoLJ: potential.NewMonoLJ(6.25, true)}
}

func TestSimulatorRun(t *testing.T) {
	ps, box := atoms.FCC(2, cell.Coord{5, 5, 5}, 1, 1)
	s := New(ljWorld(box, cell.Coord{}), ljModel(), integrators.NewVelocityVerlet(), quiet())

	result, err := s.Run(context.Background(), ps, Config{Dt: 0.005, Steps: 10, ThermoEvery: 5})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.StepsTaken != 10 {
		t.Errorf("expected 10 steps, got %d", result.StepsTaken)
	}
	if len(result.Thermo) != 3 {
		t.Errorf("expected 3 thermo samples, got %d", len(result.Thermo))
	}
	if len(result.Particles) != 500 {
		t.Errorf("expected 500 particles, got %d", len(result.Particles))
	}
	for i, p := range result.Particles {
		if p.ID != int64(i) {
			t.Fatalf("particles not ordered: index %d holds %d", i, p.ID)
		}
	}
	first := result.Thermo[0]
	if first.N != 500 || first.Epot >= 0 {
		t.Errorf("unexpected first sample %+v", first)
	}
	// a perfect lattice at rest stays at rest
	last := result.Thermo[len(result.Thermo)-1]
	if last.Ekin > 1e-12 {
		t.Errorf("lattice heated up: ekin %g", last.Ekin)
	}
	if result.Stats.Evaluations != 11 {
		t.Errorf("expected 11 evaluations, got %d", result.Stats.Evaluations)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	ps, box := atoms.FCC(2, cell.Coord{5, 5, 5}, 1, 1)
	tests := []struct {
		name  string
		world World
		cfg   Config
	}{
		{"zero dt", ljWorld(box, cell.Coord{}), Config{Dt: 0, Steps: 1}},
		{"negative dt", ljWorld(box, cell.Coord{}), Config{Dt: -0.1, Steps: 1}},
		{"negative steps", ljWorld(box, cell.Coord{}), Config{Dt: 0.1, Steps: -1}},
		{"bad dim", World{Dim: 4, Box: box, Cutoff: 2.5}, Config{Dt: 0.1}},
		{"zero cutoff", World{Dim: 3, Box: box}, Config{Dt: 0.1}},
		{"box too small", ljWorld(dynamo.Vec{5, 5, 5}, cell.Coord{}), Config{Dt: 0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.world, ljModel(), integrators.NewVelocityVerlet(), quiet())
			if _, err := s.Run(context.Background(), ps, tt.cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSimulatorRejectsUnknownType(t *testing.T) {
	ps, box := atoms.FCC(2, cell.Coord{5, 5, 5}, 2, 1)
	s := New(ljWorld(box, cell.Coord{}), ljModel(), integrators.NewVelocityVerlet(), quiet())
	_, err := s.Run(context.Background(), ps, Config{Dt: 0.01, Steps: 1})
	if !errors.Is(err, dynamo.ErrIndexRange) {
		t.Errorf("expected index range error, got %v", err)
	}
}

type testMetric struct {
	count int
	sum   float64
}

func (t *testMetric) Name() string { return "test" }
func (t *testMetric) Observe(th Thermo) {
	t.count++
	t.sum += th.Etot
}
func (t *testMetric) Value() float64 {
	if t.count == 0 {
		return 0
	}
	return t.sum / float64(t.count)
}
func (t *testMetric) Reset() {
	t.count = 0
	t.sum = 0
}

type countingObserver struct{ steps []int }

func (c *countingObserver) OnStep(th Thermo) { c.steps = append(c.steps, th.Step) }

func TestSimulatorMetricsAndObservers(t *testing.T) {
	ps, box := atoms.FCC(2, cell.Coord{6, 6, 6}, 1, 1)
	atoms.Maxwell(ps, 0.1, 3, 7)
	s := New(ljWorld(box, cell.Coord{2, 1, 1}), ljModel(), integrators.NewVelocityVerlet(), quiet())

	metric := &testMetric{}
	obs := &countingObserver{}
	s.AddMetric(metric)
	s.AddObserver(obs)

	result, err := s.Run(context.Background(), ps, Config{Dt: 0.005, Steps: 7, ThermoEvery: 3})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, ok := result.Metrics["test"]; !ok {
		t.Error("metric not found in result")
	}
	want := []int{0, 3, 6, 7}
	if metric.count != len(want) {
		t.Errorf("expected %d observations, got %d", len(want), metric.count)
	}
	if len(obs.steps) != len(want) {
		t.Fatalf("observer saw steps %v, want %v", obs.steps, want)
	}
	for i := range want {
		if obs.steps[i] != want[i] {
			t.Errorf("observer saw steps %v, want %v", obs.steps, want)
			break
		}
	}
}

type panicky struct{ integrators.VelocityVerlet }

func (p *panicky) Drift(g *cell.Grid, dt float64) {
	if g.Rank == 1 {
		g.Cell(0).Remove(99)
	}
	p.VelocityVerlet.Drift(g, dt)
}

func TestSimulatorRecoversRankPanic(t *testing.T) {
	ps, box := atoms.FCC(2, cell.Coord{6, 6, 6}, 1, 1)
	s := New(ljWorld(box, cell.Coord{2, 1, 1}), ljModel(), &panicky{}, quiet())

	_, err := s.Run(context.Background(), ps, Config{Dt: 0.005, Steps: 3})
	var fatal *dynamo.FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if fatal.Rank != 1 || fatal.Step != 1 {
		t.Errorf("expected rank 1 step 1, got rank %d step %d", fatal.Rank, fatal.Step)
	}
	if !errors.Is(err, dynamo.ErrIndexRange) {
		t.Errorf("expected index range error, got %v", err)
	}
}
