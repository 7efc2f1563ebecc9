package sim_test

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/mdforce/internal/atoms"
	"github.com/san-kum/mdforce/internal/cell"
	"github.com/san-kum/mdforce/internal/dynamo"
	"github.com/san-kum/mdforce/internal/force"
	"github.com/san-kum/mdforce/internal/integrators"
	"github.com/san-kum/mdforce/internal/metrics"
	"github.com/san-kum/mdforce/internal/potential"
	"github.com/san-kum/mdforce/internal/sim"
)

func quiet() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func lj(procs cell.Coord, box dynamo.Vec) (sim.World, force.Model) {
	w := sim.World{Dim: 3, Box: box, Procs: procs, Cutoff: 2.5, Skin: 0.3, Force: force.Options{NTypes: 1, Axial: true}}
	return w, force.MonoLJ{MonoLJ: potential.NewMonoLJ(6.25, true)}
}

var _ = Describe("Simulator", func() {
	var ctx context.Context
	var cancel context.CancelFunc

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), time.Minute)
	})

	AfterEach(func() {
		cancel()
	})

	Context("with a warm Lennard-Jones crystal", func() {
		var ps []cell.Particle
		var box dynamo.Vec

		BeforeEach(func() {
			ps, box = atoms.FCC(2, cell.Coord{6, 6, 6}, 1, 1)
			atoms.Maxwell(ps, 0.2, 3, 11)
		})

		It("conserves energy at constant volume", func() {
			w, model := lj(cell.Coord{2, 2, 1}, box)
			s := sim.New(w, model, integrators.NewVelocityVerlet(), quiet())
			drift := metrics.NewEnergyDrift()
			s.AddMetric(drift)

			res, err := s.Run(ctx, ps, sim.Config{Dt: 0.002, Steps: 200, ThermoEvery: 10, ValidateState: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Thermo).To(HaveLen(21))
			Expect(res.Metrics["energy_drift"]).To(BeNumerically("<", 1e-3))
			Expect(res.Thermo[0].Temperature).To(BeNumerically("~", 0.2, 1e-9))
		})

		It("gives the same trajectory on one rank and on eight", func() {
			cfg := sim.Config{Dt: 0.004, Steps: 25, ThermoEvery: 5}

			w1, model := lj(cell.Coord{}, box)
			one, err := sim.New(w1, model, integrators.NewVelocityVerlet(), quiet()).Run(ctx, ps, cfg)
			Expect(err).NotTo(HaveOccurred())

			w8, _ := lj(cell.Coord{2, 2, 2}, box)
			eight, err := sim.New(w8, model, integrators.NewVelocityVerlet(), quiet()).Run(ctx, ps, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(eight.Thermo).To(HaveLen(len(one.Thermo)))
			for i := range one.Thermo {
				Expect(eight.Thermo[i].Etot).To(BeNumerically("~", one.Thermo[i].Etot, 1e-6))
				Expect(eight.Thermo[i].Virial).To(BeNumerically("~", one.Thermo[i].Virial, 1e-6))
			}
			Expect(eight.Particles).To(HaveLen(len(one.Particles)))
			for i, p := range one.Particles {
				q := eight.Particles[i]
				Expect(q.ID).To(Equal(p.ID))
				for d := 0; d < 3; d++ {
					// the eight-rank run folds positions on migration
					dx := q.Pos[d] - p.Pos[d]
					dx -= box[d] * math.Round(dx/box[d])
					Expect(dx).To(BeNumerically("~", 0, 1e-8))
				}
			}
		})

		It("reports pressure from the virial tensor trace", func() {
			w, model := lj(cell.Coord{1, 2, 1}, box)
			res, err := sim.New(w, model, integrators.NewVelocityVerlet(), quiet()).Run(ctx, ps, sim.Config{Dt: 0.002, Steps: 5})
			Expect(err).NotTo(HaveOccurred())
			for _, th := range res.Thermo {
				Expect(th.Tensor.Trace()).To(BeNumerically("~", th.Virial, 1e-6))
				want := 2 * (th.Ekin + th.Virial) / (3 * box[0] * box[1] * box[2])
				Expect(th.Pressure).To(BeNumerically("~", want, 1e-12))
			}
		})
	})

	Context("with a hot gas", func() {
		It("keeps every particle while they migrate between ranks", func() {
			ps, box := atoms.FCC(3, cell.Coord{4, 4, 4}, 1, 1)
			atoms.Maxwell(ps, 2.0, 3, 5)
			w, model := lj(cell.Coord{2, 2, 2}, box)
			s := sim.New(w, model, integrators.NewVelocityVerlet(), quiet())
			rate := metrics.NewRebuildRate()
			s.AddMetric(rate)

			res, err := s.Run(ctx, ps, sim.Config{Dt: 0.005, Steps: 300, ThermoEvery: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Particles).To(HaveLen(len(ps)))
			for _, th := range res.Thermo {
				Expect(th.N).To(Equal(len(ps)))
			}
			Expect(res.Stats.Rebuilds).To(BeNumerically(">", 1))
			Expect(rate.Value()).To(BeNumerically(">", 0))
		})
	})

	Context("with a disordered crystal", func() {
		It("relaxes under microconvergent quenching", func() {
			ps, box := atoms.FCC(2, cell.Coord{5, 5, 5}, 1, 1)
			rng := rand.New(rand.NewPCG(3, 3))
			for i := range ps {
				for d := 0; d < 3; d++ {
					ps[i].Pos[d] += 0.05 * (2*rng.Float64() - 1)
				}
			}
			atoms.Maxwell(ps, 0.05, 3, 3)
			w, model := lj(cell.Coord{}, box)

			res, err := sim.New(w, model, integrators.NewMIK(), quiet()).Run(ctx, ps, sim.Config{Dt: 0.005, Steps: 400, ThermoEvery: 50})
			Expect(err).NotTo(HaveOccurred())
			first, last := res.Thermo[0], res.Thermo[len(res.Thermo)-1]
			Expect(last.Epot).To(BeNumerically("<", first.Epot))
			Expect(last.Ekin).To(BeNumerically("<", first.Ekin))
		})
	})

	Context("when the context is canceled", func() {
		It("stops every rank", func() {
			ps, box := atoms.FCC(2, cell.Coord{6, 6, 6}, 1, 1)
			w, model := lj(cell.Coord{2, 1, 1}, box)
			canceled, stop := context.WithCancel(ctx)
			stop()
			_, err := sim.New(w, model, integrators.NewVelocityVerlet(), quiet()).Run(canceled, ps, sim.Config{Dt: 0.002, Steps: 10})
			Expect(err).To(MatchError(context.Canceled))
		})
	})
})
