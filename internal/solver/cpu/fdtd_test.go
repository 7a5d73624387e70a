package cpu

import (
	"context"
	"errors"
	"math"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/mbsim/internal/device"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/qm"
	"github.com/san-kum/mbsim/internal/scenario"
	"github.com/san-kum/mbsim/internal/solver"
)

// andreasen builds the open vacuum cavity driven by thermal noise at both
// ends, sampled at three points on every step.
func andreasen(steps int) (*device.Device, *scenario.Scenario) {
	const dx = 1e-9
	const length = 20e-9
	n := int(math.Ceil(length/dx)) + 1
	tau := float64(steps) * dx / qm.C0

	dev := vacuumDevice("Andreasen", length)
	scen, err := scenario.New("Basic", n, tau, scenario.Random2LevelDensity{NumCarrierCell: 3e4}, scenario.ConstField{})
	Expect(err).NotTo(HaveOccurred())
	Expect(scen.SetCourantNumber(1)).To(Succeed())

	Expect(scen.AddRecord(pointRecord("e_left", 0, 0))).To(Succeed())
	Expect(scen.AddRecord(pointRecord("e_middle", 0, length/2))).To(Succeed())
	Expect(scen.AddRecord(pointRecord("e_right", 0, length))).To(Succeed())

	for i, pos := range []float64{0, length} {
		src, err := scenario.NewThermalNoise([]string{"noise_left", "noise_right"}[i], pos, scenario.HardSource, scenario.ThermalNoise{
			Temperature: 30000,
			Duration:    tau,
			DeltaFreq:   1e12 / (2 * math.Pi),
			FreqMin:     2e15 / (2 * math.Pi),
			FreqMax:     2.5e16 / (2 * math.Pi),
			Seed:        uint64(i + 1),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(scen.AddSource(src)).To(Succeed())
	}
	return dev, scen
}

var _ = Describe("Registration", func() {
	It("registers the four cpu solvers once", func() {
		r := newRegistry()
		Expect(r.Names()).To(ConsistOf(NameNoop, Name2LvlRK4, NameNLvlRK4, NameNLvlEuler))
		Expect(errors.Is(Register(r), dynamo.ErrDuplicateName)).To(BeTrue())
	})
})

var _ = Describe("Lifecycle", func() {
	var s solver.Solver

	BeforeEach(func() {
		dev := vacuumDevice("vac", 1e-6)
		scen, err := scenario.New("quiet", 51, 1e-15, groundState(), scenario.ConstField{})
		Expect(err).NotTo(HaveOccurred())
		Expect(scen.AddRecord(record("e", 0))).To(Succeed())
		s, err = newRegistry().Create(NameNoop, dev, scen)
		Expect(err).NotTo(HaveOccurred())
	})

	It("starts configured with nothing to report", func() {
		Expect(s.Name()).To(Equal(NameNoop))
		Expect(s.Status()).To(Equal(solver.Configured))
		_, err := s.Results()
		Expect(errors.Is(err, dynamo.ErrInvalidState)).To(BeTrue())
		_, err = s.SimData()
		Expect(errors.Is(err, dynamo.ErrInvalidState)).To(BeTrue())
	})

	It("runs exactly once", func() {
		Expect(s.Run(context.Background())).To(Succeed())
		Expect(s.Status()).To(Equal(solver.Completed))
		Expect(s.Elapsed()).To(BeNumerically(">", 0))

		err := s.Run(context.Background())
		Expect(errors.Is(err, dynamo.ErrInvalidState)).To(BeTrue())
		Expect(s.Status()).To(Equal(solver.Completed))
	})

	It("returns the same results on every call", func() {
		Expect(s.Run(context.Background())).To(Succeed())
		a, err := s.Results()
		Expect(err).NotTo(HaveOccurred())
		b, err := s.Results()
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(BeIdenticalTo(b))
	})

	It("keeps an empty vacuum at zero field", func() {
		Expect(s.Run(context.Background())).To(Succeed())
		rs, _ := s.Results()
		e, err := rs.Get("e")
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Cols).To(Equal(51))
		Expect(e.Rows).To(Equal(rs.Grid.NumSteps))
		Expect(e.Real).To(HaveLen(e.Rows * e.Cols))
		Expect(maxAbs(e.Real)).To(BeZero())
		Expect(e.Complex()).To(BeFalse())
	})
})

var _ = Describe("Andreasen thermal noise cavity", func() {
	It("samples the hard sources on every step", func() {
		const steps = 2000
		dev, scen := andreasen(steps)
		s, err := newRegistry().Create(NameNoop, dev, scen)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Run(context.Background())).To(Succeed())
		Expect(s.Status()).To(Equal(solver.Completed))

		rs, err := s.Results()
		Expect(err).NotTo(HaveOccurred())
		Expect(rs.Grid.NumGridpoints).To(Equal(21))
		Expect(rs.Grid.NumSteps).To(Equal(steps))
		Expect(rs.Results).To(HaveLen(3))
		for _, r := range rs.Results {
			Expect(r.Rows).To(Equal(steps), r.Name)
			Expect(r.Cols).To(Equal(1), r.Name)
			Expect(r.Real).To(HaveLen(steps), r.Name)
		}

		left, _ := rs.Get("e_left")
		exc, err := scen.Sources()[0].Compile(rs.Grid.Dt)
		Expect(err).NotTo(HaveOccurred())
		for _, k := range []int{1, 2, 500, steps} {
			Expect(left.Real[k-1]).To(Equal(exc.Value(float64(k) * rs.Grid.Dt)))
		}
		Expect(maxAbs(left.Real)).To(BeNumerically(">", 0))

		middle, _ := rs.Get("e_middle")
		Expect(maxAbs(middle.Real)).To(BeNumerically(">", 0))
	})

	It("plans one million samples per record at full length", func() {
		dev, scen := andreasen(1000000)
		s, err := newRegistry().Create(NameNoop, dev, scen)
		Expect(err).NotTo(HaveOccurred())

		f := s.(*fdtd)
		Expect(f.grid.NumGridpoints).To(Equal(21))
		Expect(f.grid.NumSteps).To(Equal(1000000))
		for _, r := range f.recorders {
			Expect(r.every).To(Equal(1))
			Expect(r.result.Rows).To(Equal(1000000))
		}

		if os.Getenv("MBSIM_LONG_TESTS") == "" {
			Skip("set MBSIM_LONG_TESTS to run the full cavity")
		}
		Expect(s.Run(context.Background())).To(Succeed())
		rs, _ := s.Results()
		for _, r := range rs.Results {
			Expect(r.Real).To(HaveLen(1000000))
		}
	})
})

// checkpointRun runs a scenario for 2*half steps in one go and as two
// halves joined through SimData, returning both final fields and both
// e traces.
func checkpointRun(name string, dev *device.Device, density scenario.DensityInit) (full, split []float64, fullTrace, splitTrace []float64) {
	const n = 101
	dx := dev.Length() / (n - 1)
	dt := scenario.DefaultCourant * dx / qm.C0
	const half = 400
	f := qm.C0 / (20 * dx)

	build := func(endTime float64) *scenario.Scenario {
		scen, err := scenario.New("ckpt", n, endTime, density, scenario.ConstField{})
		Expect(err).NotTo(HaveOccurred())
		Expect(scen.AddSource(scenario.Source{
			Name:      "pulse",
			Position:  0.15 * dev.Length(),
			Mode:      scenario.SoftSource,
			Amplitude: 1e8,
			Waveform:  scenario.SechPulse{Freq: f, Beta: f / 3, Phase: 3},
		})).To(Succeed())
		Expect(scen.AddRecord(pointRecord("e_mid", 0, 0.5*dev.Length()))).To(Succeed())
		return scen
	}
	reg := newRegistry()

	one, err := reg.Create(name, dev, build(2*half*dt))
	Expect(err).NotTo(HaveOccurred())
	Expect(one.Run(context.Background())).To(Succeed())
	endOne, _ := one.SimData()
	rsOne, _ := one.Results()

	first, err := reg.Create(name, dev, build(half*dt))
	Expect(err).NotTo(HaveOccurred())
	Expect(first.Run(context.Background())).To(Succeed())
	mid, _ := first.SimData()
	Expect(mid.Step).To(Equal(half))
	rsFirst, _ := first.Results()

	resumed := build(half * dt)
	Expect(resumeFrom(resumed, mid)).To(Succeed())

	second, err := reg.Create(name, dev, resumed)
	Expect(err).NotTo(HaveOccurred())
	Expect(second.Run(context.Background())).To(Succeed())
	endTwo, _ := second.SimData()
	rsSecond, _ := second.Results()
	Expect(endTwo.Step).To(Equal(2 * half))

	a, _ := rsOne.Get("e_mid")
	b, _ := rsFirst.Get("e_mid")
	c, _ := rsSecond.Get("e_mid")
	return endOne.E, endTwo.E, a.Real, append(append([]float64(nil), b.Real...), c.Real...)
}

// resumeFrom installs every part of a snapshot as the initial state of scen.
func resumeFrom(scen *scenario.Scenario, d *solver.SimData) error {
	field := func(v []float64) scenario.AutosaveField {
		return scenario.AutosaveField{Values: v, Dx: d.Dx, Dt: d.Dt}
	}
	return errors.Join(
		scen.SetDensityInit(scenario.AutosaveDensity{Rho: d.Density, Dx: d.Dx, Dt: d.Dt}),
		scen.SetElectricInit(field(d.E)),
		scen.SetMagneticInit(field(d.H)),
		scen.SetPolarizationInit(field(d.P)),
		scen.SetStartTime(d.Time),
	)
}

func relativeError(a, b []float64) float64 {
	Expect(a).To(HaveLen(len(b)))
	diff := make([]float64, len(a))
	for i := range a {
		diff[i] = a[i] - b[i]
	}
	scale := maxAbs(a)
	if scale == 0 {
		return maxAbs(diff)
	}
	return maxAbs(diff) / scale
}

var _ = Describe("Checkpoint equivalence", func() {
	It("resumes the field-only solver without drift", func() {
		full, split, fullTrace, splitTrace := checkpointRun(NameNoop, vacuumDevice("vac", 1e-6), groundState())
		Expect(maxAbs(full)).To(BeNumerically(">", 0))
		Expect(relativeError(full, split)).To(BeNumerically("<", 1e-9))
		Expect(relativeError(fullTrace, splitTrace)).To(BeNumerically("<", 1e-9))
	})

	It("resumes the two-level solver with its density matrix", func() {
		dev := slabDevice(twoLevelMedium(1e-29), 1e-6)
		full, split, fullTrace, splitTrace := checkpointRun(Name2LvlRK4, dev, groundState())
		Expect(maxAbs(full)).To(BeNumerically(">", 0))
		Expect(relativeError(full, split)).To(BeNumerically("<", 1e-9))
		Expect(relativeError(fullTrace, splitTrace)).To(BeNumerically("<", 1e-9))
	})
})

var _ = Describe("Resuming on another grid", func() {
	var snapshot *solver.SimData

	BeforeEach(func() {
		dev := vacuumDevice("vac", 1e-6)
		scen, err := scenario.New("ckpt", 101, 1e-14, groundState(), scenario.ConstField{Value: 1})
		Expect(err).NotTo(HaveOccurred())
		s, err := newRegistry().Create(NameNoop, dev, scen)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Run(context.Background())).To(Succeed())
		snapshot, err = s.SimData()
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects a checkpoint with a different number of grid points", func() {
		scen, err := scenario.New("coarse", 51, 1e-14, groundState(), scenario.ConstField{})
		Expect(err).NotTo(HaveOccurred())
		Expect(resumeFrom(scen, snapshot)).To(Succeed())

		_, err = newRegistry().Create(NameNoop, vacuumDevice("vac", 1e-6), scen)
		Expect(errors.Is(err, dynamo.ErrInvalidScenario)).To(BeTrue(), "got %v", err)
	})

	It("rejects a checkpoint taken with another grid spacing", func() {
		scen, err := scenario.New("stretched", 101, 1e-14, groundState(), scenario.ConstField{})
		Expect(err).NotTo(HaveOccurred())
		Expect(resumeFrom(scen, snapshot)).To(Succeed())

		_, err = newRegistry().Create(NameNoop, vacuumDevice("vac", 2e-6), scen)
		Expect(errors.Is(err, dynamo.ErrInvalidScenario)).To(BeTrue(), "got %v", err)
	})

	It("accepts the grid the checkpoint was taken on", func() {
		scen, err := scenario.New("same", 101, 1e-14, groundState(), scenario.ConstField{})
		Expect(err).NotTo(HaveOccurred())
		Expect(resumeFrom(scen, snapshot)).To(Succeed())

		s, err := newRegistry().Create(NameNoop, vacuumDevice("vac", 1e-6), scen)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Run(context.Background())).To(Succeed())
	})
})

var _ = Describe("Placement", func() {
	It("rejects sources and records outside the device", func() {
		dev := vacuumDevice("vac", 1e-6)

		scen, err := scenario.New("src", 21, 1e-15, groundState(), scenario.ConstField{})
		Expect(err).NotTo(HaveOccurred())
		Expect(scen.AddSource(scenario.Source{
			Name:     "far",
			Position: 2e-6,
			Waveform: scenario.GaussianPulse{Freq: 1e14, Tau: 1e-15},
		})).To(Succeed())
		_, err = newRegistry().Create(NameNoop, dev, scen)
		Expect(errors.Is(err, dynamo.ErrInvalidParameter)).To(BeTrue(), "got %v", err)

		scen, err = scenario.New("rec", 21, 1e-15, groundState(), scenario.ConstField{})
		Expect(err).NotTo(HaveOccurred())
		Expect(scen.AddRecord(pointRecord("e_before", 0, -1e-7))).To(Succeed())
		_, err = newRegistry().Create(NameNoop, vacuumDevice("vac", 1e-6), scen)
		Expect(errors.Is(err, dynamo.ErrInvalidParameter)).To(BeTrue(), "got %v", err)
	})
})

var _ = Describe("Two-level medium", func() {
	var (
		dev  *device.Device
		scen *scenario.Scenario
	)

	BeforeEach(func() {
		const dipole = 1e-29
		const beta = 3e13
		dev = slabDevice(twoLevelMedium(dipole), 3e-6)

		var err error
		scen, err = scenario.New("pi-pulse", 301, 3e-13, groundState(), scenario.ConstField{})
		Expect(err).NotTo(HaveOccurred())
		// area d*A*pi/(hbar*beta) of a resonant sech envelope equals pi
		amplitude := qm.HBar * beta / dipole
		Expect(scen.AddSource(scenario.Source{
			Name:      "sech",
			Position:  0,
			Mode:      scenario.HardSource,
			Amplitude: amplitude,
			Waveform:  scenario.SechPulse{Freq: 2e14, Beta: beta, Phase: 4},
		})).To(Succeed())
		Expect(scen.AddRecord(pointRecord("inv12_mid", 0, 1.5e-6))).To(Succeed())
		Expect(scen.AddRecord(pointRecord("d11_mid", 0, 1.5e-6))).To(Succeed())
		Expect(scen.AddRecord(pointRecord("d22_mid", 0, 1.5e-6))).To(Succeed())
		Expect(scen.AddRecord(pointRecord("d12_mid", 1e-15, 1.5e-6))).To(Succeed())
		Expect(scen.AddRecord(record("e", 1e-14))).To(Succeed())
	})

	for _, name := range []string{Name2LvlRK4, NameNLvlRK4} {
		It("inverts the medium and conserves the trace with "+name, func() {
			s, err := newRegistry().Create(name, dev, scen)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Run(context.Background())).To(Succeed())
			rs, _ := s.Results()

			inv, _ := rs.Get("inv12_mid")
			Expect(inv.Real[0]).To(BeNumerically("~", -1, 1e-3))
			peak := -1.0
			for _, v := range inv.Real {
				Expect(v).To(BeNumerically(">=", -1-1e-4))
				Expect(v).To(BeNumerically("<=", 1+1e-4))
				peak = math.Max(peak, v)
			}
			Expect(peak).To(BeNumerically(">", 0))

			d11, _ := rs.Get("d11_mid")
			d22, _ := rs.Get("d22_mid")
			for i := range d11.Real {
				Expect(d11.Real[i] + d22.Real[i]).To(BeNumerically("~", 1, 1e-9))
				Expect(d22.Real[i] - d11.Real[i]).To(BeNumerically("~", inv.Real[i], 1e-12))
			}

			coh, _ := rs.Get("d12_mid")
			Expect(coh.Complex()).To(BeTrue())
			Expect(coh.Imag).To(HaveLen(coh.Rows))
			Expect(maxAbs(coh.Real)).To(BeNumerically(">", 0))
		})
	}

	It("rejects media the two-level solver cannot handle", func() {
		h, _ := qm.RealOperator([]float64{0, 0.1 * qm.E0, 0.2 * qm.E0}, nil)
		u, _ := qm.RealOperator([]float64{0, 0, 0}, []float64{1e-29, 0, 1e-29})
		relax, _ := qm.NewLindblad([][]float64{{0, 1e10, 0}, {0, 0, 1e10}, {0, 0, 0}}, nil)
		three, err := qm.NewDescription(1e24, 0, h, u, relax)
		Expect(err).NotTo(HaveOccurred())
		d := slabDevice(three, 3e-6)

		_, err = newRegistry().Create(Name2LvlRK4, d, scen)
		Expect(errors.Is(err, dynamo.ErrInvalidScenario)).To(BeTrue())
		Expect(d.Frozen()).To(BeFalse())
	})

	It("rejects records for levels the device does not have", func() {
		Expect(scen.AddRecord(record("inv13", 0))).To(Succeed())
		_, err := newRegistry().Create(NameNLvlRK4, dev, scen)
		Expect(errors.Is(err, dynamo.ErrInvalidScenario)).To(BeTrue())
	})
})

var _ = Describe("Failure handling", func() {
	It("reports divergence as a run error", func() {
		unstable, err := qm.NewTwoLevel(qm.TwoLevel{
			CarrierDensity:       1e24,
			TransitionFreq:       2 * math.Pi * 2e14,
			DipoleMoment:         1e-29,
			ScatteringRate:       1e24,
			DephasingRate:        1e24,
			EquilibriumInversion: -1,
		})
		Expect(err).NotTo(HaveOccurred())
		dev := slabDevice(unstable, 3e-7)

		rho, _ := qm.RealOperator([]float64{0.5, 0.5}, []float64{0.1})
		scen, err := scenario.New("blowup", 31, 1e-15, scenario.ConstDensity{Rho: rho}, scenario.ConstField{})
		Expect(err).NotTo(HaveOccurred())

		s, err := newRegistry().Create(NameNLvlEuler, dev, scen)
		Expect(err).NotTo(HaveOccurred())
		err = s.Run(context.Background())
		Expect(errors.Is(err, dynamo.ErrNumericalInstability)).To(BeTrue())

		var runErr *dynamo.RunError
		Expect(errors.As(err, &runErr)).To(BeTrue())
		Expect(runErr.Solver).To(Equal(NameNLvlEuler))
		Expect(runErr.Step).To(BeNumerically(">", 0))
		Expect(s.Status()).To(Equal(solver.Failed))

		_, err = s.Results()
		Expect(errors.Is(err, dynamo.ErrInvalidState)).To(BeTrue())
	})

	It("stops when the context is cancelled", func() {
		dev, scen := andreasen(5000)
		s, err := newRegistry().Create(NameNoop, dev, scen)
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err = s.Run(ctx)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(s.Status()).To(Equal(solver.Failed))
	})
})

var _ = Describe("SimData", func() {
	It("hands out consistent snapshots while running", func() {
		dev, scen := andreasen(20000)
		s, err := newRegistry().Create(NameNoop, dev, scen)
		Expect(err).NotTo(HaveOccurred())

		done := make(chan error, 1)
		go func() { done <- s.Run(context.Background()) }()

		last := 0
		Eventually(func() solver.Status {
			if d, err := s.SimData(); err == nil {
				Expect(d.Version).To(Equal(solver.SimDataVersion))
				Expect(d.E).To(HaveLen(21))
				Expect(d.H).To(HaveLen(21))
				Expect(d.Step).To(BeNumerically(">=", last))
				Expect(d.Time).To(Equal(float64(d.Step) * d.Dt))
				last = d.Step
			}
			return s.Status()
		}, 2*time.Minute, time.Millisecond).Should(Equal(solver.Completed))
		Expect(<-done).To(Succeed())

		d, err := s.SimData()
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Step).To(Equal(20000))
	})
})

var _ = Describe("Boundaries", func() {
	residual := func(b device.Boundary) float64 {
		const n = 201
		const dx = 1e-8
		dev := vacuumDevice("pml", (n-1)*dx)
		Expect(dev.SetBoundaries(b, b)).To(Succeed())

		f := qm.C0 / (20 * dx)
		tau := 2 / f
		// emission is over by 16 periods; allow 300 cells of travel
		endTime := 16/f + 300*dx/qm.C0
		scen, err := scenario.New("pulse", n, endTime, groundState(), scenario.ConstField{})
		Expect(err).NotTo(HaveOccurred())
		Expect(scen.AddSource(scenario.Source{
			Name:      "gauss",
			Position:  100 * dx,
			Mode:      scenario.SoftSource,
			Amplitude: 1,
			Waveform:  scenario.GaussianPulse{Freq: f, Phase: 4 * tau, Tau: tau},
		})).To(Succeed())
		Expect(scen.AddRecord(record("e", 0))).To(Succeed())

		s, err := newRegistry().Create(NameNoop, dev, scen)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Run(context.Background())).To(Succeed())
		rs, _ := s.Results()
		e, _ := rs.Get("e")

		peak := maxAbs(e.Real)
		Expect(peak).To(BeNumerically(">", 0))
		return maxAbs(e.Row(e.Rows-1)) / peak
	}

	It("absorbs outgoing waves in the UPML", func() {
		upml, err := device.UPML(20)
		Expect(err).NotTo(HaveOccurred())
		closed := residual(device.NoBoundary())
		open := residual(upml)
		Expect(closed).To(BeNumerically(">", 0.1))
		Expect(open).To(BeNumerically("<", 0.05*closed))
	})
})
