package cpu

import (
	"math"

	. "github.com/onsi/gomega"

	"github.com/san-kum/mbsim/internal/device"
	"github.com/san-kum/mbsim/internal/material"
	"github.com/san-kum/mbsim/internal/qm"
	"github.com/san-kum/mbsim/internal/scenario"
	"github.com/san-kum/mbsim/internal/solver"
)

func newRegistry() *solver.Registry {
	r := solver.NewRegistry()
	Expect(Register(r)).To(Succeed())
	return r
}

func vacuumDevice(name string, length float64) *device.Device {
	lib := material.NewLibrary()
	vac, err := material.NewVacuum("Vacuum")
	Expect(err).NotTo(HaveOccurred())
	Expect(lib.Add(vac)).To(Succeed())

	r, err := device.NewRegion(lib, "all", "Vacuum", 0, length)
	Expect(err).NotTo(HaveOccurred())
	dev := device.New(name)
	Expect(dev.AddRegion(r)).To(Succeed())
	return dev
}

// slabDevice is vacuum / active medium / vacuum, each third of length.
func slabDevice(active *qm.Description, length float64) *device.Device {
	lib := material.NewLibrary()
	vac, err := material.NewVacuum("Vacuum")
	Expect(err).NotTo(HaveOccurred())
	ar, err := material.New("AR", active)
	Expect(err).NotTo(HaveOccurred())
	Expect(lib.Add(vac)).To(Succeed())
	Expect(lib.Add(ar)).To(Succeed())

	dev := device.New("slab")
	third := length / 3
	for i, name := range []string{"Vacuum", "AR", "Vacuum"} {
		r, err := device.NewRegion(lib, []string{"left", "active", "right"}[i], name, float64(i)*third, float64(i+1)*third)
		Expect(err).NotTo(HaveOccurred())
		Expect(dev.AddRegion(r)).To(Succeed())
	}
	return dev
}

func twoLevelMedium(dipole float64) *qm.Description {
	d, err := qm.NewTwoLevel(qm.TwoLevel{
		CarrierDensity:       1e20,
		TransitionFreq:       2 * math.Pi * 2e14,
		DipoleMoment:         dipole,
		ScatteringRate:       1e10,
		DephasingRate:        1e10,
		EquilibriumInversion: -1,
	})
	Expect(err).NotTo(HaveOccurred())
	return d
}

func groundState() scenario.ConstDensity {
	rho, err := qm.RealOperator([]float64{1, 0}, nil)
	Expect(err).NotTo(HaveOccurred())
	return scenario.ConstDensity{Rho: rho}
}

func record(name string, interval float64) scenario.Record {
	r, err := scenario.NewRecord(name, interval)
	Expect(err).NotTo(HaveOccurred())
	return r
}

func pointRecord(name string, interval, pos float64) scenario.Record {
	r, err := scenario.NewPointRecord(name, interval, pos)
	Expect(err).NotTo(HaveOccurred())
	return r
}

func maxAbs(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	return m
}
