package cpu

import (
	"context"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/mbsim/internal/device"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/integrators"
	"github.com/san-kum/mbsim/internal/material"
	"github.com/san-kum/mbsim/internal/qm"
	"github.com/san-kum/mbsim/internal/scenario"
	"github.com/san-kum/mbsim/internal/solver"
)

// minChunk is the smallest number of grid points handed to one goroutine
// in the matter update.
const minChunk = 64

// cancelCheckEvery is how many steps run between context checks.
const cancelCheckEvery = 256

// cell is the matter state of one active grid point.
type cell struct {
	bloch   *qm.Bloch
	integ   dynamo.Integrator
	rho     dynamo.State
	u       dynamo.Control
	density float64
}

type excitation struct {
	idx  int
	mode scenario.SourceMode
	exc  scenario.Excitation
}

type fdtd struct {
	solver.Lifecycle

	v         variant
	devName   string
	scen      *scenario.Scenario
	grid      scenario.Grid
	length    float64
	startStep int

	// update coefficients, per E node and per H half node
	ca, cb, overlap []float64
	da, db          []float64

	cells     []*cell
	levels    []int
	sources   []excitation
	recorders []*recorder

	mu     sync.Mutex
	step   int
	e, h   []float64
	p      []float64
	pNext  []float64
	result *solver.ResultSet
}

func newFDTD(v variant, dev *device.Device, scen *scenario.Scenario) (*fdtd, error) {
	grid, err := scen.Discretize(dev.Length())
	if err != nil {
		return nil, err
	}
	if err := scen.CheckResume(grid); err != nil {
		return nil, err
	}
	n := grid.NumGridpoints
	s := &fdtd{
		v:         v,
		devName:   dev.Name,
		scen:      scen,
		grid:      grid,
		length:    dev.Length(),
		startStep: grid.StartStep(scen.StartTime()),
		ca:        make([]float64, n),
		cb:        make([]float64, n),
		overlap:   make([]float64, n),
		da:        make([]float64, n),
		db:        make([]float64, n),
		cells:     make([]*cell, n),
		levels:    make([]int, n),
		e:         make([]float64, n),
		h:         make([]float64, n),
		p:         make([]float64, n),
		pNext:     make([]float64, n),
	}
	s.step = s.startStep

	if err := s.setupMedia(dev); err != nil {
		return nil, err
	}
	if err := s.setupFields(); err != nil {
		return nil, err
	}
	if err := s.setupSources(dev.Start()); err != nil {
		return nil, err
	}
	if err := s.setupRecorders(dev.Start()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *fdtd) Name() string { return s.v.name }

func (s *fdtd) setupMedia(dev *device.Device) error {
	n := s.grid.NumGridpoints
	dx, dt := s.grid.Dx, s.grid.Dt
	origin := dev.Start()

	mats := make([]*material.Material, n)
	for i := range mats {
		m, err := dev.MaterialAt(origin + float64(i)*dx)
		if err != nil {
			return fmt.Errorf("%w: %v", dynamo.ErrInvalidScenario, err)
		}
		mats[i] = m
	}
	left, right := dev.Boundaries()
	pml := newAbsorber(n, dx, left, right, func(i int) float64 {
		return qm.C0 / math.Sqrt(mats[i].RelPermittivity*mats[i].RelPermeability)
	})

	for i, m := range mats {
		eps := qm.Eps0 * m.RelPermittivity
		loss := (m.LossRate() + pml.rate(float64(i))) * dt / 2
		s.ca[i] = (1 - loss) / (1 + loss)
		s.cb[i] = dt / eps / (1 + loss)
		s.overlap[i] = m.Overlap

		if i < n-1 {
			hm := mats[i]
			if half, err := dev.MaterialAt(origin + (float64(i)+0.5)*dx); err == nil {
				hm = half
			}
			mu := qm.Mu0 * hm.RelPermeability
			hloss := pml.rate(float64(i)+0.5) * dt / 2
			s.da[i] = (1 - hloss) / (1 + hloss)
			s.db[i] = dt / mu / (1 + hloss)
		}

		if !m.Active() {
			continue
		}
		if s.v.levels != 0 && m.Levels() != s.v.levels {
			return fmt.Errorf("solver %s needs %d-level media, material %q has %d: %w",
				s.v.name, s.v.levels, m.Name, m.Levels(), dynamo.ErrInvalidScenario)
		}
		s.levels[i] = m.Levels()
		rho, err := scenario.InitDensity(s.scen.DensityInit(), i, m.Levels())
		if err != nil {
			return err
		}
		c := &cell{bloch: qm.NewBloch(m.QM), rho: rho.State(), u: make(dynamo.Control, 1), density: m.QM.CarrierDensity}
		if s.v.integrator != "" {
			integ, err := integrators.New(s.v.integrator)
			if err != nil {
				return err
			}
			c.integ = integ
		}
		s.cells[i] = c
	}
	return nil
}

func (s *fdtd) setupFields() error {
	for i := range s.e {
		var err error
		if s.e[i], err = scenario.InitField(s.scen.ElectricInit(), i); err != nil {
			return err
		}
		if i < len(s.h)-1 {
			if s.h[i], err = scenario.InitField(s.scen.MagneticInit(), i); err != nil {
				return err
			}
		}
		if s.p[i], err = scenario.InitField(s.scen.PolarizationInit(), i); err != nil {
			return err
		}
	}
	copy(s.pNext, s.p)
	return nil
}

func (s *fdtd) setupSources(origin float64) error {
	for _, src := range s.scen.Sources() {
		exc, err := src.Compile(s.grid.Dt)
		if err != nil {
			return err
		}
		idx, err := s.grid.Index(src.Position, origin)
		if err != nil {
			return fmt.Errorf("source %q: %w", src.Name, err)
		}
		s.sources = append(s.sources, excitation{idx: idx, mode: src.Mode, exc: exc})
	}
	return nil
}

// Run advances the grid through all time steps of the scenario.
func (s *fdtd) Run(ctx context.Context) error {
	if err := s.Begin(); err != nil {
		return err
	}

	for k := 1; k <= s.grid.NumSteps; k++ {
		if (k-1)%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return s.fail(k, err)
			}
		}
		s.mu.Lock()
		s.advance(s.startStep + k)
		ok := s.stable()
		s.mu.Unlock()
		if !ok {
			return s.fail(k, dynamo.ErrNumericalInstability)
		}
	}

	s.mu.Lock()
	s.result = s.collect()
	s.mu.Unlock()
	s.Finish(nil)
	return nil
}

func (s *fdtd) fail(k int, cause error) error {
	err := &dynamo.RunError{
		Solver:  s.v.name,
		Elapsed: s.Elapsed(),
		Step:    s.startStep + k,
		Time:    float64(s.startStep+k) * s.grid.Dt,
		Wrapped: cause,
	}
	s.Finish(err)
	return err
}

// stable reports whether the fields are still finite. The polarization
// carries any divergence of the density matrix.
func (s *fdtd) stable() bool {
	for _, v := range [][]float64{s.e, s.h, s.p} {
		if floats.HasNaN(v) {
			return false
		}
		if sum := floats.Sum(v); math.IsInf(sum, 0) || math.IsNaN(sum) {
			return false
		}
	}
	return true
}

func (s *fdtd) Results() (*solver.ResultSet, error) {
	if err := s.RequireCompleted(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, nil
}

// SimData snapshots the state between two steps.
func (s *fdtd) SimData() (*solver.SimData, error) {
	if err := s.RequireStarted(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &solver.SimData{
		Version: solver.SimDataVersion,
		Step:    s.step,
		Time:    float64(s.step) * s.grid.Dt,
		Dt:      s.grid.Dt,
		Dx:      s.grid.Dx,
		E:       append([]float64(nil), s.e...),
		H:       append([]float64(nil), s.h...),
		P:       append([]float64(nil), s.p...),
		Density: make([]qm.Operator, len(s.cells)),
	}
	for i, c := range s.cells {
		if c != nil {
			d.Density[i] = qm.OperatorFromState(c.rho, s.levels[i])
		}
	}
	return d, nil
}
