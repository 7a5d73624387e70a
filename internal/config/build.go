package config

import (
	"fmt"

	"github.com/san-kum/mbsim/internal/device"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/material"
	"github.com/san-kum/mbsim/internal/qm"
	"github.com/san-kum/mbsim/internal/scenario"
	"github.com/san-kum/mbsim/internal/writer"
)

// Setup is an experiment assembled into the objects the solvers consume.
type Setup struct {
	Library  *material.Library
	Device   *device.Device
	Scenario *scenario.Scenario
}

// Build assembles the experiment. When Resume names a checkpoint, the
// initial conditions and start time are read from it with the reader
// registered for its extension.
func (e *Experiment) Build(formats *writer.Registry) (*Setup, error) {
	lib := material.NewLibrary()
	for _, mc := range e.Materials {
		m, err := mc.build()
		if err != nil {
			return nil, err
		}
		if err := lib.Add(m); err != nil {
			return nil, err
		}
	}

	dev, err := e.Device.build(lib)
	if err != nil {
		return nil, err
	}
	scen, err := e.Scenario.build()
	if err != nil {
		return nil, err
	}
	if e.Resume != "" {
		if err := resume(scen, formats, e.Resume); err != nil {
			return nil, err
		}
	}
	return &Setup{Library: lib, Device: dev, Scenario: scen}, nil
}

func (o OperatorConfig) operator() (qm.Operator, error) {
	n := len(o.Main)
	off := make([]complex128, n*(n-1)/2)
	if len(o.OffReal) > len(off) || len(o.OffImag) > len(off) {
		return qm.Operator{}, fmt.Errorf("operator with %d levels has too many off-diagonal elements: %w", n, dynamo.ErrInvalidParameter)
	}
	for k, re := range o.OffReal {
		off[k] = complex(re, imag(off[k]))
	}
	for k, im := range o.OffImag {
		off[k] = complex(real(off[k]), im)
	}
	return qm.NewOperator(o.Main, off)
}

func (mc MaterialConfig) build() (material.Material, error) {
	var opts []material.Option
	if mc.Permittivity != 0 {
		opts = append(opts, material.WithPermittivity(mc.Permittivity))
	}
	if mc.Permeability != 0 {
		opts = append(opts, material.WithPermeability(mc.Permeability))
	}
	if mc.Overlap != 0 {
		opts = append(opts, material.WithOverlap(mc.Overlap))
	}
	if mc.Losses != 0 {
		opts = append(opts, material.WithLosses(mc.Losses))
	}

	switch {
	case mc.TwoLevel != nil && mc.Levels != nil:
		return material.Material{}, fmt.Errorf("material %q: both two_level and levels given: %w", mc.Name, dynamo.ErrInvalidParameter)
	case mc.TwoLevel != nil:
		p := mc.TwoLevel
		desc, err := qm.NewTwoLevel(qm.TwoLevel{
			CarrierDensity:       p.CarrierDensity,
			NumCarrierCell:       p.NumCarrierCell,
			TransitionFreq:       p.TransitionFreq,
			DipoleMoment:         p.DipoleMoment,
			ScatteringRate:       p.ScatteringRate,
			DephasingRate:        p.DephasingRate,
			EquilibriumInversion: p.EquilibriumInversion,
		})
		if err != nil {
			return material.Material{}, fmt.Errorf("material %q: %w", mc.Name, err)
		}
		return material.New(mc.Name, desc, opts...)
	case mc.Levels != nil:
		desc, err := mc.Levels.description()
		if err != nil {
			return material.Material{}, fmt.Errorf("material %q: %w", mc.Name, err)
		}
		return material.New(mc.Name, desc, opts...)
	default:
		return material.NewVacuum(mc.Name, opts...)
	}
}

func (lc *LevelsConfig) description() (*qm.Description, error) {
	h, err := lc.Hamiltonian.operator()
	if err != nil {
		return nil, err
	}
	u, err := lc.Dipole.operator()
	if err != nil {
		return nil, err
	}
	relax, err := qm.NewLindblad(lc.Rates, lc.PureDephasing)
	if err != nil {
		return nil, err
	}
	return qm.NewDescription(lc.CarrierDensity, lc.NumCarrierCell, h, u, relax)
}

func (dc DeviceConfig) build(lib *material.Library) (*device.Device, error) {
	dev := device.New(dc.Name)
	for _, rc := range dc.Regions {
		r, err := device.NewRegion(lib, rc.Name, rc.Material, rc.Start, rc.End)
		if err != nil {
			return nil, err
		}
		if err := dev.AddRegion(r); err != nil {
			return nil, err
		}
	}
	if dc.UPMLLayers > 0 {
		bc, err := device.UPML(dc.UPMLLayers)
		if err != nil {
			return nil, err
		}
		if err := dev.SetBoundaries(bc, bc); err != nil {
			return nil, err
		}
	}
	return dev, nil
}

func (dc DensityConfig) init() (scenario.DensityInit, error) {
	switch dc.Kind {
	case "random_2lvl":
		return scenario.Random2LevelDensity{NumCarrierCell: dc.NumCarrierCell, Seed: dc.Seed}, nil
	case "const", "":
		rho, err := dc.Rho.operator()
		if err != nil {
			return nil, err
		}
		return scenario.ConstDensity{Rho: rho}, nil
	default:
		return nil, fmt.Errorf("density initial condition %q: %w", dc.Kind, dynamo.ErrInvalidScenario)
	}
}

func (fc FieldConfig) init() (scenario.FieldInit, error) {
	switch fc.Kind {
	case "const", "":
		return scenario.ConstField{Value: fc.Value}, nil
	case "random":
		return scenario.RandomField{Mean: fc.Mean, StdDev: fc.StdDev, Amplitude: fc.Amplitude, Seed: fc.Seed}, nil
	default:
		return nil, fmt.Errorf("field initial condition %q: %w", fc.Kind, dynamo.ErrInvalidScenario)
	}
}

func (sc ScenarioConfig) build() (*scenario.Scenario, error) {
	density, err := sc.Density.init()
	if err != nil {
		return nil, err
	}
	electric, err := sc.Electric.init()
	if err != nil {
		return nil, err
	}
	scen, err := scenario.New(sc.Name, sc.NumGridpoints, sc.EndTime, density, electric)
	if err != nil {
		return nil, err
	}

	if sc.Magnetic != nil {
		h, err := sc.Magnetic.init()
		if err != nil {
			return nil, err
		}
		if err := scen.SetMagneticInit(h); err != nil {
			return nil, err
		}
	}
	if sc.Polarization != nil {
		p, err := sc.Polarization.init()
		if err != nil {
			return nil, err
		}
		if err := scen.SetPolarizationInit(p); err != nil {
			return nil, err
		}
	}
	if sc.Courant != 0 {
		if err := scen.SetCourantNumber(sc.Courant); err != nil {
			return nil, err
		}
	}
	if err := scen.SetStartTime(sc.StartTime); err != nil {
		return nil, err
	}

	for _, rc := range sc.Records {
		var rec scenario.Record
		if rc.Position != nil {
			rec, err = scenario.NewPointRecord(rc.Name, rc.Interval, *rc.Position)
		} else {
			rec, err = scenario.NewRecord(rc.Name, rc.Interval)
		}
		if err != nil {
			return nil, err
		}
		if err := scen.AddRecord(rec); err != nil {
			return nil, err
		}
	}
	for _, src := range sc.Sources {
		s, err := src.build(sc.EndTime)
		if err != nil {
			return nil, err
		}
		if err := scen.AddSource(s); err != nil {
			return nil, err
		}
	}
	return scen, nil
}

func (c SourceConfig) build(endTime float64) (scenario.Source, error) {
	var mode scenario.SourceMode
	switch c.Mode {
	case "hard", "":
		mode = scenario.HardSource
	case "soft":
		mode = scenario.SoftSource
	default:
		return scenario.Source{}, fmt.Errorf("source %q: mode %q: %w", c.Name, c.Mode, dynamo.ErrInvalidParameter)
	}

	n := 0
	for _, set := range []bool{c.Sech != nil, c.Gaussian != nil, c.Thermal != nil} {
		if set {
			n++
		}
	}
	if n != 1 {
		return scenario.Source{}, fmt.Errorf("source %q needs exactly one waveform, got %d: %w", c.Name, n, dynamo.ErrInvalidParameter)
	}

	src := scenario.Source{Name: c.Name, Position: c.Position, Mode: mode, Amplitude: c.Amplitude}
	switch {
	case c.Sech != nil:
		src.Waveform = scenario.SechPulse(*c.Sech)
	case c.Gaussian != nil:
		src.Waveform = scenario.GaussianPulse(*c.Gaussian)
	default:
		t := c.Thermal
		duration := t.Duration
		if duration == 0 {
			duration = endTime
		}
		return scenario.NewThermalNoise(c.Name, c.Position, mode, scenario.ThermalNoise{
			Temperature: t.Temperature,
			Duration:    duration,
			DeltaFreq:   t.DeltaFreq,
			FreqMin:     t.FreqMin,
			FreqMax:     t.FreqMax,
			Seed:        t.Seed,
		})
	}
	return src, nil
}

func resume(scen *scenario.Scenario, formats *writer.Registry, path string) error {
	rd, err := formats.ReaderFor(path)
	if err != nil {
		return err
	}
	dx, dt, err := rd.ReadGrid(path)
	if err != nil {
		return err
	}
	rho, err := rd.ReadDensity(path)
	if err != nil {
		return err
	}
	if err := scen.SetDensityInit(scenario.AutosaveDensity{Rho: rho, Dx: dx, Dt: dt}); err != nil {
		return err
	}

	fields := []struct {
		name string
		set  func(scenario.FieldInit) error
	}{
		{"e", scen.SetElectricInit},
		{"h", scen.SetMagneticInit},
		{"p", scen.SetPolarizationInit},
	}
	for _, f := range fields {
		values, err := rd.ReadField(path, f.name)
		if err != nil {
			return err
		}
		if err := f.set(scenario.AutosaveField{Values: values, Dx: dx, Dt: dt}); err != nil {
			return err
		}
	}

	t, err := rd.ReadTime(path)
	if err != nil {
		return err
	}
	return scen.SetStartTime(t)
}
