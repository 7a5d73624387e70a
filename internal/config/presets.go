package config

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/qm"
)

// Presets reproduce published Maxwell-Bloch setups. Each call returns a
// fresh copy so callers may edit the result.
var Presets = map[string]func() *Experiment{
	"ziolkowski1995": ziolkowski1995,
	"andreasen2008":  andreasen2008,
	"andreasen2009":  andreasen2009,
	"forrer2021":     forrer2021,
}

func GetPreset(name string) (*Experiment, error) {
	build, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("preset %q: %w", name, dynamo.ErrNotFound)
	}
	return build(), nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ptr(v float64) *float64 { return &v }

// ziolkowski1995 is self-induced transparency of a 2 pi sech pulse in a
// two-level absorber.
func ziolkowski1995() *Experiment {
	return &Experiment{
		Solver:    "cpu-fdtd-2lvl-rk4",
		Format:    DefaultFormat,
		OutputDir: DefaultOutputDir,
		Materials: []MaterialConfig{
			{Name: "Vacuum"},
			{Name: "AR_Ziolkowski", TwoLevel: &TwoLevelConfig{
				CarrierDensity:       1e24,
				TransitionFreq:       2 * math.Pi * 2e14,
				DipoleMoment:         6.24e-11 * qm.E0,
				ScatteringRate:       1e10,
				DephasingRate:        1e10,
				EquilibriumInversion: -1,
			}},
		},
		Device: DeviceConfig{
			Name: "Ziolkowski",
			Regions: []RegionConfig{
				{Name: "Vacuum left", Material: "Vacuum", Start: 0, End: 7.5e-6},
				{Name: "Active region", Material: "AR_Ziolkowski", Start: 7.5e-6, End: 142.5e-6},
				{Name: "Vacuum right", Material: "Vacuum", Start: 142.5e-6, End: 150e-6},
			},
		},
		Scenario: ScenarioConfig{
			Name:          "Basic",
			NumGridpoints: 32768,
			EndTime:       200e-15,
			Density:       DensityConfig{Kind: "const", Rho: OperatorConfig{Main: []float64{1, 0}}},
			Electric:      FieldConfig{Kind: "const"},
			Records: []RecordConfig{
				{Name: "inv12", Interval: 2.5e-15},
				{Name: "e", Interval: 2.5e-15},
			},
			Sources: []SourceConfig{{
				Name:      "sech",
				Mode:      "hard",
				Amplitude: 4.2186e9,
				Sech:      &SechConfig{Freq: 2e14, Phase: 10, Beta: 2e14},
			}},
		},
	}
}

// andreasen2008 drives an open 20 nm vacuum cavity with thermal noise from
// both ends.
func andreasen2008() *Experiment {
	const (
		courant  = 1.0
		dx       = 1e-9
		length   = 20e-9
		numSteps = 1000000
	)
	dt := courant * dx / qm.C0
	tau := numSteps * dt
	noise := func(seed uint64) *ThermalConfig {
		return &ThermalConfig{
			Temperature: 30000,
			Duration:    tau,
			DeltaFreq:   1e12 / (2 * math.Pi),
			FreqMin:     2e15 / (2 * math.Pi),
			FreqMax:     2.5e16 / (2 * math.Pi),
			Seed:        seed,
		}
	}

	return &Experiment{
		Solver:    "cpu-fdtd-noop",
		Format:    DefaultFormat,
		OutputDir: DefaultOutputDir,
		Materials: []MaterialConfig{{Name: "Vacuum"}},
		Device: DeviceConfig{
			Name:    "Andreasen",
			Regions: []RegionConfig{{Name: "Vacuum left", Material: "Vacuum", Start: 0, End: length}},
		},
		Scenario: ScenarioConfig{
			Name:          "Basic",
			NumGridpoints: int(math.Ceil(length/dx)) + 1,
			EndTime:       tau,
			Courant:       courant,
			Density:       DensityConfig{Kind: "random_2lvl", NumCarrierCell: 3e4},
			Electric:      FieldConfig{Kind: "const"},
			Records: []RecordConfig{
				{Name: "e_left", Position: ptr(0)},
				{Name: "e_middle", Position: ptr(length / 2)},
				{Name: "e_right", Position: ptr(length)},
			},
			Sources: []SourceConfig{
				{Name: "noise_left", Position: 0, Mode: "hard", Thermal: noise(1)},
				{Name: "noise_right", Position: length, Mode: "hard", Thermal: noise(2)},
			},
		},
	}
}

// andreasen2009 is two-level superfluorescence seeded by the random
// initial tipping angle, with absorbing boundaries on both sides.
func andreasen2009() *Experiment {
	return &Experiment{
		Solver:    "cpu-fdtd-2lvl-rk4",
		Format:    DefaultFormat,
		OutputDir: DefaultOutputDir,
		Materials: []MaterialConfig{
			{Name: "Vacuum"},
			{Name: "AR_Andreasen", TwoLevel: &TwoLevelConfig{
				CarrierDensity:       8.53e18,
				NumCarrierCell:       3e4,
				TransitionFreq:       2 * math.Pi * 4.77e14,
				DipoleMoment:         6.875e-11 * qm.E0,
				ScatteringRate:       1.32e7,
				DephasingRate:        1e10,
				EquilibriumInversion: -1,
			}},
		},
		Device: DeviceConfig{
			Name: "Andreasen",
			Regions: []RegionConfig{
				{Name: "Vacuum left", Material: "Vacuum", Start: 0, End: 70e-6},
				{Name: "Active region", Material: "AR_Andreasen", Start: 70e-6, End: 7.07e-3},
				{Name: "Vacuum right", Material: "Vacuum", Start: 7.07e-3, End: 7.14e-3},
			},
			UPMLLayers: 200,
		},
		Scenario: ScenarioConfig{
			Name:          "Basic",
			NumGridpoints: 102000,
			EndTime:       5e-10,
			Density:       DensityConfig{Kind: "random_2lvl", NumCarrierCell: 3e4},
			Electric:      FieldConfig{Kind: "const"},
			Records: []RecordConfig{
				{Name: "inv12", Interval: 1e-13},
				{Name: "e", Interval: 1e-13},
			},
		},
	}
}

// forrer2021 is the five-level terahertz quantum cascade laser active
// region of a harmonic comb, started from its stationary populations.
func forrer2021() *Experiment {
	const (
		height    = 15e-6
		width     = 60e-6
		density   = 6.35e21
		numPoints = 2000
		length    = 4e-3
	)
	dx := length / numPoints
	ncell := density * height * width * dx

	e0 := func(vs ...float64) []float64 {
		out := make([]float64, len(vs))
		for i, v := range vs {
			out[i] = v * qm.E0
		}
		return out
	}

	return &Experiment{
		Solver:    "cpu-fdtd-nlvl-rk4",
		Format:    DefaultFormat,
		OutputDir: DefaultOutputDir,
		Autosave:  true,
		Materials: []MaterialConfig{{
			Name:         "AR_Forrer",
			Permittivity: 12.96,
			Permeability: 1,
			Losses:       760,
			Overlap:      1,
			Levels: &LevelsConfig{
				CarrierDensity: density,
				NumCarrierCell: ncell,
				Hamiltonian: OperatorConfig{
					Main:    e0(0.0097, 0.0082, -0.0047, -0.0083, -0.0097),
					OffReal: e0(0.0005, 0, 0, 0, 0, 0, 0, 0, 0, 0),
				},
				Dipole: OperatorConfig{
					Main:    make([]float64, 5),
					OffReal: e0(0, -2.95e-9, 0, 0, 0, 0, 0, 0, 0, 0),
				},
				Rates: [][]float64{
					{0, 1.8815e+09, 2.1290e+10, 4.0984e+09, 5.6000e+09},
					{3.5006e+09, 0, 3.2437e+08, 2.2854e+10, 2.0029e+12},
					{6.5578e+10, 6.2829e+08, 0, 8.0333e+11, 6.1577e+09},
					{6.8416e+09, 3.6845e+08, 6.6107e+11, 0, 4.7378e+12},
					{5.2192e+08, 6.7259e+10, 4.7554e+09, 4.7726e+12, 0},
				},
				PureDephasing: []float64{3.5857e+12, 9.3257e+11, 0, 0, 0, 0, 0, 0, 0, 0},
			},
		}},
		Device: DeviceConfig{
			Name:    "5lvl",
			Regions: []RegionConfig{{Name: "Active region", Material: "AR_Forrer", Start: 0, End: length}},
		},
		Scenario: ScenarioConfig{
			Name:          "hc_noise_forrer2021",
			NumGridpoints: numPoints,
			EndTime:       2200e-9,
			Density: DensityConfig{Kind: "const", Rho: OperatorConfig{
				Main: []float64{0.3705, 0.4937, 0.0741, 0.0333, 0.0285},
			}},
			Electric: FieldConfig{Kind: "const"},
			Magnetic: &FieldConfig{Kind: "const"},
			Records:  []RecordConfig{{Name: "e1", Position: ptr(length)}},
		},
	}
}
