package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/mbsim/internal/dynamo"
)

const (
	DefaultSolver    = "cpu-fdtd-2lvl-rk4"
	DefaultFormat    = "msgpack"
	DefaultOutputDir = "."
)

// Experiment is the YAML description of one simulation: the material
// library, the device built from it, the scenario and where results go.
type Experiment struct {
	Solver    string           `yaml:"solver"`
	Format    string           `yaml:"format"`
	OutputDir string           `yaml:"output_dir"`
	Autosave  bool             `yaml:"autosave"`
	Resume    string           `yaml:"resume,omitempty"`
	Materials []MaterialConfig `yaml:"materials"`
	Device    DeviceConfig     `yaml:"device"`
	Scenario  ScenarioConfig   `yaml:"scenario"`
}

type MaterialConfig struct {
	Name         string          `yaml:"name"`
	Permittivity float64         `yaml:"permittivity,omitempty"`
	Permeability float64         `yaml:"permeability,omitempty"`
	Overlap      float64         `yaml:"overlap,omitempty"`
	Losses       float64         `yaml:"losses,omitempty"` // field attenuation in 1/m
	TwoLevel     *TwoLevelConfig `yaml:"two_level,omitempty"`
	Levels       *LevelsConfig   `yaml:"levels,omitempty"`
}

// TwoLevelConfig mirrors qm.TwoLevel. TransitionFreq is angular.
type TwoLevelConfig struct {
	CarrierDensity       float64 `yaml:"carrier_density"`
	NumCarrierCell       float64 `yaml:"num_carrier_cell"`
	TransitionFreq       float64 `yaml:"transition_freq"`
	DipoleMoment         float64 `yaml:"dipole_moment"`
	ScatteringRate       float64 `yaml:"scattering_rate"`
	DephasingRate        float64 `yaml:"dephasing_rate"`
	EquilibriumInversion float64 `yaml:"equilibrium_inversion"`
}

// LevelsConfig is the full N-level description. Energies and dipole
// elements are in SI units.
type LevelsConfig struct {
	CarrierDensity float64        `yaml:"carrier_density"`
	NumCarrierCell float64        `yaml:"num_carrier_cell"`
	Hamiltonian    OperatorConfig `yaml:"hamiltonian"`
	Dipole         OperatorConfig `yaml:"dipole"`
	Rates          [][]float64    `yaml:"rates"`
	PureDephasing  []float64      `yaml:"pure_dephasing,omitempty"`
}

// OperatorConfig holds a Hermitian operator in positional form. OffImag may
// be shorter than OffReal; missing entries are zero.
type OperatorConfig struct {
	Main    []float64 `yaml:"main"`
	OffReal []float64 `yaml:"off_real,omitempty"`
	OffImag []float64 `yaml:"off_imag,omitempty"`
}

type DeviceConfig struct {
	Name       string         `yaml:"name"`
	Regions    []RegionConfig `yaml:"regions"`
	UPMLLayers int            `yaml:"upml_layers,omitempty"`
}

type RegionConfig struct {
	Name     string  `yaml:"name"`
	Material string  `yaml:"material"`
	Start    float64 `yaml:"start"`
	End      float64 `yaml:"end"`
}

type ScenarioConfig struct {
	Name          string         `yaml:"name"`
	NumGridpoints int            `yaml:"num_gridpoints"`
	EndTime       float64        `yaml:"end_time"`
	Courant       float64        `yaml:"courant,omitempty"`
	StartTime     float64        `yaml:"start_time,omitempty"`
	Density       DensityConfig  `yaml:"density"`
	Electric      FieldConfig    `yaml:"electric"`
	Magnetic      *FieldConfig   `yaml:"magnetic,omitempty"`
	Polarization  *FieldConfig   `yaml:"polarization,omitempty"`
	Records       []RecordConfig `yaml:"records"`
	Sources       []SourceConfig `yaml:"sources,omitempty"`
}

// DensityConfig selects the density initial condition. Kind is "const" or
// "random_2lvl".
type DensityConfig struct {
	Kind           string         `yaml:"kind"`
	Rho            OperatorConfig `yaml:"rho,omitempty"`
	NumCarrierCell float64        `yaml:"num_carrier_cell,omitempty"`
	Seed           uint64         `yaml:"seed,omitempty"`
}

// FieldConfig selects a field initial condition. Kind is "const" or
// "random".
type FieldConfig struct {
	Kind      string  `yaml:"kind"`
	Value     float64 `yaml:"value,omitempty"`
	Mean      float64 `yaml:"mean,omitempty"`
	StdDev    float64 `yaml:"stddev,omitempty"`
	Amplitude float64 `yaml:"amplitude,omitempty"`
	Seed      uint64  `yaml:"seed,omitempty"`
}

// RecordConfig samples the whole grid unless Position is set.
type RecordConfig struct {
	Name     string   `yaml:"name"`
	Interval float64  `yaml:"interval"`
	Position *float64 `yaml:"position,omitempty"`
}

// SourceConfig carries exactly one of Sech, Gaussian and Thermal.
type SourceConfig struct {
	Name      string          `yaml:"name"`
	Position  float64         `yaml:"position"`
	Mode      string          `yaml:"mode"`
	Amplitude float64         `yaml:"amplitude,omitempty"`
	Sech      *SechConfig     `yaml:"sech,omitempty"`
	Gaussian  *GaussianConfig `yaml:"gaussian,omitempty"`
	Thermal   *ThermalConfig  `yaml:"thermal,omitempty"`
}

type SechConfig struct {
	Freq     float64 `yaml:"freq"`
	Phase    float64 `yaml:"phase"`
	Beta     float64 `yaml:"beta"`
	PhaseSin float64 `yaml:"phase_sin,omitempty"`
}

type GaussianConfig struct {
	Freq  float64 `yaml:"freq"`
	Phase float64 `yaml:"phase"`
	Tau   float64 `yaml:"tau"`
}

// ThermalConfig frequencies are in Hz. A zero Duration means the scenario
// end time.
type ThermalConfig struct {
	Temperature float64 `yaml:"temperature"`
	Duration    float64 `yaml:"duration,omitempty"`
	DeltaFreq   float64 `yaml:"delta_freq,omitempty"`
	FreqMin     float64 `yaml:"freq_min,omitempty"`
	FreqMax     float64 `yaml:"freq_max,omitempty"`
	Seed        uint64  `yaml:"seed,omitempty"`
}

// DefaultExperiment is the Ziolkowski self-induced transparency setup.
func DefaultExperiment() *Experiment {
	exp, _ := GetPreset("ziolkowski1995")
	return exp
}

func Load(path string) (*Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &dynamo.IOError{Op: "read", Path: path, Wrapped: err}
	}
	exp := &Experiment{Solver: DefaultSolver, Format: DefaultFormat, OutputDir: DefaultOutputDir}
	if err := yaml.Unmarshal(data, exp); err != nil {
		return nil, fmt.Errorf("parse %s: %v: %w", path, err, dynamo.ErrConfiguration)
	}
	return exp, nil
}

func Save(path string, exp *Experiment) error {
	data, err := yaml.Marshal(exp)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &dynamo.IOError{Op: "write", Path: path, Wrapped: err}
	}
	return nil
}
