package scenario

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"

	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/qm"
)

// DensityInit is the initial condition of the density matrix. The set of
// implementations is closed.
type DensityInit interface {
	isDensityInit()
}

// Random2LevelDensity starts every grid point close to the upper level of a
// two-level system with a small random tipping angle, modelling the quantum
// noise that seeds spontaneous emission.
type Random2LevelDensity struct {
	NumCarrierCell float64
	Seed           uint64
}

// ConstDensity uses the same density matrix at every grid point.
type ConstDensity struct {
	Rho qm.Operator
}

// AutosaveDensity restores one density matrix per grid point from a
// checkpoint. Dx and Dt describe the grid of the checkpoint; zero means
// unknown.
type AutosaveDensity struct {
	Rho    []qm.Operator
	Dx, Dt float64
}

func (Random2LevelDensity) isDensityInit() {}
func (ConstDensity) isDensityInit()        {}
func (AutosaveDensity) isDensityInit()     {}

// FieldInit is the initial condition of a field quantity (E, H or P).
type FieldInit interface {
	isFieldInit()
}

type ConstField struct {
	Value float64
}

// RandomField draws every grid value from N(Mean, StdDev) scaled by Amplitude.
type RandomField struct {
	Mean      float64
	StdDev    float64
	Amplitude float64
	Seed      uint64
}

// AutosaveField restores a field from a checkpoint taken on a grid with
// spacing Dx and step Dt (zero when unknown).
type AutosaveField struct {
	Values []float64
	Dx, Dt float64
}

func (ConstField) isFieldInit()    {}
func (RandomField) isFieldInit()   {}
func (AutosaveField) isFieldInit() {}

// DefaultRandomField matches the small random seed field of the reference
// driver.
func DefaultRandomField(seed uint64) RandomField {
	return RandomField{Mean: 0, StdDev: 1, Amplitude: 1e-15, Seed: seed}
}

// pointRand returns a generator that depends only on the seed and the grid
// index, so initialisation order does not matter.
func pointRand(seed uint64, i int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(i)))
}

// densityTol bounds the trace error and negative populations accepted in a
// constant initial density. Published populations are often rounded to four
// digits.
const densityTol = 1e-3

// InitDensity evaluates a density initial condition at grid index i.
func InitDensity(init DensityInit, i, levels int) (qm.Operator, error) {
	switch v := init.(type) {
	case Random2LevelDensity:
		if levels != 2 {
			return qm.Operator{}, fmt.Errorf("random two-level density on %d-level medium: %w", levels, dynamo.ErrInvalidScenario)
		}
		if v.NumCarrierCell <= 0 {
			return qm.Operator{}, fmt.Errorf("random density needs positive carriers per cell: %w", dynamo.ErrInvalidParameter)
		}
		r := pointRand(v.Seed, i)
		theta := 2 / math.Sqrt(v.NumCarrierCell) * r.NormFloat64()
		phi := 2 * math.Pi * r.Float64()
		s := math.Sin(theta / 2)
		c := math.Cos(theta / 2)
		coh := complex(math.Sin(theta)/2, 0) * cmplx.Exp(complex(0, phi))
		return qm.NewOperator([]float64{s * s, c * c}, []complex128{coh})
	case ConstDensity:
		if v.Rho.Levels() != levels {
			return qm.Operator{}, fmt.Errorf("initial density has %d levels, medium has %d: %w", v.Rho.Levels(), levels, dynamo.ErrInvalidScenario)
		}
		if !v.Rho.IsDensity(densityTol) {
			return qm.Operator{}, fmt.Errorf("initial density with trace %g is not a density matrix: %w", v.Rho.Trace(), dynamo.ErrInvalidScenario)
		}
		return v.Rho.Clone(), nil
	case AutosaveDensity:
		if i < 0 || i >= len(v.Rho) {
			return qm.Operator{}, fmt.Errorf("autosave density has %d points, index %d requested: %w", len(v.Rho), i, dynamo.ErrInvalidScenario)
		}
		if v.Rho[i].Levels() != levels {
			return qm.Operator{}, fmt.Errorf("autosave density at %d has %d levels, medium has %d: %w", i, v.Rho[i].Levels(), levels, dynamo.ErrInvalidScenario)
		}
		return v.Rho[i].Clone(), nil
	default:
		return qm.Operator{}, fmt.Errorf("unknown density initial condition %T: %w", init, dynamo.ErrInvalidScenario)
	}
}

// InitField evaluates a field initial condition at grid index i.
func InitField(init FieldInit, i int) (float64, error) {
	switch v := init.(type) {
	case ConstField:
		return v.Value, nil
	case RandomField:
		return (v.Mean + v.StdDev*pointRand(v.Seed, i).NormFloat64()) * v.Amplitude, nil
	case AutosaveField:
		if i < 0 || i >= len(v.Values) {
			return 0, fmt.Errorf("autosave field has %d points, index %d requested: %w", len(v.Values), i, dynamo.ErrInvalidScenario)
		}
		return v.Values[i], nil
	default:
		return 0, fmt.Errorf("unknown field initial condition %T: %w", init, dynamo.ErrInvalidScenario)
	}
}
