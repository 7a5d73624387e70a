package scenario

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/qm"
)

// ThermalNoise is a random field whose spectrum follows the normalised
// blackbody energy density at Temperature. Duration is the simulated time
// the noise has to cover; it fixes the lowest resolvable frequency.
// Frequencies are in Hz. A zero FreqMax selects the Nyquist limit.
type ThermalNoise struct {
	Temperature float64
	Duration    float64
	DeltaFreq   float64
	FreqMin     float64
	FreqMax     float64
	Seed        uint64
}

// NewThermalNoise returns a source whose amplitude is derived from the
// temperature and duration.
func NewThermalNoise(name string, position float64, mode SourceMode, w ThermalNoise) (Source, error) {
	if w.Temperature <= 0 || w.Duration <= 0 {
		return Source{}, fmt.Errorf("thermal noise %q: temperature and duration must be positive: %w", name, dynamo.ErrInvalidParameter)
	}
	amp := math.Sqrt(2/(6*qm.Eps0*qm.HBar*qm.C0)) * qm.KB * w.Temperature / math.Sqrt(w.Duration)
	return Source{Name: name, Position: position, Mode: mode, Amplitude: amp, Waveform: w}, nil
}

// blackbody is the normalised spectral energy density at angular frequency omega.
func blackbody(temp, omega float64) float64 {
	kt := qm.KB * temp
	w := math.Abs(omega)
	return 6 * qm.HBar * qm.HBar / (math.Pi * kt * kt) * w / math.Expm1(qm.HBar*w/kt)
}

// thermalSpectrum holds the weighted random coefficients on the equidistant
// frequency grid omega0 + k*domega.
type thermalSpectrum struct {
	omega0 float64
	domega float64
	coef   []complex128
}

func (w ThermalNoise) spectrum(dt float64) (*thermalSpectrum, error) {
	if w.Temperature <= 0 || w.Duration <= 0 {
		return nil, fmt.Errorf("thermal noise needs positive temperature and duration: %w", dynamo.ErrInvalidParameter)
	}
	df := math.Max(w.DeltaFreq, 1/w.Duration)
	fmin := math.Max(w.FreqMin, 1/w.Duration)
	nyquist := 1 / (2 * dt)
	fmax := w.FreqMax
	if fmax == 0 {
		fmax = nyquist
	} else if fmax > nyquist {
		return nil, fmt.Errorf("max frequency %g above nyquist limit %g: %w", fmax, nyquist, dynamo.ErrInvalidParameter)
	}
	if fmax < fmin {
		return nil, fmt.Errorf("max frequency %g below min frequency %g: %w", fmax, fmin, dynamo.ErrInvalidParameter)
	}

	n := int(math.Floor((fmax-fmin)/df)) + 1
	s := &thermalSpectrum{
		omega0: 2 * math.Pi * fmin,
		domega: 2 * math.Pi * df,
		coef:   make([]complex128, n),
	}
	r := pointRand(w.Seed, 0)
	for k := range s.coef {
		omega := s.omega0 + float64(k)*s.domega
		rnd := complex(r.NormFloat64(), r.NormFloat64())
		// negative frequencies carry the conjugate coefficients
		s.coef[k] = 2 * rnd * complex(math.Sqrt(blackbody(w.Temperature, omega)), 0)
	}
	return s, nil
}

func (s *thermalSpectrum) value(t float64) float64 {
	phase := cmplx.Exp(complex(0, s.omega0*t))
	step := cmplx.Exp(complex(0, s.domega*t))
	sum := 0.0
	for _, c := range s.coef {
		sum += real(c * phase)
		phase *= step
	}
	return sum
}
