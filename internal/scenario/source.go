package scenario

import (
	"fmt"
	"math"

	"github.com/san-kum/mbsim/internal/dynamo"
)

type SourceMode int

const (
	// HardSource overwrites the electric field at its node.
	HardSource SourceMode = iota
	// SoftSource adds to the electric field at its node.
	SoftSource
)

func (m SourceMode) String() string {
	if m == SoftSource {
		return "soft"
	}
	return "hard"
}

// Waveform is the normalised time dependence of a source. The set of
// implementations is closed.
type Waveform interface {
	isWaveform()
}

// SechPulse is sech(Beta*t - Phase) * sin(2*pi*Freq*t - PhaseSin).
type SechPulse struct {
	Freq     float64
	Phase    float64
	Beta     float64
	PhaseSin float64
}

// GaussianPulse is exp(-(t-Phase)^2/Tau^2) * sin(2*pi*Freq*t).
type GaussianPulse struct {
	Freq  float64
	Phase float64
	Tau   float64
}

func (SechPulse) isWaveform()     {}
func (GaussianPulse) isWaveform() {}
func (ThermalNoise) isWaveform()  {}

// Source is an excitation of the electric field at one position.
type Source struct {
	Name      string
	Position  float64
	Mode      SourceMode
	Amplitude float64
	Waveform  Waveform
}

// Excitation is a compiled source, a pure function of absolute time.
type Excitation interface {
	Value(t float64) float64
}

type excitationFunc func(t float64) float64

func (f excitationFunc) Value(t float64) float64 { return f(t) }

// Compile binds the waveform to the time step.
func (s Source) Compile(dt float64) (Excitation, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("source %q: non-positive time step: %w", s.Name, dynamo.ErrInvalidScenario)
	}
	a := s.Amplitude
	switch w := s.Waveform.(type) {
	case SechPulse:
		return excitationFunc(func(t float64) float64 {
			return a / math.Cosh(w.Beta*t-w.Phase) * math.Sin(2*math.Pi*w.Freq*t-w.PhaseSin)
		}), nil
	case GaussianPulse:
		if w.Tau <= 0 {
			return nil, fmt.Errorf("source %q: gaussian width must be positive: %w", s.Name, dynamo.ErrInvalidParameter)
		}
		return excitationFunc(func(t float64) float64 {
			d := t - w.Phase
			return a * math.Exp(-d*d/(w.Tau*w.Tau)) * math.Sin(2*math.Pi*w.Freq*t)
		}), nil
	case ThermalNoise:
		spec, err := w.spectrum(dt)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", s.Name, err)
		}
		return excitationFunc(func(t float64) float64 {
			return a * spec.value(t)
		}), nil
	default:
		return nil, fmt.Errorf("source %q: unknown waveform %T: %w", s.Name, s.Waveform, dynamo.ErrInvalidScenario)
	}
}
