package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/mbsim/internal/dynamo"
)

func TestPowerSpectrumPeak(t *testing.T) {
	const (
		n  = 1000
		dt = 1e-15
		f0 = 50e12
	)
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 3 + math.Sin(2*math.Pi*f0*float64(i)*dt)
	}

	spec, err := PowerSpectrum(samples, dt)
	if err != nil {
		t.Fatal(err)
	}
	if len(spec.Freq) != n/2+1 {
		t.Fatalf("expected %d bins, got %d", n/2+1, len(spec.Freq))
	}
	if got := spec.Freq[1]; math.Abs(got-1/(n*dt))/got > 1e-12 {
		t.Errorf("bin spacing = %g, want %g", got, 1/(n*dt))
	}

	freq, power := spec.Peak()
	if math.Abs(freq-f0)/f0 > 1e-9 {
		t.Errorf("peak at %g Hz, want %g", freq, f0)
	}
	// a unit sine splits its power between +f0 and -f0
	if math.Abs(power-0.25) > 1e-9 {
		t.Errorf("peak power = %g, want 0.25", power)
	}
	if spec.Power[0] > 1e-20 {
		t.Errorf("DC bin should be empty after mean removal, got %g", spec.Power[0])
	}
}

func TestPowerSpectrumInvalid(t *testing.T) {
	if _, err := PowerSpectrum([]float64{1}, 1); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
	if _, err := PowerSpectrum([]float64{1, 2}, 0); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	s, err := Summarize([]float64{-1, 1, -1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if s.N != 4 || s.Mean != 0 || s.Min != -1 || s.Max != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
	if math.Abs(s.RMS-1) > 1e-12 {
		t.Errorf("RMS = %g, want 1", s.RMS)
	}
	if math.Abs(s.StdDev-math.Sqrt(4.0/3)) > 1e-12 {
		t.Errorf("StdDev = %g, want sqrt(4/3)", s.StdDev)
	}

	if _, err := Summarize(nil); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
}
