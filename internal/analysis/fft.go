package analysis

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/mbsim/internal/dynamo"
)

// Spectrum is a one-sided power spectrum. Freq is in Hz.
type Spectrum struct {
	Freq  []float64
	Power []float64
}

// PowerSpectrum transforms samples taken every dt seconds. Any length of
// at least two works; the mean is removed first so the DC bin only holds
// numerical residue.
func PowerSpectrum(samples []float64, dt float64) (*Spectrum, error) {
	n := len(samples)
	if n < 2 {
		return nil, fmt.Errorf("spectrum needs at least two samples, got %d: %w", n, dynamo.ErrInvalidParameter)
	}
	if !(dt > 0) {
		return nil, fmt.Errorf("spectrum needs a positive sample period, got %g: %w", dt, dynamo.ErrInvalidParameter)
	}

	centered := make([]float64, n)
	copy(centered, samples)
	floats.AddConst(-floats.Sum(samples)/float64(n), centered)

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, centered)

	s := &Spectrum{
		Freq:  make([]float64, len(coeff)),
		Power: make([]float64, len(coeff)),
	}
	for i, c := range coeff {
		s.Freq[i] = fft.Freq(i) / dt
		a := cmplx.Abs(c) / float64(n)
		s.Power[i] = a * a
	}
	return s, nil
}

// Peak returns the frequency and power of the strongest non-DC bin.
func (s *Spectrum) Peak() (freq, power float64) {
	if len(s.Power) < 2 {
		return 0, 0
	}
	i := floats.MaxIdx(s.Power[1:]) + 1
	return s.Freq[i], s.Power[i]
}
