package qm

import (
	"fmt"

	"github.com/san-kum/mbsim/internal/dynamo"
)

// Lindblad is a relaxation superoperator in rate form.
//
// Rates[i][j] is the scattering rate from level j into level i; the
// diagonal is ignored. PureDephasing uses the row-major upper-triangle
// ordering of Operator.Off.
type Lindblad struct {
	Rates         [][]float64
	PureDephasing []float64
}

// NewLindblad validates and copies the rate matrix and dephasing vector.
func NewLindblad(rates [][]float64, pureDephasing []float64) (Lindblad, error) {
	n := len(rates)
	l := Lindblad{
		Rates:         make([][]float64, n),
		PureDephasing: make([]float64, n*(n-1)/2),
	}
	for i, row := range rates {
		if len(row) != n {
			return Lindblad{}, fmt.Errorf("rate matrix row %d has %d entries, want %d: %w",
				i, len(row), n, dynamo.ErrInvalidParameter)
		}
		l.Rates[i] = make([]float64, n)
		for j, r := range row {
			if i == j {
				continue
			}
			if r < 0 {
				return Lindblad{}, fmt.Errorf("negative scattering rate %d<-%d: %w", i, j, dynamo.ErrInvalidParameter)
			}
			l.Rates[i][j] = r
		}
	}
	if pureDephasing != nil {
		if len(pureDephasing) != len(l.PureDephasing) {
			return Lindblad{}, fmt.Errorf("pure dephasing needs %d entries, got %d: %w",
				len(l.PureDephasing), len(pureDephasing), dynamo.ErrInvalidParameter)
		}
		for k, g := range pureDephasing {
			if g < 0 {
				return Lindblad{}, fmt.Errorf("negative pure dephasing rate at %d: %w", k, dynamo.ErrInvalidParameter)
			}
			l.PureDephasing[k] = g
		}
	}
	return l, nil
}

// Levels returns the dimension of the rate matrix.
func (l Lindblad) Levels() int { return len(l.Rates) }

// outScattering adds the total rate out of each level to out.
func (l Lindblad) outScattering(out []float64) {
	n := l.Levels()
	for k := 0; k < n; k++ {
		for m := 0; m < n; m++ {
			if m != k {
				out[k] += l.Rates[m][k]
			}
		}
	}
}

// Apply adds L(rho) to out. Populations gain from and lose to the other
// levels at the scattering rates; coherence (i, j) decays at the mean
// out-scattering rate of both levels plus its pure dephasing rate.
func (l Lindblad) Apply(rho, out Matrix) {
	n := l.Levels()
	var buf [8]float64
	var gamma []float64
	if n <= len(buf) {
		gamma = buf[:n]
	} else {
		gamma = make([]float64, n)
	}
	l.outScattering(gamma)

	for i := 0; i < n; i++ {
		pop := 0.0
		for m := 0; m < n; m++ {
			if m != i {
				pop += l.Rates[i][m] * real(rho.At(m, m))
			}
		}
		pop -= gamma[i] * real(rho.At(i, i))
		out.Data[i*n+i] += complex(pop, 0)

		for j := i + 1; j < n; j++ {
			g := complex((gamma[i]+gamma[j])/2+l.PureDephasing[OffIndex(n, i, j)], 0)
			out.Data[i*n+j] -= g * rho.At(i, j)
			out.Data[j*n+i] -= g * rho.At(j, i)
		}
	}
}
