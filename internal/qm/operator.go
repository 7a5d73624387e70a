package qm

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/san-kum/mbsim/internal/dynamo"
)

// Operator is a Hermitian operator on an n-level system in positional form.
//
// Main holds the n diagonal elements. Off holds the n(n-1)/2 elements of
// the strict upper triangle in row-major order:
//
//	(0,1), (0,2), ..., (0,n-1), (1,2), ..., (n-2,n-1)
//
// The lower triangle is implied as the complex conjugate.
type Operator struct {
	Main []float64
	Off  []complex128
}

// NewOperator validates the positional layout. A nil off slice means all
// coherences are zero.
func NewOperator(main []float64, off []complex128) (Operator, error) {
	n := len(main)
	if n == 0 {
		return Operator{}, fmt.Errorf("operator without levels: %w", dynamo.ErrInvalidParameter)
	}
	want := n * (n - 1) / 2
	if off == nil {
		off = make([]complex128, want)
	}
	if len(off) != want {
		return Operator{}, fmt.Errorf("operator with %d levels needs %d off-diagonal elements, got %d: %w",
			n, want, len(off), dynamo.ErrInvalidParameter)
	}
	m := make([]float64, n)
	copy(m, main)
	o := make([]complex128, want)
	copy(o, off)
	return Operator{Main: m, Off: o}, nil
}

// RealOperator is a convenience for operators with real off-diagonal elements.
func RealOperator(main, off []float64) (Operator, error) {
	var c []complex128
	if off != nil {
		c = make([]complex128, len(off))
		for i, v := range off {
			c[i] = complex(v, 0)
		}
	}
	return NewOperator(main, c)
}

// Levels returns the dimension of the operator.
func (o Operator) Levels() int { return len(o.Main) }

// OffIndex maps an upper-triangle position (i < j) to its index in Off.
func OffIndex(n, i, j int) int {
	return i*n - i*(i+1)/2 + (j - i - 1)
}

// At returns element (i, j).
func (o Operator) At(i, j int) complex128 {
	n := o.Levels()
	switch {
	case i == j:
		return complex(o.Main[i], 0)
	case i < j:
		return o.Off[OffIndex(n, i, j)]
	default:
		return cmplx.Conj(o.Off[OffIndex(n, j, i)])
	}
}

// Dense expands the operator into a full matrix.
func (o Operator) Dense() Matrix {
	n := o.Levels()
	m := NewMatrix(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			m.Set(i, j, o.At(i, j))
		}
	}
	return m
}

// Trace returns the sum of the diagonal.
func (o Operator) Trace() float64 {
	sum := 0.0
	for _, v := range o.Main {
		sum += v
	}
	return sum
}

// IsDensity reports whether the operator is a plausible density matrix:
// unit trace and non-negative populations within tol.
func (o Operator) IsDensity(tol float64) bool {
	if math.Abs(o.Trace()-1) > tol {
		return false
	}
	for _, v := range o.Main {
		if v < -tol {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (o Operator) Clone() Operator {
	c, _ := NewOperator(o.Main, o.Off)
	return c
}

// State packs the full matrix into interleaved real/imaginary parts,
// row-major, as stepped by the integrators.
func (o Operator) State() dynamo.State {
	n := o.Levels()
	s := make(dynamo.State, 2*n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := o.At(i, j)
			k := 2 * (i*n + j)
			s[k] = real(v)
			s[k+1] = imag(v)
		}
	}
	return s
}

// OperatorFromState reads an n-level operator back from a packed state,
// taking the diagonal and upper triangle.
func OperatorFromState(x dynamo.State, n int) Operator {
	o := Operator{
		Main: make([]float64, n),
		Off:  make([]complex128, n*(n-1)/2),
	}
	for i := 0; i < n; i++ {
		o.Main[i] = x[2*(i*n+i)]
		for j := i + 1; j < n; j++ {
			k := 2 * (i*n + j)
			o.Off[OffIndex(n, i, j)] = complex(x[k], x[k+1])
		}
	}
	return o
}
