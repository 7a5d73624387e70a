package qm

import (
	"github.com/san-kum/mbsim/internal/dynamo"
)

// Bloch is the right-hand side of the density-matrix equation
//
//	d rho/dt = -i/hbar [H0 - mu E, rho] + L(rho)
//
// for one description. The state is the packed form produced by
// Operator.State and the control holds the electric field E.
type Bloch struct {
	n     int
	h0    Matrix
	mu    Matrix
	relax Lindblad

	h, rho, d Matrix
}

// NewBloch precomputes the dense operators.
func NewBloch(d *Description) *Bloch {
	n := d.Levels
	return &Bloch{
		n:     n,
		h0:    d.Hamiltonian.Dense(),
		mu:    d.Dipole.Dense(),
		relax: d.Relaxation,
		h:     NewMatrix(n),
		rho:   NewMatrix(n),
		d:     NewMatrix(n),
	}
}

func (b *Bloch) StateDim() int   { return 2 * b.n * b.n }
func (b *Bloch) ControlDim() int { return 1 }

// Derive evaluates the right-hand side into dx. It is not safe for
// concurrent use; give every goroutine its own Bloch.
func (b *Bloch) Derive(x dynamo.State, u dynamo.Control, _ float64, dx dynamo.State) {
	e := 0.0
	if len(u) > 0 {
		e = u[0]
	}
	copy(b.h.Data, b.mu.Data)
	b.h.Scale(complex(-e, 0))
	b.h.Add(b.h0)

	b.rho.Load(x)
	Commutator(b.h, b.rho, b.d)
	b.d.Scale(complex(0, -1/HBar))
	b.relax.Apply(b.rho, b.d)
	b.d.Store(dx)
}

// Expectation returns Tr(mu rho) for a packed state. For Hermitian
// operators the result is real.
func (b *Bloch) Expectation(x dynamo.State) float64 {
	n := b.n
	sum := 0.0
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			m := b.mu.At(i, k)
			r := 2 * (k*n + i)
			sum += real(m)*x[r] - imag(m)*x[r+1]
		}
	}
	return sum
}
