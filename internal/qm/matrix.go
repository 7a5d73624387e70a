package qm

import "github.com/san-kum/mbsim/internal/dynamo"

// Matrix is a dense row-major complex n*n matrix. It is the working form
// of the Bloch right-hand side; Operator is the storage form.
type Matrix struct {
	N    int
	Data []complex128
}

func NewMatrix(n int) Matrix {
	return Matrix{N: n, Data: make([]complex128, n*n)}
}

func (m Matrix) At(i, j int) complex128 { return m.Data[i*m.N+j] }

func (m Matrix) Set(i, j int, v complex128) { m.Data[i*m.N+j] = v }

// Add sets m = m + o.
func (m Matrix) Add(o Matrix) {
	for k, v := range o.Data {
		m.Data[k] += v
	}
}

// Scale multiplies every element by c.
func (m Matrix) Scale(c complex128) {
	for k := range m.Data {
		m.Data[k] *= c
	}
}

// Load reads a packed state as produced by Operator.State.
func (m Matrix) Load(x dynamo.State) {
	for k := range m.Data {
		m.Data[k] = complex(x[2*k], x[2*k+1])
	}
}

// Store writes m into a packed state.
func (m Matrix) Store(x dynamo.State) {
	for k, v := range m.Data {
		x[2*k] = real(v)
		x[2*k+1] = imag(v)
	}
}

// Commutator writes ab - ba into out. out must not alias a or b.
func Commutator(a, b, out Matrix) {
	n := a.N
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var c complex128
			for k := 0; k < n; k++ {
				c += a.Data[i*n+k]*b.Data[k*n+j] - b.Data[i*n+k]*a.Data[k*n+j]
			}
			out.Data[i*n+j] = c
		}
	}
}
