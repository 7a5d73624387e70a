package dynamo

import (
	"math"
)

// State is a flat real vector. Complex density matrices are stored as
// interleaved real/imaginary parts so the generic integrators can step them.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Control is the external drive applied during a step. For the Bloch
// equations it holds the local electric field.
type Control []float64

// System is an ODE right-hand side dX/dt = f(X, u, t). Derive writes the
// derivative into dx, which has the length of x.
type System interface {
	Derive(x State, u Control, t float64, dx State)
	StateDim() int
	ControlDim() int
}

// Integrator advances a System by one fixed step, updating x in place.
type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64)
}
