package integrators

import "github.com/san-kum/mbsim/internal/dynamo"

// Euler is the explicit first-order method. It is only stable for step
// sizes well below the fastest decay time of the system.
type Euler struct {
	dx dynamo.State
}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) {
	if len(e.dx) != len(x) {
		e.dx = make(dynamo.State, len(x))
	}
	dyn.Derive(x, u, t, e.dx)
	for i := range x {
		x[i] += dt * e.dx[i]
	}
}
