package integrators

import "github.com/san-kum/mbsim/internal/dynamo"

// RK4 is the classical fourth-order Runge-Kutta method. It keeps its stage
// buffers between calls, so one instance must not be shared across goroutines.
type RK4 struct {
	k   [4]dynamo.State
	tmp dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) resize(n int) {
	if len(r.tmp) == n {
		return
	}
	for s := range r.k {
		r.k[s] = make(dynamo.State, n)
	}
	r.tmp = make(dynamo.State, n)
}

// stage evaluates the slope at x + h*prev into k.
func (r *RK4) stage(dyn dynamo.System, x, prev, k dynamo.State, u dynamo.Control, t, h float64) {
	for i := range x {
		r.tmp[i] = x[i] + h*prev[i]
	}
	dyn.Derive(r.tmp, u, t, k)
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) {
	r.resize(len(x))
	k1, k2, k3, k4 := r.k[0], r.k[1], r.k[2], r.k[3]

	dyn.Derive(x, u, t, k1)
	r.stage(dyn, x, k1, k2, u, t+dt/2, dt/2)
	r.stage(dyn, x, k2, k3, u, t+dt/2, dt/2)
	r.stage(dyn, x, k3, k4, u, t+dt, dt)

	dt6 := dt / 6
	for i := range x {
		x[i] += dt6 * (k1[i] + 2*k2[i] + 2*k3[i] + k4[i])
	}
}
