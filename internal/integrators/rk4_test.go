package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/mbsim/internal/dynamo"
)

type oscillator struct{}

func (s *oscillator) Derive(x dynamo.State, u dynamo.Control, t float64, dx dynamo.State) {
	dx[0], dx[1] = x[1], -x[0]
}

func (s *oscillator) StateDim() int   { return 2 }
func (s *oscillator) ControlDim() int { return 0 }

// decay is dx/dt = -g x + u.
type decay struct{ g float64 }

func (d *decay) Derive(x dynamo.State, u dynamo.Control, t float64, dx dynamo.State) {
	dx[0] = -d.g*x[0] + u[0]
}

func (d *decay) StateDim() int   { return 1 }
func (d *decay) ControlDim() int { return 1 }

func TestRK4Accuracy(t *testing.T) {
	dyn := &oscillator{}
	integ := NewRK4()

	x := dynamo.State{1.0, 0.0}
	u := dynamo.Control{}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		integ.Step(dyn, x, u, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-8 {
		t.Errorf("position error too large: got %.10f, expected %.10f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-8 {
		t.Errorf("velocity error too large: got %.10f, expected %.10f", x[1], expectedV)
	}
}

func TestEulerFirstOrder(t *testing.T) {
	dyn := &decay{g: 1}
	integ := NewEuler()

	errAt := func(dt float64) float64 {
		x := dynamo.State{1}
		steps := int(math.Round(1 / dt))
		for i := 0; i < steps; i++ {
			integ.Step(dyn, x, dynamo.Control{0}, float64(i)*dt, dt)
		}
		return math.Abs(x[0] - math.Exp(-1))
	}

	ratio := errAt(0.01) / errAt(0.005)
	if ratio < 1.8 || ratio > 2.2 {
		t.Errorf("halving dt should halve the error, ratio = %.3f", ratio)
	}
}

func TestStepUsesControl(t *testing.T) {
	dyn := &decay{g: 0}
	for _, name := range []string{"euler", "rk4"} {
		integ, err := New(name)
		if err != nil {
			t.Fatal(err)
		}
		x := dynamo.State{0}
		integ.Step(dyn, x, dynamo.Control{2}, 0, 0.5)
		if math.Abs(x[0]-1) > 1e-12 {
			t.Errorf("%s: constant drive gave %g, want 1", name, x[0])
		}
	}
}

func TestStepReusesBuffers(t *testing.T) {
	dyn := &oscillator{}
	for _, integ := range []dynamo.Integrator{NewEuler(), NewRK4()} {
		x := dynamo.State{1, 0}
		integ.Step(dyn, x, nil, 0, 0.01)
		allocs := testing.AllocsPerRun(100, func() {
			integ.Step(dyn, x, nil, 0, 0.01)
		})
		if allocs != 0 {
			t.Errorf("%T: %v allocations per step, want 0", integ, allocs)
		}
	}
}

func TestRK4OneStep(t *testing.T) {
	// One step of dx/dt = -x reproduces the fourth-order Taylor polynomial.
	x := dynamo.State{1}
	NewRK4().Step(&decay{g: 1}, x, dynamo.Control{0}, 0, 0.1)
	h := 0.1
	want := 1 - h + h*h/2 - h*h*h/6 + h*h*h*h/24
	if math.Abs(x[0]-want) > 1e-15 {
		t.Errorf("x = %.17g, want %.17g", x[0], want)
	}
}

func TestNewUnknown(t *testing.T) {
	if _, err := New("verlet"); !errors.Is(err, dynamo.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
