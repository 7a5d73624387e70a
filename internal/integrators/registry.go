package integrators

import (
	"fmt"

	"github.com/san-kum/mbsim/internal/dynamo"
)

type factory func() dynamo.Integrator

var registry = map[string]factory{
	"euler": func() dynamo.Integrator { return NewEuler() },
	"rk4":   func() dynamo.Integrator { return NewRK4() },
}

// New returns a fresh integrator instance by name.
func New(name string) (dynamo.Integrator, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("integrator %q: %w", name, dynamo.ErrNotFound)
	}
	return f(), nil
}
