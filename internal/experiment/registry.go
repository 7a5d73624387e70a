package experiment

import (
	"github.com/san-kum/mbsim/internal/solver"
	"github.com/san-kum/mbsim/internal/solver/cpu"
	"github.com/san-kum/mbsim/internal/writer"
)

// Registry bundles the solver and format registries an experiment
// dispatches through.
type Registry struct {
	Solvers *solver.Registry
	Formats *writer.Registry
}

// NewRegistry registers every built-in solver and format.
func NewRegistry() (*Registry, error) {
	solvers := solver.NewRegistry()
	if err := cpu.Register(solvers); err != nil {
		return nil, err
	}
	return &Registry{Solvers: solvers, Formats: writer.Default()}, nil
}

func (r *Registry) ListSolvers() []string { return r.Solvers.Names() }

func (r *Registry) ListFormats() []string { return r.Formats.Formats() }
