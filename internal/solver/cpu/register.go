package cpu

import (
	"github.com/san-kum/mbsim/internal/device"
	"github.com/san-kum/mbsim/internal/scenario"
	"github.com/san-kum/mbsim/internal/solver"
)

const (
	NameNoop      = "cpu-fdtd-noop"
	Name2LvlRK4   = "cpu-fdtd-2lvl-rk4"
	NameNLvlRK4   = "cpu-fdtd-nlvl-rk4"
	NameNLvlEuler = "cpu-fdtd-nlvl-euler"
)

// variant selects the matter model of a solver.
type variant struct {
	name string
	// integrator is empty for solvers without matter dynamics.
	integrator string
	// levels restricts active media to a fixed level count; 0 accepts any.
	levels int
}

var variants = []variant{
	{name: NameNoop},
	{name: Name2LvlRK4, integrator: "rk4", levels: 2},
	{name: NameNLvlRK4, integrator: "rk4"},
	{name: NameNLvlEuler, integrator: "euler"},
}

// Register adds the CPU solvers to r.
func Register(r *solver.Registry) error {
	for _, v := range variants {
		err := r.Register(v.name, func(dev *device.Device, scen *scenario.Scenario) (solver.Solver, error) {
			s, err := newFDTD(v, dev, scen)
			if err != nil {
				return nil, err
			}
			return s, nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
