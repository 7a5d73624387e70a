package cpu

import (
	"fmt"

	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/scenario"
	"github.com/san-kum/mbsim/internal/solver"
)

// recorder samples one record into its result. col is the grid index of a
// point record and -1 for spatiotemporal records.
type recorder struct {
	every  int
	col    int
	obs    scenario.Observable
	result *solver.Result
}

func (s *fdtd) setupRecorders(origin float64) error {
	maxLevels := 0
	for _, l := range s.levels {
		maxLevels = max(maxLevels, l)
	}

	first, last := s.startStep, s.startStep+s.grid.NumSteps
	for _, rec := range s.scen.Records() {
		if need := rec.Observable.MaxLevel(); need > maxLevels {
			return fmt.Errorf("record %q needs %d levels, device has %d: %w", rec.Name, need, maxLevels, dynamo.ErrInvalidScenario)
		}
		r := &recorder{every: rec.Every(s.grid.Dt), col: -1, obs: rec.Observable}
		cols := s.grid.NumGridpoints
		if rec.Position != nil {
			col, err := s.grid.Index(*rec.Position, origin)
			if err != nil {
				return fmt.Errorf("record %q: %w", rec.Name, err)
			}
			r.col = col
			cols = 1
		}
		rows := last/r.every - first/r.every
		r.result = solver.NewResult(rec, rows, cols)
		s.recorders = append(s.recorders, r)
	}
	return nil
}

func (r *recorder) sample(s *fdtd) {
	if r.col >= 0 {
		re, im := s.observe(r.obs, r.col)
		r.result.Real = append(r.result.Real, re)
		if r.result.Imag != nil {
			r.result.Imag = append(r.result.Imag, im)
		}
		return
	}
	for i := 0; i < s.grid.NumGridpoints; i++ {
		re, im := s.observe(r.obs, i)
		r.result.Real = append(r.result.Real, re)
		if r.result.Imag != nil {
			r.result.Imag = append(r.result.Imag, im)
		}
	}
}

// observe evaluates an observable at grid index i. Density observables
// read zero on passive nodes.
func (s *fdtd) observe(obs scenario.Observable, i int) (float64, float64) {
	switch obs.Quantity {
	case scenario.Electric:
		return s.e[i], 0
	case scenario.Magnetic:
		return s.h[i], 0
	case scenario.Polarization:
		return s.p[i], 0
	}

	c := s.cells[i]
	n := s.levels[i]
	if c == nil || obs.I >= n || obs.J >= n {
		return 0, 0
	}
	at := func(a, b int) (float64, float64) {
		k := 2 * (a*n + b)
		return c.rho[k], c.rho[k+1]
	}
	if obs.Quantity == scenario.Inversion {
		hi, _ := at(obs.J, obs.J)
		lo, _ := at(obs.I, obs.I)
		return hi - lo, 0
	}
	return at(obs.I, obs.J)
}

func (s *fdtd) collect() *solver.ResultSet {
	rs := &solver.ResultSet{
		Device:   s.devName,
		Scenario: s.scen.Name,
		Solver:   s.v.name,
		Elapsed:  s.Elapsed(),
		Grid:     s.grid,
		EndTime:  s.scen.EndTime,
		Length:   s.length,
	}
	for _, r := range s.recorders {
		rs.Results = append(rs.Results, r.result)
	}
	return rs
}
