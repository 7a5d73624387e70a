package cpu

import (
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/scenario"
)

// advance performs one full time step ending at absolute step abs.
// Callers hold s.mu.
func (s *fdtd) advance(abs int) {
	n := s.grid.NumGridpoints
	dx, dt := s.grid.Dx, s.grid.Dt
	t := float64(abs-1) * dt

	for i := 0; i < n-1; i++ {
		s.h[i] = s.da[i]*s.h[i] - s.db[i]*(s.e[i+1]-s.e[i])/dx
	}

	if s.v.integrator != "" {
		s.stepMatter(t, dt)
	}

	// end nodes stay fixed unless a source drives them
	for i := 1; i < n-1; i++ {
		dp := s.overlap[i] * (s.pNext[i] - s.p[i]) / dt
		s.e[i] = s.ca[i]*s.e[i] - s.cb[i]*((s.h[i]-s.h[i-1])/dx+dp)
	}
	s.p, s.pNext = s.pNext, s.p

	tNext := float64(abs) * dt
	for _, src := range s.sources {
		v := src.exc.Value(tNext)
		if src.mode == scenario.HardSource {
			s.e[src.idx] = v
		} else {
			s.e[src.idx] += v
		}
	}

	s.step = abs
	for _, r := range s.recorders {
		if abs%r.every == 0 {
			r.sample(s)
		}
	}
}

// stepMatter advances every active cell from t to t+dt in the field of the
// current step and writes the resulting polarization to pNext.
func (s *fdtd) stepMatter(t, dt float64) {
	dynamo.ParallelFor(len(s.cells), minChunk, func(start, end int) {
		for i := start; i < end; i++ {
			c := s.cells[i]
			if c == nil {
				s.pNext[i] = s.p[i]
				continue
			}
			c.u[0] = s.e[i]
			c.integ.Step(c.bloch, c.rho, c.u, t, dt)
			s.pNext[i] = c.density * c.bloch.Expectation(c.rho)
		}
	})
}
