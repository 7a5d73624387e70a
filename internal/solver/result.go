package solver

import (
	"fmt"
	"time"

	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/qm"
	"github.com/san-kum/mbsim/internal/scenario"
)

// Result is the trace of one record, stored row-major with one row per
// sample. Cols is 1 for point records and the number of grid points
// otherwise. Imag is nil for real observables.
type Result struct {
	Name       string
	Observable scenario.Observable
	Position   *float64
	Interval   float64
	Rows       int
	Cols       int
	Real       []float64
	Imag       []float64
}

// NewResult preallocates storage for rows samples.
func NewResult(rec scenario.Record, rows, cols int) *Result {
	r := &Result{
		Name:       rec.Name,
		Observable: rec.Observable,
		Position:   rec.Position,
		Interval:   rec.Interval,
		Rows:       rows,
		Cols:       cols,
		Real:       make([]float64, 0, rows*cols),
	}
	if rec.Observable.Complex() {
		r.Imag = make([]float64, 0, rows*cols)
	}
	return r
}

func (r *Result) Complex() bool { return r.Imag != nil }

// Row returns the real part of sample i.
func (r *Result) Row(i int) []float64 {
	return r.Real[i*r.Cols : (i+1)*r.Cols]
}

// Column returns the time trace at column j.
func (r *Result) Column(j int) []float64 {
	out := make([]float64, r.Rows)
	for i := range out {
		out[i] = r.Real[i*r.Cols+j]
	}
	return out
}

// ResultSet is everything a completed run produced.
type ResultSet struct {
	Device   string
	Scenario string
	Solver   string
	Elapsed  time.Duration
	Grid     scenario.Grid
	EndTime  float64
	Length   float64
	Results  []*Result
}

// Get finds a result by record name.
func (rs *ResultSet) Get(name string) (*Result, error) {
	for _, r := range rs.Results {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("result %q: %w", name, dynamo.ErrNotFound)
}

// SimDataVersion is bumped whenever the layout of SimData changes.
const SimDataVersion = 1

// SimData is the complete solver state at one step: everything needed to
// resume the run.
type SimData struct {
	Version int
	Step    int
	Time    float64
	Dt      float64
	Dx      float64
	E       []float64
	H       []float64
	P       []float64
	Density []qm.Operator
}

func (d *SimData) Clone() *SimData {
	c := *d
	c.E = append([]float64(nil), d.E...)
	c.H = append([]float64(nil), d.H...)
	c.P = append([]float64(nil), d.P...)
	if d.Density != nil {
		c.Density = make([]qm.Operator, len(d.Density))
		for i, rho := range d.Density {
			c.Density[i] = rho.Clone()
		}
	}
	return &c
}
