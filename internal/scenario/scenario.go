package scenario

import (
	"fmt"
	"math"

	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/qm"
)

// DefaultCourant is the Courant number used unless overridden.
const DefaultCourant = 0.5

// Scenario is the run configuration: grid resolution, simulated time,
// initial conditions, sources and records.
type Scenario struct {
	Name          string
	NumGridpoints int
	EndTime       float64

	density      DensityInit
	electric     FieldInit
	magnetic     FieldInit
	polarization FieldInit

	sources []Source
	records []Record

	courant   float64
	startTime float64
}

func New(name string, numGridpoints int, endTime float64, density DensityInit, electric FieldInit) (*Scenario, error) {
	if numGridpoints <= 1 {
		return nil, fmt.Errorf("scenario %q: need more than one grid point, got %d: %w", name, numGridpoints, dynamo.ErrInvalidScenario)
	}
	if !(endTime > 0) {
		return nil, fmt.Errorf("scenario %q: end time %g not positive: %w", name, endTime, dynamo.ErrInvalidScenario)
	}
	if density == nil || electric == nil {
		return nil, fmt.Errorf("scenario %q: missing initial condition: %w", name, dynamo.ErrInvalidScenario)
	}
	return &Scenario{
		Name:          name,
		NumGridpoints: numGridpoints,
		EndTime:       endTime,
		density:       density,
		electric:      electric,
		magnetic:      ConstField{},
		polarization:  ConstField{},
		courant:       DefaultCourant,
	}, nil
}

func (s *Scenario) DensityInit() DensityInit    { return s.density }
func (s *Scenario) ElectricInit() FieldInit     { return s.electric }
func (s *Scenario) MagneticInit() FieldInit     { return s.magnetic }
func (s *Scenario) PolarizationInit() FieldInit { return s.polarization }

func (s *Scenario) SetDensityInit(init DensityInit) error {
	if init == nil {
		return fmt.Errorf("scenario %q: nil density init: %w", s.Name, dynamo.ErrInvalidScenario)
	}
	s.density = init
	return nil
}

func (s *Scenario) SetElectricInit(init FieldInit) error {
	if init == nil {
		return fmt.Errorf("scenario %q: nil electric init: %w", s.Name, dynamo.ErrInvalidScenario)
	}
	s.electric = init
	return nil
}

func (s *Scenario) SetMagneticInit(init FieldInit) error {
	if init == nil {
		return fmt.Errorf("scenario %q: nil magnetic init: %w", s.Name, dynamo.ErrInvalidScenario)
	}
	s.magnetic = init
	return nil
}

func (s *Scenario) SetPolarizationInit(init FieldInit) error {
	if init == nil {
		return fmt.Errorf("scenario %q: nil polarization init: %w", s.Name, dynamo.ErrInvalidScenario)
	}
	s.polarization = init
	return nil
}

func (s *Scenario) AddRecord(r Record) error {
	for _, existing := range s.records {
		if existing.Name == r.Name {
			return fmt.Errorf("scenario %q: record %q: %w", s.Name, r.Name, dynamo.ErrDuplicateName)
		}
	}
	s.records = append(s.records, r)
	return nil
}

func (s *Scenario) AddSource(src Source) error {
	for _, existing := range s.sources {
		if existing.Name == src.Name {
			return fmt.Errorf("scenario %q: source %q: %w", s.Name, src.Name, dynamo.ErrDuplicateName)
		}
	}
	if src.Waveform == nil {
		return fmt.Errorf("scenario %q: source %q has no waveform: %w", s.Name, src.Name, dynamo.ErrInvalidParameter)
	}
	s.sources = append(s.sources, src)
	return nil
}

func (s *Scenario) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Scenario) Sources() []Source {
	out := make([]Source, len(s.sources))
	copy(out, s.sources)
	return out
}

func (s *Scenario) Courant() float64 { return s.courant }

func (s *Scenario) SetCourantNumber(c float64) error {
	if !(c > 0 && c <= 1) {
		return fmt.Errorf("courant number %g outside (0, 1]: %w", c, dynamo.ErrInvalidParameter)
	}
	s.courant = c
	return nil
}

func (s *Scenario) StartTime() float64 { return s.startTime }

// SetStartTime sets the simulated time at which a resumed run begins.
func (s *Scenario) SetStartTime(t float64) error {
	if t < 0 || math.IsNaN(t) {
		return fmt.Errorf("start time %g negative: %w", t, dynamo.ErrInvalidParameter)
	}
	s.startTime = t
	return nil
}

// Grid is the discretisation derived from a scenario and a device length.
type Grid struct {
	Dx            float64
	Dt            float64
	NumSteps      int
	NumGridpoints int
}

// Discretize derives grid spacing, time step and step count.
func (s *Scenario) Discretize(length float64) (Grid, error) {
	if s.NumGridpoints <= 1 {
		return Grid{}, fmt.Errorf("scenario %q: need more than one grid point: %w", s.Name, dynamo.ErrInvalidScenario)
	}
	if !(length > 0) {
		return Grid{}, fmt.Errorf("scenario %q: device length %g not positive: %w", s.Name, length, dynamo.ErrInvalidScenario)
	}
	dx := length / float64(s.NumGridpoints-1)
	dt := s.courant * dx / qm.C0
	steps := int(math.Round(s.EndTime / dt))
	if steps == 0 {
		return Grid{}, fmt.Errorf("scenario %q: end time %g shorter than half a time step %g: %w", s.Name, s.EndTime, dt, dynamo.ErrInvalidScenario)
	}
	return Grid{Dx: dx, Dt: dt, NumSteps: steps, NumGridpoints: s.NumGridpoints}, nil
}

// StartStep returns the absolute index of the first step of a resumed run.
func (g Grid) StartStep(startTime float64) int {
	return int(math.Round(startTime / g.Dt))
}

// Index returns the grid node nearest to position x. Positions outside the
// device are rejected.
func (g Grid) Index(x, origin float64) (int, error) {
	f := (x - origin) / g.Dx
	last := float64(g.NumGridpoints - 1)
	if math.IsNaN(f) || f < -gridTol || f > last+gridTol {
		return 0, fmt.Errorf("position %g outside device [%g, %g]: %w", x, origin, origin+last*g.Dx, dynamo.ErrInvalidParameter)
	}
	return min(max(int(math.Round(f)), 0), g.NumGridpoints-1), nil
}

// gridTol is the relative tolerance for comparing grid quantities.
const gridTol = 1e-9

func sameSize(a, b float64) bool {
	return math.Abs(a-b) <= gridTol*math.Max(math.Abs(a), math.Abs(b))
}

// matches reports whether a checkpoint taken with spacing dx and step dt
// fits g. Zero values are unknown and always match.
func (g Grid) matches(dx, dt float64) bool {
	return (dx == 0 || sameSize(dx, g.Dx)) && (dt == 0 || sameSize(dt, g.Dt))
}

// CheckResume verifies that every checkpoint initial condition covers
// exactly the grid points of g and was taken on the same grid.
func (s *Scenario) CheckResume(g Grid) error {
	n := g.NumGridpoints
	if rho, ok := s.density.(AutosaveDensity); ok {
		if len(rho.Rho) != n {
			return fmt.Errorf("scenario %q: checkpoint density has %d points, grid has %d: %w", s.Name, len(rho.Rho), n, dynamo.ErrInvalidScenario)
		}
		if !g.matches(rho.Dx, rho.Dt) {
			return fmt.Errorf("scenario %q: checkpoint density taken with dx %g dt %g, grid has dx %g dt %g: %w",
				s.Name, rho.Dx, rho.Dt, g.Dx, g.Dt, dynamo.ErrInvalidScenario)
		}
	}
	fields := []struct {
		name string
		init FieldInit
	}{
		{"e", s.electric},
		{"h", s.magnetic},
		{"p", s.polarization},
	}
	for _, f := range fields {
		v, ok := f.init.(AutosaveField)
		if !ok {
			continue
		}
		if len(v.Values) != n {
			return fmt.Errorf("scenario %q: checkpoint field %s has %d points, grid has %d: %w", s.Name, f.name, len(v.Values), n, dynamo.ErrInvalidScenario)
		}
		if !g.matches(v.Dx, v.Dt) {
			return fmt.Errorf("scenario %q: checkpoint field %s taken with dx %g dt %g, grid has dx %g dt %g: %w",
				s.Name, f.name, v.Dx, v.Dt, g.Dx, g.Dt, dynamo.ErrInvalidScenario)
		}
	}
	return nil
}
