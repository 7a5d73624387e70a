package solver

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/mbsim/internal/device"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/material"
	"github.com/san-kum/mbsim/internal/qm"
	"github.com/san-kum/mbsim/internal/scenario"
)

type stubSolver struct {
	Lifecycle
}

func (s *stubSolver) Name() string { return "stub" }

func (s *stubSolver) Run(ctx context.Context) error {
	if err := s.Begin(); err != nil {
		return err
	}
	s.Finish(ctx.Err())
	return s.Err()
}

func (s *stubSolver) Results() (*ResultSet, error) {
	if err := s.RequireCompleted(); err != nil {
		return nil, err
	}
	return &ResultSet{Solver: "stub"}, nil
}

func (s *stubSolver) SimData() (*SimData, error) {
	if err := s.RequireStarted(); err != nil {
		return nil, err
	}
	return &SimData{Version: SimDataVersion}, nil
}

func fixture(t *testing.T) (*device.Device, *scenario.Scenario) {
	t.Helper()
	lib := material.NewLibrary()
	vac, _ := material.NewVacuum("Vacuum")
	if err := lib.Add(vac); err != nil {
		t.Fatal(err)
	}
	r, err := device.NewRegion(lib, "all", "Vacuum", 0, 1e-6)
	if err != nil {
		t.Fatal(err)
	}
	dev := device.New("dev")
	if err := dev.AddRegion(r); err != nil {
		t.Fatal(err)
	}
	rho, _ := qm.RealOperator([]float64{1, 0}, nil)
	scen, err := scenario.New("scen", 11, 1e-15, scenario.ConstDensity{Rho: rho}, scenario.ConstField{})
	if err != nil {
		t.Fatal(err)
	}
	return dev, scen
}

func TestLifecycle(t *testing.T) {
	s := &stubSolver{}
	if s.Status() != Configured {
		t.Fatalf("initial status = %s", s.Status())
	}
	if _, err := s.Results(); !errors.Is(err, dynamo.ErrInvalidState) {
		t.Errorf("Results before run: expected ErrInvalidState, got %v", err)
	}
	if _, err := s.SimData(); !errors.Is(err, dynamo.ErrInvalidState) {
		t.Errorf("SimData before run: expected ErrInvalidState, got %v", err)
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Status() != Completed {
		t.Errorf("status = %s, want completed", s.Status())
	}
	if err := s.Run(context.Background()); !errors.Is(err, dynamo.ErrInvalidState) {
		t.Errorf("second Run: expected ErrInvalidState, got %v", err)
	}

	a, err := s.Results()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := s.Results()
	if a.Solver != b.Solver {
		t.Error("Results should be idempotent")
	}
}

func TestLifecycleCancelled(t *testing.T) {
	s := &stubSolver{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if s.Status() != Failed {
		t.Errorf("status = %s, want failed", s.Status())
	}
	if _, err := s.SimData(); err != nil {
		t.Errorf("SimData after failure: %v", err)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	factory := func(dev *device.Device, scen *scenario.Scenario) (Solver, error) {
		return &stubSolver{}, nil
	}
	if err := reg.Register("stub", factory); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register("stub", factory); !errors.Is(err, dynamo.ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}

	dev, scen := fixture(t)
	_, err := reg.Create("gpu-magic", dev, scen)
	if !errors.Is(err, dynamo.ErrUnknownSolver) || !errors.Is(err, dynamo.ErrDispatch) {
		t.Errorf("expected ErrUnknownSolver, got %v", err)
	}
	if dev.Frozen() {
		t.Error("failed dispatch must not freeze the device")
	}

	s, err := reg.Create("stub", dev, scen)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != "stub" || !dev.Frozen() {
		t.Error("successful dispatch should freeze the device")
	}
	if got := reg.Names(); len(got) != 1 || got[0] != "stub" {
		t.Errorf("Names() = %v", got)
	}
}

func TestResultAccessors(t *testing.T) {
	rec, _ := scenario.NewRecord("d12", 0)
	r := NewResult(rec, 2, 3)
	r.Real = append(r.Real, 1, 2, 3, 4, 5, 6)
	r.Imag = append(r.Imag, 0, 0, 0, 0, 0, 0)
	if !r.Complex() {
		t.Error("coherence record should be complex")
	}
	if got := r.Row(1); got[0] != 4 || got[2] != 6 {
		t.Errorf("Row(1) = %v", got)
	}
	if got := r.Column(2); got[0] != 3 || got[1] != 6 {
		t.Errorf("Column(2) = %v", got)
	}

	rs := &ResultSet{Results: []*Result{r}}
	if _, err := rs.Get("d12"); err != nil {
		t.Error(err)
	}
	if _, err := rs.Get("e"); !errors.Is(err, dynamo.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSimDataCloneIsDeep(t *testing.T) {
	rho, _ := qm.RealOperator([]float64{1, 0}, nil)
	d := &SimData{E: []float64{1, 2}, Density: []qm.Operator{rho}}
	c := d.Clone()
	c.E[0] = 9
	c.Density[0].Main[0] = 0
	if d.E[0] != 1 || d.Density[0].Main[0] != 1 {
		t.Error("Clone shares storage with the original")
	}
}
