package viz

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/mbsim/internal/qm"
	"github.com/san-kum/mbsim/internal/solver"
)

type fakeSolver struct {
	mu     sync.Mutex
	status solver.Status
	data   *solver.SimData
}

func (f *fakeSolver) Name() string { return "cpu-fdtd-2lvl-rk4" }

func (f *fakeSolver) Status() solver.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeSolver) SimData() (*solver.SimData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		return nil, errors.New("not started")
	}
	return f.data.Clone(), nil
}

func (f *fakeSolver) set(status solver.Status, data *solver.SimData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.data = status, data
}

func snapshot(step int, t float64) *solver.SimData {
	ground, _ := qm.NewOperator([]float64{1, 0}, nil)
	excited, _ := qm.NewOperator([]float64{0, 1}, nil)
	return &solver.SimData{
		Step:    step,
		Time:    t,
		E:       []float64{0, 1, 0, -1, 0},
		H:       make([]float64, 5),
		P:       make([]float64, 5),
		Density: []qm.Operator{{}, ground, excited, ground, {}},
	}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestMonitorBeforeStart(t *testing.T) {
	f := &fakeSolver{}
	m := NewMonitor(f, 0, 1e-12, time.Millisecond, nil)

	next, cmd := m.Update(TickMsg(time.Now()))
	m = next.(Monitor)
	if m.Progress() != 0 {
		t.Errorf("progress = %g before start", m.Progress())
	}
	if cmd == nil {
		t.Fatal("expected another tick")
	}
	if !strings.Contains(m.View(), "cpu-fdtd-2lvl-rk4") {
		t.Error("view should name the solver")
	}
}

func TestMonitorTracksProgress(t *testing.T) {
	f := &fakeSolver{}
	f.set(solver.Running, snapshot(50, 0.25e-12))
	m := NewMonitor(f, 0, 1e-12, time.Millisecond, nil)

	next, cmd := m.Update(TickMsg(time.Now()))
	m = next.(Monitor)
	if got := m.Progress(); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("progress = %g, want 0.25", got)
	}
	if isQuit(cmd) {
		t.Error("monitor should keep polling while running")
	}
	view := m.View()
	for _, want := range []string{"running", "50", "E (V/m)", "inversion"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestMonitorQuitsWhenDone(t *testing.T) {
	for _, status := range []solver.Status{solver.Completed, solver.Failed} {
		f := &fakeSolver{}
		f.set(status, snapshot(200, 1e-12))
		m := NewMonitor(f, 0, 1e-12, time.Millisecond, nil)

		next, cmd := m.Update(TickMsg(time.Now()))
		if !isQuit(cmd) {
			t.Errorf("%v: expected quit", status)
		}
		if got := next.(Monitor).Progress(); got != 1 {
			t.Errorf("%v: progress = %g, want 1", status, got)
		}
	}
}

func TestMonitorCancelKey(t *testing.T) {
	cancelled := false
	m := NewMonitor(&fakeSolver{}, 0, 1, time.Millisecond, func() { cancelled = true })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !cancelled || !isQuit(cmd) {
		t.Errorf("q should cancel and quit (cancelled=%v)", cancelled)
	}
}

func TestInversion(t *testing.T) {
	inv := inversion(snapshot(0, 0))
	if inv[1] != -1 || inv[2] != 1 {
		t.Errorf("inversion = %v", inv)
	}
	if !math.IsNaN(inv[0]) {
		t.Error("passive points should be NaN")
	}
}

func TestCanvasProfile(t *testing.T) {
	c := NewCanvas(4, 1)
	c.Profile([]float64{1, 1, 1, 1}, -1, 1)
	// constant hi lights the top sub-row of every cell
	for _, r := range c.Grid[0] {
		if r != blank|0x1|0x8 {
			t.Errorf("cell = %U, want top row lit", r)
		}
	}

	c.Profile([]float64{-1, -1}, -1, 1)
	for _, r := range c.Grid[0] {
		if r != blank|0x40|0x80 {
			t.Errorf("cell = %U, want bottom row lit", r)
		}
	}

	c.Profile(nil, -1, 1)
	if strings.Trim(c.String(), string(rune(blank))+"\n") != "" {
		t.Error("empty profile should leave the canvas blank")
	}
}

func TestMonitorProgressFromStart(t *testing.T) {
	f := &fakeSolver{}
	f.set(solver.Running, snapshot(150, 1.5e-12))
	m := NewMonitor(f, 1e-12, 1e-12, time.Millisecond, nil)
	next, _ := m.Update(TickMsg(time.Now()))
	if got := next.(Monitor).Progress(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("progress = %g, want 0.5", got)
	}
}
