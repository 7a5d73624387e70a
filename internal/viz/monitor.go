package viz

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/mbsim/internal/solver"
)

const (
	DefaultInterval = 200 * time.Millisecond

	graphWidth    = 60
	graphHeight   = 8
	profileHeight = 4
)

// Polled is the part of a solver the monitor needs.
type Polled interface {
	Name() string
	SimData() (*solver.SimData, error)
	Status() solver.Status
}

type TickMsg time.Time

// Monitor shows the progress of one run.
type Monitor struct {
	sol      Polled
	start    float64
	duration float64
	interval time.Duration
	cancel   context.CancelFunc

	bar     progress.Model
	canvas  *Canvas
	data    *solver.SimData
	status  solver.Status
	started time.Time
	err     error
}

// NewMonitor polls sol every interval. The run covers duration seconds of
// simulated time from start. cancel, if set, is called when the user quits.
func NewMonitor(sol Polled, start, duration float64, interval time.Duration, cancel context.CancelFunc) Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return Monitor{
		sol:      sol,
		start:    start,
		duration: duration,
		interval: interval,
		cancel:   cancel,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(graphWidth)),
		canvas:   NewCanvas(graphWidth/2, profileHeight),
		started:  time.Now(),
	}
}

func (m Monitor) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Monitor) Init() tea.Cmd {
	return m.tick()
}

func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case TickMsg:
		m.poll()
		if m.status == solver.Completed || m.status == solver.Failed {
			return m, tea.Quit
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Monitor) poll() {
	m.status = m.sol.Status()
	data, err := m.sol.SimData()
	if err != nil {
		// not started yet
		return
	}
	m.data = data
	m.canvas.Profile(inversion(data), -1, 1)
}

// Progress is the fraction of simulated time covered, in [0, 1].
func (m Monitor) Progress() float64 {
	if m.data == nil || m.duration <= 0 {
		return 0
	}
	return min(1, max(0, (m.data.Time-m.start)/m.duration))
}

func (m Monitor) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.sol.Name()) + "  " + statusBadge(m.status.String()) + "\n\n")
	b.WriteString(m.bar.ViewAs(m.Progress()) + "\n\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	if m.data != nil {
		row("step", fmt.Sprintf("%d", m.data.Step))
		row("time", fmt.Sprintf("%.4e / %.4e s", m.data.Time, m.start+m.duration))
	}
	row("wall", time.Since(m.started).Truncate(100*time.Millisecond).String())

	if m.data != nil && len(m.data.E) > 1 {
		chart := asciigraph.Plot(m.data.E,
			asciigraph.Height(graphHeight),
			asciigraph.Width(graphWidth),
			asciigraph.Caption("E (V/m)"))
		b.WriteString("\n" + graphStyle.Render(chart) + "\n")
		b.WriteString("\n" + hintStyle.Render("inversion") + "\n" + m.canvas.String())
	}

	b.WriteString("\n" + hintStyle.Render("q: cancel"))
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, b.String()))
}

// inversion is rho_top - rho_bottom at each point, NaN on passive points.
func inversion(d *solver.SimData) []float64 {
	out := make([]float64, len(d.Density))
	for i, rho := range d.Density {
		n := rho.Levels()
		if n == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = rho.Main[n-1] - rho.Main[0]
	}
	return out
}

// Run shows the monitor until the solver finishes or the user quits.
func Run(ctx context.Context, sol Polled, start, duration float64, cancel context.CancelFunc) error {
	p := tea.NewProgram(NewMonitor(sol, start, duration, DefaultInterval, cancel), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
