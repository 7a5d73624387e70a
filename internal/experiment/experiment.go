package experiment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/san-kum/mbsim/internal/config"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/scenario"
	"github.com/san-kum/mbsim/internal/solver"
	"github.com/san-kum/mbsim/internal/storage"
	"github.com/san-kum/mbsim/internal/viz"
	"github.com/san-kum/mbsim/internal/writer"
)

type Options struct {
	Experiment *config.Experiment
	Registry   *Registry
	// Catalog is optional; when set every run is recorded in it.
	Catalog *storage.Store
	// Monitor shows the live terminal monitor while the solver runs.
	Monitor bool
	Logger  zerolog.Logger
}

// Outcome describes a finished run.
type Outcome struct {
	RunID    string
	Output   string
	Autosave string
	Results  *solver.ResultSet
	Setup    *config.Setup
}

// Run builds the experiment, solves it and writes the results, and the
// final state if autosave is enabled.
func Run(ctx context.Context, opts Options) (*Outcome, error) {
	exp := opts.Experiment
	if exp == nil || opts.Registry == nil {
		return nil, fmt.Errorf("experiment without configuration: %w", dynamo.ErrInvalidParameter)
	}
	log := opts.Logger

	setup, err := exp.Build(opts.Registry.Formats)
	if err != nil {
		return nil, err
	}
	dev, scen := setup.Device, setup.Scenario

	w, err := opts.Registry.Formats.CreateWriter(exp.Format)
	if err != nil {
		return nil, err
	}
	grid, err := scen.Discretize(dev.Length())
	if err != nil {
		return nil, err
	}
	preflight(ctx, log, scen, grid)

	sol, err := opts.Registry.Solvers.Create(exp.Solver, dev, scen)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Output: filepath.Join(exp.OutputDir, writer.OutputName(dev.Name, scen.Name, w.Extension())),
		Setup:  setup,
	}
	if exp.Autosave {
		out.Autosave = filepath.Join(exp.OutputDir, writer.AutosaveName(dev.Name, scen.Name, w.Extension()))
	}
	run := storage.Run{
		Device:     dev.Name,
		Scenario:   scen.Name,
		Solver:     sol.Name(),
		Format:     w.Name(),
		Output:     out.Output,
		Autosave:   out.Autosave,
		Steps:      grid.NumSteps,
		Gridpoints: grid.NumGridpoints,
	}

	log.Info().
		Str("solver", sol.Name()).
		Str("device", dev.Name).
		Str("scenario", scen.Name).
		Int("gridpoints", grid.NumGridpoints).
		Int("steps", run.Steps).
		Float64("dt", grid.Dt).
		Msg("solver started")

	if err := solve(ctx, sol, scen.StartTime(), scen.EndTime, opts.Monitor); err != nil {
		log.Error().Err(err).Str("solver", sol.Name()).Dur("elapsed", sol.Elapsed()).Msg("solver failed")
		run.Status, run.Elapsed = sol.Status().String(), sol.Elapsed()
		catalog(opts.Catalog, log, run)
		return nil, err
	}
	log.Info().Str("solver", sol.Name()).Dur("elapsed", sol.Elapsed()).Msg("solver finished")

	rs, err := sol.Results()
	if err != nil {
		return nil, err
	}
	out.Results = rs

	if exp.OutputDir != "" {
		if err := os.MkdirAll(exp.OutputDir, 0755); err != nil {
			return nil, &dynamo.IOError{Op: "mkdir", Path: exp.OutputDir, Wrapped: err}
		}
	}
	if err := w.Write(out.Output, rs, dev, scen); err != nil {
		return nil, err
	}
	log.Info().Str("path", out.Output).Str("format", w.Name()).Msg("results written")

	if exp.Autosave {
		data, err := sol.SimData()
		if err != nil {
			return nil, err
		}
		if err := w.Autosave(out.Autosave, data, dev, scen); err != nil {
			return nil, err
		}
		log.Info().Str("path", out.Autosave).Float64("time", data.Time).Msg("checkpoint written")
	}

	run.Status, run.Elapsed = sol.Status().String(), sol.Elapsed()
	out.RunID = catalog(opts.Catalog, log, run)
	return out, nil
}

func solve(ctx context.Context, sol solver.Solver, start, duration float64, monitor bool) error {
	if !monitor {
		return sol.Run(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sol.Run(ctx) }()

	if err := viz.Run(ctx, sol, start, duration, cancel); err != nil {
		cancel()
		<-done
		return err
	}
	return <-done
}

// catalog records a run and returns its ID. Catalog failures never fail
// the run; the result file is already on disk.
func catalog(st *storage.Store, log zerolog.Logger, run storage.Run) string {
	if st == nil {
		return ""
	}
	id, err := st.Save(run)
	if err != nil {
		log.Warn().Err(err).Msg("run not catalogued")
		return ""
	}
	log.Debug().Str("id", id).Msg("run catalogued")
	return id
}

// EstimateRecordBytes is the memory the records of a run hold.
func EstimateRecordBytes(scen *scenario.Scenario, grid scenario.Grid) uint64 {
	var total uint64
	first := grid.StartStep(scen.StartTime())
	last := first + grid.NumSteps
	for _, rec := range scen.Records() {
		every := rec.Every(grid.Dt)
		rows := uint64(last/every - first/every)
		cols := uint64(grid.NumGridpoints)
		if rec.Position != nil {
			cols = 1
		}
		values := rows * cols
		if rec.Observable.Complex() {
			values *= 2
		}
		total += 8 * values
	}
	return total
}

// preflight warns when the records will not fit into available memory.
func preflight(ctx context.Context, log zerolog.Logger, scen *scenario.Scenario, grid scenario.Grid) {
	need := EstimateRecordBytes(scen, grid)
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("memory preflight skipped")
		return
	}
	ev := log.Debug()
	if need > vm.Available {
		ev = log.Warn()
	}
	ev.Uint64("record_bytes", need).
		Uint64("available_bytes", vm.Available).
		Str("estimate", humanize.IBytes(need)).
		Msg("record memory estimate")
}
