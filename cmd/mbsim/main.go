package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/mbsim/internal/analysis"
	"github.com/san-kum/mbsim/internal/config"
	"github.com/san-kum/mbsim/internal/experiment"
	"github.com/san-kum/mbsim/internal/logger"
	"github.com/san-kum/mbsim/internal/scenario"
	"github.com/san-kum/mbsim/internal/solver"
	"github.com/san-kum/mbsim/internal/storage"
)

var (
	dataDir  string
	logLevel string
	logJSON  bool
	// run flags
	preset     string
	solverName string
	format     string
	outDir     string
	autosave   bool
	resume     string
	tui        bool
	seed       uint64
	// plot flags
	sample int
)

// main loads .env defaults, registers the commands and runs the root command.
// It exits with status 1 if the command returns an error.
func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "mbsim",
		Short:         "maxwell-bloch simulation driver",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetGlobalLogger(newLogger())
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", envOr("MBSIM_DATA", ".mbsim"), "data directory (run catalog)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", envOr("MBSIM_LOG_LEVEL", "info"), "log level")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log JSON lines instead of console output")

	runCmd := &cobra.Command{
		Use:   "run [experiment.yaml]",
		Short: "run an experiment file or preset",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExperiment,
	}
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset experiment")
	runCmd.Flags().StringVar(&solverName, "solver", "", "override solver")
	runCmd.Flags().StringVar(&format, "format", "", "override output format")
	runCmd.Flags().StringVar(&outDir, "out", "", "override output directory")
	runCmd.Flags().BoolVar(&autosave, "autosave", false, "write a checkpoint of the final state")
	runCmd.Flags().StringVar(&resume, "resume", "", "resume from checkpoint file")
	runCmd.Flags().BoolVar(&tui, "tui", false, "show live monitor")
	runCmd.Flags().Uint64Var(&seed, "seed", 0, "seed for random initial conditions and noise sources")

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list presets or print one as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showPresets,
	}

	solversCmd := &cobra.Command{
		Use:   "solvers",
		Short: "list available solvers",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := experiment.NewRegistry()
			if err != nil {
				return err
			}
			for _, name := range reg.ListSolvers() {
				fmt.Println(name)
			}
			return nil
		},
	}

	formatsCmd := &cobra.Command{
		Use:   "formats",
		Short: "list available output formats",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := experiment.NewRegistry()
			if err != nil {
				return err
			}
			for _, name := range reg.ListFormats() {
				fmt.Println(name)
			}
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list catalogued runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [file] [record]",
		Short: "plot a record from a result file",
		Args:  cobra.ExactArgs(2),
		RunE:  plotRecord,
	}
	plotCmd.Flags().IntVar(&sample, "sample", -1, "sample of a full-grid record to plot (-1 = last)")

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [file] [record]",
		Short: "power spectrum of a point record",
		Args:  cobra.ExactArgs(2),
		RunE:  spectrumRecord,
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "show result file metadata and record statistics",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectFile,
	}

	rootCmd.AddCommand(runCmd, presetsCmd, solversCmd, formatsCmd, listCmd, plotCmd, spectrumCmd, inspectCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newLogger() zerolog.Logger {
	return logger.New(logger.Config{Level: logLevel, Pretty: !logJSON})
}

func catalogPath() string {
	return filepath.Join(dataDir, "runs.db")
}

func loadExperiment(args []string) (*config.Experiment, error) {
	switch {
	case preset != "" && len(args) > 0:
		return nil, fmt.Errorf("give either an experiment file or --preset, not both")
	case preset != "":
		return config.GetPreset(preset)
	case len(args) > 0:
		return config.Load(args[0])
	default:
		return config.DefaultExperiment(), nil
	}
}

func runExperiment(cmd *cobra.Command, args []string) error {
	exp, err := loadExperiment(args)
	if err != nil {
		return err
	}
	if solverName != "" {
		exp.Solver = solverName
	}
	if format != "" {
		exp.Format = format
	}
	if outDir != "" {
		exp.OutputDir = outDir
	}
	if autosave {
		exp.Autosave = true
	}
	if resume != "" {
		exp.Resume = resume
	}
	if cmd.Flags().Changed("seed") {
		applySeed(exp, seed)
	}

	reg, err := experiment.NewRegistry()
	if err != nil {
		return err
	}
	st, err := storage.Open(catalogPath())
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := experiment.Run(ctx, experiment.Options{
		Experiment: exp,
		Registry:   reg,
		Catalog:    st,
		Monitor:    tui,
		Logger:     newLogger(),
	})
	if err != nil {
		return err
	}

	fmt.Printf("run:     %s\n", out.RunID)
	fmt.Printf("solver:  %s (%v)\n", out.Results.Solver, out.Results.Elapsed)
	fmt.Printf("results: %s\n", out.Output)
	if out.Autosave != "" {
		fmt.Printf("autosave: %s\n", out.Autosave)
	}
	return nil
}

// applySeed reseeds every random initial condition and noise source.
// Sources get consecutive seeds so they stay uncorrelated.
func applySeed(exp *config.Experiment, s uint64) {
	sc := &exp.Scenario
	sc.Density.Seed = s
	sc.Electric.Seed = s + 1
	if sc.Magnetic != nil {
		sc.Magnetic.Seed = s + 2
	}
	if sc.Polarization != nil {
		sc.Polarization.Seed = s + 3
	}
	for i := range sc.Sources {
		if sc.Sources[i].Thermal != nil {
			sc.Sources[i].Thermal.Seed = s + 4 + uint64(i)
		}
	}
}

func showPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		for _, name := range config.ListPresets() {
			fmt.Println(name)
		}
		return nil
	}
	exp, err := config.GetPreset(args[0])
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(exp); err != nil {
		return err
	}
	return enc.Close()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := storage.Open(catalogPath())
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tDEVICE\tSCENARIO\tSOLVER\tSTATUS\tSTEPS\tELAPSED\tOUTPUT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%v\t%s\n",
			run.ID,
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.Device,
			run.Scenario,
			run.Solver,
			run.Status,
			run.Steps,
			run.Elapsed,
			run.Output,
		)
	}
	return w.Flush()
}

func readRecord(path, name string) (*solver.ResultSet, *solver.Result, error) {
	reg, err := experiment.NewRegistry()
	if err != nil {
		return nil, nil, err
	}
	rd, err := reg.Formats.ReaderFor(path)
	if err != nil {
		return nil, nil, err
	}
	rs, err := rd.ReadResults(path)
	if err != nil {
		return nil, nil, err
	}
	if name == "" {
		return rs, nil, nil
	}
	res, err := rs.Get(name)
	if err != nil {
		return nil, nil, err
	}
	return rs, res, nil
}

func plotRecord(cmd *cobra.Command, args []string) error {
	_, res, err := readRecord(args[0], args[1])
	if err != nil {
		return err
	}
	if res.Rows == 0 {
		return fmt.Errorf("record %s has no samples", res.Name)
	}

	var data []float64
	var caption string
	if res.Cols == 1 {
		data = res.Column(0)
		caption = fmt.Sprintf("%s over %d samples", res.Name, res.Rows)
	} else {
		row := sample
		if row < 0 {
			row = res.Rows - 1
		}
		if row >= res.Rows {
			return fmt.Errorf("sample %d out of range, record has %d", row, res.Rows)
		}
		data = res.Row(row)
		caption = fmt.Sprintf("%s across the device, sample %d", res.Name, row)
	}
	if res.Complex() {
		caption += " (real part)"
	}

	fmt.Println(asciigraph.Plot(data,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	))
	return nil
}

func spectrumRecord(cmd *cobra.Command, args []string) error {
	rs, res, err := readRecord(args[0], args[1])
	if err != nil {
		return err
	}
	if res.Cols != 1 {
		return fmt.Errorf("record %s covers %d points, need a point record", res.Name, res.Cols)
	}
	period := float64(scenario.Record{Interval: res.Interval}.Every(rs.Grid.Dt)) * rs.Grid.Dt

	spec, err := analysis.PowerSpectrum(res.Column(0), period)
	if err != nil {
		return err
	}

	// log scale, the thermal spectra span many decades
	logPower := make([]float64, len(spec.Power))
	for i, p := range spec.Power {
		logPower[i] = math.Log10(p + 1e-300)
	}
	fmt.Println(asciigraph.Plot(logPower[1:],
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("log10 power of %s, 0 to %.3e Hz", res.Name, spec.Freq[len(spec.Freq)-1])),
	))
	fmt.Println()

	freq, power := spec.Peak()
	fmt.Printf("dominant frequency: %.4e Hz\n", freq)
	fmt.Printf("peak power: %.4e\n", power)
	if freq > 0 {
		fmt.Printf("period: %.4e s\n", 1/freq)
	}
	return nil
}

func inspectFile(cmd *cobra.Command, args []string) error {
	rs, _, err := readRecord(args[0], "")
	if err != nil {
		return err
	}

	fmt.Printf("device:     %s (%.4e m)\n", rs.Device, rs.Length)
	fmt.Printf("scenario:   %s\n", rs.Scenario)
	fmt.Printf("solver:     %s (%v)\n", rs.Solver, rs.Elapsed)
	fmt.Printf("grid:       %d points, dx %.4e m\n", rs.Grid.NumGridpoints, rs.Grid.Dx)
	fmt.Printf("time:       %d steps, dt %.4e s, end %.4e s\n\n", rs.Grid.NumSteps, rs.Grid.Dt, rs.EndTime)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RECORD\tSHAPE\tCOMPLEX\tMEAN\tSTD\tMIN\tMAX\tRMS")
	for _, r := range rs.Results {
		shape := fmt.Sprintf("%dx%d", r.Rows, r.Cols)
		s, err := analysis.Summarize(r.Real)
		if err != nil {
			fmt.Fprintf(w, "%s\t%s\t%v\t-\t-\t-\t-\t-\n", r.Name, shape, r.Complex())
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%v\t%.3e\t%.3e\t%.3e\t%.3e\t%.3e\n",
			r.Name, shape, r.Complex(), s.Mean, s.StdDev, s.Min, s.Max, s.RMS)
	}
	return w.Flush()
}
