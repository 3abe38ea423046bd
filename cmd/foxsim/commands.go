package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/foxsim/internal/analysis"
	"github.com/san-kum/foxsim/internal/automation"
	"github.com/san-kum/foxsim/internal/config"
	"github.com/san-kum/foxsim/internal/dynamo"
	"github.com/san-kum/foxsim/internal/experiment"
	"github.com/san-kum/foxsim/internal/export"
	"github.com/san-kum/foxsim/internal/metrics"
	"github.com/san-kum/foxsim/internal/optim"
	"github.com/san-kum/foxsim/internal/storage"
	"github.com/san-kum/foxsim/internal/tui"
	"github.com/san-kum/foxsim/internal/viz"
)

// resolveConfig layers defaults, preset, config file and explicit flags, in
// that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, string, error) {
	cfg := config.DefaultConfig()
	name := "custom"

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg, name = p, preset
	}

	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		name = filepath.Base(configFile)
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("runs") {
		cfg.Runs = runs
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("keep") {
		cfg.Keep = keep
	}
	if flags.Changed("time") {
		cfg.Horizon = horizon
	}
	if flags.Changed("rabbits") {
		cfg.Rabbits = rabbits
	}
	if flags.Changed("foxes") {
		cfg.Foxes = foxes
	}
	if flags.Changed("k1") {
		cfg.Rates.K1 = k1
	}
	if flags.Changed("k2") {
		cfg.Rates.K2 = k2
	}
	if flags.Changed("k3") {
		cfg.Rates.K3 = k3
	}
	if flags.Changed("k4") {
		cfg.Rates.K4 = k4
	}
	if !cmd.Flags().Changed("data") && cfg.DataDir != "" && configFile != "" {
		dataDir = cfg.DataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, name, nil
}

func openIndex() (*storage.Index, error) {
	return storage.OpenIndex(filepath.Join(dataDir, "index.db"))
}

// persist writes the study to the file store and indexes its outcomes.
func persist(name string, report *experiment.Report) (*storage.StudyMetadata, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}

	idx, err := openIndex()
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	meta, err := st.Record(name, report, idx)
	if err != nil {
		return nil, err
	}
	logger.Debug("study stored", zap.String("id", meta.ID), zap.String("dir", st.Dir()))
	return meta, nil
}

func runSingle(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	sc := cfg.ToStudy()
	sc.Runs, sc.Keep = 1, 1

	fmt.Printf("running one trajectory (seed %d)...\n", sc.Seed)
	start := time.Now()

	res, err := experiment.RunSingle(cmd.Context(), sc, sc.Seed)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	outcome := metrics.NewOutcome(0, res, sc.Window)
	agg := metrics.NewAggregator()
	agg.Observe(outcome)

	report := &experiment.Report{
		Config:       sc,
		Summary:      agg.Snapshot(),
		History:      agg.History(),
		Outcomes:     []metrics.Outcome{outcome},
		Trajectories: []dynamo.Trajectory{res.Trajectory},
		Elapsed:      elapsed,
	}
	report.PeakTimes, report.PeakFoxes = agg.Peaks()
	meta, err := persist(name, report)
	if err != nil {
		return err
	}

	fmt.Println(viz.PlotTrajectory(res.Trajectory, fmt.Sprintf("seed %d", sc.Seed)))
	fmt.Printf("\ncompleted in %v\n", elapsed)
	fmt.Printf("study id: %s\n", meta.ID)
	fmt.Printf("events: %d\n", res.Events)
	fmt.Printf("final: %d rabbits, %d foxes at day %.1f\n", res.Final.Rabbits, res.Final.Foxes, res.Final.Time)
	if res.FoxesExtinct {
		fmt.Printf("foxes died out at day %.1f\n", res.FoxExtinctionTime)
	}
	if res.Extinct {
		fmt.Println("everything died")
	}
	if outcome.HasPeak {
		fmt.Printf("second peak: %d foxes at day %.1f\n", outcome.Peak.Foxes, outcome.Peak.Time)
	} else {
		fmt.Println("no second peak")
	}

	fmt.Println("\nmetrics:")
	for _, m := range metrics.Standard() {
		fmt.Printf("  %s: %.4f\n", m.Name(), res.Metrics[m.Name()])
	}
	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	sc := cfg.ToStudy()

	var report *experiment.Report
	if live {
		// The live view owns the terminal; keep info logs out of it.
		quiet := logger.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))
		report, err = tui.Run(cmd.Context(), experiment.New(sc, quiet), name)
	} else {
		study := experiment.New(sc, logger)
		step := max(sc.Runs/50, 1)
		study.OnProgress(func(p experiment.Progress) {
			if p.Done%step == 0 || p.Done == p.Total {
				fmt.Fprint(os.Stderr, ".")
			}
		})
		report, err = study.Run(cmd.Context())
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}

	meta, err := persist(name, report)
	if err != nil {
		return err
	}

	if len(report.Trajectories) > 0 {
		fmt.Println(viz.PlotTrajectory(report.Trajectories[0], "run 0"))
		fmt.Println()
	}
	timePlot, foxPlot := viz.PlotConvergence(report.History)
	if timePlot != "" {
		fmt.Println(timePlot)
		fmt.Println()
		fmt.Println(foxPlot)
		fmt.Println()
	}
	fmt.Println(viz.RenderSummary(name, report.Summary, report.Elapsed))
	fmt.Printf("study id: %s\n", meta.ID)

	if pngDir != "" {
		return writeCharts(pngDir, report)
	}
	return nil
}

func writeCharts(dir string, report *experiment.Report) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	charts := map[string]func(io.Writer) error{
		"trajectories.png": func(w io.Writer) error { return export.TrajectoriesPNG(w, report.Trajectories) },
		"peak_time.png":    func(w io.Writer) error { return export.ConvergencePNG(w, report.History, false) },
		"peak_foxes.png":   func(w io.Writer) error { return export.ConvergencePNG(w, report.History, true) },
		"peaks.png":        func(w io.Writer) error { return export.PeaksPNG(w, report.PeakTimes, report.PeakFoxes, report.Config.Window) },
	}
	for file, render := range charts {
		path := filepath.Join(dir, file)
		if err := export.WriteFile(path, render); err != nil {
			logger.Warn("chart skipped", zap.String("path", path), zap.Error(err))
			continue
		}
		fmt.Printf("wrote %s\n", path)
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	sweep := optim.Sweep{Param: args[0]}
	for _, arg := range args[1:] {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", arg, err)
		}
		sweep.Values = append(sweep.Values, v)
	}

	fmt.Printf("sweeping %s over %v (%s)...\n", sweep.Param, sweep.Values, name)
	points, err := sweep.Run(cmd.Context(), cfg.ToStudy(), func(c experiment.Config) *experiment.Study {
		return experiment.New(c, logger)
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VALUE\tPEAKS\tPEAK DAY\tDAY IQR\tPEAK FOXES\tFOX IQR\tALL DIED\tFOXES DIED")
	for _, p := range points {
		s := p.Summary
		fmt.Fprintf(w, "%g\t%d\t%.1f\t[%.1f-%.1f]\t%.1f\t[%.1f-%.1f]\t%.1f%%\t%.1f%%\n",
			p.Value, s.Peaks,
			s.MeanTime, s.TimeQ1, s.TimeQ3,
			s.MeanFoxes, s.FoxesQ1, s.FoxesQ3,
			100*s.ExtinctFraction(), 100*s.FoxesExtinctFraction())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	best, val, err := optim.Best(points, objective)
	if err != nil {
		return fmt.Errorf("%w (available: %v)", err, optim.Objectives())
	}
	fmt.Printf("\nlowest %s: %s=%g (%.4f)\n", objective, sweep.Param, best.Value, val)
	return nil
}

func listStudies(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	studies, err := st.List()
	if err != nil {
		return err
	}

	if len(studies) == 0 {
		fmt.Println("no studies found")
		return nil
	}

	idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	indexed, err := idx.Studies()
	if err != nil {
		return err
	}
	inIndex := make(map[string]bool, len(indexed))
	for _, s := range indexed {
		inIndex[s.ID] = true
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tRUNS\tHORIZON\tSTART\tPEAK DAY\tPEAK FOXES\tINDEXED")

	for _, s := range studies {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.0f\t%d/%d\t%.1f\t%.1f\t%s\n",
			s.ID[:8],
			s.Name,
			s.Timestamp.Local().Format("2006-01-02 15:04:05"),
			s.Runs,
			s.Horizon,
			s.Rabbits, s.Foxes,
			s.Summary.MeanTime,
			s.Summary.MeanFoxes,
			yesNo(inIndex[s.ID]),
		)
	}

	if err := w.Flush(); err != nil {
		return err
	}
	if len(indexed) != len(studies) {
		logger.Warn("store and index disagree", zap.Int("stored", len(studies)), zap.Int("indexed", len(indexed)))
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func openStudy(prefix string) (*storage.Store, *storage.StudyMetadata, error) {
	st := storage.New(dataDir)
	id, err := st.Resolve(prefix)
	if err != nil {
		return nil, nil, err
	}
	meta, err := st.Load(id)
	if err != nil {
		return nil, nil, err
	}
	return st, meta, nil
}

func reportStudy(cmd *cobra.Command, args []string) error {
	st, meta, err := openStudy(args[0])
	if err != nil {
		return err
	}

	idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	summary, err := idx.Summarize(meta.ID)
	if err != nil {
		logger.Warn("study not indexed, using stored summary", zap.String("id", meta.ID), zap.Error(err))
		summary = meta.Summary
	}

	fmt.Printf("study %s (%s)\n", meta.ID, meta.Name)
	fmt.Printf("rates: k1=%g k2=%g k3=%g k4=%g\n", meta.Rates["k1"], meta.Rates["k2"], meta.Rates["k3"], meta.Rates["k4"])
	fmt.Printf("start: %d rabbits, %d foxes, %.0f days, seed %d\n\n", meta.Rabbits, meta.Foxes, meta.Horizon, meta.Seed)

	history, err := st.LoadHistory(meta.ID)
	if err != nil {
		return err
	}
	if timePlot, foxPlot := viz.PlotConvergence(history); timePlot != "" {
		fmt.Println(timePlot)
		fmt.Println()
		fmt.Println(foxPlot)
		fmt.Println()
	}

	fmt.Println(viz.RenderSummary(meta.Name, summary, meta.Elapsed))
	return nil
}

func plotStudy(cmd *cobra.Command, args []string) error {
	st, meta, err := openStudy(args[0])
	if err != nil {
		return err
	}
	if runIndex < 0 || runIndex >= meta.Trajectories {
		return fmt.Errorf("run %d not stored (study keeps %d trajectories)", runIndex, meta.Trajectories)
	}

	tr, err := st.LoadTrajectory(meta.ID, runIndex)
	if err != nil {
		return err
	}

	fmt.Println(viz.PlotTrajectory(tr, fmt.Sprintf("%s run %d", meta.Name, runIndex)))
	if p, ok := analysis.SecondPeak(tr, meta.Window); ok {
		fmt.Printf("\nsecond peak: %d foxes at day %.1f\n", p.Foxes, p.Time)
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st, meta, err := openStudy(args[0])
	if err != nil {
		return err
	}

	if outFile == "" {
		return st.ExportJSON(os.Stdout, meta.ID)
	}

	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	if err := st.ExportJSON(f, meta.ID); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outFile)
	return nil
}

func analyzeStudy(cmd *cobra.Command, args []string) error {
	sp, err := metrics.ParseSpecies(species)
	if err != nil {
		return err
	}

	st, meta, err := openStudy(args[0])
	if err != nil {
		return err
	}

	trajectories, err := st.LoadTrajectories(meta.ID)
	if err != nil {
		return err
	}
	if len(trajectories) == 0 {
		return fmt.Errorf("study %s keeps no trajectories", meta.ID)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RUN\t%s PERIOD (DAYS)\n", strings.ToUpper(sp.String()))
	var periods []float64
	for i, tr := range trajectories {
		period := analysis.SeriesPeriod(sp.Series(analysis.Resample(tr, gridStep)), gridStep)
		if period > 0 {
			periods = append(periods, period)
			fmt.Fprintf(w, "%d\t%.1f\n", i, period)
		} else {
			fmt.Fprintf(w, "%d\t-\n", i)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(periods) > 0 {
		q1, q3, _ := analysis.Quartiles(periods)
		fmt.Printf("\n%s cycle period: %.1f days, IQR [%.1f-%.1f]\n", sp, analysis.Mean(periods), q1, q3)
	}

	series := sp.Series(analysis.Resample(trajectories[0], gridStep))
	mean := analysis.Mean(series)
	for i := range series {
		series[i] -= mean
	}
	if plot := viz.PlotSpectrum(analysis.PowerSpectrum(series)); plot != "" {
		fmt.Println()
		fmt.Println(plot)
	}
	return nil
}

// rerunStudy repeats a stored study with its recorded configuration and
// stores the result as a new study.
func rerunStudy(cmd *cobra.Command, args []string) error {
	_, meta, err := openStudy(args[0])
	if err != nil {
		return err
	}

	sc := meta.StudyConfig()
	if cmd.Flags().Changed("seed") {
		sc.Seed = seed
	}
	if cmd.Flags().Changed("runs") {
		sc.Runs = runs
	}

	study := experiment.New(sc, logger)
	report, err := study.Run(cmd.Context())
	if err != nil {
		return err
	}

	rerun, err := persist(meta.Name+"-rerun", report)
	if err != nil {
		return err
	}

	fmt.Println(viz.RenderSummary(meta.Name+" (rerun)", report.Summary, report.Elapsed))
	fmt.Printf("study id: %s\n", rerun.ID)
	if sc.Seed == meta.Seed && sc.Runs == meta.Runs && report.Summary != meta.Summary {
		logger.Warn("rerun differs from the stored study", zap.String("id", meta.ID))
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	if scenario.Description != "" {
		fmt.Printf("%s: %s\n", scenario.Name, scenario.Description)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tID\tRUNS\tPEAK DAY\tPEAK FOXES\tFOXES DIED")
	_, err = automation.RunScenario(cmd.Context(), scenario, logger, func(i int, r automation.StepResult) error {
		meta, err := persist(r.Step.Name, r.Report)
		if err != nil {
			return err
		}
		s := r.Report.Summary
		fmt.Fprintf(w, "%s\t%s\t%d\t%.1f\t%.1f\t%.1f%%\n",
			r.Step.Name, meta.ID[:8], s.Runs, s.MeanTime, s.MeanFoxes, 100*s.FoxesExtinctFraction())
		return nil
	})
	if flushErr := w.Flush(); err == nil {
		err = flushErr
	}
	return err
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tRUNS\tSTART\tHORIZON\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%d\t%d/%d\t%.0f\t%s\n", name, p.Runs, p.Rabbits, p.Foxes, p.Horizon, config.DescribePreset(name))
	}
	return w.Flush()
}
