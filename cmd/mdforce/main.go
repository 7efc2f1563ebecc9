package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/mdforce/internal/analysis"
	"github.com/san-kum/mdforce/internal/config"
	"github.com/san-kum/mdforce/internal/experiment"
	"github.com/san-kum/mdforce/internal/export"
	"github.com/san-kum/mdforce/internal/metrics"
	"github.com/san-kum/mdforce/internal/optim"
	"github.com/san-kum/mdforce/internal/storage"
	"github.com/san-kum/mdforce/internal/viz"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	logLevel   string
	theme      string
	configFile string
	preset     string
	// run overrides
	dt          float64
	steps       int
	procs       []int
	integrator  string
	temperature float64
	seed        uint64
	skin        float64
	thermoEvery int
	atomFile    string
	potFile     string
	axial       bool
	stress      bool
	progress    bool
	runs        int
	noSave      bool
	// plot and export
	fields     []string
	width      int
	height     int
	format     string
	outFile    string
	svgField   string
	svgWidth   int
	svgHeight  int
	benchSteps int
	// analyze and scan
	blocks     int
	scanParam  string
	scanValues []float64
	scanMetric string
	scanSteps  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "mdforce",
		Short:         "short-range molecular dynamics on a decomposed cell grid",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(lvl)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".mdforce", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "default", "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a simulation from a preset or config file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	runCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	runCmd.Flags().IntSliceVar(&procs, "procs", nil, "ranks along each axis, e.g. 2,2,1")
	runCmd.Flags().StringVar(&integrator, "integrator", "nve", "integrator (nve, mik)")
	runCmd.Flags().Float64Var(&temperature, "temperature", config.DefaultTemperature, "initial temperature")
	runCmd.Flags().Uint64Var(&seed, "seed", 1, "velocity seed")
	runCmd.Flags().Float64Var(&skin, "skin", config.DefaultSkin, "neighbor list skin")
	runCmd.Flags().IntVar(&thermoEvery, "thermo", config.DefaultThermoEvery, "steps between thermo samples")
	runCmd.Flags().StringVar(&atomFile, "atoms", "", "atom file (replaces the lattice)")
	runCmd.Flags().StringVar(&potFile, "potential-file", "", "pair potential table")
	runCmd.Flags().BoolVar(&axial, "axial", false, "accumulate the virial tensor")
	runCmd.Flags().BoolVar(&stress, "stress", false, "accumulate per-particle stress")
	runCmd.Flags().BoolVar(&progress, "progress", false, "draw a progress bar")
	runCmd.Flags().IntVar(&runs, "runs", 1, "independent replicas with consecutive seeds")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot thermo series of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&fields, "field", []string{"etot", "temperature", "pressure"}, "thermo fields ("+strings.Join(viz.Fields(), ", ")+")")
	plotCmd.Flags().IntVar(&width, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&height, "height", 10, "plot height")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as json, or as svg of a thermo field or of the final particles",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&format, "format", "json", "json, svg or particles")
	exportCmd.Flags().StringVar(&svgField, "field", "etot", "thermo field for svg")
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().IntVar(&svgWidth, "width", 640, "svg width")
	exportCmd.Flags().IntVar(&svgHeight, "height", 320, "svg height")

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "benchmark a preset over rank grids",
		Args:  cobra.ExactArgs(1),
		RunE:  benchPreset,
	}
	benchCmd.Flags().IntVar(&benchSteps, "steps", 100, "steps per measurement")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE:  listPresets,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "fluctuation statistics of thermo series",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringSliceVar(&fields, "field", []string{"etot", "temperature", "pressure"}, "thermo fields")
	analyzeCmd.Flags().IntVar(&blocks, "blocks", 8, "blocks for the error estimate")

	scanCmd := &cobra.Command{
		Use:   "scan [preset]",
		Short: "scan one config parameter and report the best value",
		Args:  cobra.ExactArgs(1),
		RunE:  scanPreset,
	}
	scanCmd.Flags().StringVar(&scanParam, "param", "a", "parameter to scan (a, temperature, dt, skin, cutoff)")
	scanCmd.Flags().Float64SliceVar(&scanValues, "values", []float64{1.9, 1.95, 2.0, 2.05, 2.1}, "values to try")
	scanCmd.Flags().StringVar(&scanMetric, "metric", "epot", "score to minimize: epot or a metric name")
	scanCmd.Flags().IntVar(&scanSteps, "steps", 0, "steps per point")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, benchCmd, presetsCmd, analyzeCmd, scanCmd)

	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func styles() viz.Styles { return viz.NewStyles(viz.GetTheme(theme)) }

// resolveConfig layers preset, config file and explicitly set flags.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	name := preset
	if len(args) > 0 {
		name = args[0]
	}

	cfg := config.DefaultConfig()
	if name != "" {
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("procs") {
		cfg.Procs = procs
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("temperature") {
		cfg.Temperature = temperature
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("skin") {
		cfg.Skin = skin
	}
	if flags.Changed("thermo") {
		cfg.ThermoEvery = thermoEvery
	}
	if flags.Changed("atoms") {
		cfg.Atoms = atomFile
	}
	if flags.Changed("potential-file") {
		cfg.Potential.Kind = "pair"
		cfg.Potential.File = potFile
	}
	if flags.Changed("axial") {
		cfg.Output.Axial = axial
	}
	if flags.Changed("stress") {
		cfg.Output.Stress = stress
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp := experiment.New(cfg, experiment.NewRegistry(), logrus.StandardLogger())
	if err := exp.Setup(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if runs > 1 {
		return runEnsemble(ctx, exp)
	}

	s := styles()
	if progress {
		exp.GetSimulator().AddObserver(viz.NewProgress(os.Stderr, s, cfg.Steps))
	}

	start := time.Now()
	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	title := fmt.Sprintf("%s  %s  %v", cfg.Name, cfg.Potential.Kind, elapsed.Round(time.Millisecond))
	if !noSave {
		runID, err := st.Save(cfg, exp.World(), result)
		if err != nil {
			return err
		}
		title = runID + "  " + title
	}
	fmt.Println(viz.Summary(s, title, exp.World(), result))
	return nil
}

func runEnsemble(ctx context.Context, exp *experiment.Experiment) error {
	start := time.Now()
	results, err := exp.RunEnsemble(ctx, runs)
	if err != nil {
		return err
	}
	logrus.Infof("%d replicas finished in %v", len(results), time.Since(start).Round(time.Millisecond))

	s := styles()
	var etot, temp, press []float64
	rows := make([][]string, 0, len(results))
	for i, res := range results {
		last := res.Thermo[len(res.Thermo)-1]
		drift := metrics.NewEnergyDrift()
		for _, th := range res.Thermo {
			drift.Observe(th)
		}
		etot = append(etot, last.Etot/float64(max(last.N, 1)))
		temp = append(temp, last.Temperature)
		press = append(press, last.Pressure)
		rows = append(rows, []string{
			strconv.Itoa(i),
			strconv.FormatUint(exp.Config().Seed+uint64(i), 10),
			fmt.Sprintf("%.6f", etot[i]),
			fmt.Sprintf("%.4f", last.Temperature),
			fmt.Sprintf("%.4f", last.Pressure),
			fmt.Sprintf("%.3g", drift.Value()),
		})
	}
	fmt.Println(viz.Table(s, []string{"RUN", "SEED", "ETOT/N", "T", "P", "DRIFT"}, rows))

	fmt.Println()
	summary := [][]string{}
	for _, q := range []struct {
		name   string
		series []float64
	}{{"etot/N", etot}, {"temperature", temp}, {"pressure", press}} {
		sum := metrics.Summarize(q.series)
		summary = append(summary, []string{q.name, fmt.Sprintf("%.6g", sum.Mean), fmt.Sprintf("%.3g", sum.StdDev)})
	}
	fmt.Println(viz.Table(s, []string{"QUANTITY", "MEAN", "STDDEV"}, summary))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.Potential,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			strconv.Itoa(run.Particles),
			strconv.Itoa(run.Ranks),
			strconv.Itoa(run.Steps),
			fmt.Sprintf("%.4f", run.Dt),
			run.Integrator,
		})
	}
	fmt.Println(viz.Table(styles(), []string{"ID", "POTENTIAL", "TIME", "N", "RANKS", "STEPS", "DT", "INTEG"}, rows))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	thermo, err := st.LoadThermo(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s (%s, %d particles)\n\n", meta.ID, meta.Potential, meta.Particles)
	for _, field := range fields {
		graph, err := viz.Plot(thermo, field, width, height)
		if err != nil {
			return err
		}
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	out := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch format {
	case "json":
		return st.ExportJSON(out, runID)
	case "svg":
		thermo, err := st.LoadThermo(runID)
		if err != nil {
			return err
		}
		ys, err := viz.Series(thermo, svgField)
		if err != nil {
			return err
		}
		xs := make([]float64, len(thermo))
		for i, th := range thermo {
			xs[i] = th.Time
		}
		doc := export.SeriesSVG(xs, ys, svgWidth, svgHeight, string(viz.GetTheme(theme).Value))
		if doc == "" {
			return fmt.Errorf("run %s has fewer than two samples", runID)
		}
		_, err = fmt.Fprintln(out, doc)
		return err
	case "particles":
		meta, err := st.Load(runID)
		if err != nil {
			return err
		}
		ps, err := st.LoadParticles(runID, meta.Dim)
		if err != nil {
			return err
		}
		scale := float64(svgWidth) / meta.Box[0]
		_, err = fmt.Fprintln(out, export.ParticlesSVG(ps, meta.Box, scale))
		return err
	default:
		return fmt.Errorf("unknown export format: %s", format)
	}
}

func benchPreset(cmd *cobra.Command, args []string) error {
	base := config.GetPreset(args[0])
	if base == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
	}

	grids := [][]int{{1, 1, 1}, {2, 1, 1}, {2, 2, 1}, {2, 2, 2}}
	if base.Dim == 2 {
		grids = [][]int{{1, 1}, {2, 1}, {2, 2}, {4, 2}}
	}

	fmt.Printf("benchmarking %s, %d steps\n\n", args[0], benchSteps)
	rows := make([][]string, 0, len(grids))
	for _, g := range grids {
		cfg := base.Clone()
		cfg.Procs = g
		cfg.Steps = benchSteps
		cfg.ThermoEvery = benchSteps

		log := logrus.New()
		log.SetLevel(logrus.WarnLevel)
		exp := experiment.New(cfg, experiment.NewRegistry(), log)
		if err := exp.Setup(); err != nil {
			return err
		}

		start := time.Now()
		result, err := exp.Run(cmd.Context())
		if err != nil {
			logrus.Warnf("procs %v: %v", g, err)
			continue
		}
		elapsed := time.Since(start)

		rows = append(rows, []string{
			fmt.Sprint(g),
			strconv.Itoa(len(result.Particles)),
			elapsed.Round(time.Millisecond).String(),
			fmt.Sprintf("%.0f", float64(result.StepsTaken)/elapsed.Seconds()),
			fmt.Sprintf("%.3g", float64(result.Stats.Pairs)/elapsed.Seconds()),
			strconv.Itoa(result.Stats.Rebuilds),
		})
	}
	fmt.Println(viz.Table(styles(), []string{"PROCS", "N", "TIME", "STEPS/SEC", "PAIRS/SEC", "REBUILDS"}, rows))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	rows := [][]string{}
	for _, name := range config.ListPresets() {
		p := config.Presets[name]
		rows = append(rows, []string{
			name,
			strconv.Itoa(p.Dim),
			p.Lattice.Kind,
			p.Potential.Kind,
			strconv.Itoa(p.NTypes),
			p.Integrator,
			strconv.Itoa(p.Steps),
		})
	}
	fmt.Println(viz.Table(styles(), []string{"PRESET", "DIM", "LATTICE", "POTENTIAL", "TYPES", "INTEG", "STEPS"}, rows))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	thermo, err := st.LoadThermo(runID)
	if err != nil {
		return err
	}
	if len(thermo) < 2 {
		return fmt.Errorf("run %s has fewer than two samples", runID)
	}

	rows := make([][]string, 0, len(fields))
	for _, field := range fields {
		series, err := viz.Series(thermo, field)
		if err != nil {
			return err
		}
		mean, sem := analysis.BlockError(series, blocks)
		rows = append(rows, []string{
			field,
			fmt.Sprintf("%.6g", mean),
			fmt.Sprintf("%.3g", sem),
			fmt.Sprintf("%.2f", analysis.CorrelationTime(series)),
			fmt.Sprintf("%.1f", analysis.DominantPeriod(series)),
		})
	}
	fmt.Printf("run: %s, %d samples, %d steps apart\n\n", runID, len(thermo), thermo[1].Step-thermo[0].Step)
	fmt.Println(viz.Table(styles(), []string{"FIELD", "MEAN", "SEM", "TAU", "PERIOD"}, rows))
	return nil
}

func scanPreset(cmd *cobra.Command, args []string) error {
	base := config.GetPreset(args[0])
	if base == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
	}
	base.Steps = scanSteps

	score := optim.FinalEpot
	if scanMetric != "epot" {
		score = optim.Metric(scanMetric)
	}

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	g, err := optim.NewGridSearch([]string{scanParam}, [][]float64{scanValues}, log)
	if err != nil {
		return err
	}
	best, points, err := g.Search(cmd.Context(), base, experiment.NewRegistry(), score)
	if err != nil {
		return err
	}

	s := styles()
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		status := "ok"
		if p.Err != nil {
			status = p.Err.Error()
		}
		rows = append(rows, []string{fmt.Sprintf("%g", p.Params[scanParam]), fmt.Sprintf("%.6g", p.Score), status})
	}
	fmt.Println(viz.Table(s, []string{strings.ToUpper(scanParam), strings.ToUpper(scanMetric), "STATUS"}, rows))
	fmt.Printf("\nbest %s = %g (%s %.6g)\n", scanParam, best.Params[scanParam], scanMetric, best.Score)
	return nil
}
