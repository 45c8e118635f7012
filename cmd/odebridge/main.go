package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/kstrom/odebridge/internal/config"
	"github.com/kstrom/odebridge/internal/driver"
	"github.com/kstrom/odebridge/internal/problems"
	"github.com/kstrom/odebridge/internal/store"
	"github.com/kstrom/odebridge/internal/tui"
)

var (
	dataDir    string
	family     string
	method     string
	table      string
	relTol     float64
	absTol     float64
	dt         float64
	duration   float64
	fixedStep  float64
	blocks     int
	configFile string
	preset     string
	exportPath string
	component  int
	frameRate  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "odebridge",
		Short: "time integration of operator-defined ODE systems",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".odebridge", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [problem]",
		Short: "run an integration",
		Args:  cobra.ExactArgs(1),
		RunE:  runIntegration,
	}
	addRunFlags(runCmd)
	runCmd.Flags().StringVar(&exportPath, "export", "", "also write the full run as JSON to this path")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&component, "component", 0, "state component to plot")

	compareCmd := &cobra.Command{
		Use:   "compare [problem] [family/method] [family/method] ...",
		Short: "compare methods on the same problem",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareMethods,
	}
	addRunFlags(compareCmd)

	liveCmd := &cobra.Command{
		Use:   "live [problem]",
		Short: "run with live visualization",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	liveCmd.Flags().IntVar(&component, "component", 0, "state component to plot")
	liveCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")

	exportJSONCmd := &cobra.Command{
		Use:     "export-json [run_id]",
		Aliases: []string{"export"},
		Short:   "print a stored run, trajectory included, as JSON",
		Args:    cobra.ExactArgs(1),
		RunE:    exportJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "print a stored trajectory as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	problemsCmd := &cobra.Command{
		Use:   "problems",
		Short: "list available problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range problems.NewRegistry().List() {
				fmt.Println(name)
			}
			return nil
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [problem]",
		Short: "list presets for a problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets(args[0])
			if len(names) == 0 {
				fmt.Printf("no presets for problem: %s\n", args[0])
				return nil
			}
			for _, p := range names {
				fmt.Println(p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, compareCmd, liveCmd,
		exportJSONCmd, exportCSVCmd, problemsCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&family, "family", "multistage", "integration family (multistep|multistage)")
	cmd.Flags().StringVar(&method, "method", "", "method (adams|bdf|erk|dirk)")
	cmd.Flags().StringVar(&table, "table", "", "explicit tableau (dormand-prince|bogacki-shampine|heun-euler)")
	cmd.Flags().Float64Var(&relTol, "rel-tol", config.DefaultRelTol, "relative tolerance")
	cmd.Flags().Float64Var(&absTol, "abs-tol", config.DefaultAbsTol, "absolute tolerance")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "outer step size")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Float64Var(&fixedStep, "fixed-step", 0, "fixed internal step (multistage)")
	cmd.Flags().IntVar(&blocks, "blocks", 0, "parallel RHS blocks (0 = serial)")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

// buildConfig merges preset, config file and flags, in rising priority.
func buildConfig(cmd *cobra.Command, problem string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Problem = problem

	if preset != "" {
		p := config.GetPreset(problem, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(problem))
		}
		*cfg = *p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		*cfg = *loaded
		cfg.Problem = problem
	}

	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("family", func() { cfg.Family = family })
	set("method", func() { cfg.Method = method })
	set("table", func() { cfg.Table = table })
	set("rel-tol", func() { cfg.RelTol = relTol })
	set("abs-tol", func() { cfg.AbsTol = absTol })
	set("dt", func() { cfg.Dt = dt })
	set("time", func() { cfg.Duration = duration })
	set("fixed-step", func() { cfg.FixedStep = fixedStep })
	set("blocks", func() { cfg.Blocks = blocks })

	if cfg.Method == "" {
		if cfg.Family == "multistep" {
			cfg.Method = "adams"
		} else {
			cfg.Method = "erk"
		}
	}
	return cfg, cfg.Validate()
}

func runIntegration(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := driver.Run(ctx, cfg)
	if err != nil {
		return err
	}

	st := store.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(cfg, result)
	if err != nil {
		return err
	}

	if exportPath != "" {
		if err := store.ExportJSON(exportPath, cfg, result); err != nil {
			return err
		}
	}

	printSummary(cfg, result)
	fmt.Printf("\nsaved: %s\n", runID)
	return nil
}

func printSummary(cfg *config.Config, result *driver.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "problem\t%s\n", cfg.Problem)
	fmt.Fprintf(w, "method\t%s/%s\n", cfg.Family, cfg.Method)
	fmt.Fprintf(w, "tolerances\trel=%g abs=%g\n", cfg.RelTol, cfg.AbsTol)
	fmt.Fprintf(w, "steps\t%d (%d rejected)\n", result.Stats.Steps, result.Stats.ErrorTestFails)
	fmt.Fprintf(w, "rhs evals\t%d\n", result.Stats.RHSEvals)
	if result.Stats.LinearSolves > 0 {
		fmt.Fprintf(w, "newton iters\t%d\n", result.Stats.NewtonIters)
		fmt.Fprintf(w, "linear solves\t%d\n", result.Stats.LinearSolves)
	}
	fmt.Fprintf(w, "final time\t%.6g\n", result.Stats.CurrentTime)
	w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := store.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROBLEM\tMETHOD\tSTEPS\tTIME")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s/%s\t%d\t%s\n",
			r.ID, r.Problem, r.Family, r.Method, r.Steps, r.Timestamp.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	states, _, err := store.New(dataDir).LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("run %s has no states", args[0])
	}
	if component < 0 || component >= len(states[0]) {
		return fmt.Errorf("component %d out of range (state has %d)", component, len(states[0]))
	}

	series := make([]float64, len(states))
	for i, s := range states {
		series[i] = s[component]
	}
	fmt.Println(asciigraph.Plot(series,
		asciigraph.Height(16),
		asciigraph.Width(72),
		asciigraph.Caption(fmt.Sprintf("%s y[%d]", args[0], component)),
	))
	return nil
}

func compareMethods(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	variants := make([]driver.Variant, 0, len(args)-1)
	for _, spec := range args[1:] {
		i := strings.IndexByte(spec, '/')
		if i <= 0 || i == len(spec)-1 {
			return fmt.Errorf("method spec must be family/method, got %q", spec)
		}
		variants = append(variants, driver.Variant{Family: spec[:i], Method: spec[i+1:]})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, errs := driver.Compare(ctx, cfg, variants)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tSTEPS\tREJECTED\tRHS EVALS\tLIN SOLVES\tFINAL")
	for i, v := range variants {
		if errs[i] != nil {
			fmt.Fprintf(w, "%s/%s\terror: %v\n", v.Family, v.Method, errs[i])
			continue
		}
		r := results[i]
		final := math.NaN()
		if len(r.States) > 0 {
			final = r.States[len(r.States)-1][0]
		}
		fmt.Fprintf(w, "%s/%s\t%d\t%d\t%d\t%d\t%.6g\n",
			v.Family, v.Method, r.Stats.Steps, r.Stats.ErrorTestFails,
			r.Stats.RHSEvals, r.Stats.LinearSolves, final)
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	return tui.Run(cfg, component, frameRate)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	states, times, err := store.New(dataDir).LoadStates(args[0])
	if err != nil {
		return err
	}
	return store.WriteCSV(os.Stdout, times, states)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	s := store.New(dataDir)
	meta, err := s.Load(args[0])
	if err != nil {
		return err
	}
	states, times, err := s.LoadStates(args[0])
	if err != nil {
		return err
	}
	data := store.ExportData{
		Problem:  meta.Problem,
		Family:   meta.Family,
		Method:   meta.Method,
		RelTol:   meta.RelTol,
		AbsTol:   meta.AbsTol,
		Duration: meta.Duration,
		Steps:    meta.Steps,
		RHSEvals: meta.RHSEvals,
		Times:    times,
		States:   states,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
