package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/san-kum/ionsim/internal/config"
	"github.com/san-kum/ionsim/internal/electro"
	"github.com/san-kum/ionsim/internal/engine"
	_ "github.com/san-kum/ionsim/internal/engine/reference"
	"github.com/san-kum/ionsim/internal/reporters"
	"github.com/san-kum/ionsim/internal/sim"
	"github.com/san-kum/ionsim/internal/storage"
	"github.com/san-kum/ionsim/internal/topology"
)

var (
	dataDir string
	verbose bool
	logger  *log.Logger

	initDir  string
	initSeed int64

	seed  int64
	live  bool
	quiet bool

	selA  string
	selB  string
	rmax  float64
	binW  float64
	skip  int
	rmin  float64
	every int

	pairs   int
	boxEdge float64
	epsR    float64
	temp    float64
	valence float64

	outFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ionsim",
		Short:         "molecular dynamics of ions and rigid charged bodies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = log.NewWithOptions(os.Stderr, log.Options{
				ReportTimestamp: true,
				TimeFormat:      time.TimeOnly,
				Prefix:          "ionsim",
			})
			if verbose {
				logger.SetLevel(log.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ionsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	initCmd := &cobra.Command{
		Use:   "init [preset]",
		Short: "write config, structure and force field for a preset",
		Args:  cobra.ExactArgs(1),
		RunE:  initPreset,
	}
	initCmd.Flags().StringVar(&initDir, "dir", ".", "output directory")
	initCmd.Flags().Int64Var(&initSeed, "seed", 1, "placement seed")

	runCmd := &cobra.Command{
		Use:   "run [config.yaml]",
		Short: "run a simulation",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().Int64Var(&seed, "seed", 0, "velocity seed (overrides config)")
	runCmd.Flags().BoolVar(&live, "live", false, "live terminal view")
	runCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "no progress log on stdout")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "rdf and potential of mean force against Debye-Hückel",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&selA, "a", "", "first selection (ATOM or RES:ATOM)")
	analyzeCmd.Flags().StringVar(&selB, "b", "", "second selection")
	analyzeCmd.Flags().Float64Var(&rmax, "rmax", 0, "histogram range (nm)")
	analyzeCmd.Flags().Float64Var(&binW, "bin", 0, "bin width (nm)")
	analyzeCmd.Flags().IntVar(&skip, "skip", -1, "frames to discard")
	analyzeCmd.Flags().Float64Var(&rmin, "rmin", -1, "smallest radius in the rms comparison (nm)")
	analyzeCmd.Flags().IntVar(&every, "every", 5, "print every n-th bin")

	rigidCmd := &cobra.Command{
		Use:   "rigid [config.yaml]",
		Short: "build rigid bodies and report per residue",
		Args:  cobra.ExactArgs(1),
		RunE:  rigidReport,
	}

	lengthsCmd := &cobra.Command{
		Use:   "lengths",
		Short: "Bjerrum and Debye lengths of n ion pairs in a cubic box",
		Args:  cobra.NoArgs,
		RunE:  printLengths,
	}
	lengthsCmd.Flags().IntVar(&pairs, "pairs", 50, "ion pairs")
	lengthsCmd.Flags().Float64Var(&boxEdge, "box", 5, "box edge (nm)")
	lengthsCmd.Flags().Float64Var(&epsR, "epsr", 78.5, "relative dielectric constant")
	lengthsCmd.Flags().Float64Var(&temp, "temp", 300, "temperature (K)")
	lengthsCmd.Flags().Float64Var(&valence, "valence", 1, "ion valence")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and series as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, name := range config.ListPresets() {
				fmt.Fprintf(w, "%s\t%s\n", name, config.GetPreset(name).Description)
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(initCmd, runCmd, analyzeCmd, rigidCmd, lengthsCmd, listCmd, showCmd, exportCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initPreset(cmd *cobra.Command, args []string) error {
	p := config.GetPreset(args[0])
	if p == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
	}
	if err := os.MkdirAll(initDir, 0755); err != nil {
		return err
	}
	top, err := p.Structure(initSeed)
	if err != nil {
		return fmt.Errorf("generate structure: %w", err)
	}
	cfg := p.Config()
	cfg.Structure = "structure.pdb"
	cfg.ForceField = "forcefield.yaml"
	cfg.Seed = initSeed

	if err := topology.WritePDBFile(filepath.Join(initDir, cfg.Structure), top); err != nil {
		return err
	}
	if err := p.ForceField().Save(filepath.Join(initDir, cfg.ForceField)); err != nil {
		return err
	}
	if err := config.Save(filepath.Join(initDir, "config.yaml"), cfg); err != nil {
		return err
	}
	logger.Info("preset written", "preset", args[0], "dir", initDir, "atoms", top.NumAtoms(), "residues", top.NumResidues())
	fmt.Printf("ionsim run %s\n", filepath.Join(initDir, "config.yaml"))
	return nil
}

// liveView keeps the live reporter open past Run so a failure can be shown
// in the view before it exits.
type liveView struct{ *reporters.LiveReporter }

func (liveView) Close() error { return nil }

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if live {
		// the view owns the terminal
		logger.SetOutput(io.Discard)
	}

	p, err := sim.FromConfig(cfg, logger)
	if err != nil {
		return err
	}
	if err := p.Setup(); err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Create(cfg.Name)
	if err != nil {
		return err
	}
	top := p.Topology()
	if err := st.SaveStructure(runID, top); err != nil {
		return err
	}
	if err := config.Save(st.Path(runID, storage.ConfigFile), cfg); err != nil {
		return err
	}
	ff, err := cfg.LoadForceField()
	if err != nil {
		return err
	}
	if err := ff.Save(st.Path(runID, storage.ForceFieldFile)); err != nil {
		return err
	}

	dof := p.DegreesOfFreedom()
	interval := cfg.ReportInterval
	traj, err := reporters.NewDCD(st.Path(runID, storage.TrajectoryFile), top.NumAtoms(), interval)
	if err != nil {
		return err
	}
	thermo := reporters.NewThermo(interval, dof)
	reps := []engine.Reporter{traj, thermo}

	var view *reporters.LiveReporter
	switch {
	case live:
		view = reporters.NewLive(cfg.Name, interval, cfg.TotalSteps(), dof)
		reps = append(reps, liveView{view})
	case !quiet:
		reps = append(reps, reporters.NewStateData(os.Stdout, interval, cfg.TotalSteps(), dof))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	res, runErr := p.Run(ctx, reps...)
	if view != nil {
		if runErr != nil {
			view.Fail(runErr)
		} else {
			view.Close()
		}
	}
	elapsed := time.Since(start)

	meta := &storage.RunMetadata{
		ID:                 runID,
		Name:               cfg.Name,
		Backend:            cfg.Backend,
		Timestamp:          start,
		Seed:               cfg.Seed,
		Timestep:           cfg.Timestep,
		Temperature:        cfg.Temperature,
		Friction:           cfg.Friction,
		Dielectric:         cfg.Dielectric,
		Cutoff:             cfg.Cutoff,
		Box:                top.Box,
		NumAtoms:           top.NumAtoms(),
		EquilibrationSteps: cfg.EquilibrationSteps,
		ProductionSteps:    cfg.ProductionSteps,
		ReportInterval:     interval,
		ForceField:         ff.Name,
		Metrics:            map[string]float64{},
	}
	if eps, ok := p.Dielectric(); ok {
		meta.Dielectric = eps
	}
	if res != nil {
		meta.Stages = make(map[string]float64, len(res.Stages))
		for _, s := range res.Stages {
			meta.Stages[s.Name] = s.Duration.Seconds()
		}
		if cfg.Rigid.Enabled {
			meta.Rigid = summarize(res)
		}
		meta.Metrics["potential_final"] = res.Final.Potential
		meta.Metrics["potential_initial"] = res.Potential0
	}
	pe, t := thermo.Averages()
	meta.Metrics["potential_avg"] = pe
	meta.Metrics["temperature_avg"] = t
	meta.Metrics["frames"] = float64(traj.Frames())
	if comp, err := ff.Composition(top); err == nil {
		if l, err := electro.Estimate(meta.Dielectric, cfg.Temperature, comp); err == nil {
			meta.Metrics["bjerrum_nm"] = l.Bjerrum
			meta.Metrics["debye_nm"] = l.Debye
		}
	}

	if err := st.SaveThermo(runID, thermo.Rows()); err != nil {
		return err
	}
	if err := st.SaveMetadata(meta); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("run %s: %w", runID, runErr)
	}

	fmt.Printf("completed in %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("frames: %d\n", traj.Frames())
	fmt.Printf("<PE> %.3f kJ/mol  <T> %.2f K\n", pe, t)
	return nil
}

func summarize(res *sim.Result) *storage.RigidSummary {
	s := &storage.RigidSummary{Residues: len(res.Rigid), Incomplete: len(res.Incomplete)}
	for _, r := range res.Rigid {
		s.Pairs += r.Total
		s.Constrained += len(r.Constrained)
	}
	return s
}

func rigidReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Rigid.Enabled {
		logger.Warn("rigid bodies disabled in config, building anyway")
		cfg.Rigid.Enabled = true
	}
	p, err := sim.FromConfig(cfg, logger)
	if err != nil {
		return err
	}
	if err := p.Setup(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	top := p.Topology()
	fmt.Fprintln(w, "RESIDUE\tATOMS\tPAIRS\tBONDS\tCENTRE (nm)\tFLEXIBLE")
	incomplete := 0
	for _, r := range p.RigidReports() {
		flex := "-"
		if !r.Rigid() {
			incomplete++
			flex = fmt.Sprint(r.Skipped)
		}
		c := top.Centre(r.Residue)
		fmt.Fprintf(w, "%s%d\t%d\t%d\t%d\t%.3f %.3f %.3f\t%s\n", r.Residue.Name, r.Residue.ID, r.Residue.Len(), r.Total, len(r.Constrained), c[0], c[1], c[2], flex)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	h := p.Handles()
	fmt.Printf("\nbonds: %d", h.Bonds.NumBonds())
	for _, ex := range h.Excluders() {
		fmt.Printf("  exclusions: %d", ex.NumExclusions())
	}
	fmt.Println()
	if incomplete > 0 {
		fmt.Printf("%d residue(s) not fully rigid at threshold %g nm\n", incomplete, cfg.Rigid.Threshold)
	}
	return nil
}

func printLengths(cmd *cobra.Command, args []string) error {
	if pairs <= 0 || boxEdge <= 0 {
		return errors.New("pairs and box must be positive")
	}
	comp := electro.IonPairs(pairs, boxEdge*boxEdge*boxEdge)
	for i := range comp.Species {
		comp.Species[i].Valence *= valence
	}
	l, err := electro.Estimate(epsR, temp, comp)
	if err != nil {
		return err
	}
	ionic, err := comp.IonicStrength()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "particles\t%d\n", comp.NumParticles())
	fmt.Fprintf(w, "volume\t%.4g nm^3\n", comp.Volume)
	fmt.Fprintf(w, "ionic strength\t%.4g M\n", ionic)
	fmt.Fprintf(w, "bjerrum length\t%.4f nm\n", l.Bjerrum)
	fmt.Fprintf(w, "debye length\t%.4f nm\n", l.Debye)
	return w.Flush()
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

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFORCEFIELD\tTIME\tATOMS\tSTEPS\tDT\tT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.4fps\t%.1fK\n",
			run.ID,
			run.ForceField,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.NumAtoms,
			run.EquilibrationSteps+run.ProductionSteps,
			run.Timestep,
			run.Temperature,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "id\t%s\n", meta.ID)
	fmt.Fprintf(w, "name\t%s\n", meta.Name)
	fmt.Fprintf(w, "backend\t%s\n", meta.Backend)
	fmt.Fprintf(w, "forcefield\t%s\n", meta.ForceField)
	fmt.Fprintf(w, "atoms\t%d\n", meta.NumAtoms)
	fmt.Fprintf(w, "box\t%.3f x %.3f x %.3f nm\n", meta.Box[0], meta.Box[1], meta.Box[2])
	fmt.Fprintf(w, "temperature\t%.1f K\n", meta.Temperature)
	fmt.Fprintf(w, "timestep\t%g ps\n", meta.Timestep)
	fmt.Fprintf(w, "steps\t%d + %d\n", meta.EquilibrationSteps, meta.ProductionSteps)
	if meta.Rigid != nil {
		fmt.Fprintf(w, "rigid\t%d residues, %d/%d pairs, %d incomplete\n", meta.Rigid.Residues, meta.Rigid.Constrained, meta.Rigid.Pairs, meta.Rigid.Incomplete)
	}
	for _, k := range sortedKeys(meta.Stages) {
		fmt.Fprintf(w, "stage %s\t%.3fs\n", k, meta.Stages[k])
	}
	for _, k := range sortedKeys(meta.Metrics) {
		v := meta.Metrics[k]
		if math.IsNaN(v) {
			continue
		}
		fmt.Fprintf(w, "%s\t%.6g\n", k, v)
	}
	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if outFile == "" {
		return st.Export(args[0], os.Stdout)
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := st.Export(args[0], f); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", outFile)
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
