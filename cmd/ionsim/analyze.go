package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/ionsim/internal/analysis"
	"github.com/san-kum/ionsim/internal/config"
	"github.com/san-kum/ionsim/internal/electro"
	"github.com/san-kum/ionsim/internal/forcefield"
	"github.com/san-kum/ionsim/internal/storage"
)

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	cfg, err := config.Load(st.Path(runID, storage.ConfigFile))
	if err != nil {
		return fmt.Errorf("run config: %w", err)
	}
	ff, err := forcefield.Load(st.Path(runID, storage.ForceFieldFile))
	if err != nil {
		return fmt.Errorf("run force field: %w", err)
	}
	top, err := st.LoadStructure(runID)
	if err != nil {
		return err
	}

	ac := cfg.Analysis
	flags := cmd.Flags()
	if flags.Changed("a") {
		ac.A = selA
	}
	if flags.Changed("b") {
		ac.B = selB
	}
	if flags.Changed("rmax") {
		ac.RMax = rmax
	}
	if flags.Changed("bin") {
		ac.BinWidth = binW
	}
	if flags.Changed("skip") {
		ac.Skip = skip
	}
	if flags.Changed("rmin") {
		ac.RMin = rmin
	}

	a, err := analysis.ParseSelection(ac.A)
	if err != nil {
		return err
	}
	b, err := analysis.ParseSelection(ac.B)
	if err != nil {
		return err
	}
	ia, ib := a.Indices(top), b.Indices(top)
	logger.Info("selections", "a", a, "na", len(ia), "b", b, "nb", len(ib))

	frames, err := analysis.DCDFrames(st.Path(runID, storage.TrajectoryFile), top.NumAtoms())
	if err != nil {
		return err
	}
	rdf, err := analysis.ComputeRDF(frames, meta.Box, ia, ib, analysis.Options{RMax: ac.RMax, BinWidth: ac.BinWidth, Skip: ac.Skip})
	if err != nil {
		return err
	}

	comp, err := ff.Composition(top)
	if err != nil {
		return err
	}
	lengths, err := electro.Estimate(meta.Dielectric, meta.Temperature, comp)
	if err != nil {
		return err
	}
	cmp := analysis.Compare(rdf, ac.Z1, ac.Z2, lengths.Bjerrum, lengths.Debye, ac.RMin)

	rows := make([]storage.RDFRow, len(cmp.Points))
	for i, pt := range cmp.Points {
		rows[i] = storage.RDFRow{R: pt.R, G: pt.G, PMF: pt.PMF, Screened: pt.Screened}
	}
	if err := st.SaveRDF(runID, rows); err != nil {
		return err
	}

	fmt.Printf("rdf %s-%s: %s\n", a, b, meta.ID)
	fmt.Printf("frames: %d  pairs/frame: %d\n", rdf.Frames, rdf.Pairs)
	fmt.Printf("bjerrum length: %.4f nm\n", lengths.Bjerrum)
	fmt.Printf("debye length:   %.4f nm\n\n", lengths.Debye)

	step := every
	if step < 1 {
		step = 1
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "r (nm)\tg(r)\tw (kT)\tw_DH (kT)\t")
	for i := 0; i < len(cmp.Points); i += step {
		pt := cmp.Points[i]
		fmt.Fprintf(w, "%.3f\t%.4f\t%.4f\t%.4f\t\n", pt.R, pt.G, pt.PMF, pt.Screened)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nrms(w - w_DH) over %d bins with r >= %.2f nm: %.4f kT\n", cmp.Used, cmp.RMin, cmp.RMS)
	fmt.Printf("written: %s\n", st.Path(runID, storage.RDFFile))
	return nil
}
