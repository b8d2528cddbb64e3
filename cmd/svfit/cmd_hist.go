// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"os"

	"github.com/curioloop/svfit/report"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	histInput   string
	histYODA    string
	histPlots   string
	histFormat  string
	histFlavour int
)

// histCmd implements the 'svfit hist' command
var histCmd = &cobra.Command{
	Use:   "hist",
	Short: "Histogram the decay lengths of a results table",
	Long: `Book the Lxy, residual and score histograms of a results table written by
'svfit fit', then write them as YODA text and render them as plots with a ratio
panel. Without --flavour the inclusive, c-jet and b-jet sets are written together,
suffixed _inclusive, _cjets and _bjets.

Example usage:
  svfit hist --yoda svfit.yoda
  svfit hist --plots plots --format pdf --flavour 5`,
	Args: cobra.NoArgs,
	RunE: runHist,
}

func init() {
	rootCmd.AddCommand(histCmd)
	histCmd.Flags().StringVarP(&histInput, "input", "i", "", "Results table, overrides report.table")
	histCmd.Flags().StringVar(&histYODA, "yoda", "", "YODA output file, overrides report.yoda")
	histCmd.Flags().StringVar(&histPlots, "plots", "", "Plot directory, overrides report.plot_dir")
	histCmd.Flags().StringVar(&histFormat, "format", "", "Plot format: png, pdf, svg, jpg")
	histCmd.Flags().IntVar(&histFlavour, "flavour", report.AllFlavours, "Keep only jets of this truth flavour")
}

func runHist(cmd *cobra.Command, _ []string) error {
	rc := &cfg.Report
	fl := cmd.Flags()
	if fl.Changed("input") {
		rc.Table = histInput
	}
	if fl.Changed("yoda") {
		rc.YODA = histYODA
	}
	if fl.Changed("plots") {
		rc.PlotDir = histPlots
	}
	if fl.Changed("format") {
		rc.Format = histFormat
	}
	if fl.Changed("flavour") {
		rc.Flavour = &histFlavour
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	rows, err := readResults(rc.Table)
	if err != nil {
		return err
	}

	// without a flavour filter the inclusive, c-jet and b-jet sets are all booked
	var figs []report.Figure
	if rc.Flavour != nil {
		figs = report.Book(rows, report.BookOptions{Flavour: *rc.Flavour, Normalize: rc.Normalize})
	} else {
		figs = report.BookSets(rows, rc.Normalize)
	}
	log.Info().Int("rows", len(rows)).Int("figures", len(figs)).Msg("histograms booked")

	if rc.YODA == "" && rc.PlotDir == "" {
		return report.WriteYODA(cmd.OutOrStdout(), figs)
	}

	if rc.YODA != "" {
		if err = writeYODA(rc.YODA, figs); err != nil {
			return err
		}
		log.Info().Str("file", rc.YODA).Msg("histograms written")
	}

	if rc.PlotDir != "" {
		if err = os.MkdirAll(rc.PlotDir, 0o755); err != nil {
			return err
		}
		po := report.DefaultPlotOptions()
		po.LogY = rc.LogY
		paths, err := report.SaveFigures(rc.PlotDir, "", rc.Format, figs, po)
		if err != nil {
			return err
		}
		log.Info().Strs("files", paths).Msg("plots saved")
	}
	return nil
}

func readResults(path string) ([]report.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return report.ReadTable(f)
}

func writeYODA(path string, figs []report.Figure) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, f.Close()) }()
	return report.WriteYODA(f, figs)
}
