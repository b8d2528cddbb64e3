// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/curioloop/svfit/analysis"
	"github.com/curioloop/svfit/jet"
	"github.com/curioloop/svfit/report"
	"github.com/curioloop/svfit/store"
	"github.com/curioloop/svfit/vertex"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	fitDataset string
	fitSave    bool
	fitOutput  string
	fitWorkers int
)

// fitCmd implements the 'svfit fit' command
var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit the secondary vertex of every jet",
	Long: `Fit the secondary vertex of every heavy flavour jet twice, with the truth and
with the GN2 predicted heavy flavour tracks, and write the results table.

The jets come from a stored dataset when --dataset is given and are read from
the import tables otherwise. With --save the run is stored next to its dataset.`,
	Args: cobra.NoArgs,
	RunE: runFit,
}

func init() {
	rootCmd.AddCommand(fitCmd)
	fitCmd.Flags().StringVar(&fitDataset, "dataset", "", "Id of a stored dataset")
	fitCmd.Flags().BoolVar(&fitSave, "save", false, "Store the run, the dataset is imported first when read from tables")
	fitCmd.Flags().StringVarP(&fitOutput, "output", "o", "", "Results table, overrides report.table")
	fitCmd.Flags().IntVarP(&fitWorkers, "workers", "w", 0, "Number of fitting goroutines, overrides analysis.workers")
	tableFlags(fitCmd)
}

func runFit(cmd *cobra.Command, _ []string) (err error) {
	if cmd.Flags().Changed("output") {
		cfg.Report.Table = fitOutput
	}
	if cmd.Flags().Changed("workers") {
		cfg.Analysis.Workers = fitWorkers
	}
	if err = cfg.Validate(); err != nil {
		return err
	}

	var s *store.Store
	if fitDataset != "" || fitSave {
		if s, err = openStore(); err != nil {
			return err
		}
		defer func() { err = errors.Join(err, s.Close()) }()
	}

	id, jets, err := fitInput(cmd, s)
	if err != nil {
		return err
	}

	opts := []vertex.Option{vertex.WithLogger(log.Logger)}
	if cfg.Fit.Diagnostics {
		opts = append(opts, vertex.WithDiagnostics())
	}
	fitter, err := vertex.New(cfg.Fit.Termination(), opts...)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics, err := analysis.NewMetrics(reg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	start := time.Now()
	records, err := analysis.NewRunner(fitter, analysis.Options{
		Workers:   cfg.Analysis.Workers,
		KeepLight: cfg.Analysis.KeepLight,
		Metrics:   metrics,
		Logger:    log.Logger,
	}).Run(ctx, jets)
	if err != nil {
		return err
	}

	if err = writeResults(cfg.Report.Table, report.Rows(records)); err != nil {
		return err
	}
	log.Info().
		Int("records", len(records)).
		Dur("elapsed", time.Since(start)).
		Str("table", cfg.Report.Table).
		Msg("results written")

	if fitSave {
		settings, err := yaml.Marshal(struct {
			Fit      any `yaml:"fit"`
			Analysis any `yaml:"analysis"`
		}{cfg.Fit, cfg.Analysis})
		if err != nil {
			return err
		}
		run, err := s.PutRun(id, string(settings), records)
		if err != nil {
			return err
		}
		if _, err = fmt.Fprintln(cmd.OutOrStdout(), run.ID); err != nil {
			return err
		}
	}

	return writeMetrics(reg)
}

// fitInput returns the jets to fit and the id of their stored dataset.
// Jets read from tables are imported first when the run is saved.
func fitInput(cmd *cobra.Command, s *store.Store) (uuid.UUID, []jet.Jet, error) {
	if fitDataset != "" {
		id, err := uuid.Parse(fitDataset)
		if err != nil {
			return uuid.Nil, nil, fmt.Errorf("dataset id: %w", err)
		}
		jets, err := s.Jets(id)
		if err != nil {
			return uuid.Nil, nil, err
		}
		return id, jets, nil
	}

	jets, err := loadTables(cmd)
	if err != nil || !fitSave {
		return uuid.Nil, jets, err
	}
	info, err := s.PutDataset(cfg.Import.Jets, jets)
	if err != nil {
		return uuid.Nil, nil, err
	}
	return info.ID, jets, nil
}

func writeResults(path string, rows []report.Row) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, f.Close()) }()
	return report.WriteTable(f, rows)
}
