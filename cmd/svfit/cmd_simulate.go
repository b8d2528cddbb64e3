// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"os"

	"github.com/curioloop/svfit/dataset"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	simJets int
	simSeed int64
)

// simulateCmd implements the 'svfit simulate' command
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Generate a toy jet and track dataset",
	Long: `Generate jets with straight tracks from a primary vertex and, for heavy flavour
jets, from a displaced secondary vertex. The tables are written to the import
paths of the configuration and can be read back by 'svfit import' or 'svfit fit'.`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().IntVarP(&simJets, "jets", "n", 0, "Number of jets, overrides simulation.jets")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "Random seed, overrides simulation.seed")
}

func runSimulate(cmd *cobra.Command, _ []string) (err error) {
	if cmd.Flags().Changed("jets") {
		cfg.Simulation.Jets = simJets
	}
	if cmd.Flags().Changed("seed") {
		cfg.Simulation.Seed = simSeed
	}
	if err = cfg.Validate(); err != nil {
		return err
	}
	sim := cfg.Simulation

	jf, err := os.Create(cfg.Import.Jets)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, jf.Close()) }()
	tf, err := os.Create(cfg.Import.Tracks)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, tf.Close()) }()

	if err = dataset.Simulate(jf, tf, sim); err != nil {
		return err
	}
	log.Info().
		Int("jets", sim.Jets).
		Int64("seed", sim.Seed).
		Str("jets_file", cfg.Import.Jets).
		Str("tracks_file", cfg.Import.Tracks).
		Msg("dataset simulated")
	return nil
}
