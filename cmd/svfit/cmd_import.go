// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/curioloop/svfit/dataset"
	"github.com/curioloop/svfit/jet"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	importName string

	jetsPath   string
	tracksPath string
	maxJets    int
	onlySV1    bool
)

// importCmd implements the 'svfit import' command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import jet and track tables into the dataset store",
	Long: `Read the jet and track tables, validate them and store the jets in the dataset
database. The id of the new dataset is printed on stdout.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importName, "name", "", "Dataset name, defaults to the jets file name")
	tableFlags(importCmd)
}

// tableFlags adds the flags overriding the import section of the configuration.
func tableFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&jetsPath, "jets-file", "", "Jet table, overrides import.jets")
	cmd.Flags().StringVar(&tracksPath, "tracks-file", "", "Track table, overrides import.tracks")
	cmd.Flags().IntVar(&maxJets, "max-jets", 0, "Maximum number of jets to read, 0 for all")
	cmd.Flags().BoolVar(&onlySV1, "only-sv1", false, "Keep only jets with an SV1 vertex")
}

// loadTables reads the dataset tables named by the configuration and the table flags.
func loadTables(cmd *cobra.Command) ([]jet.Jet, error) {
	imp := cfg.Import
	if cmd.Flags().Changed("jets-file") {
		imp.Jets = jetsPath
	}
	if cmd.Flags().Changed("tracks-file") {
		imp.Tracks = tracksPath
	}
	if cmd.Flags().Changed("max-jets") {
		imp.MaxJets = maxJets
	}
	if cmd.Flags().Changed("only-sv1") {
		imp.OnlySV1 = onlySV1
	}
	if imp.MaxJets < 0 {
		return nil, errors.New("max jets must not be negative")
	}
	cfg.Import = imp

	opts := imp.Options()
	opts.Logger = log.Logger
	return dataset.Load(imp.Jets, imp.Tracks, opts)
}

func runImport(cmd *cobra.Command, _ []string) (err error) {
	jets, err := loadTables(cmd)
	if err != nil {
		return err
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.Close()) }()

	name := importName
	if name == "" {
		name = filepath.Base(cfg.Import.Jets)
	}
	info, err := s.PutDataset(name, jets)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), info.ID)
	return err
}
