// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/curioloop/svfit/config"
	"github.com/curioloop/svfit/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	logLevel    string
	logFormat   string
	metricsFile string
	storePath   string

	// cfg is loaded before any subcommand runs.
	cfg config.Config
)

// rootCmd is the base command for the svfit CLI
var rootCmd = &cobra.Command{
	Use:   "svfit",
	Short: "Secondary vertex fitting for jets with straight tracks",
	Long: `svfit fits a single secondary vertex to the tracks of each jet, once with the
tracks whose truth origin is a heavy flavour decay and once with the tracks GN2
predicts as such, and compares the resulting decay lengths with SV1.

Example usage:
  svfit simulate --jets 500                 # Write toy jets.dat and tracks.dat
  svfit import                              # Store the tables, print the dataset id
  svfit fit --dataset <id> --save           # Fit and store the run
  svfit hist --plots plots                  # Histogram the results table`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to the YAML configuration file")
	pf.StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error, disabled")
	pf.StringVar(&logFormat, "log-format", "", "Log format: console, json")
	pf.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this text file")
	pf.StringVar(&storePath, "store", "", "Path of the dataset database")
}

// setup loads the configuration, applies the persistent flags over it and configures logging.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	if cfg, err = config.Load(configPath); err != nil {
		return err
	}

	pf := cmd.Flags()
	if pf.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if pf.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if pf.Changed("metrics-file") {
		cfg.Metrics.File = metricsFile
	}
	if pf.Changed("store") {
		cfg.Store.Path = storePath
	}
	if err = cfg.Validate(); err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = cmd.ErrOrStderr()
	if cfg.Log.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}

// openStore opens the configured dataset database.
func openStore() (*store.Store, error) {
	s, err := store.Open(cfg.Store.Path, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", cfg.Store.Path, err)
	}
	return s, nil
}

// writeMetrics dumps the registry to the configured metrics file, if any.
func writeMetrics(reg *prometheus.Registry) error {
	if cfg.Metrics.File == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(cfg.Metrics.File, reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	log.Info().Str("file", cfg.Metrics.File).Msg("metrics written")
	return nil
}
