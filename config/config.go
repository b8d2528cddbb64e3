// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the YAML configuration of the svfit command.
package config

import (
	"fmt"
	"os"

	"github.com/curioloop/svfit/dataset"
	"github.com/curioloop/svfit/vertex"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration. Absent keys keep their Default value.
type Config struct {
	Log        Log                `yaml:"log"`
	Metrics    Metrics            `yaml:"metrics"`
	Store      Store              `yaml:"store"`
	Import     Import             `yaml:"import"`
	Fit        Fit                `yaml:"fit"`
	Analysis   Analysis           `yaml:"analysis"`
	Report     Report             `yaml:"report"`
	Simulation dataset.Simulation `yaml:"simulation"`
}

// Log configures the zerolog output.
type Log struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// Metrics configures the Prometheus text file dump, disabled when File is empty.
type Metrics struct {
	File string `yaml:"file"`
}

// Store configures the dataset database, in memory when Path is empty.
type Store struct {
	Path string `yaml:"path"`
}

// Import locates the dataset tables and selects the jets read from them.
type Import struct {
	Jets             string   `yaml:"jets" validate:"required"`
	Tracks           string   `yaml:"tracks" validate:"required"`
	MaxJets          int      `yaml:"max_jets" validate:"gte=0"`
	OnlySV1          bool     `yaml:"only_sv1"`
	CustomProperties []string `yaml:"custom_properties" validate:"dive,required"`
}

// Fit holds the vertex fitter termination criteria.
type Fit struct {
	Tolerance     float64 `yaml:"tolerance" validate:"gt=0"`
	MaxIterations int     `yaml:"max_iterations" validate:"gt=0"`
	// StallLimit is the number of consecutive stalled steps tolerated. Absent takes the
	// fitter default, 0 stops at the first stalled step.
	StallLimit  *int `yaml:"stall_limit" validate:"omitempty,gte=0"`
	Diagnostics bool `yaml:"diagnostics"`
}

// Analysis configures the batch fit.
type Analysis struct {
	Workers   int  `yaml:"workers" validate:"gte=0"`
	KeepLight bool `yaml:"keep_light"`
}

// Report configures the outputs.
type Report struct {
	Table     string `yaml:"table" validate:"required"`
	YODA      string `yaml:"yoda"`
	PlotDir   string `yaml:"plot_dir"`
	Format    string `yaml:"format" validate:"oneof=png pdf svg jpg"`
	Flavour   *int   `yaml:"flavour" validate:"omitempty,oneof=0 4 5 15"`
	Normalize bool   `yaml:"normalize"`
	LogY      bool   `yaml:"log_y"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log:   Log{Level: "info", Format: "console"},
		Store: Store{Path: "svfit.db"},
		Import: Import{
			Jets:   "jets.dat",
			Tracks: "tracks.dat",
		},
		Fit: Fit{
			Tolerance:     vertex.DefaultTolerance,
			MaxIterations: vertex.DefaultMaxIterations,
		},
		Report: Report{
			Table:     "fit_results.dat",
			Format:    "png",
			Normalize: true,
			LogY:      true,
		},
		Simulation: dataset.DefaultSimulation(),
	}
}

// Termination converts the fit section into fitter termination criteria.
func (f Fit) Termination() vertex.Termination {
	stop := vertex.Termination{Tolerance: f.Tolerance, MaxIterations: f.MaxIterations}
	switch {
	case f.StallLimit == nil:
	case *f.StallLimit == 0:
		stop.StallLimit = vertex.StopOnStall
	default:
		stop.StallLimit = *f.StallLimit
	}
	return stop
}

// Options converts the import section into dataset options.
func (i Import) Options() dataset.Options {
	return dataset.Options{MaxJets: i.MaxJets, OnlySV1: i.OnlySV1, CustomProperties: i.CustomProperties}
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and validates a configuration file. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
