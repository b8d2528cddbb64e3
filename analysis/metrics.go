// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package analysis

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of a jet in the batch.
const (
	OutcomeFitted         = "fitted"
	OutcomeLight          = "light"
	OutcomeEmptySelection = "empty_selection"
)

// Metrics holds the Prometheus collectors updated by a Runner.
type Metrics struct {
	Jets       *prometheus.CounterVec
	Iterations *prometheus.HistogramVec
	Scores     *prometheus.HistogramVec
	Status     *prometheus.CounterVec
	FitSeconds prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Jets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "svfit_jets_total",
				Help: "Number of jets processed by outcome",
			},
			[]string{"outcome"},
		),
		Iterations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "svfit_fit_iterations",
				Help:    "Newton iterations per vertex fit",
				Buckets: []float64{6, 7, 8, 10, 15, 20, 50, 100, 500, 1000},
			},
			[]string{"selection"},
		),
		Scores: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "svfit_fit_score",
				Help:    "Vertex fit quality score",
				Buckets: prometheus.ExponentialBuckets(1e-6, 10, 10),
			},
			[]string{"selection"},
		),
		Status: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "svfit_fit_status_total",
				Help: "Vertex fits by termination status",
			},
			[]string{"selection", "status"},
		),
		FitSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "svfit_jet_fit_duration_seconds",
				Help:    "Time spent fitting all selections of one jet",
				Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
			},
		),
	}

	for _, c := range []prometheus.Collector{m.Jets, m.Iterations, m.Scores, m.Status, m.FitSeconds} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
