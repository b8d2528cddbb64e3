// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package analysis fits the secondary vertex of every jet of a dataset with several track selections.
package analysis

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/curioloop/svfit/geom"
	"github.com/curioloop/svfit/jet"
	"github.com/curioloop/svfit/track"
	"github.com/curioloop/svfit/vertex"
	"github.com/rs/zerolog"
)

// Fit is the vertex fitted with one track selection.
type Fit struct {
	Vertex geom.Vec3
	Lxy    float64
	Score  float64
	Tracks int
	vertex.Summary
}

// Record is the outcome for one jet.
type Record struct {
	Jet      int // row of the jet in the dataset
	Flavour  int
	SV1Lxy   float64
	TruthLxy float64

	Truth     Fit // fit of the tracks with a heavy flavour truth origin
	Predicted Fit // fit of the tracks GN2 predicts as heavy flavour
}

// Options configures a Runner.
type Options struct {
	// Workers is the number of jets fitted concurrently, GOMAXPROCS when zero.
	Workers int
	// KeepLight also fits jets that are not labelled as b or c jets.
	KeepLight bool
	// Metrics is updated while fitting when not nil.
	Metrics *Metrics
	// Logger receives progress and summary messages. The zero value discards them.
	Logger zerolog.Logger
}

// Runner fits the jets of a dataset.
type Runner struct {
	fitter *vertex.Fitter
	opts   Options
}

// NewRunner creates a Runner that uses fitter for every selection.
func NewRunner(fitter *vertex.Fitter, opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Runner{fitter: fitter, opts: opts}
}

// Run fits every jet and returns one record per fitted jet in dataset order.
// Light jets are skipped unless KeepLight is set, and jets where either selection is empty are skipped.
// Run stops handing out jets once ctx is done and then returns the context error.
func (r *Runner) Run(ctx context.Context, jets []jet.Jet) ([]Record, error) {
	results := make([]*Record, len(jets))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < r.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.fitJet(i, &jets[i])
			}
		}()
	}

	var err error
feed:
	for i := range jets {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err != nil {
		r.opts.Logger.Warn().Err(err).Msg("fit interrupted")
		return nil, err
	}

	records := make([]Record, 0, len(jets))
	for _, rec := range results {
		if rec != nil {
			records = append(records, *rec)
		}
	}

	r.opts.Logger.Info().
		Int("jets", len(jets)).
		Int("fitted", len(records)).
		Int("skipped", len(jets)-len(records)).
		Int("workers", r.opts.Workers).
		Msg("fit finished")

	return records, nil
}

func (r *Runner) fitJet(index int, j *jet.Jet) *Record {
	if !r.opts.KeepLight && !j.IsHeavyFlavour() {
		r.count(OutcomeLight)
		return nil
	}

	truth, predicted := j.Select(jet.Truth), j.Select(jet.Predicted)
	if len(truth) == 0 || len(predicted) == 0 {
		r.count(OutcomeEmptySelection)
		return nil
	}

	start := time.Now()
	rec := &Record{
		Jet:       index,
		Flavour:   j.Flavour,
		SV1Lxy:    j.SV1Lxy,
		TruthLxy:  j.TruthLxy,
		Truth:     r.fit(jet.Truth, truth),
		Predicted: r.fit(jet.Predicted, predicted),
	}
	if m := r.opts.Metrics; m != nil {
		m.FitSeconds.Observe(time.Since(start).Seconds())
	}
	r.count(OutcomeFitted)

	r.opts.Logger.Debug().
		Int("jet", index).
		Int("flavour", j.Flavour).
		Float64("truth_lxy", j.TruthLxy).
		Float64("fit_lxy", rec.Truth.Lxy).
		Float64("gn2_lxy", rec.Predicted.Lxy).
		Msg("jet fitted")
	return rec
}

func (r *Runner) fit(sel jet.Selection, tracks []track.Track) Fit {
	res := r.fitter.Fit(tracks)
	if m := r.opts.Metrics; m != nil {
		m.Iterations.WithLabelValues(sel.String()).Observe(float64(res.NumIter))
		m.Scores.WithLabelValues(sel.String()).Observe(res.Score)
		m.Status.WithLabelValues(sel.String(), res.Status.String()).Inc()
	}
	return Fit{
		Vertex:  res.Vertex,
		Lxy:     jet.Lxy(res.Vertex),
		Score:   res.Score,
		Tracks:  len(tracks),
		Summary: res.Summary,
	}
}

func (r *Runner) count(outcome string) {
	if m := r.opts.Metrics; m != nil {
		m.Jets.WithLabelValues(outcome).Inc()
	}
}
