// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vertex fits a single common vertex to a set of straight tracks.
//
// The fitter minimizes the weighted mean of squared point-to-line distances
//
//	𝑺(𝐯) = ∑ᵢ 𝒅ᵢ(𝐯)² / (N σᵢ)    𝒅ᵢ(𝐯)² = ‖(𝐫ᵢ - 𝐯) × 𝐚ᵢ‖²
//
// with Newton steps 𝐯 ← 𝐯 - (∇²𝑺)⁺∇𝑺. Each weight σᵢ = 𝐉ᵢᵀ𝐂ᵢ𝐉ᵢ is the variance of 𝒅ᵢ² propagated from
// the diagonal covariance 𝐂ᵢ of the track origin and direction through the Jacobian 𝐉ᵢ = ∂𝒅ᵢ²/∂(𝐫ᵢ, 𝐚ᵢ).
// The weights are frozen within an iteration and refreshed between iterations, so every step solves
// a symmetric positive semi-definite 3 × 3 system. The pseudo-inverse keeps degenerate geometries
// (a single track, parallel tracks) from failing: they produce a finite step instead.
package vertex

import (
	"errors"
	"math"

	"github.com/curioloop/svfit/geom"
	"github.com/curioloop/svfit/track"
	"github.com/rs/zerolog"
)

const (
	// DefaultTolerance is the step length below which an iteration counts as stalled.
	DefaultTolerance = 1e-6
	// DefaultMaxIterations bounds the number of Newton steps.
	DefaultMaxIterations = 1000
	// DefaultStallLimit is the number of consecutive stalled iterations tolerated before stopping.
	DefaultStallLimit = 5
	// StopOnStall as StallLimit stops at the first stalled iteration.
	StopOnStall = -1

	// weightReg keeps σᵢ away from zero for tracks with an exactly vanishing covariance or residual.
	weightReg = 1e-9
)

// Termination specifies the stopping criteria of the fit.
// Zero fields take the package defaults.
type Termination struct {
	// The iteration stalls when the vertex moves less than Tolerance.
	Tolerance float64
	// The iteration stops after MaxIterations steps.
	MaxIterations int
	// The iteration stops once more than StallLimit consecutive steps have stalled.
	// Use StopOnStall to tolerate none, zero takes the default.
	StallLimit int
}

// Status tells why the fit loop ended. Both outcomes are normal terminations.
type Status int

const (
	// Stalled the step length stayed below tolerance for more than StallLimit iterations.
	Stalled Status = iota
	// IterLimit the maximum number of iterations was reached.
	IterLimit
)

func (s Status) String() string {
	switch s {
	case Stalled:
		return "stalled"
	case IterLimit:
		return "iteration limit"
	default:
		return "unknown"
	}
}

// Option configures a Fitter.
type Option func(*Fitter)

// WithLogger sets the logger. Iterations are traced at trace level and the fit summary at debug level.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Fitter) {
		f.logger = logger
	}
}

// WithDiagnostics makes the fitter record the condition number of the curvature matrix at every
// iteration. It does not change the fitted vertex.
func WithDiagnostics() Option {
	return func(f *Fitter) {
		f.diagnose = true
	}
}

// Fitter is a single vertex fitter for straight tracks.
// It holds only immutable configuration and may be shared by concurrent goroutines.
type Fitter struct {
	stop     Termination
	diagnose bool
	logger   zerolog.Logger
}

// New creates a Fitter with the given termination criteria.
func New(stop Termination, opts ...Option) (fitter *Fitter, err error) {

	if stop.Tolerance == 0 {
		stop.Tolerance = DefaultTolerance
	}
	if stop.MaxIterations == 0 {
		stop.MaxIterations = DefaultMaxIterations
	}
	if stop.StallLimit == 0 {
		stop.StallLimit = DefaultStallLimit
	}

	switch {
	case !(stop.Tolerance > 0) || math.IsInf(stop.Tolerance, 0):
		err = errors.New("tolerance must be a positive finite number")
	case stop.MaxIterations < 0:
		err = errors.New("max iteration must greater than 0")
	case stop.StallLimit < StopOnStall:
		err = errors.New("stall limit must not less than StopOnStall")
	}

	if err != nil {
		return
	}

	fitter = &Fitter{stop: stop, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(fitter)
	}
	return
}

// Termination returns the effective stopping criteria.
func (f *Fitter) Termination() Termination {
	return f.stop
}

// Result contains the outcome of a fit.
type Result struct {
	Vertex geom.Vec3 // Fitted vertex, in the track frame.
	Score  float64   // Fit quality score, see Score.
	Summary
}

// Summary describes how the fit went.
type Summary struct {
	Status  Status // Why the loop ended.
	NumIter int    // Number of Newton steps performed.
	Rank    int    // Pseudo-rank of the curvature matrix at the last step.
	MinRank int    // Smallest pseudo-rank seen over all steps.
	// Largest condition number of the curvature matrix over all steps.
	// NaN unless the fitter was built WithDiagnostics.
	Cond float64
}

// Fit returns the vertex that best matches the tracks.
//
// The fit starts at the mean track origin. It never fails on numerically degenerate input;
// callers that need to reject poor fits must threshold the returned score.
// Fit panics when tracks is empty.
func (f *Fitter) Fit(tracks []track.Track) *Result {

	if len(tracks) == 0 {
		panic("vertex: no tracks to fit")
	}

	res := &Result{Summary: Summary{Status: IterLimit, Rank: 3, MinRank: 3, Cond: math.NaN()}}
	if f.diagnose {
		res.Cond = 0
	}

	v := meanOrigin(tracks)
	stall := stallCounter{limit: max(f.stop.StallLimit, 0)}
	dv := math.Inf(1)

	for res.NumIter < f.stop.MaxIterations {
		if stall.observe(dv, f.stop.Tolerance) {
			res.Status = Stalled
			break
		}

		grad, curv := accumulate(tracks, v)
		inv, rank := curv.Pinv()

		next := v.Sub(inv.MulVec(grad))
		dv = next.Sub(v).Norm()
		v = next

		res.NumIter++
		res.Rank = rank
		res.MinRank = min(res.MinRank, rank)
		if f.diagnose {
			res.Cond = math.Max(res.Cond, curv.Cond())
		}

		f.logger.Trace().
			Int("iter", res.NumIter).
			Floats64("vertex", v[:]).
			Float64("step", dv).
			Int("rank", rank).
			Int("stuck", stall.n).
			Msg("vertex fit iteration")
	}

	res.Vertex = v
	res.Score = Score(tracks, v)

	f.logger.Debug().
		Int("tracks", len(tracks)).
		Stringer("status", res.Status).
		Int("iterations", res.NumIter).
		Int("min_rank", res.MinRank).
		Float64("score", res.Score).
		Msg("vertex fit done")

	return res
}
