// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package track models reconstructed particle trajectories as straight lines.
//
// Coordinates use a right-handed frame whose first axis is the beam (longitudinal) axis,
// relabelled from the detector frame as
//
//	detector  →  track
//	   x      →    y
//	   y      →    z
//	   z      →    x
//
// so components 1 and 2 span the transverse plane and a jet rotated by π/2 in azimuth
// points along the third ("vertical") axis.
package track

import (
	"math"

	"github.com/curioloop/svfit/geom"
)

// UnitTolerance is the largest accepted deviation of ‖direction‖ from 1.
const UnitTolerance = 1e-9

// Params holds the perigee parameters of a track and their uncertainties.
type Params struct {
	Pt  float64 // transverse momentum, carried along but unused by the geometry
	Eta float64 // pseudorapidity
	Phi float64 // azimuthal angle
	D0  float64 // signed transverse impact parameter
	Z0  float64 // longitudinal impact parameter

	SigmaTheta float64
	SigmaPhi   float64
	SigmaD0    float64
	SigmaZ0    float64
}

// Labels are the provenance tags of a track, used for track selection only.
type Labels struct {
	Truth     Label // truth origin from simulation
	Predicted Label // origin predicted by the GN2 tagger
	SV1       bool  // whether SV1 associated the track to its secondary vertex
}

// Track is a straight line 𝐫 + t𝐚 with a diagonal covariance on (𝐫, 𝐚).
// The zero value is not a valid track, use New or FromLine.
type Track struct {
	pt     float64
	origin geom.Vec3
	dir    geom.Vec3
	cov    geom.Diag6
	labels Labels
}

// Theta converts pseudorapidity into polar angle.
func Theta(eta float64) float64 {
	return 2 * math.Atan(math.Exp(-eta))
}

// New builds a track from its perigee parameters.
//
// The direction is (cosθ, sinθcosφ, sinθsinφ). The origin lies at distance |d₀| from the beam
// axis at azimuth φ∓π/2, where the sign flip for negative d₀ keeps the origin on a consistent
// side of the track; d₀ = 0 takes the non-negative branch. The four uncertainties are propagated
// to first order into the variances of the six line components.
func New(p Params, labels Labels) (Track, error) {
	for _, f := range [...]struct {
		name string
		v    float64
	}{
		{"pt", p.Pt}, {"eta", p.Eta}, {"phi", p.Phi}, {"d0", p.D0}, {"z0", p.Z0},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return Track{}, &invalidParamError{name: f.name, value: f.v}
		}
	}
	for _, f := range [...]struct {
		name string
		v    float64
	}{
		{"sigma theta", p.SigmaTheta}, {"sigma phi", p.SigmaPhi}, {"sigma d0", p.SigmaD0}, {"sigma z0", p.SigmaZ0},
	} {
		if !(f.v >= 0) || math.IsInf(f.v, 0) {
			return Track{}, &invalidParamError{name: f.name, value: f.v}
		}
	}

	theta := Theta(p.Eta)
	sinT, cosT := math.Sincos(theta)
	sinP, cosP := math.Sincos(p.Phi)

	phiP := p.Phi - math.Pi/2
	if p.D0 < 0 {
		phiP = p.Phi + math.Pi/2
	}
	sinQ, cosQ := math.Sincos(phiP)
	r := math.Abs(p.D0)

	sq := func(x float64) float64 { return x * x }
	st, sp, sd, sz := p.SigmaTheta, p.SigmaPhi, p.SigmaD0, p.SigmaZ0

	return Track{
		pt:     p.Pt,
		origin: geom.Vec3{p.Z0, r * cosQ, r * sinQ},
		dir:    geom.Vec3{cosT, sinT * cosP, sinT * sinP},
		cov: geom.Diag6{
			sq(sz),
			sq(cosQ*sd) + sq(sinQ*p.D0*sp),
			sq(sinQ*sd) + sq(cosQ*p.D0*sp),
			sq(sinT * st),
			sq(cosT*cosP*st) + sq(sinT*sinP*sp),
			sq(cosT*sinP*st) + sq(sinT*cosP*sp),
		},
		labels: labels,
	}, nil
}

// FromLine builds a track directly from its line representation.
// The direction must already be a unit vector and the variances non-negative.
func FromLine(origin, dir geom.Vec3, cov geom.Diag6, labels Labels) (Track, error) {
	if n := dir.Norm(); !(math.Abs(n-1) <= UnitTolerance) {
		return Track{}, &directionNormError{norm: n}
	}
	for i, v := range origin {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Track{}, &invalidParamError{name: originNames[i], value: v}
		}
	}
	for i, v := range cov {
		if !(v >= 0) || math.IsInf(v, 0) {
			return Track{}, &invalidParamError{name: covNames[i], value: v}
		}
	}
	return Track{origin: origin, dir: dir, cov: cov, labels: labels}, nil
}

var (
	originNames = [3]string{"origin z", "origin x", "origin y"}
	covNames    = [6]string{
		"var origin z", "var origin x", "var origin y",
		"var direction z", "var direction x", "var direction y",
	}
)

// Pt returns the transverse momentum.
func (t Track) Pt() float64 { return t.pt }

// Origin returns the point of closest approach to the beam line.
func (t Track) Origin() geom.Vec3 { return t.origin }

// Direction returns the unit propagation direction.
func (t Track) Direction() geom.Vec3 { return t.dir }

// Covariance returns the diagonal of the 6 × 6 covariance on (origin, direction).
func (t Track) Covariance() geom.Diag6 { return t.cov }

// Labels returns the provenance labels.
func (t Track) Labels() Labels { return t.labels }

// Evaluate returns the point at parameter s along the track.
func (t Track) Evaluate(s float64) geom.Vec3 {
	return t.origin.Add(t.dir.Scale(s))
}
