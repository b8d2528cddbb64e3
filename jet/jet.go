// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jet groups tracks into jets and selects the tracks handed to the vertex fitter.
package jet

import (
	"fmt"
	"math"

	"github.com/curioloop/svfit/geom"
	"github.com/curioloop/svfit/track"
)

// Flavour codes of the truth hadron label.
const (
	Light  = 0
	Charm  = 4
	Bottom = 5
	Tau    = 15
)

// Properties are the jet level quantities of the dataset.
type Properties struct {
	NTracks        int
	SV1L3d         float64 // NaN when SV1 found no vertex
	SV1Lxy         float64
	Eta            float64
	Phi            float64
	Pt             float64
	PrimaryVertexZ float64
	Flavour        int     // truth hadron label
	TruthLxy       float64 // NaN when the dataset carries no truth decay length

	Custom map[string]float64
}

// Jet is a set of tracks with its properties.
type Jet struct {
	Properties
	Tracks []track.Track
}

// IsHeavyFlavour reports whether the jet is labelled as a b or c jet.
func (p *Properties) IsHeavyFlavour() bool {
	return p.Flavour == Bottom || p.Flavour == Charm
}

// HasSV1 reports whether SV1 reconstructed a vertex for the jet.
func (p *Properties) HasSV1() bool {
	return !math.IsNaN(p.SV1L3d)
}

// Selection picks the subset of tracks used to fit the secondary vertex.
type Selection int

const (
	// All keeps every track.
	All Selection = iota
	// Truth keeps tracks whose simulated origin is a heavy flavour decay.
	Truth
	// Predicted keeps tracks the GN2 tagger classifies as heavy flavour decay products.
	Predicted
	// SV1 keeps tracks that SV1 attached to its vertex.
	SV1
)

var selectionNames = [...]string{"all", "truth", "gn2", "sv1"}

func (s Selection) String() string {
	if s < All || s > SV1 {
		return fmt.Sprintf("selection(%d)", int(s))
	}
	return selectionNames[s]
}

// ParseSelection returns the selection with the given name.
func ParseSelection(name string) (Selection, error) {
	for i, n := range selectionNames {
		if n == name {
			return Selection(i), nil
		}
	}
	return All, fmt.Errorf("unknown track selection %q", name)
}

// Keep reports whether the selection accepts the track.
func (s Selection) Keep(t *track.Track) bool {
	switch s {
	case All:
		return true
	case Truth:
		return t.Labels().Truth.HeavyFlavour()
	case Predicted:
		return t.Labels().Predicted.HeavyFlavour()
	case SV1:
		return t.Labels().SV1
	default:
		panic("jet: unknown selection " + s.String())
	}
}

// Select returns the tracks accepted by sel in their original order.
func (j *Jet) Select(sel Selection) []track.Track {
	var tracks []track.Track
	for i := range j.Tracks {
		if sel.Keep(&j.Tracks[i]) {
			tracks = append(tracks, j.Tracks[i])
		}
	}
	return tracks
}

// Lxy returns the transverse distance of v from the beam axis.
func Lxy(v geom.Vec3) float64 {
	return math.Hypot(v[1], v[2])
}
