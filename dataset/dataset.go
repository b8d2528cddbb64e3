// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dataset reads flavour tagging jet and track tables into jets of straight tracks.
//
// A dataset is two whitespace separated tables. The jets table holds one row per jet and the
// tracks table one row per track, with a jet column giving the 0-based row of the owning jet.
// The first line of each table names its columns; columns are looked up by name so their order
// and any extra columns do not matter.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/curioloop/svfit/jet"
	"github.com/curioloop/svfit/track"
	"github.com/rs/zerolog"
)

// Jet table columns.
const (
	ColNTracksLoose   = "n_tracks_loose"
	ColNTracks        = "n_tracks"
	ColSV1L3d         = "SV1_L3d"
	ColSV1Lxy         = "SV1_Lxy"
	ColJetEta         = "eta"
	ColJetPhi         = "phi"
	ColJetPt          = "pt"
	ColPrimaryVertexZ = "primaryVertexDetectorZ"
	ColFlavour        = "HadronConeExclTruthLabelID"
	ColTruthLxy       = "HadronConeExclTruthLabelLxy"
)

// Track table columns.
const (
	ColJet            = "jet"
	ColPt             = "pt"
	ColEta            = "eta"
	ColDPhi           = "dphi"
	ColD0             = "IP3D_signed_d0"
	ColZ0             = "z0RelativeToBeamspot"
	ColTruthOrigin    = "ftagTruthOriginLabel"
	ColSV1VertexIndex = "SV1VertexIndex"
	ColSigmaTheta     = "thetaUncertainty"
	ColSigmaPhi       = "phiUncertainty"
	ColSigmaD0        = "d0Uncertainty"
	ColSigmaZ0        = "z0RelativeToBeamspotUncertainty"
)

// OriginScoreColumns are the GN2 origin class probabilities, in track.Label order.
var OriginScoreColumns = [track.NumClasses]string{
	"Pileup", "Fake", "Primary", "FromB", "FromBC", "FromC", "FromTau", "OtherSecondary",
}

// JetColumns is the column set written for jets.
var JetColumns = []string{
	ColNTracks, ColSV1L3d, ColSV1Lxy, ColJetEta, ColJetPhi, ColJetPt, ColPrimaryVertexZ, ColFlavour, ColTruthLxy,
}

// TrackColumns is the column set written for tracks.
var TrackColumns = append([]string{
	ColJet, ColPt, ColEta, ColDPhi, ColD0, ColZ0, ColTruthOrigin, ColSV1VertexIndex,
	ColSigmaTheta, ColSigmaPhi, ColSigmaD0, ColSigmaZ0,
}, OriginScoreColumns[:]...)

// Options controls which jets are imported.
type Options struct {
	// MaxJets bounds the number of jet rows read, 0 reads them all.
	// Filtered jets count towards the bound.
	MaxJets int
	// OnlySV1 drops jets without an SV1 vertex or without SV1 tracks.
	OnlySV1 bool
	// CustomProperties names extra jet columns copied into Properties.Custom.
	CustomProperties []string
	// Logger receives the import summary. The zero value discards it.
	Logger zerolog.Logger
}

// Read reads a dataset from a jets table and a tracks table.
func Read(jets, tracks io.Reader, opts Options) ([]jet.Jet, error) {
	jetsTable, err := ReadTable("jets", jets)
	if err != nil {
		return nil, err
	}
	tracksTable, err := ReadTable("tracks", tracks)
	if err != nil {
		return nil, err
	}
	return build(jetsTable, tracksTable, opts)
}

// Load reads a dataset from a jets table file and a tracks table file.
func Load(jetsPath, tracksPath string, opts Options) ([]jet.Jet, error) {
	jf, err := os.Open(jetsPath)
	if err != nil {
		return nil, err
	}
	defer jf.Close()

	tf, err := os.Open(tracksPath)
	if err != nil {
		return nil, err
	}
	defer tf.Close()

	jetsTable, err := ReadTable("jets", jf)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", jetsPath, err)
	}
	tracksTable, err := ReadTable("tracks", tf)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", tracksPath, err)
	}
	return build(jetsTable, tracksTable, opts)
}

type jetColumns struct {
	nTracks, sv1L3d, sv1Lxy, eta, phi, pt, pvz, flavour, truthLxy int
	nTracksName                                                   string
	custom                                                        []int
}

func resolveJetColumns(t *Table, custom []string) (c jetColumns, err error) {
	var req []int
	if req, err = t.Columns(ColSV1L3d, ColSV1Lxy, ColJetEta, ColJetPt, ColFlavour); err != nil {
		return
	}
	c.sv1L3d, c.sv1Lxy, c.eta, c.pt, c.flavour = req[0], req[1], req[2], req[3], req[4]

	c.nTracksName = ColNTracksLoose
	if !t.Has(c.nTracksName) {
		c.nTracksName = ColNTracks
	}
	c.nTracks = t.Optional(c.nTracksName)
	c.phi = t.Optional(ColJetPhi)
	c.pvz = t.Optional(ColPrimaryVertexZ)
	c.truthLxy = t.Optional(ColTruthLxy)

	c.custom, err = t.Columns(custom...)
	return
}

type trackColumns struct {
	jet, pt, eta, dphi, d0, z0, truth, sv1 int
	sigmaTheta, sigmaPhi, sigmaD0, sigmaZ0 int
	scores                                 []int
}

func resolveTrackColumns(t *Table) (c trackColumns, err error) {
	var req []int
	if req, err = t.Columns(
		ColJet, ColPt, ColEta, ColDPhi, ColD0, ColZ0, ColTruthOrigin, ColSV1VertexIndex,
		ColSigmaTheta, ColSigmaPhi, ColSigmaD0, ColSigmaZ0,
	); err != nil {
		return
	}
	c.jet, c.pt, c.eta, c.dphi, c.d0, c.z0, c.truth, c.sv1 = req[0], req[1], req[2], req[3], req[4], req[5], req[6], req[7]
	c.sigmaTheta, c.sigmaPhi, c.sigmaD0, c.sigmaZ0 = req[8], req[9], req[10], req[11]
	c.scores, err = t.Columns(OriginScoreColumns[:]...)
	return
}

func build(jets, tracks *Table, opts Options) ([]jet.Jet, error) {
	jc, err := resolveJetColumns(jets, opts.CustomProperties)
	if err != nil {
		return nil, err
	}
	tc, err := resolveTrackColumns(tracks)
	if err != nil {
		return nil, err
	}

	numJets := len(jets.rows)
	if opts.MaxJets > 0 {
		numJets = min(numJets, opts.MaxJets)
	}

	owned := make([][]track.Track, numJets)
	scores := make([]float64, track.NumClasses)
	for k, row := range tracks.rows {
		ref := row[tc.jet]
		if ref < 0 || ref >= float64(len(jets.rows)) || ref != math.Trunc(ref) {
			return nil, &JetRefError{Line: tracks.lines[k], Ref: ref, NumJets: len(jets.rows)}
		}
		j := int(ref)
		if j >= numJets {
			continue
		}

		for i, c := range tc.scores {
			scores[i] = row[c]
		}
		labels := track.Labels{
			Truth:     track.LabelFromCode(int(row[tc.truth])),
			Predicted: track.LabelFromScores(scores),
			SV1:       row[tc.sv1] == 0,
		}
		// rotate so the jet points along the vertical axis
		phi := row[tc.dphi] + math.Pi/2
		t, err := track.New(track.Params{
			Pt:         row[tc.pt],
			Eta:        row[tc.eta],
			Phi:        phi,
			D0:         row[tc.d0],
			Z0:         row[tc.z0],
			SigmaTheta: row[tc.sigmaTheta],
			SigmaPhi:   row[tc.sigmaPhi],
			SigmaD0:    row[tc.sigmaD0],
			SigmaZ0:    row[tc.sigmaZ0],
		}, labels)
		if err != nil {
			return nil, &LineError{Table: tracks.name, Line: tracks.lines[k], Err: err}
		}
		owned[j] = append(owned[j], t)
	}

	imported := make([]jet.Jet, 0, numJets)
	dropped := 0
	for i, row := range jets.rows[:numJets] {
		j := jet.Jet{
			Properties: jet.Properties{
				SV1L3d:         row[jc.sv1L3d],
				SV1Lxy:         row[jc.sv1Lxy],
				Eta:            row[jc.eta],
				Phi:            lookup(row, jc.phi, 0),
				Pt:             row[jc.pt],
				PrimaryVertexZ: lookup(row, jc.pvz, 0),
				Flavour:        int(row[jc.flavour]),
				TruthLxy:       lookup(row, jc.truthLxy, math.NaN()),
			},
			Tracks: owned[i],
		}

		// rows past the declared track count are padding
		if jc.nTracks >= 0 {
			n := row[jc.nTracks]
			if n < 0 || n != math.Trunc(n) {
				return nil, &LineError{Table: jets.name, Line: jets.lines[i], Column: jc.nTracksName, Err: errors.New("track count must be a non-negative integer")}
			}
			if int(n) < len(j.Tracks) {
				j.Tracks = j.Tracks[:int(n)]
			}
			j.NTracks = int(n)
		} else {
			j.NTracks = len(j.Tracks)
		}

		if len(opts.CustomProperties) > 0 {
			j.Custom = make(map[string]float64, len(opts.CustomProperties))
			for k, name := range opts.CustomProperties {
				j.Custom[name] = row[jc.custom[k]]
			}
		}

		if opts.OnlySV1 && (!j.HasSV1() || len(j.Select(jet.SV1)) == 0) {
			dropped++
			continue
		}
		imported = append(imported, j)
	}

	opts.Logger.Info().
		Int("rows", numJets).
		Int("imported", len(imported)).
		Int("dropped", dropped).
		Bool("only_sv1", opts.OnlySV1).
		Msg("dataset imported")

	return imported, nil
}
