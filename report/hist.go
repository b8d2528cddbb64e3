// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"io"
	"math"

	"github.com/curioloop/svfit/jet"
	"go-hep.org/x/hep/hbook"
)

// AllFlavours disables the flavour filter.
const AllFlavours = -1

// Series is one histogram of a figure.
type Series struct {
	Name  string
	Label string
	Hist  *hbook.H1D
}

// Figure is a set of histograms drawn together.
type Figure struct {
	Name   string
	Title  string
	XLabel string
	Series []Series
	// Reference is the index of the series the ratio panel divides by.
	Reference int
}

// BookOptions controls histogram booking.
type BookOptions struct {
	// Flavour keeps only jets with this truth label, AllFlavours keeps every jet.
	Flavour int
	// Normalize scales every histogram to unit area.
	Normalize bool
}

type binning struct {
	n         int
	low, high float64
}

var (
	lxyBins      = binning{40, 0, 40}
	residualBins = binning{80, -40, 40}
	scoreBins    = binning{50, 0, 5}
)

func newSeries(name, label string, b binning) Series {
	h := hbook.NewH1D(b.n, b.low, b.high)
	h.Annotation()["name"] = name
	return Series{Name: name, Label: label, Hist: h}
}

// fill ignores NaN and infinite values.
func fill(h *hbook.H1D, x float64) {
	if !math.IsNaN(x) && !math.IsInf(x, 0) {
		h.Fill(x, 1)
	}
}

// Book fills the Lxy comparison, the Lxy residual and the score figures.
func Book(rows []Row, opts BookOptions) []Figure {
	lxy := Figure{
		Name:   "lxy",
		Title:  "Transverse decay length",
		XLabel: "Lxy [mm]",
		Series: []Series{
			newSeries("truth", "MC truth", lxyBins),
			newSeries("gn2", "Fit with GN2 track selection", lxyBins),
			newSeries("perfect", "Fit with perfect track selection", lxyBins),
			newSeries("sv1", "SV1", lxyBins),
		},
	}
	residuals := Figure{
		Name:   "residuals",
		Title:  "Transverse decay length residuals",
		XLabel: "fit Lxy - MC Lxy [mm]",
		Series: []Series{
			newSeries("gn2", "Fit with GN2 track selection", residualBins),
			newSeries("perfect", "Fit with perfect track selection", residualBins),
			newSeries("sv1", "SV1", residualBins),
		},
		Reference: 1,
	}
	score := Figure{
		Name:   "score",
		Title:  "Fit score",
		XLabel: "score",
		Series: []Series{
			newSeries("perfect", "Score with perfect track selection", scoreBins),
			newSeries("gn2", "Score with GN2 track selection", scoreBins),
		},
	}

	for _, r := range rows {
		if opts.Flavour != AllFlavours && r.Flavour != opts.Flavour {
			continue
		}
		fill(lxy.Series[0].Hist, r.TruthLxy)
		fill(lxy.Series[1].Hist, r.GN2Lxy)
		fill(lxy.Series[2].Hist, r.PerfectLxy)
		fill(lxy.Series[3].Hist, r.SV1Lxy)

		fill(residuals.Series[0].Hist, r.GN2Lxy-r.TruthLxy)
		fill(residuals.Series[1].Hist, r.PerfectLxy-r.TruthLxy)
		fill(residuals.Series[2].Hist, r.SV1Lxy-r.TruthLxy)

		fill(score.Series[0].Hist, r.TruthScore)
		fill(score.Series[1].Hist, r.GN2Score)
	}

	figs := []Figure{lxy, residuals, score}
	if opts.Normalize {
		for _, fig := range figs {
			for _, s := range fig.Series {
				if area := s.Hist.Integral(); area > 0 {
					s.Hist.Scale(1 / area)
				}
			}
		}
	}
	return figs
}

// FlavourSet names a flavour filter.
type FlavourSet struct {
	Name    string
	Flavour int
}

// FlavourSets are the jet sets booked by BookSets.
var FlavourSets = []FlavourSet{
	{"inclusive", AllFlavours},
	{"cjets", jet.Charm},
	{"bjets", jet.Bottom},
}

// BookSets books the figures of every flavour set. Figure names get the set name as suffix,
// e.g. lxy_bjets.
func BookSets(rows []Row, normalize bool) []Figure {
	var figs []Figure
	for _, set := range FlavourSets {
		for _, fig := range Book(rows, BookOptions{Flavour: set.Flavour, Normalize: normalize}) {
			fig.Name += "_" + set.Name
			figs = append(figs, fig)
		}
	}
	return figs
}

// WriteYODA writes every histogram in YODA format under /svfit/<figure>/<series>.
func WriteYODA(w io.Writer, figs []Figure) error {
	for _, fig := range figs {
		for _, s := range fig.Series {
			s.Hist.Annotation()["path"] = "/svfit/" + fig.Name + "/" + s.Name
			raw, err := s.Hist.MarshalYODA()
			if err != nil {
				return err
			}
			if _, err = w.Write(raw); err != nil {
				return err
			}
		}
	}
	return nil
}
