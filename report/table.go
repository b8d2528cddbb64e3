// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report writes fit results as a flat table and books and draws the Lxy histograms
// comparing the track selections.
package report

import (
	"fmt"
	"io"
	"slices"

	"github.com/curioloop/svfit/analysis"
	"github.com/curioloop/svfit/dataset"
)

// Header is the column set of the results table.
var Header = []string{
	"GN2_tracksel_Lxy",
	"perfect_tracksel_Lxy",
	"SV1_Lxy",
	"HadronConeExclTruthLabelLxy",
	"HadronConeExclTruthLabelID",
	"Truth_Chi2",
	"GN2_chi2",
}

// Row is one line of the results table.
type Row struct {
	GN2Lxy     float64 // Lxy of the fit with the GN2 track selection
	PerfectLxy float64 // Lxy of the fit with the truth track selection
	SV1Lxy     float64
	TruthLxy   float64
	Flavour    int
	TruthScore float64
	GN2Score   float64
}

// RowOf flattens a fit record.
func RowOf(rec *analysis.Record) Row {
	return Row{
		GN2Lxy:     rec.Predicted.Lxy,
		PerfectLxy: rec.Truth.Lxy,
		SV1Lxy:     rec.SV1Lxy,
		TruthLxy:   rec.TruthLxy,
		Flavour:    rec.Flavour,
		TruthScore: rec.Truth.Score,
		GN2Score:   rec.Predicted.Score,
	}
}

// Rows flattens fit records.
func Rows(records []analysis.Record) []Row {
	rows := make([]Row, len(records))
	for i := range records {
		rows[i] = RowOf(&records[i])
	}
	return rows
}

// WriteTable writes the results table.
func WriteTable(w io.Writer, rows []Row) error {
	tw, err := dataset.NewTableWriter(w, Header)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err = tw.Write(r.GN2Lxy, r.PerfectLxy, r.SV1Lxy, r.TruthLxy, float64(r.Flavour), r.TruthScore, r.GN2Score); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// ReadTable reads a results table written by WriteTable.
func ReadTable(r io.Reader) ([]Row, error) {
	t, err := dataset.ReadTable("results", r)
	if err != nil {
		return nil, err
	}
	idx, err := t.Columns(Header...)
	if err != nil {
		return nil, err
	}
	if !slices.Equal(idx, []int{0, 1, 2, 3, 4, 5, 6}) {
		return nil, fmt.Errorf("results: unexpected column order")
	}

	rows := make([]Row, t.Len())
	for i := range rows {
		v := t.Row(i)
		rows[i] = Row{v[0], v[1], v[2], v[3], int(v[4]), v[5], v[6]}
	}
	return rows, nil
}
