// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/curioloop/svfit/analysis"
	"github.com/curioloop/svfit/jet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeRows(f *gofakeit.Faker, n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		truth := f.Float64Range(0, 30)
		rows[i] = Row{
			GN2Lxy:     truth + f.Float64Range(-3, 3),
			PerfectLxy: truth + f.Float64Range(-1, 1),
			SV1Lxy:     truth + f.Float64Range(-2, 2),
			TruthLxy:   truth,
			Flavour:    []int{jet.Charm, jet.Bottom}[i%2],
			TruthScore: f.Float64Range(0, 1),
			GN2Score:   f.Float64Range(0, 4),
		}
	}
	return rows
}

func TestRowOf(t *testing.T) {
	rec := analysis.Record{
		Jet: 3, Flavour: jet.Bottom, SV1Lxy: 2, TruthLxy: 3,
		Truth:     analysis.Fit{Lxy: 4, Score: 0.5},
		Predicted: analysis.Fit{Lxy: 5, Score: 0.7},
	}
	assert.Equal(t, Row{GN2Lxy: 5, PerfectLxy: 4, SV1Lxy: 2, TruthLxy: 3, Flavour: 5, TruthScore: 0.5, GN2Score: 0.7}, RowOf(&rec))
	assert.Len(t, Rows([]analysis.Record{rec, rec}), 2)
}

func TestTableRoundTrip(t *testing.T) {
	rows := fakeRows(gofakeit.New(1), 50)
	rows[3].SV1Lxy = math.NaN()

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, rows))
	assert.True(t, strings.HasPrefix(buf.String(), strings.Join(Header, " ")+"\n"))

	got, err := ReadTable(&buf)
	require.NoError(t, err)
	require.Len(t, got, len(rows))
	assert.True(t, math.IsNaN(got[3].SV1Lxy))
	got[3].SV1Lxy, rows[3].SV1Lxy = 0, 0
	assert.Equal(t, rows, got)
}

func TestReadTableErrors(t *testing.T) {
	_, err := ReadTable(strings.NewReader("GN2_tracksel_Lxy SV1_Lxy\n1 2\n"))
	assert.Error(t, err)

	swapped := slicesSwap(Header, 0, 1)
	_, err = ReadTable(strings.NewReader(strings.Join(swapped, " ") + "\n"))
	assert.Error(t, err)

	_, err = ReadTable(strings.NewReader(strings.Join(Header, " ") + "\n1 2 3\n"))
	assert.Error(t, err)
}

func slicesSwap(s []string, i, j int) []string {
	c := append([]string(nil), s...)
	c[i], c[j] = c[j], c[i]
	return c
}

func TestBook(t *testing.T) {
	rows := []Row{
		{GN2Lxy: 1.5, PerfectLxy: 2.5, SV1Lxy: math.NaN(), TruthLxy: 2.2, Flavour: jet.Bottom, TruthScore: 0.01, GN2Score: 0.3},
		{GN2Lxy: 10.5, PerfectLxy: 12.5, SV1Lxy: 11.5, TruthLxy: 12, Flavour: jet.Charm, TruthScore: 0.02, GN2Score: 7},
		{GN2Lxy: 45, PerfectLxy: 3.5, SV1Lxy: 3.5, TruthLxy: 3, Flavour: jet.Bottom, TruthScore: 0, GN2Score: 0},
	}

	figs := Book(rows, BookOptions{Flavour: AllFlavours})
	require.Len(t, figs, 3)
	names := make([]string, len(figs))
	for i, fig := range figs {
		names[i] = fig.Name
	}
	assert.Equal(t, []string{"lxy", "residuals", "score"}, names)

	lxy := figs[0]
	assert.EqualValues(t, 3, lxy.Series[0].Hist.Entries())
	assert.EqualValues(t, 2, lxy.Series[3].Hist.Entries()) // NaN SV1 skipped
	// out of range values are kept in the overflow
	assert.EqualValues(t, 3, lxy.Series[1].Hist.Entries())
	assert.Equal(t, 2.0, lxy.Series[1].Hist.Integral(0, 40))

	res := figs[1]
	x, y := res.Series[1].Hist.XY(40) // lower edge of bin [0, 1)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 3.0, y)
	assert.Equal(t, 0.5, res.Series[1].Hist.Binning.Bins[40].XMid())

	b := Book(rows, BookOptions{Flavour: jet.Bottom})
	assert.EqualValues(t, 2, b[0].Series[0].Hist.Entries())
	c := Book(rows, BookOptions{Flavour: jet.Charm, Normalize: true})
	assert.InDelta(t, 1, c[0].Series[0].Hist.Integral(), 1e-12)
	assert.InDelta(t, 1, c[1].Series[0].Hist.Integral(), 1e-12)
}

func TestWriteYODA(t *testing.T) {
	figs := Book(fakeRows(gofakeit.New(2), 20), BookOptions{Flavour: AllFlavours})

	var buf bytes.Buffer
	require.NoError(t, WriteYODA(&buf, figs))
	out := buf.String()

	n := 0
	for _, fig := range figs {
		n += len(fig.Series)
	}
	assert.Equal(t, n, strings.Count(out, "BEGIN YODA_HISTO1D"))
	for _, name := range []string{"truth", "gn2", "perfect", "sv1"} {
		assert.Contains(t, out, name)
	}
}

func TestSaveFigures(t *testing.T) {
	dir := t.TempDir()
	figs := Book(fakeRows(gofakeit.New(3), 200), BookOptions{Flavour: AllFlavours, Normalize: true})
	figs = append(figs, Book(nil, BookOptions{Flavour: AllFlavours})[0])
	figs[len(figs)-1].Name = "empty"

	paths, err := SaveFigures(dir, "test_", "png", figs, DefaultPlotOptions())
	require.NoError(t, err)
	require.Len(t, paths, 3)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0), fmt.Sprint(p))
	}

	_, err = Plot(figs[3], DefaultPlotOptions())
	assert.ErrorIs(t, err, errEmptyFigure)
}

func TestBookSets(t *testing.T) {
	rows := fakeRows(gofakeit.New(4), 20)
	figs := BookSets(rows, false)
	require.Len(t, figs, 3*len(FlavourSets))

	byName := make(map[string]Figure, len(figs))
	for _, fig := range figs {
		byName[fig.Name] = fig
	}
	assert.EqualValues(t, 20, byName["lxy_inclusive"].Series[0].Hist.Entries())
	assert.EqualValues(t, 10, byName["lxy_cjets"].Series[0].Hist.Entries())
	assert.EqualValues(t, 10, byName["lxy_bjets"].Series[0].Hist.Entries())
	assert.Contains(t, byName, "residuals_bjets")
	assert.Contains(t, byName, "score_cjets")

	var buf bytes.Buffer
	require.NoError(t, WriteYODA(&buf, figs))
	assert.Contains(t, buf.String(), "/svfit/lxy_bjets/truth")
	assert.Contains(t, buf.String(), "/svfit/score_inclusive/gn2")

	dir := t.TempDir()
	paths, err := SaveFigures(dir, "", "svg", figs, DefaultPlotOptions())
	require.NoError(t, err)
	assert.Len(t, paths, len(figs))
	assert.FileExists(t, filepath.Join(dir, "lxy_cjets.svg"))
}

func TestPlotRatio(t *testing.T) {
	figs := Book(fakeRows(gofakeit.New(5), 100), BookOptions{Flavour: AllFlavours, Normalize: true})

	for _, fig := range figs {
		rp, err := Plot(fig, DefaultPlotOptions())
		require.NoError(t, err)
		assert.Equal(t, "Ratio to "+fig.Series[fig.Reference].Name, rp.Bottom.Y.Label.Text)
		assert.Equal(t, fig.XLabel, rp.Bottom.X.Label.Text)
		assert.Equal(t, rp.Top.X.Min, rp.Bottom.X.Min)
		assert.Equal(t, rp.Top.X.Max, rp.Bottom.X.Max)
	}
	assert.Equal(t, "truth", figs[0].Series[figs[0].Reference].Name)
	assert.Equal(t, "perfect", figs[1].Series[figs[1].Reference].Name)
	assert.Equal(t, "perfect", figs[2].Series[figs[2].Reference].Name)

	// an empty reference leaves the ratio panel without points
	rows := fakeRows(gofakeit.New(6), 10)
	for i := range rows {
		rows[i].TruthLxy = math.NaN()
	}
	_, err := Plot(Book(rows, BookOptions{Flavour: AllFlavours})[0], DefaultPlotOptions())
	assert.NoError(t, err)
}
