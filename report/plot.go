// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"errors"
	"path/filepath"

	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// PlotOptions controls figure rendering.
type PlotOptions struct {
	LogY   bool
	Width  vg.Length
	Height vg.Length
}

// DefaultPlotOptions returns a 6 × 5 inch log-scale layout.
func DefaultPlotOptions() PlotOptions {
	return PlotOptions{LogY: true, Width: 6 * vg.Inch, Height: 5 * vg.Inch}
}

var errEmptyFigure = errors.New("report: every histogram of the figure is empty")

// Plot draws a figure with a ratio panel below it. The panel shows every series divided by
// the reference series of the figure, bins where the reference is empty are left out.
// Empty histograms are left out of the plot.
func Plot(fig Figure, opts PlotOptions) (*hplot.RatioPlot, error) {
	rp := hplot.NewRatioPlot()
	rp.Ratio = 0.3

	top := rp.Top
	top.Title.Text = fig.Title
	top.Title.Padding = 2 * vg.Millimeter
	top.Y.Label.Text = "Normalized counts"
	top.Legend.Top = true
	top.Legend.Padding = 2 * vg.Millimeter
	if opts.LogY {
		top.Y.Scale = plot.LogScale{}
		top.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}

	ref := fig.Series[fig.Reference]
	bottom := rp.Bottom
	bottom.X.Label.Text = fig.XLabel
	bottom.Y.Label.Text = "Ratio to " + ref.Name
	bottom.Add(hplot.HLine(1, nil, nil))

	drawn := 0
	for i, s := range fig.Series {
		if s.Hist.Entries() == 0 {
			continue
		}
		h := hplot.NewH1D(s.Hist, hplot.WithLogY(opts.LogY))
		h.LineStyle.Color = plotutil.Color(i)
		h.LineStyle.Width = vg.Points(1.5)
		top.Add(h)
		top.Legend.Add(s.Label, h)
		drawn++

		if i == fig.Reference || ref.Hist.Entries() == 0 {
			continue
		}
		ratio, err := hbook.DivideH1D(s.Hist, ref.Hist, hbook.DivIgnoreNaNs())
		if err != nil {
			return nil, err
		}
		if ratio.Len() == 0 {
			continue
		}
		pts := hplot.NewS2D(ratio, hplot.WithYErrBars(true))
		pts.GlyphStyle.Color = plotutil.Color(i)
		if pts.YErrs != nil {
			pts.YErrs.LineStyle.Color = plotutil.Color(i)
		}
		bottom.Add(pts)
	}
	if drawn == 0 {
		return nil, errEmptyFigure
	}

	bottom.X.Min, bottom.X.Max = top.X.Min, top.X.Max
	return rp, nil
}

// SaveFigures renders every non-empty figure into dir as <prefix><figure name>.<ext>.
// The extension selects the image format (png, pdf, svg ...).
func SaveFigures(dir, prefix, ext string, figs []Figure, opts PlotOptions) ([]string, error) {
	var paths []string
	for _, fig := range figs {
		p, err := Plot(fig, opts)
		if errors.Is(err, errEmptyFigure) {
			continue
		} else if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, prefix+fig.Name+"."+ext)
		if err = hplot.Save(p, opts.Width, opts.Height, path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
