// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package waveform

import (
	"io"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Default plot size.
//
const (
	PlotWidth  = 20 * vg.Centimeter
	PlotHeight = 10 * vg.Centimeter
)

// Plot returns a step plot of the signals. Signals are stacked vertically,
// each in its own lane of height 1, values being normalized to the signal
// width.
//
func Plot(title string, sigs []Signal) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "tick"
	p.Y.Label.Text = "signal"
	p.Y.Min = 0
	p.Y.Max = float64(len(sigs))

	var ticks []plot.Tick
	for i, s := range sigs {
		if s.Len() == 0 {
			continue
		}
		width := s.Width
		if width <= 0 {
			width = 1
		}
		max := float64(uint64(1)<<uint(width) - 1)
		if width >= 64 {
			max = float64(^uint64(0))
		}
		base := float64(len(sigs) - 1 - i)
		pts := make(plotter.XYs, 0, s.Len()+1)
		for j, t := range s.Ticks {
			pts = append(pts, plotter.XY{X: float64(t), Y: base + 0.1 + 0.8*float64(s.Values[j])/max})
		}
		// extend the last value by one tick
		_, last := s.Span()
		pts = append(pts, plotter.XY{X: float64(last + 1), Y: pts[len(pts)-1].Y})

		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, errors.Wrapf(err, "plot %s", s.Name)
		}
		l.StepStyle = plotter.PostStep
		l.Color = plotutil.Color(i)
		p.Add(l)
		p.Legend.Add(s.Name, l)
		ticks = append(ticks, plot.Tick{Value: base + 0.5, Label: s.Name})
	}
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)
	return p, nil
}

// SavePlot plots the signals to the given file. The image format is deduced
// from the file extension.
//
func SavePlot(path, title string, sigs []Signal) error {
	p, err := Plot(title, sigs)
	if err != nil {
		return err
	}
	return errors.Wrap(p.Save(PlotWidth, PlotHeight, path), "save plot")
}

// WritePlot writes a plot of the signals to w in the given format ("png",
// "svg", "pdf", ...).
//
func WritePlot(w io.Writer, format, title string, sigs []Signal) error {
	p, err := Plot(title, sigs)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(PlotWidth, PlotHeight, format)
	if err != nil {
		return errors.Wrap(err, "write plot")
	}
	_, err = wt.WriteTo(w)
	return errors.Wrap(err, "write plot")
}
