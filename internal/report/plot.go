package report

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"quantsim/internal/engine"
)

var ErrNoCurves = errors.New("nothing to plot")

// Curve is one labelled portfolio value series.
type Curve struct {
	Label  string
	Days   []time.Time
	Values []float64
}

// CurveOf extracts the portfolio value curve of traj.
func CurveOf(label string, traj *engine.Trajectory) Curve {
	return Curve{Label: label, Days: traj.Axes().Days(), Values: traj.ValueSeries()}
}

// PlotEquity renders value curves on a shared date axis and saves the chart
// to path. The image format follows the file extension (.png, .svg, .pdf).
func PlotEquity(path, title string, curves []Curve) error {
	if len(curves) == 0 {
		return ErrNoCurves
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Portfolio value"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Legend.Top = true
	p.Legend.Left = true

	grid := plotter.NewGrid()
	dashes := []vg.Length{vg.Points(2), vg.Points(2)}
	grid.Horizontal.Dashes = dashes
	grid.Vertical.Dashes = dashes
	p.Add(grid)

	for i, c := range curves {
		if len(c.Days) != len(c.Values) {
			return fmt.Errorf("curve %q: %d days for %d values", c.Label, len(c.Days), len(c.Values))
		}
		xys := make(plotter.XYs, len(c.Values))
		for j := range c.Values {
			xys[j].X = float64(c.Days[j].Unix())
			xys[j].Y = c.Values[j]
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("curve %q: %w", c.Label, err)
		}
		line.LineStyle.Color = plotutil.Color(i)
		line.LineStyle.Width = vg.Points(1.2)
		p.Add(line)
		p.Legend.Add(c.Label, line)
	}

	if err := p.Save(12*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}
