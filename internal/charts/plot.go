package charts

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"a3p/internal/core"
)

// ErrEmptySeries is returned when there is nothing to plot.
var ErrEmptySeries = errors.New("empty coverage series")

// PlotOptions sizes a static coverage plot.
type PlotOptions struct {
	Title  string
	Width  vg.Length
	Height vg.Length
	// Periods, when set, are drawn as a step line over the daily series.
	Periods []core.PeriodPoint
}

func (o *PlotOptions) defaults() {
	if o.Title == "" {
		o.Title = "Adesões Vigentes"
	}
	if o.Width == 0 {
		o.Width = 14 * vg.Inch
	}
	if o.Height == 0 {
		o.Height = 6 * vg.Inch
	}
}

// CoveragePlot builds a gonum plot of the daily active count.
func CoveragePlot(points []core.CoveragePoint, o PlotOptions) (*plot.Plot, error) {
	if len(points) == 0 {
		return nil, ErrEmptySeries
	}
	o.defaults()

	p := plot.New()
	p.Title.Text = o.Title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = "Data"
	p.Y.Label.Text = "Vigentes"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	daily := make(plotter.XYs, len(points))
	for i, pt := range points {
		daily[i] = plotter.XY{X: float64(pt.Date.Unix()), Y: float64(pt.Active)}
	}
	line, err := plotter.NewLine(daily)
	if err != nil {
		return nil, fmt.Errorf("daily line: %w", err)
	}
	line.Color = color.RGBA{R: 0x45, G: 0x75, B: 0xb4, A: 0xff}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("diário", line)

	if len(o.Periods) > 0 {
		peaks := make(plotter.XYs, 0, 2*len(o.Periods))
		for _, pp := range o.Periods {
			peaks = append(peaks,
				plotter.XY{X: float64(pp.Start.Unix()), Y: float64(pp.Max)},
				plotter.XY{X: float64(pp.End.Unix()), Y: float64(pp.Max)},
			)
		}
		step, err := plotter.NewLine(peaks)
		if err != nil {
			return nil, fmt.Errorf("period line: %w", err)
		}
		step.Color = color.RGBA{R: 0xd7, G: 0x30, B: 0x27, A: 0xff}
		step.Width = vg.Points(1.5)
		step.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(step)
		p.Legend.Add("máximo do período", step)
	}

	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.XOffs = 10
	p.Legend.YOffs = -10
	return p, nil
}

// WritePNG renders the coverage plot as PNG to w.
func WritePNG(w io.Writer, points []core.CoveragePoint, o PlotOptions) error {
	p, err := CoveragePlot(points, o)
	if err != nil {
		return err
	}
	o.defaults()
	wt, err := p.WriterTo(o.Width, o.Height, "png")
	if err != nil {
		return fmt.Errorf("create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// SavePNG writes the coverage plot to path, creating parent directories.
func SavePNG(path string, points []core.CoveragePoint, o PlotOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	p, err := CoveragePlot(points, o)
	if err != nil {
		return err
	}
	o.defaults()
	if err := p.Save(o.Width, o.Height, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
