package export

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"community-load/internal/analysis"
	"community-load/internal/model"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 4 * vg.Inch
)

var palette = []color.Color{
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
	color.RGBA{R: 255, G: 127, B: 14, A: 255},
	color.RGBA{R: 44, G: 160, B: 44, A: 255},
	color.RGBA{R: 214, G: 39, B: 40, A: 255},
}

// PlotLines draws the given columns of a time-indexed frame as lines and saves the image.
// The format follows the file extension (.png, .svg, .pdf).
func PlotLines(path, title string, f *model.Frame, cols ...string) error {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "kWh"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Legend.Top = true

	drawn := 0
	for _, col := range cols {
		vals := f.Col(col)
		if vals == nil {
			continue
		}
		var xys plotter.XYs
		for i, v := range vals {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			xys = append(xys, plotter.XY{X: float64(f.Index[i].Unix()), Y: v})
		}
		if len(xys) == 0 {
			continue
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("plot %s: %w", col, err)
		}
		line.Color = palette[drawn%len(palette)]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(col, line)
		drawn++
	}
	if drawn == 0 {
		return fmt.Errorf("plot %s: no data", path)
	}
	return save(p, path)
}

// PlotLoadDuration draws a stacked load duration curve: residential filled from zero and
// commercial stacked on top, against exceedance percent.
func PlotLoadDuration(path, title string, pts []analysis.LDCPoint) error {
	if len(pts) == 0 {
		return fmt.Errorf("plot %s: no data", path)
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Exceedance (%)"
	p.Y.Label.Text = "Load (kWh)"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	res := make(plotter.XYs, len(pts))
	tot := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		res[i] = plotter.XY{X: pt.ExceedancePercent, Y: pt.Residential}
		tot[i] = plotter.XY{X: pt.ExceedancePercent, Y: pt.Total}
	}

	comArea, err := plotter.NewPolygon(band(tot, res))
	if err != nil {
		return err
	}
	comArea.Color = color.RGBA{R: 255, G: 127, B: 14, A: 200}
	comArea.LineStyle.Width = 0

	resArea, err := plotter.NewPolygon(band(res, nil))
	if err != nil {
		return err
	}
	resArea.Color = color.RGBA{R: 31, G: 119, B: 180, A: 200}
	resArea.LineStyle.Width = 0

	p.Add(comArea, resArea)
	p.Legend.Add("Residential", resArea)
	p.Legend.Add("Commercial", comArea)
	return save(p, path)
}

// band returns the closed outline between upper and lower (or the x axis when lower is nil).
func band(upper, lower plotter.XYs) plotter.XYs {
	out := make(plotter.XYs, 0, 2*len(upper))
	out = append(out, upper...)
	for i := len(upper) - 1; i >= 0; i-- {
		y := 0.0
		if lower != nil {
			y = lower[i].Y
		}
		out = append(out, plotter.XY{X: upper[i].X, Y: y})
	}
	return out
}

func save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return p.Save(plotWidth, plotHeight, path)
}
