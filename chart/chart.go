// Package chart renders sensor series as PNG images.
package chart

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/mtraver/air-quality-analysis/observation"
)

const timeFormat = "15:04"

var (
	red    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	blue   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	salmon = color.RGBA{R: 250, G: 128, B: 114, A: 255}
	sky    = color.RGBA{R: 135, G: 206, B: 235, A: 255}

	wide   = 16 * vg.Inch
	height = 6 * vg.Inch
)

type column struct {
	title string
	label string
	color color.Color
	hist  color.Color
}

var columns = map[observation.Column]column{
	observation.AQI:    {"Air Quality Index (AQI)", "Air Quality Index (AQI)", blue, salmon},
	observation.Oxygen: {"Oxygen Concentration", "Oxygen Concentration (%)", red, sky},
}

// timeTicks formats the X axis as wall-clock time in loc. Plotted X values are
// Unix seconds.
func timeTicks(loc *time.Location) plot.TimeTicks {
	return plot.TimeTicks{
		Format: timeFormat,
		Time: func(t float64) time.Time {
			return time.Unix(int64(t), 0).In(loc)
		},
	}
}

func unix(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// TimeSeries draws one column of a resampled series as a line chart.
func TimeSeries(bins []observation.Bin, c observation.Column, path string) error {
	if len(bins) == 0 {
		return fmt.Errorf("chart: no data for %s time series", c)
	}
	meta := columns[c]

	pts := make(plotter.XYs, len(bins))
	for i, b := range bins {
		pts[i].X = unix(b.Start)
		pts[i].Y = c.OfBin(b)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s Over Time (1-Minute Averages)", meta.title)
	p.X.Label.Text = "Time"
	p.Y.Label.Text = meta.label
	p.X.Tick.Marker = timeTicks(bins[0].Start.Location())
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("chart: %v", err)
	}
	line.Color = meta.color
	line.Width = vg.Points(2.5)
	p.Add(line)

	return save(p, path)
}

// Overlay draws both columns of a timestamped series on one chart.
func Overlay(series []observation.Timestamped, path string) error {
	if len(series) == 0 {
		return fmt.Errorf("chart: no data for overlay")
	}

	p := plot.New()
	p.Title.Text = "Air Purifier Sensor Readings Over Time"
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Value"
	p.X.Tick.Marker = timeTicks(series[0].Time.Location())
	p.Add(plotter.NewGrid())

	for _, c := range []observation.Column{observation.AQI, observation.Oxygen} {
		pts := make(plotter.XYs, len(series))
		for i, ts := range series {
			pts[i].X = unix(ts.Time)
			pts[i].Y = c.Of(ts.Observation)
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("chart: %v", err)
		}
		line.Color = columns[c].color
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add(columns[c].label, line)
	}
	p.Legend.Top = true

	return save(p, path)
}

// binCount picks a histogram bin count with Sturges' rule.
func binCount(n int) int {
	return int(math.Ceil(math.Log2(float64(n)))) + 1
}

func histogram(vals []float64, c observation.Column) (*plot.Plot, error) {
	meta := columns[c]

	h, err := plotter.NewHist(plotter.Values(vals), binCount(len(vals)))
	if err != nil {
		return nil, err
	}
	h.FillColor = meta.hist

	p := plot.New()
	p.Title.Text = meta.title + " Distribution"
	p.X.Label.Text = meta.label
	p.Y.Label.Text = "Frequency"
	p.Add(h)
	return p, nil
}

// Distributions draws histograms of both columns side by side.
func Distributions(obs []observation.Observation, path string) error {
	if len(obs) == 0 {
		return fmt.Errorf("chart: no data for distributions")
	}

	row := make([]*plot.Plot, 0, 2)
	for _, c := range []observation.Column{observation.AQI, observation.Oxygen} {
		p, err := histogram(observation.Values(obs, c), c)
		if err != nil {
			return fmt.Errorf("chart: %s histogram: %v", c, err)
		}
		row = append(row, p)
	}
	plots := [][]*plot.Plot{row}

	img := vgimg.New(wide, height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(row),
		PadX:      vg.Millimeter * 5,
		PadY:      vg.Millimeter * 5,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}

	canvases := plot.Align(plots, tiles, dc)
	for j, p := range row {
		p.Draw(canvases[0][j])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("chart: %v", err)
	}
	defer f.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return fmt.Errorf("chart: writing %s: %v", path, err)
	}
	return f.Close()
}

func save(p *plot.Plot, path string) error {
	if err := p.Save(wide, height, path); err != nil {
		return fmt.Errorf("chart: saving %s: %v", path, err)
	}
	return nil
}
