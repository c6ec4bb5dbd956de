package report

import (
	"bytes"
	"fmt"
	"image/color"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var seriesColors = []color.Color{
	color.RGBA{R: 66, G: 133, B: 244, A: 255},  // blue
	color.RGBA{R: 52, G: 168, B: 83, A: 255},   // green
	color.RGBA{R: 234, G: 67, B: 53, A: 255},   // red
	color.RGBA{R: 251, G: 140, B: 0, A: 255},   // orange
	color.RGBA{R: 128, G: 0, B: 128, A: 255},   // purple
}

// RenderChartPNG draws the domain score trends as a PNG line chart
func (r *Report) RenderChartPNG() ([]byte, error) {
	return renderChartPNG(r.Series, fmt.Sprintf("%s %s to %s", r.Title, r.From, r.To))
}

func renderChartPNG(series []Series, title string) ([]byte, error) {
	base, span, err := dateExtent(series)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Score"
	p.Y.Min = 0
	p.Y.Max = 100
	p.X.Tick.Marker = plot.ConstantTicks(dateTicks(base, span))
	p.Add(plotter.NewGrid())

	plotted := false
	for i, s := range series {
		pts := make(plotter.XYs, 0, len(s.Points))
		for _, point := range s.Points {
			day, err := time.Parse("2006-01-02", point.Date)
			if err != nil {
				continue
			}
			pts = append(pts, plotter.XY{X: day.Sub(base).Hours() / 24, Y: point.Value})
		}
		if len(pts) == 0 {
			continue
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to create line for %s: %w", s.Name, err)
		}
		line.Color = seriesColors[i%len(seriesColors)]
		line.LineStyle.Width = vg.Points(1.5)

		p.Add(line)
		p.Legend.Add(s.Name, line)
		plotted = true
	}

	if !plotted {
		return nil, fmt.Errorf("no data points to plot")
	}

	p.Legend.Top = true
	p.Legend.XOffs = vg.Points(-10)

	writer, err := p.WriterTo(vg.Points(800), vg.Points(400), "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create plot writer: %w", err)
	}

	buf := new(bytes.Buffer)
	if _, err := writer.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write plot: %w", err)
	}
	return buf.Bytes(), nil
}

// dateExtent finds the earliest date across all series and the span in days
func dateExtent(series []Series) (time.Time, int, error) {
	var min, max time.Time
	for _, s := range series {
		for _, point := range s.Points {
			day, err := time.Parse("2006-01-02", point.Date)
			if err != nil {
				continue
			}
			if min.IsZero() || day.Before(min) {
				min = day
			}
			if max.IsZero() || day.After(max) {
				max = day
			}
		}
	}

	if min.IsZero() {
		return time.Time{}, 0, fmt.Errorf("no data points to plot")
	}
	return min, int(max.Sub(min).Hours() / 24), nil
}

func dateTicks(base time.Time, span int) []plot.Tick {
	step := span / 6
	if step < 1 {
		step = 1
	}

	var ticks []plot.Tick
	for d := 0; d <= span; d += step {
		ticks = append(ticks, plot.Tick{
			Value: float64(d),
			Label: base.AddDate(0, 0, d).Format("Jan 2"),
		})
	}
	return ticks
}
