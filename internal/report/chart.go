package report

import (
	"errors"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned when a chart has no samples to draw.
var ErrNoData = errors.New("no response times to chart")

var lineColor = drawing.ColorFromHex("4CAF50")

// ResponseTimeChart draws successful response times against request
// number. The caller owns the value and replaces its data between runs.
type ResponseTimeChart struct {
	Title  string
	Width  int
	Height int

	times []int64
}

func NewResponseTimeChart(times []int64) *ResponseTimeChart {
	c := &ResponseTimeChart{
		Title:  "Response time",
		Width:  960,
		Height: 360,
	}
	c.Update(times)
	return c
}

// Update replaces the plotted series.
func (c *ResponseTimeChart) Update(times []int64) {
	c.times = append(c.times[:0], times...)
}

// Len is the number of plotted samples.
func (c *ResponseTimeChart) Len() int {
	return len(c.times)
}

func (c *ResponseTimeChart) RenderPNG(w io.Writer) error {
	if len(c.times) == 0 {
		return ErrNoData
	}

	xs := make([]float64, len(c.times))
	ys := make([]float64, len(c.times))
	maxY := 1.0
	for i, t := range c.times {
		xs[i] = float64(i + 1)
		ys[i] = float64(t)
		if ys[i] > maxY {
			maxY = ys[i]
		}
	}
	// a continuous series needs two X values
	if len(xs) == 1 {
		xs = append(xs, 2)
		ys = append(ys, ys[0])
	}

	ch := chart.Chart{
		Title:      c.Title,
		Width:      c.Width,
		Height:     c.Height,
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 12, Bottom: 28}},
		XAxis:      chart.XAxis{Name: "Request"},
		YAxis: chart.YAxis{
			Name:  "ms",
			Range: &chart.ContinuousRange{Min: 0, Max: maxY * 1.1},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Response time (ms)",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 2,
					FillColor:   lineColor.WithAlpha(26),
					DotColor:    lineColor,
					DotWidth:    3,
				},
			},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	return ch.Render(chart.PNG, w)
}
