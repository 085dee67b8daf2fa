package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var levels = []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// Sparkline is a one-row bar graph. Add scrolls a live window; SetSeries
// squeezes a whole series into the width.
type Sparkline struct {
	Data  []float64
	Width int
	Max   float64
	Style lipgloss.Style
	Label string
}

func NewSparkline(width int, label string, style lipgloss.Style) Sparkline {
	return Sparkline{
		Width: width,
		Label: label,
		Style: style,
		Data:  make([]float64, 0, width),
	}
}

func (s *Sparkline) Add(val float64) {
	s.Data = append(s.Data, val)
	if len(s.Data) > s.Width {
		s.Data = s.Data[len(s.Data)-s.Width:]
	}
	s.recomputeMax()
}

// SetSeries replaces the data with vals, keeping the peak of each bucket
// when there are more values than columns.
func (s *Sparkline) SetSeries(vals []int64) {
	s.Data = s.Data[:0]
	if s.Width <= 0 || len(vals) == 0 {
		s.Max = 0
		return
	}

	if len(vals) <= s.Width {
		for _, v := range vals {
			s.Data = append(s.Data, float64(v))
		}
		s.recomputeMax()
		return
	}

	for col := 0; col < s.Width; col++ {
		lo := col * len(vals) / s.Width
		hi := (col + 1) * len(vals) / s.Width
		peak := vals[lo]
		for _, v := range vals[lo:hi] {
			if v > peak {
				peak = v
			}
		}
		s.Data = append(s.Data, float64(peak))
	}
	s.recomputeMax()
}

// Resize changes the window, dropping the oldest points if needed.
func (s *Sparkline) Resize(width int) {
	s.Width = width
	if width >= 0 && len(s.Data) > width {
		s.Data = s.Data[len(s.Data)-width:]
	}
	s.recomputeMax()
}

func (s *Sparkline) recomputeMax() {
	max := 0.0
	for _, v := range s.Data {
		if v > max {
			max = v
		}
	}
	s.Max = max
}

func (s Sparkline) Graph() string {
	var graph strings.Builder
	for _, v := range s.Data {
		if s.Max == 0 {
			graph.WriteString(levels[0])
			continue
		}

		idx := int(v / s.Max * float64(len(levels)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(levels) {
			idx = len(levels) - 1
		}
		graph.WriteString(levels[idx])
	}

	if pad := s.Width - len(s.Data); pad > 0 {
		graph.WriteString(strings.Repeat(" ", pad))
	}
	return graph.String()
}

func (s Sparkline) View() string {
	if s.Width <= 0 {
		return ""
	}
	return s.Style.Render(s.Label) + "\n" + s.Style.Render(s.Graph())
}
