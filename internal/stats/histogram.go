package stats

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// maxTrackableMs is the ceiling of the histogram. Larger values are clamped.
var maxTrackableMs = int64(10 * time.Minute / time.Millisecond)

// Histogram is a latency histogram in milliseconds.
// It is not safe for concurrent use; the accumulator owns it.
type Histogram struct {
	hist *hdrhistogram.Histogram
}

func NewHistogram() *Histogram {
	// 1ms to 10min, 3 significant figures
	return &Histogram{hist: hdrhistogram.New(1, maxTrackableMs, 3)}
}

// RecordValue records a latency in milliseconds
func (h *Histogram) RecordValue(ms int64) error {
	if ms > maxTrackableMs {
		ms = maxTrackableMs
	}
	if ms < 0 {
		ms = 0
	}
	return h.hist.RecordValue(ms)
}

func (h *Histogram) ValueAtQuantile(q float64) int64 {
	return h.hist.ValueAtQuantile(q)
}

func (h *Histogram) Mean() float64 {
	return h.hist.Mean()
}

func (h *Histogram) Max() int64 {
	return h.hist.Max()
}

func (h *Histogram) TotalCount() int64 {
	return h.hist.TotalCount()
}
