package stats

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// Outcome is the settlement of one dispatched request.
type Outcome struct {
	Index      int
	Success    bool
	LatencyMs  int64
	StatusCode int
	Err        error
}

// Percentiles of successful response times, in milliseconds.
type Percentiles struct {
	P50 int64 `json:"p50" yaml:"p50"`
	P90 int64 `json:"p90" yaml:"p90"`
	P95 int64 `json:"p95" yaml:"p95"`
	P99 int64 `json:"p99" yaml:"p99"`
}

// Result is the finalized aggregate of one run.
//
// MinResponseTimeMs, MaxResponseTimeMs and Percentiles are nil when no
// request succeeded.
type Result struct {
	TotalRequests        int            `json:"totalRequests" yaml:"total_requests"`
	SuccessfulRequests   int            `json:"successfulRequests" yaml:"successful_requests"`
	FailedRequests       int            `json:"failedRequests" yaml:"failed_requests"`
	AvgResponseTimeMs    float64        `json:"avgResponseTimeMs" yaml:"avg_response_time_ms"`
	MinResponseTimeMs    *int64         `json:"minResponseTimeMs" yaml:"min_response_time_ms"`
	MaxResponseTimeMs    *int64         `json:"maxResponseTimeMs" yaml:"max_response_time_ms"`
	StdDevResponseTimeMs float64        `json:"stdDevResponseTimeMs" yaml:"stddev_response_time_ms"`
	ThroughputPerSecond  float64        `json:"throughputPerSecond" yaml:"throughput_per_second"`
	Percentiles          *Percentiles   `json:"percentiles" yaml:"percentiles"`
	ElapsedMs            int64          `json:"elapsedMs" yaml:"elapsed_ms"`
	Errors               map[string]int `json:"errors,omitempty" yaml:"errors,omitempty"`
	ResponseTimesMs      []int64        `json:"responseTimesMs" yaml:"response_times_ms"`
}

// Accumulator folds outcomes of a single run. One goroutine owns it.
type Accumulator struct {
	total   int
	success int
	fail    int

	times []int64
	sum   int64
	min   int64
	max   int64

	hist   *Histogram
	errors map[string]int
}

func NewAccumulator(total int) *Accumulator {
	return &Accumulator{
		total:  total,
		times:  make([]int64, 0, total),
		hist:   NewHistogram(),
		errors: make(map[string]int),
	}
}

// Add folds one outcome. Failed outcomes only bump the failure count and
// their category; their latency is dropped.
func (a *Accumulator) Add(o Outcome) {
	if !o.Success {
		a.fail++
		a.errors[Categorize(o.StatusCode, o.Err)]++
		return
	}

	a.success++
	a.times = append(a.times, o.LatencyMs)
	a.sum += o.LatencyMs
	if a.success == 1 || o.LatencyMs < a.min {
		a.min = o.LatencyMs
	}
	if o.LatencyMs > a.max {
		a.max = o.LatencyMs
	}
	a.hist.RecordValue(o.LatencyMs)
}

// Settled is the number of outcomes folded so far.
func (a *Accumulator) Settled() int {
	return a.success + a.fail
}

// Snapshot reports the running counters without finalizing.
func (a *Accumulator) Snapshot() (success, fail int, avgMs float64, p90Ms int64) {
	if a.success > 0 {
		avgMs = float64(a.sum) / float64(a.success)
		p90Ms = a.hist.ValueAtQuantile(90)
	}
	return a.success, a.fail, avgMs, p90Ms
}

// Finalize computes averages and throughput over the whole run.
func (a *Accumulator) Finalize(elapsed time.Duration) Result {
	res := Result{
		TotalRequests:      a.total,
		SuccessfulRequests: a.success,
		FailedRequests:     a.fail,
		ElapsedMs:          elapsed.Milliseconds(),
		ResponseTimesMs:    make([]int64, len(a.times)),
	}
	copy(res.ResponseTimesMs, a.times)

	if elapsed > 0 {
		res.ThroughputPerSecond = float64(a.total) / elapsed.Seconds()
	}

	if len(a.errors) > 0 {
		res.Errors = make(map[string]int, len(a.errors))
		for k, v := range a.errors {
			res.Errors[k] = v
		}
	}

	if a.success == 0 {
		return res
	}

	xs := make([]float64, len(a.times))
	for i, t := range a.times {
		xs[i] = float64(t)
	}
	res.AvgResponseTimeMs = stat.Mean(xs, nil)
	if len(xs) > 1 {
		res.StdDevResponseTimeMs = stat.StdDev(xs, nil)
	}

	min, max := a.min, a.max
	res.MinResponseTimeMs = &min
	res.MaxResponseTimeMs = &max
	res.Percentiles = &Percentiles{
		P50: a.hist.ValueAtQuantile(50),
		P90: a.hist.ValueAtQuantile(90),
		P95: a.hist.ValueAtQuantile(95),
		P99: a.hist.ValueAtQuantile(99),
	}
	return res
}

// ErrorRate returns failures as a percentage of settled requests.
func (r Result) ErrorRate() float64 {
	settled := r.SuccessfulRequests + r.FailedRequests
	if settled == 0 {
		return 0
	}
	return float64(r.FailedRequests) / float64(settled) * 100
}
