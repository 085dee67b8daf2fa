package stats

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"
)

func TestAccumulator_SuccessOnly(t *testing.T) {
	acc := NewAccumulator(4)
	for i, ms := range []int64{30, 10, 40, 20} {
		acc.Add(Outcome{Index: i, Success: true, LatencyMs: ms, StatusCode: 200})
	}

	res := acc.Finalize(2 * time.Second)

	if res.SuccessfulRequests != 4 || res.FailedRequests != 0 {
		t.Fatalf("counts = %d/%d, want 4/0", res.SuccessfulRequests, res.FailedRequests)
	}
	if res.AvgResponseTimeMs != 25 {
		t.Errorf("avg = %v, want 25", res.AvgResponseTimeMs)
	}
	if res.MinResponseTimeMs == nil || *res.MinResponseTimeMs != 10 {
		t.Errorf("min = %v, want 10", res.MinResponseTimeMs)
	}
	if res.MaxResponseTimeMs == nil || *res.MaxResponseTimeMs != 40 {
		t.Errorf("max = %v, want 40", res.MaxResponseTimeMs)
	}
	if res.ThroughputPerSecond != 2 {
		t.Errorf("throughput = %v, want 2", res.ThroughputPerSecond)
	}

	// settlement order is kept
	want := []int64{30, 10, 40, 20}
	for i := range want {
		if res.ResponseTimesMs[i] != want[i] {
			t.Fatalf("responseTimes = %v, want %v", res.ResponseTimesMs, want)
		}
	}
	if res.Percentiles == nil || res.Percentiles.P50 != 20 {
		t.Errorf("p50 = %+v, want 20", res.Percentiles)
	}
}

func TestAccumulator_FailedLatencyIsDiscarded(t *testing.T) {
	acc := NewAccumulator(3)
	acc.Add(Outcome{Success: true, LatencyMs: 20, StatusCode: 200})
	acc.Add(Outcome{Success: false, LatencyMs: 5000, StatusCode: 503})
	acc.Add(Outcome{Success: false, LatencyMs: 1, Err: errors.New("boom")})

	res := acc.Finalize(time.Second)

	if res.FailedRequests != 2 {
		t.Fatalf("failed = %d, want 2", res.FailedRequests)
	}
	if len(res.ResponseTimesMs) != 1 {
		t.Fatalf("len(responseTimes) = %d, want 1", len(res.ResponseTimesMs))
	}
	if *res.MaxResponseTimeMs != 20 || *res.MinResponseTimeMs != 20 {
		t.Errorf("min/max = %d/%d, want 20/20", *res.MinResponseTimeMs, *res.MaxResponseTimeMs)
	}
	if res.Errors["HTTP 503"] != 1 || res.Errors["network"] != 1 {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestAccumulator_NoSuccesses(t *testing.T) {
	acc := NewAccumulator(2)
	acc.Add(Outcome{StatusCode: 500})
	acc.Add(Outcome{StatusCode: 500})

	res := acc.Finalize(500 * time.Millisecond)

	if res.AvgResponseTimeMs != 0 {
		t.Errorf("avg = %v, want 0", res.AvgResponseTimeMs)
	}
	if res.MinResponseTimeMs != nil || res.MaxResponseTimeMs != nil {
		t.Errorf("min/max should be nil, got %v/%v", res.MinResponseTimeMs, res.MaxResponseTimeMs)
	}
	if res.Percentiles != nil {
		t.Errorf("percentiles should be nil, got %+v", res.Percentiles)
	}
	if res.ResponseTimesMs == nil || len(res.ResponseTimesMs) != 0 {
		t.Errorf("responseTimes = %v, want empty non-nil slice", res.ResponseTimesMs)
	}
	if res.ThroughputPerSecond != 4 {
		t.Errorf("throughput = %v, want 4", res.ThroughputPerSecond)
	}
	if res.ErrorRate() != 100 {
		t.Errorf("error rate = %v, want 100", res.ErrorRate())
	}
}

func TestAccumulator_ZeroElapsed(t *testing.T) {
	acc := NewAccumulator(1)
	acc.Add(Outcome{Success: true, LatencyMs: 1})
	if got := acc.Finalize(0).ThroughputPerSecond; got != 0 {
		t.Errorf("throughput = %v, want 0", got)
	}
}

func TestAccumulator_Snapshot(t *testing.T) {
	acc := NewAccumulator(3)
	if s, f, avg, _ := acc.Snapshot(); s != 0 || f != 0 || avg != 0 {
		t.Fatalf("empty snapshot = %d %d %v", s, f, avg)
	}
	acc.Add(Outcome{Success: true, LatencyMs: 10})
	acc.Add(Outcome{Success: true, LatencyMs: 30})
	acc.Add(Outcome{StatusCode: 404})

	s, f, avg, _ := acc.Snapshot()
	if s != 2 || f != 1 || avg != 20 {
		t.Errorf("snapshot = %d %d %v, want 2 1 20", s, f, avg)
	}
	if acc.Settled() != 3 {
		t.Errorf("settled = %d, want 3", acc.Settled())
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestCategorize(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		want   string
	}{
		{"status", 503, nil, "HTTP 503"},
		{"unknown", 0, nil, "unknown"},
		{"canceled", 0, fmt.Errorf("get: %w", context.Canceled), "canceled"},
		{"deadline", 0, context.DeadlineExceeded, "timeout"},
		{"net timeout", 0, &net.OpError{Op: "read", Err: timeoutErr{}}, "timeout"},
		{"dns", 0, &net.DNSError{Err: "no such host", Name: "nope.invalid"}, "dns"},
		{"refused", 0, &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, "connection refused"},
		{"tls", 0, errors.New("tls: handshake failure"), "tls"},
		{"other", 0, errors.New("EOF"), "network"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Categorize(tt.status, tt.err); got != tt.want {
				t.Errorf("Categorize() = %q, want %q", got, tt.want)
			}
		})
	}
}
