package runner

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock makes every measured interval last exactly step.
type fakeClock struct {
	step time.Duration
}

func (c fakeClock) Now() time.Time                { return time.Unix(0, 0) }
func (c fakeClock) Since(time.Time) time.Duration { return c.step }

// mockDoer records call depth and answers by the "i" query parameter.
type mockDoer struct {
	delay   time.Duration
	status  func(idx int) int
	failErr error

	calls   atomic.Int64
	mu      sync.Mutex
	current int
	peak    int
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	m.calls.Add(1)

	m.mu.Lock()
	m.current++
	if m.current > m.peak {
		m.peak = m.current
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.current--
		m.mu.Unlock()
	}()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	idx, _ := strconv.Atoi(req.URL.Query().Get("i"))
	if m.failErr != nil && m.status == nil {
		return nil, m.failErr
	}
	code := http.StatusOK
	if m.status != nil {
		code = m.status(idx)
	}
	if code == 0 {
		return nil, m.failErr
	}
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(strings.NewReader("ok")),
		Request:    req,
	}, nil
}

func (m *mockDoer) Peak() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}

func newTestRunner(d Doer, latency time.Duration) *Runner {
	r := NewRunner(d, nil)
	r.Clock = fakeClock{step: latency}
	return r
}

func TestRunner_FixedLatency(t *testing.T) {
	doer := &mockDoer{}
	r := newTestRunner(doer, 50*time.Millisecond)

	res, err := r.Run(context.Background(), Config{
		Endpoint:      "http://mock.local/x",
		TotalRequests: 10,
		Concurrency:   3,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.SuccessfulRequests != 10 || res.FailedRequests != 0 {
		t.Fatalf("counts = %d/%d, want 10/0", res.SuccessfulRequests, res.FailedRequests)
	}
	if res.AvgResponseTimeMs != 50 {
		t.Errorf("avg = %v, want 50", res.AvgResponseTimeMs)
	}
	if res.MinResponseTimeMs == nil || *res.MinResponseTimeMs != 50 {
		t.Errorf("min = %v, want 50", res.MinResponseTimeMs)
	}
	if res.MaxResponseTimeMs == nil || *res.MaxResponseTimeMs != 50 {
		t.Errorf("max = %v, want 50", res.MaxResponseTimeMs)
	}
	if len(res.ResponseTimesMs) != 10 {
		t.Errorf("len(responseTimes) = %d, want 10", len(res.ResponseTimesMs))
	}
	// 10 requests over a measured 50ms
	if res.ThroughputPerSecond != 200 {
		t.Errorf("throughput = %v, want 200", res.ThroughputPerSecond)
	}
	if got := doer.calls.Load(); got != 10 {
		t.Errorf("calls = %d, want 10", got)
	}
}

func TestRunner_AlternatingFailures(t *testing.T) {
	doer := &mockDoer{
		status: func(idx int) int {
			if idx%2 == 0 {
				return http.StatusOK
			}
			return http.StatusInternalServerError
		},
	}
	r := newTestRunner(doer, 20*time.Millisecond)

	res, err := r.Run(context.Background(), Config{
		Endpoint:      "http://mock.local/x?i={{index}}",
		TotalRequests: 5,
		Concurrency:   5,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.SuccessfulRequests != 3 || res.FailedRequests != 2 {
		t.Fatalf("counts = %d/%d, want 3/2", res.SuccessfulRequests, res.FailedRequests)
	}
	if len(res.ResponseTimesMs) != 3 {
		t.Errorf("len(responseTimes) = %d, want 3", len(res.ResponseTimesMs))
	}
	if res.AvgResponseTimeMs != 20 {
		t.Errorf("avg = %v, want 20", res.AvgResponseTimeMs)
	}
	if res.Errors["HTTP 500"] != 2 {
		t.Errorf("errors = %v, want 2 x HTTP 500", res.Errors)
	}
}

func TestRunner_ConcurrencyExceedsTotal(t *testing.T) {
	doer := &mockDoer{}
	r := newTestRunner(doer, time.Millisecond)

	res, err := r.Run(context.Background(), Config{
		Endpoint:      "http://mock.local/",
		TotalRequests: 1,
		Concurrency:   10,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := doer.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
	if res.TotalRequests != 1 || res.SuccessfulRequests != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestRunner_AllFail(t *testing.T) {
	doer := &mockDoer{failErr: errors.New("connection reset by peer")}
	r := newTestRunner(doer, 7*time.Millisecond)

	res, err := r.Run(context.Background(), Config{
		Endpoint:      "http://mock.local/",
		TotalRequests: 6,
		Concurrency:   2,
	})
	if err != nil {
		t.Fatalf("Run should not fail on request errors: %v", err)
	}

	if res.SuccessfulRequests != 0 || res.FailedRequests != 6 {
		t.Fatalf("counts = %d/%d, want 0/6", res.SuccessfulRequests, res.FailedRequests)
	}
	if res.AvgResponseTimeMs != 0 {
		t.Errorf("avg = %v, want 0", res.AvgResponseTimeMs)
	}
	if res.MinResponseTimeMs != nil || res.MaxResponseTimeMs != nil {
		t.Errorf("min/max = %v/%v, want nil/nil", res.MinResponseTimeMs, res.MaxResponseTimeMs)
	}
	if len(res.ResponseTimesMs) != 0 {
		t.Errorf("responseTimes = %v, want empty", res.ResponseTimesMs)
	}
	if res.TotalRequests != 6 {
		t.Errorf("total = %d, want 6", res.TotalRequests)
	}
}

func TestRunner_InflightNeverExceedsLimit(t *testing.T) {
	tests := []struct {
		total, concurrency int
	}{
		{50, 4},
		{3, 10},
		{20, 1},
		{16, 16},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.total)+"x"+strconv.Itoa(tt.concurrency), func(t *testing.T) {
			doer := &mockDoer{delay: 3 * time.Millisecond}
			r := NewRunner(doer, nil)

			res, err := r.Run(context.Background(), Config{
				Endpoint:      "http://mock.local/",
				TotalRequests: tt.total,
				Concurrency:   tt.concurrency,
			})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			limit := tt.concurrency
			if tt.total < limit {
				limit = tt.total
			}
			if peak := doer.Peak(); peak > limit || peak < 1 {
				t.Errorf("peak in-flight = %d, want 1..%d", peak, limit)
			}
			if res.SuccessfulRequests+res.FailedRequests != tt.total {
				t.Errorf("settled = %d, want %d", res.SuccessfulRequests+res.FailedRequests, tt.total)
			}
			if len(res.ResponseTimesMs) != res.SuccessfulRequests {
				t.Errorf("len(responseTimes) = %d, want %d", len(res.ResponseTimesMs), res.SuccessfulRequests)
			}
		})
	}
}

func TestRunner_OverlappingRunsDoNotShareState(t *testing.T) {
	doer := &mockDoer{delay: time.Millisecond}
	r := NewRunner(doer, nil)

	var wg sync.WaitGroup
	totals := []int{20, 7}
	results := make([]int, len(totals))
	lens := make([]int, len(totals))

	for i, total := range totals {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.Run(context.Background(), Config{
				Endpoint:      "http://mock.local/",
				TotalRequests: total,
				Concurrency:   3,
			})
			if err != nil {
				t.Errorf("Run failed: %v", err)
				return
			}
			results[i] = res.SuccessfulRequests + res.FailedRequests
			lens[i] = len(res.ResponseTimesMs)
		}()
	}
	wg.Wait()

	for i, total := range totals {
		if results[i] != total || lens[i] != total {
			t.Errorf("run %d: settled=%d samples=%d, want %d", i, results[i], lens[i], total)
		}
	}
}

func TestRunner_SequentialRunsAreIndependent(t *testing.T) {
	doer := &mockDoer{}
	r := newTestRunner(doer, 10*time.Millisecond)
	cfg := Config{Endpoint: "http://mock.local/", TotalRequests: 8, Concurrency: 2}

	first, err := r.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	second, err := r.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if first.SuccessfulRequests != second.SuccessfulRequests ||
		len(first.ResponseTimesMs) != len(second.ResponseTimesMs) ||
		first.AvgResponseTimeMs != second.AvgResponseTimeMs {
		t.Errorf("runs differ: %+v vs %+v", first, second)
	}
	if second.SuccessfulRequests != 8 {
		t.Errorf("second run successes = %d, want 8 (state leaked?)", second.SuccessfulRequests)
	}
}

func TestRunner_CanceledContextSettlesAsFailures(t *testing.T) {
	doer := &mockDoer{}
	r := NewRunner(doer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := r.Run(ctx, Config{Endpoint: "http://mock.local/", TotalRequests: 5, Concurrency: 2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.FailedRequests != 5 {
		t.Errorf("failed = %d, want 5", res.FailedRequests)
	}
	if res.Errors["canceled"] != 5 {
		t.Errorf("errors = %v, want 5 x canceled", res.Errors)
	}
	if got := doer.calls.Load(); got != 0 {
		t.Errorf("calls = %d, want 0", got)
	}
}

func TestRunner_InvalidConfig(t *testing.T) {
	r := NewRunner(&mockDoer{}, nil)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero total", Config{Endpoint: "http://x.local/", TotalRequests: 0, Concurrency: 1}},
		{"negative concurrency", Config{Endpoint: "http://x.local/", TotalRequests: 1, Concurrency: -1}},
		{"empty endpoint", Config{Endpoint: " ", TotalRequests: 1, Concurrency: 1}},
		{"relative endpoint", Config{Endpoint: "/api/test", TotalRequests: 1, Concurrency: 1}},
		{"bad scheme", Config{Endpoint: "ftp://x.local/", TotalRequests: 1, Concurrency: 1}},
		{"bad template", Config{Endpoint: "http://x.local/{{nope}}", TotalRequests: 1, Concurrency: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Run(context.Background(), tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestRunner_PublishesFinalSnapshot(t *testing.T) {
	updates := make(StatsUpdateChan, 100)
	r := NewRunner(&mockDoer{delay: time.Millisecond}, updates)
	r.SnapshotInterval = time.Millisecond

	_, err := r.Run(context.Background(), Config{Endpoint: "http://mock.local/", TotalRequests: 12, Concurrency: 3})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var last Snapshot
	for len(updates) > 0 {
		last = <-updates
	}
	if !last.Done {
		t.Fatalf("last snapshot not marked done: %+v", last)
	}
	if last.Settled() != 12 || last.Progress() != 1 {
		t.Errorf("final snapshot = %+v", last)
	}
}

func TestRunner_AgainstHTTPServer(t *testing.T) {
	var hits atomic.Int64
	var missingHeaders atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		if r.Method != http.MethodGet ||
			r.Header.Get("Cache-Control") != "no-cache" ||
			r.Header.Get("X-Request-ID") == "" ||
			r.Header.Get("X-Test") != "yes" {
			missingHeaders.Add(1)
		}
		if n%4 == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	r := NewRunner(server.Client(), nil)
	res, err := r.Run(context.Background(), Config{
		Endpoint:      server.URL,
		TotalRequests: 40,
		Concurrency:   5,
		Headers:       map[string]string{"X-Test": "yes"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if hits.Load() != 40 {
		t.Errorf("server hits = %d, want 40", hits.Load())
	}
	if missingHeaders.Load() != 0 {
		t.Errorf("%d requests missing expected method/headers", missingHeaders.Load())
	}
	if res.SuccessfulRequests != 30 || res.FailedRequests != 10 {
		t.Errorf("counts = %d/%d, want 30/10", res.SuccessfulRequests, res.FailedRequests)
	}
	if res.ThroughputPerSecond <= 0 {
		t.Errorf("throughput = %v, want > 0", res.ThroughputPerSecond)
	}
}

func TestRunner_UnreachableEndpoint(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	r := NewRunner(NewHTTPClient(2*time.Second, 4), nil)
	res, err := r.Run(context.Background(), Config{Endpoint: url, TotalRequests: 4, Concurrency: 2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.FailedRequests != 4 || res.SuccessfulRequests != 0 {
		t.Errorf("counts = %d/%d, want 0/4", res.SuccessfulRequests, res.FailedRequests)
	}
}

func TestParseHeaders(t *testing.T) {
	got, err := ParseHeaders([]string{"Authorization: Bearer a:b", " X-Env :prod", ""})
	if err != nil {
		t.Fatalf("ParseHeaders failed: %v", err)
	}
	if got["Authorization"] != "Bearer a:b" || got["X-Env"] != "prod" || len(got) != 2 {
		t.Errorf("headers = %v", got)
	}

	if _, err := ParseHeaders([]string{"no-colon"}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestRunner_ZeroValueUsesDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	r := &Runner{Client: server.Client()}
	res, err := r.Run(context.Background(), Config{Endpoint: server.URL + "/?i={{index}}", TotalRequests: 4, Concurrency: 2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.SuccessfulRequests != 4 {
		t.Errorf("success = %d, want 4", res.SuccessfulRequests)
	}
}
