package runner

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"text/template"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"burstbench/internal/stats"
)

const defaultSnapshotInterval = 200 * time.Millisecond

// Runner issues a fixed number of GET requests with a bounded number in
// flight and aggregates their latency. A Runner keeps no per-run state, so
// one Runner may serve overlapping runs.
type Runner struct {
	Client Doer
	Clock  Clock
	Logger *log.Logger

	// Event Channel, optional
	Updates          StatsUpdateChan
	SnapshotInterval time.Duration

	templates *TemplateEngine
}

func NewRunner(client Doer, updates StatsUpdateChan) *Runner {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout, 0)
	}
	return &Runner{
		Client:           client,
		Clock:            SystemClock,
		Logger:           log.Default(),
		Updates:          updates,
		SnapshotInterval: defaultSnapshotInterval,
		templates:        NewTemplateEngine(),
	}
}

// Run dispatches cfg.TotalRequests requests in index order, never letting
// more than cfg.Limit() of them be unsettled, and returns once every one
// has settled. Per-request failures are only counted; the returned error
// is non-nil only for an invalid cfg.
//
// Cancelling ctx does not end the run early: requests not yet issued
// settle at once as failures.
func (r *Runner) Run(ctx context.Context, cfg Config) (stats.Result, error) {
	if err := cfg.Validate(); err != nil {
		return stats.Result{}, err
	}
	tgt, err := r.compileTarget(cfg.Endpoint)
	if err != nil {
		return stats.Result{}, err
	}

	limit := cfg.Limit()
	acc := stats.NewAccumulator(cfg.TotalRequests)
	outcomes := make(chan stats.Outcome, limit)
	sem := semaphore.NewWeighted(int64(limit))
	var inflight atomic.Int64

	r.logger().Debug("run started", "endpoint", cfg.Endpoint, "requests", cfg.TotalRequests, "concurrency", limit)
	start := r.clock().Now()

	go r.dispatch(ctx, cfg, tgt, sem, &inflight, outcomes)

	ticker := time.NewTicker(r.snapshotInterval())
	defer ticker.Stop()

	for acc.Settled() < cfg.TotalRequests {
		select {
		case o := <-outcomes:
			acc.Add(o)
		case <-ticker.C:
			r.sendUpdate(acc, cfg.TotalRequests, inflight.Load(), r.clock().Since(start), false)
		}
	}

	elapsed := r.clock().Since(start)
	res := acc.Finalize(elapsed)
	r.sendUpdate(acc, cfg.TotalRequests, 0, elapsed, true)

	r.logger().Debug("run finished",
		"success", res.SuccessfulRequests,
		"fail", res.FailedRequests,
		"elapsed", elapsed.Round(time.Millisecond),
	)
	return res, nil
}

// dispatch issues requests in index order. Each request holds one
// semaphore unit from before it is issued until its outcome is queued.
func (r *Runner) dispatch(
	ctx context.Context,
	cfg Config,
	tgt target,
	sem *semaphore.Weighted,
	inflight *atomic.Int64,
	outcomes chan<- stats.Outcome,
) {
	for i := 0; i < cfg.TotalRequests; i++ {
		// Background: the wait ends when any in-flight request settles
		if err := sem.Acquire(context.Background(), 1); err != nil {
			return
		}
		inflight.Add(1)

		go func(idx int) {
			o := r.executeRequest(ctx, cfg, tgt, idx)
			inflight.Add(-1)
			outcomes <- o
			sem.Release(1)
		}(i)
	}
}

func (r *Runner) executeRequest(ctx context.Context, cfg Config, tgt target, idx int) stats.Outcome {
	o := stats.Outcome{Index: idx}

	if err := ctx.Err(); err != nil {
		o.Err = err
		return o
	}

	requestID := uuid.New().String()
	endpoint, err := tgt.render(idx, requestID)
	if err != nil {
		o.Err = err
		return o
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		o.Err = err
		return o
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Request-ID", requestID)
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	start := r.clock().Now()
	resp, err := r.doer().Do(req)
	o.LatencyMs = r.clock().Since(start).Round(time.Millisecond).Milliseconds()

	if err != nil {
		o.Err = err
		r.logger().Debug("request failed", "index", idx, "err", err, "latency_ms", o.LatencyMs)
		return o
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	o.StatusCode = resp.StatusCode
	o.Success = resp.StatusCode >= 200 && resp.StatusCode < 300
	if !o.Success {
		r.logger().Debug("request failed", "index", idx, "status", resp.StatusCode, "latency_ms", o.LatencyMs)
	}
	return o
}

func (r *Runner) sendUpdate(acc *stats.Accumulator, total int, inflight int64, elapsed time.Duration, done bool) {
	if r.Updates == nil {
		return
	}

	success, fail, avg, p90 := acc.Snapshot()
	s := Snapshot{
		Total:    total,
		Success:  success,
		Fail:     fail,
		Inflight: inflight,
		AvgMs:    avg,
		P90Ms:    p90,
		Elapsed:  elapsed,
		Done:     done,
	}

	// Non-blocking send
	select {
	case r.Updates <- s:
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}

// Fallbacks for a Runner built without NewRunner.

func (r *Runner) clock() Clock {
	if r.Clock == nil {
		return SystemClock
	}
	return r.Clock
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

func (r *Runner) doer() Doer {
	if r.Client == nil {
		return http.DefaultClient
	}
	return r.Client
}

func (r *Runner) snapshotInterval() time.Duration {
	if r.SnapshotInterval <= 0 {
		return defaultSnapshotInterval
	}
	return r.SnapshotInterval
}

// target is a run's endpoint, either a literal URL or a template rendered
// once per request.
type target struct {
	raw    string
	tmpl   *template.Template
	engine *TemplateEngine
}

func (r *Runner) compileTarget(endpoint string) (target, error) {
	if !isTemplate(endpoint) {
		return target{raw: endpoint}, nil
	}

	engine := r.templates
	if engine == nil {
		engine = NewTemplateEngine()
	}
	tmpl, err := engine.Parse("endpoint", endpoint)
	if err != nil {
		return target{}, fmt.Errorf("%w: endpoint template: %v", ErrInvalidConfig, err)
	}

	tgt := target{raw: endpoint, tmpl: tmpl, engine: engine}
	sample, err := tgt.render(0, uuid.New().String())
	if err != nil {
		return target{}, fmt.Errorf("%w: endpoint template: %v", ErrInvalidConfig, err)
	}
	if err := validateURL(sample); err != nil {
		return target{}, err
	}
	return tgt, nil
}

func (t target) render(idx int, requestID string) (string, error) {
	if t.tmpl == nil {
		return t.raw, nil
	}
	return t.engine.Execute(t.tmpl, TemplateData{Index: idx, RequestID: requestID})
}
