package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"burstbench/internal/report"
	"burstbench/internal/runner"
	"burstbench/internal/stats"
	"burstbench/internal/storage"
	"burstbench/internal/tui/styles"
)

const rule = "======================================================================"

// Options for a headless run.
type Options struct {
	Config runner.Config

	// OutPrefix, when set, receives the csv/json/yaml/png reports.
	OutPrefix string
	// Store, when set, receives the finished run.
	Store *storage.Store

	Client runner.Doer
	Out    io.Writer
}

// Start runs one load test, drawing a progress line from snapshots, then
// prints the summary and writes any requested reports.
func Start(ctx context.Context, opts Options) (stats.Result, error) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	if err := opts.Config.Validate(); err != nil {
		return stats.Result{}, err
	}

	p := message.NewPrinter(language.English)
	printHeader(out, p, opts.Config)

	updates := make(runner.StatsUpdateChan, 100)
	r := runner.NewRunner(opts.Client, updates)

	type runResult struct {
		res stats.Result
		err error
	}
	done := make(chan runResult, 1)
	go func() {
		res, err := r.Run(ctx, opts.Config)
		done <- runResult{res, err}
	}()

	var final runResult
loop:
	for {
		select {
		case snap := <-updates:
			printProgress(out, p, snap)
		case final = <-done:
			break loop
		}
	}
	if final.err != nil {
		return final.res, final.err
	}

	res := final.res
	printProgress(out, p, runner.Snapshot{
		Total:   res.TotalRequests,
		Success: res.SuccessfulRequests,
		Fail:    res.FailedRequests,
		Elapsed: time.Duration(res.ElapsedMs) * time.Millisecond,
		Done:    true,
	})
	printSummary(out, p, res)

	if opts.OutPrefix != "" {
		files, err := report.ExportAll(res, opts.OutPrefix)
		if err != nil {
			return res, fmt.Errorf("write reports: %w", err)
		}
		fmt.Fprintf(out, "\n💾 Reports saved: %s\n", strings.Join(files, ", "))
	}

	if opts.Store != nil {
		item := storage.NewHistoryItem(opts.Config, res)
		if err := opts.Store.Save(item); err != nil {
			return res, fmt.Errorf("save history: %w", err)
		}
		fmt.Fprintf(out, "🗂  Saved to history as %s\n", item.ShortID())
	}

	return res, nil
}

func printHeader(w io.Writer, p *message.Printer, cfg runner.Config) {
	title := lipgloss.NewStyle().Foreground(styles.ColorPrimary).Bold(true)

	fmt.Fprintf(w, "\n%s\n", title.Render("🚀 STARTING BURSTBENCH LOAD TEST"))
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Target URL  : %s\n", cfg.Endpoint)
	p.Fprintf(w, "Requests    : %d\n", cfg.TotalRequests)
	p.Fprintf(w, "Concurrency : %d\n", cfg.Limit())
	if len(cfg.Headers) > 0 {
		keys := make([]string, 0, len(cfg.Headers))
		for k := range cfg.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(w, "Headers     : %s\n", strings.Join(keys, ", "))
	}
	fmt.Fprintf(w, "%s\n\n", rule)
}

func printProgress(w io.Writer, p *message.Printer, s runner.Snapshot) {
	line := p.Sprintf("\r%s %3.0f%% | %d/%d | Inf: %3d | OK: %d | Err: %d | Avg: %.1fms",
		progressBar(s.Progress(), 20), s.Progress()*100,
		s.Settled(), s.Total,
		s.Inflight,
		s.Success,
		s.Fail,
		s.AvgMs,
	)
	fmt.Fprint(w, line)
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

func formatMs(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func printSummary(w io.Writer, p *message.Printer, res stats.Result) {
	title := lipgloss.NewStyle().Foreground(styles.ColorSecondary).Bold(true)

	fmt.Fprintf(w, "\n\n%s\n", title.Render("📊 LOAD TEST RESULTS"))
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Total Duration : %s\n", (time.Duration(res.ElapsedMs) * time.Millisecond).String())
	p.Fprintf(w, "Requests Sent  : %d\n", res.TotalRequests)
	p.Fprintf(w, "Success        : %d\n", res.SuccessfulRequests)
	p.Fprintf(w, "Failures       : %d (%.1f%%)\n", res.FailedRequests, res.ErrorRate())
	p.Fprintf(w, "Throughput     : %.2f req/s\n", res.ThroughputPerSecond)

	fmt.Fprintf(w, "\n⏱️  RESPONSE TIMES (ms) [Success Only]\n")
	p.Fprintf(w, "   Avg : %.2f\n", res.AvgResponseTimeMs)
	fmt.Fprintf(w, "   Min : %s\n", formatMs(res.MinResponseTimeMs))
	fmt.Fprintf(w, "   Max : %s\n", formatMs(res.MaxResponseTimeMs))
	p.Fprintf(w, "   Std : %.2f\n", res.StdDevResponseTimeMs)
	if pc := res.Percentiles; pc != nil {
		fmt.Fprintf(w, "   P50 : %d\n", pc.P50)
		fmt.Fprintf(w, "   P90 : %d\n", pc.P90)
		fmt.Fprintf(w, "   P95 : %d\n", pc.P95)
		fmt.Fprintf(w, "   P99 : %d\n", pc.P99)
	}

	if len(res.Errors) > 0 {
		fmt.Fprintf(w, "\n❌ FAILURE SUMMARY\n")
		keys := make([]string, 0, len(res.Errors))
		for k := range res.Errors {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if res.Errors[keys[i]] != res.Errors[keys[j]] {
				return res.Errors[keys[i]] > res.Errors[keys[j]]
			}
			return keys[i] < keys[j]
		})
		for _, k := range keys {
			p.Fprintf(w, "   %d x %s\n", res.Errors[k], k)
		}
	}
	fmt.Fprintln(w, rule)
}
