package live

import (
	"strings"
	"testing"
	"time"

	"burstbench/internal/runner"
)

func TestUpdate_TracksSnapshots(t *testing.T) {
	m := NewModel(runner.Config{Endpoint: "http://x.local", TotalRequests: 100, Concurrency: 10})

	m, _ = m.Update(runner.Snapshot{Total: 100, Success: 18, Fail: 2, Inflight: 10, P90Ms: 40, Elapsed: time.Second})
	m, _ = m.Update(runner.Snapshot{Total: 100, Success: 58, Fail: 2, Inflight: 10, P90Ms: 35, Elapsed: 2 * time.Second})

	if got := m.RpsLine.Data; len(got) != 2 || got[0] != 20 || got[1] != 40 {
		t.Errorf("rate series = %v, want [20 40]", got)
	}
	if got := m.LatencyLine.Data; got[1] != 35 {
		t.Errorf("latency series = %v", got)
	}
	if r := m.errRate(); r < 3.33 || r > 3.34 {
		t.Errorf("errRate = %v", m.errRate())
	}

	view := m.View()
	for _, want := range []string{"DONE: 60/100", "FAIL: 2"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestView_DoneBanner(t *testing.T) {
	m := NewModel(runner.Config{TotalRequests: 1})
	m, _ = m.Update(runner.Snapshot{Total: 1, Success: 1, Done: true})

	if !strings.Contains(m.View(), "Run complete") {
		t.Error("missing completion banner")
	}
}
