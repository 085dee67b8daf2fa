package result

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"burstbench/internal/runner"
	"burstbench/internal/stats"
	"burstbench/internal/tui/components"
	"burstbench/internal/tui/styles"
)

type Model struct {
	Config runner.Config
	Result *stats.Result
	Chart  components.Sparkline

	Width  int
	Height int
}

func NewModel() Model {
	return Model{
		Chart: components.NewSparkline(60, "Response time per request (ms)", styles.Value),
	}
}

// SetResult shows a finished run.
func (m *Model) SetResult(cfg runner.Config, res stats.Result) {
	m.Config = cfg
	m.Result = &res
	m.Chart.SetSeries(res.ResponseTimesMs)
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		if w := msg.Width - 8; w > 10 {
			m.Chart.Width = w
			if m.Result != nil {
				m.Chart.SetSeries(m.Result.ResponseTimesMs)
			}
		}
	}
	return m, nil
}

func ms(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d ms", *v)
}

func (m Model) View() string {
	if m.Result == nil {
		return styles.Subtle.Render("No results yet. Start a run from the Config tab.")
	}
	res := m.Result
	s := strings.Builder{}

	s.WriteString(styles.Title.Render("📊 Test Complete"))
	s.WriteString("\n")
	s.WriteString(styles.Subtle.Render(m.Config.Endpoint))
	s.WriteString("\n\n")

	overview := fmt.Sprintf(
		"Total Requests: %d\nSuccess:        %d\nFailed:         %d\nThroughput:     %.2f req/s\nElapsed:        %d ms",
		res.TotalRequests, res.SuccessfulRequests, res.FailedRequests, res.ThroughputPerSecond, res.ElapsedMs,
	)

	latency := fmt.Sprintf(
		"Avg: %.2f ms\nMin: %s\nMax: %s\nStd: %.2f ms",
		res.AvgResponseTimeMs, ms(res.MinResponseTimeMs), ms(res.MaxResponseTimeMs), res.StdDevResponseTimeMs,
	)
	if p := res.Percentiles; p != nil {
		latency += fmt.Sprintf("\nP50: %d ms  P90: %d ms\nP95: %d ms  P99: %d ms", p.P50, p.P90, p.P95, p.P99)
	}

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.JoinVertical(lipgloss.Left, styles.Active.Render("Overview"), styles.Box.Render(overview)),
		lipgloss.JoinVertical(lipgloss.Left, styles.Active.Render("Latency (Success Only)"), styles.Box.Render(latency)),
	))
	s.WriteString("\n\n")

	if len(res.Errors) > 0 {
		keys := make([]string, 0, len(res.Errors))
		for k := range res.Errors {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		lines := make([]string, len(keys))
		for i, k := range keys {
			lines[i] = fmt.Sprintf("%d x %s", res.Errors[k], k)
		}
		s.WriteString(styles.Error.Render("Failures"))
		s.WriteString("\n")
		s.WriteString(styles.Box.Render(strings.Join(lines, "\n")))
		s.WriteString("\n\n")
	}

	if len(res.ResponseTimesMs) > 0 {
		s.WriteString(styles.Box.Render(m.Chart.View()))
	}

	return s.String()
}
