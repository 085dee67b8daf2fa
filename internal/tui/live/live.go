package live

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"burstbench/internal/runner"
	"burstbench/internal/tui/components"
	"burstbench/internal/tui/styles"
)

type Model struct {
	Config   runner.Config
	Snap     runner.Snapshot
	Progress progress.Model

	RpsLine     components.Sparkline
	LatencyLine components.Sparkline

	lastSettled int
	lastElapsed time.Duration

	Width  int
	Height int
}

func NewModel(cfg runner.Config) Model {
	return Model{
		Config:      cfg,
		Snap:        runner.Snapshot{Total: cfg.TotalRequests},
		Progress:    progress.New(progress.WithDefaultGradient()),
		RpsLine:     components.NewSparkline(40, "Completions / s", styles.Active),
		LatencyLine: components.NewSparkline(40, "Latency P90 (ms)", styles.Warn),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runner.Snapshot:
		// Rates use the run's own clock so a late-drawn frame does not skew them
		dt := (msg.Elapsed - m.lastElapsed).Seconds()
		if dt > 0 {
			m.RpsLine.Add(float64(msg.Settled()-m.lastSettled) / dt)
		}
		m.LatencyLine.Add(float64(msg.P90Ms))

		m.Snap = msg
		m.lastSettled = msg.Settled()
		m.lastElapsed = msg.Elapsed

		cmd := m.Progress.SetPercent(msg.Progress())
		return m, cmd

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 4

		half := (msg.Width / 2) - 4
		if half < 10 {
			half = 10
		}
		m.RpsLine.Resize(half)
		m.LatencyLine.Resize(half)
		return m, nil

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		m.Progress = prog.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) errRate() float64 {
	if m.Snap.Settled() == 0 {
		return 0
	}
	return float64(m.Snap.Fail) / float64(m.Snap.Settled()) * 100
}

func (m Model) View() string {
	s := strings.Builder{}

	s.WriteString(styles.Subtle.Render(m.Config.Endpoint))
	s.WriteString("\n\n")

	errRate := m.errRate()
	errColor := styles.Active
	if errRate > 5.0 {
		errColor = styles.Error
	} else if errRate > 1.0 {
		errColor = styles.Warn
	}

	col1 := fmt.Sprintf("DONE: %d/%d\nINF: %d", m.Snap.Settled(), m.Snap.Total, m.Snap.Inflight)
	col2 := fmt.Sprintf("ERR: %.2f%%\nFAIL: %d", errRate, m.Snap.Fail)
	col3 := fmt.Sprintf("AVG: %.1f ms\nP90: %d ms", m.Snap.AvgMs, m.Snap.P90Ms)
	col4 := fmt.Sprintf("ELAPSED\n%s", m.Snap.Elapsed.Round(100*time.Millisecond))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(col1),
		styles.Box.Render(errColor.Render(col2)),
		styles.Box.Render(col3),
		styles.Box.Render(col4),
	))
	s.WriteString("\n\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(m.RpsLine.View()),
		styles.Box.Render(m.LatencyLine.View()),
	))
	s.WriteString("\n\n")

	s.WriteString(m.Progress.View())
	if m.Snap.Done {
		s.WriteString("\n\n")
		s.WriteString(styles.Success.Render("✔ Run complete"))
	}

	return s.String()
}
