package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"burstbench/internal/report"
	"burstbench/internal/runner"
	"burstbench/internal/stats"
	"burstbench/internal/storage"
	"burstbench/internal/tui/config"
	"burstbench/internal/tui/history"
	"burstbench/internal/tui/live"
	"burstbench/internal/tui/result"
	"burstbench/internal/tui/styles"
)

type ClearStatusMsg struct{}

func clearStatusCmd() tea.Cmd {
	return tea.Tick(3*time.Second, func(_ time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

// View Enum
type ViewID int

const (
	ViewConfig ViewID = iota
	ViewLive
	ViewResult
	ViewHistory
)

type SnapshotMsg runner.Snapshot

type RunFinishedMsg struct {
	Config runner.Config
	Result stats.Result
	Err    error
}

type Model struct {
	Runner  *runner.Runner
	Store   *storage.Store
	Updates runner.StatsUpdateChan

	// Core State
	RunActive bool
	RunCancel context.CancelFunc
	Last      *RunFinishedMsg

	// Layout
	Width  int
	Height int

	CurrentView ViewID
	MenuItems   []string

	ConfigView  config.Model
	LiveView    live.Model
	ResultView  result.Model
	HistoryView history.Model

	// Feedback
	StatusMsg string
}

// NewModel wires r's update channel into the live view. store may be nil
// to disable history.
func NewModel(r *runner.Runner, store *storage.Store, initial runner.Config) Model {
	if r.Updates == nil {
		r.Updates = make(runner.StatsUpdateChan, 100)
	}
	return Model{
		Runner:      r,
		Store:       store,
		Updates:     r.Updates,
		CurrentView: ViewConfig,
		MenuItems:   []string{"[1] Config", "[2] Live", "[3] Result", "[4] History"},
		ConfigView:  config.NewModel(initial),
		LiveView:    live.NewModel(initial),
		ResultView:  result.NewModel(),
		HistoryView: history.NewModel(store),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.ConfigView.Init(),
		waitForUpdate(m.Updates),
	)
}

func waitForUpdate(sub runner.StatsUpdateChan) tea.Cmd {
	return func() tea.Msg {
		return SnapshotMsg(<-sub)
	}
}

func runCmd(ctx context.Context, r *runner.Runner, cfg runner.Config) tea.Cmd {
	return func() tea.Msg {
		res, err := r.Run(ctx, cfg)
		return RunFinishedMsg{Config: cfg, Result: res, Err: err}
	}
}

func (m *Model) setStatus(format string, args ...any) tea.Cmd {
	m.StatusMsg = fmt.Sprintf(format, args...)
	return clearStatusCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case ClearStatusMsg:
		m.StatusMsg = ""
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+q":
			if m.RunCancel != nil {
				m.RunCancel()
			}
			return m, tea.Quit

		case "ctrl+right":
			m.switchView((m.CurrentView + 1) % 4)
			return m, nil
		case "ctrl+left":
			m.switchView((m.CurrentView + 3) % 4)
			return m, nil

		case "ctrl+r":
			if m.CurrentView != ViewConfig {
				return m, nil
			}
			cmd := m.startRun()
			return m, cmd

		case "ctrl+s":
			if m.RunActive && m.RunCancel != nil {
				m.RunCancel()
				cmd := m.setStatus("Stopping: pending requests will settle as failures.")
				return m, cmd
			}
			return m, nil

		case "ctrl+p":
			cmd := m.export()
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		inner := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 7}

		m.ConfigView, _ = m.ConfigView.Update(inner)
		m.LiveView, _ = m.LiveView.Update(inner)
		m.ResultView, _ = m.ResultView.Update(inner)
		m.HistoryView, _ = m.HistoryView.Update(inner)
		return m, nil

	case SnapshotMsg:
		var c tea.Cmd
		m.LiveView, c = m.LiveView.Update(runner.Snapshot(msg))
		return m, tea.Batch(c, waitForUpdate(m.Updates))

	case RunFinishedMsg:
		cmd := m.finishRun(msg)
		return m, cmd
	}

	// Forward everything else (keys that fell through, blink and frame
	// messages) to the active view.
	var defaultCmd tea.Cmd
	switch m.CurrentView {
	case ViewConfig:
		m.ConfigView, defaultCmd = m.ConfigView.Update(msg)
	case ViewLive:
		m.LiveView, defaultCmd = m.LiveView.Update(msg)
	case ViewResult:
		m.ResultView, defaultCmd = m.ResultView.Update(msg)
	case ViewHistory:
		m.HistoryView, defaultCmd = m.HistoryView.Update(msg)
		if cfg := m.HistoryView.SelectedConfig; cfg != nil {
			m.ConfigView = config.NewModel(*cfg)
			m.HistoryView.SelectedConfig = nil
			m.CurrentView = ViewConfig
		}
	}
	cmds = append(cmds, defaultCmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) switchView(v ViewID) {
	if v == ViewHistory {
		m.HistoryView.Refresh()
	}
	m.CurrentView = v
}

func (m *Model) startRun() tea.Cmd {
	if m.RunActive {
		return m.setStatus("A run is already in progress.")
	}

	cfg, err := m.ConfigView.Config()
	if err != nil {
		m.ConfigView.Err = err
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.RunCancel = cancel
	m.RunActive = true

	m.LiveView = live.NewModel(cfg)
	m.LiveView, _ = m.LiveView.Update(tea.WindowSizeMsg{Width: m.Width, Height: m.Height - 7})
	m.CurrentView = ViewLive

	return runCmd(ctx, m.Runner, cfg)
}

func (m *Model) finishRun(msg RunFinishedMsg) tea.Cmd {
	m.RunActive = false
	if m.RunCancel != nil {
		m.RunCancel()
		m.RunCancel = nil
	}

	if msg.Err != nil {
		m.ConfigView.Err = msg.Err
		m.CurrentView = ViewConfig
		return nil
	}

	m.Last = &msg
	m.ResultView.SetResult(msg.Config, msg.Result)
	m.CurrentView = ViewResult

	if m.Store == nil {
		return nil
	}
	item := storage.NewHistoryItem(msg.Config, msg.Result)
	if err := m.Store.Save(item); err != nil {
		return m.setStatus("Error saving history: %v", err)
	}
	m.HistoryView.Refresh()
	return m.setStatus("Saved to history as %s.", item.ShortID())
}

func (m *Model) export() tea.Cmd {
	if m.Last == nil {
		return m.setStatus("No results to export yet.")
	}

	base := fmt.Sprintf("burstbench_report_%s", time.Now().Format("20060102-150405"))
	files, err := report.ExportAll(m.Last.Result, base)
	if err != nil {
		return m.setStatus("Export failed: %v", err)
	}
	return m.setStatus("Exported %s", strings.Join(files, ", "))
}

func (m Model) View() string {
	if m.Width == 0 {
		return "Loading..."
	}

	nav := strings.Builder{}
	for i, item := range m.MenuItems {
		if ViewID(i) == m.CurrentView {
			nav.WriteString(styles.TabActive.Render(item))
		} else {
			nav.WriteString(styles.TabBase.Render(item))
		}
	}
	navBar := styles.FooterBase.Width(m.Width).Render(nav.String())

	contentStr := ""
	switch m.CurrentView {
	case ViewConfig:
		contentStr = m.ConfigView.View()
	case ViewLive:
		contentStr = m.LiveView.View()
	case ViewResult:
		contentStr = m.ResultView.View()
	case ViewHistory:
		contentStr = m.HistoryView.View()
	}

	content := styles.Panel.Width(m.Width - 2).Height(m.Height - 6).Render(contentStr)

	keys1 := []string{
		styles.RenderKey("Ctrl+<->", "View"),
		styles.RenderKey("Tab", "Field"),
		styles.RenderKey("Enter", "Select"),
	}
	keys2 := []string{
		styles.RenderKey("Ctrl+R", "Run"),
		styles.RenderKey("Ctrl+S", "Stop"),
		styles.RenderKey("Ctrl+P", "Export"),
		styles.RenderKey("Ctrl+Q", "Quit"),
	}

	helpRow1 := styles.FooterBase.Width(m.Width).Render(strings.Join(keys1, "   "))
	helpRow2 := styles.FooterBase.Width(m.Width).Render(strings.Join(keys2, "   "))
	footer := lipgloss.JoinVertical(lipgloss.Left, helpRow1, helpRow2)

	if m.StatusMsg != "" {
		status := styles.Box.BorderForeground(styles.ColorHighlight).Render(m.StatusMsg)
		return lipgloss.JoinVertical(lipgloss.Left, navBar, content, status, footer)
	}

	return lipgloss.JoinVertical(lipgloss.Left, navBar, content, footer)
}
