package history

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"burstbench/internal/runner"
	"burstbench/internal/storage"
	"burstbench/internal/tui/styles"
)

const listLimit = 200

type Model struct {
	Store *storage.Store
	Table table.Model
	Items []storage.HistoryItem
	Err   error

	// SelectedConfig is set when the user picks a run to load back into
	// the config form. The parent clears it.
	SelectedConfig *runner.Config

	Width  int
	Height int
}

func NewModel(store *storage.Store) Model {
	columns := []table.Column{
		{Title: "ID", Width: 10},
		{Title: "Time", Width: 20},
		{Title: "URL", Width: 34},
		{Title: "Reqs", Width: 8},
		{Title: "Conc", Width: 6},
		{Title: "OK", Width: 8},
		{Title: "Avg ms", Width: 9},
		{Title: "Req/s", Width: 9},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	m := Model{
		Store: store,
		Table: t,
	}
	m.Refresh()
	return m
}

func (m *Model) Refresh() {
	if m.Store == nil {
		return
	}

	items, err := m.Store.List(listLimit)
	m.Err = err
	m.Items = items

	rows := make([]table.Row, len(items))
	for i, item := range items {
		rows[i] = table.Row{
			item.ShortID(),
			item.Timestamp.Local().Format(time.DateTime),
			item.Config.Endpoint,
			fmt.Sprintf("%d", item.Config.TotalRequests),
			fmt.Sprintf("%d", item.Config.Concurrency),
			fmt.Sprintf("%d", item.Result.SuccessfulRequests),
			fmt.Sprintf("%.1f", item.Result.AvgResponseTimeMs),
			fmt.Sprintf("%.1f", item.Result.ThroughputPerSecond),
		}
	}
	m.Table.SetRows(rows)
}

// Selected returns the highlighted run, or nil.
func (m Model) Selected() *storage.HistoryItem {
	i := m.Table.Cursor()
	if i < 0 || i >= len(m.Items) {
		return nil
	}
	return &m.Items[i]
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Table.SetWidth(msg.Width - 4)
		if h := msg.Height - 4; h > 3 {
			m.Table.SetHeight(h)
		}

	case tea.KeyMsg:
		if msg.String() == "enter" {
			if item := m.Selected(); item != nil {
				cfg := item.Config
				m.SelectedConfig = &cfg
			}
			return m, nil
		}
	}

	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.Store == nil {
		return styles.Subtle.Render("History is disabled.")
	}
	if m.Err != nil {
		return styles.Error.Render(fmt.Sprintf("Could not load history: %v", m.Err))
	}
	if len(m.Items) == 0 {
		return styles.Subtle.Render("No saved runs yet.")
	}
	return styles.Box.Render(m.Table.View()) + "\n" + styles.Subtle.Render("[Enter] load into config")
}
