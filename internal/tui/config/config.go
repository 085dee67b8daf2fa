package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"burstbench/internal/runner"
	"burstbench/internal/tui/styles"
)

var (
	ErrMissingURL         = errors.New("please enter a test URL")
	ErrInvalidRequests    = errors.New("please enter a valid request count")
	ErrInvalidConcurrency = errors.New("please enter a valid concurrency")
)

const (
	FieldURL = iota
	FieldRequests
	FieldConcurrency
	FieldHeaders
	fieldCount
)

type Field struct {
	Label string
	Input textinput.Model
}

type Model struct {
	Fields []Field
	Focus  int
	Err    error

	Width  int
	Height int
}

func NewModel(cfg runner.Config) Model {
	m := Model{
		Fields: make([]Field, fieldCount),
	}

	t0 := textinput.New()
	t0.Placeholder = "http://localhost:8080/fast"
	t0.SetValue(cfg.Endpoint)
	t0.Width = 50
	m.Fields[FieldURL] = Field{Label: "Target URL", Input: t0}

	t1 := textinput.New()
	t1.Placeholder = "100"
	if cfg.TotalRequests > 0 {
		t1.SetValue(strconv.Itoa(cfg.TotalRequests))
	}
	t1.Width = 10
	m.Fields[FieldRequests] = Field{Label: "Total Requests", Input: t1}

	t2 := textinput.New()
	t2.Placeholder = "10"
	if cfg.Concurrency > 0 {
		t2.SetValue(strconv.Itoa(cfg.Concurrency))
	}
	t2.Width = 10
	m.Fields[FieldConcurrency] = Field{Label: "Concurrency", Input: t2}

	t3 := textinput.New()
	t3.Placeholder = "Authorization: Bearer abc; X-Env: staging"
	t3.SetValue(formatHeaders(cfg.Headers))
	t3.Width = 50
	m.Fields[FieldHeaders] = Field{Label: "Headers (Key: Value; ...)", Input: t3}

	m.setFocus(FieldURL)
	return m
}

func formatHeaders(h map[string]string) string {
	pairs := make([]string, 0, len(h))
	for k, v := range h {
		pairs = append(pairs, k+": "+v)
	}
	return strings.Join(pairs, "; ")
}

func (m *Model) setFocus(i int) {
	m.Focus = i
	for j := range m.Fields {
		if j == i {
			m.Fields[j].Input.Focus()
			m.Fields[j].Input.PromptStyle = styles.Active
			m.Fields[j].Input.TextStyle = styles.Active
		} else {
			m.Fields[j].Input.Blur()
			m.Fields[j].Input.PromptStyle = lipgloss.NewStyle()
			m.Fields[j].Input.TextStyle = lipgloss.NewStyle()
		}
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down", "shift+tab", "up":
			next := m.Focus + 1
			if s := msg.String(); s == "shift+tab" || s == "up" {
				next = m.Focus - 1
			}
			if next >= len(m.Fields) {
				next = 0
			} else if next < 0 {
				next = len(m.Fields) - 1
			}
			m.setFocus(next)
			return m, nil
		}
		m.Err = nil
	}

	for i := range m.Fields {
		var cmd tea.Cmd
		m.Fields[i].Input, cmd = m.Fields[i].Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// Config reads the form. Errors are meant to be shown to the user as-is.
func (m Model) Config() (runner.Config, error) {
	var c runner.Config

	c.Endpoint = strings.TrimSpace(m.Fields[FieldURL].Input.Value())
	if c.Endpoint == "" {
		return c, ErrMissingURL
	}

	n, err := strconv.Atoi(strings.TrimSpace(m.Fields[FieldRequests].Input.Value()))
	if err != nil || n <= 0 {
		return c, ErrInvalidRequests
	}
	c.TotalRequests = n

	conc, err := strconv.Atoi(strings.TrimSpace(m.Fields[FieldConcurrency].Input.Value()))
	if err != nil || conc <= 0 {
		return c, ErrInvalidConcurrency
	}
	c.Concurrency = conc

	headers, err := runner.ParseHeaders(strings.Split(m.Fields[FieldHeaders].Input.Value(), ";"))
	if err != nil {
		return c, err
	}
	if len(headers) > 0 {
		c.Headers = headers
	}

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (m Model) View() string {
	s := strings.Builder{}

	s.WriteString(styles.Title.Render("🛠️  Configuration"))
	s.WriteString("\n\n")

	for i := range m.Fields {
		s.WriteString(styles.Subtle.Render(m.Fields[i].Label))
		s.WriteString("\n")
		s.WriteString(m.Fields[i].Input.View())
		s.WriteString("\n\n")
	}

	if m.Err != nil {
		s.WriteString(styles.Error.Render(fmt.Sprintf("✖ %v", m.Err)))
		s.WriteString("\n")
	}
	s.WriteString(styles.Active.Render("[Ctrl+R] Start Test"))

	return styles.Box.Render(s.String())
}
