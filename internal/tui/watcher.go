package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/BerylCAtieno/docvault-api/internal/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("76"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type statusMsg struct {
	status models.RunStatus
	err    error
}

type tickMsg time.Time

type cancelMsg struct {
	canceled bool
	err      error
}

// Watcher polls run status and renders it. Press c to cancel and q to quit.
type Watcher struct {
	client     RunClient
	interval   time.Duration
	exitOnDone bool

	bar    progress.Model
	status models.RunStatus
	seen   bool
	err    error
	notice string
}

func NewWatcher(client RunClient, interval time.Duration, exitOnDone bool) Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	return Watcher{
		client:     client,
		interval:   interval,
		exitOnDone: exitOnDone,
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m Watcher) Init() tea.Cmd { return m.fetch() }

func (m Watcher) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "c":
			return m, m.cancel()
		}
	case tea.WindowSizeMsg:
		m.bar.Width = min(60, max(10, msg.Width-10))
	case statusMsg:
		m.err = msg.err
		if msg.err == nil {
			wasRunning := m.seen && m.status.IsRunning
			m.status = msg.status
			m.seen = true
			if m.exitOnDone && wasRunning && !msg.status.IsRunning {
					return m, tea.Quit
			}
		}
		return m, m.tick()
	case tickMsg:
		return m, m.fetch()
	case cancelMsg:
		switch {
		case msg.err != nil:
			m.notice = "cancel failed: " + msg.err.Error()
		case msg.canceled:
			m.notice = "cancel requested, stopping after the current document"
		default:
			m.notice = "no run is active"
		}
	}
	return m, nil
}

func (m Watcher) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Vectorization"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(failStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}

	s := m.status
	if !m.seen {
		b.WriteString(labelStyle.Render("waiting for status..."))
	} else {
		state := okStyle.Render("idle")
		switch {
		case s.IsRunning && s.Canceled:
			state = warningStyle.Render("canceling")
		case s.IsRunning:
			state = okStyle.Render("running")
		case s.Canceled:
			state = warningStyle.Render("canceled")
		}

		lines := []string{
			labelStyle.Render("state      ") + state,
			m.bar.ViewAs(float64(s.ProgressPercentage) / 100),
			fmt.Sprintf("%s%d / %d   %s", labelStyle.Render("processed  "), s.ProcessedDocs, s.TotalDocs,
				failStyle.Render(fmt.Sprintf("failed %d", s.FailedDocs))),
		}
		if s.CurrentDoc != nil {
			lines = append(lines, fmt.Sprintf("%s%s (%s)", labelStyle.Render("current    "), s.CurrentDoc.Name, s.CurrentDoc.Step))
		}
		if s.StartTime != nil {
			lines = append(lines, labelStyle.Render("started    ")+s.StartTime.Local().Format(time.DateTime))
		}
		b.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
	}

	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render(m.notice))
	}

	b.WriteString("\n")
	b.WriteString(labelStyle.Render("c cancel • q quit"))
	b.WriteString("\n")

	return b.String()
}

func (m Watcher) fetch() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		status, err := client.Status(ctx)
		return statusMsg{status: status, err: err}
	}
}

func (m Watcher) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Watcher) cancel() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		ok, err := client.Cancel(ctx)
		return cancelMsg{canceled: ok, err: err}
	}
}
