package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/foxsim/internal/experiment"
	"github.com/san-kum/foxsim/internal/metrics"
	"github.com/san-kum/foxsim/internal/viz"
)

const barWidth = 40

type progressMsg experiment.Progress

type doneMsg struct {
	report *experiment.Report
	err    error
}

// Model shows ensemble progress and the running second-peak statistics.
type Model struct {
	title    string
	total    int
	done     int
	snapshot metrics.Snapshot
	means    []float64
	start    time.Time
	cancel   context.CancelFunc

	report *experiment.Report
	err    error
	quit   bool
}

func NewModel(title string, total int, cancel context.CancelFunc) Model {
	return Model{
		title:  title,
		total:  total,
		start:  time.Now(),
		cancel: cancel,
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			m.quit = true
			return m, nil
		}
	case progressMsg:
		m.done = msg.Done
		m.snapshot = msg.Snapshot
		if msg.Snapshot.Peaks > 0 {
			m.means = append(m.means, msg.Snapshot.MeanTime)
		}
	case doneMsg:
		m.report = msg.report
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(viz.HeaderStyle.Render(m.title) + "\n\n")

	pct := 0.0
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}
	b.WriteString(fmt.Sprintf("  %s %s %d/%d\n\n", viz.ProgressBar(pct, barWidth),
		viz.MetricValue.Render(fmt.Sprintf("%5.1f%%", 100*pct)), m.done, m.total))
	b.WriteString("  " + viz.Separator(barWidth+16) + "\n\n")

	s := m.snapshot
	label := func(l string) string { return viz.MetricLabel.Render(fmt.Sprintf("  %-20s", l)) }

	if s.Peaks > 0 {
		b.WriteString(label("peak day") + viz.MetricValue.Render(fmt.Sprintf("%.1f [%.1f-%.1f]", s.MeanTime, s.TimeQ1, s.TimeQ3)) + "\n")
		b.WriteString(label("peak foxes") + viz.MetricValue.Render(fmt.Sprintf("%.1f [%.1f-%.1f]", s.MeanFoxes, s.FoxesQ1, s.FoxesQ3)) + "\n")
		b.WriteString(label("mean peak day") + viz.SparklineChart(m.means, barWidth) + "\n")
	} else {
		b.WriteString(label("peak") + viz.Subtle.Render("waiting for a second peak") + "\n")
	}
	b.WriteString(label("everything died") + viz.MetricValue.Render(fmt.Sprintf("%d", s.Extinct)) + "\n")
	b.WriteString(label("foxes died") + viz.MetricValue.Render(fmt.Sprintf("%d", s.FoxesExtinct)) + "\n\n")

	status := viz.StatusRunning.Render("running")
	if m.quit {
		status = viz.StatusWarning.Render("stopping")
	}
	b.WriteString(fmt.Sprintf("  %s  %s  %s\n", status,
		viz.Subtle.Render(time.Since(m.start).Round(time.Second).String()),
		viz.KeyHint.Render("q to stop")))

	return b.String()
}

// Run executes the study behind a live progress view. Quitting cancels the
// study.
func Run(ctx context.Context, study *experiment.Study, title string) (*experiment.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(title, study.Config().Runs, cancel))

	study.OnProgress(func(pr experiment.Progress) {
		p.Send(progressMsg(pr))
	})

	go func() {
		report, err := study.Run(ctx)
		p.Send(doneMsg{report: report, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}

	m := final.(Model)
	return m.report, m.err
}
