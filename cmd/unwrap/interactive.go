package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/xatlas-go/native"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	phaseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type progressMsg struct {
	category native.ProgressCategory
	value    int
}

type doneMsg struct {
	err error
	sum *summary
}

type modelState int

const (
	stateRunning modelState = iota
	stateDone
)

type interactiveModel struct {
	err      error
	sum      *summary
	cancel   context.CancelFunc
	title    string
	spinner  spinner.Model
	bar      progress.Model
	category native.ProgressCategory
	percent  int
	started  bool
	state    modelState
}

func newInteractiveModel(title string, cancel context.CancelFunc) interactiveModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = phaseStyle
	return interactiveModel{
		title:   title,
		cancel:  cancel,
		spinner: s,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m interactiveModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.state == stateRunning {
				m.cancel()
				return m, nil
			}
			return m, tea.Quit
		}
	case progressMsg:
		m.started = true
		m.category = msg.category
		m.percent = msg.value
		return m, nil
	case doneMsg:
		m.state = stateDone
		m.err = msg.err
		m.sum = msg.sum
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m interactiveModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("xatlas: "+m.title) + "\n\n")

	switch m.state {
	case stateRunning:
		if !m.started {
			b.WriteString(m.spinner.View() + " loading library\n")
			break
		}
		b.WriteString(m.spinner.View() + " " + phaseStyle.Render(m.category.String()) + "\n")
		b.WriteString(m.bar.ViewAs(float64(m.percent)/100) + "\n")
		b.WriteString(helpStyle.Render("\nq: cancel") + "\n")
	case stateDone:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n")
			break
		}
		var out strings.Builder
		m.sum.print(&out)
		b.WriteString(resultStyle.Render(out.String()))
	}
	return b.String()
}

// runInteractive runs the job while rendering native progress.
func runInteractive(ctx context.Context, j *job) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	title := strings.Join(j.inputs, ", ")
	if j.sphere {
		title = "sphere"
	}

	p := tea.NewProgram(newInteractiveModel(title, cancel))
	go func() {
		sum, err := j.run(ctx, func(c native.ProgressCategory, v int) {
			p.Send(progressMsg{category: c, value: v})
		})
		p.Send(doneMsg{sum: sum, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(interactiveModel); ok {
		return m.err
	}
	return nil
}
