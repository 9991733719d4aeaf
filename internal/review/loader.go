package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobharvest/internal/model"
)

// ErrCancelled is returned when the user aborts loading.
var ErrCancelled = errors.New("cancelled")

type collectDoneMsg struct {
	result model.SiteResult
	err    error
}

type loaderModel struct {
	siteName string
	collect  func(ctx context.Context) (model.SiteResult, error)
	timeout  time.Duration
	spinner  spinner.Model
	result   model.SiteResult
	err      error
	done     bool
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doCollect(), m.spinner.Tick)
}

func (m loaderModel) doCollect() tea.Cmd {
	collect, timeout := m.collect, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		res, err := collect(ctx)
		return collectDoneMsg{result: res, err: err}
	}
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case collectDoneMsg:
		m.result = msg.result
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = ErrCancelled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s Discovering postings on %s...\n", m.spinner.View(), m.siteName)
}

// RunLoader shows a spinner while a short live discovery runs. It renders
// inline (no alt screen).
func RunLoader(siteName string, timeout time.Duration, collect func(ctx context.Context) (model.SiteResult, error)) (model.SiteResult, error) {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("33"))),
	)
	m := loaderModel{
		siteName: siteName,
		collect:  collect,
		timeout:  timeout,
		spinner:  sp,
	}
	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return model.SiteResult{}, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
