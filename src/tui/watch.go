package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"relkit/src/teamcity"
)

// StatusMsg reports the latest polled state of a build.
type StatusMsg struct {
	BuildID     int64
	BuildTypeID string
	State       string
	Status      string
}

// StatusFromBuild converts a polled build into a StatusMsg.
func StatusFromBuild(b teamcity.Build) StatusMsg {
	return StatusMsg{BuildID: b.ID, BuildTypeID: b.BuildTypeID, State: b.State, Status: b.Status}
}

// DoneMsg ends the watch with the overall outcome.
type DoneMsg struct {
	Succeeded bool
	Err       error
}

// WatchModel shows a spinner and one line per build while builds are polled.
type WatchModel struct {
	title   string
	spinner spinner.Model
	styles  *StyleConfig

	order  []int64
	builds map[int64]StatusMsg

	width    int
	done     bool
	quitting bool
	result   DoneMsg
}

func NewWatchModel(title string) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	styles := DefaultStyles()
	s.Style = s.Style.Foreground(styles.Pending)

	return WatchModel{
		title:   title,
		spinner: s,
		styles:  styles,
		builds:  make(map[int64]StatusMsg),
	}
}

func (m WatchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case StatusMsg:
		if _, seen := m.builds[msg.BuildID]; !seen {
			m.order = append(m.order, msg.BuildID)
		}
		m.builds[msg.BuildID] = msg

	case DoneMsg:
		m.done = true
		m.result = msg
		return m, tea.Quit

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m WatchModel) View() string {
	var b strings.Builder
	b.WriteString(m.styles.TitleStyle().Render(m.title))
	b.WriteString("\n\n")

	if len(m.order) == 0 && !m.done {
		b.WriteString(m.line(m.spinner.View() + " Waiting for build status..."))
		b.WriteString("\n")
	}

	for _, id := range m.order {
		s := m.builds[id]
		finished := s.State == teamcity.StateFinished
		succeeded := s.Status == teamcity.StatusSuccess

		marker := m.spinner.View()
		if finished {
			marker = "✗"
			if succeeded {
				marker = "✓"
			}
		}
		text := fmt.Sprintf("%s #%d %s %s", marker, id, s.BuildTypeID, strings.ToLower(s.State))
		if s.Status != "" {
			text += " (" + s.Status + ")"
		}
		b.WriteString(m.line(m.styles.StatusStyle(finished, succeeded).Render(text)))
		b.WriteString("\n")
	}

	switch {
	case m.done && m.result.Err != nil:
		b.WriteString("\n" + m.line(m.styles.StatusStyle(true, false).Render("Error: "+m.result.Err.Error())) + "\n")
	case m.done:
		b.WriteString("\n" + m.line(m.styles.StatusStyle(true, m.result.Succeeded).Render(outcome(m.result.Succeeded))) + "\n")
	default:
		b.WriteString("\n" + m.styles.HelpStyle().Render("q: stop watching") + "\n")
	}
	return b.String()
}

func (m WatchModel) line(s string) string {
	if m.width <= 0 {
		return s
	}
	return Truncate(s, m.width, true)
}

// Done reports whether the watched work has finished.
func (m WatchModel) Done() bool {
	return m.done
}

// Result returns the outcome delivered by DoneMsg.
func (m WatchModel) Result() DoneMsg {
	return m.result
}

func outcome(succeeded bool) string {
	if succeeded {
		return "Build succeeded"
	}
	return "Build failed"
}

// WatchFunc performs the polling work and reports every polled build.
type WatchFunc func(ctx context.Context, report func(teamcity.Build)) (bool, error)

// RunWatch runs work while a WatchModel renders its progress. Quitting the
// view cancels the context handed to work. The outcome of work is returned.
func RunWatch(ctx context.Context, title string, work WatchFunc, opts ...tea.ProgramOption) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewWatchModel(title), opts...)

	type result struct {
		ok  bool
		err error
	}
	results := make(chan result, 1)
	go func() {
		ok, err := work(ctx, func(b teamcity.Build) { p.Send(StatusFromBuild(b)) })
		p.Send(DoneMsg{Succeeded: ok, Err: err})
		results <- result{ok: ok, err: err}
	}()

	_, runErr := p.Run()
	cancel()
	r := <-results
	if runErr != nil {
		return false, fmt.Errorf("failed to run watch view: %w", runErr)
	}
	return r.ok, r.err
}
