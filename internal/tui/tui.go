package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sokinpui/blockmv/blockmv"
	"github.com/sokinpui/blockmv/internal/ui"
	"github.com/sokinpui/blockmv/model"
)

// --- Styles ---
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")) // Mauve
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))            // Green
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))           // Red
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))           // Orange
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))            // Blue
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// Planner is the part of the application the TUI drives.
type Planner interface {
	Plan(ctx context.Context) (*blockmv.Plan, error)
	Commit(plan *blockmv.Plan) (model.Summary, error)
}

// --- Messages ---
type planMsg struct{ plan *blockmv.Plan }

type summaryMsg struct {
	model.Summary
}

type errorMsg struct{ err error }

func (e errorMsg) Error() string { return e.err.Error() }

// --- Model ---
type Model struct {
	app      Planner
	spinner  spinner.Model
	viewport viewport.Model
	state    state
	plan     *blockmv.Plan
	summary  summaryMsg
	err      error
	ready    bool
}

type state int

const (
	stateProcessing state = iota
	stateConfirm
	stateSummary
	stateCancelled
	stateError
)

func New(app Planner) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		app:     app,
		spinner: s,
		state:   stateProcessing,
	}
}

// Err returns the error that ended the program, if any.
func (m Model) Err() error {
	return m.err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runPlan)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.state == stateConfirm {
				m.state = stateCancelled
			}
			return m, tea.Quit
		case "q", "n", "esc":
			if m.state == stateConfirm || m.state == stateProcessing {
				m.state = stateCancelled
				return m, tea.Quit
			}
		case "y", "enter":
			if m.state == stateConfirm {
				m.state = stateProcessing
				return m, tea.Batch(m.spinner.Tick, m.runCommit)
			}
		}
		if m.state == stateConfirm {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		height := msg.Height - 3
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		if m.plan != nil {
			m.viewport.SetContent(renderDiff(m.plan.Diff))
		}

	case planMsg:
		m.plan = msg.plan
		if !msg.plan.Found {
			return m, m.runCommit
		}
		if !m.ready {
			m.viewport = viewport.New(80, 20)
			m.ready = true
		}
		m.viewport.SetContent(renderDiff(msg.plan.Diff))
		m.state = stateConfirm

	case summaryMsg:
		m.state = stateSummary
		m.summary = msg
		return m, tea.Quit

	case errorMsg:
		m.state = stateError
		m.err = msg.err
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		if m.state == stateProcessing {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	switch m.state {
	case stateProcessing:
		return fmt.Sprintf("%s Processing...", m.spinner.View())
	case stateConfirm:
		return fmt.Sprintf("%s\n%s\n%s",
			headerStyle.Render(m.plan.Display),
			m.viewport.View(),
			faintStyle.Render("y/enter apply • n/q cancel • ↑/↓ scroll"))
	case stateCancelled:
		return faintStyle.Render("Cancelled. Nothing was written.") + "\n"
	case stateError:
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	case stateSummary:
		return m.renderSummary()
	default:
		return ""
	}
}

func (m *Model) renderSummary() string {
	line := ui.Line(m.summary.Summary)
	switch m.summary.Status {
	case model.StatusNotFound:
		return warningStyle.Render(line) + "\n"
	case model.StatusMoved, model.StatusBuffered:
		return successStyle.Render(line) + "\n"
	default:
		return line + "\n"
	}
}

func renderDiff(diff string) string {
	if diff == "" {
		return faintStyle.Render("No changes.")
	}
	lines := strings.Split(strings.TrimSuffix(diff, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = headerStyle.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = hunkStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = successStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = errorStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) runPlan() tea.Msg {
	plan, err := m.app.Plan(context.Background())
	if err != nil {
		return errorMsg{err}
	}
	return planMsg{plan}
}

func (m Model) runCommit() tea.Msg {
	summary, err := m.app.Commit(m.plan)
	if err != nil {
		// Check for detailed error to print stack
		var e *blockmv.DetailedError
		if errors.As(err, &e) {
			// The TUI will exit, so we can print to stderr here for the stack trace.
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", e.Stack)
		}
		return errorMsg{err}
	}
	return summaryMsg{Summary: summary}
}
