// Package tui renders a running integration in the terminal: the
// solver steps on a timer and the trajectory is plotted live.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/kstrom/odebridge/internal/bridge"
	"github.com/kstrom/odebridge/internal/config"
	"github.com/kstrom/odebridge/internal/driver"
	"github.com/kstrom/odebridge/internal/vec"
)

const historyCapacity = 600

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
)

type TickMsg time.Time

// Model owns the solver and the plotted history of one state component.
type Model struct {
	cfg       *config.Config
	sol       bridge.Solver
	y         vec.Vector
	t, dt     float64
	component int
	frameRate int
	running   bool
	done      bool
	err       error
	history   []float64
	width     int
}

// NewModel builds the configured run and prepares the live view of the
// chosen state component.
func NewModel(cfg *config.Config, component, frameRate int) (Model, error) {
	_, sol, y, err := driver.Build(cfg)
	if err != nil {
		return Model{}, err
	}
	if component < 0 || component >= y.Len() {
		component = 0
	}
	if frameRate <= 0 {
		frameRate = 30
	}
	return Model{
		cfg:       cfg,
		sol:       sol,
		y:         y,
		dt:        cfg.Dt,
		component: component,
		frameRate: frameRate,
		running:   true,
		history:   make([]float64, 0, historyCapacity),
		width:     72,
	}, nil
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.frameRate), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "tab":
			m.component = (m.component + 1) % m.y.Len()
			m.history = m.history[:0]
		}
		return m, nil

	case tea.WindowSizeMsg:
		if msg.Width > 20 {
			m.width = msg.Width - 8
		}
		return m, nil

	case TickMsg:
		if m.running && !m.done && m.err == nil {
			m.step()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) step() {
	dt := m.dt
	if m.t+dt > m.cfg.Duration {
		dt = m.cfg.Duration - m.t
	}
	if dt <= 0 {
		m.done = true
		return
	}
	if err := m.sol.Step(m.y, &m.t, &dt); err != nil {
		m.err = err
		return
	}
	m.history = append(m.history, m.y[m.component])
	if len(m.history) > historyCapacity {
		m.history = m.history[len(m.history)-historyCapacity:]
	}
	if m.t >= m.cfg.Duration {
		m.done = true
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("odebridge live · %s · %s/%s", m.cfg.Problem, m.cfg.Family, m.cfg.Method)))
	b.WriteString("\n")

	if len(m.history) > 1 {
		plot := asciigraph.Plot(m.history,
			asciigraph.Height(14),
			asciigraph.Width(min(m.width, len(m.history))),
			asciigraph.Caption(fmt.Sprintf("y[%d]", m.component)),
		)
		b.WriteString(graphStyle.Render(plot))
		b.WriteString("\n")
	}

	st := m.sol.Stats()
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}
	row("time", fmt.Sprintf("%.4f / %.1f", m.t, m.cfg.Duration))
	row("steps", fmt.Sprintf("%d (%d rejected)", st.Steps, st.ErrorTestFails))
	row("rhs evals", fmt.Sprintf("%d", st.RHSEvals))
	if st.LinearSolves > 0 {
		row("lin solves", fmt.Sprintf("%d", st.LinearSolves))
	}
	row("last step", fmt.Sprintf("%.3g", st.LastStep))

	switch {
	case m.err != nil:
		b.WriteString(errStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")
	case m.done:
		b.WriteString(valueStyle.Render("finished"))
		b.WriteString("\n")
	case !m.running:
		b.WriteString(valueStyle.Render("paused"))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("space pause · tab component · q quit"))
	return b.String()
}

// Run starts the live view and blocks until it exits.
func Run(cfg *config.Config, component, frameRate int) error {
	m, err := NewModel(cfg, component, frameRate)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m).Run()
	return err
}
