// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 IQS Group

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iqsgroup/stagectl/pkg/stage"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

var jogSteps = []float64{0.1, 1, 10, 50}

// Focus states
const (
	focusJog = iota
	focusTargetInput
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// controlModel is the Bubble Tea model for the jog TUI
type controlModel struct {
	session *stageSession

	// Stage state, refreshed on every tick and operation
	state      stage.State
	x, y       float64
	referenced bool
	lastErr    error

	// Jog control
	stepIndex int
	busy      bool // an operation is running; jog keys are ignored

	// Absolute target entry
	targetInput textinput.Model
	focused     int

	// Event log
	eventLog      []string
	maxLogEntries int

	// UI state
	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

// opDoneMsg reports completion of a background stage operation.
type opDoneMsg struct {
	what string
	err  error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(s *stageSession) controlModel {
	ti := textinput.New()
	ti.Placeholder = "120.5, 80"
	ti.CharLimit = 24
	ti.Width = 20

	return controlModel{
		session:       s,
		state:         s.ctl.State(),
		stepIndex:     1, // 1 mm
		targetInput:   ti,
		focused:       focusJog,
		eventLog:      make([]string, 0),
		maxLogEntries: 50,
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	// Reference on startup, then start the status ticker.
	return tea.Batch(m.opCmd("initialize", func(c *stage.Controller) error {
		return c.Initialize(context.Background())
	}), controlTickCmd())
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

// opCmd runs one controller operation in the background and reports its
// completion. The controller serializes bus access internally.
func (m controlModel) opCmd(what string, op func(*stage.Controller) error) tea.Cmd {
	ctl := m.session.ctl
	return func() tea.Msg {
		return opDoneMsg{what: what, err: op(ctl)}
	}
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case controlTickMsg:
		m.refreshStatus()
		return m, controlTickCmd()

	case opDoneMsg:
		m.busy = false
		m.refreshStatus()
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s failed: %v", msg.what, msg.err))
		} else {
			m.addLogEntry(fmt.Sprintf("%s done, stage at (%.3f, %.3f) mm", msg.what, m.x, m.y))
		}
	}

	// Update child components
	var cmd tea.Cmd
	if m.focused == focusTargetInput {
		m.targetInput, cmd = m.targetInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *controlModel) refreshStatus() {
	m.state = m.session.ctl.State()
	m.x, m.y = m.session.ctl.Position()
	m.referenced = m.session.ctl.Referenced()
	m.lastErr = m.session.ctl.LastError()
}

func (m *controlModel) addLogEntry(line string) {
	stamped := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), line)
	m.eventLog = append(m.eventLog, stamped)
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

//////////////////////////////////////////////////////////////
// Key Handling
//////////////////////////////////////////////////////////////

func (m controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Target entry captures most keys while focused
	if m.focused == focusTargetInput {
		switch msg.String() {
		case "enter":
			return m.submitTarget()
		case "esc":
			m.focused = focusJog
			m.targetInput.Blur()
			return m, nil
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		default:
			var cmd tea.Cmd
			m.targetInput, cmd = m.targetInput.Update(msg)
			return m, cmd
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "left":
		return m.jog(-m.jogStep(), 0)
	case "right":
		return m.jog(m.jogStep(), 0)
	case "up":
		return m.jog(0, m.jogStep())
	case "down":
		return m.jog(0, -m.jogStep())

	case "+", "=":
		if m.stepIndex < len(jogSteps)-1 {
			m.stepIndex++
		}
	case "-", "_":
		if m.stepIndex > 0 {
			m.stepIndex--
		}

	case "g":
		m.focused = focusTargetInput
		m.targetInput.Focus()
		m.targetInput.SetValue("")

	case "r":
		if !m.busy {
			m.busy = true
			m.addLogEntry("referencing...")
			return m, m.opCmd("reference", func(c *stage.Controller) error {
				if err := c.Connect(); err != nil {
					return err
				}
				return c.Initialize(context.Background())
			})
		}

	case "h":
		if !m.busy {
			m.busy = true
			m.addLogEntry("homing...")
			return m, m.opCmd("home", func(c *stage.Controller) error {
				return c.GoHome(context.Background())
			})
		}

	case "s":
		// Stop is always allowed, even mid-operation
		return m, m.opCmd("stop", func(c *stage.Controller) error {
			return c.Stop()
		})
	}

	return m, nil
}

func (m controlModel) jogStep() float64 {
	return jogSteps[m.stepIndex]
}

// jog issues a relative move from the cached position and waits for
// arrival in the background.
func (m controlModel) jog(dx, dy float64) (tea.Model, tea.Cmd) {
	if m.busy || m.state != stage.Ready {
		return m, nil
	}
	tx, ty := m.x+dx, m.y+dy
	m.busy = true
	m.addLogEntry(fmt.Sprintf("jog to (%.3f, %.3f) mm", tx, ty))
	return m, m.opCmd("jog", func(c *stage.Controller) error {
		if err := c.MoveTo(&tx, &ty); err != nil {
			return err
		}
		return c.WaitIdle(context.Background())
	})
}

// submitTarget parses the absolute target entry ("x, y"; "-" skips an
// axis) and starts the move.
func (m controlModel) submitTarget() (tea.Model, tea.Cmd) {
	value := m.targetInput.Value()
	m.focused = focusJog
	m.targetInput.Blur()

	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		m.addLogEntry(fmt.Sprintf("invalid target %q (use \"x, y\")", value))
		return m, nil
	}
	parse := func(s string) (*float64, error) {
		s = strings.TrimSpace(s)
		if s == "-" || s == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}
	tx, errX := parse(parts[0])
	ty, errY := parse(parts[1])
	if errX != nil || errY != nil {
		m.addLogEntry(fmt.Sprintf("invalid target %q", value))
		return m, nil
	}
	if m.busy || m.state != stage.Ready {
		m.addLogEntry("stage is not ready")
		return m, nil
	}

	m.busy = true
	m.addLogEntry(fmt.Sprintf("move to %q", value))
	return m, m.opCmd("move", func(c *stage.Controller) error {
		if err := c.MoveTo(tx, ty); err != nil {
			return err
		}
		return c.WaitIdle(context.Background())
	})
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	readyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	movingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	faultedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func stateStyle(s stage.State) lipgloss.Style {
	switch s {
	case stage.Ready:
		return readyStyle
	case stage.Moving, stage.Referencing:
		return movingStyle
	case stage.Faulted:
		return faultedStyle
	default:
		return dimStyle
	}
}

func (m controlModel) View() string {
	if m.quitting {
		return "Stopping stage control.\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Stagectl - Stage Control"))
	b.WriteString("  " + dimStyle.Render(m.session.connInfo))
	b.WriteString("\n\n")

	// Status panel
	status := fmt.Sprintf("State:     %s\n", stateStyle(m.state).Render(m.state.String()))
	status += fmt.Sprintf("Position:  X %8.3f mm   Y %8.3f mm\n", m.x, m.y)
	status += fmt.Sprintf("Jog step:  %g mm", m.jogStep())
	if !m.referenced {
		status += "\n" + dimStyle.Render("not referenced")
	}
	if m.state == stage.Faulted && m.lastErr != nil {
		status += "\n" + faultedStyle.Render(fmt.Sprintf("fault: %v", m.lastErr))
	}
	b.WriteString(panelStyle.Render(status))
	b.WriteString("\n\n")

	// Target entry
	if m.focused == focusTargetInput {
		b.WriteString("Go to (x, y): " + m.targetInput.View())
		b.WriteString("\n\n")
	}

	// Event log panel, newest last
	visible := m.eventLog
	maxLines := m.height - 14
	if maxLines < 3 {
		maxLines = 3
	}
	if len(visible) > maxLines {
		visible = visible[len(visible)-maxLines:]
	}
	b.WriteString(panelStyle.Width(m.width - 4).Render(strings.Join(visible, "\n")))
	b.WriteString("\n")

	b.WriteString(dimStyle.Render("arrows jog · +/- step · g go to · r reference · h home · s stop · q quit"))
	b.WriteString("\n")

	return b.String()
}
