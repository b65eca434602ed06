package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/audiolibrelab/jamscope/internal/recorder"
	"github.com/audiolibrelab/jamscope/internal/scope"
	"github.com/audiolibrelab/jamscope/internal/service"
)

// Controller is the part of the service the terminal UI drives
type Controller interface {
	Toggle() error
	Stop() error
	Poll()
	Status() service.Status
	Frame(s scope.Surface)
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#88C0D0"))
	idleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#81A1C1"))
	recordingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#BF616A"))
	pausedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EBCB8B"))
	mutedStyle     = lipgloss.NewStyle().Faint(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#BF616A"))
)

type tickMsg time.Time

// Model is the bubbletea model of the live recording view
type Model struct {
	ctrl     Controller
	canvas   *Canvas
	interval time.Duration
	status   service.Status
	err      error
	quitting bool
}

// NewModel creates a model redrawing fps times per second
func NewModel(ctrl Controller, width, height, fps int) Model {
	if fps <= 0 {
		fps = 30
	}
	return Model{
		ctrl:     ctrl,
		canvas:   NewCanvas(width, height),
		interval: time.Second / time.Duration(fps),
		status:   ctrl.Status(),
	}
}

// Err returns the error that stopped the last session on quit, if any
func (m Model) Err() error {
	return m.err
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.ctrl.Poll()
		m.ctrl.Frame(m.canvas)
		m.status = m.ctrl.Status()
		return m, m.tick()

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}
	return m, nil
}

func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ", "space":
		m.err = m.ctrl.Toggle()
	case "s":
		m.err = m.ctrl.Stop()
	case "esc", "q", "ctrl+c":
		// Finalize before leaving so the file is never left with zero sizes
		m.err = m.ctrl.Stop()
		m.quitting = true
		m.status = m.ctrl.Status()
		return m, tea.Quit
	default:
		return m, nil
	}
	m.status = m.ctrl.Status()
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		titleStyle.Render("jamscope") + "  " + mutedStyle.Render(m.deviceLine()),
		m.canvas.String(),
		m.statusLine(),
	}
	if m.status.LastError != "" {
		sections = append(sections, errorStyle.Render(m.status.LastError))
	}
	sections = append(sections, mutedStyle.Render("space start/pause  s stop  q quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) deviceLine() string {
	st := m.status
	if st.Format.SampleRate == 0 {
		return st.Device
	}
	return fmt.Sprintf("%s  %s %dHz %dch", st.Device, st.Format.Encoding, st.Format.SampleRate, st.Format.Channels)
}

func (m Model) statusLine() string {
	st := m.status

	var state string
	switch st.State {
	case recorder.StateRecording:
		state = recordingStyle.Render("● REC")
	case recorder.StatePaused:
		state = pausedStyle.Render("❚❚ PAUSED")
	default:
		state = idleStyle.Render("■ IDLE")
	}

	if st.Session == nil {
		return state
	}

	parts := []string{
		state,
		filepath.Base(st.Session.Path),
		formatBytes(int64(st.Session.DataBytes)),
	}
	if !st.Session.Stats.Empty() {
		parts = append(parts, fmt.Sprintf("min=%d max=%d", st.Session.Stats.Min, st.Session.Stats.Max))
	}
	if st.Session.Dropped > 0 {
		parts = append(parts, errorStyle.Render(fmt.Sprintf("%d dropped", st.Session.Dropped)))
	}
	return strings.Join(parts, "  ")
}

// formatBytes formats bytes in human readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
