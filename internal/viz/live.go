package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

const (
	canvasWidth     = 40
	canvasHeight    = 16
	historyCapacity = 600
)

// FrameMsg carries one reported state to the view.
type FrameMsg struct {
	Step        int
	TotalSteps  int
	Time        float64 // ps
	Potential   float64 // kJ/mol
	Temperature float64 // K
	NsPerDay    float64
	Positions   [][3]float64
	Box         [3]float64
}

// DoneMsg ends the view. Err is shown if the run failed.
type DoneMsg struct {
	Err error
}

type tickMsg time.Time

// Model is the Bubble Tea model of the live view.
type Model struct {
	title    string
	canvas   *Canvas
	plane    Plane
	frozen   bool
	frame    int
	last     FrameMsg
	seen     bool
	energy   []float64
	temp     []float64
	done     bool
	err      error
	detached bool
}

func NewModel(title string) Model {
	return Model{
		title:  title,
		canvas: NewCanvas(canvasWidth, canvasHeight),
		energy: make([]float64, 0, historyCapacity),
		temp:   make([]float64, 0, historyCapacity),
	}
}

// Detached reports whether the user closed the view before the run ended.
func (m Model) Detached() bool { return m.detached }

func tick() tea.Cmd {
	return tea.Tick(time.Second/10, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.detached = !m.done
			return m, tea.Quit
		case " ":
			m.frozen = !m.frozen
		case "p":
			m.plane = (m.plane + 1) % 3
			if m.seen {
				m.canvas.Project(m.last.Positions, m.last.Box, m.plane)
			}
		}
	case FrameMsg:
		m.energy = appendCapped(m.energy, msg.Potential)
		m.temp = appendCapped(m.temp, msg.Temperature)
		if !m.frozen {
			m.last = msg
			m.seen = true
			m.canvas.Project(msg.Positions, msg.Box, m.plane)
		}
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	case tickMsg:
		m.frame++
		return m, tick()
	}
	return m, nil
}

func appendCapped(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyCapacity {
		h = h[1:]
	}
	return h
}

func (m Model) View() string {
	var s strings.Builder
	status := StatusRunning.Render(Spinner(m.frame) + " RUNNING")
	switch {
	case m.err != nil:
		status = StatusFailed.Render("FAILED: " + m.err.Error())
	case m.done:
		status = StatusRunning.Render("DONE")
	case m.frozen:
		status = StatusFrozen.Render("FROZEN")
	}
	s.WriteString(Title.Render(strings.ToUpper(m.title)) + "  " + status + "\n\n")

	f := m.last
	progress := 0.0
	if f.TotalSteps > 0 {
		progress = float64(f.Step) / float64(f.TotalSteps)
	}
	s.WriteString(ProgressBar(progress, 30) + fmt.Sprintf(" %5.1f%%\n\n", 100*progress))
	s.WriteString(MetricLabel.Render("Step") + MetricValue.Render(fmt.Sprintf("%d / %d", f.Step, f.TotalSteps)) + "\n")
	s.WriteString(MetricLabel.Render("Time") + MetricValue.Render(fmt.Sprintf("%.2f ps", f.Time)) + "\n")
	s.WriteString(MetricLabel.Render("Potential") + MetricValue.Render(fmt.Sprintf("%.2f kJ/mol", f.Potential)) + "\n")
	s.WriteString(MetricLabel.Render("Temp") + MetricValue.Render(fmt.Sprintf("%.1f K", f.Temperature)) + "\n")
	s.WriteString(MetricLabel.Render("Speed") + MetricValue.Render(fmt.Sprintf("%.3g ns/day", f.NsPerDay)) + "\n")

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Potential (kJ/mol)"))
		s.WriteString("\n" + GraphStyle.Render(chart) + "\n")
	}
	if len(m.temp) > 1 {
		chart := asciigraph.Plot(m.temp, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Temperature (K)"))
		s.WriteString("\n" + GraphStyle.Render(chart) + "\n")
	}
	s.WriteString("\n" + Separator(36) + "\n")
	s.WriteString(KeyHint.Render("SP:Freeze  P:Plane(" + m.plane.String() + ")  Q:Detach"))

	canvasView := Panel.Render(m.canvas.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, Panel.Render(s.String())) + "\n"
}
