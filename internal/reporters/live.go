package reporters

import (
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/ionsim/internal/engine"
	"github.com/san-kum/ionsim/internal/viz"
)

// LiveReporter streams states into the terminal view. The view runs in its
// own goroutine; closing it from the keyboard detaches the view without
// stopping the simulation.
type LiveReporter struct {
	prog       *tea.Program
	interval   int
	totalSteps int
	dof        int
	speed      speedometer
	done       chan error

	once     sync.Once
	closeErr error
}

// LiveOption configures the Bubble Tea program.
type LiveOption = tea.ProgramOption

// NewLive starts the view. Pass tea.WithInput(nil) and tea.WithOutput(w) to
// run it without a terminal.
func NewLive(title string, interval, totalSteps, dof int, opts ...LiveOption) *LiveReporter {
	if len(opts) == 0 {
		opts = []LiveOption{tea.WithAltScreen()}
	}
	r := &LiveReporter{
		prog:       tea.NewProgram(viz.NewModel(title), opts...),
		interval:   interval,
		totalSteps: totalSteps,
		dof:        dof,
		speed:      newSpeedometer(),
		done:       make(chan error, 1),
	}
	go func() {
		_, err := r.prog.Run()
		r.done <- err
	}()
	return r
}

// Headless returns options that render into w and read no input.
func Headless(w io.Writer) []LiveOption {
	return []LiveOption{tea.WithInput(nil), tea.WithOutput(w)}
}

func (r *LiveReporter) Interval() int { return r.interval }

func (r *LiveReporter) Report(s engine.State) error {
	speed, _ := r.speed.sample(s)
	r.prog.Send(viz.FrameMsg{
		Step:        s.Step,
		TotalSteps:  r.totalSteps,
		Time:        s.Time,
		Potential:   s.Potential,
		Temperature: s.Temperature(r.dof),
		NsPerDay:    speed,
		Positions:   s.Positions,
		Box:         s.Box,
	})
	return nil
}

// Fail shows err in the view and waits for it to exit.
func (r *LiveReporter) Fail(err error) error {
	return r.finish(viz.DoneMsg{Err: err})
}

func (r *LiveReporter) Close() error {
	return r.finish(viz.DoneMsg{})
}

func (r *LiveReporter) finish(msg viz.DoneMsg) error {
	r.once.Do(func() {
		r.prog.Send(msg)
		r.closeErr = <-r.done
	})
	return r.closeErr
}
