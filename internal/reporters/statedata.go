package reporters

import (
	"fmt"
	"io"

	"github.com/san-kum/ionsim/internal/engine"
)

// StateDataReporter writes one tab-separated line per report: progress,
// step, potential energy, temperature, box volume and speed.
type StateDataReporter struct {
	w          io.Writer
	interval   int
	totalSteps int
	dof        int
	header     bool
	speed      speedometer
}

// NewStateData reports every interval steps out of totalSteps. dof is the
// number of degrees of freedom used for the temperature.
func NewStateData(w io.Writer, interval, totalSteps, dof int) *StateDataReporter {
	return &StateDataReporter{
		w:          w,
		interval:   interval,
		totalSteps: totalSteps,
		dof:        dof,
		speed:      newSpeedometer(),
	}
}

func (r *StateDataReporter) Interval() int { return r.interval }

func (r *StateDataReporter) Report(s engine.State) error {
	if !r.header {
		r.header = true
		if _, err := fmt.Fprintln(r.w, `#"Progress (%)"	"Step"	"Potential Energy (kJ/mole)"	"Temperature (K)"	"Box Volume (nm^3)"	"Speed (ns/day)"`); err != nil {
			return err
		}
	}
	progress := 0.0
	if r.totalSteps > 0 {
		progress = 100 * float64(s.Step) / float64(r.totalSteps)
	}
	speed := "--"
	if v, ok := r.speed.sample(s); ok {
		speed = fmt.Sprintf("%.3g", v)
	}
	_, err := fmt.Fprintf(r.w, "%.1f%%\t%d\t%.4f\t%.2f\t%.4f\t%s\n",
		progress, s.Step, s.Potential, s.Temperature(r.dof), s.Volume(), speed)
	return err
}

func (r *StateDataReporter) Close() error { return nil }
