// Package reporters receives states during production and writes them out:
// a tab-separated progress log, a DCD trajectory, an in-memory
// thermodynamic series and a live terminal view.
package reporters

import (
	"time"

	"github.com/san-kum/ionsim/internal/engine"
)

// speedometer converts simulated time per wall-clock time into ns/day.
type speedometer struct {
	now       func() time.Time
	started   bool
	wallStart time.Time
	simStart  float64 // ps
}

func newSpeedometer() speedometer {
	return speedometer{now: time.Now}
}

// sample returns the speed since the first sample, or ok=false on the first
// call.
func (sp *speedometer) sample(s engine.State) (nsPerDay float64, ok bool) {
	now := sp.now()
	if !sp.started {
		sp.started = true
		sp.wallStart = now
		sp.simStart = s.Time
		return 0, false
	}
	elapsed := now.Sub(sp.wallStart).Seconds()
	if elapsed <= 0 {
		return 0, false
	}
	return (s.Time - sp.simStart) / 1000 / (elapsed / 86400), true
}

// Due reports whether r wants the state at step.
func Due(r engine.Reporter, step int) bool {
	iv := r.Interval()
	return iv > 0 && step%iv == 0
}
