package reporters

import (
	"github.com/san-kum/ionsim/internal/engine"
	"github.com/san-kum/ionsim/internal/storage"
)

// Thermo keeps the thermodynamic series in memory for the run store.
type Thermo struct {
	interval int
	dof      int
	rows     []storage.ThermoRow
}

func NewThermo(interval, dof int) *Thermo {
	return &Thermo{interval: interval, dof: dof}
}

func (r *Thermo) Interval() int { return r.interval }

func (r *Thermo) Report(s engine.State) error {
	r.rows = append(r.rows, storage.ThermoRow{
		Step:        s.Step,
		Time:        s.Time,
		Potential:   s.Potential,
		Kinetic:     s.Kinetic,
		Temperature: s.Temperature(r.dof),
	})
	return nil
}

func (r *Thermo) Close() error { return nil }

func (r *Thermo) Rows() []storage.ThermoRow { return r.rows }

// Averages returns the mean potential energy and temperature.
func (r *Thermo) Averages() (potential, temperature float64) {
	if len(r.rows) == 0 {
		return 0, 0
	}
	for _, row := range r.rows {
		potential += row.Potential
		temperature += row.Temperature
	}
	n := float64(len(r.rows))
	return potential / n, temperature / n
}
