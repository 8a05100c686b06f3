package reporters

import (
	"fmt"

	"github.com/rmera/gochem/traj/dcd"
	v3 "github.com/rmera/gochem/v3"

	"github.com/san-kum/ionsim/internal/engine"
)

const angstromPerNm = 10

// DCDReporter appends frames to a DCD trajectory in Å. The box is not
// stored in the file.
type DCDReporter struct {
	w        *dcd.DCDWObj
	interval int
	natoms   int
	coords   *v3.Matrix
	frames   int
}

func NewDCD(path string, natoms, interval int) (*DCDReporter, error) {
	w, err := dcd.NewWriter(path, natoms)
	if err != nil {
		return nil, fmt.Errorf("open trajectory %s: %w", path, err)
	}
	return &DCDReporter{
		w:        w,
		interval: interval,
		natoms:   natoms,
		coords:   v3.Zeros(natoms),
	}, nil
}

func (r *DCDReporter) Interval() int { return r.interval }

func (r *DCDReporter) Report(s engine.State) error {
	if len(s.Positions) != r.natoms {
		return fmt.Errorf("dcd: %d positions for %d atoms: %w", len(s.Positions), r.natoms, engine.ErrDimensionMismatch)
	}
	for i, p := range s.Positions {
		for k := 0; k < 3; k++ {
			r.coords.Set(i, k, p[k]*angstromPerNm)
		}
	}
	if err := r.w.WNext(r.coords); err != nil {
		return fmt.Errorf("dcd frame %d: %w", r.frames, err)
	}
	r.frames++
	return nil
}

// Frames is the number of frames written so far.
func (r *DCDReporter) Frames() int { return r.frames }

func (r *DCDReporter) Close() error {
	r.w.Close()
	return nil
}
