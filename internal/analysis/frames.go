package analysis

import (
	"fmt"
	"io"

	chem "github.com/rmera/gochem"
	"github.com/rmera/gochem/traj/dcd"
	v3 "github.com/rmera/gochem/v3"
)

// FrameSource yields trajectory frames in nm. Next returns io.EOF after
// the last frame.
type FrameSource interface {
	NumAtoms() int
	Next(pos [][3]float64) error
}

type dcdFrames struct {
	traj   *dcd.DCDObj
	coords *v3.Matrix
}

// DCDFrames opens a DCD trajectory written in Å.
func DCDFrames(path string, natoms int) (FrameSource, error) {
	traj, err := dcd.New(path)
	if err != nil {
		return nil, fmt.Errorf("open trajectory %s: %w", path, err)
	}
	if traj.Len() != natoms {
		return nil, fmt.Errorf("trajectory %s has %d atoms, structure has %d", path, traj.Len(), natoms)
	}
	return &dcdFrames{traj: traj, coords: v3.Zeros(natoms)}, nil
}

func (d *dcdFrames) NumAtoms() int { return d.traj.Len() }

func (d *dcdFrames) Next(pos [][3]float64) error {
	if err := d.traj.Next(d.coords); err != nil {
		if _, ok := err.(chem.LastFrameError); ok {
			return io.EOF
		}
		return err
	}
	for i := range pos {
		for k := 0; k < 3; k++ {
			pos[i][k] = d.coords.At(i, k) / 10
		}
	}
	return nil
}

// SliceFrames serves frames held in memory.
type SliceFrames struct {
	Frames [][][3]float64
	next   int
}

func (s *SliceFrames) NumAtoms() int {
	if len(s.Frames) == 0 {
		return 0
	}
	return len(s.Frames[0])
}

func (s *SliceFrames) Next(pos [][3]float64) error {
	if s.next >= len(s.Frames) {
		return io.EOF
	}
	copy(pos, s.Frames[s.next])
	s.next++
	return nil
}
