package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/ionsim/internal/engine"
)

// Simulation steps a context and feeds reporters.
type Simulation struct {
	ctx       engine.Context
	reporters []engine.Reporter
}

func NewSimulation(ctx engine.Context, reporters ...engine.Reporter) *Simulation {
	return &Simulation{ctx: ctx, reporters: reporters}
}

func (s *Simulation) AddReporter(r engine.Reporter) { s.reporters = append(s.reporters, r) }

func (s *Simulation) CurrentStep() int { return s.ctx.State().Step }

// Step advances n steps. The context is stepped in chunks ending on every
// step that is a multiple of some reporter interval, and each reporter runs
// when the step is a multiple of its own interval.
func (s *Simulation) Step(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("negative step count %d", n)
	}
	current := s.CurrentStep()
	end := current + n
	for current < end {
		if err := ctx.Err(); err != nil {
			return err
		}
		next := s.nextReport(current, end)
		if err := s.ctx.Step(ctx, next-current); err != nil {
			return err
		}
		current = next
		if err := s.report(current); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) nextReport(current, end int) int {
	next := end
	for _, r := range s.reporters {
		iv := r.Interval()
		if iv <= 0 {
			continue
		}
		if due := (current/iv + 1) * iv; due < next {
			next = due
		}
	}
	return next
}

func (s *Simulation) report(step int) error {
	var state engine.State
	fetched := false
	for _, r := range s.reporters {
		iv := r.Interval()
		if iv <= 0 || step%iv != 0 {
			continue
		}
		if !fetched {
			state = s.ctx.State()
			fetched = true
		}
		if err := r.Report(state); err != nil {
			return fmt.Errorf("reporter at step %d: %w", step, err)
		}
	}
	return nil
}
