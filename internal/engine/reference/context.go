package reference

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/ionsim/internal/engine"
)

// Context is a system bound to a Langevin integrator.
type Context struct {
	masses []float64
	box    [3]float64
	integ  engine.LangevinIntegrator
	ev     *evaluator
	rng    *rand.Rand

	pos    [][3]float64
	vel    [][3]float64
	forces [][3]float64
	pe     float64

	step int
	time float64

	ready bool
}

func newContext(sys *engine.System, integ engine.LangevinIntegrator, ev *evaluator) *Context {
	n := sys.NumParticles()
	return &Context{
		masses: sys.Masses(),
		box:    sys.Box(),
		integ:  integ,
		ev:     ev,
		rng:    rand.New(rand.NewSource(1)),
		pos:    make([][3]float64, n),
		vel:    make([][3]float64, n),
		forces: make([][3]float64, n),
	}
}

func (c *Context) SetPositions(pos [][3]float64) error {
	if len(pos) != len(c.pos) {
		return fmt.Errorf("%d positions for %d particles: %w", len(pos), len(c.pos), engine.ErrDimensionMismatch)
	}
	copy(c.pos, pos)
	pe, err := c.ev.compute(c.pos, c.forces)
	if err != nil {
		return fmt.Errorf("initial positions: %w", err)
	}
	c.pe = pe
	c.ready = true
	return nil
}

// SetVelocitiesToTemperature draws Maxwell-Boltzmann velocities and removes
// the centre-of-mass momentum. The seed also drives the thermostat noise.
func (c *Context) SetVelocitiesToTemperature(temperature float64, seed int64) error {
	if temperature < 0 {
		return fmt.Errorf("temperature must be non-negative, got %g: %w", temperature, engine.ErrConfiguration)
	}
	c.rng = rand.New(rand.NewSource(seed))
	kT := engine.BoltzmannKJ * temperature
	for i, m := range c.masses {
		s := math.Sqrt(kT / m)
		for k := 0; k < 3; k++ {
			c.vel[i][k] = s * c.rng.NormFloat64()
		}
	}
	removeMomentum(c.masses, c.vel)
	return nil
}

func removeMomentum(masses []float64, vel [][3]float64) {
	var p [3]float64
	total := 0.0
	for i, m := range masses {
		total += m
		for k := 0; k < 3; k++ {
			p[k] += m * vel[i][k]
		}
	}
	if total == 0 {
		return
	}
	for i := range vel {
		for k := 0; k < 3; k++ {
			vel[i][k] -= p[k] / total
		}
	}
}

// Step advances n BAOAB Langevin steps. Cancellation is checked between
// steps.
func (c *Context) Step(ctx context.Context, n int) error {
	if !c.ready {
		return fmt.Errorf("step before positions were set: %w", engine.ErrConfiguration)
	}
	dt := c.integ.Timestep
	half := 0.5 * dt
	c1 := math.Exp(-c.integ.Friction * dt)
	c2 := math.Sqrt(1 - c1*c1)
	kT := engine.BoltzmannKJ * c.integ.Temperature

	for s := 0; s < n; s++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i, m := range c.masses {
			noise := c2 * math.Sqrt(kT/m)
			for k := 0; k < 3; k++ {
				c.vel[i][k] += half * c.forces[i][k] / m
				c.pos[i][k] += half * c.vel[i][k]
				c.vel[i][k] = c1*c.vel[i][k] + noise*c.rng.NormFloat64()
				c.pos[i][k] += half * c.vel[i][k]
			}
		}
		pe, err := c.ev.compute(c.pos, c.forces)
		c.step++
		c.time += dt
		if err != nil {
			return &engine.StepError{Step: c.step, Time: c.time, Wrapped: err}
		}
		c.pe = pe
		for i, m := range c.masses {
			for k := 0; k < 3; k++ {
				c.vel[i][k] += half * c.forces[i][k] / m
			}
		}
	}
	return nil
}

// Minimize runs steepest descent with an adaptive step until the largest
// force component drops below tolerance (kJ/mol/nm) or maxIterations is
// reached. maxIterations <= 0 means no limit.
func (c *Context) Minimize(ctx context.Context, tolerance float64, maxIterations int) error {
	if !c.ready {
		return fmt.Errorf("minimize before positions were set: %w", engine.ErrConfiguration)
	}
	trial := make([][3]float64, len(c.pos))
	trialF := make([][3]float64, len(c.pos))
	stepLen := 0.01 // nm

	for it := 0; maxIterations <= 0 || it < maxIterations; it++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmax := maxComponent(c.forces)
		if fmax < tolerance || fmax == 0 {
			return nil
		}
		scale := stepLen / fmax
		for i := range c.pos {
			for k := 0; k < 3; k++ {
				trial[i][k] = c.pos[i][k] + scale*c.forces[i][k]
			}
		}
		pe, err := c.ev.compute(trial, trialF)
		if err == nil && pe < c.pe {
			c.pos, trial = trial, c.pos
			c.forces, trialF = trialF, c.forces
			c.pe = pe
			stepLen *= 1.2
			continue
		}
		stepLen *= 0.2
		if stepLen < 1e-12 {
			return nil
		}
	}
	return nil
}

func maxComponent(f [][3]float64) float64 {
	m := 0.0
	for _, v := range f {
		for _, x := range v {
			if a := math.Abs(x); a > m {
				m = a
			}
		}
	}
	return m
}

func (c *Context) kinetic() float64 {
	ke := 0.0
	for i, m := range c.masses {
		v := c.vel[i]
		ke += 0.5 * m * (v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	}
	return ke
}

// State returns a copy of the current state.
func (c *Context) State() engine.State {
	s := engine.State{
		Step:       c.step,
		Time:       c.time,
		Positions:  make([][3]float64, len(c.pos)),
		Velocities: make([][3]float64, len(c.vel)),
		Potential:  c.pe,
		Kinetic:    c.kinetic(),
		Box:        c.box,
	}
	copy(s.Positions, c.pos)
	copy(s.Velocities, c.vel)
	return s
}

// Forces returns a copy of the current forces.
func (c *Context) Forces() [][3]float64 {
	out := make([][3]float64, len(c.forces))
	copy(out, c.forces)
	return out
}
