package engine

import (
	"errors"
	"fmt"
)

// Domain errors for system setup and dynamics.
var (
	// ErrConfiguration indicates a force or parameter that does not exist or
	// cannot take the requested value.
	ErrConfiguration = errors.New("engine: configuration error")

	// ErrNoParticles indicates a system without particles.
	ErrNoParticles = errors.New("engine: system has no particles")

	// ErrDimensionMismatch indicates position or parameter vectors whose length
	// does not match the system.
	ErrDimensionMismatch = errors.New("engine: dimension mismatch between state and system")

	// ErrUnstable indicates the dynamics produced non-finite energies or
	// coordinates.
	ErrUnstable = errors.New("engine: simulation unstable (state diverged)")

	// ErrUnknownBackend indicates a backend name that is not registered.
	ErrUnknownBackend = errors.New("engine: unknown backend")
)

// ConfigurationError reports a parameter override or force lookup that could
// not be applied.
type ConfigurationError struct {
	Force     string
	Parameter string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.Parameter == "" {
		return fmt.Sprintf("engine: %s: %s", e.Force, e.Reason)
	}
	return fmt.Sprintf("engine: %s: parameter %q: %s", e.Force, e.Parameter, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// StepError wraps a dynamics failure with the step at which it happened.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f ps): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
