// Package engine describes a particle system the way an external
// molecular-dynamics engine consumes it.
//
// The package owns the declarative side of a simulation:
//
//   - [System]: particles, periodic box and an ordered list of forces
//   - [HarmonicBondForce], [NonbondedForce], [CustomNonbondedForce]: force terms
//   - [GlobalParameters]: named scalars shared by every particle of a force
//   - [Handles]: typed force handles resolved once by [ForceKind]
//
// Dynamics are delegated to a [Backend], which turns a System and a
// [LangevinIntegrator] into a running [Context]. The in-process reference
// backend lives in the reference subpackage.
//
// # Ownership
//
// A System is an owned handle passed by pointer through the setup pipeline.
// It is never copied; forces are mutated in place by the parameter and
// rigid-body stages before a Context is created. Contexts snapshot the
// system at creation time.
package engine
