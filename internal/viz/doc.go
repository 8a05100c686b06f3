// Package viz draws the live terminal view of a running simulation.
//
// The view is a Bubble Tea program fed by [FrameMsg] values:
//
//   - [Canvas]: Braille pixel canvas showing particles projected on xy
//   - energy and temperature histories plotted with asciigraph
//   - progress bar and throughput in ns/day
//
// # Key Bindings
//
//	Space - Freeze/unfreeze the display (the simulation keeps running)
//	P     - Cycle projection plane (xy, xz, yz)
//	Q     - Detach the view
package viz
