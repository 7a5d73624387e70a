// Package viz is the live terminal monitor of a running solver.
//
// [Monitor] is a Bubble Tea model that polls [solver.Solver.SimData] on a
// fixed tick and renders the progress through simulated time, the current
// electric field as a line chart and the population inversion profile on a
// braille [Canvas]. It quits on its own once the solver leaves the running
// state.
//
// # Key Bindings
//
//	q, ctrl+c - cancel the run and quit
package viz
