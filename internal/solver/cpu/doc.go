// Package cpu provides the built-in Maxwell-Bloch solvers. All of them use
// a one-dimensional Yee grid for the optical field; they differ in how the
// density matrix of active media is advanced.
//
// Solver names follow {platform}-{field scheme}-{matter model}-{method}:
//
//	cpu-fdtd-noop        field propagation only, density held constant
//	cpu-fdtd-2lvl-rk4    two-level media, fourth-order Runge-Kutta
//	cpu-fdtd-nlvl-rk4    media with any number of levels, Runge-Kutta
//	cpu-fdtd-nlvl-euler  media with any number of levels, explicit Euler
//
// The electric field lives on the NumGridpoints nodes and the magnetic
// field on the half nodes between them. The magnetic field slice carries
// one trailing element that is always zero so both have the same length.
package cpu
