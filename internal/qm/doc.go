// Package qm holds the physical constants and quantum-mechanical building
// blocks of an active medium: Hermitian operators in positional form, the
// Lindblad relaxation superoperator, the full and reduced two-level
// descriptions, and [Bloch], the density-matrix right-hand side stepped by
// the solvers.
//
// # Positional layout
//
// Off-diagonal elements are stored in row-major upper-triangle order. For
// three levels the order is (0,1), (0,2), (1,2). [OffIndex] is the single
// source of truth for this mapping.
package qm
