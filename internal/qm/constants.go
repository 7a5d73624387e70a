package qm

import "math"

// Physical constants in SI units.
const (
	// Eps0 is the vacuum permittivity in F/m.
	Eps0 = 8.854187817e-12

	// Mu0 is the vacuum permeability in H/m.
	Mu0 = 4 * math.Pi * 1e-7

	// HBar is the reduced Planck constant in J s.
	HBar = 1.054571726e-34

	// KB is the Boltzmann constant in J/K.
	KB = 1.3806488e-23

	// E0 is the elementary charge in C. Energies given in eV and dipole
	// moments given in nm are scaled by E0.
	E0 = 1.602176565e-19
)

// C0 is the vacuum speed of light in m/s.
var C0 = 1 / math.Sqrt(Mu0*Eps0)
