package qm

import (
	"fmt"

	"github.com/san-kum/mbsim/internal/dynamo"
)

// Description is the quantum-mechanical description of an active medium.
type Description struct {
	Levels         int
	Hamiltonian    Operator
	Dipole         Operator
	Relaxation     Lindblad
	CarrierDensity float64
	NumCarrierCell float64

	// Reduced is set when the description was built from the reduced
	// two-level parameters.
	Reduced *TwoLevel
}

// NewDescription checks that the Hamiltonian, dipole operator and
// relaxation superoperator share one dimension.
func NewDescription(density, numCarrierCell float64, h, u Operator, relax Lindblad) (*Description, error) {
	n := h.Levels()
	if n < 2 {
		return nil, fmt.Errorf("description needs at least two levels, got %d: %w", n, dynamo.ErrInvalidParameter)
	}
	if u.Levels() != n || relax.Levels() != n {
		return nil, fmt.Errorf("dimension mismatch: hamiltonian %d, dipole %d, relaxation %d: %w",
			n, u.Levels(), relax.Levels(), dynamo.ErrInvalidParameter)
	}
	if density < 0 || numCarrierCell < 0 {
		return nil, fmt.Errorf("negative carrier density: %w", dynamo.ErrInvalidParameter)
	}
	return &Description{
		Levels:         n,
		Hamiltonian:    h.Clone(),
		Dipole:         u.Clone(),
		Relaxation:     relax,
		CarrierDensity: density,
		NumCarrierCell: numCarrierCell,
	}, nil
}

// TwoLevel holds the reduced parameters of a two-level system.
// EquilibriumInversion follows w = rho_11 - rho_00, so -1 means all
// carriers relax into the lower level 0.
type TwoLevel struct {
	CarrierDensity       float64
	NumCarrierCell       float64
	TransitionFreq       float64 // angular frequency in rad/s
	DipoleMoment         float64 // C m
	ScatteringRate       float64 // 1/T1
	DephasingRate        float64 // 1/T2
	EquilibriumInversion float64
}

// NewTwoLevel expands reduced two-level parameters into the full Lindblad form.
func NewTwoLevel(p TwoLevel) (*Description, error) {
	if p.EquilibriumInversion < -1 || p.EquilibriumInversion > 1 {
		return nil, fmt.Errorf("equilibrium inversion %g outside [-1, 1]: %w", p.EquilibriumInversion, dynamo.ErrInvalidParameter)
	}
	if p.ScatteringRate < 0 || p.DephasingRate < p.ScatteringRate/2 {
		return nil, fmt.Errorf("dephasing rate %g below half the scattering rate %g: %w",
			p.DephasingRate, p.ScatteringRate, dynamo.ErrInvalidParameter)
	}

	energy := HBar * p.TransitionFreq / 2
	h, err := RealOperator([]float64{-energy, energy}, nil)
	if err != nil {
		return nil, err
	}
	u, err := RealOperator([]float64{0, 0}, []float64{p.DipoleMoment})
	if err != nil {
		return nil, err
	}

	w0 := p.EquilibriumInversion
	relax, err := NewLindblad(
		[][]float64{
			{0, p.ScatteringRate * (1 - w0) / 2},
			{p.ScatteringRate * (1 + w0) / 2, 0},
		},
		[]float64{p.DephasingRate - p.ScatteringRate/2},
	)
	if err != nil {
		return nil, err
	}

	d, err := NewDescription(p.CarrierDensity, p.NumCarrierCell, h, u, relax)
	if err != nil {
		return nil, err
	}
	reduced := p
	d.Reduced = &reduced
	return d, nil
}
