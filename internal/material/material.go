package material

import (
	"fmt"
	"math"

	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/qm"
)

// Kind distinguishes passive media from quantum-mechanically active ones.
type Kind int

const (
	Vacuum Kind = iota
	QuantumActive
)

func (k Kind) String() string {
	switch k {
	case Vacuum:
		return "vacuum"
	case QuantumActive:
		return "quantum-active"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Material is a named physical medium. Values are immutable once built;
// the library hands out copies.
type Material struct {
	Name            string
	Kind            Kind
	QM              *qm.Description
	RelPermittivity float64
	RelPermeability float64
	Overlap         float64
	Losses          float64
}

// Option customises a material at construction time.
type Option func(*Material)

// WithPermittivity sets the relative background permittivity.
func WithPermittivity(epsR float64) Option {
	return func(m *Material) { m.RelPermittivity = epsR }
}

// WithPermeability sets the relative permeability.
func WithPermeability(muR float64) Option {
	return func(m *Material) { m.RelPermeability = muR }
}

// WithOverlap sets the overlap factor between the optical mode and the
// active medium.
func WithOverlap(gamma float64) Option {
	return func(m *Material) { m.Overlap = gamma }
}

// WithLosses sets the field attenuation coefficient in 1/m.
func WithLosses(alpha float64) Option {
	return func(m *Material) { m.Losses = alpha }
}

// NewVacuum builds a non-dispersive medium.
func NewVacuum(name string, opts ...Option) (Material, error) {
	return build(name, Vacuum, nil, opts)
}

// New builds a quantum-mechanically active medium.
func New(name string, desc *qm.Description, opts ...Option) (Material, error) {
	if desc == nil {
		return Material{}, fmt.Errorf("material %q: active medium without description: %w", name, dynamo.ErrInvalidParameter)
	}
	return build(name, QuantumActive, desc, opts)
}

func build(name string, kind Kind, desc *qm.Description, opts []Option) (Material, error) {
	m := Material{
		Name:            name,
		Kind:            kind,
		QM:              desc,
		RelPermittivity: 1,
		RelPermeability: 1,
		Overlap:         1,
	}
	for _, opt := range opts {
		opt(&m)
	}
	if err := m.validate(); err != nil {
		return Material{}, err
	}
	return m, nil
}

func (m Material) validate() error {
	if m.Name == "" {
		return fmt.Errorf("material without name: %w", dynamo.ErrInvalidParameter)
	}
	if m.RelPermittivity <= 0 || m.RelPermeability <= 0 {
		return fmt.Errorf("material %q: permittivity and permeability must be positive: %w", m.Name, dynamo.ErrInvalidParameter)
	}
	if m.Overlap <= 0 || m.Overlap > 1 {
		return fmt.Errorf("material %q: overlap %g outside (0, 1]: %w", m.Name, m.Overlap, dynamo.ErrInvalidParameter)
	}
	if m.Losses < 0 {
		return fmt.Errorf("material %q: negative losses: %w", m.Name, dynamo.ErrInvalidParameter)
	}
	return nil
}

// LossRate converts the attenuation coefficient into the temporal damping
// rate sigma/eps in 1/s: a field travelling at c0/n loses amplitude at
// alpha per metre, so sigma/eps = 2 alpha c0/n.
func (m Material) LossRate() float64 {
	return 2 * m.Losses * qm.C0 / math.Sqrt(m.RelPermittivity*m.RelPermeability)
}

// Active reports whether the material carries matter dynamics.
func (m Material) Active() bool { return m.Kind == QuantumActive }

// Levels returns the level count of an active medium and 0 for vacuum.
func (m Material) Levels() int {
	if m.QM == nil {
		return 0
	}
	return m.QM.Levels
}
