package device

import (
	"fmt"

	"github.com/san-kum/mbsim/internal/dynamo"
)

type BoundaryKind int

const (
	BoundaryNone BoundaryKind = iota
	BoundaryUPML
)

func (k BoundaryKind) String() string {
	switch k {
	case BoundaryNone:
		return "none"
	case BoundaryUPML:
		return "upml"
	default:
		return fmt.Sprintf("boundary(%d)", int(k))
	}
}

// Boundary is the termination at one end of a device. Without an absorbing
// layer the end node is a perfect electric conductor.
type Boundary struct {
	Kind   BoundaryKind
	Layers int
}

func NoBoundary() Boundary { return Boundary{Kind: BoundaryNone} }

// UPML returns an absorbing boundary of the given thickness in grid cells.
func UPML(layers int) (Boundary, error) {
	if layers < 1 {
		return Boundary{}, fmt.Errorf("upml needs at least one layer, got %d: %w", layers, dynamo.ErrInvalidParameter)
	}
	return Boundary{Kind: BoundaryUPML, Layers: layers}, nil
}
