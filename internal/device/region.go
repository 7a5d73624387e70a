package device

import (
	"fmt"

	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/material"
)

// Region is a contiguous span [Start, End) of one material, in metres.
type Region struct {
	Name     string
	Material *material.Material
	Start    float64
	End      float64
}

// NewRegion resolves materialName through the library.
func NewRegion(lib *material.Library, name, materialName string, start, end float64) (Region, error) {
	if !(start < end) {
		return Region{}, fmt.Errorf("region %q: start %g not before end %g: %w", name, start, end, dynamo.ErrInvalidParameter)
	}
	m, err := lib.Lookup(materialName)
	if err != nil {
		return Region{}, fmt.Errorf("region %q: %w", name, err)
	}
	return Region{Name: name, Material: &m, Start: start, End: end}, nil
}

func (r Region) Length() float64 { return r.End - r.Start }

// Contains reports whether x lies in [Start, End).
func (r Region) Contains(x float64) bool { return x >= r.Start && x < r.End }
