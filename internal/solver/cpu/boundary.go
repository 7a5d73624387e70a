package cpu

import (
	"math"

	"github.com/san-kum/mbsim/internal/device"
)

const (
	pmlGrading    = 3
	pmlReflection = 1e-6
)

// absorber describes the loss profile of the absorbing layers at both ends
// of the grid. Rates are conductivity over permittivity, in 1/s; the
// magnetic loss uses the same rate so the layer stays impedance matched.
type absorber struct {
	n           int
	left, right device.Boundary
	maxLeft     float64
	maxRight    float64
}

func newAbsorber(n int, dx float64, left, right device.Boundary, speed func(i int) float64) absorber {
	a := absorber{n: n, left: left, right: right}
	if left.Kind == device.BoundaryUPML {
		a.maxLeft = maxRate(left.Layers, dx, speed(0))
	}
	if right.Kind == device.BoundaryUPML {
		a.maxRight = maxRate(right.Layers, dx, speed(n-1))
	}
	return a
}

func maxRate(layers int, dx, v float64) float64 {
	return -(pmlGrading + 1) * math.Log(pmlReflection) * v / (2 * float64(layers) * dx)
}

// rate returns the absorber loss at fractional node position x, where
// integer values are E nodes and half values are H nodes.
func (a absorber) rate(x float64) float64 {
	r := 0.0
	if a.left.Kind == device.BoundaryUPML {
		if d := (float64(a.left.Layers) - x) / float64(a.left.Layers); d > 0 {
			r += a.maxLeft * math.Pow(math.Min(d, 1), pmlGrading)
		}
	}
	if a.right.Kind == device.BoundaryUPML {
		edge := float64(a.n - 1 - a.right.Layers)
		if d := (x - edge) / float64(a.right.Layers); d > 0 {
			r += a.maxRight * math.Pow(math.Min(d, 1), pmlGrading)
		}
	}
	return r
}
