package device

import (
	"fmt"
	"sync"

	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/material"
)

// Device is an ordered, gap-free sequence of regions. Once a solver has
// been created for it the device is frozen and becomes read-only.
type Device struct {
	Name string

	mu      sync.RWMutex
	regions []Region
	left    Boundary
	right   Boundary
	frozen  bool
}

func New(name string) *Device {
	return &Device{Name: name}
}

// AddRegion appends r. Every region after the first must start exactly
// where the previous one ends.
func (d *Device) AddRegion(r Region) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frozen {
		return fmt.Errorf("device %q is frozen: %w", d.Name, dynamo.ErrInvalidState)
	}
	if r.Material == nil || !(r.Start < r.End) {
		return fmt.Errorf("device %q: malformed region %q: %w", d.Name, r.Name, dynamo.ErrInvalidParameter)
	}
	for _, existing := range d.regions {
		if existing.Name == r.Name {
			return fmt.Errorf("device %q: region %q: %w", d.Name, r.Name, dynamo.ErrDuplicateName)
		}
	}
	if n := len(d.regions); n > 0 {
		last := d.regions[n-1]
		if r.Start != last.End {
			return fmt.Errorf("device %q: region %q starts at %g, previous ends at %g: %w",
				d.Name, r.Name, r.Start, last.End, dynamo.ErrOverlap)
		}
	}
	d.regions = append(d.regions, r)
	return nil
}

// SetBoundaries sets both end conditions. It is a no-op once frozen.
func (d *Device) SetBoundaries(left, right Boundary) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frozen {
		return fmt.Errorf("device %q is frozen: %w", d.Name, dynamo.ErrInvalidState)
	}
	d.left, d.right = left, right
	return nil
}

// Freeze marks the device read-only.
func (d *Device) Freeze() {
	d.mu.Lock()
	d.frozen = true
	d.mu.Unlock()
}

func (d *Device) Frozen() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.frozen
}

func (d *Device) Boundaries() (Boundary, Boundary) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.left, d.right
}

// Regions returns a copy of the region list.
func (d *Device) Regions() []Region {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Region, len(d.regions))
	copy(out, d.regions)
	return out
}

func (d *Device) Start() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.regions) == 0 {
		return 0
	}
	return d.regions[0].Start
}

func (d *Device) Length() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.regions) == 0 {
		return 0
	}
	return d.regions[len(d.regions)-1].End - d.regions[0].Start
}

// MaterialAt returns the material at position x. The last region is
// closed at its end so the final grid node resolves.
func (d *Device) MaterialAt(x float64) (*material.Material, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for i, r := range d.regions {
		if r.Contains(x) || (i == len(d.regions)-1 && x == r.End) {
			return r.Material, nil
		}
	}
	return nil, fmt.Errorf("device %q: no region at x=%g: %w", d.Name, x, dynamo.ErrNotFound)
}

// Validate checks the device can be discretised.
func (d *Device) Validate() error {
	if len(d.Regions()) == 0 {
		return fmt.Errorf("device %q has no regions: %w", d.Name, dynamo.ErrInvalidParameter)
	}
	if d.Length() <= 0 {
		return fmt.Errorf("device %q has non-positive length: %w", d.Name, dynamo.ErrInvalidParameter)
	}
	return nil
}
