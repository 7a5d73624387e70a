package solver

import (
	"fmt"
	"sort"
	"sync"

	"github.com/san-kum/mbsim/internal/device"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/scenario"
)

// Factory builds a solver for a device and scenario. It must not modify
// either of them.
type Factory func(dev *device.Device, scen *scenario.Scenario) (Solver, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("solver %q: %w", name, dynamo.ErrDuplicateName)
	}
	r.factories[name] = f
	return nil
}

// Create looks up a solver by name and builds it. The device is frozen
// only when construction succeeds.
func (r *Registry) Create(name string, dev *device.Device, scen *scenario.Scenario) (Solver, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("solver %q: %w", name, dynamo.ErrUnknownSolver)
	}
	if dev == nil || scen == nil {
		return nil, fmt.Errorf("solver %q: nil device or scenario: %w", name, dynamo.ErrInvalidParameter)
	}
	if err := dev.Validate(); err != nil {
		return nil, err
	}
	s, err := f(dev, scen)
	if err != nil {
		return nil, err
	}
	dev.Freeze()
	return s, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for k := range r.factories {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
