package material

import (
	"fmt"
	"sort"
	"sync"

	"github.com/san-kum/mbsim/internal/dynamo"
)

// Library is the registry of materials for one process or experiment.
// It is populated during setup and only read while solving. Registration
// is serialised so concurrent setup code cannot race.
type Library struct {
	mu        sync.RWMutex
	materials map[string]Material
}

func NewLibrary() *Library {
	return &Library{materials: make(map[string]Material)}
}

// Add registers a material under its name.
func (l *Library) Add(m Material) error {
	if err := m.validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.materials[m.Name]; ok {
		return fmt.Errorf("material %q: %w", m.Name, dynamo.ErrDuplicateName)
	}
	l.materials[m.Name] = m
	return nil
}

// Lookup resolves a material by name.
func (l *Library) Lookup(name string) (Material, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.materials[name]
	if !ok {
		return Material{}, fmt.Errorf("material %q: %w", name, dynamo.ErrNotFound)
	}
	return m, nil
}

// Names lists the registered materials in sorted order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.materials))
	for name := range l.materials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
