package writer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/san-kum/mbsim/internal/device"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/qm"
	"github.com/san-kum/mbsim/internal/scenario"
	"github.com/san-kum/mbsim/internal/solver"
)

var (
	// ErrVersion indicates a checkpoint written by an incompatible version.
	ErrVersion = errors.New("writer: unsupported checkpoint version")
	// ErrDigest indicates a checkpoint whose payload does not match its digest.
	ErrDigest = errors.New("writer: checkpoint digest mismatch")
	// ErrNoCheckpoint indicates a file without simulation data.
	ErrNoCheckpoint = errors.New("writer: file holds no checkpoint")
	// ErrCorruptCheckpoint indicates a checkpoint whose arrays do not fit
	// together.
	ErrCorruptCheckpoint = errors.New("writer: corrupt checkpoint")
)

// Writer persists results and checkpoints in one file format.
type Writer interface {
	Name() string
	Extension() string
	Write(path string, rs *solver.ResultSet, dev *device.Device, scen *scenario.Scenario) error
	Autosave(path string, data *solver.SimData, dev *device.Device, scen *scenario.Scenario) error
}

// Reader loads what a Writer of the same format produced.
type Reader interface {
	Name() string
	Extension() string
	ReadResults(path string) (*solver.ResultSet, error)
	ReadDensity(path string) ([]qm.Operator, error)
	// ReadField returns the "e", "h" or "p" field of a checkpoint.
	ReadField(path, field string) ([]float64, error)
	// ReadTime returns the simulated time at which a checkpoint was taken.
	ReadTime(path string) (float64, error)
	// ReadGrid returns the gridpoint size and timestep size of a checkpoint.
	ReadGrid(path string) (dx, dt float64, err error)
}

type Registry struct {
	mu      sync.RWMutex
	writers map[string]Writer
	readers map[string]Reader
}

func NewRegistry() *Registry {
	return &Registry{
		writers: make(map[string]Writer),
		readers: make(map[string]Reader),
	}
}

// Default returns a registry holding every built-in format.
func Default() *Registry {
	r := NewRegistry()
	for _, f := range binaryFormats() {
		must(r.RegisterWriter(f))
		must(r.RegisterReader(f))
	}
	must(r.RegisterWriter(csvFormat{}))
	return r
}

// must panics on a registration error. Built-in formats with clashing
// names are a programming error.
func must(err error) {
	if err != nil {
		panic(err)
	}
}

func (r *Registry) RegisterWriter(w Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.writers[w.Name()]; ok {
		return fmt.Errorf("writer %q: %w", w.Name(), dynamo.ErrDuplicateName)
	}
	r.writers[w.Name()] = w
	return nil
}

func (r *Registry) RegisterReader(rd Reader) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.readers[rd.Name()]; ok {
		return fmt.Errorf("reader %q: %w", rd.Name(), dynamo.ErrDuplicateName)
	}
	r.readers[rd.Name()] = rd
	return nil
}

func (r *Registry) CreateWriter(name string) (Writer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.writers[name]
	if !ok {
		return nil, fmt.Errorf("writer %q: %w", name, dynamo.ErrUnknownFormat)
	}
	return w, nil
}

func (r *Registry) CreateReader(name string) (Reader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rd, ok := r.readers[name]
	if !ok {
		return nil, fmt.Errorf("reader %q: %w", name, dynamo.ErrUnknownFormat)
	}
	return rd, nil
}

// Formats lists the names of all writable formats.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.writers))
	for k := range r.writers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ReaderFor picks the reader whose extension matches path, preferring the
// longest match so ".mpk.lz4" wins over ".lz4".
func (r *Registry) ReaderFor(path string) (Reader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best Reader
	for _, rd := range r.readers {
		if strings.HasSuffix(path, "."+rd.Extension()) {
			if best == nil || len(rd.Extension()) > len(best.Extension()) {
				best = rd
			}
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no reader for %q: %w", path, dynamo.ErrUnknownFormat)
	}
	return best, nil
}

// OutputName is the conventional result file name {device}_{scenario}.{ext}.
func OutputName(dev, scen, ext string) string {
	return dev + "_" + scen + "." + ext
}

// AutosaveName is the conventional checkpoint file name.
func AutosaveName(dev, scen, ext string) string {
	return dev + "_" + scen + "_autosave." + ext
}
