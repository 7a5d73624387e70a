package scenario

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/san-kum/mbsim/internal/dynamo"
)

type Quantity int

const (
	Electric Quantity = iota
	Magnetic
	Polarization
	Inversion
	Density
)

func (q Quantity) String() string {
	switch q {
	case Electric:
		return "e"
	case Magnetic:
		return "h"
	case Polarization:
		return "p"
	case Inversion:
		return "inv"
	case Density:
		return "d"
	default:
		return fmt.Sprintf("quantity(%d)", int(q))
	}
}

// Observable is the quantity a record samples. I and J are zero-based level
// indices for Inversion and Density.
type Observable struct {
	Quantity Quantity
	I, J     int
}

// Complex reports whether samples have an imaginary part. Only coherences
// (off-diagonal density elements) are complex.
func (o Observable) Complex() bool {
	return o.Quantity == Density && o.I != o.J
}

// MaxLevel is the smallest level count the observable is defined for.
func (o Observable) MaxLevel() int {
	if o.Quantity != Inversion && o.Quantity != Density {
		return 0
	}
	return max(o.I, o.J) + 1
}

var (
	fieldName = regexp.MustCompile(`^([ehp])(\d*)(_\w+)?$`)
	levelName = regexp.MustCompile(`^(inv|d)(\d)(\d)(_\w+)?$`)
)

// ParseObservable resolves a record name to its observable. Accepted forms
// are e, h and p with an optional numeric or _label suffix, invIJ for the
// population inversion rho_JJ - rho_II and dIJ for a density element, with
// one-based level indices and an optional _label suffix.
func ParseObservable(name string) (Observable, error) {
	if m := fieldName.FindStringSubmatch(name); m != nil {
		q := map[string]Quantity{"e": Electric, "h": Magnetic, "p": Polarization}[m[1]]
		return Observable{Quantity: q}, nil
	}
	if m := levelName.FindStringSubmatch(name); m != nil {
		i, _ := strconv.Atoi(m[2])
		j, _ := strconv.Atoi(m[3])
		if i < 1 || j < 1 {
			return Observable{}, fmt.Errorf("record %q: level indices start at 1: %w", name, dynamo.ErrInvalidParameter)
		}
		q := Density
		if m[1] == "inv" {
			q = Inversion
			if i == j {
				return Observable{}, fmt.Errorf("record %q: inversion needs two distinct levels: %w", name, dynamo.ErrInvalidParameter)
			}
		}
		return Observable{Quantity: q, I: i - 1, J: j - 1}, nil
	}
	return Observable{}, fmt.Errorf("record %q: unknown observable: %w", name, dynamo.ErrInvalidParameter)
}

// Record requests periodic sampling of an observable. A nil Position
// samples every grid point; an Interval of 0 samples every time step.
type Record struct {
	Name       string
	Interval   float64
	Position   *float64
	Observable Observable
}

func NewRecord(name string, interval float64) (Record, error) {
	obs, err := ParseObservable(name)
	if err != nil {
		return Record{}, err
	}
	if interval < 0 {
		return Record{}, fmt.Errorf("record %q: negative interval: %w", name, dynamo.ErrInvalidParameter)
	}
	return Record{Name: name, Interval: interval, Observable: obs}, nil
}

func NewPointRecord(name string, interval, position float64) (Record, error) {
	r, err := NewRecord(name, interval)
	if err != nil {
		return Record{}, err
	}
	r.Position = &position
	return r, nil
}

// Every returns the sampling period in time steps.
func (r Record) Every(dt float64) int {
	return max(1, int(math.Round(r.Interval/dt)))
}
