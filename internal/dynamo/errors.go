package dynamo

import (
	"errors"
	"fmt"
	"time"
)

// Configuration errors are raised eagerly while materials, devices and
// scenarios are assembled. Every specific kind wraps ErrConfiguration.
var (
	ErrConfiguration = errors.New("mbsim: configuration error")

	// ErrDuplicateName indicates a name collision in a library or scenario.
	ErrDuplicateName = fmt.Errorf("%w: duplicate name", ErrConfiguration)

	// ErrNotFound indicates a lookup by name failed.
	ErrNotFound = fmt.Errorf("%w: not found", ErrConfiguration)

	// ErrOverlap indicates device regions that are not contiguous.
	ErrOverlap = fmt.Errorf("%w: regions overlap or leave a gap", ErrConfiguration)

	// ErrInvalidParameter indicates a parameter value is outside valid range.
	ErrInvalidParameter = fmt.Errorf("%w: parameter out of valid bounds", ErrConfiguration)

	// ErrInvalidScenario indicates a scenario that cannot be discretized.
	ErrInvalidScenario = fmt.Errorf("%w: invalid scenario", ErrConfiguration)
)

// Dispatch errors are raised when a solver or format name cannot be resolved.
var (
	ErrDispatch = errors.New("mbsim: dispatch error")

	ErrUnknownSolver = fmt.Errorf("%w: unknown solver", ErrDispatch)
	ErrUnknownFormat = fmt.Errorf("%w: unknown format", ErrDispatch)
)

var (
	// ErrNumericalInstability indicates the field or density diverged (NaN or Inf).
	ErrNumericalInstability = errors.New("mbsim: simulation unstable (state diverged)")

	// ErrInvalidState indicates an operation not allowed in the current lifecycle state.
	ErrInvalidState = errors.New("mbsim: invalid state for operation")
)

// RunError wraps a solver failure with the context a user needs to see:
// which solver failed, how long it ran and where in simulated time it stopped.
type RunError struct {
	Solver  string
	Elapsed time.Duration
	Step    int
	Time    float64
	Wrapped error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("solver %s failed after %v at step %d (t=%.4e s): %v",
		e.Solver, e.Elapsed, e.Step, e.Time, e.Wrapped)
}

func (e *RunError) Unwrap() error {
	return e.Wrapped
}

// IOError reports a failed read or write together with the target path.
type IOError struct {
	Op      string
	Path    string
	Wrapped error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Wrapped)
}

func (e *IOError) Unwrap() error {
	return e.Wrapped
}
