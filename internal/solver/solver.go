package solver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/san-kum/mbsim/internal/dynamo"
)

// Solver runs one (device, scenario) pair. Implementations are created
// through a Registry and are single-use.
type Solver interface {
	Name() string
	// Run blocks until the simulation finishes, fails or ctx is cancelled.
	Run(ctx context.Context) error
	// Results is available once the run completed.
	Results() (*ResultSet, error)
	// SimData returns a consistent snapshot of the current state. It may be
	// called from other goroutines while Run is in progress.
	SimData() (*SimData, error)
	Elapsed() time.Duration
	Status() Status
}

type Status int

const (
	Configured Status = iota
	Running
	Completed
	Failed
)

func (s Status) String() string {
	switch s {
	case Configured:
		return "configured"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Lifecycle is the state machine shared by solver implementations.
// The zero value is in Configured state.
type Lifecycle struct {
	mu      sync.Mutex
	status  Status
	started time.Time
	elapsed time.Duration
	err     error
}

// Begin moves Configured to Running. Any other state is an error.
func (l *Lifecycle) Begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status != Configured {
		return fmt.Errorf("cannot run solver in state %s: %w", l.status, dynamo.ErrInvalidState)
	}
	l.status = Running
	l.started = time.Now()
	return nil
}

// Finish ends a run, Completed when err is nil and Failed otherwise.
func (l *Lifecycle) Finish(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status != Running {
		return
	}
	l.elapsed = time.Since(l.started)
	l.err = err
	if err != nil {
		l.status = Failed
	} else {
		l.status = Completed
	}
}

func (l *Lifecycle) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Elapsed is the wall time of the run so far, or of the whole run once it
// finished.
func (l *Lifecycle) Elapsed() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status == Running {
		return time.Since(l.started)
	}
	return l.elapsed
}

// Err returns the error the run failed with.
func (l *Lifecycle) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// RequireCompleted fails unless the run completed.
func (l *Lifecycle) RequireCompleted() error {
	if s := l.Status(); s != Completed {
		return fmt.Errorf("results unavailable in state %s: %w", s, dynamo.ErrInvalidState)
	}
	return nil
}

// RequireStarted fails while the solver has not been run yet.
func (l *Lifecycle) RequireStarted() error {
	if s := l.Status(); s == Configured {
		return fmt.Errorf("no simulation data in state %s: %w", s, dynamo.ErrInvalidState)
	}
	return nil
}
