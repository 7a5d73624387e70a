// Package dynamo provides the shared primitives of the simulation driver.
//
// The package defines:
//
//   - the error taxonomy ([ErrConfiguration], [ErrDispatch],
//     [ErrNumericalInstability], [ErrInvalidState]) and the typed
//     [RunError] and [IOError] wrappers
//   - [State] and [System]: the ODE view used by the density-matrix
//     integrators
//   - [ParallelFor]: chunked parallel loop over grid points
//
// # Errors
//
// Specific configuration errors wrap [ErrConfiguration], so callers can
// match either the precise kind or the whole family:
//
//	if errors.Is(err, dynamo.ErrConfiguration) {
//	    // bad device or scenario
//	}
package dynamo
