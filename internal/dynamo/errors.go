package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidPopulation indicates a negative initial rabbit or fox count.
	ErrInvalidPopulation = errors.New("dynamo: invalid population (negative count)")

	// ErrInvalidRate indicates a negative or non-finite rate constant or event rate.
	ErrInvalidRate = errors.New("dynamo: invalid rate (negative, NaN or Inf)")

	// ErrInvalidHorizon indicates a non-positive or non-finite time horizon.
	ErrInvalidHorizon = errors.New("dynamo: horizon must be positive and finite")

	// ErrInvalidRuns indicates an ensemble with no runs or no workers.
	ErrInvalidRuns = errors.New("dynamo: ensemble needs at least one run")

	// ErrContextCanceled indicates the simulation was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")
)

// SimulationError wraps an error with the event and sample at which it occurred.
type SimulationError struct {
	Event   int
	Time    float64
	Sample  Sample
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("event %d (t=%.4f, rabbits=%d, foxes=%d): %v",
		e.Event, e.Time, e.Sample.Rabbits, e.Sample.Foxes, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
