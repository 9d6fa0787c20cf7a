package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownStep is returned when a step name cannot be resolved in a
	// registry. It is a configuration error and is never retried.
	ErrUnknownStep = errors.New("unknown step")

	// ErrDuplicateStep is returned when registering a name twice.
	ErrDuplicateStep = errors.New("step already registered")

	// ErrMissingClaimTicket is returned by a claim retrieve that runs before
	// any claim check stored a ticket in the same run.
	ErrMissingClaimTicket = errors.New("claim ticket missing from context")

	// ErrTicketNotFound is returned by claim-check stores for unknown tickets.
	ErrTicketNotFound = errors.New("claim ticket not found")

	// ErrUnknownFormat is returned by a normalizer that has no translator for
	// the detected format and no default.
	ErrUnknownFormat = errors.New("unknown message format")

	// ErrInvalidValue is returned when a context value is missing or has an
	// unexpected type.
	ErrInvalidValue = errors.New("invalid context value")

	// ErrPipelineNotFound is returned when running an unregistered pipeline.
	ErrPipelineNotFound = errors.New("pipeline not found")

	// ErrPipelineExists is returned when registering a pipeline name twice.
	ErrPipelineExists = errors.New("pipeline already registered")
)

// StepError reports which top-level step of a pipeline failed.
type StepError struct {
	Step  string
	Index int
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q (#%d): %v", e.Step, e.Index, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
