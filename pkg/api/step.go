package api

import "context"

// Step is a single unit of work in a pipeline.
//
// A Step runs once per invocation against the ExecutionContext of the
// current run. Steps are created when a pipeline is built and may be invoked
// many times, possibly concurrently for different runs, so implementations
// must not keep per-run state in their own fields.
type Step interface {
	// Name identifies the step. Routing slips and registries resolve steps
	// by this name, and Scatter-Gather derives the handler result key from it.
	Name() string

	// Run executes the step. ctx carries the hard cancellation signal;
	// ec carries the run's values and the soft abort flag.
	Run(ctx context.Context, ec *ExecutionContext) error
}

// StepFunc is the function form of a step body.
type StepFunc func(ctx context.Context, ec *ExecutionContext) error

// Predicate reports whether a condition holds for the current run.
type Predicate func(ec *ExecutionContext) bool

type funcStep struct {
	name string
	fn   StepFunc
}

// NewStep wraps fn into a Step with the given name.
func NewStep(name string, fn StepFunc) Step {
	return &funcStep{name: name, fn: fn}
}

func (s *funcStep) Name() string { return s.name }

func (s *funcStep) Run(ctx context.Context, ec *ExecutionContext) error {
	return s.fn(ctx, ec)
}

// Noop returns a step that does nothing.
func Noop(name string) Step {
	return NewStep(name, func(context.Context, *ExecutionContext) error { return nil })
}
