package api

import "context"

// Status represents the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusAborted   Status = "ABORTED"
	StatusFailed    Status = "FAILED"
)

// PipelineDefinition describes a pipeline as a linear sequence of steps.
type PipelineDefinition struct {
	Name  string
	Steps []Step
}

// Run holds the outcome of executing a pipeline once.
type Run struct {
	ID            string
	CorrelationID string
	Pipeline      string
	Status        Status
	Err           error

	// Context is the execution context the run used. Callers read results
	// from it after the run returns.
	Context *ExecutionContext

	// CompletedSteps counts top-level steps that returned without error.
	// When Status is StatusAborted, the step that set the abort flag is
	// included.
	CompletedSteps int
}

// Engine runs registered pipelines in-process.
type Engine interface {
	// RegisterPipeline registers a definition by name.
	RegisterPipeline(def PipelineDefinition) error

	// Run executes the pipeline with a fresh execution context seeded with
	// input.
	Run(ctx context.Context, name string, input map[string]any) (*Run, error)

	// RunContext executes the pipeline against a caller-provided context,
	// for example one carrying a specific correlation ID.
	RunContext(ctx context.Context, name string, ec *ExecutionContext) (*Run, error)

	// Pipelines returns the registered pipeline names in sorted order.
	Pipelines() []string
}
