package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/petrijr/conduit/pkg/api"
)

// engineImpl is a simple, synchronous, in-process engine implementation.
type engineImpl struct {
	pipelines *pipelineRegistry
	observer  api.Observer
	logger    *slog.Logger
}

// Config describes how to construct an engineImpl.
// Only used inside this module; external callers use the helper functions.
type Config struct {
	Observer api.Observer
	// Logger is the base logger handed to execution contexts created by
	// Run. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewInMemoryEngine returns an Engine with no observer.
func NewInMemoryEngine() api.Engine {
	return NewEngineWithConfig(Config{})
}

// NewEngineWithConfig creates a new Engine using the given configuration.
func NewEngineWithConfig(cfg Config) api.Engine {
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &engineImpl{
		pipelines: newPipelineRegistry(),
		observer:  obs,
		logger:    logger,
	}
}

func (e *engineImpl) RegisterPipeline(def api.PipelineDefinition) error {
	if def.Name == "" {
		return errors.New("pipeline name is required")
	}
	if len(def.Steps) == 0 {
		return errors.New("pipeline must have at least one step")
	}
	for i, s := range def.Steps {
		if s == nil {
			return fmt.Errorf("pipeline %s: step #%d is nil", def.Name, i)
		}
	}
	return e.pipelines.Register(def)
}

func (e *engineImpl) Pipelines() []string {
	return e.pipelines.Names()
}

func (e *engineImpl) Run(ctx context.Context, name string, input map[string]any) (*api.Run, error) {
	ec := api.NewExecutionContext(
		api.WithValues(input),
		api.WithLogger(e.logger),
	)
	return e.RunContext(ctx, name, ec)
}

func (e *engineImpl) RunContext(ctx context.Context, name string, ec *api.ExecutionContext) (*api.Run, error) {
	def, err := e.pipelines.Get(name)
	if err != nil {
		return nil, err
	}
	if ec == nil {
		ec = api.NewExecutionContext(api.WithLogger(e.logger))
	}

	run := &api.Run{
		ID:            ec.RunID(),
		CorrelationID: ec.CorrelationID(),
		Pipeline:      def.Name,
		Status:        api.StatusRunning,
		Context:       ec,
	}

	e.observer.OnRunStart(ctx, run)

	return e.executeSteps(ctx, def, run)
}

func (e *engineImpl) executeSteps(ctx context.Context, def api.PipelineDefinition, run *api.Run) (*api.Run, error) {
	ec := run.Context

	for i, step := range def.Steps {
		if err := ctx.Err(); err != nil {
			return e.fail(ctx, run, &api.StepError{Step: step.Name(), Index: i, Err: err})
		}

		startTime := time.Now()
		e.observer.OnStepStart(ctx, run, step.Name(), i)

		err := step.Run(ctx, ec)

		duration := time.Since(startTime)
		e.observer.OnStepCompleted(ctx, run, step.Name(), i, err, duration)

		if err != nil {
			return e.fail(ctx, run, &api.StepError{Step: step.Name(), Index: i, Err: err})
		}
		run.CompletedSteps++

		if ec.Aborted() {
			run.Status = api.StatusAborted
			e.observer.OnRunAborted(ctx, run, step.Name())
			return run, nil
		}
	}

	run.Status = api.StatusCompleted
	e.observer.OnRunCompleted(ctx, run)

	return run, nil
}

func (e *engineImpl) fail(ctx context.Context, run *api.Run, err *api.StepError) (*api.Run, error) {
	run.Context.AddError(err)
	run.Status = api.StatusFailed
	run.Err = err
	e.observer.OnRunFailed(ctx, run, err)
	return run, err
}
