package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the engine for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay pipeline execution.
type Observer interface {
	// OnRunStart is called before the first step of a run is executed.
	OnRunStart(ctx context.Context, run *Run)

	// OnRunCompleted is called when every step of a run succeeded.
	OnRunCompleted(ctx context.Context, run *Run)

	// OnRunAborted is called when a step set the abort flag and the
	// remaining steps were skipped. stepName is the last step that ran.
	OnRunAborted(ctx context.Context, run *Run, stepName string)

	// OnRunFailed is called when a run stops on an error.
	OnRunFailed(ctx context.Context, run *Run, err error)

	// OnStepStart is called before invoking a top-level step.
	// stepIndex is the 0-based index into PipelineDefinition.Steps.
	OnStepStart(ctx context.Context, run *Run, stepName string, stepIndex int)

	// OnStepCompleted is called after a top-level step returns, for both
	// successes and failures (err != nil).
	OnStepCompleted(ctx context.Context, run *Run, stepName string, stepIndex int, err error, duration time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(ctx context.Context, run *Run)                    {}
func (NoopObserver) OnRunCompleted(ctx context.Context, run *Run)                {}
func (NoopObserver) OnRunAborted(ctx context.Context, run *Run, stepName string) {}
func (NoopObserver) OnRunFailed(ctx context.Context, run *Run, err error)        {}
func (NoopObserver) OnStepStart(ctx context.Context, run *Run, stepName string, idx int) {
}
func (NoopObserver) OnStepCompleted(ctx context.Context, run *Run, stepName string, idx int, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRunStart(ctx context.Context, run *Run) {
	for _, o := range c.observers {
		o.OnRunStart(ctx, run)
	}
}

func (c *CompositeObserver) OnRunCompleted(ctx context.Context, run *Run) {
	for _, o := range c.observers {
		o.OnRunCompleted(ctx, run)
	}
}

func (c *CompositeObserver) OnRunAborted(ctx context.Context, run *Run, stepName string) {
	for _, o := range c.observers {
		o.OnRunAborted(ctx, run, stepName)
	}
}

func (c *CompositeObserver) OnRunFailed(ctx context.Context, run *Run, err error) {
	for _, o := range c.observers {
		o.OnRunFailed(ctx, run, err)
	}
}

func (c *CompositeObserver) OnStepStart(ctx context.Context, run *Run, stepName string, idx int) {
	for _, o := range c.observers {
		o.OnStepStart(ctx, run, stepName, idx)
	}
}

func (c *CompositeObserver) OnStepCompleted(ctx context.Context, run *Run, stepName string, idx int, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnStepCompleted(ctx, run, stepName, idx, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs run / step lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnRunStart(ctx context.Context, run *Run) {
	o.Logger.InfoContext(ctx, "run_start",
		slog.String("pipeline", run.Pipeline),
		slog.String("run_id", run.ID),
		slog.String("correlation_id", run.CorrelationID),
	)
}

func (o *LoggingObserver) OnRunCompleted(ctx context.Context, run *Run) {
	o.Logger.InfoContext(ctx, "run_completed",
		slog.String("pipeline", run.Pipeline),
		slog.String("run_id", run.ID),
		slog.Int("completed_steps", run.CompletedSteps),
	)
}

func (o *LoggingObserver) OnRunAborted(ctx context.Context, run *Run, stepName string) {
	o.Logger.InfoContext(ctx, "run_aborted",
		slog.String("pipeline", run.Pipeline),
		slog.String("run_id", run.ID),
		slog.String("step", stepName),
	)
}

func (o *LoggingObserver) OnRunFailed(ctx context.Context, run *Run, err error) {
	o.Logger.ErrorContext(ctx, "run_failed",
		slog.String("pipeline", run.Pipeline),
		slog.String("run_id", run.ID),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnStepStart(ctx context.Context, run *Run, stepName string, idx int) {
	o.Logger.DebugContext(ctx, "step_start",
		slog.String("pipeline", run.Pipeline),
		slog.String("run_id", run.ID),
		slog.String("step", stepName),
		slog.Int("step_index", idx),
	)
}

func (o *LoggingObserver) OnStepCompleted(ctx context.Context, run *Run, stepName string, idx int, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "step_completed",
		slog.String("pipeline", run.Pipeline),
		slog.String("run_id", run.ID),
		slog.String("step", stepName),
		slog.Int("step_index", idx),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate step durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	runsStarted       atomic.Int64
	runsCompleted     atomic.Int64
	runsAborted       atomic.Int64
	runsFailed        atomic.Int64
	stepsCompleted    atomic.Int64
	stepsFailed       atomic.Int64
	totalStepDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RunsStarted   int64
	RunsCompleted int64
	RunsAborted   int64
	RunsFailed    int64
	RunsInFlight  int64

	StepsCompleted  int64
	StepsFailed     int64
	AvgStepDuration time.Duration
}

func (m *BasicMetrics) OnRunStart(ctx context.Context, run *Run) {
	m.runsStarted.Add(1)
}

func (m *BasicMetrics) OnRunCompleted(ctx context.Context, run *Run) {
	m.runsCompleted.Add(1)
}

func (m *BasicMetrics) OnRunAborted(ctx context.Context, run *Run, stepName string) {
	m.runsAborted.Add(1)
}

func (m *BasicMetrics) OnRunFailed(ctx context.Context, run *Run, err error) {
	m.runsFailed.Add(1)
}

func (m *BasicMetrics) OnStepCompleted(ctx context.Context, run *Run, stepName string, idx int, err error, d time.Duration) {
	// Only count successful steps for average duration.
	if err != nil {
		m.stepsFailed.Add(1)
		return
	}
	m.stepsCompleted.Add(1)
	m.totalStepDuration.Add(d.Nanoseconds())
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.runsStarted.Load()
	completed := m.runsCompleted.Load()
	aborted := m.runsAborted.Load()
	failed := m.runsFailed.Load()
	steps := m.stepsCompleted.Load()
	totalNs := m.totalStepDuration.Load()

	var avg time.Duration
	if steps > 0 {
		avg = time.Duration(totalNs / steps)
	}

	return BasicMetricsSnapshot{
		RunsStarted:     started,
		RunsCompleted:   completed,
		RunsAborted:     aborted,
		RunsFailed:      failed,
		RunsInFlight:    started - completed - aborted - failed,
		StepsCompleted:  steps,
		StepsFailed:     m.stepsFailed.Load(),
		AvgStepDuration: avg,
	}
}
