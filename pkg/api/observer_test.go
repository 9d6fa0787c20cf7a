package api

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//
// Helpers
//

// testObserver counts calls and remembers the last arguments it saw.
type testObserver struct {
	mu sync.Mutex

	starts, completes, aborts, fails int
	stepStarts, stepCompletes        int

	lastRun       *Run
	lastAbortStep string
	lastErr       error
	lastStep      string
	lastIndex     int
	lastDuration  time.Duration
}

func (o *testObserver) OnRunStart(ctx context.Context, run *Run) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.starts++
	o.lastRun = run
}

func (o *testObserver) OnRunCompleted(ctx context.Context, run *Run) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completes++
	o.lastRun = run
}

func (o *testObserver) OnRunAborted(ctx context.Context, run *Run, stepName string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.aborts++
	o.lastAbortStep = stepName
}

func (o *testObserver) OnRunFailed(ctx context.Context, run *Run, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fails++
	o.lastErr = err
}

func (o *testObserver) OnStepStart(ctx context.Context, run *Run, stepName string, idx int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stepStarts++
	o.lastStep, o.lastIndex = stepName, idx
}

func (o *testObserver) OnStepCompleted(ctx context.Context, run *Run, stepName string, idx int, err error, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stepCompletes++
	o.lastStep, o.lastIndex, o.lastDuration = stepName, idx, d
}

// recordingHandler is a minimal slog.Handler that just records log records.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *recordingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }

func (h *recordingHandler) WithGroup(name string) slog.Handler { return h }

func attrsToMap(r slog.Record) map[string]any {
	m := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value.Any()
		return true
	})
	return m
}

func newTestRun() *Run {
	return &Run{ID: "run-123", CorrelationID: "corr-1", Pipeline: "orders", CompletedSteps: 2}
}

//
// NoopObserver
//

func TestNoopObserver_DoesNotPanic(t *testing.T) {
	ctx := context.Background()
	run := newTestRun()
	var o Observer = NoopObserver{}

	o.OnRunStart(ctx, run)
	o.OnRunCompleted(ctx, run)
	o.OnRunAborted(ctx, run, "filter")
	o.OnRunFailed(ctx, run, errors.New("boom"))
	o.OnStepStart(ctx, run, "step-1", 0)
	o.OnStepCompleted(ctx, run, "step-1", 0, nil, time.Second)
}

//
// CompositeObserver
//

func TestNewCompositeObserver_EmptyReturnsNoop(t *testing.T) {
	assert.IsType(t, NoopObserver{}, NewCompositeObserver())
}

func TestNewCompositeObserver_SingleReturnsThatObserver(t *testing.T) {
	single := &testObserver{}
	o := NewCompositeObserver(single, nil)
	assert.Same(t, single, o)
}

func TestCompositeObserver_ForwardsAllEvents(t *testing.T) {
	ctx := context.Background()
	run := newTestRun()

	o1, o2 := &testObserver{}, &testObserver{}
	co, ok := NewCompositeObserver(o1, o2).(*CompositeObserver)
	require.True(t, ok)

	err := errors.New("step failed")
	co.OnRunStart(ctx, run)
	co.OnRunCompleted(ctx, run)
	co.OnRunAborted(ctx, run, "filter")
	co.OnRunFailed(ctx, run, err)
	co.OnStepStart(ctx, run, "step-1", 1)
	co.OnStepCompleted(ctx, run, "step-1", 1, err, 2*time.Second)

	for _, o := range []*testObserver{o1, o2} {
		assert.Equal(t, 1, o.starts)
		assert.Equal(t, 1, o.completes)
		assert.Equal(t, 1, o.aborts)
		assert.Equal(t, 1, o.fails)
		assert.Equal(t, 1, o.stepStarts)
		assert.Equal(t, 1, o.stepCompletes)
		assert.Same(t, run, o.lastRun)
		assert.Equal(t, "filter", o.lastAbortStep)
		assert.Equal(t, err, o.lastErr)
		assert.Equal(t, "step-1", o.lastStep)
		assert.Equal(t, 1, o.lastIndex)
		assert.Equal(t, 2*time.Second, o.lastDuration)
	}
}

//
// LoggingObserver
//

func TestNewLoggingObserver_NilLoggerUsesDefault(t *testing.T) {
	lo, ok := NewLoggingObserver(nil).(*LoggingObserver)
	require.True(t, ok)
	assert.NotNil(t, lo.Logger)
}

func TestLoggingObserver_EventNamesAndAttrs(t *testing.T) {
	ctx := context.Background()
	run := newTestRun()

	h := &recordingHandler{}
	o := NewLoggingObserver(slog.New(h))

	o.OnRunStart(ctx, run)
	o.OnStepStart(ctx, run, "enrich", 0)
	o.OnStepCompleted(ctx, run, "enrich", 0, nil, time.Millisecond)
	o.OnRunAborted(ctx, run, "filter")
	o.OnRunCompleted(ctx, run)

	require.Len(t, h.records, 5)

	var messages []string
	for _, r := range h.records {
		messages = append(messages, r.Message)
	}
	assert.Equal(t, []string{"run_start", "step_start", "step_completed", "run_aborted", "run_completed"}, messages)

	start := attrsToMap(h.records[0])
	assert.Equal(t, "orders", start["pipeline"])
	assert.Equal(t, "run-123", start["run_id"])
	assert.Equal(t, "corr-1", start["correlation_id"])

	aborted := attrsToMap(h.records[3])
	assert.Equal(t, "filter", aborted["step"])

	completed := attrsToMap(h.records[4])
	assert.Equal(t, int64(2), completed["completed_steps"])
}

func TestLoggingObserver_FailuresLogAtErrorLevel(t *testing.T) {
	ctx := context.Background()
	run := newTestRun()

	h := &recordingHandler{}
	o := NewLoggingObserver(slog.New(h))

	err := errors.New("boom")
	o.OnStepCompleted(ctx, run, "charge", 3, err, time.Second)
	o.OnRunFailed(ctx, run, err)

	require.Len(t, h.records, 2)
	for _, r := range h.records {
		assert.Equal(t, slog.LevelError, r.Level)
		assert.Equal(t, err, attrsToMap(r)["error"])
	}
}

//
// BasicMetrics
//

func TestBasicMetrics_Snapshot(t *testing.T) {
	ctx := context.Background()
	run := newTestRun()
	m := &BasicMetrics{}

	for range 4 {
		m.OnRunStart(ctx, run)
	}
	m.OnRunCompleted(ctx, run)
	m.OnRunAborted(ctx, run, "filter")
	m.OnRunFailed(ctx, run, errors.New("boom"))

	m.OnStepCompleted(ctx, run, "a", 0, nil, 10*time.Millisecond)
	m.OnStepCompleted(ctx, run, "b", 1, nil, 30*time.Millisecond)
	m.OnStepCompleted(ctx, run, "c", 2, errors.New("boom"), time.Hour)

	snap := m.Snapshot()
	assert.Equal(t, BasicMetricsSnapshot{
		RunsStarted:     4,
		RunsCompleted:   1,
		RunsAborted:     1,
		RunsFailed:      1,
		RunsInFlight:    1,
		StepsCompleted:  2,
		StepsFailed:     1,
		AvgStepDuration: 20 * time.Millisecond,
	}, snap)
}
