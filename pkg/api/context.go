package api

import (
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ExecutionContext is the per-run state shared by every step of a pipeline.
//
// It holds a string-keyed value map, the soft abort flag, the run identity
// and the list of errors recorded during the run. The hard cancellation
// signal is not stored here; it travels as the context.Context passed to
// Step.Run.
//
// All methods are safe for concurrent use. Steps that fan out should still
// give each branch its own Fork so that sibling branches never write to the
// same slot; the parent only sees branch writes once they are merged back.
type ExecutionContext struct {
	runID         string
	correlationID string

	parent *ExecutionContext
	shared *sharedState

	mu      sync.RWMutex
	values  map[string]any
	deleted map[string]struct{}
}

// sharedState is common to a root context and all of its forks.
type sharedState struct {
	aborted atomic.Bool
	logger  *slog.Logger

	mu   sync.Mutex
	errs []error
}

// ContextOption configures a new ExecutionContext.
type ContextOption func(*ExecutionContext)

// WithRunID sets the run identifier. By default a random UUID is used.
func WithRunID(id string) ContextOption {
	return func(ec *ExecutionContext) { ec.runID = id }
}

// WithCorrelationID sets the correlation identifier. By default it equals
// the run identifier.
func WithCorrelationID(id string) ContextOption {
	return func(ec *ExecutionContext) { ec.correlationID = id }
}

// WithValues seeds the value map. The map is copied.
func WithValues(values map[string]any) ContextOption {
	return func(ec *ExecutionContext) {
		maps.Copy(ec.values, values)
	}
}

// WithLogger sets the base logger. run_id and correlation_id are attached
// automatically.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(ec *ExecutionContext) { ec.shared.logger = logger }
}

// NewExecutionContext creates a root context for a single run.
func NewExecutionContext(opts ...ContextOption) *ExecutionContext {
	ec := &ExecutionContext{
		shared: &sharedState{},
		values: make(map[string]any),
	}
	for _, opt := range opts {
		opt(ec)
	}
	if ec.runID == "" {
		ec.runID = uuid.NewString()
	}
	if ec.correlationID == "" {
		ec.correlationID = ec.runID
	}
	if ec.shared.logger == nil {
		ec.shared.logger = slog.Default()
	}
	ec.shared.logger = ec.shared.logger.With(
		slog.String("run_id", ec.runID),
		slog.String("correlation_id", ec.correlationID),
	)
	return ec
}

// RunID returns the identifier of the run this context belongs to.
func (ec *ExecutionContext) RunID() string { return ec.runID }

// CorrelationID returns the correlation identifier of the run.
func (ec *ExecutionContext) CorrelationID() string { return ec.correlationID }

// Logger returns the run-scoped logger.
func (ec *ExecutionContext) Logger() *slog.Logger { return ec.shared.logger }

// Get returns the value stored under key. Forks fall through to their
// parent for keys they have not written or deleted themselves.
func (ec *ExecutionContext) Get(key string) (any, bool) {
	ec.mu.RLock()
	v, ok := ec.values[key]
	_, gone := ec.deleted[key]
	ec.mu.RUnlock()

	if ok {
		return v, true
	}
	if gone || ec.parent == nil {
		return nil, false
	}
	return ec.parent.Get(key)
}

// Has reports whether key holds a value.
func (ec *ExecutionContext) Has(key string) bool {
	_, ok := ec.Get(key)
	return ok
}

// Set stores value under key.
func (ec *ExecutionContext) Set(key string, value any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	ec.values[key] = value
	delete(ec.deleted, key)
}

// Delete removes key. On a fork the key is hidden from the parent view
// until the fork is merged.
func (ec *ExecutionContext) Delete(key string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	delete(ec.values, key)
	if ec.parent != nil {
		if ec.deleted == nil {
			ec.deleted = make(map[string]struct{})
		}
		ec.deleted[key] = struct{}{}
	}
}

// Keys returns all visible keys in sorted order.
func (ec *ExecutionContext) Keys() []string {
	return slices.Sorted(maps.Keys(ec.Snapshot()))
}

// Snapshot returns a flattened copy of all visible values.
func (ec *ExecutionContext) Snapshot() map[string]any {
	var out map[string]any
	if ec.parent != nil {
		out = ec.parent.Snapshot()
	} else {
		out = make(map[string]any)
	}

	ec.mu.RLock()
	defer ec.mu.RUnlock()

	for k := range ec.deleted {
		delete(out, k)
	}
	maps.Copy(out, ec.values)
	return out
}

// Abort sets the cooperative abort flag. Runners skip the remaining
// top-level steps once it is set; in-flight steps are not interrupted.
func (ec *ExecutionContext) Abort() { ec.shared.aborted.Store(true) }

// Aborted reports whether Abort has been called on this run.
func (ec *ExecutionContext) Aborted() bool { return ec.shared.aborted.Load() }

// AddError records err in the run's error list. nil is ignored.
func (ec *ExecutionContext) AddError(err error) {
	if err == nil {
		return
	}
	ec.shared.mu.Lock()
	defer ec.shared.mu.Unlock()
	ec.shared.errs = append(ec.shared.errs, err)
}

// Errors returns a copy of the recorded errors.
func (ec *ExecutionContext) Errors() []error {
	ec.shared.mu.Lock()
	defer ec.shared.mu.Unlock()
	return slices.Clone(ec.shared.errs)
}

// Err joins all recorded errors, or returns nil if there are none.
func (ec *ExecutionContext) Err() error {
	return errors.Join(ec.Errors()...)
}

// Fork returns a child context for an isolated branch.
//
// Reads fall through to ec; writes stay in the child until Merge is called.
// The abort flag, error list, logger and run identity are shared.
func (ec *ExecutionContext) Fork() *ExecutionContext {
	return &ExecutionContext{
		runID:         ec.runID,
		correlationID: ec.correlationID,
		parent:        ec,
		shared:        ec.shared,
		values:        make(map[string]any),
	}
}

// ForkIsolated is like Fork, but the child gets its own abort flag and error
// list. They reach ec only through MergeState, so a branch that is abandoned
// cannot abort or fail the run.
func (ec *ExecutionContext) ForkIsolated() *ExecutionContext {
	child := ec.Fork()
	child.shared = &sharedState{logger: ec.shared.logger}
	return child
}

// MergeState folds the abort flag and recorded errors of an isolated child
// into ec. It is a no-op for children that share ec's state.
func (ec *ExecutionContext) MergeState(child *ExecutionContext) {
	if child == nil || child.shared == ec.shared {
		return
	}
	if child.Aborted() {
		ec.Abort()
	}
	for _, err := range child.Errors() {
		ec.AddError(err)
	}
}

// Parent returns the context a fork was created from, or nil for a root.
func (ec *ExecutionContext) Parent() *ExecutionContext { return ec.parent }

// Merge applies the local writes and deletes of child to ec, except for the
// keys listed in skip.
func (ec *ExecutionContext) Merge(child *ExecutionContext, skip ...string) {
	if child == nil || child == ec {
		return
	}

	child.mu.RLock()
	values := maps.Clone(child.values)
	deleted := maps.Clone(child.deleted)
	child.mu.RUnlock()

	for _, k := range skip {
		delete(values, k)
		delete(deleted, k)
	}

	for k := range deleted {
		ec.Delete(k)
	}
	for k, v := range values {
		ec.Set(k, v)
	}
}

// Value returns the value under key converted to T. ok is false when the key
// is missing or holds a value of another type.
func Value[T any](ec *ExecutionContext, key string) (T, bool) {
	var zero T
	v, ok := ec.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
