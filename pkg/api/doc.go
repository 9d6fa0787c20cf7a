// Package api contains the core contracts shared by the conduit engine and
// the integration pattern steps. It defines what a unit of work is, what a
// step may read and write during a run, and the collaborators that steps
// talk to.
//
// Most users interact with the higher-level conduit package, which re-exports
// selected types from this package. The api package is intended for custom
// steps, custom stores, and contributors extending the pattern library.
//
// # Steps
//
// A Step is a named operation that runs once against an ExecutionContext:
//
//	type Step interface {
//	    Name() string
//	    Run(ctx context.Context, ec *ExecutionContext) error
//	}
//
// NewStep adapts a plain function. Steps are built once and shared across
// runs, so they must not keep per-run state in their own fields.
//
// # Execution Context
//
// The ExecutionContext is created per run and borrowed by every step. It
// carries:
//
//   - a string-keyed value map guarded for concurrent access
//   - the soft abort flag (skip the remaining top-level steps)
//   - the run and correlation identifiers
//   - the list of errors recorded during the run
//   - a run-scoped slog.Logger
//
// The hard cancellation signal is the context.Context passed to Run. The two
// signals are independent: aborting lets the current step return normally,
// cancelling unwinds in-flight work.
//
// Steps that run branches concurrently give each branch a Fork. A fork reads
// through to its parent but keeps its writes to itself until the parent
// merges it, so sibling branches never race on a shared slot.
//
// # Reserved Keys
//
// Pattern steps exchange data through a fixed set of keys (KeySplitResults,
// KeyRoutingSlip, KeyClaimTicket, ...). They form a stable protocol between
// step families and must be treated as public API.
//
// # Observability
//
// The Observer interface reports run and step lifecycle events. LoggingObserver,
// BasicMetrics and CompositeObserver are ready-made implementations.
package api
