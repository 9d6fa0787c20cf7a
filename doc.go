// Package conduit provides Enterprise Integration Patterns as composable
// pipeline steps for Go.
//
// A pipeline is a named, linear sequence of steps. Each step reads and
// writes a shared ExecutionContext; pattern steps such as routers,
// splitters and aggregators wrap other steps and decide which of them run,
// how often, and in which order. The engine executes the top-level steps
// one after another and stops early when a step fails or sets the abort
// flag.
//
// # Core Concepts
//
//  1. Step
//  2. ExecutionContext
//  3. FlowBuilder
//  4. Engine
//  5. Stores
//
// # Step
//
// A Step is any value with a Name and a Run method:
//
//	type Step interface {
//	    Name() string
//	    Run(ctx context.Context, ec *ExecutionContext) error
//	}
//
// NewStep adapts a plain function. Steps are built once and reused across
// runs.
//
// # ExecutionContext
//
// The ExecutionContext carries the values of a single run, the soft abort
// flag, the run and correlation identifiers, the errors recorded so far and
// a run-scoped slog.Logger. Pattern steps exchange results through reserved
// keys (KeySplitResults, KeyScatterGatherResults, KeyClaimTicket, ...).
//
// Two signals stop work. Abort is cooperative: the current step returns
// normally and the engine skips the remaining top-level steps. Cancelling
// the context.Context passed to Run is the hard signal and unwinds
// in-flight work.
//
// Branches that run in parallel (Recipient List, Splitter, Scatter-Gather)
// each get a Fork of the context and are merged back in input order once
// all of them are done.
//
// # FlowBuilder
//
// FlowBuilder provides one method per pattern:
//
//	flow := conduit.New("quotes").
//	    Enrich("customer", loadCustomer).
//	    ScatterGather("ask-vendors", 2*time.Second, cheapest, vendorA, vendorB).
//	    Filter("has-quote", hasQuote).
//	    Step("reply", reply)
//
//	flow.MustRegister(engine)
//
// Pattern defaults such as the Scatter-Gather timeout and the Process
// Manager transition ceiling come from Config, which can be loaded from a
// TOML file and CONDUIT_* environment variables with LoadConfig.
//
// # Engine
//
// An Engine keeps pipeline definitions by name and runs them synchronously:
//
//	eng := conduit.NewInMemoryEngine()
//	run, err := conduit.Run(ctx, eng, "quotes", map[string]any{"sku": "A-1"})
//
// The returned PipelineRun reports the final Status (COMPLETED, ABORTED or
// FAILED) and exposes the ExecutionContext for reading results. Observers
// receive run and step lifecycle events; LoggingObserver writes them
// through log/slog and BasicMetrics keeps counters.
//
// # Stores
//
// The Claim Check steps keep large payloads in a ClaimCheckStore and the
// Dead Letter Channel sends failed messages to a DeadLetterStore. In-memory
// and SQLite stores live in this package; the postgres, redis, mongo and
// azblob packages provide the same interfaces over their respective
// clients.
package conduit
