// Package patterns implements Enterprise Integration Patterns as composable
// steps.
//
// Every pattern is an api.Step, and patterns that take child steps accept any
// api.Step, so they nest freely: a Scatter-Gather handler may itself be a
// Process Manager, a Content-Based Router branch may be a Splitter, and so on.
//
// The patterns fall into three families:
//
//   - Routing decides which steps run: ContentBasedRouter, MessageFilter,
//     DynamicRouter, RecipientList, RoutingSlipRouter.
//   - Composition decides how many items run and how results combine:
//     Splitter, Aggregator, ComposedMessageProcessor, ScatterGather,
//     ProcessManager, Resequencer.
//   - Transformation reshapes or externalizes data: ContentEnricher,
//     ContentFilter, MessageTranslator, Normalizer, ClaimCheck, ClaimRetrieve.
//
// DeadLetterChannel wraps any step and routes its failures to a
// api.DeadLetterStore.
//
// # Concurrency
//
// Parallel modes never let sibling branches write into the same context. Each
// branch runs on an api.ExecutionContext fork; forks are merged into the
// parent in input order once every branch has finished. The abort flag and
// the error list are shared by all forks of a run.
//
// No pattern retries. Retry belongs to whoever runs the step.
package patterns
