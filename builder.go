package conduit

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/petrijr/conduit/pkg/api"
	"github.com/petrijr/conduit/pkg/patterns"
)

// FlowBuilder provides a fluent API for defining pipelines:
//
//	flow := conduit.New("orders").
//	    Filter("only-paid", isPaid).
//	    Route("by-region", routes, conduit.Noop("unrouted")).
//	    ScatterGather("quotes", 0, cheapest, quoteA, quoteB)
//
//	if err := flow.Register(engine); err != nil {
//	    log.Fatal(err)
//	}
//
//	run, err := conduit.Run(ctx, engine, flow.Name(), input)
//
// Pattern defaults (Scatter-Gather timeout, Process Manager ceiling, fan-out
// concurrency) come from the builder's Config.
type FlowBuilder struct {
	name  string
	cfg   Config
	steps []api.Step
}

// New creates a new pipeline builder with DefaultConfig.
func New(name string) *FlowBuilder {
	return NewWithConfig(name, DefaultConfig())
}

// NewWithConfig creates a new pipeline builder that takes pattern defaults
// from cfg. Zero fields fall back to the built-in defaults. It panics if the
// resulting config is invalid.
func NewWithConfig(name string, cfg Config) *FlowBuilder {
	cfg.loadDefaults()
	if err := cfg.validate(); err != nil {
		panic(fmt.Sprintf("conduit: pipeline %q: invalid config: %v", name, err))
	}
	return &FlowBuilder{name: name, cfg: cfg}
}

// Name returns the pipeline name.
func (b *FlowBuilder) Name() string {
	return b.name
}

// Config returns the configuration the builder applies.
func (b *FlowBuilder) Config() Config {
	return b.cfg
}

// Definition returns the underlying PipelineDefinition.
// Typically used when interacting with lower-level APIs.
func (b *FlowBuilder) Definition() PipelineDefinition {
	return PipelineDefinition{
		Name:  b.name,
		Steps: append([]api.Step(nil), b.steps...),
	}
}

// Use appends an already constructed step.
func (b *FlowBuilder) Use(step Step) *FlowBuilder {
	if step == nil {
		panic(fmt.Sprintf("conduit: pipeline %q: nil step", b.name))
	}
	if step.Name() == "" {
		panic("conduit: step name must not be empty")
	}
	b.steps = append(b.steps, step)
	return b
}

// Step appends a plain function step.
func (b *FlowBuilder) Step(name string, fn StepFunc) *FlowBuilder {
	if fn == nil {
		panic(fmt.Sprintf("conduit: step %q has nil function", name))
	}
	return b.Use(api.NewStep(name, fn))
}

// Route adds a Content-Based Router. defaultStep may be nil.
func (b *FlowBuilder) Route(name string, routes []Route, defaultStep Step) *FlowBuilder {
	for i, r := range routes {
		if r.When == nil || r.Step == nil {
			panic(fmt.Sprintf("conduit: router %q: route #%d is incomplete", name, i))
		}
	}
	return b.Use(patterns.NewContentBasedRouter(name, routes, defaultStep))
}

// Filter adds a Message Filter that aborts the run when accept is false.
func (b *FlowBuilder) Filter(name string, accept Predicate) *FlowBuilder {
	mustFunc(name, accept)
	return b.Use(patterns.NewMessageFilter(name, accept))
}

// DynamicRoute adds a Dynamic Router.
func (b *FlowBuilder) DynamicRoute(name string, next NextStepFunc) *FlowBuilder {
	mustFunc(name, next)
	return b.Use(patterns.NewDynamicRouter(name, next))
}

// RecipientList adds a Recipient List. Parallel lists are bounded by
// Config.Concurrency unless opts set their own limit.
func (b *FlowBuilder) RecipientList(name string, recipients RecipientsFunc, opts ...FanOutOption) *FlowBuilder {
	mustFunc(name, recipients)
	return b.Use(patterns.NewRecipientList(name, recipients, b.fanOut(opts)...))
}

// Split adds a Splitter running processor once per item.
func (b *FlowBuilder) Split(name string, split SplitFunc, processor Step, opts ...FanOutOption) *FlowBuilder {
	mustFunc(name, split)
	mustStep(name, processor)
	return b.Use(patterns.NewSplitter(name, split, processor, b.fanOut(opts)...))
}

// Aggregate adds an Aggregator.
func (b *FlowBuilder) Aggregate(name string, selector ItemSelector, aggregate AggregateFunc, policy CompletionPolicy) *FlowBuilder {
	mustFunc(name, selector)
	mustFunc(name, aggregate)
	return b.Use(patterns.NewAggregator(name, selector, aggregate, policy))
}

// ComposedProcessor adds a split-process-aggregate step.
func (b *FlowBuilder) ComposedProcessor(name string, split SplitFunc, processor Step, aggregate AggregateFunc) *FlowBuilder {
	mustFunc(name, split)
	mustStep(name, processor)
	mustFunc(name, aggregate)
	return b.Use(patterns.NewComposedMessageProcessor(name, split, processor, aggregate))
}

// ScatterGather adds a Scatter-Gather. timeout <= 0 selects
// Config.ScatterGatherTimeout.
func (b *FlowBuilder) ScatterGather(name string, timeout time.Duration, gather GatherFunc, handlers ...Step) *FlowBuilder {
	mustFunc(name, gather)
	for _, h := range handlers {
		mustStep(name, h)
	}
	if timeout <= 0 {
		timeout = b.cfg.ScatterGatherTimeoutDuration()
	}
	return b.Use(patterns.NewScatterGather(name, handlers, gather, timeout))
}

// ProcessManager adds a Process Manager capped at Config.MaxTransitions.
func (b *FlowBuilder) ProcessManager(name string, state StateFunc, handlers map[string]Step) *FlowBuilder {
	mustFunc(name, state)
	for _, h := range handlers {
		mustStep(name, h)
	}
	return b.Use(patterns.NewProcessManager(name, state, handlers, b.cfg.MaxTransitions))
}

// RoutingSlip adds a Routing Slip router resolving names in registry.
func (b *FlowBuilder) RoutingSlip(name string, slip SlipFunc, registry StepRegistry) *FlowBuilder {
	mustFunc(name, slip)
	if registry == nil {
		panic(fmt.Sprintf("conduit: routing slip %q has nil registry", name))
	}
	return b.Use(patterns.NewRoutingSlipRouter(name, slip, registry))
}

// Resequence adds a Resequencer.
func (b *FlowBuilder) Resequence(name string, selector ItemSelector, sequence SequenceFunc) *FlowBuilder {
	mustFunc(name, selector)
	mustFunc(name, sequence)
	return b.Use(patterns.NewResequencer(name, selector, sequence))
}

// Enrich adds a Content Enricher.
func (b *FlowBuilder) Enrich(name string, enrich EnrichFunc) *FlowBuilder {
	mustFunc(name, enrich)
	return b.Use(patterns.NewContentEnricher(name, enrich))
}

// ContentFilter adds a Content Filter keeping only fields of the map under
// sourceKey. An empty targetKey overwrites the source.
func (b *FlowBuilder) ContentFilter(name, sourceKey, targetKey string, fields ...string) *FlowBuilder {
	return b.Use(patterns.NewContentFilter(name, sourceKey, targetKey, fields...))
}

// Translate adds a typed Message Translator to b. It is a function because
// methods cannot have type parameters.
func Translate[In, Out any](
	b *FlowBuilder,
	name, inputKey, outputKey string,
	translate func(ctx context.Context, in In) (Out, error),
) *FlowBuilder {
	mustFunc(name, translate)
	return b.Use(patterns.NewMessageTranslator(name, inputKey, outputKey, translate))
}

// Normalize adds a Normalizer. fallback may be nil.
func (b *FlowBuilder) Normalize(name string, detect FormatFunc, translators map[string]Step, fallback Step) *FlowBuilder {
	mustFunc(name, detect)
	return b.Use(patterns.NewNormalizer(name, detect, translators, fallback))
}

// ClaimCheck adds a step that moves the value under payloadKey into store.
func (b *FlowBuilder) ClaimCheck(name, payloadKey string, store ClaimCheckStore, removePayload bool) *FlowBuilder {
	mustStore(name, store)
	return b.Use(patterns.NewClaimCheck(name, payloadKey, store, removePayload))
}

// ClaimRetrieve adds a step that loads the payload for the run's ticket.
func (b *FlowBuilder) ClaimRetrieve(name string, store ClaimCheckStore) *FlowBuilder {
	mustStore(name, store)
	return b.Use(patterns.NewClaimRetrieve(name, store))
}

// DeadLetter adds step wrapped in a Dead Letter Channel.
func (b *FlowBuilder) DeadLetter(step Step, store DeadLetterStore) *FlowBuilder {
	if step == nil {
		panic(fmt.Sprintf("conduit: pipeline %q: nil step", b.name))
	}
	if store == nil {
		panic(fmt.Sprintf("conduit: dead letter %q has nil store", step.Name()))
	}
	return b.Use(patterns.NewDeadLetterChannel(step, store))
}

// Register registers the built pipeline with the given engine.
func (b *FlowBuilder) Register(eng Engine) error {
	return eng.RegisterPipeline(b.Definition())
}

// MustRegister is like Register but panics on error.
// Useful for initialization in main().
func (b *FlowBuilder) MustRegister(eng Engine) {
	if err := b.Register(eng); err != nil {
		panic(err)
	}
}

// fanOut puts the configured concurrency first so caller options win.
func (b *FlowBuilder) fanOut(opts []FanOutOption) []FanOutOption {
	if b.cfg.Concurrency <= 0 {
		return opts
	}
	return append([]FanOutOption{patterns.WithConcurrency(b.cfg.Concurrency)}, opts...)
}

// mustFunc panics when fn is a nil function value of any type.
func mustFunc(name string, fn any) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || (v.Kind() == reflect.Func && v.IsNil()) {
		panic(fmt.Sprintf("conduit: step %q has nil function", name))
	}
}

func mustStep(name string, s Step) {
	if s == nil {
		panic(fmt.Sprintf("conduit: step %q has nil sub-step", name))
	}
}

func mustStore(name string, store ClaimCheckStore) {
	if store == nil {
		panic(fmt.Sprintf("conduit: step %q has nil store", name))
	}
}
