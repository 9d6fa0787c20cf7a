package patterns

import (
	"context"

	"github.com/petrijr/conduit/pkg/api"
)

// Route pairs a predicate with the step to run when it holds.
type Route struct {
	When api.Predicate
	Step api.Step
}

// ContentBasedRouter runs the step of the first route whose predicate holds.
type ContentBasedRouter struct {
	name        string
	routes      []Route
	defaultStep api.Step
}

var _ api.Step = (*ContentBasedRouter)(nil)

// NewContentBasedRouter creates a router. Routes are evaluated in order.
// defaultStep runs when no predicate matches; it may be nil, in which case
// the router does nothing.
func NewContentBasedRouter(name string, routes []Route, defaultStep api.Step) *ContentBasedRouter {
	return &ContentBasedRouter{
		name:        name,
		routes:      append([]Route(nil), routes...),
		defaultStep: defaultStep,
	}
}

func (r *ContentBasedRouter) Name() string { return r.name }

func (r *ContentBasedRouter) Run(ctx context.Context, ec *api.ExecutionContext) error {
	for _, route := range r.routes {
		if route.When(ec) {
			return route.Step.Run(ctx, ec)
		}
	}
	if r.defaultStep != nil {
		return r.defaultStep.Run(ctx, ec)
	}
	return nil
}

// MessageFilter sets the abort flag when its predicate does not hold.
// It never returns an error; the runner is expected to skip the remaining
// steps once the flag is set.
type MessageFilter struct {
	name   string
	accept api.Predicate
}

var _ api.Step = (*MessageFilter)(nil)

// NewMessageFilter creates a filter that lets the run continue only while
// accept holds.
func NewMessageFilter(name string, accept api.Predicate) *MessageFilter {
	return &MessageFilter{name: name, accept: accept}
}

func (f *MessageFilter) Name() string { return f.name }

func (f *MessageFilter) Run(ctx context.Context, ec *api.ExecutionContext) error {
	if !f.accept(ec) {
		ec.Logger().DebugContext(ctx, "message_filtered", "step", f.name)
		ec.Abort()
	}
	return nil
}

// NextStepFunc picks the next step for a DynamicRouter. Returning nil ends
// the loop.
type NextStepFunc func(ec *api.ExecutionContext) api.Step

// DynamicRouter repeatedly asks a function for the next step and runs it.
//
// There is no iteration ceiling: next must eventually return nil or a step
// must abort the run. Use ProcessManager when a hard bound is required.
type DynamicRouter struct {
	name string
	next NextStepFunc
}

var _ api.Step = (*DynamicRouter)(nil)

// NewDynamicRouter creates a dynamic router.
func NewDynamicRouter(name string, next NextStepFunc) *DynamicRouter {
	return &DynamicRouter{name: name, next: next}
}

func (r *DynamicRouter) Name() string { return r.name }

func (r *DynamicRouter) Run(ctx context.Context, ec *api.ExecutionContext) error {
	for !ec.Aborted() {
		if err := ctx.Err(); err != nil {
			return err
		}
		step := r.next(ec)
		if step == nil {
			return nil
		}
		if err := step.Run(ctx, ec); err != nil {
			return err
		}
	}
	return nil
}
