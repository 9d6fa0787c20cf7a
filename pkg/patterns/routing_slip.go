package patterns

import (
	"context"
	"fmt"

	"github.com/petrijr/conduit/pkg/api"
)

// SlipFunc produces or locates the routing slip for the current run.
type SlipFunc func(ec *api.ExecutionContext) (*api.RoutingSlip, error)

// SlipFromContext returns the slip already stored under api.KeyRoutingSlip,
// or a new one with the given itinerary when there is none.
func SlipFromContext(itinerary ...string) SlipFunc {
	return func(ec *api.ExecutionContext) (*api.RoutingSlip, error) {
		v, ok := ec.Get(api.KeyRoutingSlip)
		if !ok {
			return api.NewRoutingSlip(itinerary...), nil
		}
		slip, ok := v.(*api.RoutingSlip)
		if !ok {
			return nil, fmt.Errorf("%w: %s holds %T", api.ErrInvalidValue, api.KeyRoutingSlip, v)
		}
		return slip, nil
	}
}

// RoutingSlipRouter executes the steps named on a routing slip, in order.
//
// The slip is stored under api.KeyRoutingSlip before the first step runs so
// steps can inspect it. A name missing from the registry fails the run with
// api.ErrUnknownStep. The cursor advances after each successful step; when a
// step aborts the run the cursor stays on it.
type RoutingSlipRouter struct {
	name     string
	slip     SlipFunc
	registry api.StepRegistry
}

var _ api.Step = (*RoutingSlipRouter)(nil)

// NewRoutingSlipRouter creates a routing slip router.
func NewRoutingSlipRouter(name string, slip SlipFunc, registry api.StepRegistry) *RoutingSlipRouter {
	return &RoutingSlipRouter{name: name, slip: slip, registry: registry}
}

func (r *RoutingSlipRouter) Name() string { return r.name }

func (r *RoutingSlipRouter) Run(ctx context.Context, ec *api.ExecutionContext) error {
	slip, err := r.slip(ec)
	if err != nil {
		return err
	}
	ec.Set(api.KeyRoutingSlip, slip)

	for {
		name, ok := slip.CurrentStep()
		if !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		step, err := r.registry.Lookup(name)
		if err != nil {
			return err
		}
		if err := step.Run(ctx, ec); err != nil {
			return fmt.Errorf("slip step %q: %w", name, err)
		}
		if ec.Aborted() {
			return nil
		}
		slip.Advance()
	}
}
