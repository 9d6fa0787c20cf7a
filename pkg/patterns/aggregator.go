package patterns

import (
	"context"
	"fmt"
	"time"

	"github.com/petrijr/conduit/pkg/api"
)

// ItemSelector picks the items a step works on.
type ItemSelector func(ec *api.ExecutionContext) []any

// AggregateFunc combines items into a single result.
type AggregateFunc func(ctx context.Context, ec *api.ExecutionContext, items []any) (any, error)

// AggregateWith adapts an api.AggregationStrategy to an AggregateFunc.
func AggregateWith(strategy api.AggregationStrategy) AggregateFunc {
	return func(ctx context.Context, _ *api.ExecutionContext, items []any) (any, error) {
		return strategy.Aggregate(ctx, items)
	}
}

// CompletionPolicy decides which items an Aggregator aggregates.
//
// The zero value takes every item. Count takes precedence over Predicate.
type CompletionPolicy struct {
	// Count, when positive, takes the first Count items.
	Count int
	// Predicate, when set, accumulates items one at a time until it returns
	// true for the accumulated list.
	Predicate func(accumulated []any) bool
	// Timeout is accepted for configuration compatibility but is not
	// enforced: the items are already in the context when the aggregator
	// runs, so there is nothing to wait for.
	Timeout time.Duration
}

// CompleteAfterCount takes the first n items.
func CompleteAfterCount(n int) CompletionPolicy {
	return CompletionPolicy{Count: n}
}

// CompleteWhen accumulates items until pred holds.
func CompleteWhen(pred func(accumulated []any) bool) CompletionPolicy {
	return CompletionPolicy{Predicate: pred}
}

// WithTimeout returns a copy of p with Timeout set. See CompletionPolicy.Timeout.
func (p CompletionPolicy) WithTimeout(d time.Duration) CompletionPolicy {
	p.Timeout = d
	return p
}

// Select applies the policy to items.
func (p CompletionPolicy) Select(items []any) []any {
	switch {
	case p.Count > 0:
		if p.Count >= len(items) {
			return items
		}
		return items[:p.Count]
	case p.Predicate != nil:
		acc := make([]any, 0, len(items))
		for _, item := range items {
			acc = append(acc, item)
			if p.Predicate(acc) {
				break
			}
		}
		return acc
	default:
		return items
	}
}

// Aggregator combines selected items into one result stored under
// api.KeyAggregatorResult.
type Aggregator struct {
	name      string
	selector  ItemSelector
	aggregate AggregateFunc
	policy    CompletionPolicy
}

var _ api.Step = (*Aggregator)(nil)

// NewAggregator creates an aggregator.
func NewAggregator(name string, selector ItemSelector, aggregate AggregateFunc, policy CompletionPolicy) *Aggregator {
	return &Aggregator{
		name:      name,
		selector:  selector,
		aggregate: aggregate,
		policy:    policy,
	}
}

func (a *Aggregator) Name() string { return a.name }

// Policy returns the configured completion policy.
func (a *Aggregator) Policy() CompletionPolicy { return a.policy }

func (a *Aggregator) Run(ctx context.Context, ec *api.ExecutionContext) error {
	items := a.policy.Select(a.selector(ec))

	out, err := a.aggregate(ctx, ec, items)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	ec.Set(api.KeyAggregatorResult, out)
	return nil
}

// ComposedMessageProcessor splits the message, processes each item in order
// and aggregates the processed items, all as one step. The result is stored
// under api.KeyComposedProcessorResult.
type ComposedMessageProcessor struct {
	name      string
	split     SplitFunc
	processor api.Step
	aggregate AggregateFunc
}

var _ api.Step = (*ComposedMessageProcessor)(nil)

// NewComposedMessageProcessor creates a composed message processor.
func NewComposedMessageProcessor(name string, split SplitFunc, processor api.Step, aggregate AggregateFunc) *ComposedMessageProcessor {
	return &ComposedMessageProcessor{
		name:      name,
		split:     split,
		processor: processor,
		aggregate: aggregate,
	}
}

func (c *ComposedMessageProcessor) Name() string { return c.name }

func (c *ComposedMessageProcessor) Run(ctx context.Context, ec *api.ExecutionContext) error {
	items, err := c.split(ec)
	if err != nil {
		return fmt.Errorf("split: %w", err)
	}

	processed, err := processSequential(ctx, ec, items, c.processor)
	if err != nil {
		return err
	}

	out, err := c.aggregate(ctx, ec, processed)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	ec.Set(api.KeyComposedProcessorResult, out)
	return nil
}
