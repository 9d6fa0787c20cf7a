package patterns

import (
	"context"
	"fmt"

	"github.com/petrijr/conduit/pkg/api"
)

// SplitFunc breaks the current message into items.
type SplitFunc func(ec *api.ExecutionContext) ([]any, error)

// Splitter runs a processor once per item and collects the processed items
// under api.KeySplitResults.
//
// Before the processor runs, the item is written to api.KeyCurrentSplitItem.
// The processor publishes its result under api.KeyProcessedItem; when it
// writes nothing the original item is collected instead. Results keep the
// input order in both modes.
//
// In parallel mode each item is processed on its own fork, so the item slots
// are private to a branch. Other keys the processor writes are merged into
// the parent in item order once all branches have finished; the item slots
// themselves are not merged.
type Splitter struct {
	name      string
	split     SplitFunc
	processor api.Step
	fanOut    fanOut
}

var _ api.Step = (*Splitter)(nil)

// NewSplitter creates a splitter. It runs sequentially unless Parallel is
// given.
func NewSplitter(name string, split SplitFunc, processor api.Step, opts ...FanOutOption) *Splitter {
	return &Splitter{
		name:      name,
		split:     split,
		processor: processor,
		fanOut:    newFanOut(opts),
	}
}

func (s *Splitter) Name() string { return s.name }

func (s *Splitter) Run(ctx context.Context, ec *api.ExecutionContext) error {
	items, err := s.split(ec)
	if err != nil {
		return fmt.Errorf("split: %w", err)
	}

	var results []any
	if s.fanOut.parallel {
		results, err = s.runParallel(ctx, ec, items)
	} else {
		results, err = processSequential(ctx, ec, items, s.processor)
	}
	if err != nil {
		return err
	}

	ec.Set(api.KeySplitResults, results)
	return nil
}

func (s *Splitter) runParallel(ctx context.Context, ec *api.ExecutionContext, items []any) ([]any, error) {
	results := make([]any, len(items))

	forks, err := forkEach(ctx, ec, len(items), s.fanOut.limit,
		func(ctx context.Context, i int, branch *api.ExecutionContext) error {
			out, err := processItem(ctx, branch, items[i], s.processor)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			results[i] = out
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	for _, f := range forks {
		ec.Merge(f, api.KeyCurrentSplitItem, api.KeyProcessedItem)
	}
	return results, nil
}

// processSequential runs processor over items in order on ec itself.
func processSequential(ctx context.Context, ec *api.ExecutionContext, items []any, processor api.Step) ([]any, error) {
	results := make([]any, 0, len(items))
	for i, item := range items {
		out, err := processItem(ctx, ec, item, processor)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		results = append(results, out)
	}
	return results, nil
}

func processItem(ctx context.Context, ec *api.ExecutionContext, item any, processor api.Step) (any, error) {
	ec.Set(api.KeyCurrentSplitItem, item)
	ec.Delete(api.KeyProcessedItem)

	if err := processor.Run(ctx, ec); err != nil {
		return nil, err
	}

	if out, ok := ec.Get(api.KeyProcessedItem); ok {
		return out, nil
	}
	return item, nil
}
