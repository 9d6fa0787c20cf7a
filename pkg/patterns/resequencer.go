package patterns

import (
	"cmp"
	"context"
	"slices"

	"github.com/petrijr/conduit/pkg/api"
)

// SequenceFunc extracts the sequence number of an item.
type SequenceFunc func(item any) int64

// Resequencer stable-sorts the selected items by sequence number and stores
// them under api.KeyResequencerResult. Items with equal sequence numbers keep
// their relative order. The selected slice is not modified.
type Resequencer struct {
	name     string
	selector ItemSelector
	sequence SequenceFunc
}

var _ api.Step = (*Resequencer)(nil)

// NewResequencer creates a resequencer.
func NewResequencer(name string, selector ItemSelector, sequence SequenceFunc) *Resequencer {
	return &Resequencer{name: name, selector: selector, sequence: sequence}
}

func (r *Resequencer) Name() string { return r.name }

func (r *Resequencer) Run(_ context.Context, ec *api.ExecutionContext) error {
	items := slices.Clone(r.selector(ec))
	slices.SortStableFunc(items, func(a, b any) int {
		return cmp.Compare(r.sequence(a), r.sequence(b))
	})
	ec.Set(api.KeyResequencerResult, items)
	return nil
}
