package patterns

import (
	"context"

	"github.com/petrijr/conduit/pkg/api"
)

// RecipientsFunc computes the recipients of the current message.
type RecipientsFunc func(ec *api.ExecutionContext) []api.Step

// RecipientList sends the message to a dynamically computed list of steps.
//
// In sequential mode recipients run in order and the list stops early once
// the abort flag is set. In parallel mode every recipient is started and
// runs to completion regardless of the abort flag; each recipient writes to
// its own fork, and the forks are merged in recipient order afterwards.
type RecipientList struct {
	name       string
	recipients RecipientsFunc
	fanOut     fanOut
}

var _ api.Step = (*RecipientList)(nil)

// NewRecipientList creates a recipient list.
func NewRecipientList(name string, recipients RecipientsFunc, opts ...FanOutOption) *RecipientList {
	return &RecipientList{
		name:       name,
		recipients: recipients,
		fanOut:     newFanOut(opts),
	}
}

func (r *RecipientList) Name() string { return r.name }

func (r *RecipientList) Run(ctx context.Context, ec *api.ExecutionContext) error {
	steps := r.recipients(ec)
	if len(steps) == 0 {
		return nil
	}

	if !r.fanOut.parallel {
		for _, s := range steps {
			if err := s.Run(ctx, ec); err != nil {
				return err
			}
			if ec.Aborted() {
				return nil
			}
		}
		return nil
	}

	forks, err := forkEach(ctx, ec, len(steps), r.fanOut.limit,
		func(ctx context.Context, i int, branch *api.ExecutionContext) error {
			return steps[i].Run(ctx, branch)
		},
	)
	for _, f := range forks {
		ec.Merge(f)
	}
	return err
}
