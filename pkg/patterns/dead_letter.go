package patterns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/conduit/pkg/api"
)

// DeadLetterChannel runs a step and, when it fails, hands a snapshot of the
// context to a dead-letter store instead of failing the run.
type DeadLetterChannel struct {
	step  api.Step
	store api.DeadLetterStore
}

var _ api.Step = (*DeadLetterChannel)(nil)

// NewDeadLetterChannel wraps step. The wrapper keeps the name of step.
func NewDeadLetterChannel(step api.Step, store api.DeadLetterStore) *DeadLetterChannel {
	return &DeadLetterChannel{step: step, store: store}
}

func (d *DeadLetterChannel) Name() string { return d.step.Name() }

func (d *DeadLetterChannel) Run(ctx context.Context, ec *api.ExecutionContext) error {
	stepErr := d.step.Run(ctx, ec)
	if stepErr == nil {
		return nil
	}

	msg := api.DeadLetter{
		ID:            uuid.NewString(),
		RunID:         ec.RunID(),
		CorrelationID: ec.CorrelationID(),
		Step:          d.step.Name(),
		Reason:        fmt.Sprintf("step %s failed", d.step.Name()),
		Error:         stepErr.Error(),
		Message:       ec.Snapshot(),
		CreatedAt:     time.Now().UTC(),
	}
	if err := d.store.Send(ctx, msg); err != nil {
		return errors.Join(stepErr, fmt.Errorf("dead letter: %w", err))
	}

	ec.Logger().WarnContext(ctx, "dead_letter_routed",
		slog.String("step", d.step.Name()),
		slog.String("dead_letter_id", msg.ID),
		slog.Any("error", stepErr),
	)
	return nil
}
