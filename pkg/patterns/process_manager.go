package patterns

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/petrijr/conduit/pkg/api"
)

// DefaultMaxTransitions bounds a ProcessManager when no ceiling is given.
const DefaultMaxTransitions = 100

// StateFunc derives the current process state from the context.
type StateFunc func(ec *api.ExecutionContext) string

// ProcessManager drives a state machine whose state is derived from the
// context.
//
// Each iteration computes the state, stores it under
// api.KeyProcessManagerState and runs the handler registered for it. The
// loop stops when the state has no handler (terminal), when a handler
// aborts the run, when a handler leaves the state unchanged, or after
// maxTransitions handler runs, whichever comes first. Handler errors are
// returned as is.
type ProcessManager struct {
	name           string
	state          StateFunc
	handlers       map[string]api.Step
	maxTransitions int
}

var _ api.Step = (*ProcessManager)(nil)

// NewProcessManager creates a process manager. maxTransitions <= 0 selects
// DefaultMaxTransitions.
func NewProcessManager(name string, state StateFunc, handlers map[string]api.Step, maxTransitions int) *ProcessManager {
	if maxTransitions <= 0 {
		maxTransitions = DefaultMaxTransitions
	}
	return &ProcessManager{
		name:           name,
		state:          state,
		handlers:       maps.Clone(handlers),
		maxTransitions: maxTransitions,
	}
}

func (p *ProcessManager) Name() string { return p.name }

// MaxTransitions returns the configured ceiling.
func (p *ProcessManager) MaxTransitions() int { return p.maxTransitions }

func (p *ProcessManager) Run(ctx context.Context, ec *api.ExecutionContext) error {
	current := p.state(ec)

	for transitions := 0; transitions < p.maxTransitions; transitions++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		ec.Set(api.KeyProcessManagerState, current)

		handler, ok := p.handlers[current]
		if !ok {
			return nil
		}
		if err := handler.Run(ctx, ec); err != nil {
			return fmt.Errorf("state %q: %w", current, err)
		}
		if ec.Aborted() {
			return nil
		}

		next := p.state(ec)
		if next == current {
			return nil
		}
		current = next
	}

	ec.Logger().WarnContext(ctx, "process_manager_ceiling_reached",
		slog.String("step", p.name),
		slog.Int("max_transitions", p.maxTransitions),
		slog.String("pending_state", current),
	)
	return nil
}
