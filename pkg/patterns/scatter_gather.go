package patterns

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/petrijr/conduit/pkg/api"
)

// GatherFunc combines the results collected by a ScatterGather.
type GatherFunc func(ctx context.Context, ec *api.ExecutionContext, results []any) (any, error)

// ScatterGather runs every handler concurrently and aggregates the value
// each one wrote under api.HandlerResultKey(handler.Name()).
//
// Handler failures never surface: a handler that returns an error or is
// cancelled contributes nil. When every handler finishes before the deadline
// the gather function receives one entry per handler, in handler order.
//
// When the deadline passes first, the step does not fail. Handlers still
// running are cancelled and dropped, and the gather function receives the
// results of the handlers that had finished, in handler order with the gaps
// removed. Callers must not assume that a position maps to a particular
// handler in that case.
//
// Each handler runs on an isolated fork with its own abort flag and error
// list. Forks of handlers that succeeded before the deadline are merged into
// the parent in handler order, together with any abort or recorded errors.
// Forks of failed or dropped handlers are discarded, so late writes, aborts
// and errors never reach the parent. The gathered list is stored under
// api.KeyScatterGatherResults.
type ScatterGather struct {
	name     string
	handlers []api.Step
	gather   GatherFunc
	timeout  time.Duration
}

var _ api.Step = (*ScatterGather)(nil)

// NewScatterGather creates a scatter-gather. timeout <= 0 means no deadline
// other than the one carried by the run's context.
func NewScatterGather(name string, handlers []api.Step, gather GatherFunc, timeout time.Duration) *ScatterGather {
	return &ScatterGather{
		name:     name,
		handlers: append([]api.Step(nil), handlers...),
		gather:   gather,
		timeout:  timeout,
	}
}

func (s *ScatterGather) Name() string { return s.name }

// Timeout returns the configured deadline.
func (s *ScatterGather) Timeout() time.Duration { return s.timeout }

type handlerOutcome struct {
	index int
	value any
	err   error
	// late is set when the handler failed after the scatter context ended.
	late bool
}

func (s *ScatterGather) Run(ctx context.Context, ec *api.ExecutionContext) error {
	scatterCtx, cancel := s.deadline(ctx)
	defer cancel()

	n := len(s.handlers)
	forks := make([]*api.ExecutionContext, n)
	outcomes := make(chan handlerOutcome, n)

	for i, h := range s.handlers {
		forks[i] = ec.ForkIsolated()
		go func() {
			outcomes <- runHandler(scatterCtx, h, forks[i], i)
		}()
	}

	finished := make([]*handlerOutcome, n)
	received, done := 0, 0

collect:
	for received < n {
		select {
		case o := <-outcomes:
			received++
			if o.late {
				continue
			}
			finished[o.index] = &o
			done++
		case <-scatterCtx.Done():
			break collect
		}
	}

	// The run itself was cancelled: unwind instead of degrading.
	if done < n && ctx.Err() != nil {
		return ctx.Err()
	}

	results := make([]any, 0, done)
	for i, o := range finished {
		if o == nil {
			continue
		}
		if o.err != nil {
			ec.Logger().DebugContext(ctx, "scatter_gather_handler_failed",
				slog.String("step", s.name),
				slog.String("handler", s.handlers[i].Name()),
				slog.Any("error", o.err),
			)
		} else {
			ec.Merge(forks[i])
			ec.MergeState(forks[i])
		}
		results = append(results, o.value)
	}

	if done < n {
		ec.Logger().WarnContext(ctx, "scatter_gather_timeout",
			slog.String("step", s.name),
			slog.Int("finished", done),
			slog.Int("handlers", n),
			slog.Duration("timeout", s.timeout),
		)
	}

	out, err := s.gather(ctx, ec, results)
	if err != nil {
		return fmt.Errorf("gather: %w", err)
	}
	ec.Set(api.KeyScatterGatherResults, out)
	return nil
}

func (s *ScatterGather) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func runHandler(ctx context.Context, h api.Step, branch *api.ExecutionContext, index int) (out handlerOutcome) {
	out.index = index
	defer func() {
		if r := recover(); r != nil {
			out.value = nil
			out.err = fmt.Errorf("handler %q panicked: %v", h.Name(), r)
		}
	}()

	if err := h.Run(ctx, branch); err != nil {
		out.err = err
		out.late = ctx.Err() != nil
		return out
	}
	out.value, _ = branch.Get(api.HandlerResultKey(h.Name()))
	return out
}
