package patterns

import (
	"context"
	"io"
	"log/slog"

	"github.com/petrijr/conduit/pkg/api"
)

func newEC(values map[string]any) *api.ExecutionContext {
	return api.NewExecutionContext(
		api.WithValues(values),
		api.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

// marker returns a step that records its own name under key.
func marker(name, key string) api.Step {
	return api.NewStep(name, func(ctx context.Context, ec *api.ExecutionContext) error {
		ec.Set(key, name)
		return nil
	})
}

// appendTrace appends name to the []string under "trace".
func appendTrace(name string) api.Step {
	return api.NewStep(name, func(ctx context.Context, ec *api.ExecutionContext) error {
		trace, _ := api.Value[[]string](ec, "trace")
		ec.Set("trace", append(append([]string(nil), trace...), name))
		return nil
	})
}

func intAt(key string) func(ec *api.ExecutionContext) int {
	return func(ec *api.ExecutionContext) int {
		v, _ := api.Value[int](ec, key)
		return v
	}
}

func failing(name string, err error) api.Step {
	return api.NewStep(name, func(context.Context, *api.ExecutionContext) error { return err })
}
