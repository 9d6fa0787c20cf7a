package conduit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestStepOverheadUnder1ms checks that the engine adds well under a
// millisecond per step when the steps themselves do nothing.
func TestStepOverheadUnder1ms(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := quietEngine()

	const N = 1000

	flow := New("perf-step-overhead")
	for i := range N {
		flow = flow.Use(Noop(fmt.Sprintf("s%04d", i)))
	}
	require.NoError(t, flow.Register(eng))

	// Warm-up run.
	_, err := Run(ctx, eng, flow.Name(), nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = Run(ctx, eng, flow.Name(), nil)
	require.NoError(t, err)
	total := time.Since(start)

	if avg := total / N; avg >= time.Millisecond {
		t.Fatalf("average engine overhead per step too high: %v (total %v for %d steps)", avg, total, N)
	}
}

func BenchmarkParallelSplit(b *testing.B) {
	eng := NewEngine(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	items := make([]any, 64)
	for i := range items {
		items[i] = i
	}
	double := NewStep("double", func(ctx context.Context, ec *ExecutionContext) error {
		n, _ := Value[int](ec, KeyCurrentSplitItem)
		ec.Set(KeyProcessedItem, n*2)
		return nil
	})

	New("bench-split").
		Split("split", func(*ExecutionContext) ([]any, error) { return items, nil }, double, Parallel()).
		MustRegister(eng)

	ctx := context.Background()
	for b.Loop() {
		if _, err := Run(ctx, eng, "bench-split", nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkScatterGather(b *testing.B) {
	eng := NewEngine(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	handlers := make([]Step, 8)
	for i := range handlers {
		name := fmt.Sprintf("h%d", i)
		handlers[i] = NewStep(name, func(ctx context.Context, ec *ExecutionContext) error {
			ec.Set(HandlerResultKey(name), i)
			return nil
		})
	}
	gather := func(_ context.Context, _ *ExecutionContext, results []any) (any, error) {
		return len(results), nil
	}

	New("bench-sg").ScatterGather("sg", time.Second, gather, handlers...).MustRegister(eng)

	ctx := context.Background()
	for b.Loop() {
		if _, err := Run(ctx, eng, "bench-sg", nil); err != nil {
			b.Fatal(err)
		}
	}
}
