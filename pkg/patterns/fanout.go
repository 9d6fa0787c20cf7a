package patterns

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/petrijr/conduit/pkg/api"
)

// FanOutOption configures steps that can run their branches in parallel.
type FanOutOption func(*fanOut)

type fanOut struct {
	parallel bool
	limit    int
}

// Parallel runs branches concurrently instead of one after another.
func Parallel() FanOutOption {
	return func(f *fanOut) { f.parallel = true }
}

// WithConcurrency bounds the number of branches running at once in parallel
// mode. n <= 0 means no bound.
func WithConcurrency(n int) FanOutOption {
	return func(f *fanOut) { f.limit = n }
}

func newFanOut(opts []FanOutOption) fanOut {
	var f fanOut
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// forkEach runs fn for i in [0,n) concurrently, each on its own fork of ec.
// Every branch runs to completion even if a sibling fails; the first error
// is returned. A panicking branch is reported as an error. Forks are returned
// in index order for merging.
func forkEach(
	ctx context.Context,
	ec *api.ExecutionContext,
	n int,
	limit int,
	fn func(ctx context.Context, i int, branch *api.ExecutionContext) error,
) ([]*api.ExecutionContext, error) {
	forks := make([]*api.ExecutionContext, n)
	for i := range forks {
		forks[i] = ec.Fork()
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := range n {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("branch %d panicked: %v", i, r)
				}
			}()
			return fn(ctx, i, forks[i])
		})
	}
	return forks, g.Wait()
}
