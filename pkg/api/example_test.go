package api_test

import (
	"context"
	"fmt"

	"github.com/petrijr/conduit/pkg/api"
)

// ExampleExecutionContext_Fork shows how a branch works on a fork and
// publishes its writes only when merged.
func ExampleExecutionContext_Fork() {
	ec := api.NewExecutionContext(api.WithValues(map[string]any{"status": "new"}))

	branch := ec.Fork()
	branch.Set("status", "priced")

	before, _ := ec.Get("status")
	ec.Merge(branch)
	after, _ := ec.Get("status")

	fmt.Println(before, "->", after)
	// Output: new -> priced
}

// ExampleNewStep shows how a plain function becomes a Step.
func ExampleNewStep() {
	greet := api.NewStep("greet", func(ctx context.Context, ec *api.ExecutionContext) error {
		name, _ := api.Value[string](ec, "name")
		ec.Set("greeting", "hello "+name)
		return nil
	})

	ec := api.NewExecutionContext(api.WithValues(map[string]any{"name": "conduit"}))
	if err := greet.Run(context.Background(), ec); err != nil {
		fmt.Println(err)
		return
	}

	v, _ := ec.Get("greeting")
	fmt.Println(v)
	// Output: hello conduit
}
