package patterns

import (
	"context"
	"fmt"

	"github.com/petrijr/conduit/pkg/api"
)

// EnrichFunc fetches additional data for the current message.
type EnrichFunc func(ctx context.Context, ec *api.ExecutionContext) (map[string]any, error)

// ContentEnricher writes every entry returned by its enrich function into
// the context.
type ContentEnricher struct {
	name   string
	enrich EnrichFunc
}

var _ api.Step = (*ContentEnricher)(nil)

// NewContentEnricher creates a content enricher.
func NewContentEnricher(name string, enrich EnrichFunc) *ContentEnricher {
	return &ContentEnricher{name: name, enrich: enrich}
}

func (e *ContentEnricher) Name() string { return e.name }

func (e *ContentEnricher) Run(ctx context.Context, ec *api.ExecutionContext) error {
	values, err := e.enrich(ctx, ec)
	if err != nil {
		return fmt.Errorf("enrich: %w", err)
	}
	for k, v := range values {
		ec.Set(k, v)
	}
	return nil
}

// ContentFilter keeps only selected fields of a map-shaped message.
type ContentFilter struct {
	name      string
	sourceKey string
	targetKey string
	fields    []string
}

var _ api.Step = (*ContentFilter)(nil)

// NewContentFilter creates a content filter reading a map[string]any from
// sourceKey and writing the reduced copy to targetKey. An empty targetKey
// overwrites the source.
func NewContentFilter(name, sourceKey, targetKey string, fields ...string) *ContentFilter {
	if targetKey == "" {
		targetKey = sourceKey
	}
	return &ContentFilter{
		name:      name,
		sourceKey: sourceKey,
		targetKey: targetKey,
		fields:    append([]string(nil), fields...),
	}
}

func (f *ContentFilter) Name() string { return f.name }

func (f *ContentFilter) Run(_ context.Context, ec *api.ExecutionContext) error {
	raw, ok := ec.Get(f.sourceKey)
	if !ok {
		return fmt.Errorf("%w: %s is not set", api.ErrInvalidValue, f.sourceKey)
	}
	msg, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: %s holds %T, want map[string]any", api.ErrInvalidValue, f.sourceKey, raw)
	}

	out := make(map[string]any, len(f.fields))
	for _, field := range f.fields {
		if v, ok := msg[field]; ok {
			out[field] = v
		}
	}
	ec.Set(f.targetKey, out)
	return nil
}
