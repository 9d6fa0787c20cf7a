package patterns

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/conduit/pkg/api"
)

func parseAmount(_ context.Context, in string) (int, error) {
	return strconv.Atoi(in)
}

func TestMessageTranslator(t *testing.T) {
	tr := NewMessageTranslator("parse", "raw", "amount", parseAmount)

	ec := newEC(map[string]any{"raw": "42"})
	require.NoError(t, tr.Run(context.Background(), ec))

	amount, ok := api.Value[int](ec, "amount")
	require.True(t, ok)
	assert.Equal(t, 42, amount)
}

func TestMessageTranslatorInvalidInput(t *testing.T) {
	tr := NewMessageTranslator("parse", "raw", "amount", parseAmount)

	cases := map[string]map[string]any{
		"missing":    nil,
		"wrong type": {"raw": 42},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			ec := newEC(values)
			require.ErrorIs(t, tr.Run(context.Background(), ec), api.ErrInvalidValue)
			assert.False(t, ec.Has("amount"))
		})
	}
}

func TestMessageTranslatorFailure(t *testing.T) {
	tr := NewMessageTranslator("parse", "raw", "amount", parseAmount)

	ec := newEC(map[string]any{"raw": "forty-two"})
	var numErr *strconv.NumError
	require.ErrorAs(t, tr.Run(context.Background(), ec), &numErr)
	assert.False(t, ec.Has("amount"))
}

type upper struct{}

func (upper) Translate(_ context.Context, in string) (string, error) {
	out := []byte(in)
	for i, c := range out {
		if c >= 'a' && c <= 'z' {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out), nil
}

func TestTranslateWith(t *testing.T) {
	tr := TranslateWith[string, string]("upper", "in", "out", upper{})

	ec := newEC(map[string]any{"in": "abc"})
	require.NoError(t, tr.Run(context.Background(), ec))
	out, _ := ec.Get("out")
	assert.Equal(t, "ABC", out)
}

func TestNormalizer(t *testing.T) {
	detect := func(ec *api.ExecutionContext) string {
		f, _ := api.Value[string](ec, "format")
		return f
	}
	translators := map[string]api.Step{
		"csv":  marker("csv", "normalized-by"),
		"json": marker("json", "normalized-by"),
	}

	n := NewNormalizer("normalize", detect, translators, nil)

	ec := newEC(map[string]any{"format": "json"})
	require.NoError(t, n.Run(context.Background(), ec))
	by, _ := ec.Get("normalized-by")
	assert.Equal(t, "json", by)

	err := n.Run(context.Background(), newEC(map[string]any{"format": "xml"}))
	require.ErrorIs(t, err, api.ErrUnknownFormat)
	assert.Contains(t, err.Error(), `"xml"`)

	withFallback := NewNormalizer("normalize", detect, translators, marker("fallback", "normalized-by"))
	ec = newEC(map[string]any{"format": "xml"})
	require.NoError(t, withFallback.Run(context.Background(), ec))
	by, _ = ec.Get("normalized-by")
	assert.Equal(t, "fallback", by)
}

func TestContentEnricher(t *testing.T) {
	enricher := NewContentEnricher("customer", func(ctx context.Context, ec *api.ExecutionContext) (map[string]any, error) {
		id, _ := api.Value[string](ec, "customer-id")
		return map[string]any{"customer-name": "name-of-" + id, "tier": "gold"}, nil
	})

	ec := newEC(map[string]any{"customer-id": "c1"})
	require.NoError(t, enricher.Run(context.Background(), ec))

	name, _ := ec.Get("customer-name")
	tier, _ := ec.Get("tier")
	assert.Equal(t, "name-of-c1", name)
	assert.Equal(t, "gold", tier)
}

func TestContentEnricherError(t *testing.T) {
	boom := errors.New("lookup failed")
	enricher := NewContentEnricher("customer", func(context.Context, *api.ExecutionContext) (map[string]any, error) {
		return map[string]any{"partial": true}, boom
	})

	ec := newEC(nil)
	require.ErrorIs(t, enricher.Run(context.Background(), ec), boom)
	assert.False(t, ec.Has("partial"))
}

func TestContentFilter(t *testing.T) {
	order := map[string]any{"id": "o1", "card": "4111", "total": 12.5}

	f := NewContentFilter("strip", "order", "public-order", "id", "total", "absent")
	ec := newEC(map[string]any{"order": order})
	require.NoError(t, f.Run(context.Background(), ec))

	out, _ := ec.Get("public-order")
	assert.Equal(t, map[string]any{"id": "o1", "total": 12.5}, out)
	assert.Len(t, order, 3, "source must not be modified")

	inPlace := NewContentFilter("strip", "order", "", "id")
	require.NoError(t, inPlace.Run(context.Background(), ec))
	out, _ = ec.Get("order")
	assert.Equal(t, map[string]any{"id": "o1"}, out)
}

func TestContentFilterInvalidSource(t *testing.T) {
	f := NewContentFilter("strip", "order", "", "id")

	require.ErrorIs(t, f.Run(context.Background(), newEC(nil)), api.ErrInvalidValue)
	require.ErrorIs(t, f.Run(context.Background(), newEC(map[string]any{"order": "text"})), api.ErrInvalidValue)
}
