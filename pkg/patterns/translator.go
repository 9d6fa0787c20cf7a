package patterns

import (
	"context"
	"fmt"
	"maps"

	"github.com/petrijr/conduit/pkg/api"
)

// MessageTranslator reads a typed value from one key, translates it and
// writes the typed result to another key.
type MessageTranslator[In, Out any] struct {
	name      string
	inputKey  string
	outputKey string
	translate func(ctx context.Context, in In) (Out, error)
}

var _ api.Step = (*MessageTranslator[any, any])(nil)

// NewMessageTranslator creates a translator. A missing input, or one of a
// type other than In, fails with api.ErrInvalidValue.
func NewMessageTranslator[In, Out any](
	name, inputKey, outputKey string,
	translate func(ctx context.Context, in In) (Out, error),
) *MessageTranslator[In, Out] {
	return &MessageTranslator[In, Out]{
		name:      name,
		inputKey:  inputKey,
		outputKey: outputKey,
		translate: translate,
	}
}

// TranslateWith creates a translator backed by an api.MessageTranslator.
func TranslateWith[In, Out any](name, inputKey, outputKey string, t api.MessageTranslator[In, Out]) *MessageTranslator[In, Out] {
	return NewMessageTranslator(name, inputKey, outputKey, t.Translate)
}

func (t *MessageTranslator[In, Out]) Name() string { return t.name }

func (t *MessageTranslator[In, Out]) Run(ctx context.Context, ec *api.ExecutionContext) error {
	raw, ok := ec.Get(t.inputKey)
	if !ok {
		return fmt.Errorf("%w: %s is not set", api.ErrInvalidValue, t.inputKey)
	}
	in, ok := raw.(In)
	if !ok {
		return fmt.Errorf("%w: %s holds %T", api.ErrInvalidValue, t.inputKey, raw)
	}

	out, err := t.translate(ctx, in)
	if err != nil {
		return fmt.Errorf("translate: %w", err)
	}
	ec.Set(t.outputKey, out)
	return nil
}

// FormatFunc detects the format of the current message.
type FormatFunc func(ec *api.ExecutionContext) string

// Normalizer routes a message to the translator registered for its format,
// so that messages arriving in different formats leave in one canonical
// form.
type Normalizer struct {
	name        string
	detect      FormatFunc
	translators map[string]api.Step
	fallback    api.Step
}

var _ api.Step = (*Normalizer)(nil)

// NewNormalizer creates a normalizer. fallback may be nil; an unknown format
// then fails with api.ErrUnknownFormat.
func NewNormalizer(name string, detect FormatFunc, translators map[string]api.Step, fallback api.Step) *Normalizer {
	return &Normalizer{
		name:        name,
		detect:      detect,
		translators: maps.Clone(translators),
		fallback:    fallback,
	}
}

func (n *Normalizer) Name() string { return n.name }

func (n *Normalizer) Run(ctx context.Context, ec *api.ExecutionContext) error {
	format := n.detect(ec)
	if t, ok := n.translators[format]; ok {
		return t.Run(ctx, ec)
	}
	if n.fallback != nil {
		return n.fallback.Run(ctx, ec)
	}
	return fmt.Errorf("%w: %q", api.ErrUnknownFormat, format)
}
