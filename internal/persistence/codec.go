package persistence

import (
	"bytes"
	"encoding/gob"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/petrijr/conduit/pkg/api"
)

func init() {
	// Context snapshots and split results are the most common payloads.
	gob.Register(map[string]any{})
	gob.Register([]any{})
	gob.Register(&api.RoutingSlip{})
}

// Codec turns payloads into bytes for stores that cannot hold Go values.
type Codec interface {
	Name() string
	Encode(v any) ([]byte, error)
	Decode(data []byte) (any, error)
}

// GobCodec serializes values with encoding/gob, preserving concrete Go
// types. Custom types must be registered with gob.Register.
type GobCodec struct{}

func (GobCodec) Name() string { return "gob" }

// Encode encodes v as an interface value so Decode can restore its
// concrete type without knowing it up front.
func (GobCodec) Encode(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	iv := v
	if err := gob.NewEncoder(&buf).Encode(&iv); err != nil {
		return nil, fmt.Errorf("gob encode %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

func (GobCodec) Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var iv any
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&iv); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	return iv, nil
}

// JSONCodec serializes values as JSON. Decoded values come back as the
// generic JSON shapes (map[string]any, []any, float64, string, bool).
type JSONCodec struct{}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json encode %T: %w", v, err)
	}
	return data, nil
}

func (JSONCodec) Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("json decode: invalid document")
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}
	return v, nil
}

// EncodeMessage encodes a dead-letter message with c. If c rejects a context
// snapshot as a whole, each entry it cannot encode on its own is replaced by
// a "%T: %v" description and the rest is kept.
func EncodeMessage(c Codec, message any) ([]byte, error) {
	data, err := c.Encode(message)
	if err == nil {
		return data, nil
	}
	snapshot, ok := message.(map[string]any)
	if !ok {
		return c.Encode(describe(message))
	}
	safe := make(map[string]any, len(snapshot))
	for k, v := range snapshot {
		if _, err := c.Encode(v); err != nil {
			v = describe(v)
		}
		safe[k] = v
	}
	return c.Encode(safe)
}

func describe(v any) string { return fmt.Sprintf("%T: %v", v, v) }

// CodecOrDefault returns c, or GobCodec when c is nil.
func CodecOrDefault(c Codec) Codec {
	if c == nil {
		return GobCodec{}
	}
	return c
}
