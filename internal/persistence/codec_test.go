package persistence

import (
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/conduit/pkg/api"
)

type samplePayload struct {
	Msg string
	N   int
}

func init() {
	gob.Register(samplePayload{})
}

func TestGobCodec_PreservesConcreteTypes(t *testing.T) {
	codec := GobCodec{}

	cases := []struct {
		name string
		in   any
	}{
		{name: "string", in: "hello"},
		{name: "int", in: 42},
		{name: "struct", in: samplePayload{Msg: "hi", N: 7}},
		{name: "map", in: map[string]any{"order": "A-1", "qty": 3}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := codec.Encode(tc.in)
			require.NoError(t, err)

			out, err := codec.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tc.in, out)
		})
	}
}

func TestGobCodec_Nil(t *testing.T) {
	codec := GobCodec{}

	data, err := codec.Encode(nil)
	require.NoError(t, err)
	assert.Empty(t, data)

	out, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestGobCodec_UnregisteredTypeFails(t *testing.T) {
	type unregistered struct{ X int }

	_, err := GobCodec{}.Encode(unregistered{X: 1})
	require.Error(t, err)
}

func TestGobCodec_RoutingSlip(t *testing.T) {
	slip := api.NewRoutingSlip("a", "b", "c")
	slip.Advance()

	data, err := GobCodec{}.Encode(map[string]any{api.KeyRoutingSlip: slip})
	require.NoError(t, err)

	out, err := GobCodec{}.Decode(data)
	require.NoError(t, err)
	got, ok := out.(map[string]any)[api.KeyRoutingSlip].(*api.RoutingSlip)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, got.Itinerary())
	assert.Equal(t, 1, got.Cursor())
}

func TestEncodeMessage_DescribesUnencodableEntries(t *testing.T) {
	type unregistered struct{ X int }
	snapshot := map[string]any{
		"order":   "A-1",
		"payload": samplePayload{Msg: "hi", N: 7},
		"opaque":  unregistered{X: 1},
	}

	data, err := EncodeMessage(GobCodec{}, snapshot)
	require.NoError(t, err)

	out, err := GobCodec{}.Decode(data)
	require.NoError(t, err)
	got := out.(map[string]any)
	assert.Equal(t, "A-1", got["order"])
	assert.Equal(t, samplePayload{Msg: "hi", N: 7}, got["payload"])
	assert.Equal(t, "persistence.unregistered: {1}", got["opaque"])
}

func TestEncodeMessage_NonSnapshotFallsBackToDescription(t *testing.T) {
	type unregistered struct{ X int }

	data, err := EncodeMessage(GobCodec{}, unregistered{X: 2})
	require.NoError(t, err)

	out, err := GobCodec{}.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "persistence.unregistered: {2}", out)
}

func TestJSONCodec_GenericShapes(t *testing.T) {
	codec := JSONCodec{}

	data, err := codec.Encode(samplePayload{Msg: "hi", N: 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Msg":"hi","N":7}`, string(data))

	out, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Msg": "hi", "N": float64(7)}, out)
}

func TestJSONCodec_InvalidDocument(t *testing.T) {
	_, err := JSONCodec{}.Decode([]byte("{not json"))
	require.Error(t, err)
}

func TestCodecOrDefault(t *testing.T) {
	assert.Equal(t, "gob", CodecOrDefault(nil).Name())
	assert.Equal(t, "json", CodecOrDefault(JSONCodec{}).Name())
}
