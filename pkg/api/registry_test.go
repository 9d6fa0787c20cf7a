package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterLookup(t *testing.T) {
	reg, err := NewRegistry(Noop("b"), Noop("a"))
	require.NoError(t, err)

	s, err := reg.Lookup("a")
	require.NoError(t, err)
	assert.Equal(t, "a", s.Name())

	assert.Equal(t, []string{"a", "b"}, reg.Names())
}

func TestRegistry_UnknownStep(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	_, err = reg.Lookup("missing")
	require.ErrorIs(t, err, ErrUnknownStep)
	assert.Contains(t, err.Error(), "missing")
}

func TestRegistry_RejectsInvalidRegistrations(t *testing.T) {
	var reg Registry

	require.NoError(t, reg.Register(Noop("a")))
	require.ErrorIs(t, reg.Register(Noop("a")), ErrDuplicateStep)
	require.Error(t, reg.Register(Noop("")))
	require.Error(t, reg.Register(nil))

	_, err := NewRegistry(Noop("x"), Noop("x"))
	require.ErrorIs(t, err, ErrDuplicateStep)
}

func TestRegistry_MustRegisterPanicsOnDuplicate(t *testing.T) {
	reg := (&Registry{}).MustRegister(Noop("a"))
	assert.Panics(t, func() { reg.MustRegister(Noop("a")) })
}
