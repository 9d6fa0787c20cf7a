package conduit

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/conduit/pkg/patterns"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, patterns.DefaultMaxTransitions, cfg.MaxTransitions)
	assert.Equal(t, 30*time.Second, cfg.ScatterGatherTimeoutDuration())
	assert.Equal(t, 0, cfg.Concurrency)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestFinalizeAppliesEnvironment(t *testing.T) {
	t.Setenv(EnvMaxTransitions, "7")
	t.Setenv(EnvScatterGatherTimeout, "250ms")
	t.Setenv(EnvConcurrency, "4")
	t.Setenv(EnvLogLevel, "debug")

	var cfg Config
	require.NoError(t, cfg.Finalize(DefaultEnv()))

	assert.Equal(t, 7, cfg.MaxTransitions)
	assert.Equal(t, 250*time.Millisecond, cfg.ScatterGatherTimeoutDuration())
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
}

func TestFinalizeIgnoresMalformedIntegers(t *testing.T) {
	t.Setenv(EnvMaxTransitions, "many")

	cfg := Config{MaxTransitions: 12}
	require.NoError(t, cfg.Finalize(DefaultEnv()))
	assert.Equal(t, 12, cfg.MaxTransitions)
}

func TestFinalizeWithoutEnv(t *testing.T) {
	t.Setenv(EnvMaxTransitions, "7")

	var cfg Config
	require.NoError(t, cfg.Finalize(nil))
	assert.Equal(t, patterns.DefaultMaxTransitions, cfg.MaxTransitions)
}

func TestFinalizeValidation(t *testing.T) {
	cases := map[string]Config{
		"negative transitions": {MaxTransitions: -1},
		"bad timeout":          {ScatterGatherTimeout: "soon"},
		"negative timeout":     {ScatterGatherTimeout: "-1s"},
		"negative concurrency": {Concurrency: -2},
		"bad level":            {LogLevel: "loud"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, cfg.Finalize(nil))
		})
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
max_transitions = 25
scatter_gather_timeout = "2s"
concurrency = 8
log_level = "warn"
`))
	require.NoError(t, err)

	assert.Equal(t, Config{
		MaxTransitions:       25,
		ScatterGatherTimeout: "2s",
		Concurrency:          8,
		LogLevel:             "warn",
	}, cfg)

	_, err = ParseConfig([]byte(`max_transitions = "lots"`))
	require.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conduit.toml")
	require.NoError(t, os.WriteFile(path, []byte("concurrency = 3\n"), 0o600))
	t.Setenv(EnvLogLevel, "error")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, patterns.DefaultMaxTransitions, cfg.MaxTransitions)
	assert.Equal(t, slog.LevelError, cfg.Level())

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestLoadConfigWithoutFile(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "30s", cfg.ScatterGatherTimeout)
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Merge(&Config{Concurrency: 2, LogLevel: "debug"})

	assert.Equal(t, 2, base.Concurrency)
	assert.Equal(t, "debug", base.LogLevel)
	assert.Equal(t, patterns.DefaultMaxTransitions, base.MaxTransitions)
	assert.Equal(t, "30s", base.ScatterGatherTimeout)
}

func TestNewLoggerHonorsLevel(t *testing.T) {
	cfg := Config{LogLevel: "warn"}
	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
