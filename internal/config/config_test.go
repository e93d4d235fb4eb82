package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyEnv(noEnv))
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.GridSize)
	assert.Equal(t, uint64(50), cfg.SnapshotInterval)
	assert.Equal(t, "odd-r", cfg.CoordinateSystem)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "citysim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
grid_size: 20
people: 30
coordinate_system: axial
tick_interval: 250ms
`), 0o644))

	t.Setenv("PEOPLE_AMOUNT", "12")
	t.Setenv("KILLER_PROBABILITY", "0.25")
	t.Setenv("SNAPSHOT_INTERVAL", "5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.GridSize)
	assert.Equal(t, 12, cfg.People, "environment wins over the file")
	assert.Equal(t, "axial", cfg.CoordinateSystem)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.InDelta(t, 0.25, cfg.KillerProbability, 1e-9)
	assert.Equal(t, uint64(5), cfg.SnapshotInterval)
	assert.InDelta(t, 0.05, cfg.PoliceProbability, 1e-9, "untouched keys keep defaults")
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grid_sise: 20\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Seed, cfg.Seed)
}

func TestBadEnvValue(t *testing.T) {
	t.Setenv("GRID_SIZE", "big")
	_, err := Load("")
	assert.ErrorContains(t, err, "GRID_SIZE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero grid", func(c *Config) { c.GridSize = 0 }, "grid_size"},
		{"negative people", func(c *Config) { c.People = -1 }, "negative"},
		{"probability range", func(c *Config) { c.KillerProbability = 1.5 }, "[0,1]"},
		{"probability sum", func(c *Config) { c.KillerProbability, c.PoliceProbability = 0.6, 0.6 }, "sum above 1"},
		{"lifespan", func(c *Config) { c.LifespanMin = 90; c.LifespanMax = 10 }, "lifespan"},
		{"coordinate system", func(c *Config) { c.CoordinateSystem = "hexagonal" }, "coordinate system"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestNewLoggerNonTerminalIsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown", "tick", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"tick":3`)
}
