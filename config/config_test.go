package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8645", cfg.ListenAddress)
	require.Equal(t, "dev", cfg.Env)
	require.Positive(t, cfg.RateLimitPerSecond)

	// The default file must round-trip.
	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.ListenAddress, reloaded.ListenAddress)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("ListenAddress = \":9000\"\nBogusKnob = true\n"), 0o644))

	_, err := Load(path)
	require.ErrorContains(t, err, "BogusKnob")
}

func TestLoadAppliesDefaultsToSparseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("ListenAddress = \":9000\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.ListenAddress)
	require.Equal(t, "./arclend-data", cfg.DataDir)
	require.Equal(t, 100, cfg.RateLimitBurst)
}
