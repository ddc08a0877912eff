package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte("max_players = 8\nhash_cadence = 512\n"), 0o644))

	cfg := Default()
	require.NoError(t, LoadFile(&cfg, path))

	require.Equal(t, 8, cfg.MaxPlayers)
	require.Equal(t, int64(512), cfg.HashCadence)
	require.Equal(t, Default().FrameRateHz, cfg.FrameRateHz)
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	cfg := Default()
	require.NoError(t, LoadFile(&cfg, filepath.Join(t.TempDir(), "absent.toml")))
	require.Equal(t, Default(), cfg)
}

func TestLoadFileRejectsMalformedToml(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o644))

	cfg := Default()
	require.Error(t, LoadFile(&cfg, path))
}

func TestBindFlagsOverridesDefaults(t *testing.T) {
	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	BindFlags(fs, &cfg)

	require.NoError(t, fs.Parse([]string{"-max-players=2", "-port=9000"}))
	require.Equal(t, 2, cfg.MaxPlayers)
	require.Equal(t, 9000, cfg.Port)
}

func TestValidateRejectsBadTrailingDelays(t *testing.T) {
	cfg := Default()
	cfg.TrailingDelays = []int64{1, 2}
	require.Error(t, Validate(cfg))

	cfg.TrailingDelays = []int64{0, 5, 5}
	require.Error(t, Validate(cfg))
}

func TestValidateRejectsNonPositiveFields(t *testing.T) {
	cfg := Default()
	cfg.MaxPlayers = 0
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.FrameRateHz = 0
	require.Error(t, Validate(cfg))
}
