package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blkcheck/internal/config"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(config.Input{WorkDir: t.TempDir(), Env: map[string]string{}})
	require.NoError(t, err)

	want := config.Default()
	if diff := cmp.Diff(want, cfg, cmpopts.IgnoreFields(config.Config{}, "Sources")); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	assert.Empty(t, cfg.Sources.Global)
	assert.Empty(t, cfg.Sources.Project)
}

func TestLoadProjectConfigWithComments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, config.FileName, `{
		// exercise whole-sector chunks by default
		"block_size": "4k",
		"pattern": "lba",
	}`)

	cfg, err := config.Load(config.Input{WorkDir: dir, Env: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, "4k", cfg.BlockSize)
	assert.Equal(t, "lba", cfg.Pattern)
	assert.Equal(t, filepath.Join(dir, config.FileName), cfg.Sources.Project)
}

func TestLoadPrecedenceProjectOverGlobal(t *testing.T) {
	t.Parallel()

	xdg := t.TempDir()
	writeConfig(t, xdg, filepath.Join("blkcheck", "config.json"), `{"pattern": "zeros", "direct": true}`)

	dir := t.TempDir()
	writeConfig(t, dir, config.FileName, `{"pattern": "ones"}`)

	cfg, err := config.Load(config.Input{
		WorkDir: dir,
		Env:     map[string]string{"XDG_CONFIG_HOME": xdg},
	})
	require.NoError(t, err)

	assert.Equal(t, "ones", cfg.Pattern, "project layers over global")
	assert.True(t, cfg.Direct, "unset project keys keep global values")
	assert.NotEmpty(t, cfg.Sources.Global)
	assert.NotEmpty(t, cfg.Sources.Project)
}

func TestLoadExplicitConfigPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	explicit := writeConfig(t, dir, "custom.json", `{"block_size": "1m"}`)

	cfg, err := config.Load(config.Input{
		WorkDir:    t.TempDir(),
		ConfigPath: explicit,
		Env:        map[string]string{},
	})
	require.NoError(t, err)

	assert.Equal(t, "1m", cfg.BlockSize)
}

func TestLoadExplicitConfigPathMissing(t *testing.T) {
	t.Parallel()

	_, err := config.Load(config.Input{
		WorkDir:    t.TempDir(),
		ConfigPath: filepath.Join(t.TempDir(), "nope.json"),
		Env:        map[string]string{},
	})
	require.ErrorIs(t, err, config.ErrNotFound)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, config.FileName, `{"blocksize": "4k"}`)

	_, err := config.Load(config.Input{WorkDir: dir, Env: map[string]string{}})
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name    string
		content string
	}{
		{"bad block size", `{"block_size": "4q"}`},
		{"bad pattern", `{"pattern": "noise"}`},
		{"not json", `pattern = random`},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeConfig(t, dir, config.FileName, tt.content)

			_, err := config.Load(config.Input{WorkDir: dir, Env: map[string]string{}})
			require.ErrorIs(t, err, config.ErrInvalid)
		})
	}
}

func TestParseSize(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"512", 512},
		{"4k", 4096},
		{"128K", 131072},
		{"1m", 1 << 20},
		{"2g", 2 << 30},
		{" 64k ", 65536},
	} {
		got, err := config.ParseSize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, in := range []string{"", "k", "4x", "-1", "1.5m"} {
		_, err := config.ParseSize(in)
		assert.Error(t, err, in)
	}
}
