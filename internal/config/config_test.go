package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingPathReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoad_ReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	contents := "data_dir: /tmp/aether\nmax_file_size: 2048\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/aether", cfg.DataDir)
	require.EqualValues(t, 2048, cfg.MaxFileSize)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	contents := "data_dir: ${AETHER_TEST_DIR}\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	t.Setenv("AETHER_TEST_DIR", "/var/lib/aether")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/aether", cfg.DataDir)
}

func TestLoad_OptionsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	contents := "data_dir: /tmp/aether\nmax_file_size: 2048\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	cfg, err := Load(path, WithDataDir("/tmp/override"), WithMaxFileSize(4096))
	require.NoError(t, err)
	require.Equal(t, "/tmp/override", cfg.DataDir)
	require.EqualValues(t, 4096, cfg.MaxFileSize)
}

func TestWithMaxFileSize_IgnoresNonPositive(t *testing.T) {
	cfg := Default()
	WithMaxFileSize(0)(&cfg)
	WithMaxFileSize(-1)(&cfg)
	require.Equal(t, Default().MaxFileSize, cfg.MaxFileSize)
}
