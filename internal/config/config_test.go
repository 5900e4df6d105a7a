package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteExampleThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, WriteExample(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), loaded)
}

func TestWriteExampleRefusesToOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, WriteExample(path))
	assert.Error(t, WriteExample(path))
}

func TestLoadAppliesDefaultsToZeroFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, Save(path, Config{DownloadDir: "/custom"}))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/custom", c.DownloadDir)
	assert.Equal(t, Default().ImageConcurrency, c.ImageConcurrency)
	assert.Equal(t, Default().ChapterConcurrency, c.ChapterConcurrency)
}
