package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, text string) {
	path := filepath.Join(t.TempDir(), "flatfs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	t.Setenv("FLATFS_CONFIG_FILE", path)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("FLATFS_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), *c)
	assert.NoError(t, c.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	writeConfig(t, "image: /tmp/x.img\nblocks: 64\ncacheBlocks: 8\nstats: true\n")
	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.img", c.Image)
	assert.Equal(t, uint64(64), c.Blocks)
	assert.Equal(t, uint64(8), c.CacheBlocks)
	assert.True(t, c.Stats)
	assert.Equal(t, uint32(32), c.Descriptors, "default kept")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	writeConfig(t, "image: /tmp/x.img\nblocks: 64\n")
	t.Setenv("FLATFS_BLOCKS", "100")
	t.Setenv("FLATFS_DEBUG", "5")
	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.img", c.Image)
	assert.Equal(t, uint64(100), c.Blocks)
	assert.Equal(t, uint64(5), c.Debug)
}

func TestLoadConfigStrict(t *testing.T) {
	writeConfig(t, "image: a.img\nbogus: 1\n")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := defaultConfig()
	c.Blocks = 1
	assert.Error(t, c.Validate())
	c.Blocks = 256
	assert.Error(t, c.Validate())
	c = defaultConfig()
	c.Descriptors = 0
	assert.Error(t, c.Validate())
	c = defaultConfig()
	c.Image = ""
	assert.Error(t, c.Validate())
}
