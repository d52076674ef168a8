package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/disk"
	"github.com/mit-pdos/go-sfs/fs"
)

func setenv(t *testing.T, key, value string) {
	old, had := os.LookupEnv(key)
	require.NoError(t, os.Setenv(key, value))
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func writeFile(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "sfs.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), *c)
	assert.NoError(t, c.Validate())
	assert.Equal(t, common.DefaultCacheBlocks, c.CacheCapacity)
}

func TestFileThenEnv(t *testing.T) {
	path := writeFile(t, `
image: /tmp/x.img
blocks: 2048
cache: false
cacheCapacity: 32
`)
	setenv(t, "SFS_CACHE_CAPACITY", "64")
	setenv(t, "SFS_INODES", "256")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.img", c.Image)
	assert.Equal(t, uint64(2048), c.Blocks)
	assert.Equal(t, uint64(256), c.Inodes)
	assert.False(t, c.Cache)
	assert.Equal(t, 64, c.CacheCapacity, "environment overrides the file")
	assert.True(t, c.RecoverBitmaps, "unset keys keep their defaults")
}

func TestConfigFileFromEnv(t *testing.T) {
	path := writeFile(t, "image: from-env.img\n")
	setenv(t, "SFS_CONFIG_FILE", path)
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env.img", c.Image)
}

func TestUnknownKeyRejected(t *testing.T) {
	path := writeFile(t, "imgae: typo.img\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestBadEnv(t *testing.T) {
	setenv(t, "SFS_BLOCKS", "lots")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	for _, bad := range []Config{
		{Image: ""},
		{Image: "a", Inodes: 1},
		{Image: "a", Blocks: 2},
		{Image: "a", CacheCapacity: -1},
	} {
		bad := bad
		assert.Error(t, bad.Validate(), "%+v", bad)
	}
}

func TestMountOptions(t *testing.T) {
	c := Default()
	c.Blocks = 128
	c.Inodes = 32
	c.Cache = false
	fsys, err := fs.Mount(disk.NewMemDisk(128), c.MountOptions()...)
	require.NoError(t, err)
	g := fsys.Geometry()
	assert.Equal(t, uint64(128), g.NBlocks)
	assert.Equal(t, uint64(32), g.NInodes)
	_, cached := fsys.CacheStats()
	assert.False(t, cached)
}
