// Package config loads mount settings from an optional YAML file and the
// environment.
package config

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/mit-pdos/go-sfs/common"
	"github.com/mit-pdos/go-sfs/fs"
)

const envVarPrefix = "SFS"

type Config struct {
	Image          string `envconfig:"SFS_IMAGE"           yaml:"image"`
	Blocks         uint64 `envconfig:"SFS_BLOCKS"          yaml:"blocks"`
	Inodes         uint64 `envconfig:"SFS_INODES"          yaml:"inodes"`
	Cache          bool   `envconfig:"SFS_CACHE"           yaml:"cache"`
	CacheCapacity  int    `envconfig:"SFS_CACHE_CAPACITY"  yaml:"cacheCapacity"`
	RecoverBitmaps bool   `envconfig:"SFS_RECOVER_BITMAPS" yaml:"recoverBitmaps"`
	Debug          uint64 `envconfig:"SFS_DEBUG"           yaml:"debug"`
}

// Default leaves the geometry to the image (or DefaultBlocks/DefaultInodes
// for a new one).
func Default() Config {
	return Config{
		Image:          "disk.img",
		Cache:          true,
		CacheCapacity:  common.DefaultCacheBlocks,
		RecoverBitmaps: true,
	}
}

// Load starts from Default, applies the YAML file at configFile (or
// $SFS_CONFIG_FILE when configFile is empty; a missing file is skipped), and
// then any SFS_* environment variables.
func Load(configFile string) (*Config, error) {
	c := Default()
	if configFile == "" {
		configFile = os.Getenv(envVarPrefix + "_CONFIG_FILE")
	}
	if configFile != "" {
		data, err := ioutil.ReadFile(configFile)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err == nil {
			if err := yaml.UnmarshalStrict(data, &c); err != nil {
				return nil, fmt.Errorf("unmarshaling config file: %w", err)
			}
		}
	}
	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.Image == "" {
		return fmt.Errorf("missing required configuration: image / %s_IMAGE", envVarPrefix)
	}
	if c.Inodes == 1 {
		return fmt.Errorf("inodes: need at least 2, got %d", c.Inodes)
	}
	if c.Blocks != 0 && c.Blocks < 3 {
		return fmt.Errorf("blocks: need at least 3, got %d", c.Blocks)
	}
	if c.CacheCapacity < 0 {
		return fmt.Errorf("cacheCapacity: must not be negative, got %d", c.CacheCapacity)
	}
	return nil
}

func (c *Config) MountOptions() []fs.Option {
	return []fs.Option{
		fs.WithCache(c.Cache, c.CacheCapacity),
		fs.WithGeometry(c.Blocks, c.Inodes),
		fs.WithRecoverBitmaps(c.RecoverBitmaps),
	}
}
