package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/mit-pdos/go-flatfs/common"
)

const (
	envVarPrefix = "FLATFS"
	appName      = "flatfs"
)

type Config struct {
	Image       string `envconfig:"FLATFS_IMAGE"        yaml:"image"`
	Blocks      uint64 `envconfig:"FLATFS_BLOCKS"       yaml:"blocks"`
	Descriptors uint32 `envconfig:"FLATFS_DESCRIPTORS"  yaml:"descriptors"`
	CacheBlocks uint64 `envconfig:"FLATFS_CACHE_BLOCKS" yaml:"cacheBlocks"`
	Debug       uint64 `envconfig:"FLATFS_DEBUG"        yaml:"debug"`
	Stats       bool   `envconfig:"FLATFS_STATS"        yaml:"stats"`
}

func defaultConfig() Config {
	return Config{
		Image:       appName + ".img",
		Blocks:      common.MAXBLOCKS,
		Descriptors: 32,
	}
}

func configFile() string {
	if f := os.Getenv(envVarPrefix + "_CONFIG_FILE"); f != "" {
		return f
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName+".yaml")
}

// LoadConfig reads the config file, if there is one, and then the
// environment.
func LoadConfig() (*Config, error) {
	c := defaultConfig()
	if path := configFile(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.UnmarshalStrict(data, &c); err != nil {
			return nil, fmt.Errorf("unmarshaling config file: %w", err)
		}
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.Image == "" {
		return fmt.Errorf("missing required config: image (%s_IMAGE)", envVarPrefix)
	}
	if c.Blocks < 2 || c.Blocks > common.MAXBLOCKS {
		return fmt.Errorf("blocks: %d not in [2, %d]", c.Blocks, common.MAXBLOCKS)
	}
	if c.Descriptors == 0 {
		return fmt.Errorf("descriptors: must be positive")
	}
	return nil
}
