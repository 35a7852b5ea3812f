// Package config loads codevec-cli's settings from viper defaults, a config
// file, and the environment, in that order of increasing precedence.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all settings for codevec-cli.
type Config struct {
	Index        IndexConfig        `mapstructure:"index"`
	ChromaMirror ChromaMirrorConfig `mapstructure:"chroma_mirror"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// IndexConfig holds the default index construction settings applied when a
// command does not override them with flags.
type IndexConfig struct {
	Backend        string `mapstructure:"backend"`
	ModelID        string `mapstructure:"model_id"`
	Dimensions     int    `mapstructure:"dimensions"`
	M              int    `mapstructure:"m"`
	EfConstruction int    `mapstructure:"ef_construction"`
	EfSearch       int    `mapstructure:"ef_search"`
}

// ChromaMirrorConfig holds the settings for the optional ChromaDB
// mirroring observer, which replicates merged entries into a ChromaDB
// collection for external inspection. It plays no role in search
// correctness; codevec never reads back from it.
type ChromaMirrorConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"api_key"`
	Collection string `mapstructure:"collection"`
}

// LoggingConfig holds structured-logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads configuration from configPath (if non-empty) and the
// environment, falling back to the published defaults for anything unset.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("codevec")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("index.backend", "bruteforce")
	v.SetDefault("index.model_id", "default")
	v.SetDefault("index.dimensions", 384)
	v.SetDefault("index.m", 16)
	v.SetDefault("index.ef_construction", 200)
	v.SetDefault("index.ef_search", 50)

	v.SetDefault("chroma_mirror.enabled", false)
	v.SetDefault("chroma_mirror.url", "http://localhost:8000")
	v.SetDefault("chroma_mirror.api_key", "")
	v.SetDefault("chroma_mirror.collection", "codevec")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", true)
}

// Validate checks the constructor-time invariants of a loaded Config.
func (c *Config) Validate() error {
	switch c.Index.Backend {
	case "bruteforce", "hnsw":
	default:
		return fmt.Errorf("config: unknown index backend %q", c.Index.Backend)
	}
	if c.Index.Dimensions <= 0 {
		return fmt.Errorf("config: index.dimensions must be positive, got %d", c.Index.Dimensions)
	}
	if c.ChromaMirror.Enabled && c.ChromaMirror.URL == "" {
		return fmt.Errorf("config: chroma_mirror.url is required when chroma_mirror.enabled is true")
	}
	return nil
}

// DefaultConfigPath returns the conventional config file location,
// without checking that it exists. Load returns an error when given a
// path to a file that does not exist.
func DefaultConfigPath() string {
	return filepath.Join(".", "codevec.yaml")
}
