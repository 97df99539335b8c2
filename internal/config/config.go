// Package config loads the server configuration from a YAML file, falling
// back to defaults when the file is absent.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds user-overridable server settings.
type Config struct {
	// DataDir is where per-project graph databases live.
	// Default: ~/.cache/code-graph-guard.
	DataDir string `yaml:"data_dir"`

	// Watch enables the polling watcher that re-indexes scopes on change.
	Watch bool `yaml:"watch"`

	// Discovery settings applied to index_path runs.
	Include     []string `yaml:"include"`
	Exclude     []string `yaml:"exclude"`
	MaxFileSize int64    `yaml:"max_file_size"`

	// ParseConcurrency bounds parallel file parsing (0: number of CPUs).
	ParseConcurrency int `yaml:"parse_concurrency"`
}

// Default returns the default configuration.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("home dir: %w", err)
	}
	return &Config{
		DataDir: filepath.Join(home, ".cache", "code-graph-guard"),
	}, nil
}

// Load reads configuration from path. A missing file yields defaults; an
// unreadable or invalid file is an error rather than silently ignored.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.DataDir == "" {
		def, defErr := Default()
		if defErr != nil {
			return nil, defErr
		}
		cfg.DataDir = def.DataDir
	}
	return cfg, nil
}
