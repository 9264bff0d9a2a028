package config

// file.go - optional YAML config file.
//
// Search order (first existing file wins):
//  1. $ROBOLINK_CONFIG
//  2. ./robolink.yaml
//  3. ~/.config/robolink/config.yaml
//
// The file is read-only input; robolink never writes it.

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FindConfigPath returns the first config file that exists, or "".
func FindConfigPath() string {
	for _, p := range configPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func configPaths() []string {
	var paths []string
	if p := os.Getenv("ROBOLINK_CONFIG"); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, "robolink.yaml")
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "robolink", "config.yaml"))
	}
	return paths
}

// LoadFile overlays the YAML file at path onto cfg.  Keys missing from
// the file leave cfg untouched.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Load builds a Config from defaults and, if one is found (or path is
// given), a config file.  It returns the file used, or "".
func Load(path string) (*Config, string, error) {
	cfg := Default()
	if path == "" {
		path = FindConfigPath()
		if path == "" {
			return cfg, "", nil
		}
	}
	if err := LoadFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, path, fmt.Errorf("config file %s does not exist", path)
		}
		return nil, path, err
	}
	return cfg, path, nil
}
