package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".wikidump"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile parses the YAML file at path.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // the path comes from the user
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

// searchPaths lists the implicit configuration locations, most specific first:
// the working directory, the home directory and $XDG_CONFIG_HOME/wikidump.
func searchPaths() []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, DefaultConfigFile))
	}
	return append(paths, filepath.Join(xdg.ConfigHome, AppName, "config.yaml"))
}

// FindConfigFile returns configPath if it exists, or the first existing
// implicit location when configPath is empty. It returns "" when nothing
// is found.
func FindConfigFile(configPath string) string {
	candidates := searchPaths()
	if configPath != "" {
		candidates = []string{configPath}
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Load returns the defaults overlaid with the configuration file found by
// FindConfigFile. A missing explicit path is an error; a missing implicit
// file is not.
func Load(configPath string) (*Config, error) {
	cfg := NewConfig()
	cfg.ConfigFilePath = configPath

	path := FindConfigFile(configPath)
	switch {
	case path == "" && configPath != "":
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	case path == "":
		return cfg, nil
	}

	f, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Apply(f)
	cfg.ConfigFilePath = path
	return cfg, nil
}
