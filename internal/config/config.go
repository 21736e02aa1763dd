package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const File = "config.json"

// Config is the optional per-tree configuration at .loupe/config.json.
// Everything has a default; the file only needs the overrides.
type Config struct {
	Include       []string `json:"include,omitempty"`
	Exclude       []string `json:"exclude,omitempty"`
	MaxGraphNodes int      `json:"max_graph_nodes,omitempty"`
	Model         string   `json:"model,omitempty"`
}

func DefaultInclude() []string {
	return []string{"**/*.{go,ts,tsx,js,jsx,mjs,py}"}
}

func DefaultExclude() []string {
	return []string{
		"**/.git/**",
		"**/.loupe/**",
		"**/node_modules/**",
		"**/vendor/**",
		"**/dist/**",
		"**/build/**",
		"**/__pycache__/**",
		"**/.venv/**",
	}
}

const DefaultMaxGraphNodes = 150

// Load reads the config under root, filling defaults for anything unset.
// A missing file yields the defaults; a malformed file is a user error.
func Load(root string) (*Config, error) {
	cfg := &Config{}

	path := filepath.Join(root, ".loupe", File)
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if len(cfg.Include) == 0 {
		cfg.Include = DefaultInclude()
	}
	if len(cfg.Exclude) == 0 {
		cfg.Exclude = DefaultExclude()
	}
	if cfg.MaxGraphNodes <= 0 {
		cfg.MaxGraphNodes = DefaultMaxGraphNodes
	}
	return cfg, nil
}
